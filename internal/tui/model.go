// Package tui is the interactive front end: a scan form, live progress and a
// table of the files the server found.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/failure"
	"github.com/entro314-labs/bigkill/internal/results"
	"github.com/entro314-labs/bigkill/internal/scan"
)

type focusField int

const (
	focusTable focusField = iota
	focusPath
	focusSize
)

type confirmAction int

const (
	confirmNone confirmAction = iota
	confirmDeleteOne
	confirmDeleteAllSafe
)

type confirmState struct {
	active bool
	action confirmAction
	id     api.FileID
	prompt string
}

// Options seeds the scan form.
type Options struct {
	BaseURL   string
	Path      string
	MinSizeMB float64
	OnlyTemp  bool
	// AutoStart scans Path as soon as the program starts.
	AutoStart bool
}

const idleHint = "Enter a folder path and press enter to scan."

type Model struct {
	ctrl *scan.Controller
	view *results.View
	log  zerolog.Logger
	opts Options

	table     table.Model
	spinner   spinner.Model
	help      help.Model
	keys      keyMap
	formKeys  formKeyMap
	pathInput textinput.Model
	sizeInput textinput.Model
	scanBar   progress.Model
	focus     focusField
	onlyTemp  bool

	// scanID is the number ctrl.Begin handed out for the current scan.
	scanID     int
	scanning   bool
	scanStart  time.Time
	progress   scan.Progress
	banner     string
	bannerErr  bool
	projection results.Projection

	confirm   confirmState
	notice    string
	lastEvent string
	bulkBusy  bool

	pulse    float64
	pulseDir float64
	width    int
	height   int

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

func New(ctx context.Context, ctrl *scan.Controller, view *results.View, opts Options, log zerolog.Logger) Model {
	baseCtx, baseCancel := context.WithCancel(ctx)

	t := table.New(
		table.WithColumns(columns(120)),
		table.WithFocused(true),
	)
	t.SetStyles(tableStyles())

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	pathInput := textinput.New()
	pathInput.Placeholder = "/path/to/scan"
	pathInput.Prompt = ""
	pathInput.CharLimit = 4096
	pathInput.Width = 48
	pathInput.SetValue(opts.Path)

	sizeInput := textinput.New()
	sizeInput.Placeholder = strconv.FormatFloat(api.DefaultMinSizeMB, 'f', -1, 64)
	sizeInput.Prompt = ""
	sizeInput.CharLimit = 12
	sizeInput.Width = 8
	if opts.MinSizeMB > 0 {
		sizeInput.SetValue(strconv.FormatFloat(opts.MinSizeMB, 'f', -1, 64))
	}

	m := Model{
		ctrl:       ctrl,
		view:       view,
		log:        log,
		opts:       opts,
		table:      t,
		spinner:    sp,
		help:       help.New(),
		keys:       newKeyMap(),
		formKeys:   newFormKeyMap(),
		pathInput:  pathInput,
		sizeInput:  sizeInput,
		scanBar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		onlyTemp:   opts.OnlyTemp,
		pulseDir:   1,
		banner:     idleHint,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
	if len(view.Files()) > 0 {
		m.banner = ""
	}

	if opts.AutoStart && strings.TrimSpace(opts.Path) != "" {
		// Init issues the start request for this generation.
		m.beginScan()
	} else {
		m.setFocus(focusPath)
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, waitEvent(m.ctrl.Events())}
	if m.scanning {
		cmds = append(cmds, m.spinner.Tick, startScanCmd(m.baseCtx, m.ctrl, m.scanID, m.request()), scanPulseCmd())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.updateLayout(msg.Width, msg.Height)
	case spinner.TickMsg:
		if m.scanning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	case scanPulseMsg:
		if m.scanning {
			m.pulse += 0.06 * m.pulseDir
			if m.pulse >= 1 {
				m.pulse = 1
				m.pulseDir = -1
			} else if m.pulse <= 0 {
				m.pulse = 0
				m.pulseDir = 1
			}
			cmds = append(cmds, scanPulseCmd())
		}
	case scanStartedMsg:
		if msg.Event.Scan != m.scanID {
			break
		}
		if msg.Err != nil {
			m.scanning = false
			m.banner = scan.FailureText(msg.Err)
			m.bannerErr = true
			m.lastEvent = "Scan failed"
			break
		}
		// A progress event may already have replaced the placeholder.
		if m.scanning && m.banner == results.PlaceholderScanning {
			m.banner = results.PlaceholderStarted
		}
	case scanEventMsg:
		cmds = append(cmds, waitEvent(m.ctrl.Events()))
		if cmd := m.applyScanEvent(msg.Event); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case filesFetchedMsg:
		if msg.Err != nil {
			// Already logged by the view; the stale list stays.
			break
		}
		if msg.Scan == m.scanID && !m.scanning {
			m.banner = ""
			m.bannerErr = false
			m.lastEvent = fmt.Sprintf("Scan complete: %d file(s)", len(m.view.Files()))
		}
		m.refresh()
	case deleteDoneMsg:
		if msg.Err != nil {
			m.notice = results.Sanitize(failure.Message(msg.Err))
		} else {
			m.notice = results.Sanitize(msg.Notice)
		}
		m.refresh()
	case bulkDoneMsg:
		m.bulkBusy = false
		switch {
		case errors.Is(msg.Err, results.ErrBusy):
			m.lastEvent = "Bulk deletion already running"
		case msg.Err != nil:
			m.notice = results.Sanitize(failure.Message(msg.Err))
		default:
			m.notice = results.Sanitize(msg.Notice)
		}
		m.refresh()
	case openDoneMsg:
		if msg.Err != nil {
			m.notice = results.Sanitize(failure.Message(msg.Err))
		} else {
			m.lastEvent = "Opened file location"
		}
	case tea.KeyMsg:
		var cmd tea.Cmd
		var quit bool
		m, cmd, quit = m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	default:
		// Cursor blink and similar input housekeeping.
		var cmd tea.Cmd
		switch m.focus {
		case focusPath:
			m.pathInput, cmd = m.pathInput.Update(msg)
		case focusSize:
			m.sizeInput, cmd = m.sizeInput.Update(msg)
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.baseCancel()
		return m, nil, true
	}

	if m.notice != "" {
		m.notice = ""
		return m, nil, false
	}

	if m.confirm.active {
		switch msg.String() {
		case "y", "Y":
			state := m.confirm
			m.confirm = confirmState{}
			return m, m.runConfirmed(state), false
		case "n", "N", "esc":
			m.confirm = confirmState{}
			m.lastEvent = "Deletion cancelled"
		}
		return m, nil, false
	}

	if m.focus != focusTable {
		return m.handleFormKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.baseCancel()
		return m, nil, true
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.NewScan):
		return m, m.setFocus(focusPath), false
	case key.Matches(msg, m.keys.Sort):
		m.view.SetSort(m.view.Sort().Next())
		m.viewChanged()
		m.lastEvent = "Sorted by " + m.view.Sort().String()
	case key.Matches(msg, m.keys.Filter):
		m.view.SetFilter(results.NextCategory(m.view.Categories(), m.view.Filter()))
		m.viewChanged()
		m.lastEvent = "Category: " + m.view.Filter()
	case key.Matches(msg, m.keys.Refresh):
		m.lastEvent = "Reloading list…"
		return m, fetchFilesCmd(m.baseCtx, m.view, m.scanID), false
	case key.Matches(msg, m.keys.Delete):
		if item, ok := m.selectedItem(); ok {
			m.confirm = confirmState{
				active: true,
				action: confirmDeleteOne,
				id:     item.Record.ID,
				prompt: m.view.DeletePrompt(item.Record.ID),
			}
		}
	case key.Matches(msg, m.keys.DeleteSafe):
		switch {
		case m.bulkBusy || m.view.BulkBusy():
			m.lastEvent = "Bulk deletion already running"
		case !m.projection.ShowDeleteAllSafe:
			m.lastEvent = "No safe files in view"
		default:
			m.confirm = confirmState{active: true, action: confirmDeleteAllSafe, prompt: results.WarnDeleteAllSafe}
		}
	case key.Matches(msg, m.keys.Open):
		if item, ok := m.selectedItem(); ok {
			return m, openCmd(m.baseCtx, m.view, item.Record.ID), false
		}
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd, false
	}
	return m, nil, false
}

func (m Model) handleFormKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.formKeys.Submit):
		cmd := m.beginScan()
		return m, cmd, false
	case key.Matches(msg, m.formKeys.Next):
		next := focusSize
		if m.focus == focusSize {
			next = focusPath
		}
		return m, m.setFocus(next), false
	case key.Matches(msg, m.formKeys.OnlyTemp):
		m.onlyTemp = !m.onlyTemp
		return m, nil, false
	case key.Matches(msg, m.formKeys.Back):
		return m, m.setFocus(focusTable), false
	}

	var cmd tea.Cmd
	if m.focus == focusSize {
		m.sizeInput, cmd = m.sizeInput.Update(msg)
	} else {
		m.pathInput, cmd = m.pathInput.Update(msg)
	}
	return m, cmd, false
}

func (m *Model) runConfirmed(state confirmState) tea.Cmd {
	switch state.action {
	case confirmDeleteOne:
		m.lastEvent = "Deleting…"
		return deleteCmd(m.baseCtx, m.view, state.id)
	case confirmDeleteAllSafe:
		m.bulkBusy = true
		m.lastEvent = results.LabelDeleting
		return deleteAllSafeCmd(m.baseCtx, m.view)
	}
	return nil
}

// beginScan stops the previous scan, takes the next scan number from the
// controller and resets the display. Once the program runs, the returned
// commands start the scan.
func (m *Model) beginScan() tea.Cmd {
	m.scanID = m.ctrl.Begin()
	m.scanning = true
	m.scanStart = time.Now()
	m.progress = scan.Progress{}
	m.banner = results.PlaceholderScanning
	m.bannerErr = false
	m.pulse = 0
	m.pulseDir = 1
	m.setFocus(focusTable)

	req := m.request()
	m.lastEvent = "Scanning " + results.Sanitize(req.Path)
	m.log.Debug().Int("scan", m.scanID).Str("path", req.Path).Msg("scan requested")
	return tea.Batch(m.spinner.Tick, startScanCmd(m.baseCtx, m.ctrl, m.scanID, req), scanPulseCmd())
}

func (m Model) request() api.ScanRequest {
	// Unparseable sizes fall back to the default during normalisation.
	size, _ := strconv.ParseFloat(strings.TrimSpace(m.sizeInput.Value()), 64)
	return api.ScanRequest{
		Path:      strings.TrimSpace(m.pathInput.Value()),
		MinSizeMB: size,
		OnlyTemp:  m.onlyTemp,
	}.Normalized()
}

func (m *Model) applyScanEvent(ev scan.Event) tea.Cmd {
	if ev.Scan != m.scanID {
		return nil
	}

	switch ev.State {
	case scan.Scanning:
		if !m.scanning {
			return nil
		}
		m.progress = ev.Progress
		m.banner = scan.ProgressText(ev.Progress)
	case scan.Completed:
		m.scanning = false
		m.progress = ev.Progress
		m.lastEvent = "Scan finished in " + time.Since(m.scanStart).Truncate(10*time.Millisecond).String()
		return fetchFilesCmd(m.baseCtx, m.view, ev.Scan)
	case scan.Failed:
		m.scanning = false
		m.banner = scan.FailureText(ev.Err)
		m.bannerErr = true
		m.lastEvent = "Scan failed"
	}
	return nil
}

func (m *Model) setFocus(f focusField) tea.Cmd {
	m.focus = f
	m.pathInput.Blur()
	m.sizeInput.Blur()
	switch f {
	case focusPath:
		m.table.Blur()
		return m.pathInput.Focus()
	case focusSize:
		m.table.Blur()
		return m.sizeInput.Focus()
	default:
		m.table.Focus()
		return nil
	}
}

// viewChanged re-projects after a filter or sort change. A finished scan's
// banner gives way to the list, as a re-render would.
func (m *Model) viewChanged() {
	if !m.scanning {
		m.banner = ""
		m.bannerErr = false
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.projection = m.view.Render()
	rows := make([]table.Row, 0, len(m.projection.Items))
	for _, it := range m.projection.Items {
		rows = append(rows, table.Row{it.Name, it.Size, it.Category, it.Badge, it.Path})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m Model) selectedItem() (results.Item, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.projection.Items) {
		return results.Item{}, false
	}
	return m.projection.Items[idx], true
}

func (m *Model) updateLayout(width, height int) {
	if width == 0 || height == 0 {
		return
	}
	if width < 60 {
		width = 60
	}
	if height < 12 {
		height = 12
	}
	if m.width == width && m.height == height {
		return
	}
	m.width = width
	m.height = height

	m.table.SetColumns(columns(width))
	m.pathInput.Width = max(width/2-20, 20)

	used := lipgloss.Height(m.headerView()) + lipgloss.Height(m.formView()) +
		lipgloss.Height(m.statusView()) + lipgloss.Height(m.footerView())
	m.table.SetHeight(max(height-used-4, 5))
	m.table.SetWidth(width - 4)
	m.scanBar.Width = max(width-28, 20)
}

func columns(width int) []table.Column {
	sizeWidth := 12
	categoryWidth := 12
	badgeWidth := 32
	rest := max(width-sizeWidth-categoryWidth-badgeWidth-14, 30)
	nameWidth := max(rest/3, 12)
	pathWidth := max(rest-nameWidth, 18)
	return []table.Column{
		{Title: "Name", Width: nameWidth},
		{Title: "Size", Width: sizeWidth},
		{Title: "Category", Width: categoryWidth},
		{Title: "Safety", Width: badgeWidth},
		{Title: "Path", Width: pathWidth},
	}
}
