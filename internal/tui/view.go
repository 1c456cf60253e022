package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/entro314-labs/bigkill/internal/results"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}
	if m.notice != "" {
		return m.noticeView()
	}

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		m.headerView(),
		m.formView(),
		ui.base.Render(m.bodyView()),
		m.statusView(),
		m.footerView(),
	)
	return ui.container.Render(view)
}

func (m Model) headerView() string {
	title := ui.title.Render("bigkill")
	subtitle := ui.subtitle.Render("Find and remove large files")
	server := ui.muted.Render("Server: " + m.opts.BaseURL)
	line := lipgloss.JoinHorizontal(lipgloss.Left, title, " ", ui.chip.Render("category: "+m.view.Filter()), " ", ui.chip.Render(m.view.Sort().String()))
	return ui.header.Render(lipgloss.JoinVertical(lipgloss.Left, line, lipgloss.JoinHorizontal(lipgloss.Left, subtitle, " · ", server)))
}

func (m Model) formView() string {
	label := func(text string, active bool) string {
		if active {
			return ui.accent.Render(text)
		}
		return ui.muted.Render(text)
	}
	check := "[ ]"
	if m.onlyTemp {
		check = "[x]"
	}
	return ui.header.Render(lipgloss.JoinHorizontal(
		lipgloss.Left,
		label("Path: ", m.focus == focusPath), m.pathInput.View(),
		"  ",
		label("Min size (MB): ", m.focus == focusSize), m.sizeInput.View(),
		"  ",
		ui.muted.Render(check+" Only temp files"),
	))
}

// bodyView shows the scan banner when there is one, otherwise the projected
// list or its placeholder.
func (m Model) bodyView() string {
	inner := max(m.width-4, 20)
	if m.banner != "" {
		style := ui.status
		if m.bannerErr {
			style = ui.danger
		}
		return style.Width(inner).Render(m.banner)
	}
	if len(m.projection.Items) == 0 {
		return ui.muted.Width(inner).Render(m.projection.Placeholder)
	}
	return m.table.View()
}

func (m Model) statusView() string {
	if m.scanning {
		elapsed := time.Since(m.scanStart).Truncate(100 * time.Millisecond)
		line := fmt.Sprintf("%s visited %s · found %s · %s",
			m.spinner.View(),
			humanize.Comma(int64(m.progress.FilesProcessed)),
			humanize.Comma(int64(m.progress.TotalFound)),
			elapsed)
		return lipgloss.JoinVertical(lipgloss.Left, ui.status.Render(line), ui.muted.Render(m.scanBar.ViewAs(m.pulse)))
	}

	var total float64
	for _, it := range m.projection.Items {
		total += it.Record.FilesizeMB
	}
	parts := []string{
		fmt.Sprintf("Files: %d", len(m.view.Files())),
		fmt.Sprintf("Shown: %d", len(m.projection.Items)),
		fmt.Sprintf("Total: %s", humanize.IBytes(uint64(total*1024*1024))),
	}
	if item, ok := m.selectedItem(); ok {
		style := ui.danger
		if item.Record.IsSafeToDelete {
			style = ui.safe
		}
		parts = append(parts, style.Render(item.DeleteLabel))
	}
	status := ui.status.Render(strings.Join(parts, " · "))
	if !m.projection.ShowDeleteAllSafe {
		return status
	}
	busy := m.bulkBusy || m.view.BulkBusy()
	button := ui.button.Render("D " + results.BulkLabel(busy))
	if busy {
		button = ui.disabled.Render(results.BulkLabel(busy))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, status, "  ", button)
}

func (m Model) footerView() string {
	if m.confirm.active {
		// Only the plain warning for a safe file is toned down.
		style := ui.confirm
		if m.confirm.prompt == results.WarnDelete {
			style = ui.warning
		}
		return style.Width(max(m.width-4, 20)).Render(m.confirm.prompt + " (y/n)")
	}
	helpView := m.help.View(m.keys)
	if m.focus != focusTable {
		helpView = m.help.View(m.formKeys)
	}
	if m.lastEvent != "" {
		return lipgloss.JoinVertical(lipgloss.Left, ui.muted.Render(m.lastEvent), helpView)
	}
	return helpView
}

func (m Model) noticeView() string {
	box := ui.notice.Width(min(m.width-8, 72)).Render(
		lipgloss.JoinVertical(lipgloss.Left, m.notice, "", ui.muted.Render("press any key to continue")),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
