package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entro314-labs/bigkill/internal/api"
	"github.com/entro314-labs/bigkill/internal/results"
	"github.com/entro314-labs/bigkill/internal/scan"
)

type scanStartedMsg struct {
	Event scan.Event
	Err   error
}

type scanEventMsg struct {
	Event scan.Event
}

type filesFetchedMsg struct {
	Scan int
	Err  error
}

type deleteDoneMsg struct {
	Notice string
	Err    error
}

type bulkDoneMsg struct {
	Notice string
	Err    error
}

type openDoneMsg struct {
	Err error
}

type scanPulseMsg struct{}

// startScanCmd starts the scan reserved by ctrl.Begin. A scan that was
// superseded in the meantime is not sent.
func startScanCmd(ctx context.Context, ctrl *scan.Controller, gen int, req api.ScanRequest) tea.Cmd {
	return func() tea.Msg {
		ev, err := ctrl.Start(ctx, gen, req)
		return scanStartedMsg{Event: ev, Err: err}
	}
}

// waitEvent blocks on the controller's event stream. It is re-armed after
// every event for the lifetime of the program.
func waitEvent(ch <-chan scan.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return scanEventMsg{Event: ev}
	}
}

func fetchFilesCmd(ctx context.Context, view *results.View, scanID int) tea.Cmd {
	return func() tea.Msg {
		return filesFetchedMsg{Scan: scanID, Err: view.FetchAll(ctx)}
	}
}

// The view methods below run only after the user answered the prompt in the
// UI, so they are handed results.Confirmed.

func deleteCmd(ctx context.Context, view *results.View, id api.FileID) tea.Cmd {
	return func() tea.Msg {
		notice, err := view.DeleteOne(ctx, id, results.Confirmed)
		return deleteDoneMsg{Notice: notice, Err: err}
	}
}

func deleteAllSafeCmd(ctx context.Context, view *results.View) tea.Cmd {
	return func() tea.Msg {
		notice, err := view.DeleteAllSafe(ctx, results.Confirmed)
		return bulkDoneMsg{Notice: notice, Err: err}
	}
}

func openCmd(ctx context.Context, view *results.View, id api.FileID) tea.Cmd {
	return func() tea.Msg {
		return openDoneMsg{Err: view.OpenLocation(ctx, id)}
	}
}

func scanPulseCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return scanPulseMsg{}
	})
}
