package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/watcher"
)

// LoadFunc fetches the family document.
type LoadFunc func(ctx context.Context) (model.FamilyData, error)

// DataLoadedMsg carries the outcome of a LoadDataCmd.
type DataLoadedMsg struct {
	Data     model.FamilyData
	Err      error
	Duration time.Duration
}

// ReloadMsg is sent when the watched data file has been reloaded.
type ReloadMsg struct {
	watcher.Reload
}

// searchDebounceMsg fires once typing has paused. Only the latest seq runs.
type searchDebounceMsg struct {
	seq int
}

// LoadDataCmd runs load off the UI goroutine.
func LoadDataCmd(ctx context.Context, load LoadFunc) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		data, err := load(ctx)
		return DataLoadedMsg{Data: data, Err: err, Duration: time.Since(start)}
	}
}

// WaitForReloadCmd waits for the next reload outcome from r.
func WaitForReloadCmd(r *watcher.Reloader) tea.Cmd {
	return func() tea.Msg {
		return ReloadMsg{Reload: <-r.Reloads()}
	}
}

func searchDebounceCmd(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return searchDebounceMsg{seq: seq}
	})
}
