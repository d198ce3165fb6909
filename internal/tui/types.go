package tui

import (
	"time"

	"wifisleep/internal/suspend"
)

// Screen identifies what the watch view is showing
type Screen string

const (
	// ScreenStatus shows the live controller snapshot
	ScreenStatus Screen = "status"
	// ScreenHelp shows key bindings
	ScreenHelp Screen = "help"
)

// StatusLoader reads the snapshot written by the agent.
// *suspend.StatusStore implements it.
type StatusLoader interface {
	Load() (suspend.Snapshot, error)
	Path() string
}

type tickMsg time.Time

type statusMsg struct {
	snap suspend.Snapshot
	err  error
}

// DefaultRefresh is the polling interval of the watch view
const DefaultRefresh = 500 * time.Millisecond
