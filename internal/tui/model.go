package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wifisleep/internal/suspend"
)

// Model is the bubbletea model behind `wifisleep watch`
type Model struct {
	store    StatusLoader
	refresh  time.Duration
	now      func() time.Time
	screen   Screen
	quitting bool

	snap    suspend.Snapshot
	loaded  bool
	lastErr string

	// resumes seen since the view started
	prevResumes uint64
	wakes       uint64
}

// NewModel creates a watch model reading from store every refresh
func NewModel(store StatusLoader, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return Model{
		store:   store,
		refresh: refresh,
		now:     time.Now,
		screen:  ScreenStatus,
	}
}

// Init loads the first snapshot and starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick())
}

func (m Model) load() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		snap, err := store.Load()
		return statusMsg{snap: snap, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles key presses, ticks and loaded snapshots
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	case tickMsg:
		return m, tea.Batch(m.load(), m.tick())
	case statusMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		if m.loaded && msg.snap.Resumes > m.prevResumes {
			m.wakes += msg.snap.Resumes - m.prevResumes
		}
		m.prevResumes = msg.snap.Resumes
		m.snap = msg.snap
		m.loaded = true
		m.lastErr = ""
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "r":
		return m, m.load()
	case "?", "h":
		if m.screen == ScreenHelp {
			m.screen = ScreenStatus
		} else {
			m.screen = ScreenHelp
		}
	case "esc":
		m.screen = ScreenStatus
	}
	return m, nil
}

// View renders the current screen
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.screen == ScreenHelp {
		return renderHelp()
	}
	return m.renderStatus()
}

// stale reports whether the agent stopped refreshing the snapshot
func (m Model) stale() bool {
	if !m.loaded || m.snap.UpdatedAt.IsZero() {
		return false
	}
	return m.now().Sub(m.snap.UpdatedAt) > 4*m.refresh+2*time.Second
}

// Run starts the watch view on the terminal
func Run(store StatusLoader, refresh time.Duration) error {
	_, err := tea.NewProgram(NewModel(store, refresh)).Run()
	return err
}
