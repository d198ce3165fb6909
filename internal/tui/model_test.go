package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wifisleep/internal/suspend"
)

type fakeStore struct {
	snap suspend.Snapshot
	err  error
}

func (f *fakeStore) Load() (suspend.Snapshot, error) { return f.snap, f.err }
func (f *fakeStore) Path() string                    { return "/tmp/suspend_status.json" }

func key(s string) tea.KeyMsg {
	if s == "ctrl+c" {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_QuitKeys(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m := NewModel(&fakeStore{}, time.Second)
			updated, cmd := m.Update(key(k))
			if !updated.(Model).quitting {
				t.Error("expected quitting")
			}
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("expected tea.QuitMsg")
			}
			if updated.View() != "" {
				t.Error("quitting view should be empty")
			}
		})
	}
}

func TestModel_LoadsSnapshot(t *testing.T) {
	store := &fakeStore{snap: suspend.Snapshot{
		State:     suspend.Suspended.String(),
		PowerSave: "with_throughput(10ms)",
		Passes:    7,
		Suspends:  3,
		Resumes:   2,
		UpdatedAt: time.Now(),
	}}
	m := NewModel(store, time.Second)

	cmd := m.load()
	updated, _ := m.Update(cmd())
	view := updated.View()

	for _, want := range []string{"suspended", "with_throughput(10ms)", "Suspends", "3"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_TracksResumesWhileWatching(t *testing.T) {
	store := &fakeStore{snap: suspend.Snapshot{State: "monitoring", Resumes: 5}}
	m := NewModel(store, time.Second)

	next, _ := m.Update(m.load()())
	store.snap.Resumes = 8
	next, _ = next.(Model).Update(next.(Model).load()())

	if got := next.(Model).wakes; got != 3 {
		t.Errorf("wakes = %d, want 3", got)
	}
}

func TestModel_LoadError(t *testing.T) {
	m := NewModel(&fakeStore{err: errors.New("status file not found")}, time.Second)
	updated, _ := m.Update(m.load()())

	if !strings.Contains(updated.View(), "status file not found") {
		t.Errorf("view should show load error:\n%s", updated.View())
	}
}

func TestModel_HelpToggle(t *testing.T) {
	m := NewModel(&fakeStore{}, time.Second)

	next, _ := m.Update(key("?"))
	if next.(Model).screen != ScreenHelp {
		t.Fatal("expected help screen")
	}
	if !strings.Contains(next.View(), "toggle this help") {
		t.Error("help view missing bindings")
	}

	next, _ = next.Update(key("esc"))
	if next.(Model).screen != ScreenStatus {
		t.Error("esc should return to status")
	}
}

func TestModel_TickReloads(t *testing.T) {
	m := NewModel(&fakeStore{}, time.Second)
	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick should schedule a reload and the next tick")
	}
}

func TestModel_Stale(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{snap: suspend.Snapshot{State: "monitoring", UpdatedAt: now.Add(-time.Minute)}}
	m := NewModel(store, time.Second)
	m.now = func() time.Time { return now }

	next, _ := m.Update(m.load()())
	if !next.(Model).stale() {
		t.Error("minute-old snapshot should be stale")
	}
	if !strings.Contains(next.View(), "stale") {
		t.Error("view should flag stale status")
	}
}
