package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"wifisleep/internal/suspend"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00d7ff")).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")).Width(18)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff")).MarginTop(1)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf00"))
)

func stateStyle(state string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch state {
	case suspend.Suspended.String():
		return base.Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#5fd787"))
	case suspend.Suspending.String(), suspend.ResumePending.String():
		return base.Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#ffaf00"))
	default:
		return base.Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#00d7ff"))
	}
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func (m Model) renderStatus() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wifisleep: network suspend"))
	b.WriteString("\n")

	if !m.loaded {
		if m.lastErr != "" {
			b.WriteString(errorStyle.Render("No status yet: " + m.lastErr))
		} else {
			b.WriteString(valueStyle.Render("Waiting for agent status..."))
		}
		b.WriteString("\n")
		b.WriteString(hintStyle.Render(fmt.Sprintf("Reading %s | ?: help | q: quit", m.store.Path())))
		b.WriteString("\n")
		return b.String()
	}

	s := m.snap
	b.WriteString(labelStyle.Render("State"))
	b.WriteString(stateStyle(s.State).Render(s.State))
	if s.WakeLocks > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("  wake locks held: %d", s.WakeLocks)))
	}
	b.WriteString("\n")

	row(&b, "Power save", s.PowerSave)
	row(&b, "Passes", fmt.Sprintf("%d (timed out %d, aborted %d)", s.Passes, s.TimedOut, s.Aborted))
	row(&b, "Suspends", fmt.Sprintf("%d", s.Suspends))
	row(&b, "Resumes", fmt.Sprintf("%d (+%d while watching)", s.Resumes, m.wakes))
	if s.LastDecision != "" {
		row(&b, "Last pass", fmt.Sprintf("%s, longest idle %dms", s.LastDecision, s.LastIdleMs))
	}
	if s.SuspendFailures > 0 {
		b.WriteString(labelStyle.Render("Suspend failures"))
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d", s.SuspendFailures)))
		b.WriteString("\n")
	}
	row(&b, "Updated", s.UpdatedAt.Local().Format("15:04:05.000"))

	if m.stale() {
		b.WriteString(warnStyle.Render("Status is stale; is the agent running?"))
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render(m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString(hintStyle.Render("r: refresh | ?: help | q: quit"))
	b.WriteString("\n")
	return b.String()
}

func renderHelp() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("wifisleep: keys"))
	b.WriteString("\n")
	for _, k := range [][2]string{
		{"r", "reload the status file now"},
		{"? / h", "toggle this help"},
		{"esc", "back to status"},
		{"q / ctrl+c", "quit"},
	} {
		row(&b, k[0], k[1])
	}
	b.WriteString(hintStyle.Render("States: monitoring > suspending > suspended > resume_pending"))
	b.WriteString("\n")
	return b.String()
}
