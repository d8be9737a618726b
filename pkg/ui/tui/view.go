package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"igfollowers/pkg/collector"
	"igfollowers/pkg/retry"
)

const logo = `
╔══════════════════════════════════════════════╗
║   I G F O L L O W E R S  ::  follower sweep  ║
╚══════════════════════════════════════════════╝`

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, logoStyle.Width(m.width).Render(logo))

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderBackoffPanel(width),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderRecentPanel(width),
		m.renderLogsPanel(width),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to quit"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func stat(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

// renderStatsPanel renders the run counters
func (m *Model) renderStatsPanel(width int) string {
	rate := m.Rate()

	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" RUN STATS ")

	status := m.spinner.View() + " running"
	if m.result != nil {
		status = GetStateStyle(m.result.State).Render("● " + m.result.State.String())
	}

	stats := []string{
		status,
		stat("Target:", m.userID+" ("+string(m.mode)+")"),
		stat("Elapsed:", formatDuration(m.now().Sub(m.sessionStartTime))),
		stat("Followers:", fmt.Sprintf("%d", m.total)),
	}
	if m.mode == collector.ModePassive {
		stats = append(stats, stat("Events:", fmt.Sprintf("%d", m.events)))
	} else {
		stats = append(stats, stat("Pages:", fmt.Sprintf("%d", m.pages)))
	}
	stats = append(stats,
		stat("Last page:", fmt.Sprintf("+%d new", m.lastAdded)),
		stat("Rate:", fmt.Sprintf("%.1f/min", rate)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Idle:"), GetIdleStyle(m.idle, m.idleCeiling).Render(idleText(m.idle, m.idleCeiling))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Errors:"), GetErrorStyle(m.errors).Render(fmt.Sprintf("%d in a row", m.errors))),
	)

	if m.target > 0 {
		pct := float64(m.total) / float64(m.target)
		if pct > 1 {
			pct = 1
		}
		stats = append(stats, "", m.progress.ViewAs(pct)+fmt.Sprintf(" %d/%d", m.total, m.target))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, stats...)
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func idleText(idle, ceiling int) string {
	if ceiling <= 0 {
		return fmt.Sprintf("%d", idle)
	}
	return fmt.Sprintf("%d/%d", idle, ceiling)
}

// renderBackoffPanel shows the wait in progress, if any
func (m *Model) renderBackoffPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" BACKOFF ")

	if m.backoff == nil {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("No backoff in progress")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	b := m.backoff
	style := GetBackoffStyle(b)
	remaining := b.Until.Sub(m.now())
	if remaining < 0 {
		remaining = 0
	}

	lines := []string{
		style.Render(strings.ReplaceAll(b.Outcome.String(), "_", " ")),
		stat("Action:", b.Action.String()),
		stat("In a row:", fmt.Sprintf("%d", b.ConsecutiveErrors)),
	}
	if b.Action == retry.ActionRetry && b.Wait > 0 {
		lines = append(lines, stat("Resume in:", formatDuration(remaining)))
	}
	if b.Diagnostic != "" {
		lines = append(lines, logMessageStyle.Render(truncate(b.Diagnostic, width-6)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

// renderRecentPanel lists the newest followers
func (m *Model) renderRecentPanel(width int) string {
	recent := m.Recent()
	title := titleStyle.Render(" RECENT FOLLOWERS ")

	if len(recent) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for the first page...")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	var items []string
	for i := len(recent) - 1; i >= 0; i-- {
		r := recent[i]
		line := "@" + r.Username
		if r.IsVerified {
			line += " ✓"
		}
		if r.FullName != "" {
			line += " " + lipgloss.NewStyle().Foreground(dimWhite).Render(truncate(r.FullName, 24))
		}
		if r.IsPrivate {
			items = append(items, recentPrivateStyle.Render(line))
		} else {
			items = append(items, recentItemStyle.Render(line))
		}
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LOGS ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logMessageStyle.Render(truncate(log.Message, width-25))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	logsHeight := m.height - 30
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop the run and quit
    ctrl+l   - Clear logs
    ?        - Toggle this help

  Idle counts pages that added no new follower.
  The run ends when it reaches its ceiling.
`
	return panelStyle.Width(m.width).Render(help)
}

func truncate(s string, n int) string {
	if n <= 3 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration as MM:SS or HH:MM:SS
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
