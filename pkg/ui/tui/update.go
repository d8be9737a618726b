package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"igfollowers/pkg/collector"
	"igfollowers/pkg/retry"
)

// ProgressMsg carries an engine progress report
type ProgressMsg collector.Progress

// BackoffMsg carries a backoff decision
type BackoffMsg collector.Backoff

// FinishedMsg is sent once when the run ends
type FinishedMsg struct {
	Result *collector.Result
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, (msg.Width-4)/2-16)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		// redraws the backoff countdown
		return m, tickCmd()

	case ProgressMsg:
		m.ApplyProgress(collector.Progress(msg))
		if msg.Added > 0 {
			m.AddLogMessage("INFO", fmt.Sprintf("+%d followers (%d total)", msg.Added, msg.Total))
		}
		return m, nil

	case BackoffMsg:
		m.ApplyBackoff(collector.Backoff(msg))
		return m, nil

	case FinishedMsg:
		m.Finish(msg.Result)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func backoffLine(b collector.Backoff) string {
	what := strings.ReplaceAll(b.Outcome.String(), "_", " ")
	if b.Action == retry.ActionAbort {
		return fmt.Sprintf("Giving up after %s", what)
	}
	return fmt.Sprintf("%s (%d in a row), waiting %s", what, b.ConsecutiveErrors, formatDuration(b.Wait))
}
