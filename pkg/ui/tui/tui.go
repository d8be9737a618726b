package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"igfollowers/pkg/collector"
	"igfollowers/pkg/ui"
)

var _ ui.TUI = (*TUI)(nil)

// TUI runs the bubbletea program and forwards engine callbacks to it
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a new TUI instance
func NewTUI(opts Options) *TUI {
	model := NewModel(opts)
	program := tea.NewProgram(model, tea.WithAltScreen())

	return &TUI{
		program: program,
		model:   model,
	}
}

// Start runs the program until the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) OnProgress(p collector.Progress) {
	t.Send(ProgressMsg(p))
}

func (t *TUI) OnBackoff(b collector.Backoff) {
	t.Send(BackoffMsg(b))
}

func (t *TUI) OnFinish(res *collector.Result) {
	t.Send(FinishedMsg{Result: res})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}

// Finished reports whether the run shown has ended
func (t *TUI) Finished() bool {
	return t.model.Finished()
}
