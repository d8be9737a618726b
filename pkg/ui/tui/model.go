package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"igfollowers/pkg/collector"
	"igfollowers/pkg/models"
	"igfollowers/pkg/retry"
)

const (
	maxRecent      = 12
	maxLogMessages = 50
)

// BackoffStatus is the wait the engine is currently sitting in
type BackoffStatus struct {
	Outcome           models.Outcome
	Action            retry.Action
	Wait              time.Duration
	Until             time.Time
	ConsecutiveErrors int
	Diagnostic        string
}

// Model represents the TUI model
type Model struct {
	// UI components
	spinner  spinner.Model
	progress progress.Model

	// Run identity
	userID      string
	mode        collector.Mode
	target      int
	idleCeiling int

	// Counters from the last progress report
	pages     int
	events    int
	total     int
	lastAdded int
	idle      int
	errors    int
	cursor    string

	backoff *BackoffStatus
	recent  []models.FollowerRecord
	result  *collector.Result

	sessionStartTime time.Time
	now              func() time.Time

	// UI state
	width       int
	height      int
	showHelp    bool
	logMessages []LogMessage
	onQuit      func()

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Options describes the run shown by the model
type Options struct {
	UserID      string
	Mode        collector.Mode
	Target      int
	IdleCeiling int
	// OnQuit is called when the user quits, typically a context cancel
	OnQuit func()
}

// NewModel creates a new TUI model
func NewModel(opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return &Model{
		spinner:          s,
		progress:         p,
		userID:           opts.UserID,
		mode:             opts.Mode,
		target:           opts.Target,
		idleCeiling:      opts.IdleCeiling,
		onQuit:           opts.OnQuit,
		sessionStartTime: time.Now(),
		now:              time.Now,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// ApplyProgress folds a progress report into the model
func (m *Model) ApplyProgress(p collector.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pages = p.Pages
	m.events = p.Events
	m.total = p.Total
	m.lastAdded = p.Added
	m.idle = p.Idle
	m.errors = p.ConsecutiveErrors
	m.cursor = p.Cursor
	m.backoff = nil

	m.recent = append(m.recent, p.Recent...)
	if len(m.recent) > maxRecent {
		m.recent = m.recent[len(m.recent)-maxRecent:]
	}
}

// ApplyBackoff records the wait the engine announced
func (m *Model) ApplyBackoff(b collector.Backoff) {
	m.mu.Lock()
	m.errors = b.ConsecutiveErrors
	m.backoff = &BackoffStatus{
		Outcome:           b.Outcome,
		Action:            b.Action,
		Wait:              b.Wait,
		Until:             m.now().Add(b.Wait),
		ConsecutiveErrors: b.ConsecutiveErrors,
		Diagnostic:        b.Diagnostic,
	}
	m.mu.Unlock()

	level := "WARN"
	if b.Action == retry.ActionAbort {
		level = "ERROR"
	}
	m.AddLogMessage(level, backoffLine(b))
}

// Finish stores the final result
func (m *Model) Finish(res *collector.Result) {
	m.mu.Lock()
	m.result = res
	m.total = len(res.Records)
	m.backoff = nil
	m.mu.Unlock()

	level := "SUCCESS"
	switch res.State {
	case collector.StateAborted:
		level = "ERROR"
	case collector.StateLimitReached, collector.StateIdleTimeout:
		level = "WARN"
	}
	msg := "Run finished: " + res.State.String()
	if res.Reason != "" {
		msg += " (" + res.Reason + ")"
	}
	m.AddLogMessage(level, msg)
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-maxLogMessages:]
	}
}

// Recent returns the most recently added followers, oldest first
func (m *Model) Recent() []models.FollowerRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.FollowerRecord, len(m.recent))
	copy(out, m.recent)
	return out
}

// Finished reports whether the run has ended
func (m *Model) Finished() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.result != nil
}

// Rate returns followers per minute since the model was created
func (m *Model) Rate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	elapsed := m.now().Sub(m.sessionStartTime).Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.total) / elapsed
}
