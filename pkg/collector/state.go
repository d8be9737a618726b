package collector

import (
	"time"

	"igfollowers/pkg/models"
	"igfollowers/pkg/retry"
)

// State is the lifecycle of one collection run
type State int

const (
	StateInit State = iota
	StateRunning
	StateDone
	StateLimitReached
	StateIdleTimeout
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateLimitReached:
		return "limit_reached"
	case StateIdleTimeout:
		return "idle_timeout"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a run
func (s State) Terminal() bool {
	return s >= StateDone
}

// MarshalText lets State appear as its name in JSON and YAML
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode selects how pages reach the engine
type Mode string

const (
	// ModeActive paginates the followers endpoint directly
	ModeActive Mode = "active"
	// ModePassive consumes responses intercepted from a browser session
	ModePassive Mode = "passive"
)

// Progress is reported to observers after every merged page or event
type Progress struct {
	UserID            string
	Mode              Mode
	Pages             int
	Events            int
	Received          int
	Added             int
	Total             int
	Idle              int
	ConsecutiveErrors int
	Cursor            string
	// Recent holds the records this page added
	Recent []models.FollowerRecord
}

// Backoff is reported when a page or event did not come back OK
type Backoff struct {
	UserID            string
	Mode              Mode
	Outcome           models.Outcome
	Action            retry.Action
	Wait              time.Duration
	ConsecutiveErrors int
	Diagnostic        string
}

// Observer receives progress callbacks on the engine's goroutine. Implementations must return quickly.
type Observer interface {
	OnProgress(p Progress)
	OnBackoff(b Backoff)
	OnFinish(r *Result)
}
