package collector

import (
	"time"

	"igfollowers/pkg/models"
)

// Result is what a finished run hands to its caller
type Result struct {
	RunID  string
	UserID string
	Mode   Mode
	State  State
	Reason string
	// CredentialInvalid is set when the run aborted on an auth failure
	CredentialInvalid bool
	// LastDiagnostic is the raw text of the last non-OK response, if any
	LastDiagnostic string
	Records        []models.FollowerRecord
	Pages          int
	Events         int
	StartedAt      time.Time
	FinishedAt     time.Time
	Elapsed        time.Duration
}

// Summary is the persisted digest of a run
type Summary struct {
	RunID          string    `json:"run_id"`
	UserID         string    `json:"user_id"`
	Mode           Mode      `json:"mode"`
	TotalFollowers int       `json:"total_followers"`
	Pages          int       `json:"pages"`
	Events         int       `json:"events"`
	State          string    `json:"state"`
	Reason         string    `json:"reason,omitempty"`
	ElapsedMS      int64     `json:"elapsed_ms"`
	ScrapedAt      time.Time `json:"scraped_at"`
}

// Summary builds the digest of r
func (r *Result) Summary() Summary {
	return Summary{
		RunID:          r.RunID,
		UserID:         r.UserID,
		Mode:           r.Mode,
		TotalFollowers: len(r.Records),
		Pages:          r.Pages,
		Events:         r.Events,
		State:          r.State.String(),
		Reason:         r.Reason,
		ElapsedMS:      r.Elapsed.Milliseconds(),
		ScrapedAt:      r.FinishedAt,
	}
}

// Complete reports whether the run ended without an abort
func (r *Result) Complete() bool {
	return r.State != StateAborted
}
