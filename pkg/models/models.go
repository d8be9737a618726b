package models

import "time"

// Outcome is the classification of a single page fetch or intercepted response
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRateLimited
	OutcomeAuthFailed
	OutcomeTransient
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeAuthFailed:
		return "auth_failed"
	case OutcomeTransient:
		return "transient_error"
	case OutcomeFatal:
		return "fatal_error"
	default:
		return "unknown"
	}
}

// FollowerRecord is one follower of the target account. PK is the identity key.
type FollowerRecord struct {
	PK            string    `json:"pk"`
	Username      string    `json:"username"`
	FullName      string    `json:"full_name"`
	IsPrivate     bool      `json:"is_private"`
	IsVerified    bool      `json:"is_verified"`
	ProfilePicURL string    `json:"profile_pic_url"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

// PageResult is what the fetcher hands back for one page
type PageResult struct {
	Outcome Outcome
	Records []FollowerRecord
	// Cursor is set only when the server announced another page
	Cursor     string
	Status     int
	Diagnostic string
}

// HasMore reports whether the server returned a continuation cursor
func (p PageResult) HasMore() bool {
	return p.Cursor != ""
}

// Event is a followers response observed by a passive transport
type Event struct {
	Body       []byte
	Status     int
	URL        string
	ReceivedAt time.Time
}
