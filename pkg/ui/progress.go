package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker keeps the running counts of a collection
type StatusTracker struct {
	Total     int
	Target    int
	Pages     int
	LastAdded int
	StartTime time.Time
	now       func() time.Time
}

// NewStatusTracker creates a tracker. target of 0 means no follower limit.
func NewStatusTracker(target int) *StatusTracker {
	return &StatusTracker{
		Target:    target,
		StartTime: time.Now(),
		now:       time.Now,
	}
}

// Page records one merged page
func (st *StatusTracker) Page(added, total int) {
	st.Pages++
	st.LastAdded = added
	st.Total = total
}

// GetProgressBar renders progress towards Target. Without a target the bar
// shows nothing but the count.
func (st *StatusTracker) GetProgressBar(width int) string {
	if st.Target <= 0 {
		return fmt.Sprintf("%d", st.Total)
	}

	progress := float64(st.Total) / float64(st.Target)
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, st.Total, st.Target)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return st.now().Sub(st.StartTime)
}

// GetRate returns followers per minute
func (st *StatusTracker) GetRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(st.Total) / elapsed
}

// SetTotal sets the count restored from a checkpoint
func (st *StatusTracker) SetTotal(total int) {
	st.Total = total
}
