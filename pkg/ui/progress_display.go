package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"igfollowers/pkg/collector"
	"igfollowers/pkg/retry"
)

// ProgressDisplay is a one-line progress display. It implements collector.Observer.
type ProgressDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	userID  string
	tracker *StatusTracker
	idle    int
	errors  int
	isDebug bool
}

// NewProgressDisplay creates a display writing to stdout
func NewProgressDisplay(userID string, target int, debug bool) *ProgressDisplay {
	return NewProgressDisplayTo(os.Stdout, userID, target, debug)
}

// NewProgressDisplayTo creates a display writing to out
func NewProgressDisplayTo(out io.Writer, userID string, target int, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:     out,
		userID:  userID,
		tracker: NewStatusTracker(target),
		isDebug: debug,
	}
}

// OnProgress redraws the status line
func (p *ProgressDisplay) OnProgress(pr collector.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.Page(pr.Added, pr.Total)
	p.idle = pr.Idle
	p.errors = pr.ConsecutiveErrors

	if p.isDebug {
		fmt.Fprintf(p.out, "%s page %d • +%d new • %d total • cursor %s\n",
			Magenta("→"), p.tracker.Pages, pr.Added, pr.Total, displayCursor(pr.Cursor))
		return
	}
	p.printProgress()
}

// OnBackoff prints the wait on its own line
func (p *ProgressDisplay) OnBackoff(b collector.Backoff) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.errors = b.ConsecutiveErrors
	if b.Action == retry.ActionAbort {
		return
	}

	fmt.Fprintf(p.out, "\n%s %s (%d in a row). Waiting %s...\n",
		Yellow("⚠"),
		strings.ReplaceAll(b.Outcome.String(), "_", " "),
		b.ConsecutiveErrors,
		formatDuration(b.Wait),
	)
}

// OnFinish prints the run summary
func (p *ProgressDisplay) OnFinish(res *collector.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	color := StateColor(res.State)
	fmt.Fprintf(p.out, "\n\n%s Collected %d followers of %s\n",
		color("●"),
		len(res.Records),
		p.userID,
	)

	rate := 0.0
	if res.Elapsed > 0 {
		rate = float64(len(res.Records)) / res.Elapsed.Minutes()
	}
	fmt.Fprintf(p.out, "  %s %s in %s (%.1f followers/min)\n",
		Dim("•"),
		color(res.State.String()),
		formatDuration(res.Elapsed),
		rate,
	)

	if res.Reason != "" {
		fmt.Fprintf(p.out, "  %s %s\n", Dim("•"), res.Reason)
	}
	if res.CredentialInvalid {
		fmt.Fprintf(p.out, "  %s %s\n", Dim("•"), Red("replace the credential with `igfollowers auth login`"))
	}
}

func (p *ProgressDisplay) printProgress() {
	line := fmt.Sprintf("\r%s %s • %d pages • +%d • %.1f/min",
		Cyan(p.userID),
		p.tracker.GetProgressBar(20),
		p.tracker.Pages,
		p.tracker.LastAdded,
		p.tracker.GetRate(),
	)

	if p.idle > 0 {
		line += fmt.Sprintf(" • %s", Yellow(fmt.Sprintf("idle %d", p.idle)))
	}
	if p.errors > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.errors)))
	}

	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

// SetTotal sets the count restored from a checkpoint
func (p *ProgressDisplay) SetTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracker.SetTotal(total)
}

func displayCursor(c string) string {
	if c == "" {
		return "-"
	}
	if len(c) > 12 {
		return c[:12] + "…"
	}
	return c
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
