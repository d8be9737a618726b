package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"igfollowers/pkg/accumulator"
	"igfollowers/pkg/checkpoint"
	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/instagram"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/metrics"
	"igfollowers/pkg/models"
	"igfollowers/pkg/retry"
)

// ErrAlreadyStarted is returned when Run or Consume is called on a running engine
var ErrAlreadyStarted = errors.New("collection run already started")

const (
	reasonCancelled    = "cancelled"
	reasonTimeout      = "timeout"
	reasonSourceClosed = "event source closed"
)

// Checkpoint writes are throttled: a save happens once this many pages or
// this much time have passed since the last one, and again when the run
// stops short of finishing.
const (
	checkpointEveryPages  = 10
	checkpointMinInterval = 30 * time.Second
)

// Engine runs one follower collection. Build a new Engine for every run.
type Engine struct {
	opts       Options
	runID      string
	fetcher    Fetcher
	controller *retry.Controller
	acc        *accumulator.Accumulator

	logger      logger.Logger
	observers   []Observer
	checkpoints checkpoint.Store
	metrics     metrics.Recorder
	sleeper     Sleeper
	classify    Classifier
	rnd         retry.RandFunc
	now         func() time.Time

	mu    sync.Mutex
	state State

	mode        Mode
	cursor      string
	pages       int
	events      int
	idle        int
	consecutive int
	lastDiag    string
	startedAt   time.Time
	cpCreatedAt time.Time
	cpPages     int
	cpSavedAt   time.Time
}

// New validates opts and builds an engine. fetcher may be nil for passive runs.
func New(opts Options, fetcher Fetcher, options ...Option) (*Engine, error) {
	if opts.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if !instagram.IsValidUserID(opts.UserID) {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidUserID, opts.UserID)
	}
	if opts.MaxRecords < 0 {
		return nil, fmt.Errorf("max records cannot be negative")
	}
	if opts.IdleCeiling < 0 {
		return nil, fmt.Errorf("idle ceiling cannot be negative")
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backoff policy: %w", err)
	}

	e := &Engine{
		opts:     opts,
		runID:    uuid.New().String(),
		fetcher:  fetcher,
		acc:      accumulator.New(),
		logger:   logger.GetLogger(),
		metrics:  metrics.Nop{},
		sleeper:  SleeperFunc(retry.Wait),
		classify: passiveClassifier,
		now:      time.Now,
		state:    StateInit,
	}
	for _, opt := range options {
		opt(e)
	}
	e.controller = retry.NewController(opts.Policy, e.rnd)
	e.logger = e.logger.WithFields(map[string]interface{}{
		"run_id":  e.runID,
		"user_id": opts.UserID,
	})

	return e, nil
}

func passiveClassifier(status int, body []byte, now time.Time) models.PageResult {
	return instagram.Classify(status, body, nil, now)
}

// RunID identifies this run in logs and summaries
func (e *Engine) RunID() string {
	return e.runID
}

// State returns the current lifecycle state. Safe to call from any goroutine.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) begin(mode Mode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.state.Terminal():
		return errs.ErrRunFinished
	case e.state != StateInit:
		return ErrAlreadyStarted
	}
	e.state = StateRunning
	e.mode = mode
	e.startedAt = e.now()
	return nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout > 0 {
		return context.WithTimeout(ctx, e.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// Run collects followers by paginating through fetcher until a terminal state
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("active mode needs a fetcher")
	}
	if err := e.begin(ModeActive); err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	logger.LogComponentStart(e.logger, "collector", map[string]interface{}{
		"mode":         ModeActive,
		"max_records":  e.opts.MaxRecords,
		"idle_ceiling": e.opts.IdleCeiling,
	})
	e.resume(ctx)
	if e.limitReached() {
		return e.finish(ctx, StateLimitReached, e.limitReason(), false)
	}

	for {
		if reason, stop := interrupted(ctx); stop {
			return e.finish(ctx, StateAborted, reason, false)
		}

		page := e.fetcher.Fetch(ctx, e.opts.UserID, e.cursor)
		e.pages++

		// nothing from a page fetched after cancellation is applied
		if reason, stop := interrupted(ctx); stop {
			return e.finish(ctx, StateAborted, reason, false)
		}
		e.metrics.PageFetched(string(ModeActive), page.Outcome.String())

		decision := e.controller.Decide(page.Outcome, e.consecutive)
		e.consecutive = decision.ErrorCount

		switch decision.Action {
		case retry.ActionAbort:
			e.lastDiag = page.Diagnostic
			e.reportBackoff(page, decision)
			return e.finish(ctx, StateAborted, decision.Reason, decision.CredentialInvalid)

		case retry.ActionRetry:
			// same cursor next time
			e.lastDiag = page.Diagnostic
			e.reportBackoff(page, decision)
			if err := e.sleeper.Sleep(ctx, decision.Wait); err != nil {
				return e.finish(ctx, StateAborted, reasonFor(ctx, err), false)
			}
			continue
		}

		e.merge(page)

		if e.limitReached() {
			return e.finish(ctx, StateLimitReached, e.limitReason(), false)
		}
		// a missing cursor ends the list even when the page added nothing
		if !page.HasMore() || len(page.Records) == 0 {
			return e.finish(ctx, StateDone, "", false)
		}
		if e.idleExceeded() {
			return e.finish(ctx, StateIdleTimeout, e.idleReason(), false)
		}

		e.cursor = page.Cursor
		if e.checkpointDue() {
			e.saveCheckpoint(ctx)
		}

		if err := e.sleeper.Sleep(ctx, decision.Wait); err != nil {
			return e.finish(ctx, StateAborted, reasonFor(ctx, err), false)
		}
	}
}

// Consume collects followers from intercepted responses until events is
// closed, the idle ceiling is hit or ctx ends. The producer is never blocked
// by the engine beyond the channel's own buffering.
func (e *Engine) Consume(ctx context.Context, events <-chan models.Event) (*Result, error) {
	if events == nil {
		return nil, fmt.Errorf("passive mode needs an event source")
	}
	if err := e.begin(ModePassive); err != nil {
		return nil, err
	}
	if e.opts.IdleCeiling == 0 {
		e.opts.IdleCeiling = DefaultIdleCeiling
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	logger.LogComponentStart(e.logger, "collector", map[string]interface{}{
		"mode":         ModePassive,
		"max_records":  e.opts.MaxRecords,
		"idle_ceiling": e.opts.IdleCeiling,
	})

	for {
		var (
			ev models.Event
			ok bool
		)
		select {
		case <-ctx.Done():
			return e.finish(ctx, StateAborted, reasonFor(ctx, ctx.Err()), false)
		case ev, ok = <-events:
		}

		if !ok {
			return e.finish(ctx, StateIdleTimeout, reasonSourceClosed, false)
		}
		if reason, stop := interrupted(ctx); stop {
			return e.finish(ctx, StateAborted, reason, false)
		}

		e.events++
		at := ev.ReceivedAt
		if at.IsZero() {
			at = e.now()
		}
		page := e.classify(ev.Status, ev.Body, at)
		e.metrics.PageFetched(string(ModePassive), page.Outcome.String())

		decision := e.controller.Decide(page.Outcome, e.consecutive)
		e.consecutive = decision.ErrorCount

		switch decision.Action {
		case retry.ActionAbort:
			e.lastDiag = page.Diagnostic
			e.reportBackoff(page, decision)
			return e.finish(ctx, StateAborted, decision.Reason, decision.CredentialInvalid)

		case retry.ActionRetry:
			// the browser owns request pacing; a bad response only counts as idle
			e.lastDiag = page.Diagnostic
			decision.Wait = 0
			e.reportBackoff(page, decision)
			e.idle++
			if e.idle >= e.opts.IdleCeiling {
				return e.finish(ctx, StateIdleTimeout, e.idleReason(), false)
			}
			continue
		}

		e.merge(page)
		if e.limitReached() {
			return e.finish(ctx, StateLimitReached, e.limitReason(), false)
		}
		if e.idleExceeded() {
			return e.finish(ctx, StateIdleTimeout, e.idleReason(), false)
		}
	}
}

// merge applies one OK page and notifies observers
func (e *Engine) merge(page models.PageResult) {
	added := e.acc.Merge(page.Records)
	if added > 0 {
		e.idle = 0
	} else {
		e.idle++
	}
	e.metrics.RecordsAdded(string(e.mode), added)

	seq := e.pages
	if e.mode == ModePassive {
		seq = e.events
	}
	logger.LogPage(e.logger, e.opts.UserID, seq, len(page.Records), added, e.acc.Len(), page.Cursor)

	p := Progress{
		UserID:            e.opts.UserID,
		Mode:              e.mode,
		Pages:             e.pages,
		Events:            e.events,
		Received:          len(page.Records),
		Added:             added,
		Total:             e.acc.Len(),
		Idle:              e.idle,
		ConsecutiveErrors: e.consecutive,
		Cursor:            page.Cursor,
	}
	if len(e.observers) > 0 {
		p.Recent = e.acc.Last(added)
	}
	for _, o := range e.observers {
		o.OnProgress(p)
	}
}

// limitReached truncates the accumulator to MaxRecords once it is met
func (e *Engine) limitReached() bool {
	if e.opts.MaxRecords == 0 || e.acc.Len() < e.opts.MaxRecords {
		return false
	}
	e.acc.Truncate(e.opts.MaxRecords)
	return true
}

func (e *Engine) limitReason() string {
	return fmt.Sprintf("reached limit of %d followers", e.opts.MaxRecords)
}

func (e *Engine) idleExceeded() bool {
	return e.opts.IdleCeiling > 0 && e.idle >= e.opts.IdleCeiling
}

func (e *Engine) idleReason() string {
	unit := "pages"
	if e.mode == ModePassive {
		unit = "events"
	}
	return fmt.Sprintf("no new followers in %d consecutive %s", e.idle, unit)
}

func (e *Engine) reportBackoff(page models.PageResult, d retry.Decision) {
	if d.Action == retry.ActionRetry {
		e.metrics.Backoff(page.Outcome.String(), d.Wait)
		logger.LogBackoff(e.logger, page.Outcome.String(), d.Wait, d.ErrorCount)
	}

	b := Backoff{
		UserID:            e.opts.UserID,
		Mode:              e.mode,
		Outcome:           page.Outcome,
		Action:            d.Action,
		Wait:              d.Wait,
		ConsecutiveErrors: d.ErrorCount,
		Diagnostic:        page.Diagnostic,
	}
	for _, o := range e.observers {
		o.OnBackoff(b)
	}
}

// resume seeds the run from a stored checkpoint, if any
func (e *Engine) resume(ctx context.Context) {
	if e.checkpoints == nil {
		return
	}

	cp, err := e.checkpoints.Load(ctx, e.opts.UserID)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to load checkpoint, starting fresh")
		return
	}
	if cp == nil || cp.Cursor == "" {
		return
	}

	restored := e.acc.Seed(cp.Records)
	e.cursor = cp.Cursor
	e.pages = cp.Pages
	e.cpCreatedAt = cp.CreatedAt
	e.cpPages = cp.Pages
	e.cpSavedAt = e.now()

	e.logger.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
		"previous_run": cp.RunID,
		"records":      restored,
		"pages":        cp.Pages,
	})
}

func (e *Engine) checkpointDue() bool {
	if e.checkpoints == nil {
		return false
	}
	return e.pages-e.cpPages >= checkpointEveryPages || e.now().Sub(e.cpSavedAt) >= checkpointMinInterval
}

func (e *Engine) saveCheckpoint(ctx context.Context) {
	if e.checkpoints == nil {
		return
	}

	cp := &checkpoint.Checkpoint{
		RunID:     e.runID,
		UserID:    e.opts.UserID,
		Cursor:    e.cursor,
		Records:   e.acc.Records(),
		Pages:     e.pages,
		CreatedAt: e.cpCreatedAt,
	}
	if err := e.checkpoints.Save(ctx, cp); err != nil {
		e.logger.WithError(err).Warn("Failed to save checkpoint")
		return
	}
	e.cpCreatedAt = cp.CreatedAt
	e.cpPages = e.pages
	e.cpSavedAt = e.now()
}

// syncCheckpoint brings stored state in line with how an active run ended.
// Finished runs drop their checkpoint; interrupted ones flush unsaved pages.
func (e *Engine) syncCheckpoint(ctx context.Context, state State) {
	if e.checkpoints == nil || e.mode != ModeActive {
		return
	}

	// the run's own ctx may be spent; cleanup gets a fresh one
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	switch {
	case state == StateDone || state == StateLimitReached:
		if err := e.checkpoints.Delete(cleanupCtx, e.opts.UserID); err != nil {
			e.logger.WithError(err).Warn("Failed to delete checkpoint")
		}
	case e.cursor != "" && e.pages > e.cpPages:
		e.saveCheckpoint(cleanupCtx)
	}
}

func (e *Engine) finish(ctx context.Context, state State, reason string, credentialInvalid bool) (*Result, error) {
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()

	finished := e.now()
	result := &Result{
		RunID:             e.runID,
		UserID:            e.opts.UserID,
		Mode:              e.mode,
		State:             state,
		Reason:            reason,
		CredentialInvalid: credentialInvalid,
		LastDiagnostic:    e.lastDiag,
		Records:           e.acc.Records(),
		Pages:             e.pages,
		Events:            e.events,
		StartedAt:         e.startedAt,
		FinishedAt:        finished,
		Elapsed:           finished.Sub(e.startedAt),
	}

	e.syncCheckpoint(ctx, state)

	e.metrics.RunFinished(state.String())
	logger.LogRunSummary(e.logger, e.opts.UserID, state.String(), reason, len(result.Records), result.Elapsed)
	if state == StateAborted && e.lastDiag != "" {
		e.logger.DebugWithFields("Last response before abort", map[string]interface{}{
			"diagnostic": e.lastDiag,
		})
	}

	for _, o := range e.observers {
		o.OnFinish(result)
	}
	return result, nil
}

func interrupted(ctx context.Context) (string, bool) {
	if err := ctx.Err(); err != nil {
		return reasonFor(ctx, err), true
	}
	return "", false
}

func reasonFor(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return reasonTimeout
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return reasonCancelled
	}
	return err.Error()
}
