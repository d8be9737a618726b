package collector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfollowers/internal/testutil"
	"igfollowers/pkg/checkpoint"
	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/instagram"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/models"
	"igfollowers/pkg/retry"
)

const testUserID = "123456789"

type scriptedFetcher struct {
	mu      sync.Mutex
	pages   []models.PageResult
	cursors []string
}

func newFetcher(pages ...models.PageResult) *scriptedFetcher {
	return &scriptedFetcher{pages: pages}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, userID, cursor string) models.PageResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, cursor)
	if len(f.pages) == 0 {
		return models.PageResult{Outcome: models.OutcomeFatal, Diagnostic: "script exhausted"}
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p
}

func (f *scriptedFetcher) Cursors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cursors...)
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

type recordingObserver struct {
	mu       sync.Mutex
	progress []Progress
	backoffs []Backoff
	finished []*Result
}

func (o *recordingObserver) OnProgress(p Progress) {
	o.mu.Lock()
	o.progress = append(o.progress, p)
	o.mu.Unlock()
}

func (o *recordingObserver) OnBackoff(b Backoff) {
	o.mu.Lock()
	o.backoffs = append(o.backoffs, b)
	o.mu.Unlock()
}

func (o *recordingObserver) OnFinish(r *Result) {
	o.mu.Lock()
	o.finished = append(o.finished, r)
	o.mu.Unlock()
}

func records(pks ...string) []models.FollowerRecord {
	out := make([]models.FollowerRecord, len(pks))
	for i, pk := range pks {
		out[i] = models.FollowerRecord{PK: pk, Username: "user_" + pk}
	}
	return out
}

func ok(cursor string, pks ...string) models.PageResult {
	return models.PageResult{Outcome: models.OutcomeOK, Records: records(pks...), Cursor: cursor, Status: 200}
}

func rateLimited() models.PageResult {
	return models.PageResult{Outcome: models.OutcomeRateLimited, Status: 429, Diagnostic: "Please wait a few minutes"}
}

func transient() models.PageResult {
	return models.PageResult{Outcome: models.OutcomeTransient, Status: 500, Diagnostic: "server error"}
}

func authFailed() models.PageResult {
	return models.PageResult{Outcome: models.OutcomeAuthFailed, Status: 401, Diagnostic: "login_required"}
}

func pksOf(recs []models.FollowerRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.PK
	}
	return out
}

func testOptions() Options {
	return Options{UserID: testUserID, Policy: retry.DefaultPolicy()}
}

func newTestEngine(t *testing.T, opts Options, f Fetcher, extra ...Option) (*Engine, *recordingSleeper, *logger.TestLogger) {
	t.Helper()
	sleeper := &recordingSleeper{}
	log := logger.NewTestLogger()
	options := append([]Option{
		WithSleeper(sleeper),
		WithLogger(log),
		WithRand(func() float64 { return 0.5 }),
	}, extra...)
	e, err := New(opts, f, options...)
	require.NoError(t, err)
	return e, sleeper, log
}

func TestRunExamplePagesEndsDone(t *testing.T) {
	f := newFetcher(
		ok("a", "1", "2", "3"),
		ok("b", "3", "4", "5"),
		ok("", "6"),
	)
	e, sleeper, _ := newTestEngine(t, testOptions(), f)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, pksOf(res.Records))
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, []string{"", "a", "b"}, f.Cursors())
	// one paced wait between each pair of pages
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeper.Waits())
	assert.Equal(t, StateDone, e.State())
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Reason)
}

func TestRunRateLimitRetriesSameCursor(t *testing.T) {
	f := newFetcher(
		ok("a", "1", "2"),
		rateLimited(),
		rateLimited(),
		ok("", "3"),
	)
	obs := &recordingObserver{}
	e, sleeper, _ := newTestEngine(t, testOptions(), f, WithObserver(obs))

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"", "a", "a", "a"}, f.Cursors())
	assert.Equal(t, []time.Duration{2 * time.Second, 20 * time.Second, 35 * time.Second}, sleeper.Waits())

	require.Len(t, obs.backoffs, 2)
	assert.Equal(t, 1, obs.backoffs[0].ConsecutiveErrors)
	assert.Equal(t, 2, obs.backoffs[1].ConsecutiveErrors)
	require.Len(t, obs.progress, 2)
	assert.Equal(t, 0, obs.progress[1].ConsecutiveErrors)
	assert.Equal(t, []string{"3"}, pksOf(obs.progress[1].Recent))
	require.Len(t, obs.finished, 1)
	assert.Same(t, res, obs.finished[0])
}

func TestRunAuthFailureAlwaysAborts(t *testing.T) {
	scripts := map[string][]models.PageResult{
		"first page":        {authFailed()},
		"after ok page":     {ok("a", "1", "2"), authFailed()},
		"after rate limit":  {ok("a", "1"), rateLimited(), authFailed()},
		"after transients":  {transient(), transient(), authFailed()},
		"after mixed retry": {rateLimited(), transient(), authFailed()},
	}

	for name, script := range scripts {
		t.Run(name, func(t *testing.T) {
			f := newFetcher(script...)
			e, _, log := newTestEngine(t, testOptions(), f)

			res, err := e.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, StateAborted, res.State)
			assert.True(t, res.CredentialInvalid)
			assert.Contains(t, res.Reason, "must be replaced")
			assert.Equal(t, "login_required", res.LastDiagnostic)
			assert.Len(t, f.Cursors(), len(script))
			assert.True(t, log.HasMessage("Collection aborted"))
		})
	}
}

func TestRunThreeTransientsAbort(t *testing.T) {
	f := newFetcher(ok("a", "1"), transient(), transient(), transient(), ok("", "2"))
	e, sleeper, _ := newTestEngine(t, testOptions(), f)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateAborted, res.State)
	assert.False(t, res.CredentialInvalid)
	assert.Contains(t, res.Reason, "transient")
	assert.Equal(t, []string{"1"}, pksOf(res.Records))
	assert.Equal(t, []string{"", "a", "a", "a"}, f.Cursors())
	assert.Len(t, sleeper.Waits(), 3)
}

func TestRunTwoTransientsThenOKResets(t *testing.T) {
	f := newFetcher(
		transient(), transient(), ok("a", "1"),
		transient(), transient(), ok("", "2"),
	)
	e, sleeper, _ := newTestEngine(t, testOptions(), f)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"1", "2"}, pksOf(res.Records))
	assert.Equal(t, []string{"", "", "", "a", "a", "a"}, f.Cursors())
	for _, w := range sleeper.Waits() {
		assert.True(t, w == 2*time.Second || w == 7500*time.Millisecond, "unexpected wait %v", w)
	}
}

func TestRunLimitTruncatesInArrivalOrder(t *testing.T) {
	f := newFetcher(
		ok("a", "1", "2", "3"),
		ok("b", "4", "5", "6"),
		ok("", "7", "8", "9"),
	)
	opts := testOptions()
	opts.MaxRecords = 5
	e, _, _ := newTestEngine(t, opts, f)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateLimitReached, res.State)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, pksOf(res.Records))
	assert.Len(t, f.Cursors(), 2)
	assert.Contains(t, res.Reason, "5")
}

func TestRunLimitExactlyMet(t *testing.T) {
	f := newFetcher(ok("a", "1", "2"), ok("b", "3"))
	opts := testOptions()
	opts.MaxRecords = 3
	e, _, _ := newTestEngine(t, opts, f)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateLimitReached, res.State)
	assert.Len(t, res.Records, 3)
}

func TestRunDedupAcrossRandomPages(t *testing.T) {
	const distinct = 120
	rnd := rand.New(rand.NewSource(7))

	var stream []string
	for i := 0; i < distinct; i++ {
		for c := 1 + rnd.Intn(3); c > 0; c-- {
			stream = append(stream, fmt.Sprintf("%d", 1000+i))
		}
	}
	rnd.Shuffle(len(stream), func(i, j int) { stream[i], stream[j] = stream[j], stream[i] })

	var pages []models.PageResult
	for i := 0; len(stream) > 0; i++ {
		n := 1 + rnd.Intn(25)
		if n > len(stream) {
			n = len(stream)
		}
		cursor := fmt.Sprintf("c%d", i)
		if n == len(stream) {
			cursor = ""
		}
		pages = append(pages, ok(cursor, stream[:n]...))
		stream = stream[n:]
	}

	e, _, _ := newTestEngine(t, testOptions(), newFetcher(pages...))
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Len(t, res.Records, distinct)
	assert.Equal(t, len(pages), res.Pages)
}

func TestRunEmptyOKPageEndsDone(t *testing.T) {
	f := newFetcher(ok("a", "1"), ok("b"))
	e, _, _ := newTestEngine(t, testOptions(), f)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Len(t, f.Cursors(), 2)
}

func TestRunActiveIdleCeiling(t *testing.T) {
	f := newFetcher(ok("a", "1", "2"), ok("b", "2"), ok("c", "1"), ok("", "3"))
	opts := testOptions()
	opts.IdleCeiling = 2
	e, _, _ := newTestEngine(t, opts, f)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateIdleTimeout, res.State)
	assert.Equal(t, []string{"1", "2"}, pksOf(res.Records))
	assert.Contains(t, res.Reason, "2 consecutive pages")
}

func TestRunLastPageWithoutNewRecordsEndsDone(t *testing.T) {
	f := newFetcher(ok("1", "a"), ok("", "a"))
	opts := testOptions()
	opts.IdleCeiling = 1
	e, _, _ := newTestEngine(t, opts, f)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Empty(t, res.Reason)
	assert.Equal(t, []string{"a"}, pksOf(res.Records))
}

func TestRunCancelledDuringWaitKeepsRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFetcher(ok("a", "1", "2"), ok("", "3"))
	sleeper := SleeperFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})
	e, err := New(testOptions(), f, WithSleeper(sleeper), WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)

	res, err := e.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, "cancelled", res.Reason)
	assert.Equal(t, []string{"1", "2"}, pksOf(res.Records))
	assert.Len(t, f.Cursors(), 1)
}

func TestRunCancelledDuringFetchDiscardsPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := FetcherFunc(func(ctx context.Context, userID, cursor string) models.PageResult {
		cancel()
		return ok("a", "1")
	})
	e, _, _ := newTestEngine(t, testOptions(), f)

	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, "cancelled", res.Reason)
	assert.Empty(t, res.Records)
}

func TestRunTimeout(t *testing.T) {
	f := FetcherFunc(func(ctx context.Context, userID, cursor string) models.PageResult {
		<-ctx.Done()
		return models.PageResult{Outcome: models.OutcomeTransient, Diagnostic: ctx.Err().Error()}
	})
	opts := testOptions()
	opts.Timeout = 20 * time.Millisecond
	e, _, _ := newTestEngine(t, opts, f)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, "timeout", res.Reason)
}

func TestRunFatalAborts(t *testing.T) {
	f := newFetcher(models.PageResult{Outcome: models.OutcomeFatal, Diagnostic: "bad request"})
	e, _, _ := newTestEngine(t, testOptions(), f)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAborted, res.State)
	assert.False(t, res.CredentialInvalid)
}

func TestEngineServesOneRun(t *testing.T) {
	e, _, _ := newTestEngine(t, testOptions(), newFetcher(ok("", "1")))

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	assert.ErrorIs(t, err, errs.ErrRunFinished)

	_, err = e.Consume(context.Background(), make(chan models.Event))
	assert.ErrorIs(t, err, errs.ErrRunFinished)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{Policy: retry.DefaultPolicy()}, nil)
	assert.Error(t, err)

	_, err = New(Options{UserID: "not-a-number", Policy: retry.DefaultPolicy()}, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidUserID)

	bad := testOptions()
	bad.Policy.Jitter = 2
	_, err = New(bad, nil)
	assert.Error(t, err)

	bad = testOptions()
	bad.MaxRecords = -1
	_, err = New(bad, nil)
	assert.Error(t, err)
}

func TestRunWithoutFetcher(t *testing.T) {
	e, _, _ := newTestEngine(t, testOptions(), nil)
	_, err := e.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateInit, e.State())
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)

	first := newFetcher(ok("a", "1", "2", "3"), authFailed())
	e1, _, _ := newTestEngine(t, testOptions(), first, WithCheckpoint(store))
	res1, err := e1.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, StateAborted, res1.State)

	cp, err := store.Load(ctx, testUserID)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "a", cp.Cursor)
	assert.Len(t, cp.Records, 3)

	second := newFetcher(ok("", "3", "4"))
	obs := &recordingObserver{}
	e2, _, _ := newTestEngine(t, testOptions(), second, WithCheckpoint(store), WithObserver(obs))
	res2, err := e2.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, StateDone, res2.State)
	assert.Equal(t, []string{"a"}, second.Cursors())
	assert.Equal(t, []string{"1", "2", "3", "4"}, pksOf(res2.Records))
	require.Len(t, obs.progress, 1)
	assert.Equal(t, 1, obs.progress[0].Added)

	exists, err := store.Exists(ctx, testUserID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunResumedAtLimitSkipsFetch(t *testing.T) {
	ctx := context.Background()
	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &checkpoint.Checkpoint{
		UserID:  testUserID,
		Cursor:  "next",
		Records: records("1", "2"),
		Pages:   1,
	}))

	f := newFetcher(ok("", "3"))
	opts := testOptions()
	opts.MaxRecords = 2
	e, _, _ := newTestEngine(t, opts, f, WithCheckpoint(store))

	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateLimitReached, res.State)
	assert.Empty(t, f.Cursors())
	assert.Equal(t, []string{"1", "2"}, pksOf(res.Records))
}

// memoryStore counts saves and keeps the latest checkpoint
type memoryStore struct {
	mu      sync.Mutex
	saves   int
	deletes int
	last    *checkpoint.Checkpoint
}

func (m *memoryStore) Load(ctx context.Context, userID string) (*checkpoint.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, nil
}

func (m *memoryStore) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.last = cp
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	m.last = nil
	return nil
}

func (m *memoryStore) Exists(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last != nil, nil
}

func pagesOf(n int, last models.PageResult) []models.PageResult {
	pages := make([]models.PageResult, 0, n+1)
	for i := 1; i <= n; i++ {
		pages = append(pages, ok(fmt.Sprintf("c%d", i), fmt.Sprint(i)))
	}
	return append(pages, last)
}

func TestCheckpointSavesAreThrottled(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &memoryStore{}
	f := newFetcher(pagesOf(24, ok("", "25"))...)
	e, _, _ := newTestEngine(t, testOptions(), f, WithCheckpoint(store), WithClock(func() time.Time { return fixed }))

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Len(t, res.Records, 25)
	// pages 1, 11 and 21
	assert.Equal(t, 3, store.saves)
	assert.Equal(t, 1, store.deletes)
}

func TestCheckpointSavedAfterInterval(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(20 * time.Second)
		return now
	}
	store := &memoryStore{}
	f := newFetcher(pagesOf(4, authFailed())...)
	e, _, _ := newTestEngine(t, testOptions(), f, WithCheckpoint(store), WithClock(clock))

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAborted, res.State)
	assert.GreaterOrEqual(t, store.saves, 3)
	require.NotNil(t, store.last)
	assert.Equal(t, "c4", store.last.Cursor)
}

func TestCheckpointFlushedWhenRunStopsShort(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &memoryStore{}
	f := newFetcher(pagesOf(3, authFailed())...)
	e, _, _ := newTestEngine(t, testOptions(), f, WithCheckpoint(store), WithClock(func() time.Time { return fixed }))

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAborted, res.State)
	// page 1, then the flush on abort
	assert.Equal(t, 2, store.saves)
	assert.Zero(t, store.deletes)
	require.NotNil(t, store.last)
	assert.Equal(t, "c3", store.last.Cursor)
	assert.Len(t, store.last.Records, 3)
}

type failingStore struct{}

func (failingStore) Load(ctx context.Context, userID string) (*checkpoint.Checkpoint, error) {
	return nil, errors.New("load failed")
}
func (failingStore) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	return errors.New("save failed")
}
func (failingStore) Delete(ctx context.Context, userID string) error { return errors.New("delete failed") }
func (failingStore) Exists(ctx context.Context, userID string) (bool, error) {
	return false, errors.New("exists failed")
}

func TestCheckpointFailuresDoNotFailRun(t *testing.T) {
	f := newFetcher(ok("a", "1"), ok("", "2"))
	e, _, log := newTestEngine(t, testOptions(), f, WithCheckpoint(failingStore{}))

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.True(t, log.HasMessage("Failed to save checkpoint"))
	assert.True(t, log.HasMessage("Failed to delete checkpoint"))
}

func TestRunAgainstFollowerServer(t *testing.T) {
	srv := testutil.NewFollowerServer(
		testutil.Page(testutil.Keys(1, 3), "QVFA"),
		testutil.PleaseWait(),
		testutil.Page(testutil.Keys(3, 3), ""),
	)
	defer srv.Close()

	client := instagram.NewClient(instagram.ClientOptions{BaseURL: srv.URL()},
		instagram.Credential{Token: "abc"}, logger.NewNopLogger())

	e, sleeper, _ := newTestEngine(t, testOptions(), client)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, pksOf(res.Records))

	reqs := srv.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "", reqs[0].Cursor)
	assert.Equal(t, "QVFA", reqs[1].Cursor)
	assert.Equal(t, "QVFA", reqs[2].Cursor)
	assert.Equal(t, []time.Duration{2 * time.Second, 20 * time.Second}, sleeper.Waits())
}

func TestRunAgainstFollowerServerLoginRequired(t *testing.T) {
	srv := testutil.NewFollowerServer(testutil.LoginRequired())
	defer srv.Close()

	client := instagram.NewClient(instagram.ClientOptions{BaseURL: srv.URL()},
		instagram.Credential{Token: "expired"}, logger.NewNopLogger())

	e, _, _ := newTestEngine(t, testOptions(), client)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateAborted, res.State)
	assert.True(t, res.CredentialInvalid)
	assert.Len(t, srv.Requests(), 1)
}

func TestResultSummary(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	res := &Result{
		RunID:      "r",
		UserID:     testUserID,
		Mode:       ModeActive,
		State:      StateLimitReached,
		Reason:     "reached limit of 2 followers",
		Records:    records("1", "2"),
		Pages:      1,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Elapsed:    1500 * time.Millisecond,
	}

	s := res.Summary()
	assert.Equal(t, 2, s.TotalFollowers)
	assert.Equal(t, "limit_reached", s.State)
	assert.Equal(t, int64(1500), s.ElapsedMS)
	assert.Equal(t, res.FinishedAt, s.ScrapedAt)
	assert.True(t, res.Complete())
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "init", StateInit.String())
	assert.Equal(t, "idle_timeout", StateIdleTimeout.String())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateAborted.Terminal())
	text, err := StateDone.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "done", string(text))
}
