package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igfollowers/internal/runner"
	"igfollowers/pkg/browser"
	"igfollowers/pkg/checkpoint"
	"igfollowers/pkg/collector"
	"igfollowers/pkg/config"
	"igfollowers/pkg/instagram"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/metrics"
	"igfollowers/pkg/ratelimit"
	"igfollowers/pkg/storage"
	"igfollowers/pkg/ui"
	"igfollowers/pkg/ui/tui"
)

var (
	collectMode        string
	collectMax         int
	collectIdle        int
	collectDelay       time.Duration
	collectTimeout     time.Duration
	collectWorkers     int
	collectAccount     string
	collectOutput      string
	collectFormat      string
	collectPostgresDSN string
	collectWebhook     string
	collectMetricsAddr string
	collectBackend     string
	collectNoResume    bool
	collectProfileURL  string
	collectHeadless    bool
	collectTUI         bool
	collectDebug       bool
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect [user-id...]",
	Short: "Collect the followers of one or more accounts",
	Long: `Collect the follower list of an account identified by its numeric user id.

Active mode pages through the followers endpoint using a stored credential
(see 'igfollowers auth login'). Several user ids are collected concurrently
with --workers. Passive mode opens --profile-url in Chrome, scrolls the
followers dialog and reads the responses the page loads; it handles one
account at a time.

Results are written to the output directory and, with --postgres-dsn, to
PostgreSQL. Runs that are interrupted keep everything collected so far.`,
	Example: `  # Collect every follower of one account
  igfollowers collect 1234567890

  # Stop after 5000 followers and write JSON lines
  igfollowers collect 1234567890 --max 5000 --format jsonl

  # Three accounts, two at a time
  igfollowers collect 111 222 333 --workers 2

  # Passive collection through a visible browser
  igfollowers collect 1234567890 --mode passive --headless=false \
    --profile-url https://www.instagram.com/someone/followers/`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	f := collectCmd.Flags()
	f.StringVarP(&collectMode, "mode", "m", "", "collection mode: active or passive")
	f.IntVar(&collectMax, "max", 0, "stop after this many followers (0 collects all)")
	f.IntVar(&collectIdle, "idle", 0, "stop after this many pages or events in a row add nothing new")
	f.DurationVar(&collectDelay, "delay", 0, "base delay between pages")
	f.DurationVar(&collectTimeout, "timeout", 0, "overall time limit for a run")
	f.IntVar(&collectWorkers, "workers", 0, "accounts collected concurrently in active mode")
	f.StringVarP(&collectAccount, "account", "a", "", "stored account to authenticate with")
	f.StringVarP(&collectOutput, "output", "o", "", "output directory")
	f.StringVar(&collectFormat, "format", "", "output format: json or jsonl")
	f.StringVar(&collectPostgresDSN, "postgres-dsn", "", "also store followers in PostgreSQL")
	f.StringVar(&collectWebhook, "webhook", "", "POST a summary to this URL when a run finishes")
	f.StringVar(&collectMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&collectBackend, "checkpoint-backend", "", "checkpoint backend: file or redis")
	f.BoolVar(&collectNoResume, "no-checkpoint", false, "do not resume from or write checkpoints")
	f.StringVar(&collectProfileURL, "profile-url", "", "followers page to open in passive mode")
	f.BoolVar(&collectHeadless, "headless", true, "run the passive mode browser headless")
	f.BoolVar(&collectTUI, "tui", false, "use the interactive terminal UI")
	f.BoolVar(&collectDebug, "debug", false, "print one line per page instead of a progress bar")
}

// collectFlags returns only the flags the user set
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, v interface{}) {
		if cmd.Flags().Changed(name) {
			flags[name] = v
		}
	}
	set("mode", collectMode)
	set("max", collectMax)
	set("idle", collectIdle)
	set("delay", collectDelay)
	set("timeout", collectTimeout)
	set("workers", collectWorkers)
	set("account", collectAccount)
	set("output", collectOutput)
	set("format", collectFormat)
	set("postgres-dsn", collectPostgresDSN)
	set("webhook", collectWebhook)
	set("metrics-addr", collectMetricsAddr)
	set("checkpoint-backend", collectBackend)
	set("no-checkpoint", collectNoResume)
	set("profile-url", collectProfileURL)
	set("headless", collectHeadless)
	return flags
}

// collectEnv is everything a run needs besides its target
type collectEnv struct {
	cfg         *config.Config
	log         logger.Logger
	cred        instagram.Credential
	userAgent   string
	limiter     ratelimit.Limiter
	checkpoints checkpoint.Store
	files       *storage.FileSink
	sink        storage.Sink
	metrics     metrics.Recorder
	observers   []collector.Observer
}

func (env *collectEnv) engineOptions(mode collector.Mode, extra ...collector.Observer) []collector.Option {
	opts := []collector.Option{
		collector.WithLogger(env.log),
		collector.WithMetrics(env.metrics),
		collector.WithObserver(env.observers...),
		collector.WithObserver(extra...),
	}
	// checkpoints belong to active runs only
	if env.checkpoints != nil && mode == collector.ModeActive {
		opts = append(opts, collector.WithCheckpoint(env.checkpoints))
	}
	return opts
}

func (env *collectEnv) runOptions(userID string) collector.Options {
	opts := collector.OptionsFromConfig(&env.cfg.Collection)
	opts.UserID = userID
	return opts
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(collectFlags(cmd))
	if err != nil {
		return err
	}

	userIDs := targets(args, cfg.Collection.UserID)
	if len(userIDs) == 0 {
		return fmt.Errorf("no user id given: pass one as an argument or set collection.user_id")
	}
	for _, id := range userIDs {
		if !instagram.IsValidUserID(id) {
			return fmt.Errorf("%q is not a numeric user id", id)
		}
	}
	passive := strings.EqualFold(cfg.Collection.Mode, string(collector.ModePassive))
	if passive && len(userIDs) > 1 {
		return fmt.Errorf("passive mode collects one account at a time")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := &collectEnv{cfg: cfg, log: log, limiter: newLimiter(cfg)}

	env.cred, env.userAgent, err = resolveCredential(cfg)
	if err != nil {
		return err
	}

	env.metrics, err = startMetrics(ctx, cfg, log)
	if err != nil {
		return err
	}

	var closeStore func()
	env.checkpoints, closeStore, err = openCheckpoints(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var closeSinks func()
	env.files, env.sink, closeSinks, err = openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	if cfg.Notifications.Enabled {
		env.observers = append(env.observers, ui.NewNotifier(cfg.Notifications.Desktop))
	}
	if wh := ui.NewWebhookNotifier(cfg.Notifications.WebhookURL, cfg.Notifications.WebhookTimeout, log); wh != nil {
		env.observers = append(env.observers, wh)
	}

	log.InfoWithFields("Starting collection", map[string]interface{}{
		"user_ids": userIDs,
		"mode":     cfg.Collection.Mode,
	})

	if len(userIDs) > 1 {
		return collectMany(ctx, env, userIDs)
	}

	var res *collector.Result
	if passive {
		res, err = collectPassive(ctx, env, userIDs[0])
	} else {
		res, err = collectActive(ctx, env, userIDs[0])
	}
	if err != nil {
		return err
	}
	return finishRun(env, res)
}

// targets merges positional ids with the configured one, dropping duplicates
func targets(args []string, configured string) []string {
	if len(args) == 0 && configured != "" {
		args = []string{configured}
	}
	seen := make(map[string]bool)
	var out []string
	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

func collectActive(ctx context.Context, env *collectEnv, userID string) (*collector.Result, error) {
	client := instagram.NewClient(clientOptions(env.cfg, env.userAgent, env.limiter), env.cred, env.log)
	return runWithDisplay(ctx, env, userID, collector.ModeActive, func(ctx context.Context, obs ...collector.Observer) (*collector.Result, error) {
		engine, err := collector.New(env.runOptions(userID), client, env.engineOptions(collector.ModeActive, obs...)...)
		if err != nil {
			return nil, err
		}
		return engine.Run(ctx)
	})
}

func collectPassive(ctx context.Context, env *collectEnv, userID string) (*collector.Result, error) {
	bc := env.cfg.Browser
	if bc.ProfileURL == "" {
		return nil, fmt.Errorf("passive mode needs --profile-url, e.g. %s", instagram.GetFollowersPageURL("username"))
	}

	return runWithDisplay(ctx, env, userID, collector.ModePassive, func(ctx context.Context, obs ...collector.Observer) (*collector.Result, error) {
		engine, err := collector.New(env.runOptions(userID), nil, env.engineOptions(collector.ModePassive, obs...)...)
		if err != nil {
			return nil, err
		}

		ic := browser.NewInterceptor(bc.EventBuffer, env.metrics, env.log)
		ic.SetUserID(userID)
		session := browser.NewSession(browser.Options{
			Headless:       bc.Headless,
			UserDataDir:    bc.UserDataDir,
			UserAgent:      env.userAgent,
			ProfileURL:     bc.ProfileURL,
			ScrollInterval: bc.ScrollInterval,
			MaxScrolls:     bc.MaxScrolls,
		}, env.cred, ic, env.log)

		sessionCtx, stopSession := context.WithCancel(ctx)
		defer stopSession()
		sessionErr := make(chan error, 1)
		go func() {
			sessionErr <- session.Run(sessionCtx)
		}()

		res, err := engine.Consume(ctx, ic.Events())
		stopSession()
		if serr := <-sessionErr; serr != nil {
			env.log.WithError(serr).Error("Browser session failed")
			if res != nil && res.Events == 0 {
				return res, serr
			}
		}
		if dropped := ic.Dropped(); dropped > 0 {
			env.log.WithField("dropped", dropped).Warn("Some intercepted responses were dropped")
		}
		return res, err
	})
}

type runFunc func(ctx context.Context, obs ...collector.Observer) (*collector.Result, error)

// runWithDisplay runs fn with a progress line or the TUI attached
func runWithDisplay(ctx context.Context, env *collectEnv, userID string, mode collector.Mode, fn runFunc) (*collector.Result, error) {
	target := env.cfg.Collection.MaxFollowers

	if !collectTUI {
		if quiet {
			return fn(ctx)
		}
		ui.PrintInfo("Target", userID)
		ui.PrintInfo("Mode", string(mode))
		return fn(ctx, ui.NewProgressDisplay(userID, target, collectDebug))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	idle := env.cfg.Collection.IdleCeiling
	if mode == collector.ModePassive && idle == 0 {
		idle = collector.DefaultIdleCeiling
	}
	t := tui.NewTUI(tui.Options{
		UserID:      userID,
		Mode:        mode,
		Target:      target,
		IdleCeiling: idle,
		OnQuit:      cancel,
	})

	type outcome struct {
		res *collector.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		t.LogInfo("Collecting followers of %s", userID)
		res, err := fn(ctx, t)
		if err != nil {
			t.LogError("%v", err)
		}
		done <- outcome{res, err}
	}()

	if err := t.Start(); err != nil {
		cancel()
		env.log.WithError(err).Warn("Terminal UI failed")
	}
	out := <-done
	return out.res, out.err
}

// finishRun stores the result, including partial results of aborted runs
func finishRun(env *collectEnv, res *collector.Result) error {
	// the signal context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := env.sink.Write(ctx, res); err != nil {
		return fmt.Errorf("failed to save followers: %w", err)
	}

	logger.LogRunSummary(env.log, res.UserID, res.State.String(), res.Reason, len(res.Records), res.Elapsed)
	if !quiet {
		ui.PrintInfo("Followers", env.files.FollowersPath(res.UserID))
		ui.PrintInfo("Summary", env.files.SummaryPath(res.UserID))
	}

	if res.CredentialInvalid {
		return fmt.Errorf("credential rejected: %s (run 'igfollowers auth login')", res.Reason)
	}
	if !res.Complete() {
		return fmt.Errorf("run aborted after %d followers: %s", len(res.Records), res.Reason)
	}
	return nil
}

// collectMany runs one active engine per account through the runner pool
func collectMany(ctx context.Context, env *collectEnv, userIDs []string) error {
	build := func(job runner.Job) (runner.Collector, error) {
		client := instagram.NewClient(clientOptions(env.cfg, env.userAgent, env.limiter), env.cred,
			env.log.WithField("user_id", job.UserID))
		engine, err := collector.New(env.runOptions(job.UserID), client, env.engineOptions(collector.ModeActive)...)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}

	pool := runner.NewPool(ctx, env.cfg.Collection.Workers, build, env.sink, nil, env.log)
	pool.Start()
	env.log.InfoWithFields("Collecting accounts", map[string]interface{}{
		"accounts": len(userIDs),
		"workers":  pool.GetActiveWorkers(),
	})

	go func() {
		for _, id := range userIDs {
			if err := pool.Submit(runner.Job{UserID: id}); err != nil {
				env.log.WithError(err).WithField("user_id", id).Warn("Job not submitted")
				break
			}
		}
		pool.Stop()
	}()

	failed := 0
	for r := range pool.Results() {
		if !r.Success() {
			failed++
		}
		if quiet {
			continue
		}
		switch {
		case r.Run == nil:
			ui.PrintError(r.Job.UserID, r.Error)
		case r.Error != nil:
			ui.PrintWarning(fmt.Sprintf("%s: %d followers, not saved", r.Job.UserID, len(r.Run.Records)), r.Error)
		default:
			_, msg := ui.RunMessage(r.Run)
			ui.PrintInfo(ui.StateColor(r.Run.State)(r.Run.State.String()), msg)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d collections did not complete", failed, len(userIDs))
	}
	ui.PrintSuccess(fmt.Sprintf("Collected followers of %d accounts", len(userIDs)))
	return nil
}
