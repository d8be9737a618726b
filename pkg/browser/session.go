package browser

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"igfollowers/pkg/instagram"
	"igfollowers/pkg/logger"
)

// ErrNoBrowser is returned when no Chrome or Chromium binary can be found
var ErrNoBrowser = errors.New("no suitable browser found for automation")

// scrollScript scrolls the followers dialog, or the page when no dialog is open
const scrollScript = `(() => {
	const dialog = document.querySelector('div[role="dialog"]');
	let el = document.scrollingElement;
	if (dialog) {
		for (const d of dialog.querySelectorAll('div')) {
			if (d.scrollHeight > d.clientHeight + 10) { el = d; break; }
		}
	}
	el.scrollTop = el.scrollHeight;
	return el.scrollTop;
})()`

// Options configures a browser session
type Options struct {
	Headless       bool
	ExecPath       string
	UserDataDir    string
	UserAgent      string
	ProfileURL     string
	ScrollInterval time.Duration
	MaxScrolls     int
}

func (o Options) withDefaults() Options {
	if o.ScrollInterval <= 0 {
		o.ScrollInterval = 1500 * time.Millisecond
	}
	if o.MaxScrolls <= 0 {
		o.MaxScrolls = 500
	}
	return o
}

// Session drives a Chrome tab on a followers page and feeds every followers
// response it observes into an Interceptor
type Session struct {
	opts        Options
	cred        instagram.Credential
	interceptor *Interceptor
	logger      logger.Logger
}

// NewSession creates a session. Nothing is launched until Run.
func NewSession(opts Options, cred instagram.Credential, ic *Interceptor, log logger.Logger) *Session {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Session{
		opts:        opts.withDefaults(),
		cred:        cred,
		interceptor: ic,
		logger:      log.WithField("component", "browser"),
	}
}

// Run opens the profile, scrolls the followers list until MaxScrolls or ctx
// is done, then closes the interceptor. Cancellation is not an error.
func (s *Session) Run(ctx context.Context) error {
	defer s.interceptor.Close()

	if s.opts.ProfileURL == "" {
		return fmt.Errorf("browser: profile url is required")
	}
	if s.opts.ExecPath == "" && !isChromeAvailable() {
		return ErrNoBrowser
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, s.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			s.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer cancelTab()

	s.listen(tabCtx)

	logger.LogComponentStart(s.logger, "browser", map[string]interface{}{
		"profile_url": s.opts.ProfileURL,
		"headless":    s.opts.Headless,
		"max_scrolls": s.opts.MaxScrolls,
	})

	err := chromedp.Run(tabCtx,
		network.Enable(),
		s.setCredential(),
		chromedp.Navigate(s.opts.ProfileURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", s.opts.ProfileURL, err)
	}

	reason := s.scroll(ctx, tabCtx)
	logger.LogComponentStop(s.logger, "browser", reason)
	return nil
}

func (s *Session) scroll(ctx, tabCtx context.Context) string {
	ticker := time.NewTicker(s.opts.ScrollInterval)
	defer ticker.Stop()

	for i := 0; i < s.opts.MaxScrolls; i++ {
		select {
		case <-ctx.Done():
			return "context done"
		case <-ticker.C:
		}

		var top float64
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(scrollScript, &top)); err != nil {
			if ctx.Err() != nil {
				return "context done"
			}
			s.logger.WithError(err).Warn("Scroll failed")
		}
	}
	return "max scrolls reached"
}

type pendingResponse struct {
	url    string
	status int
}

// listen matches followers responses and fetches their bodies once loaded.
// CDP callbacks must not block, so body retrieval runs in its own goroutine.
func (s *Session) listen(tabCtx context.Context) {
	var mu sync.Mutex
	pending := make(map[network.RequestID]pendingResponse)

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Response == nil || !instagram.IsFollowersURL(e.Response.URL) {
				return
			}
			mu.Lock()
			pending[e.RequestID] = pendingResponse{url: e.Response.URL, status: int(e.Response.Status)}
			mu.Unlock()

		case *network.EventLoadingFailed:
			mu.Lock()
			delete(pending, e.RequestID)
			mu.Unlock()

		case *network.EventLoadingFinished:
			mu.Lock()
			resp, ok := pending[e.RequestID]
			delete(pending, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}

			id := e.RequestID
			go func() {
				c := chromedp.FromContext(tabCtx)
				body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(tabCtx, c.Target))
				if err != nil {
					s.logger.WithError(err).Debug("Failed to read followers response body")
					return
				}
				s.interceptor.OnPage(body, resp.status, resp.url)
			}()
		}
	})
}

func (s *Session) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
	)
	if s.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.opts.UserAgent))
	}
	if s.opts.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(s.opts.UserDataDir))
	}
	if s.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.opts.ExecPath))
	}
	return opts
}

func (s *Session) setCredential() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookieParams(s.cred) {
			if err := c.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		if token := instagram.NormalizeToken(s.cred.Token); token != "" {
			return network.SetExtraHTTPHeaders(network.Headers{"Authorization": token}).Do(ctx)
		}
		return nil
	})
}

func cookieParams(cred instagram.Credential) []*network.SetCookieParams {
	var out []*network.SetCookieParams
	for _, c := range cred.Cookies() {
		out = append(out, network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(c.Path).
			WithSecure(true))
	}
	return out
}

func isChromeAvailable() bool {
	paths := []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"}
	for _, path := range paths {
		if _, err := exec.LookPath(path); err == nil {
			return true
		}
	}
	return false
}
