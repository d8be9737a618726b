package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/models"
	"igfollowers/pkg/ratelimit"
)

// maxBodySize caps how much of a followers response is read
const maxBodySize = 8 << 20

// Credential is the opaque authorization material attached to every request
type Credential struct {
	Token    string
	MID      string
	DSUserID string
	Rur      string
}

// Cookies returns the non-empty session cookies
func (c Credential) Cookies() []*http.Cookie {
	pairs := [][2]string{
		{"x-mid", c.MID},
		{"ig-u-ds-user-id", c.DSUserID},
		{"ig-u-rur", c.Rur},
	}

	var out []*http.Cookie
	for _, p := range pairs {
		if p[1] != "" {
			out = append(out, &http.Cookie{Name: p[0], Value: p[1], Domain: CookieDomain, Path: "/"})
		}
	}
	return out
}

// ClientOptions configures a Client
type ClientOptions struct {
	BaseURL        string
	Timeout        time.Duration
	UserAgent      string
	AppID          string
	DeviceID       string
	Capabilities   string
	AcceptLanguage string
	Limiter        ratelimit.Limiter
	HTTPClient     *http.Client
	Now            func() time.Time
}

// Client talks to the followers endpoint. Fetch never retries; the caller owns retry policy.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	cookies    []*http.Cookie
	baseURL    string
	limiter    ratelimit.Limiter
	logger     logger.Logger
	now        func() time.Time
}

// NewClient creates a client carrying the mobile-app headers and the credential
func NewClient(opts ClientOptions, cred Credential, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	headers := map[string]string{
		"User-Agent":           opts.UserAgent,
		"X-IG-App-ID":          opts.AppID,
		"X-IG-Device-ID":       opts.DeviceID,
		"X-IG-Android-ID":      opts.DeviceID,
		"X-IG-Connection-Type": "WIFI",
		"X-IG-Capabilities":    opts.Capabilities,
		"Accept-Language":      opts.AcceptLanguage,
		"Accept":               "application/json",
	}
	for k, v := range headers {
		if v == "" {
			delete(headers, k)
		}
	}
	if token := NormalizeToken(cred.Token); token != "" {
		headers["Authorization"] = token
	}

	return &Client{
		httpClient: httpClient,
		headers:    headers,
		cookies:    cred.Cookies(),
		baseURL:    opts.BaseURL,
		limiter:    opts.Limiter,
		logger:     log,
		now:        opts.Now,
	}
}

// Fetch requests one page of followers. API-level failures come back as a
// classified PageResult, never as a panic or error.
func (c *Client) Fetch(ctx context.Context, userID, cursor string) models.PageResult {
	if !IsValidUserID(userID) {
		return models.PageResult{
			Outcome:    models.OutcomeFatal,
			Diagnostic: fmt.Sprintf("%v: %q", errs.ErrInvalidUserID, userID),
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return models.PageResult{
			Outcome:    models.OutcomeTransient,
			Diagnostic: fmt.Sprintf("rate limiter: %v", err),
		}
	}

	target := FollowersURL(c.baseURL, userID, cursor)
	status, body, err := c.get(ctx, target)
	if errs.TypeOf(err) == errs.ErrorTypeFatal {
		return models.PageResult{Outcome: models.OutcomeFatal, Diagnostic: err.Error()}
	}
	result := Classify(status, body, err, c.now())

	if result.Outcome != models.OutcomeOK {
		c.logger.WarnWithFields("followers request not ok", map[string]interface{}{
			"user_id":    userID,
			"outcome":    result.Outcome.String(),
			"status":     status,
			"diagnostic": result.Diagnostic,
		})
	}
	return result
}

func (c *Client) get(ctx context.Context, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, errs.New(errs.ErrorTypeFatal, 0, "build request: %v", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.LogRequest(c.logger, req.Method, target, 0, time.Since(start))
		return 0, nil, errs.New(errs.ErrorTypeNetwork, 0, "%v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	logger.LogRequest(c.logger, req.Method, target, resp.StatusCode, time.Since(start))
	if err != nil {
		return resp.StatusCode, nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "read body: %v", err)
	}
	return resp.StatusCode, body, nil
}
