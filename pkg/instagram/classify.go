package instagram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"igfollowers/pkg/models"
)

// MaxDiagnosticLength bounds the raw text kept on non-OK results
const MaxDiagnosticLength = 500

// rateLimitText is the fallback heuristic for servers that answer a throttled
// request with a 401 and a localized message.
var rateLimitText = regexp.MustCompile(`(?i)\b(wait|rate|espera)`)

// rate-limit markers Instagram puts in error bodies
var rateLimitErrorTypes = map[string]bool{
	"rate_limit_error":  true,
	"feedback_required": true,
	"sentry_block":      true,
	"too_many_requests": true,
}

var loginRequiredMarkers = map[string]bool{
	"login_required":      true,
	"checkpoint_required": true,
	"challenge_required":  true,
	"user_has_logged_out": true,
	"invalid_user":        true,
}

// Classify turns one HTTP exchange into a PageResult. It is shared by the
// active client and the passive browser transport. transportErr is the error
// from the round trip itself, if any. now stamps scraped_at on each record.
func Classify(status int, body []byte, transportErr error, now time.Time) models.PageResult {
	if transportErr != nil {
		return models.PageResult{
			Outcome:    models.OutcomeTransient,
			Status:     status,
			Diagnostic: truncate(transportErr.Error()),
		}
	}

	diag := truncate(string(body))
	apiErr := parseErrorBody(body)

	switch {
	case status == http.StatusTooManyRequests:
		return failure(models.OutcomeRateLimited, status, diag)
	case status != http.StatusOK && apiErr.isRateLimit():
		return failure(models.OutcomeRateLimited, status, diag)
	case (status == http.StatusUnauthorized || status == http.StatusForbidden) && apiErr.isLoginRequired():
		return failure(models.OutcomeAuthFailed, status, diag)
	case status == http.StatusUnauthorized && rateLimitText.MatchString(diagnosticText(apiErr, body)):
		return failure(models.OutcomeRateLimited, status, diag)
	case status == http.StatusUnauthorized:
		return failure(models.OutcomeAuthFailed, status, diag)
	case status != http.StatusOK:
		return failure(models.OutcomeTransient, status, diag)
	}

	records, cursor, err := ParsePage(body, now)
	if err != nil {
		// a 200 that still says "spam" is a soft throttle
		if apiErr.isRateLimit() {
			return failure(models.OutcomeRateLimited, status, diag)
		}
		return failure(models.OutcomeTransient, status, fmt.Sprintf("%v: %s", err, diag))
	}

	return models.PageResult{
		Outcome: models.OutcomeOK,
		Records: records,
		Cursor:  cursor,
		Status:  status,
	}
}

// ErrNoUsers is returned by ParsePage when the body has no users array
var ErrNoUsers = errors.New("response has no users array")

// ParsePage decodes a followers body into records and the next cursor
func ParsePage(body []byte, now time.Time) ([]models.FollowerRecord, string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", fmt.Errorf("malformed followers response: %w", err)
	}
	// null or a non-array value is no followers list
	users := bytes.TrimSpace(raw["users"])
	if len(users) == 0 || users[0] != '[' {
		return nil, "", ErrNoUsers
	}

	var resp FollowersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("malformed followers response: %w", err)
	}

	records := make([]models.FollowerRecord, 0, len(resp.Users))
	for _, u := range resp.Users {
		pk := u.PK.String()
		if pk == "" {
			pk = u.PKID
		}
		if pk == "" {
			continue
		}
		records = append(records, models.FollowerRecord{
			PK:            pk,
			Username:      u.Username,
			FullName:      u.FullName,
			IsPrivate:     u.IsPrivate,
			IsVerified:    u.IsVerified,
			ProfilePicURL: u.ProfilePicURL,
			ScrapedAt:     now,
		})
	}

	return records, resp.NextMaxID.String(), nil
}

type errorBody struct {
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
	Spam      bool   `json:"spam"`
	Status    string `json:"status"`
}

func parseErrorBody(body []byte) errorBody {
	var e errorBody
	_ = json.Unmarshal(body, &e)
	return e
}

func (e errorBody) isRateLimit() bool {
	return e.Spam || rateLimitErrorTypes[e.ErrorType] || rateLimitErrorTypes[e.Message]
}

func (e errorBody) isLoginRequired() bool {
	return loginRequiredMarkers[e.ErrorType] || loginRequiredMarkers[e.Message]
}

func diagnosticText(e errorBody, body []byte) string {
	if e.Message != "" {
		return e.Message
	}
	return string(body)
}

func failure(outcome models.Outcome, status int, diag string) models.PageResult {
	return models.PageResult{Outcome: outcome, Status: status, Diagnostic: diag}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > MaxDiagnosticLength {
		return s[:MaxDiagnosticLength] + "..."
	}
	return s
}
