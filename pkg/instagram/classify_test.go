package instagram

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfollowers/internal/testutil"
	"igfollowers/pkg/models"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		err    error
		want   models.Outcome
	}{
		{"page with cursor", 200, testutil.PageBody([]string{"1", "2"}, "a"), nil, models.OutcomeOK},
		{"last page", 200, testutil.PageBody([]string{"1"}, ""), nil, models.OutcomeOK},
		{"empty users", 200, `{"users":[],"status":"ok"}`, nil, models.OutcomeOK},
		{"429", 429, `{}`, nil, models.OutcomeRateLimited},
		{"429 empty body", 429, ``, nil, models.OutcomeRateLimited},
		{"401 please wait", 401, `{"message":"Please wait a few minutes before you try again.","require_login":true}`, nil, models.OutcomeRateLimited},
		{"401 espera", 401, `{"message":"Por favor espera unos minutos"}`, nil, models.OutcomeRateLimited},
		{"401 rate in plain text", 401, `Rate limited`, nil, models.OutcomeRateLimited},
		{"401 login required", 401, `{"message":"login_required","status":"fail"}`, nil, models.OutcomeAuthFailed},
		{"401 generic", 401, `{"message":"Unauthorized"}`, nil, models.OutcomeAuthFailed},
		{"401 generate is not rate", 401, `{"message":"could not generate session"}`, nil, models.OutcomeAuthFailed},
		{"403 checkpoint", 403, `{"message":"checkpoint_required"}`, nil, models.OutcomeAuthFailed},
		{"400 feedback required", 400, `{"message":"feedback_required","spam":true}`, nil, models.OutcomeRateLimited},
		{"400 explicit error type", 400, `{"error_type":"rate_limit_error"}`, nil, models.OutcomeRateLimited},
		{"400", 400, `{"message":"bad request"}`, nil, models.OutcomeTransient},
		{"403 generic", 403, `{"message":"forbidden"}`, nil, models.OutcomeTransient},
		{"404", 404, `{}`, nil, models.OutcomeTransient},
		{"500", 500, `{"status":"fail"}`, nil, models.OutcomeTransient},
		{"503", 503, ``, nil, models.OutcomeTransient},
		{"network error", 0, ``, errors.New("dial tcp: connection refused"), models.OutcomeTransient},
		{"malformed 200", 200, `<html>`, nil, models.OutcomeTransient},
		{"200 without users", 200, `{"status":"ok"}`, nil, models.OutcomeTransient},
		{"200 null users", 200, `{"users":null,"status":"ok"}`, nil, models.OutcomeTransient},
		{"200 users object", 200, `{"users":{},"status":"ok"}`, nil, models.OutcomeTransient},
		{"200 spam without users", 200, `{"spam":true,"status":"fail"}`, nil, models.OutcomeRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, []byte(tt.body), tt.err, fixedNow)
			assert.Equal(t, tt.want, got.Outcome)
			if tt.want != models.OutcomeOK {
				assert.Empty(t, got.Records)
				assert.Empty(t, got.Cursor)
			}
		})
	}
}

func TestClassifyOKCarriesRecordsAndCursor(t *testing.T) {
	got := Classify(http.StatusOK, []byte(testutil.PageBody([]string{"11", "12"}, "QVFD")), nil, fixedNow)

	require.Equal(t, models.OutcomeOK, got.Outcome)
	assert.Equal(t, "QVFD", got.Cursor)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "11", got.Records[0].PK)
	assert.Equal(t, "user_11", got.Records[0].Username)
	assert.Equal(t, fixedNow, got.Records[0].ScrapedAt)
}

func TestClassifyDiagnosticTruncated(t *testing.T) {
	body := `{"message":"` + strings.Repeat("x", 2000) + `"}`
	got := Classify(500, []byte(body), nil, fixedNow)
	assert.LessOrEqual(t, len(got.Diagnostic), MaxDiagnosticLength+3)
}

func TestParsePageNumericPK(t *testing.T) {
	body := `{"users":[{"pk":1234567890123,"username":"a"},{"pk_id":"77","username":"b"},{"username":"nokey"}],"next_max_id":100}`
	records, cursor, err := ParsePage([]byte(body), fixedNow)

	require.NoError(t, err)
	assert.Equal(t, "100", cursor)
	require.Len(t, records, 2)
	assert.Equal(t, "1234567890123", records[0].PK)
	assert.Equal(t, "77", records[1].PK)
}

func TestParsePageNullCursor(t *testing.T) {
	_, cursor, err := ParsePage([]byte(`{"users":[],"next_max_id":null}`), fixedNow)
	require.NoError(t, err)
	assert.Empty(t, cursor)
}

func TestParsePageErrors(t *testing.T) {
	_, _, err := ParsePage([]byte(`{"status":"ok"}`), fixedNow)
	assert.ErrorIs(t, err, ErrNoUsers)

	_, _, err = ParsePage([]byte(`{"users":null}`), fixedNow)
	assert.ErrorIs(t, err, ErrNoUsers)

	_, _, err = ParsePage([]byte(`not json`), fixedNow)
	assert.Error(t, err)

	_, _, err = ParsePage([]byte(`{"users":[{"pk":1.5}]}`), fixedNow)
	assert.Error(t, err)
}
