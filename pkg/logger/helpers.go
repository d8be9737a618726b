package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs one HTTP round trip against the followers endpoint
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode == 0:
		l.WarnWithFields("HTTP request failed", fields)
	case statusCode < 400:
		l.DebugWithFields("HTTP request completed", fields)
	case statusCode < 500:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.ErrorWithFields("HTTP request server error", fields)
	}
}

// LogPage logs the effect of one merged page or event
func LogPage(l Logger, userID string, page, received, added, total int, cursor string) {
	l.InfoWithFields("Page merged", map[string]interface{}{
		"user_id":  userID,
		"page":     page,
		"received": received,
		"added":    added,
		"total":    total,
		"has_more": cursor != "",
	})
}

// LogBackoff logs a wait scheduled by the backoff controller
func LogBackoff(l Logger, outcome string, wait time.Duration, consecutive int) {
	l.WarnWithFields("Backing off", map[string]interface{}{
		"outcome":            outcome,
		"wait":               wait,
		"consecutive_errors": consecutive,
	})
}

// LogRunSummary logs the terminal state of a run
func LogRunSummary(l Logger, userID, state, reason string, total int, elapsed time.Duration) {
	fields := map[string]interface{}{
		"user_id": userID,
		"state":   state,
		"total":   total,
		"elapsed": elapsed,
	}
	if reason != "" {
		fields["reason"] = reason
	}

	if state == "aborted" {
		l.ErrorWithFields("Collection aborted", fields)
		return
	}
	l.InfoWithFields("Collection finished", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, cfg map[string]interface{}) {
	l.WithField("component", component).InfoWithFields("Component started", cfg)
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component, reason string) {
	l.InfoWithFields("Component stopped", map[string]interface{}{
		"component": component,
		"reason":    reason,
	})
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
