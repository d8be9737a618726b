// Package logger provides the structured logging interface used across igfollowers.
//
// It wraps zerolog. Console output is colorized for terminals, JSON output is
// available for log shippers, and a file sink can be added next to either.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("user_id", "1234567")
//	log.InfoWithFields("Page merged", map[string]interface{}{"added": 100})
//
// TestLogger captures messages for assertions in tests.
package logger
