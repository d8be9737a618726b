package ui

import "igfollowers/pkg/collector"

// TUI is a full-screen view of a collection run
type TUI interface {
	collector.Observer
	Start() error
	Stop()
	LogInfo(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
}
