package storage

import (
	"context"
	"errors"

	"igfollowers/pkg/collector"
)

// Sink persists a finished run
type Sink interface {
	Write(ctx context.Context, res *collector.Result) error
}

// MultiSink writes to every sink, even after one fails
type MultiSink []Sink

// Write joins the errors of all failing sinks
func (m MultiSink) Write(ctx context.Context, res *collector.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
