// Package metrics exposes Prometheus instrumentation for collection runs.
//
// Metrics:
//   - igfollowers_pages_total{mode, outcome} (Counter): pages fetched or events consumed, by outcome
//   - igfollowers_records_total{mode} (Counter): unique followers merged
//   - igfollowers_backoff_seconds{outcome} (Histogram): waits scheduled by the backoff controller
//   - igfollowers_runs_total{state} (Counter): finished runs by terminal state
//   - igfollowers_events_dropped_total (Counter): intercepted responses dropped on a full buffer
//
// Example queries:
//
//	# Rate-limit share of requests
//	sum(rate(igfollowers_pages_total{outcome="rate_limited"}[5m])) / sum(rate(igfollowers_pages_total[5m]))
//
//	# P95 backoff wait
//	histogram_quantile(0.95, rate(igfollowers_backoff_seconds_bucket[15m]))
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives collection events. Implementations must be safe for concurrent use.
type Recorder interface {
	PageFetched(mode, outcome string)
	RecordsAdded(mode string, n int)
	Backoff(outcome string, wait time.Duration)
	RunFinished(state string)
	EventDropped()
}

// Prometheus records into a set of collectors registered on one registerer
type Prometheus struct {
	pages   *prometheus.CounterVec
	records *prometheus.CounterVec
	backoff *prometheus.HistogramVec
	runs    *prometheus.CounterVec
	dropped prometheus.Counter
}

// New registers the collectors on reg. Registering twice on the same registerer panics.
func New(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		pages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igfollowers_pages_total",
				Help: "Total number of follower pages fetched or intercepted, by outcome",
			},
			[]string{"mode", "outcome"},
		),
		records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igfollowers_records_total",
				Help: "Total number of unique followers merged",
			},
			[]string{"mode"},
		),
		backoff: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "igfollowers_backoff_seconds",
				Help:    "Waits scheduled by the backoff controller",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 35, 60, 120, 300},
			},
			[]string{"outcome"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igfollowers_runs_total",
				Help: "Finished collection runs by terminal state",
			},
			[]string{"state"},
		),
		dropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "igfollowers_events_dropped_total",
				Help: "Intercepted follower responses dropped because the event buffer was full",
			},
		),
	}
}

var (
	defaultOnce sync.Once
	defaultRec  *Prometheus
)

// Default returns the recorder registered on prometheus.DefaultRegisterer
func Default() *Prometheus {
	defaultOnce.Do(func() {
		defaultRec = New(prometheus.DefaultRegisterer)
	})
	return defaultRec
}

func (p *Prometheus) PageFetched(mode, outcome string) {
	p.pages.WithLabelValues(mode, outcome).Inc()
}

func (p *Prometheus) RecordsAdded(mode string, n int) {
	if n > 0 {
		p.records.WithLabelValues(mode).Add(float64(n))
	}
}

func (p *Prometheus) Backoff(outcome string, wait time.Duration) {
	p.backoff.WithLabelValues(outcome).Observe(wait.Seconds())
}

func (p *Prometheus) RunFinished(state string) {
	p.runs.WithLabelValues(state).Inc()
}

func (p *Prometheus) EventDropped() {
	p.dropped.Inc()
}

// Nop discards everything
type Nop struct{}

func (Nop) PageFetched(mode, outcome string)           {}
func (Nop) RecordsAdded(mode string, n int)            {}
func (Nop) Backoff(outcome string, wait time.Duration) {}
func (Nop) RunFinished(state string)                   {}
func (Nop) EventDropped()                              {}
