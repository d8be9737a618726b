package browser

import (
	"sync"
	"sync/atomic"
	"time"

	"igfollowers/pkg/instagram"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/metrics"
	"igfollowers/pkg/models"
)

// DefaultEventBuffer is used when NewInterceptor is given a non-positive buffer
const DefaultEventBuffer = 64

// Interceptor turns observed followers responses into events for a passive run.
// OnPage never blocks: when the buffer is full the event is dropped and counted.
type Interceptor struct {
	events  chan models.Event
	dropped atomic.Int64
	seen    atomic.Int64

	mu     sync.RWMutex
	closed bool
	userID string

	metrics metrics.Recorder
	logger  logger.Logger
	now     func() time.Time
}

// NewInterceptor creates an interceptor with a buffer of the given size
func NewInterceptor(buffer int, rec metrics.Recorder, log logger.Logger) *Interceptor {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Interceptor{
		events:  make(chan models.Event, buffer),
		metrics: rec,
		logger:  log.WithField("component", "interceptor"),
		now:     time.Now,
	}
}

// SetUserID limits the interceptor to followers responses for userID.
// With no user id set every followers response is queued.
func (i *Interceptor) SetUserID(userID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.userID = userID
}

// Events is the channel a passive engine consumes. It is closed by Close.
func (i *Interceptor) Events() <-chan models.Event {
	return i.events
}

// OnPage queues one observed response. It returns false when the response
// was ignored, dropped, or arrived after Close.
func (i *Interceptor) OnPage(body []byte, status int, url string) bool {
	id, ok := instagram.FollowersURLUserID(url)
	if !ok {
		return false
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return false
	}
	// the page may load lists for other accounts too
	if i.userID != "" && id != i.userID {
		return false
	}

	ev := models.Event{
		Body:       append([]byte(nil), body...),
		Status:     status,
		URL:        url,
		ReceivedAt: i.now(),
	}

	select {
	case i.events <- ev:
		i.seen.Add(1)
		return true
	default:
		n := i.dropped.Add(1)
		i.metrics.EventDropped()
		i.logger.WarnWithFields("Event buffer full, dropping response", map[string]interface{}{
			"url":     url,
			"dropped": n,
		})
		return false
	}
}

// Dropped is the number of responses lost to a full buffer
func (i *Interceptor) Dropped() int64 {
	return i.dropped.Load()
}

// Queued is the number of responses handed to the channel
func (i *Interceptor) Queued() int64 {
	return i.seen.Load()
}

// Close closes the event channel. Safe to call more than once.
func (i *Interceptor) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.closed = true
	close(i.events)
}
