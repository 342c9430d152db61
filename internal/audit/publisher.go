package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"permitcheck/pkg/requestcontext"
)

// DefaultAppendTimeout bounds one background write to the sink.
const DefaultAppendTimeout = 5 * time.Second

// Publisher records check lifecycle events. Emit stamps the event and hands it
// to the store, either inline or through a bounded queue drained by one
// goroutine. Queued events are lost when the queue is full; Dropped counts them.
type Publisher struct {
	store         Store
	logger        *slog.Logger
	now           func() time.Time
	appendTimeout time.Duration

	queue   chan Event
	done    sync.WaitGroup
	dropped atomic.Uint64
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues up to size events for background persistence.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.queue = make(chan Event, size)
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPublisherClock stamps events that arrive without a timestamp.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// WithAppendTimeout bounds each background Append.
func WithAppendTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.appendTimeout = d
		}
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:         store,
		logger:        slog.Default(),
		now:           time.Now,
		appendTimeout: DefaultAppendTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		p.done.Add(1)
		go p.drain()
	}
	return p
}

// Emit records the event. Missing timestamp and session are taken from the
// clock and the request context. In async mode Emit never blocks and never
// returns a store error.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.SessionID == "" {
		event.SessionID = requestcontext.SessionID(ctx)
	}
	if p.queue == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.queue <- event:
	default:
		p.dropped.Add(1)
		p.logger.WarnContext(ctx, "audit queue full, event dropped",
			"action", event.Action,
			"session_id", event.SessionID,
		)
	}
	return nil
}

// Dropped reports how many events were discarded because the queue was full.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close stops accepting queued events and waits for the queue to drain.
// Emit must not be called after Close.
func (p *Publisher) Close() {
	if p.queue == nil {
		return
	}
	close(p.queue)
	p.done.Wait()
}

func (p *Publisher) drain() {
	defer p.done.Done()
	for event := range p.queue {
		p.appendOne(event)
	}
}

func (p *Publisher) appendOne(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.appendTimeout)
	defer cancel()
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.Error("failed to persist audit event",
			"error", err,
			"action", event.Action,
			"session_id", event.SessionID,
		)
	}
}
