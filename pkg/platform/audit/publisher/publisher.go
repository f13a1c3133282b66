package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "giftexchange/pkg/platform/audit"
	"giftexchange/pkg/platform/audit/worker"
)

// Publisher captures structured audit events. It is append-only and writes to
// a primary store plus any number of sinks (for example a Kafka topic).
type Publisher struct {
	store  audit.Store
	sinks  []audit.Store
	logger *slog.Logger

	bufferSize int
	inbox      chan audit.Event
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit enqueue events for a background worker. When the
// buffer is full the event is dropped and logged.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

// WithSink adds a secondary destination for every event.
func WithSink(sink audit.Store) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		w := worker.NewWorker(fanout{p}, p.inbox, p.logger)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			_ = w.Run(context.Background())
		}()
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return fanout{p}.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
	return nil
}

// List returns recent events when the primary store can read them back.
func (p *Publisher) List(ctx context.Context, limit int) ([]audit.Event, error) {
	r, ok := p.store.(audit.Reader)
	if !ok {
		return nil, nil
	}
	return r.ListRecent(ctx, limit)
}

// Close flushes queued events and stops the background worker.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

type fanout struct {
	p *Publisher
}

func (f fanout) Append(ctx context.Context, event audit.Event) error {
	var errs []error
	if err := f.p.store.Append(ctx, event); err != nil {
		errs = append(errs, err)
	}
	for _, sink := range f.p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
