package events

import (
	"context"
	"sync"
	"time"

	"mejapos/backend/internal/logger"
)

// Dispatcher decouples event publishing from the request path. Emit never
// blocks: events go through a bounded buffer and are dropped with a warning
// when the buffer is full. Publish failures are logged, never propagated.
type Dispatcher struct {
	publisher Publisher
	buf       chan Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewDispatcher(publisher Publisher, bufferSize int) *Dispatcher {
	if bufferSize < 1 {
		bufferSize = 64
	}
	d := &Dispatcher{
		publisher: publisher,
		buf:       make(chan Event, bufferSize),
		done:      make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) Emit(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	select {
	case d.buf <- event:
	case <-d.done:
	default:
		logger.Warn().Str("event_type", event.Type).Msg("event buffer full, dropping event")
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.buf:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := d.publisher.Publish(ctx, event); err != nil {
				logger.Warn().Err(err).Str("event_type", event.Type).Msg("event publish failed")
			}
			cancel()
		case <-d.done:
			d.drain()
			return
		}
	}
}

// drain publishes whatever is still buffered at shutdown.
func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.buf:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := d.publisher.Publish(ctx, event); err != nil {
				logger.Warn().Err(err).Str("event_type", event.Type).Msg("event publish failed")
			}
			cancel()
		default:
			return
		}
	}
}

// Close drains events already queued, then stops the background worker.
// Emit calls racing with Close may be dropped.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}
