package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"roster/pkg/platform/circuit"
)

// DefaultDrainTimeout bounds how long a stopping Worker keeps delivering
// buffered events.
const DefaultDrainTimeout = 5 * time.Second

// ErrQueueFull is returned by Queue.Append when the buffer is saturated.
var ErrQueueFull = errors.New("audit queue full")

// Queue is a non-blocking Sink that buffers events for a Worker. It keeps
// slow downstream sinks (Kafka) off the request path.
type Queue struct {
	ch chan Event
}

func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan Event, size)}
}

func (q *Queue) Append(_ context.Context, e Event) error {
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Inbox is the receive side consumed by a Worker.
func (q *Queue) Inbox() <-chan Event {
	return q.ch
}

// Worker consumes audit events from a channel and forwards them to a sink.
// Delivery failures are logged and the worker keeps going. Once the breaker
// opens, per-event failures are no longer logged until the sink recovers.
type Worker struct {
	sink    Sink
	inbox   <-chan Event
	logger  *slog.Logger
	breaker *circuit.Breaker

	drainTimeout time.Duration
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithBreaker replaces the default delivery breaker.
func WithBreaker(b *circuit.Breaker) WorkerOption {
	return func(w *Worker) {
		if b != nil {
			w.breaker = b
		}
	}
}

// WithDrainTimeout limits the final drain after Run's context is done.
func WithDrainTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.drainTimeout = d
		}
	}
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		sink:         sink,
		inbox:        inbox,
		logger:       logger,
		breaker:      circuit.New("audit-sink"),
		drainTimeout: DefaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run forwards events until ctx is done, then drains what is already
// buffered for at most the drain timeout. Events still queued when the
// timeout expires are dropped and counted in a warning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.drainTimeout)
			w.drain(drainCtx)
			cancel()
			return ctx.Err()
		case event := <-w.inbox:
			w.forward(ctx, event)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			if dropped := len(w.inbox); dropped > 0 {
				w.logger.WarnContext(ctx, "audit drain timed out, dropping buffered events",
					"dropped", dropped,
					"timeout", w.drainTimeout,
				)
			}
			return
		}
		select {
		case event := <-w.inbox:
			w.forward(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) forward(ctx context.Context, event Event) {
	err := w.sink.Append(ctx, event)
	if err == nil {
		if _, change := w.breaker.RecordSuccess(); change.Closed {
			w.logger.InfoContext(ctx, "audit sink recovered", "breaker", w.breaker.Name())
		}
		return
	}
	degraded, change := w.breaker.RecordFailure()
	if change.Opened {
		w.logger.WarnContext(ctx, "audit sink degraded, suppressing delivery errors",
			"breaker", w.breaker.Name(),
			"error", err,
		)
	}
	if degraded {
		return
	}
	w.logger.ErrorContext(ctx, "failed to deliver audit event",
		"event", string(event.Type),
		"event_id", event.ID,
		"error", err,
	)
}
