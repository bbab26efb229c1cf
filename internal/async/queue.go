package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("queue is shutting down")

// Handler processes one item. It runs on the queue's single worker.
type Handler[T any] func(ctx context.Context, item T)

// Queue is a bounded single-consumer queue. Items are handled one at a time,
// in order, each fully before the next is taken.
type Queue[T any] struct {
	handle  Handler[T]
	logger  *slog.Logger
	timeout time.Duration

	ch   chan T
	stop chan struct{}
	done chan struct{}
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*options)

type options struct {
	size    int
	timeout time.Duration
}

// WithQueueSize sets the buffer size (default 256).
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithProcessTimeout bounds each handler call. Zero means no bound.
func WithProcessTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewQueue starts the worker. Handlers receive a context that is not
// cancelled by Shutdown, so an in-flight item always runs to completion.
func NewQueue[T any](handle Handler[T], logger *slog.Logger, opts ...Option) *Queue[T] {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{size: 256}
	for _, opt := range opts {
		opt(&o)
	}
	q := &Queue[T]{
		handle:  handle,
		logger:  logger,
		timeout: o.timeout,
		ch:      make(chan T, o.size),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue[T]) run() {
	defer close(q.done)
	q.logger.Debug("queue worker started")
	for {
		// stop wins over pending items
		select {
		case <-q.stop:
			q.logger.Debug("queue worker stopped", "discarded", len(q.ch))
			return
		default:
		}
		select {
		case <-q.stop:
			q.logger.Debug("queue worker stopped", "discarded", len(q.ch))
			return
		case item, ok := <-q.ch:
			if !ok {
				q.logger.Debug("queue drained")
				return
			}
			q.process(item)
		}
	}
}

func (q *Queue[T]) process(item T) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queue handler panicked", "panic", r)
		}
	}()
	q.handle(ctx, item)
}

// Enqueue adds an item, blocking while the queue is full until ctx is done.
func (q *Queue[T]) Enqueue(ctx context.Context, item T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- item:
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "size", cap(q.ch))
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stop:
		return ErrClosed
	}
}

// Len returns the number of items waiting.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Shutdown stops accepting items, lets the in-flight item finish and discards
// the backlog. It returns ctx.Err() if ctx ends first.
func (q *Queue[T]) Shutdown(ctx context.Context) error {
	q.once.Do(func() {
		close(q.stop)
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
	})

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
		return ctx.Err()
	case <-q.done:
		q.logger.Info("queue stopped, in-flight work complete")
		return nil
	}
}

// Drain stops accepting items and returns once every queued item has been
// handled, or with ctx.Err() if ctx ends first.
func (q *Queue[T]) Drain(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return nil
	}
}

// Done is closed once the worker has exited.
func (q *Queue[T]) Done() <-chan struct{} { return q.done }
