package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/healthsink/healthsink/internal/export"
	"github.com/healthsink/healthsink/internal/storage"
)

const (
	defaultWorkers      = 2
	defaultQueueSize    = 64
	defaultWriteTimeout = 5 * time.Minute
)

// ErrQueueFull is returned by Enqueue when the write queue cannot take
// another export without blocking the request handler.
var ErrQueueFull = errors.New("write queue is full")

// WithWorkers sets the number of concurrent writer goroutines.
func WithWorkers(n int) func(*Writer) {
	return func(w *Writer) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithQueueSize sets how many decoded exports may wait for a writer before
// Enqueue starts rejecting with ErrQueueFull.
func WithQueueSize(n int) func(*Writer) {
	return func(w *Writer) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

// WithWriteTimeout bounds how long one export may spend being written
// across all stores before its context is cancelled.
func WithWriteTimeout(d time.Duration) func(*Writer) {
	return func(w *Writer) {
		if d > 0 {
			w.writeTimeout = d
		}
	}
}

// Writer drains a bounded queue of decoded exports into every configured
// store. One upload is written by one worker; concurrency across uploads is
// capped by the worker count, and admission by the queue size.
type Writer struct {
	stores []storage.Store
	logger *slog.Logger

	workers      int
	queueSize    int
	writeTimeout time.Duration

	queue chan *export.Export
	wg    sync.WaitGroup

	stopOnce sync.Once
}

// NewWriter creates a Writer and starts its worker goroutines.
func NewWriter(stores []storage.Store, logger *slog.Logger, options ...func(*Writer)) *Writer {
	w := Writer{
		stores:       stores,
		logger:       logger,
		workers:      defaultWorkers,
		queueSize:    defaultQueueSize,
		writeTimeout: defaultWriteTimeout,
	}

	for _, option := range options {
		option(&w)
	}

	w.queue = make(chan *export.Export, w.queueSize)
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run()
	}

	return &w
}

// Enqueue hands a decoded export to the pool without blocking. It returns
// ErrQueueFull when every queue slot is taken; the caller decides whether
// that is worth a retry or an error response.
func (w *Writer) Enqueue(data *export.Export) error {
	select {
	case w.queue <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and blocks until every queued export has been
// written. The HTTP server must stop accepting uploads before Stop is
// called, or Enqueue will panic on the closed queue.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() {
		close(w.queue)
		w.wg.Wait()
	})
}

func (w *Writer) run() {
	defer w.wg.Done()

	for data := range w.queue {
		w.process(data)
	}
}

func (w *Writer) process(data *export.Export) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	for _, store := range w.stores {
		started := time.Now()
		if err := writeExport(ctx, store, data); err != nil {
			w.logger.Error("abandoning remaining writes for store",
				slog.String("store", store.Name()),
				slog.Any("error", err))
			continue
		}

		w.logger.Debug("export written",
			slog.String("store", store.Name()),
			slog.Duration("took", time.Since(started)))
	}
}

// writeExport persists one export into one store in the fixed category
// order, then triggers compaction. The first failure abandons the store's
// remaining categories for this upload; other stores still get their turn.
func writeExport(ctx context.Context, store storage.Store, data *export.Export) error {
	if err := store.StoreMetrics(ctx, data.Metrics); err != nil {
		return fmt.Errorf("storing metrics: %w", err)
	}
	if err := store.StoreECG(ctx, data.ECG); err != nil {
		return fmt.Errorf("storing ECG: %w", err)
	}
	if err := store.StoreWorkouts(ctx, data.Workouts); err != nil {
		return fmt.Errorf("storing workouts: %w", err)
	}
	if err := store.StoreStateOfMind(ctx, data.StateOfMind); err != nil {
		return fmt.Errorf("storing state of mind: %w", err)
	}
	if err := store.OptimizeTables(ctx); err != nil {
		return fmt.Errorf("optimizing tables: %w", err)
	}
	return nil
}
