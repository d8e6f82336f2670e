package storage

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/healthsink/healthsink/internal/export"
)

// defaultMaxBatchSize bounds rows per INSERT statement. Large uploads are
// split into statements of at most this many rows.
const defaultMaxBatchSize = 1000

// Store provides an interface for persisting decoded health export data.
// Implementations write into a replacing-merge backing engine, so repeated
// uploads of the same logical record collapse to one row. All methods are
// safe for concurrent use.
type Store interface {
	// Name returns a short identifier for the backend, used in logs.
	Name() string

	// StoreMetrics flattens every (metric, sample) pair into one row and
	// writes the rows in bounded batches. Samples without a timestamp are
	// stamped with the current processing time.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - metrics: Decoded metrics; an empty slice is a no-op
	//
	// Returns:
	//   - error: If any batch fails or context is cancelled
	StoreMetrics(ctx context.Context, metrics []export.Metric) error

	// StoreWorkouts writes one row per workout, then the child timeseries
	// (route points, heart-rate logs, step/distance/energy entries) keyed
	// by the workout id. Workouts without an id are skipped and logged,
	// never treated as an error. Children lacking their own timestamp
	// inherit the workout start time.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - workouts: Decoded workouts; an empty slice is a no-op
	//
	// Returns:
	//   - error: If any batch fails or context is cancelled
	StoreWorkouts(ctx context.Context, workouts []export.Workout) error

	// StoreStateOfMind writes one row per mood entry. Entries missing
	// either timestamp are skipped and logged.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - entries: Decoded entries; an empty slice is a no-op
	//
	// Returns:
	//   - error: If any batch fails or context is cancelled
	StoreStateOfMind(ctx context.Context, entries []export.StateOfMind) error

	// StoreECG writes one row per recording plus one row per voltage
	// sample, keyed by (ecg id, sample index). The recording id is derived
	// deterministically from the recording's content, so re-uploading the
	// same recording overwrites instead of duplicating.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - recordings: Decoded ECG recordings; an empty slice is a no-op
	//
	// Returns:
	//   - error: If any batch fails or context is cancelled
	StoreECG(ctx context.Context, recordings []export.ECG) error

	// OptimizeTables asks the backing engine to compact away rows
	// superseded by replacing-merge semantics. Idempotent and safe to run
	// when nothing changed.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//
	// Returns:
	//   - error: If the engine rejects the compaction request
	OptimizeTables(ctx context.Context) error

	// Close releases all database connections and resources. After Close
	// is called, the store instance cannot be reused. It is safe to call
	// Close multiple times.
	//
	// Returns:
	//   - error: If closing fails or some resources cannot be released
	Close() error
}

type storeOptions struct {
	logger       *slog.Logger
	maxBatchSize int
	now          func() time.Time
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBatchSize: defaultMaxBatchSize,
		now:          time.Now,
	}
}

// Option configures a store.
type Option func(*storeOptions)

// WithLogger sets the logger stores report batch progress and skipped
// records to. Defaults to a logger that discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxBatchSize bounds the number of rows per INSERT statement.
// Non-positive values are ignored.
func WithMaxBatchSize(size int) Option {
	return func(o *storeOptions) {
		if size > 0 {
			o.maxBatchSize = size
		}
	}
}

// WithClock overrides the clock used to stamp records that arrive without
// a timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}
