package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/healthsink/healthsink/internal/export"
	"github.com/healthsink/healthsink/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore records the order of operations and can fail on one of them.
type fakeStore struct {
	name   string
	failOn string
	block  chan struct{}

	mu      sync.Mutex
	started chan struct{}
	calls   []string
}

func newFakeStore(name string) *fakeStore {
	return &fakeStore{name: name, started: make(chan struct{}, 16)}
}

func (f *fakeStore) record(op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()

	f.started <- struct{}{}
	if f.block != nil {
		<-f.block
	}
	if op == f.failOn {
		return errors.New("injected " + op + " failure")
	}
	return nil
}

func (f *fakeStore) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStore) Name() string { return f.name }

func (f *fakeStore) StoreMetrics(_ context.Context, _ []export.Metric) error {
	return f.record("metrics")
}

func (f *fakeStore) StoreWorkouts(_ context.Context, _ []export.Workout) error {
	return f.record("workouts")
}

func (f *fakeStore) StoreStateOfMind(_ context.Context, _ []export.StateOfMind) error {
	return f.record("state of mind")
}

func (f *fakeStore) StoreECG(_ context.Context, _ []export.ECG) error {
	return f.record("ecg")
}

func (f *fakeStore) OptimizeTables(_ context.Context) error {
	return f.record("optimize")
}

func (f *fakeStore) Close() error { return nil }

func TestWriter_WriteOrder(t *testing.T) {
	store := newFakeStore("first")
	writer := NewWriter([]storage.Store{store}, discardLogger())

	if err := writer.Enqueue(&export.Export{}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	writer.Stop()

	expected := []string{"metrics", "ecg", "workouts", "state of mind", "optimize"}
	got := store.recorded()
	if len(got) != len(expected) {
		t.Fatalf("Expected %d operations, got %d: %v", len(expected), len(got), got)
	}
	for i, op := range expected {
		if got[i] != op {
			t.Errorf("Operation %d: expected %q, got %q", i, op, got[i])
		}
	}
}

func TestWriter_StoreFailureAbandonsRemainingCategories(t *testing.T) {
	failing := newFakeStore("failing")
	failing.failOn = "workouts"
	healthy := newFakeStore("healthy")

	writer := NewWriter([]storage.Store{failing, healthy}, discardLogger())
	if err := writer.Enqueue(&export.Export{}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	writer.Stop()

	got := failing.recorded()
	expected := []string{"metrics", "ecg", "workouts"}
	if len(got) != len(expected) {
		t.Fatalf("Expected failing store to stop after %v, got %v", expected, got)
	}

	// The second store is unaffected by the first one's failure.
	if len(healthy.recorded()) != 5 {
		t.Errorf("Expected healthy store to see all 5 operations, got %v", healthy.recorded())
	}
}

func TestWriter_EnqueueRejectsWhenFull(t *testing.T) {
	store := newFakeStore("slow")
	store.block = make(chan struct{})

	writer := NewWriter([]storage.Store{store}, discardLogger(),
		WithWorkers(1), WithQueueSize(1))

	// First export occupies the worker.
	if err := writer.Enqueue(&export.Export{}); err != nil {
		t.Fatalf("Failed to enqueue first export: %v", err)
	}
	select {
	case <-store.started:
	case <-time.After(5 * time.Second):
		t.Fatal("Worker never picked up the first export")
	}

	// Second export occupies the single queue slot.
	if err := writer.Enqueue(&export.Export{}); err != nil {
		t.Fatalf("Failed to enqueue second export: %v", err)
	}

	// Third must be rejected.
	if err := writer.Enqueue(&export.Export{}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}

	close(store.block)
	writer.Stop()

	// Both accepted exports were written in full once unblocked.
	if got := len(store.recorded()); got != 10 {
		t.Errorf("Expected 10 operations across two exports, got %d", got)
	}
}

func TestWriter_StopDrainsQueue(t *testing.T) {
	store := newFakeStore("draining")
	writer := NewWriter([]storage.Store{store}, discardLogger(), WithWorkers(1))

	for i := 0; i < 3; i++ {
		if err := writer.Enqueue(&export.Export{}); err != nil {
			t.Fatalf("Failed to enqueue export %d: %v", i, err)
		}
	}
	writer.Stop()

	if got := len(store.recorded()); got != 15 {
		t.Errorf("Expected 15 operations for three drained exports, got %d", got)
	}

	// Stop is idempotent.
	writer.Stop()
}
