package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/healthsink/healthsink/internal/storage"
)

const uploadBody = `{
	"data": {
		"metrics": [
			{"name": "heart_rate", "units": "bpm", "data": [{"date": "2024-01-01 08:00:00 +0000", "qty": 65}]},
			{"name": "step_count", "units": "count", "data": []}
		]
	}
}`

func newTestHandler(t *testing.T, store storage.Store, options ...func(*Handler)) (*Handler, *Writer) {
	t.Helper()

	writer := NewWriter([]storage.Store{store}, discardLogger())
	t.Cleanup(writer.Stop)
	return NewHandler(writer, discardLogger(), options...), writer
}

func TestHandler_Upload(t *testing.T) {
	store := newFakeStore("test")
	handler, writer := newTestHandler(t, store)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(uploadBody))
	rr := httptest.NewRecorder()
	handler.HandleUpload(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	expected := "Processing request. Received 2 metrics (1 populated), 1 samples, 0 workouts, 0 state of mind entries and 0 ECG recordings.\n"
	if rr.Body.String() != expected {
		t.Errorf("Expected body %q, got %q", expected, rr.Body.String())
	}

	// The write happens on the pool after the response has been sent.
	writer.Stop()
	if got := len(store.recorded()); got != 5 {
		t.Errorf("Expected 5 store operations after drain, got %d", got)
	}
}

func TestHandler_UploadEmptyExport(t *testing.T) {
	handler, _ := newTestHandler(t, newFakeStore("test"))

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	handler.HandleUpload(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	expected := "Processing request. Received 0 metrics (0 populated), 0 samples, 0 workouts, 0 state of mind entries and 0 ECG recordings.\n"
	if rr.Body.String() != expected {
		t.Errorf("Expected body %q, got %q", expected, rr.Body.String())
	}
}

func TestHandler_UploadInvalidJSON(t *testing.T) {
	store := newFakeStore("test")
	handler, writer := newTestHandler(t, store)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{not json`))
	rr := httptest.NewRecorder()
	handler.HandleUpload(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Body.String(), "ERROR: ") {
		t.Errorf("Expected ERROR prefix, got %q", rr.Body.String())
	}

	// A rejected body must never reach the stores.
	writer.Stop()
	if got := len(store.recorded()); got != 0 {
		t.Errorf("Expected no store operations, got %d", got)
	}
}

func TestHandler_UploadQueueFull(t *testing.T) {
	store := newFakeStore("slow")
	store.block = make(chan struct{})

	writer := NewWriter([]storage.Store{store}, discardLogger(),
		WithWorkers(1), WithQueueSize(1))
	handler := NewHandler(writer, discardLogger())

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		handler.HandleUpload(rr, req)
		return rr
	}

	// Occupy the worker, then the queue slot.
	if rr := post(); rr.Code != http.StatusOK {
		t.Fatalf("Expected first upload accepted, got %d", rr.Code)
	}
	select {
	case <-store.started:
	case <-time.After(5 * time.Second):
		t.Fatal("Worker never picked up the first export")
	}
	if rr := post(); rr.Code != http.StatusOK {
		t.Fatalf("Expected second upload accepted, got %d", rr.Code)
	}

	rr := post()
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Body.String(), "ERROR: ") {
		t.Errorf("Expected ERROR prefix, got %q", rr.Body.String())
	}
	if !errors.Is(writer.Enqueue(nil), ErrQueueFull) {
		t.Error("Expected the queue to still be full")
	}

	close(store.block)
	writer.Stop()
}

func TestRouter_Healthz(t *testing.T) {
	handler, _ := newTestHandler(t, newFakeStore("test"))
	router := NewRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "ok\n" {
		t.Errorf("Expected ok body, got %q", rr.Body.String())
	}
}

func TestRouter_UploadRejectsGet(t *testing.T) {
	handler, _ := newTestHandler(t, newFakeStore("test"))
	router := NewRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rr.Code)
	}
}

func TestRouter_DumpDisabledWithoutDirectory(t *testing.T) {
	handler, _ := newTestHandler(t, newFakeStore("test"))
	router := NewRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestHandler_Dump(t *testing.T) {
	dir := t.TempDir()
	handler, _ := newTestHandler(t, newFakeStore("test"), WithDumpDir(dir))
	router := NewRouter(handler)

	body := `{"data": {"metrics": []}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dump directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 dumped file, got %d", len(entries))
	}

	dumped, err := os.ReadFile(dir + "/" + entries[0].Name())
	if err != nil {
		t.Fatalf("Failed to read dumped file: %v", err)
	}
	if string(dumped) != body {
		t.Errorf("Expected dumped body %q, got %q", body, string(dumped))
	}
	if !strings.Contains(rr.Body.String(), entries[0].Name()) {
		t.Errorf("Expected response to name the dumped file, got %q", rr.Body.String())
	}
}
