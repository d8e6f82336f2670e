package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/healthsink/healthsink/internal/export"
)

// Handler serves the export ingest endpoints. Decoding happens on the
// request path; persistence is handed to the write pool so the exporter
// app gets its response before any store is touched.
type Handler struct {
	writer  *Writer
	logger  *slog.Logger
	dumpDir string
}

// WithDumpDir enables the dump variant: POST / writes the raw request body
// into dir without decoding it.
func WithDumpDir(dir string) func(*Handler) {
	return func(h *Handler) {
		h.dumpDir = dir
	}
}

// NewHandler creates a Handler backed by the given write pool.
func NewHandler(writer *Writer, logger *slog.Logger, options ...func(*Handler)) *Handler {
	h := Handler{
		writer: writer,
		logger: logger,
	}

	for _, option := range options {
		option(&h)
	}

	return &h
}

// NewRouter wires the handler's routes. The dump route is only registered
// when a dump directory is configured.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/upload", h.HandleUpload).Methods(http.MethodPost)
	router.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)
	if h.dumpDir != "" {
		router.HandleFunc("/", h.HandleDump).Methods(http.MethodPost)
	}
	return router
}

// HandleUpload accepts one export payload. The response reports what was
// received and that processing has started; it says nothing about write
// completion, which happens later on the pool.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Errorf("reading request body: %w", err))
		return
	}

	h.logger.Info("received upload",
		slog.String("user_agent", r.UserAgent()),
		slog.String("size", humanize.Bytes(uint64(len(body)))))

	data, err := export.Parse(body)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}

	if err := h.writer.Enqueue(data); err != nil {
		if errors.Is(err, ErrQueueFull) {
			h.respondError(w, http.StatusServiceUnavailable, err)
			return
		}
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}

	populated := len(data.PopulatedMetrics())
	h.logger.Info("accepted upload",
		slog.Int("metrics", len(data.Metrics)),
		slog.Int("populated", populated),
		slog.Int("samples", data.TotalSamples()),
		slog.Int("workouts", len(data.Workouts)),
		slog.Int("state_of_mind", len(data.StateOfMind)),
		slog.Int("ecg", len(data.ECG)))

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Processing request. Received %d metrics (%d populated), %d samples, %d workouts, %d state of mind entries and %d ECG recordings.\n",
		len(data.Metrics), populated, data.TotalSamples(),
		len(data.Workouts), len(data.StateOfMind), len(data.ECG))
}

// HandleHealth is the liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok\n")
}

func (h *Handler) respondError(w http.ResponseWriter, status int, err error) {
	h.logger.Error("rejecting upload", slog.Any("error", err))

	w.WriteHeader(status)
	fmt.Fprintf(w, "ERROR: %s\n", err.Error())
}
