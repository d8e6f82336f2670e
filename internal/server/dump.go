package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// dumpTimeFormat keeps dumped files lexically sorted by receipt time.
const dumpTimeFormat = "20060102-150405.000"

// HandleDump writes the raw request body to a timestamped file in the
// configured dump directory, skipping the decoder entirely. It exists to
// capture payloads from new exporter versions before the decoder
// understands them.
func (h *Handler) HandleDump(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Errorf("reading request body: %w", err))
		return
	}

	name := fmt.Sprintf("export-%s.json", time.Now().UTC().Format(dumpTimeFormat))
	path := filepath.Join(h.dumpDir, name)

	if err := os.WriteFile(path, body, 0o644); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Errorf("dumping request body: %w", err))
		return
	}

	h.logger.Info("dumped upload",
		slog.String("file", path),
		slog.String("size", humanize.Bytes(uint64(len(body)))))

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Dumped %s to %s.\n", humanize.Bytes(uint64(len(body))), name)
}
