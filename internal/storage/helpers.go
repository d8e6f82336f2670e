package storage

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/healthsink/healthsink/internal/export"
)

// rollbackWithError is deferred right after BeginTx; once Commit has run the
// rollback reports ErrTxDone, which is not an error here.
func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

// timeOrDefault unwraps ts, falling back to fallback() when the wire
// carried no timestamp.
func timeOrDefault(ts *export.Timestamp, fallback func() time.Time) time.Time {
	if ts != nil {
		return ts.Time()
	}
	return fallback()
}

// logSkipped surfaces records dropped during row building. Dropping is a
// per-record decision and never an error, so the log line is the only
// trace of it.
func logSkipped(logger *slog.Logger, skipped []skippedRecord) {
	for _, s := range skipped {
		logger.Warn("skipping record",
			slog.String("category", s.Category),
			slog.String("key", s.Key),
			slog.String("reason", s.Reason))
	}
}
