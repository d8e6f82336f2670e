package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/healthsink/healthsink/internal/export"
)

// SqliteStore persists export data into a local SQLite database. Replacing
// semantics come from INSERT OR REPLACE against the same primary keys the
// ClickHouse schema uses, so both backends deduplicate identically.
type SqliteStore struct {
	dbPath string
	storeOptions

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore opens the database file, applies the schema, and returns
// the store. The parent directory must exist.
func NewSqliteStore(dbPath string, opts ...Option) (*SqliteStore, error) {
	s := &SqliteStore{dbPath: dbPath, storeOptions: defaultStoreOptions()}
	for _, opt := range opts {
		opt(&s.storeOptions)
	}

	if _, err := s.getWriteDB(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SqliteStore) Name() string { return "sqlite" }

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, sqliteSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

// withTx runs fn inside a write transaction, rolling back on error.
func (s *SqliteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SqliteStore) StoreMetrics(ctx context.Context, metrics []export.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	rows, skipped := buildMetricRows(metrics, s.now)
	logSkipped(s.logger, skipped)
	s.logger.Info("inserting metric samples",
		slog.Int("metrics", len(metrics)), slog.Int("rows", len(rows)))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", defaultMetricsTable, metricColumns,
			rows, metricRow.args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting metrics: %w", err)
		}
		return nil
	})
}

func (s *SqliteStore) StoreWorkouts(ctx context.Context, workouts []export.Workout) error {
	if len(workouts) == 0 {
		return nil
	}

	rows := buildWorkoutRows(workouts, s.now)
	logSkipped(s.logger, rows.skipped)
	s.logger.Info("inserting workouts",
		slog.Int("workouts", len(rows.workouts)),
		slog.Int("route_points", len(rows.routes)),
		slog.Int("skipped", len(rows.skipped)))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", workoutsTable, workoutColumns,
			rows.workouts, workoutRow.args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting workouts: %w", err)
		}
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", routesTable, routeColumns,
			rows.routes, routeRow.args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting route points: %w", err)
		}
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", heartRateDataTable, heartRateColumns,
			rows.heartRate, heartRateRow.args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting heart rate data: %w", err)
		}
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", heartRateRecoveryTable, heartRateColumns,
			rows.recovery, heartRateRow.args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting heart rate recovery: %w", err)
		}
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", stepCountTable, qtyLogColumns,
			rows.steps, qtyLogRow.args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting step count log: %w", err)
		}
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", walkingRunningTable, qtyLogColumns,
			rows.distance, qtyLogRow.args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting walking and running distance: %w", err)
		}
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", activeEnergyTable, qtyLogColumns,
			rows.energy, qtyLogRow.args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting active energy: %w", err)
		}
		return nil
	})
}

func (s *SqliteStore) StoreStateOfMind(ctx context.Context, entries []export.StateOfMind) error {
	if len(entries) == 0 {
		return nil
	}

	rows, skipped := buildStateOfMindRows(entries)
	logSkipped(s.logger, skipped)
	s.logger.Info("inserting state of mind entries",
		slog.Int("rows", len(rows)), slog.Int("skipped", len(skipped)))

	args := func(r stateOfMindRow) []any {
		return r.args(jsonArray)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", stateOfMindTable, stateOfMindColumns,
			rows, args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting state of mind: %w", err)
		}
		return nil
	})
}

// jsonArray renders a string list as JSON text, SQLite's stand-in for
// ClickHouse's Array(String) columns.
func jsonArray(v []string) any {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func (s *SqliteStore) StoreECG(ctx context.Context, recordings []export.ECG) error {
	if len(recordings) == 0 {
		return nil
	}

	rows, voltages := buildECGRows(recordings, s.now)
	s.logger.Info("inserting ECG recordings",
		slog.Int("recordings", len(rows)), slog.Int("voltage_rows", len(voltages)))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", ecgTable, ecgColumns,
			rows, ecgRow.args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting ECG recordings: %w", err)
		}
		if err := insertRows(ctx, tx, "INSERT OR REPLACE", ecgVoltageTable, ecgVoltageColumns,
			voltages, ecgVoltageRow.args, s.maxBatchSize, ""); err != nil {
			return fmt.Errorf("inserting ECG voltage samples: %w", err)
		}
		return nil
	})
}

// OptimizeTables nudges SQLite's query planner statistics and truncates
// the WAL. INSERT OR REPLACE already collapsed duplicate keys, so there is
// no merge debt to pay off the way ClickHouse has.
func (s *SqliteStore) OptimizeTables(ctx context.Context) error {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("optimizing: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpointing WAL: %w", err)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, "PRAGMA optimize")

			s.closeErr = s.writeDB.Close()
			s.writeDB = nil
		}
	})
	return s.closeErr
}
