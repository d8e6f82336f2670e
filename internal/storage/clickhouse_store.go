package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/healthsink/healthsink/internal/export"
)

// asyncInsertSettings makes ClickHouse acknowledge inserts before merging
// them, which keeps upload latency flat under load.
const asyncInsertSettings = "async_insert=1, wait_for_async_insert=0"

// ClickHouseConfig carries the connection settings for a ClickHouseStore.
type ClickHouseConfig struct {
	// DSN is a clickhouse:// connection string.
	DSN string

	// Database is created on startup if missing and prefixes every table.
	Database string

	// MetricsTable overrides the metrics table name. Empty means
	// "metrics".
	MetricsTable string

	// CreateTables applies the schema on startup when true.
	CreateTables bool
}

// ClickHouseStore persists export data into ClickHouse ReplacingMergeTree
// tables.
type ClickHouseStore struct {
	cfg ClickHouseConfig
	storeOptions

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewClickHouseStore connects to ClickHouse, applies the schema when
// configured to, and returns the store. The connection is verified with a
// ping so misconfiguration surfaces at startup, not at the first upload.
func NewClickHouseStore(cfg ClickHouseConfig, opts ...Option) (*ClickHouseStore, error) {
	if cfg.MetricsTable == "" {
		cfg.MetricsTable = defaultMetricsTable
	}

	s := &ClickHouseStore{cfg: cfg, storeOptions: defaultStoreOptions()}
	for _, opt := range opts {
		opt(&s.storeOptions)
	}

	if _, err := s.getDB(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ClickHouseStore) Name() string { return "clickhouse" }

func (s *ClickHouseStore) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("clickhouse", s.cfg.DSN)
		if err != nil {
			s.dbErr = fmt.Errorf("opening clickhouse connection: %w", err)
			return
		}

		if err = db.Ping(); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("pinging clickhouse: %w", err)
			return
		}

		if s.cfg.CreateTables {
			if err = initClickHouseSchema(db, s.cfg.Database, s.cfg.MetricsTable); err != nil {
				_ = db.Close()
				s.dbErr = fmt.Errorf("initializing schema: %w", err)
				return
			}
		}

		s.db = db
	})

	return s.db, s.dbErr
}

// initClickHouseSchema renders the embedded DDL for the target database
// and runs it statement by statement; ClickHouse does not accept
// multi-statement scripts over the driver.
func initClickHouseSchema(db *sql.DB, database, metricsTable string) error {
	schema := strings.ReplaceAll(clickhouseSchemaSQL, "{{database}}", database)
	schema = strings.ReplaceAll(schema, "{{metrics_table}}", metricsTable)

	for _, stmt := range splitStatements(schema) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("running schema statement: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStore) table(name string) string {
	return s.cfg.Database + "." + name
}

// allTables lists every table the store owns, in the order OptimizeTables
// compacts them.
func (s *ClickHouseStore) allTables() []string {
	return []string{
		s.cfg.MetricsTable,
		workoutsTable,
		stateOfMindTable,
		routesTable,
		heartRateDataTable,
		heartRateRecoveryTable,
		stepCountTable,
		walkingRunningTable,
		activeEnergyTable,
		ecgTable,
		ecgVoltageTable,
	}
}

func (s *ClickHouseStore) StoreMetrics(ctx context.Context, metrics []export.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}

	rows, skipped := buildMetricRows(metrics, s.now)
	logSkipped(s.logger, skipped)
	s.logger.Info("inserting metric samples",
		slog.Int("metrics", len(metrics)), slog.Int("rows", len(rows)))

	if err := insertRows(ctx, db, "INSERT", s.table(s.cfg.MetricsTable), metricColumns,
		rows, metricRow.args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting metrics: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) StoreWorkouts(ctx context.Context, workouts []export.Workout) error {
	if len(workouts) == 0 {
		return nil
	}

	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}

	rows := buildWorkoutRows(workouts, s.now)
	logSkipped(s.logger, rows.skipped)
	s.logger.Info("inserting workouts",
		slog.Int("workouts", len(rows.workouts)),
		slog.Int("route_points", len(rows.routes)),
		slog.Int("skipped", len(rows.skipped)))

	if err := insertRows(ctx, db, "INSERT", s.table(workoutsTable), workoutColumns,
		rows.workouts, workoutRow.args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting workouts: %w", err)
	}
	if err := insertRows(ctx, db, "INSERT", s.table(routesTable), routeColumns,
		rows.routes, routeRow.args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting route points: %w", err)
	}
	if err := insertRows(ctx, db, "INSERT", s.table(heartRateDataTable), heartRateColumns,
		rows.heartRate, heartRateRow.args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting heart rate data: %w", err)
	}
	if err := insertRows(ctx, db, "INSERT", s.table(heartRateRecoveryTable), heartRateColumns,
		rows.recovery, heartRateRow.args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting heart rate recovery: %w", err)
	}
	if err := insertRows(ctx, db, "INSERT", s.table(stepCountTable), qtyLogColumns,
		rows.steps, qtyLogRow.args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting step count log: %w", err)
	}
	if err := insertRows(ctx, db, "INSERT", s.table(walkingRunningTable), qtyLogColumns,
		rows.distance, qtyLogRow.args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting walking and running distance: %w", err)
	}
	if err := insertRows(ctx, db, "INSERT", s.table(activeEnergyTable), qtyLogColumns,
		rows.energy, qtyLogRow.args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting active energy: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) StoreStateOfMind(ctx context.Context, entries []export.StateOfMind) error {
	if len(entries) == 0 {
		return nil
	}

	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}

	rows, skipped := buildStateOfMindRows(entries)
	logSkipped(s.logger, skipped)
	s.logger.Info("inserting state of mind entries",
		slog.Int("rows", len(rows)), slog.Int("skipped", len(skipped)))

	args := func(r stateOfMindRow) []any {
		return r.args(func(v []string) any { return v })
	}
	if err := insertRows(ctx, db, "INSERT", s.table(stateOfMindTable), stateOfMindColumns,
		rows, args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting state of mind: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) StoreECG(ctx context.Context, recordings []export.ECG) error {
	if len(recordings) == 0 {
		return nil
	}

	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}

	rows, voltages := buildECGRows(recordings, s.now)
	s.logger.Info("inserting ECG recordings",
		slog.Int("recordings", len(rows)), slog.Int("voltage_rows", len(voltages)))

	if err := insertRows(ctx, db, "INSERT", s.table(ecgTable), ecgColumns,
		rows, ecgRow.args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting ECG recordings: %w", err)
	}
	if err := insertRows(ctx, db, "INSERT", s.table(ecgVoltageTable), ecgVoltageColumns,
		voltages, ecgVoltageRow.args, s.maxBatchSize, asyncInsertSettings); err != nil {
		return fmt.Errorf("inserting ECG voltage samples: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) OptimizeTables(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}

	for _, table := range s.allTables() {
		query := fmt.Sprintf("OPTIMIZE TABLE %s FINAL", s.table(table))
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("optimizing table %s: %w", table, err)
		}
	}

	s.logger.Info("optimized tables", slog.Int("tables", len(s.allTables())))
	return nil
}

func (s *ClickHouseStore) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			s.closeErr = s.db.Close()
			s.db = nil
		}
	})
	return s.closeErr
}

// execContext is the common surface of *sql.DB and *sql.Tx the batch
// inserter needs.
type execContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertRows writes rows in chunks of at most batchSize, one multi-row
// INSERT per chunk. An empty slice is a no-op.
func insertRows[T any](ctx context.Context, ec execContext, verb, table string, columns []string, rows []T, args func(T) []any, batchSize int, settings string) error {
	for chunk := range slices.Chunk(rows, batchSize) {
		query := buildInsertSQL(verb, table, columns, len(chunk), settings)
		if _, err := ec.ExecContext(ctx, query, batchArgs(chunk, args)...); err != nil {
			return err
		}
	}
	return nil
}
