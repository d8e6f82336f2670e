package storage

import (
	_ "embed"
	"strings"
)

const (
	defaultMetricsTable    = "metrics"
	workoutsTable          = "workouts"
	stateOfMindTable       = "state_of_mind"
	routesTable            = "workout_routes"
	heartRateDataTable     = "workout_heart_rate_data"
	heartRateRecoveryTable = "workout_heart_rate_recovery"
	stepCountTable         = "workout_step_count_log"
	walkingRunningTable    = "workout_walking_running_distance"
	activeEnergyTable      = "workout_active_energy"
	ecgTable               = "ecg"
	ecgVoltageTable        = "ecg_voltage"
)

var (
	metricColumns = []string{
		"timestamp", "metric_name", "metric_unit", "metric_type",
		"qty", "max", "min", "avg",
		"asleep", "in_bed", "sleep_source", "in_bed_source",
	}
	// "end" is double-quoted because SQLite reserves it; ClickHouse
	// accepts the ANSI quoting too.
	workoutColumns = []string{
		"id", "name", "location", "start", `"end"`, "duration",
		"active_energy_qty", "active_energy_units",
		"distance_qty", "distance_units",
		"intensity_qty", "intensity_units",
		"humidity_qty", "humidity_units",
		"temperature_qty", "temperature_units",
		"elevation_up_qty", "elevation_up_units",
	}
	routeColumns = []string{
		"workout_id", "timestamp", "lat", "lon", "altitude",
		"course", "vertical_accuracy", "horizontal_accuracy",
		"course_accuracy", "speed", "speed_accuracy",
	}
	heartRateColumns   = []string{"workout_id", "timestamp", "qty", "min", "max", "avg", "units", "source"}
	qtyLogColumns      = []string{"workout_id", "timestamp", "qty", "units", "source"}
	stateOfMindColumns = []string{"id", "start", `"end"`, "valence", "valence_classification", "kind", "labels", "associations"}
	ecgColumns         = []string{
		"id", "classification", "source", "average_heart_rate",
		"start", `"end"`, "number_of_voltage_measurements", "sampling_frequency",
	}
	ecgVoltageColumns = []string{"ecg_id", "sample_index", "timestamp", "voltage", "units"}
)

//go:embed clickhouse_schema.sql
var clickhouseSchemaSQL string

//go:embed sqlite_schema.sql
var sqliteSchemaSQL string

// buildInsertSQL renders a multi-row INSERT with one placeholder group per
// row. settings, when non-empty, is spliced in as a ClickHouse SETTINGS
// clause; verb selects between plain INSERT and SQLite's INSERT OR REPLACE.
func buildInsertSQL(verb, table string, columns []string, rows int, settings string) string {
	var sb strings.Builder
	sb.WriteString(verb)
	sb.WriteString(" INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(")")
	if settings != "" {
		sb.WriteString(" SETTINGS ")
		sb.WriteString(settings)
	}
	sb.WriteString(" VALUES ")

	group := placeholderGroup(len(columns))
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(group)
	}
	return sb.String()
}

func placeholderGroup(n int) string {
	var sb strings.Builder
	sb.WriteString("(")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("?")
	}
	sb.WriteString(")")
	return sb.String()
}

// batchArgs flattens the bind arguments of a chunk of rows into the order
// buildInsertSQL lays its placeholders out in.
func batchArgs[T any](rows []T, args func(T) []any) []any {
	if len(rows) == 0 {
		return nil
	}
	out := make([]any, 0, len(rows)*len(args(rows[0])))
	for _, r := range rows {
		out = append(out, args(r)...)
	}
	return out
}

// splitStatements breaks a rendered schema into individual statements.
// ClickHouse executes one statement per call, unlike SQLite which accepts
// the whole file at once.
func splitStatements(schema string) []string {
	var stmts []string
	for _, s := range strings.Split(schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func (r metricRow) args() []any {
	return []any{
		r.Timestamp, r.Name, r.Unit, string(r.Type),
		r.Qty, r.Max, r.Min, r.Avg,
		r.Asleep, r.InBed, r.SleepSource, r.InBedSource,
	}
}

func (r workoutRow) args() []any {
	return []any{
		r.ID.String(), r.Name, r.Location, r.Start, r.End, r.Duration,
		r.ActiveEnergyQty, r.ActiveEnergyUnits,
		r.DistanceQty, r.DistanceUnits,
		r.IntensityQty, r.IntensityUnits,
		r.HumidityQty, r.HumidityUnits,
		r.TemperatureQty, r.TemperatureUnits,
		r.ElevationUpQty, r.ElevationUpUnits,
	}
}

func (r routeRow) args() []any {
	return []any{
		r.WorkoutID.String(), r.Timestamp, r.Lat, r.Lon, r.Altitude,
		r.Course, r.VerticalAccuracy, r.HorizontalAccuracy,
		r.CourseAccuracy, r.Speed, r.SpeedAccuracy,
	}
}

func (r heartRateRow) args() []any {
	return []any{r.WorkoutID.String(), r.Timestamp, r.Qty, r.Min, r.Max, r.Avg, r.Units, r.Source}
}

func (r qtyLogRow) args() []any {
	return []any{r.WorkoutID.String(), r.Timestamp, r.Qty, r.Units, r.Source}
}

// args for state of mind rows takes an array converter because backends
// disagree on how to store string lists: ClickHouse has Array(String),
// SQLite gets JSON text.
func (r stateOfMindRow) args(arrays func([]string) any) []any {
	return []any{
		r.ID.String(), r.Start, r.End, r.Valence,
		r.ValenceClassification, r.Kind,
		arrays(r.Labels), arrays(r.Associations),
	}
}

func (r ecgRow) args() []any {
	return []any{
		r.ID.String(), r.Classification, r.Source, r.AverageHeartRate,
		r.Start, r.End, uint32(r.NumberOfVoltageMeasurements), uint32(r.SamplingFrequency),
	}
}

func (r ecgVoltageRow) args() []any {
	return []any{r.ECGID.String(), r.SampleIndex, r.Timestamp, r.Voltage, r.Units}
}
