package storage

import (
	"strings"
	"testing"
)

func TestBuildInsertSQL(t *testing.T) {
	testCases := []struct {
		name     string
		verb     string
		columns  []string
		rows     int
		settings string
		want     string
	}{
		{
			name:    "single row",
			verb:    "INSERT",
			columns: []string{"a", "b"},
			rows:    1,
			want:    "INSERT INTO t (a, b) VALUES (?, ?)",
		},
		{
			name:    "multiple rows",
			verb:    "INSERT OR REPLACE",
			columns: []string{"a", "b", "c"},
			rows:    2,
			want:    "INSERT OR REPLACE INTO t (a, b, c) VALUES (?, ?, ?), (?, ?, ?)",
		},
		{
			name:     "with settings",
			verb:     "INSERT",
			columns:  []string{"a"},
			rows:     1,
			settings: "async_insert=1, wait_for_async_insert=0",
			want:     "INSERT INTO t (a) SETTINGS async_insert=1, wait_for_async_insert=0 VALUES (?)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := buildInsertSQL(tc.verb, "t", tc.columns, tc.rows, tc.settings)
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBuildInsertSQL_QuotedColumns(t *testing.T) {
	got := buildInsertSQL("INSERT", "workouts", []string{"id", `"end"`}, 1, "")
	if !strings.Contains(got, `(id, "end")`) {
		t.Errorf("Expected reserved column to stay quoted, got %q", got)
	}
}

func TestPlaceholderGroup(t *testing.T) {
	if got := placeholderGroup(1); got != "(?)" {
		t.Errorf("Expected (?), got %q", got)
	}
	if got := placeholderGroup(4); got != "(?, ?, ?, ?)" {
		t.Errorf("Expected four placeholders, got %q", got)
	}
}

func TestBatchArgs(t *testing.T) {
	rows := []metricRow{
		{Name: "heart_rate", Qty: 1},
		{Name: "step_count", Qty: 2},
	}

	args := batchArgs(rows, metricRow.args)
	if len(args) != 2*len(metricColumns) {
		t.Fatalf("Expected %d args, got %d", 2*len(metricColumns), len(args))
	}
	if args[1] != "heart_rate" || args[len(metricColumns)+1] != "step_count" {
		t.Errorf("Expected rows flattened in order, got %v and %v", args[1], args[len(metricColumns)+1])
	}

	if got := batchArgs(nil, metricRow.args); got != nil {
		t.Errorf("Expected nil for no rows, got %v", got)
	}
}

func TestSplitStatements(t *testing.T) {
	schema := `
CREATE TABLE a (x INTEGER);

CREATE TABLE b (y INTEGER);
`
	stmts := splitStatements(schema)
	if len(stmts) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(stmts))
	}
	for i, stmt := range stmts {
		if !strings.HasPrefix(stmt, "CREATE TABLE") {
			t.Errorf("Statement %d: expected CREATE TABLE prefix, got %q", i, stmt)
		}
		if strings.ContainsAny(stmt, ";") {
			t.Errorf("Statement %d: expected no trailing semicolon, got %q", i, stmt)
		}
	}
}

func TestRowArgs_MatchColumns(t *testing.T) {
	testCases := []struct {
		name    string
		columns []string
		count   int
	}{
		{"metric", metricColumns, len(metricRow{}.args())},
		{"workout", workoutColumns, len(workoutRow{}.args())},
		{"route", routeColumns, len(routeRow{}.args())},
		{"heart rate", heartRateColumns, len(heartRateRow{}.args())},
		{"qty log", qtyLogColumns, len(qtyLogRow{}.args())},
		{"state of mind", stateOfMindColumns, len(stateOfMindRow{}.args(func(v []string) any { return v }))},
		{"ecg", ecgColumns, len(ecgRow{}.args())},
		{"ecg voltage", ecgVoltageColumns, len(ecgVoltageRow{}.args())},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if len(tc.columns) != tc.count {
				t.Errorf("Expected %d args for %d columns", tc.count, len(tc.columns))
			}
		})
	}
}
