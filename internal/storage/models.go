package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/healthsink/healthsink/internal/export"
)

// idNamespace is the fixed UUIDv5 namespace for identities derived from
// record content. It must never change, or re-uploaded recordings would
// stop overwriting their earlier rows.
var idNamespace = uuid.MustParse("f2b1c9d4-51a6-4f4e-9c30-8ae1d7f0b6a2")

type metricRow struct {
	Timestamp   time.Time
	Name        string
	Unit        string
	Type        export.MetricType
	Qty         float64
	Max         float64
	Min         float64
	Avg         float64
	Asleep      float64
	InBed       float64
	SleepSource string
	InBedSource string
}

type workoutRow struct {
	ID                uuid.UUID
	Name              string
	Location          string
	Start             time.Time
	End               time.Time
	Duration          float64
	ActiveEnergyQty   float64
	ActiveEnergyUnits string
	DistanceQty       float64
	DistanceUnits     string
	IntensityQty      float64
	IntensityUnits    string
	HumidityQty       float64
	HumidityUnits     string
	TemperatureQty    float64
	TemperatureUnits  string
	ElevationUpQty    float64
	ElevationUpUnits  string
}

type routeRow struct {
	WorkoutID          uuid.UUID
	Timestamp          time.Time
	Lat                float64
	Lon                float64
	Altitude           float64
	Course             float64
	VerticalAccuracy   float64
	HorizontalAccuracy float64
	CourseAccuracy     float64
	Speed              float64
	SpeedAccuracy      float64
}

type heartRateRow struct {
	WorkoutID uuid.UUID
	Timestamp time.Time
	Qty       float64
	Min       float64
	Max       float64
	Avg       float64
	Units     string
	Source    string
}

type qtyLogRow struct {
	WorkoutID uuid.UUID
	Timestamp time.Time
	Qty       float64
	Units     string
	Source    string
}

type stateOfMindRow struct {
	ID                    uuid.UUID
	Start                 time.Time
	End                   time.Time
	Valence               float64
	ValenceClassification string
	Kind                  string
	Labels                []string
	Associations          []string
}

type ecgRow struct {
	ID                          uuid.UUID
	Classification              string
	Source                      string
	AverageHeartRate            float64
	Start                       time.Time
	End                         time.Time
	NumberOfVoltageMeasurements int
	SamplingFrequency           int
}

type ecgVoltageRow struct {
	ECGID       uuid.UUID
	SampleIndex uint32
	Timestamp   time.Time
	Voltage     float64
	Units       string
}

// skippedRecord describes a record dropped during row building, so stores
// can surface the drop in their logs instead of losing it silently.
type skippedRecord struct {
	Category string
	Key      string
	Reason   string
}

// workoutRows groups the per-table row slices one batch of workouts
// flattens into.
type workoutRows struct {
	workouts  []workoutRow
	routes    []routeRow
	heartRate []heartRateRow
	recovery  []heartRateRow
	steps     []qtyLogRow
	distance  []qtyLogRow
	energy    []qtyLogRow
	skipped   []skippedRecord
}

// buildMetricRows flattens every (metric, sample) pair into one row.
// Samples without a timestamp are stamped with now(); value slots the
// sample shape does not carry stay zero. A sample shape this switch does
// not know is skipped with a reason rather than stored as all zeros.
func buildMetricRows(metrics []export.Metric, now func() time.Time) ([]metricRow, []skippedRecord) {
	var rows []metricRow
	var skipped []skippedRecord
	for _, m := range metrics {
		metricType := export.LookupMetricType(m.Name)
		for _, sample := range m.Samples {
			row := metricRow{
				Name: m.Name,
				Unit: m.Units,
				Type: metricType,
			}
			if ts := sample.Timestamp(); ts != nil {
				row.Timestamp = ts.Time()
			} else {
				row.Timestamp = now()
			}

			switch s := sample.(type) {
			case *export.QtySample:
				row.Qty = s.Qty
			case *export.MinMaxAvgSample:
				row.Min = s.Min
				row.Max = s.Max
				row.Avg = s.Avg
			case *export.SleepSample:
				row.Asleep = s.Asleep
				row.InBed = s.InBed
				row.SleepSource = s.SleepSource
				row.InBedSource = s.InBedSource
			default:
				skipped = append(skipped, skippedRecord{
					Category: "metric",
					Key:      m.Name,
					Reason:   fmt.Sprintf("unhandled sample shape %T", sample),
				})
				continue
			}

			rows = append(rows, row)
		}
	}
	return rows, skipped
}

// buildWorkoutRows flattens workouts and their child timeseries into
// per-table row slices. A workout whose id is missing or not a UUID is
// skipped together with its children; children lacking their own timestamp
// inherit the workout start.
func buildWorkoutRows(workouts []export.Workout, now func() time.Time) workoutRows {
	var out workoutRows
	for _, w := range workouts {
		if w.ID == "" {
			out.skipped = append(out.skipped, skippedRecord{
				Category: "workout",
				Key:      w.Name,
				Reason:   "missing workout id",
			})
			continue
		}
		id, err := uuid.Parse(w.ID)
		if err != nil {
			out.skipped = append(out.skipped, skippedRecord{
				Category: "workout",
				Key:      w.Name,
				Reason:   fmt.Sprintf("invalid workout id %q", w.ID),
			})
			continue
		}

		start := timeOrDefault(w.Start, now)
		end := timeOrDefault(w.End, now)

		out.workouts = append(out.workouts, workoutRow{
			ID:                id,
			Name:              w.Name,
			Location:          w.Location,
			Start:             start,
			End:               end,
			Duration:          w.Duration,
			ActiveEnergyQty:   w.ActiveEnergyBurned.Qty,
			ActiveEnergyUnits: w.ActiveEnergyBurned.Units,
			DistanceQty:       w.Distance.Qty,
			DistanceUnits:     w.Distance.Units,
			IntensityQty:      w.Intensity.Qty,
			IntensityUnits:    w.Intensity.Units,
			HumidityQty:       w.Humidity.Qty,
			HumidityUnits:     w.Humidity.Units,
			TemperatureQty:    w.Temperature.Qty,
			TemperatureUnits:  w.Temperature.Units,
			ElevationUpQty:    w.ElevationUp.Qty,
			ElevationUpUnits:  w.ElevationUp.Units,
		})

		for _, p := range w.Route {
			out.routes = append(out.routes, routeRow{
				WorkoutID:          id,
				Timestamp:          timeOrDefault(p.Timestamp, func() time.Time { return start }),
				Lat:                p.Lat,
				Lon:                p.Lon,
				Altitude:           p.Altitude,
				Course:             p.Course,
				VerticalAccuracy:   p.VerticalAccuracy,
				HorizontalAccuracy: p.HorizontalAccuracy,
				CourseAccuracy:     p.CourseAccuracy,
				Speed:              p.Speed,
				SpeedAccuracy:      p.SpeedAccuracy,
			})
		}

		out.heartRate = append(out.heartRate, heartRateRows(id, start, w.HeartRateData)...)
		out.recovery = append(out.recovery, heartRateRows(id, start, w.HeartRateRecovery)...)
		out.steps = append(out.steps, qtyLogRows(id, start, w.StepCount)...)
		out.distance = append(out.distance, qtyLogRows(id, start, w.WalkingAndRunningDistance)...)
		out.energy = append(out.energy, qtyLogRows(id, start, w.ActiveEnergy)...)
	}
	return out
}

func heartRateRows(workoutID uuid.UUID, start time.Time, logs []export.HeartRateLog) []heartRateRow {
	rows := make([]heartRateRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, heartRateRow{
			WorkoutID: workoutID,
			Timestamp: timeOrDefault(l.Date, func() time.Time { return start }),
			Qty:       l.Qty,
			Min:       l.Min,
			Max:       l.Max,
			Avg:       l.Avg,
			Units:     l.Units,
			Source:    l.Source,
		})
	}
	return rows
}

func qtyLogRows(workoutID uuid.UUID, start time.Time, logs []export.QtyLog) []qtyLogRow {
	rows := make([]qtyLogRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, qtyLogRow{
			WorkoutID: workoutID,
			Timestamp: timeOrDefault(l.Date, func() time.Time { return start }),
			Qty:       l.Qty,
			Units:     l.Units,
			Source:    l.Source,
		})
	}
	return rows
}

// buildStateOfMindRows converts mood entries to rows. Entries missing
// either timestamp are dropped with a reason. An entry without a usable id
// gets a deterministic one derived from its content, keeping re-uploads
// idempotent.
func buildStateOfMindRows(entries []export.StateOfMind) ([]stateOfMindRow, []skippedRecord) {
	var rows []stateOfMindRow
	var skipped []skippedRecord
	for _, e := range entries {
		if e.Start == nil || e.End == nil {
			skipped = append(skipped, skippedRecord{
				Category: "state of mind",
				Key:      e.ID,
				Reason:   "missing start or end timestamp",
			})
			continue
		}

		id, err := uuid.Parse(e.ID)
		if err != nil {
			id = uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("som|%s|%d|%d|%g",
				e.Kind, e.Start.Time().Unix(), e.End.Time().Unix(), e.Valence)))
		}

		rows = append(rows, stateOfMindRow{
			ID:                    id,
			Start:                 e.Start.Time(),
			End:                   e.End.Time(),
			Valence:               e.Valence,
			ValenceClassification: e.ValenceClassification,
			Kind:                  e.Kind,
			Labels:                e.Labels,
			Associations:          e.Associations,
		})
	}
	return rows, skipped
}

// buildECGRows converts recordings and their voltage samples to rows. The
// recording id is a UUIDv5 over the recording's content, so the same
// recording re-uploaded maps to the same rows. Voltage samples without a
// date get one synthesized from the start time and sampling frequency,
// walking forward 1/frequency seconds per index.
func buildECGRows(recordings []export.ECG, now func() time.Time) ([]ecgRow, []ecgVoltageRow) {
	var rows []ecgRow
	var voltages []ecgVoltageRow
	for _, e := range recordings {
		start := timeOrDefault(e.Start, now)
		end := timeOrDefault(e.End, now)

		count := e.NumberOfVoltageMeasurements
		if count == 0 {
			count = len(e.VoltageMeasurements)
		}

		id := uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("ecg|%s|%s|%g|%d|%d|%d|%d",
			e.Classification, e.Source, e.AverageHeartRate,
			start.Unix(), end.Unix(), e.SamplingFrequency, count)))

		rows = append(rows, ecgRow{
			ID:                          id,
			Classification:              e.Classification,
			Source:                      e.Source,
			AverageHeartRate:            e.AverageHeartRate,
			Start:                       start,
			End:                         end,
			NumberOfVoltageMeasurements: count,
			SamplingFrequency:           e.SamplingFrequency,
		})

		for i, vm := range e.VoltageMeasurements {
			ts := start
			switch {
			case vm.Date != nil:
				ts = vm.Date.Time()
			case e.SamplingFrequency > 0:
				interval := time.Second / time.Duration(e.SamplingFrequency)
				ts = start.Add(time.Duration(i) * interval)
			}

			voltages = append(voltages, ecgVoltageRow{
				ECGID:       id,
				SampleIndex: uint32(i),
				Timestamp:   ts,
				Voltage:     vm.Voltage,
				Units:       vm.Units,
			})
		}
	}
	return rows, voltages
}
