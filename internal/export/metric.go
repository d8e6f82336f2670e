package export

import (
	"encoding/json"
	"fmt"
)

// Sample is one data point of a Metric. The exporter emits three shapes,
// distinguished only by which optional fields are populated; decoding
// selects exactly one concrete type per point. Value fields the wire left
// out are zero, never null.
type Sample interface {
	// Timestamp returns the point's own timestamp, or nil when the
	// exporter omitted it.
	Timestamp() *Timestamp

	sealed()
}

// QtySample is a plain quantity reading, the most common shape.
type QtySample struct {
	Date *Timestamp `json:"date"`
	Qty  float64    `json:"qty"`
}

func (s *QtySample) Timestamp() *Timestamp { return s.Date }
func (s *QtySample) sealed()               {}

// MinMaxAvgSample is a ranged reading. The exporter capitalizes these
// three keys; matching is case-insensitive so older lowercase payloads
// decode too.
type MinMaxAvgSample struct {
	Date *Timestamp `json:"date"`
	Min  float64    `json:"Min"`
	Max  float64    `json:"Max"`
	Avg  float64    `json:"Avg"`
}

func (s *MinMaxAvgSample) Timestamp() *Timestamp { return s.Date }
func (s *MinMaxAvgSample) sealed()               {}

// SleepSample is a sleep-analysis reading with separate asleep and in-bed
// durations and their reporting sources.
type SleepSample struct {
	Date        *Timestamp `json:"date"`
	Asleep      float64    `json:"asleep"`
	InBed       float64    `json:"inBed"`
	SleepSource string     `json:"sleepSource"`
	InBedSource string     `json:"inBedSource"`
}

func (s *SleepSample) Timestamp() *Timestamp { return s.Date }
func (s *SleepSample) sealed()               {}

// Metric is a named series of samples sharing a unit.
type Metric struct {
	Name    string
	Units   string
	Samples []Sample
}

// UnmarshalJSON decodes the metric header and detects the shape of every
// element of the data array.
func (m *Metric) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name  string            `json:"name"`
		Units string            `json:"units"`
		Data  []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	samples := make([]Sample, 0, len(raw.Data))
	for i, d := range raw.Data {
		s, err := decodeSample(d)
		if err != nil {
			return fmt.Errorf("metric %q: sample %d: %w", raw.Name, i, err)
		}
		samples = append(samples, s)
	}

	m.Name = raw.Name
	m.Units = raw.Units
	m.Samples = samples
	return nil
}

// decodeSample probes which optional fields a point populates and builds
// the matching Sample. Sleep fields take precedence over range fields,
// range fields over a plain quantity; a point with none of them is a
// zero-quantity QtySample.
func decodeSample(b []byte) (Sample, error) {
	var probe struct {
		Date        *Timestamp `json:"date"`
		Qty         *float64   `json:"qty"`
		Min         *float64   `json:"Min"`
		Max         *float64   `json:"Max"`
		Avg         *float64   `json:"Avg"`
		Asleep      *float64   `json:"asleep"`
		InBed       *float64   `json:"inBed"`
		SleepSource *string    `json:"sleepSource"`
		InBedSource *string    `json:"inBedSource"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, err
	}

	switch {
	case probe.Asleep != nil || probe.InBed != nil || probe.SleepSource != nil || probe.InBedSource != nil:
		s := &SleepSample{Date: probe.Date}
		if probe.Asleep != nil {
			s.Asleep = *probe.Asleep
		}
		if probe.InBed != nil {
			s.InBed = *probe.InBed
		}
		if probe.SleepSource != nil {
			s.SleepSource = *probe.SleepSource
		}
		if probe.InBedSource != nil {
			s.InBedSource = *probe.InBedSource
		}
		return s, nil

	case probe.Min != nil || probe.Max != nil || probe.Avg != nil:
		s := &MinMaxAvgSample{Date: probe.Date}
		if probe.Min != nil {
			s.Min = *probe.Min
		}
		if probe.Max != nil {
			s.Max = *probe.Max
		}
		if probe.Avg != nil {
			s.Avg = *probe.Avg
		}
		return s, nil

	default:
		s := &QtySample{Date: probe.Date}
		if probe.Qty != nil {
			s.Qty = *probe.Qty
		}
		return s, nil
	}
}
