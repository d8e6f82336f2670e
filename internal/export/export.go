// Package export decodes Health Auto Export request payloads into typed
// records.
//
// The exporter's JSON dialect is loose. Quantity fields arrive as an object
// or a single-element array depending on app version, timestamps come in
// several historical layouts, and metric samples are a union of three shapes
// distinguished only by which fields are present. Decoding tolerates all of
// that and ignores unknown fields, so exporter schema growth does not break
// older servers.
package export

import (
	"encoding/json"
	"fmt"
)

// Export is the root aggregate of one upload: every record category the
// exporter ships in a single request body.
type Export struct {
	Metrics     []Metric      `json:"metrics"`
	Workouts    []Workout     `json:"workouts"`
	StateOfMind []StateOfMind `json:"stateOfMind"`
	ECG         []ECG         `json:"ecg"`
}

// Parse decodes a request body of the shape {"data": {...}}. Every category
// array is optional; a body with none of them yields an empty Export, not
// an error.
func Parse(b []byte) (*Export, error) {
	var req struct {
		Data Export `json:"data"`
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("decoding export payload: %w", err)
	}
	return &req.Data, nil
}

// PopulatedMetrics returns the metrics carrying at least one sample. The
// exporter routinely sends every configured metric name and leaves most
// data arrays empty.
func (e *Export) PopulatedMetrics() []Metric {
	populated := make([]Metric, 0, len(e.Metrics))
	for _, m := range e.Metrics {
		if len(m.Samples) > 0 {
			populated = append(populated, m)
		}
	}
	return populated
}

// TotalSamples returns the number of samples summed over all metrics.
func (e *Export) TotalSamples() int {
	var n int
	for _, m := range e.Metrics {
		n += len(m.Samples)
	}
	return n
}
