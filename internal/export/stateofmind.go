package export

import (
	"encoding/json"
	"fmt"
	"time"
)

// StateOfMind is one mood-logging entry. Unlike every other category the
// exporter serializes its timestamps as RFC 3339 with a Z suffix, so this
// type carries its own decoder.
type StateOfMind struct {
	ID                    string     `json:"id,omitempty"`
	Kind                  string     `json:"kind"`
	Valence               float64    `json:"valence"`
	ValenceClassification string     `json:"valenceClassification"`
	Labels                []string   `json:"labels"`
	Associations          []string   `json:"associations"`
	Start                 *Timestamp `json:"start"`
	End                   *Timestamp `json:"end"`
}

func (s *StateOfMind) UnmarshalJSON(b []byte) error {
	type stateOfMind StateOfMind

	aux := struct {
		Start string `json:"start"`
		End   string `json:"end"`
		*stateOfMind
	}{
		stateOfMind: (*stateOfMind)(s),
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	if aux.Start != "" {
		t, err := time.Parse(time.RFC3339, aux.Start)
		if err != nil {
			return fmt.Errorf("state of mind start: %w", err)
		}
		s.Start = NewTimestamp(t)
	}
	if aux.End != "" {
		t, err := time.Parse(time.RFC3339, aux.End)
		if err != nil {
			return fmt.Errorf("state of mind end: %w", err)
		}
		s.End = NewTimestamp(t)
	}
	return nil
}
