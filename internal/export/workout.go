package export

import (
	"encoding/json"
)

// Workout is one recorded workout session together with its nested
// timeseries. ID is a UUID assigned by current exporter versions and keys
// every child record; exports predating it leave ID empty.
type Workout struct {
	ID                        string         `json:"id,omitempty"`
	Name                      string         `json:"name,omitempty"`
	Location                  string         `json:"location,omitempty"`
	Start                     *Timestamp     `json:"start,omitempty"`
	End                       *Timestamp     `json:"end,omitempty"`
	Duration                  float64        `json:"duration,omitempty"`
	ActiveEnergyBurned        Quantity       `json:"activeEnergyBurned,omitempty"`
	Intensity                 Quantity       `json:"intensity,omitempty"`
	Humidity                  Quantity       `json:"humidity,omitempty"`
	Distance                  Quantity       `json:"distance,omitempty"`
	Temperature               Quantity       `json:"temperature,omitempty"`
	ElevationUp               Quantity       `json:"elevationUp,omitempty"`
	Route                     []RoutePoint   `json:"route,omitempty"`
	HeartRateData             []HeartRateLog `json:"heartRateData,omitempty"`
	HeartRateRecovery         []HeartRateLog `json:"heartRateRecovery,omitempty"`
	StepCount                 []QtyLog       `json:"stepCount,omitempty"`
	WalkingAndRunningDistance []QtyLog       `json:"walkingAndRunningDistance,omitempty"`
	ActiveEnergy              []QtyLog       `json:"activeEnergy,omitempty"`
}

// Quantity is a measured value with its unit. Depending on app version the
// exporter emits it as an object or as a single-element array; both decode
// to the same value.
type Quantity struct {
	Qty   float64 `json:"qty"`
	Units string  `json:"units"`
}

// UnmarshalJSON accepts an object, then an array taking the first element.
// When both fail, the object decode error is the one reported.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	type quantity Quantity

	var obj quantity
	if err := json.Unmarshal(b, &obj); err == nil {
		*q = Quantity(obj)
		return nil
	}

	var arr []quantity
	if err := json.Unmarshal(b, &arr); err == nil && len(arr) > 0 {
		*q = Quantity(arr[0])
		return nil
	}

	return json.Unmarshal(b, (*quantity)(q))
}

// RoutePoint is one GPS fix on a workout route.
type RoutePoint struct {
	Lat                float64    `json:"latitude"`
	Lon                float64    `json:"longitude"`
	Altitude           float64    `json:"altitude"`
	Timestamp          *Timestamp `json:"timestamp"`
	Course             float64    `json:"course,omitempty"`
	VerticalAccuracy   float64    `json:"verticalAccuracy,omitempty"`
	HorizontalAccuracy float64    `json:"horizontalAccuracy,omitempty"`
	CourseAccuracy     float64    `json:"courseAccuracy,omitempty"`
	Speed              float64    `json:"speed,omitempty"`
	SpeedAccuracy      float64    `json:"speedAccuracy,omitempty"`
}

// QtyLog is one entry of a quantity timeseries attached to a workout, such
// as step count or active energy.
type QtyLog struct {
	Qty    float64    `json:"qty"`
	Units  string     `json:"units"`
	Source string     `json:"source"`
	Date   *Timestamp `json:"date"`
}

// HeartRateLog is one entry of a workout heart-rate timeseries. Recent
// exporter versions emit Min/Max/Avg, older ones a plain qty; the unused
// fields stay zero.
type HeartRateLog struct {
	Min    float64    `json:"Min,omitempty"`
	Max    float64    `json:"Max,omitempty"`
	Avg    float64    `json:"Avg,omitempty"`
	Qty    float64    `json:"qty,omitempty"`
	Units  string     `json:"units"`
	Source string     `json:"source,omitempty"`
	Date   *Timestamp `json:"date"`
}
