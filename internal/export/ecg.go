package export

// ECG is one electrocardiogram recording. The exporter assigns it no
// identity of its own; stores derive one from the recording's content.
type ECG struct {
	Classification              string       `json:"classification"`
	Source                      string       `json:"source"`
	AverageHeartRate            float64      `json:"averageHeartRate"`
	Start                       *Timestamp   `json:"start"`
	End                         *Timestamp   `json:"end"`
	NumberOfVoltageMeasurements int          `json:"numberOfVoltageMeasurements"`
	SamplingFrequency           int          `json:"samplingFrequency"`
	VoltageMeasurements         []ECGVoltage `json:"voltageMeasurements"`
}

// ECGVoltage is a single voltage reading. Date may be absent; stores then
// synthesize a timestamp from the recording's start time and sampling
// frequency.
type ECGVoltage struct {
	Date    *UnixTimestamp `json:"date"`
	Voltage float64        `json:"voltage"`
	Units   string         `json:"units"`
}
