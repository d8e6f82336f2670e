package export

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the primary timestamp layout emitted by current exporter
// versions: date and clock time followed by a numeric UTC offset.
const DateLayout = "2006-01-02 15:04:05 -0700"

// dateLayouts holds every textual layout the exporter has emitted, newest
// first. Decoding tries them in order and the first match wins.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a point in time decoded from one of the exporter's textual
// layouts. Older app versions drop the UTC offset or send a bare date;
// both still decode, at reduced precision.
type Timestamp struct {
	t time.Time
}

// NewTimestamp wraps t in a Timestamp.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{t: t}
}

// UnmarshalJSON decodes a JSON string against dateLayouts. It fails only
// when no layout matches.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			ts.t = t
			return nil
		}
	}
	return fmt.Errorf("timestamp %q matches no known layout", s)
}

// MarshalJSON re-serializes the timestamp using the primary layout.
func (ts *Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.t.Format(DateLayout))
}

// Time returns the underlying time.Time.
func (ts *Timestamp) Time() time.Time {
	return ts.t
}

func (ts *Timestamp) String() string {
	return ts.t.Format(DateLayout)
}

// UnixTimestamp is a point in time decoded from a JSON number holding
// seconds since the Unix epoch. The fractional part carries sub-second
// precision. ECG voltage samples use this form.
type UnixTimestamp struct {
	t time.Time
}

// NewUnixTimestamp wraps t in a UnixTimestamp.
func NewUnixTimestamp(t time.Time) *UnixTimestamp {
	return &UnixTimestamp{t: t}
}

func (ts *UnixTimestamp) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	sec := int64(v)
	nsec := int64((v - float64(sec)) * float64(time.Second))
	ts.t = time.Unix(sec, nsec)
	return nil
}

func (ts *UnixTimestamp) MarshalJSON() ([]byte, error) {
	// Summing the integer seconds with the sub-second fraction keeps more
	// precision than dividing UnixNano, which overflows a float64 mantissa.
	v := float64(ts.t.Unix()) + float64(ts.t.Nanosecond())/float64(time.Second)
	return json.Marshal(v)
}

// Time returns the underlying time.Time.
func (ts *UnixTimestamp) Time() time.Time {
	return ts.t
}

func (ts *UnixTimestamp) String() string {
	return ts.t.Format(time.RFC3339Nano)
}
