package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// NaiveLayout is the zone-less ISO 8601 form the analysis service writes
// for datetimes it takes from the server's local clock.
const NaiveLayout = "2006-01-02T15:04:05.999999999"

// Timestamp is a service datetime. Both RFC 3339 and naive values decode;
// naive ones are read in the local zone and keep their form when encoded
// again.
type Timestamp struct {
	time.Time
	Naive bool
}

// NaiveTimestamp wraps t so it encodes without a zone offset.
func NaiveTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Naive: true}
}

// ParseTimestamp accepts RFC 3339 (with or without fractional seconds) and
// NaiveLayout.
func ParseTimestamp(s string) (Timestamp, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{Time: t}, nil
	}
	t, err := time.ParseInLocation(NaiveLayout, s, time.Local)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return Timestamp{Time: t, Naive: true}, nil
}

// String formats ts the way it came off the wire.
func (ts Timestamp) String() string {
	if ts.Naive {
		return ts.Time.Format(NaiveLayout)
	}
	return ts.Time.Format(time.RFC3339Nano)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.String())
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
