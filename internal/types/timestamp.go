package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layouts for ISO-8601 timestamps written without a zone offset, such as
// 2025-11-10T12:34:56.123456. The fraction is optional.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an RFC 3339 timestamp, or an ISO-8601 one without a
// zone, which is read as local time. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	for _, layout := range zonelessLayouts {
		if t, zerr := time.ParseInLocation(layout, s, time.Local); zerr == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
}

// decodeTimestamp reads a JSON string (or null) into a time via ParseTimestamp.
func decodeTimestamp(raw *string) (time.Time, error) {
	if raw == nil {
		return time.Time{}, nil
	}
	return ParseTimestamp(*raw)
}

// UnmarshalJSON accepts timestamps with or without a zone offset.
func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	aux := struct {
		*plain
		Timestamp *string `json:"timestamp"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := decodeTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	p.Timestamp = ts
	return nil
}

// UnmarshalJSON accepts timestamps with or without a zone offset.
func (r *RunResult) UnmarshalJSON(data []byte) error {
	type plain RunResult
	aux := struct {
		*plain
		Timestamp *string `json:"timestamp"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := decodeTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	r.Timestamp = ts
	return nil
}
