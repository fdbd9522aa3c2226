package model

import (
	"bytes"
	"encoding/json"
)

// Timestamp is a fix's capture time in the form the SDK sent it. The Android
// SDK emits a formatted string; epoch numbers are kept as numbers so they
// re-encode unchanged.
type Timestamp struct {
	text    string
	numeric bool
}

// StringTimestamp returns a timestamp encoded as a JSON string.
func StringTimestamp(s string) Timestamp {
	return Timestamp{text: s}
}

// ParseTimestamp reads a raw JSON token. Absent or null tokens give the zero
// Timestamp; tokens that are neither strings nor numbers are kept as text.
func ParseTimestamp(raw []byte) Timestamp {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Timestamp{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Timestamp{text: s}
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return Timestamp{text: n.String(), numeric: true}
	}
	return Timestamp{text: string(raw)}
}

// String returns the timestamp text, without quotes for either form.
func (t Timestamp) String() string { return t.text }

// Numeric reports whether the SDK sent a number.
func (t Timestamp) Numeric() bool { return t.numeric }

// IsZero reports whether no timestamp was sent.
func (t Timestamp) IsZero() bool { return t.text == "" }

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.numeric {
		return []byte(t.text), nil
	}
	return json.Marshal(t.text)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = ParseTimestamp(data)
	return nil
}
