package models

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
)

// NullText is a nullable string decoded leniently from the upstream API.
// JSON strings are kept as-is, numbers keep their literal text and null
// (or a missing field) leaves the value invalid.
type NullText struct {
	sql.NullString
}

// Text builds a valid NullText.
func Text(s string) NullText {
	return NullText{sql.NullString{String: s, Valid: true}}
}

// Or returns the string when valid and fallback otherwise.
func (t NullText) Or(fallback string) string {
	if !t.Valid {
		return fallback
	}
	return t.String
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *NullText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = NullText{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case 't', 'f':
		b, err := strconv.ParseBool(string(data))
		if err != nil {
			return fmt.Errorf("decode text value %s: %w", data, err)
		}
		*t = Text(strconv.FormatBool(b))
	case '{', '[':
		return fmt.Errorf("decode text value: unexpected composite %s", data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = Text(n.String())
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t NullText) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.String)
}
