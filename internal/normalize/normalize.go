// Package normalize turns loosely formatted upstream values into typed ones.
//
// Upstream values are localized inconsistently (Cyrillic locale number
// formatting, mixed date formats), so every function here is total: a value
// that cannot be understood yields "no value" instead of an error.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epco/stocksync/internal/domain/models"
)

// ISODate is the canonical date layout used for storage and identifiers.
const ISODate = "2006-01-02"

var exoticSpaces = strings.NewReplacer(
	"\u00a0", " ", // no-break space
	"\u202f", " ", // narrow no-break space
	"\u2007", " ", // figure space
)

var (
	nonDecimalChars = regexp.MustCompile(`[^0-9.\-]`)
	dateLayouts     = []string{"2006-1-2", "2.1.2006"}
	dateTimeLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"20060102",
	}
)

// Text renders a raw value as a cleaned string. The boolean is false when the
// value is absent.
func Text(v any) (string, bool) {
	raw, ok := rawText(v)
	if !ok {
		return "", false
	}
	return clean(raw), true
}

// Date parses ISO (YYYY-MM-DD) or day-first (DD.MM.YYYY) dates from the first
// ten characters, falling back to an ISO datetime prefix.
func Date(v any) (time.Time, bool) {
	s, ok := Text(v)
	if !ok || s == "" {
		return time.Time{}, false
	}

	head := prefix(s, 10)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, head); err == nil {
			return t, true
		}
	}

	head = prefix(s, 19)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, head); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// Decimal parses locale formatted numbers such as "1 234,50".
func Decimal(v any) decimal.NullDecimal {
	s, ok := numeric(v)
	if !ok {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Int parses an integer, truncating a fractional value when needed.
func Int(v any) (int64, bool) {
	s, ok := numeric(v)
	if !ok {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// IntPtr is Int returning nil for no value.
func IntPtr(v any) *int64 {
	n, ok := Int(v)
	if !ok {
		return nil
	}
	return &n
}

// DatePtr is Date returning nil for no value.
func DatePtr(v any) *time.Time {
	t, ok := Date(v)
	if !ok {
		return nil
	}
	return &t
}

func numeric(v any) (string, bool) {
	s, ok := Text(v)
	if !ok {
		return "", false
	}
	switch strings.ToLower(s) {
	case "", "null", "nan", "-", "—":
		return "", false
	}

	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = nonDecimalChars.ReplaceAllString(s, "")
	switch s {
	case "", "-", ".", "-.", ".-":
		return "", false
	}
	return s, true
}

func rawText(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case models.NullText:
		return val.String, val.Valid
	case *models.NullText:
		if val == nil {
			return "", false
		}
		return val.String, val.Valid
	case json.Number:
		return val.String(), true
	case float64:
		if math.IsNaN(val) {
			return "", false
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

func clean(s string) string {
	return strings.TrimSpace(exoticSpaces.Replace(s))
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
