package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epco/stocksync/internal/domain/models"
)

func TestDate(t *testing.T) {
	want := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   any
		ok   bool
	}{
		{"iso", "2025-03-01", true},
		{"day first", "01.03.2025", true},
		{"day first short", "1.3.2025", true},
		{"iso with time", "2025-03-01T14:22:10", true},
		{"nbsp padded", "\u00a001.03.2025\u2007", true},
		{"null text", models.Text("2025-03-01"), true},
		{"nil", nil, false},
		{"empty", "   ", false},
		{"garbage", "yesterday", false},
		{"invalid null text", models.NullText{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Date(tc.in)
			if ok != tc.ok {
				t.Fatalf("Date(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			}
			if ok && !got.Equal(want) {
				t.Fatalf("Date(%q) = %v, want %v", tc.in, got, want)
			}
		})
	}
}

func TestDecimal(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"1 234,50", "1234.5"},
		{"1\u00a0234\u202f567,125", "1234567.125"},
		{"-12.5", "-12.5"},
		{"12 шт", "12"},
		{json.Number("42.75"), "42.75"},
		{float64(3.25), "3.25"},
		{7, "7"},
	}
	for _, tc := range cases {
		got := Decimal(tc.in)
		if !got.Valid {
			t.Fatalf("Decimal(%v) returned no value", tc.in)
		}
		if !got.Decimal.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("Decimal(%v) = %s, want %s", tc.in, got.Decimal, tc.want)
		}
	}
}

func TestDecimalNoValue(t *testing.T) {
	for _, in := range []any{nil, "", " ", "-", "—", "null", "NULL", "NaN", ".", "-.", "1.2.3", "abc"} {
		if got := Decimal(in); got.Valid {
			t.Fatalf("Decimal(%q) = %s, want no value", in, got.Decimal)
		}
	}
}

func TestInt(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{"65478", 65478},
		{" 65 478 ", 65478},
		{"12,9", 12},
		{"-3.7", -3},
		{"12.7", 12},
		{json.Number("15"), 15},
		{float64(8), 8},
	}
	for _, tc := range cases {
		got, ok := Int(tc.in)
		if !ok || got != tc.want {
			t.Fatalf("Int(%v) = %d, %v; want %d", tc.in, got, ok, tc.want)
		}
	}

	for _, in := range []any{nil, "", "nan", "—", "x", "1.2.3"} {
		if _, ok := Int(in); ok {
			t.Fatalf("Int(%q) should yield no value", in)
		}
	}
}

func TestPointersNilOnNoValue(t *testing.T) {
	if IntPtr("null") != nil {
		t.Fatal("IntPtr should be nil")
	}
	if DatePtr("not a date") != nil {
		t.Fatal("DatePtr should be nil")
	}
	if p := IntPtr("5"); p == nil || *p != 5 {
		t.Fatalf("IntPtr(5) = %v", p)
	}
}
