// Package field holds the scalar types venue payloads decode into. Venues
// disagree on whether numbers, ids and times are quoted; these types accept
// both and treat empty or malformed values as absent instead of failing the
// whole message.
package field

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var null = []byte("null")

// Number is a JSON number or numeric string.
type Number struct {
	Value decimal.Decimal
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	text := unquote(data)
	if text == "" {
		return nil
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return nil
	}
	n.Value = value
	n.Valid = true
	return nil
}

// Float returns the value, or 0 when absent.
func (n Number) Float() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value.InexactFloat64()
}

// Ptr returns a pointer to the value when present, zero included.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value.InexactFloat64()
	return &v
}

// NonZero returns a pointer to the value when present and non-zero.
func (n Number) NonZero() *float64 {
	if !n.Valid || n.Value.IsZero() {
		return nil
	}
	v := n.Value.InexactFloat64()
	return &v
}

// FirstNumber returns the first present number.
func FirstNumber(values ...Number) Number {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return Number{}
}

// Text is a JSON string or any other scalar kept as its literal text.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = Text(unquote(data))
	return nil
}

func (t Text) String() string {
	return string(t)
}

// FirstText returns the first non-empty text.
func FirstText(values ...Text) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

// Time is an epoch timestamp in an unknown unit, a numeric string, or an
// RFC3339 string. RFC3339 values are stored as epoch milliseconds. A
// fractional epoch keeps its integer part in Raw and the rest in Frac,
// since the unit and so the meaning of the fraction is not known yet.
type Time struct {
	Raw   int64
	Frac  decimal.Decimal
	Valid bool
}

func (t *Time) UnmarshalJSON(data []byte) error {
	*t = Time{}
	text := unquote(data)
	if text == "" {
		return nil
	}
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		t.Raw, t.Valid = v, true
		return nil
	}
	if d, err := decimal.NewFromString(text); err == nil {
		t.Raw, t.Valid = d.IntPart(), true
		t.Frac = d.Sub(decimal.NewFromInt(t.Raw))
		return nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, text); err == nil {
		t.Raw, t.Valid = ts.UnixMilli(), true
	}
	return nil
}

// FirstTime returns the first present time.
func FirstTime(values ...Time) Time {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return Time{}
}

func unquote(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, null) {
		return ""
	}
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		if s, err := strconv.Unquote(string(data)); err == nil {
			return strings.TrimSpace(s)
		}
		return strings.TrimSpace(string(data[1 : len(data)-1]))
	}
	return string(data)
}
