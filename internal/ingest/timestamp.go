package ingest

import "tradebook/internal/ingest/field"

// Epoch magnitude bands. A modern timestamp in one unit never falls into
// another unit's band, so the unit is read off the magnitude.
const (
	nanosFloor   = 1e17
	microsFloor  = 1e14
	secondsCeil  = 1e12
	plausibleMin = 946684800000  // 2000-01-01T00:00:00Z in ms
	plausibleMax = 4102444800000 // 2100-01-01T00:00:00Z in ms
)

// NormalizeTimestamp converts an epoch value of unknown unit to epoch
// milliseconds. It never fails; non-positive input yields 0.
func NormalizeTimestamp(raw int64) int64 {
	switch {
	case raw <= 0:
		return 0
	case raw > nanosFloor:
		return raw / 1_000_000
	case raw > microsFloor:
		return raw / 1_000
	case raw < secondsCeil:
		return raw * 1_000
	default:
		return raw
	}
}

// NormalizeTime is NormalizeTimestamp for a decoded venue time. The fraction
// of an epoch-seconds value is kept down to the millisecond; fractions of
// finer units are below a millisecond and dropped.
func NormalizeTime(t field.Time) int64 {
	ms := NormalizeTimestamp(t.Raw)
	if ms > 0 && t.Raw < secondsCeil && t.Frac.IsPositive() {
		ms += t.Frac.Shift(3).IntPart()
	}
	return ms
}

// TimestampPlausible reports whether a normalized timestamp lies in
// [2000, 2100). Values outside were either absent or classified into the
// wrong unit band and are flagged by callers.
func TimestampPlausible(ms int64) bool {
	return ms >= plausibleMin && ms < plausibleMax
}
