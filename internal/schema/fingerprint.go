package schema

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fillNamespace scopes the name-based ids minted for fills without a venue id.
var fillNamespace = uuid.MustParse("6f1c8f52-3a7e-4d2b-9c41-0b8e5d7a2f10")

// FormatFixed renders v with 10 decimals so equal quantities always print
// the same way regardless of how the float was produced.
func FormatFixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(10)
}

// Fingerprint is the content identity of a fill at second resolution:
// venue|symbol|side|price|qty|seconds. Two fills sharing it are treated as
// the same execution by the deduplicator.
func (f Fill) Fingerprint() string {
	var sb strings.Builder
	sb.Grow(64)
	sb.WriteString(f.Venue)
	sb.WriteByte('|')
	sb.WriteString(f.Symbol)
	sb.WriteByte('|')
	sb.WriteString(f.Side.String())
	sb.WriteByte('|')
	sb.WriteString(FormatFixed(f.Price))
	sb.WriteByte('|')
	sb.WriteString(FormatFixed(f.Qty))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatInt(f.Timestamp/1000, 10))
	return sb.String()
}

// MintID derives a stable id from the fill content. The account and the
// millisecond timestamp are part of the name, so fills that differ only
// below one second still get distinct ids.
func (f Fill) MintID() string {
	name := f.Account + "|" + f.Fingerprint() + "|" + strconv.FormatInt(f.Timestamp, 10)
	return uuid.NewSHA1(fillNamespace, []byte(name)).String()
}
