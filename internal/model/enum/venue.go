package enum

import "strings"

// Venue selects the payload shape a raw message is parsed with.
type Venue uint8

const (
	_venue_beg Venue = iota
	VenueGeneric
	VenueHyperliquid
	VenueBinance
	VenueBybit
	_venue_end
)

func (v Venue) IsAvailable() bool {
	return v > _venue_beg && v < _venue_end
}

func (v Venue) String() string {
	switch v {
	case VenueGeneric:
		return "generic"
	case VenueHyperliquid:
		return "hyperliquid"
	case VenueBinance:
		return "binance"
	case VenueBybit:
		return "bybit"
	default:
		return ""
	}
}

// ParseVenue maps a venue tag to its enum value. Unknown tags return false.
func ParseVenue(name string) (Venue, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "generic":
		return VenueGeneric, true
	case "hyperliquid", "hl":
		return VenueHyperliquid, true
	case "binance":
		return VenueBinance, true
	case "bybit":
		return VenueBybit, true
	default:
		return _venue_beg, false
	}
}
