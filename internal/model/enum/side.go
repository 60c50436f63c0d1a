package enum

import "strings"

// Side buy, sell
type Side uint8

const (
	_side_beg Side = iota
	SideBuy
	SideSell
	_side_end
)

func (s Side) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return ""
	}
}

// Opposite returns the side that closes exposure opened by s.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return s
	}
}

// ParseSide accepts the spellings venues use for a side flag:
// buy/sell, b/a (bid/ask), bid/ask, long/short, in any case.
func ParseSide(text string) Side {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "buy", "b", "bid", "long":
		return SideBuy
	case "sell", "s", "a", "ask", "short":
		return SideSell
	default:
		return _side_beg
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	*s = ParseSide(string(text))
	return nil
}
