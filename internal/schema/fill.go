package schema

import (
	"sort"

	"tradebook/internal/model/enum"
)

// Fill is one canonical execution produced by the normalizer.
type Fill struct {
	// ID is the stable identity of the fill: the venue trade id, else the
	// execution id, else a name-based UUID of the content fingerprint.
	ID string `json:"id"`

	Venue     string    `json:"venue"`
	Account   string    `json:"account"`
	RawSymbol string    `json:"rawSymbol"`
	Symbol    string    `json:"symbol"`
	Side      enum.Side `json:"side"`
	Price     float64   `json:"price"`
	Qty       float64   `json:"qty"`
	Timestamp int64     `json:"timestamp"` // epoch milliseconds

	Fee     float64 `json:"fee,omitempty"`
	Funding float64 `json:"funding,omitempty"`

	TradeID string `json:"tradeId,omitempty"`
	ExecID  string `json:"execId,omitempty"`
	OrderID string `json:"orderId,omitempty"`

	// RealizedPnl is set whenever the venue reported a value, zero included.
	RealizedPnl *float64 `json:"realizedPnl,omitempty"`
	// ExitPrice, EntryTime and ExitTime are venue supplied close hints.
	ExitPrice *float64 `json:"exitPrice,omitempty"`
	EntryTime int64    `json:"entryTime,omitempty"`
	ExitTime  int64    `json:"exitTime,omitempty"`

	Direction string `json:"direction,omitempty"`
}

// Key returns the group the fill is replayed in.
func (f Fill) Key() GroupKey {
	return GroupKey{Venue: f.Venue, Account: f.Account, Symbol: f.Symbol}
}

// NativeID returns the first non-empty venue id in trade, execution, order order.
func (f Fill) NativeID() string {
	switch {
	case f.TradeID != "":
		return f.TradeID
	case f.ExecID != "":
		return f.ExecID
	default:
		return f.OrderID
	}
}

// HasCloseHint reports whether the venue itself flagged the fill as closing.
// A reported zero pnl is not a hint; some venues send it on every opening fill.
func (f Fill) HasCloseHint() bool {
	return (f.RealizedPnl != nil && *f.RealizedPnl != 0) || f.ExitPrice != nil || f.ExitTime > 0
}

// Valid reports whether the fill can take part in a replay.
func (f Fill) Valid() bool {
	return f.Price > 0 && f.Qty > 0 && f.Symbol != "" && f.Side.IsAvailable()
}

// GroupKey identifies one independent replay partition.
type GroupKey struct {
	Venue   string
	Account string
	Symbol  string
}

func (k GroupKey) String() string {
	return k.Venue + "|" + k.Account + "|" + k.Symbol
}

// FillLess orders fills ascending by timestamp, then id. The remaining
// fields only break ties between fills that share both.
func FillLess(a, b Fill) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	if a.Side != b.Side {
		return a.Side < b.Side
	}
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.Qty < b.Qty
}

// SortFills sorts fills into replay order in place.
func SortFills(fills []Fill) {
	sort.SliceStable(fills, func(i, j int) bool {
		return FillLess(fills[i], fills[j])
	})
}
