package schema

import (
	"sort"

	"tradebook/internal/model/enum"
)

// EnrichedTrade is the position-accounting record emitted for every fill.
type EnrichedTrade struct {
	ID        string    `json:"id"`
	Venue     string    `json:"venue"`
	Account   string    `json:"account"`
	Symbol    string    `json:"symbol"`
	RawSymbol string    `json:"rawSymbol"`
	Side      enum.Side `json:"side"`
	Price     float64   `json:"price"`
	Qty       float64   `json:"qty"`
	Timestamp int64     `json:"timestamp"`

	EntryPrice  float64  `json:"entryPrice"`
	ExitPrice   *float64 `json:"exitPrice,omitempty"`
	EntryTime   int64    `json:"entryTime"`
	ExitTime    *int64   `json:"exitTime,omitempty"`
	HoldTime    *int64   `json:"holdTime,omitempty"`
	RealizedPnl float64  `json:"realizedPnl"`
	ClosedQty   float64  `json:"closedQty"`
	OpenedQty   float64  `json:"openedQty"`
	IsOpen      bool     `json:"isOpen"`

	Fee       float64 `json:"fee"`
	Funding   float64 `json:"funding"`
	Direction string  `json:"direction,omitempty"`
}

// NewRawTrade copies the raw fill fields and leaves every computed field empty.
func NewRawTrade(f Fill) EnrichedTrade {
	return EnrichedTrade{
		ID:        f.ID,
		Venue:     f.Venue,
		Account:   f.Account,
		Symbol:    f.Symbol,
		RawSymbol: f.RawSymbol,
		Side:      f.Side,
		Price:     f.Price,
		Qty:       f.Qty,
		Timestamp: f.Timestamp,
		Fee:       f.Fee,
		Funding:   f.Funding,
		Direction: f.Direction,
	}
}

// Key returns the group the trade was replayed in.
func (t EnrichedTrade) Key() GroupKey {
	return GroupKey{Venue: t.Venue, Account: t.Account, Symbol: t.Symbol}
}

// SortTradesForDisplay orders trades newest first, id descending on ties.
func SortTradesForDisplay(trades []EnrichedTrade) {
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp > trades[j].Timestamp
		}
		if trades[i].ID != trades[j].ID {
			return trades[i].ID > trades[j].ID
		}
		return trades[i].Key().String() > trades[j].Key().String()
	})
}
