package state

import (
	"sort"

	"tradebook/internal/model/enum"
	"tradebook/internal/schema"

	"github.com/shopspring/decimal"
)

// PositionReducer tracks the signed net quantity per group, long positive.
// The ledger keeps one alongside its lot queues as an independent check.
type PositionReducer struct {
	positions map[schema.GroupKey]decimal.Decimal
}

// NewPositionReducer creates an empty reducer.
func NewPositionReducer() *PositionReducer {
	return &PositionReducer{positions: make(map[schema.GroupKey]decimal.Decimal)}
}

// ApplyFill updates the position and returns the new quantity.
func (r *PositionReducer) ApplyFill(fill schema.Fill) float64 {
	return r.applyExact(fill).InexactFloat64()
}

func (r *PositionReducer) applyExact(fill schema.Fill) decimal.Decimal {
	key := fill.Key()
	next := r.positions[key]
	switch fill.Side {
	case enum.SideBuy:
		next = next.Add(decimal.NewFromFloat(fill.Qty))
	case enum.SideSell:
		next = next.Sub(decimal.NewFromFloat(fill.Qty))
	}
	r.positions[key] = next
	return next
}

// ApplyTrades folds enriched trades back into positions.
func (r *PositionReducer) ApplyTrades(trades []schema.EnrichedTrade) {
	for _, t := range trades {
		r.ApplyFill(schema.Fill{
			Venue:   t.Venue,
			Account: t.Account,
			Symbol:  t.Symbol,
			Side:    t.Side,
			Qty:     t.Qty,
		})
	}
}

// Position returns the current net quantity for a group.
func (r *PositionReducer) Position(key schema.GroupKey) float64 {
	return r.positions[key].InexactFloat64()
}

// Count returns the number of tracked groups.
func (r *PositionReducer) Count() int {
	return len(r.positions)
}

// Entries lists groups with a non-flat position, ordered by key.
func (r *PositionReducer) Entries() []PositionEntry {
	entries := make([]PositionEntry, 0, len(r.positions))
	for key, net := range r.positions {
		if net.Abs().LessThanOrEqual(epsilonQty) {
			continue
		}
		entries = append(entries, PositionEntry{
			Venue:   key.Venue,
			Account: key.Account,
			Symbol:  key.Symbol,
			Qty:     net.InexactFloat64(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key().String() < entries[j].Key().String()
	})
	return entries
}

// FlatPrefix returns how many leading fills of a sorted group end in a flat
// position at a fill no later than before. Replaying the rest on its own
// gives the same trades, since no lot survives the cut. Invalid fills never
// touch the lots and do not move the position.
func FlatPrefix(fills []schema.Fill, before int64) int {
	var net decimal.Decimal
	cut := 0
	for i, f := range fills {
		if f.Timestamp > before {
			break
		}
		if !f.Valid() {
			continue
		}
		qty := decimal.NewFromFloat(f.Qty)
		if f.Side == enum.SideSell {
			qty = qty.Neg()
		}
		net = net.Add(qty)
		if net.Abs().LessThanOrEqual(epsilonQty) {
			cut = i + 1
		}
	}
	return cut
}

// PositionEntry is the net position of one group.
type PositionEntry struct {
	Venue   string  `json:"venue"`
	Account string  `json:"account"`
	Symbol  string  `json:"symbol"`
	Qty     float64 `json:"qty"`
}

func (e PositionEntry) Key() schema.GroupKey {
	return schema.GroupKey{Venue: e.Venue, Account: e.Account, Symbol: e.Symbol}
}
