package store

import (
	"context"
	"time"

	"tradebook/internal/model/enum"
	"tradebook/internal/schema"

	"github.com/yanun0323/errors"
	"gorm.io/gorm/clause"
)

const defaultBatchSize = 500

// TradeRow is the persisted form of an enriched trade. A row is keyed by
// the group and the fill id, so a resync overwrites instead of appending.
type TradeRow struct {
	Venue       string `gorm:"primaryKey;size:32"`
	Account     string `gorm:"primaryKey;size:128"`
	Symbol      string `gorm:"primaryKey;size:64"`
	TradeID     string `gorm:"primaryKey;column:trade_id;size:128"`
	RawSymbol   string `gorm:"size:64"`
	Side        string `gorm:"size:8"`
	Price       float64
	Qty         float64
	TradedAt    int64 `gorm:"index"`
	EntryPrice  float64
	ExitPrice   *float64
	EntryTime   int64
	ExitTime    *int64
	HoldTime    *int64
	RealizedPnl float64
	ClosedQty   float64
	OpenedQty   float64
	IsOpen      bool
	Fee         float64
	Funding     float64
	Direction   string `gorm:"size:32"`
	UpdatedAt   time.Time
}

func (TradeRow) TableName() string {
	return "enriched_trades"
}

// NewTradeRow converts a trade into its row form.
func NewTradeRow(t schema.EnrichedTrade) TradeRow {
	return TradeRow{
		Venue:       t.Venue,
		Account:     t.Account,
		Symbol:      t.Symbol,
		TradeID:     t.ID,
		RawSymbol:   t.RawSymbol,
		Side:        t.Side.String(),
		Price:       t.Price,
		Qty:         t.Qty,
		TradedAt:    t.Timestamp,
		EntryPrice:  t.EntryPrice,
		ExitPrice:   t.ExitPrice,
		EntryTime:   t.EntryTime,
		ExitTime:    t.ExitTime,
		HoldTime:    t.HoldTime,
		RealizedPnl: t.RealizedPnl,
		ClosedQty:   t.ClosedQty,
		OpenedQty:   t.OpenedQty,
		IsOpen:      t.IsOpen,
		Fee:         t.Fee,
		Funding:     t.Funding,
		Direction:   t.Direction,
	}
}

// Trade converts the row back into an enriched trade.
func (r TradeRow) Trade() schema.EnrichedTrade {
	return schema.EnrichedTrade{
		ID:          r.TradeID,
		Venue:       r.Venue,
		Account:     r.Account,
		Symbol:      r.Symbol,
		RawSymbol:   r.RawSymbol,
		Side:        enum.ParseSide(r.Side),
		Price:       r.Price,
		Qty:         r.Qty,
		Timestamp:   r.TradedAt,
		EntryPrice:  r.EntryPrice,
		ExitPrice:   r.ExitPrice,
		EntryTime:   r.EntryTime,
		ExitTime:    r.ExitTime,
		HoldTime:    r.HoldTime,
		RealizedPnl: r.RealizedPnl,
		ClosedQty:   r.ClosedQty,
		OpenedQty:   r.OpenedQty,
		IsOpen:      r.IsOpen,
		Fee:         r.Fee,
		Funding:     r.Funding,
		Direction:   r.Direction,
	}
}

// SaveTrades upserts trades in batches. Every computed column is
// overwritten, since a later replay of the group may change them.
func (c *Client) SaveTrades(ctx context.Context, trades []schema.EnrichedTrade) error {
	if len(trades) == 0 {
		return nil
	}
	rows := make([]TradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, NewTradeRow(t))
	}

	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "venue"}, {Name: "account"}, {Name: "symbol"}, {Name: "trade_id"},
			},
			UpdateAll: true,
		}).
		CreateInBatches(rows, defaultBatchSize).Error
	if err != nil {
		return errors.Wrap(err, "upsert trades").With("count", len(rows))
	}
	return nil
}

// LoadTrades returns the stored trades of one group, newest first.
func (c *Client) LoadTrades(ctx context.Context, key schema.GroupKey) ([]schema.EnrichedTrade, error) {
	var rows []TradeRow
	err := c.db.WithContext(ctx).
		Where("venue = ? AND account = ? AND symbol = ?", key.Venue, key.Account, key.Symbol).
		Order("traded_at DESC, trade_id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load trades").With("group", key.String())
	}
	trades := make([]schema.EnrichedTrade, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, row.Trade())
	}
	return trades, nil
}
