package state

import (
	"math"
	"testing"

	"tradebook/internal/model/enum"
	"tradebook/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseTs = int64(1700000000000)

func fill(id string, side enum.Side, qty, price float64, offsetSec int64) schema.Fill {
	return schema.Fill{
		ID:        id,
		Venue:     "generic",
		Account:   "acc",
		Symbol:    "BTC",
		Side:      side,
		Price:     price,
		Qty:       qty,
		Timestamp: baseTs + offsetSec*1000,
	}
}

func near(t *testing.T, want, got float64, msg string) {
	t.Helper()
	if math.Abs(want-got) > 1e-9 {
		t.Fatalf("%s mismatch: got %v want %v", msg, got, want)
	}
}

func TestReplayOpenThenClose(t *testing.T) {
	buy := fill("1", enum.SideBuy, 1.0, 100, 0)
	sell := fill("2", enum.SideSell, 1.0, 110, 60)
	sell.Fee = 0.5

	trades := Replay([]schema.Fill{buy, sell}, Config{Strict: true})
	require.Len(t, trades, 2)

	open := trades[0]
	assert.True(t, open.IsOpen)
	assert.Equal(t, 100.0, open.EntryPrice)
	assert.Equal(t, baseTs, open.EntryTime)
	assert.Nil(t, open.ExitPrice)
	assert.Nil(t, open.HoldTime)
	assert.Zero(t, open.RealizedPnl)

	closed := trades[1]
	assert.False(t, closed.IsOpen)
	assert.Equal(t, 100.0, closed.EntryPrice)
	require.NotNil(t, closed.ExitPrice)
	assert.Equal(t, 110.0, *closed.ExitPrice)
	near(t, 9.5, closed.RealizedPnl, "realized pnl")
	require.NotNil(t, closed.HoldTime)
	assert.Equal(t, int64(60_000), *closed.HoldTime)
	assert.Equal(t, baseTs, closed.EntryTime)
	require.NotNil(t, closed.ExitTime)
	assert.Equal(t, baseTs+60_000, *closed.ExitTime)
}

func TestReplayPartialClose(t *testing.T) {
	trades := Replay([]schema.Fill{
		fill("1", enum.SideBuy, 1.0, 100, 0),
		fill("2", enum.SideSell, 0.4, 120, 10),
	}, Config{Strict: true})
	require.Len(t, trades, 2)

	assert.True(t, trades[0].IsOpen)
	near(t, 1.0, trades[0].OpenedQty, "first opened")

	second := trades[1]
	near(t, 0.4, second.ClosedQty, "closed qty")
	near(t, 8, second.RealizedPnl, "realized pnl")
	require.NotNil(t, second.ExitPrice)
	assert.Equal(t, 120.0, *second.ExitPrice)
	assert.False(t, second.IsOpen)

	positions := NewPositionReducer()
	positions.ApplyTrades(trades)
	near(t, 0.6, positions.Position(schema.GroupKey{Venue: "generic", Account: "acc", Symbol: "BTC"}), "remaining long")
}

func TestReplayShortFlipsLong(t *testing.T) {
	trades := Replay([]schema.Fill{
		fill("1", enum.SideSell, 2.0, 50, 0),
		fill("2", enum.SideBuy, 3.0, 40, 30),
	}, Config{Strict: true})
	require.Len(t, trades, 2)

	assert.True(t, trades[0].IsOpen)

	flip := trades[1]
	near(t, 2.0, flip.ClosedQty, "closed qty")
	near(t, 1.0, flip.OpenedQty, "opened qty")
	near(t, 20, flip.RealizedPnl, "realized pnl")
	assert.Equal(t, 50.0, flip.EntryPrice)
	assert.True(t, flip.IsOpen)

	// The flipped long is closed by the next sell at its own price.
	more := Replay([]schema.Fill{
		fill("1", enum.SideSell, 2.0, 50, 0),
		fill("2", enum.SideBuy, 3.0, 40, 30),
		fill("3", enum.SideSell, 1.0, 45, 60),
	}, Config{Strict: true})
	near(t, 5, more[2].RealizedPnl, "flipped long pnl")
	assert.Equal(t, 40.0, more[2].EntryPrice)
	assert.False(t, more[2].IsOpen)
}

func TestReplayFIFOAcrossLots(t *testing.T) {
	trades := Replay([]schema.Fill{
		fill("1", enum.SideBuy, 1.0, 100, 0),
		fill("2", enum.SideBuy, 1.0, 200, 100),
		fill("3", enum.SideSell, 1.5, 300, 200),
	}, Config{Strict: true})

	last := trades[2]
	// 1.0 from the first lot and 0.5 from the second.
	near(t, (100*1.0+200*0.5)/1.5, last.EntryPrice, "entry price")
	near(t, 1.0*200+0.5*100, last.RealizedPnl, "realized pnl")
	require.NotNil(t, last.HoldTime)
	assert.Equal(t, int64(math.Round((1.0*200_000+0.5*100_000)/1.5)), *last.HoldTime)
	assert.Equal(t, last.Timestamp-*last.HoldTime, last.EntryTime)
}

func TestReplayRoundTripPnlIsMinusClosingFee(t *testing.T) {
	open := fill("1", enum.SideBuy, 2.5, 100, 0)
	open.Fee = 0.3
	closeFill := fill("2", enum.SideSell, 2.5, 100, 10)
	closeFill.Fee = 0.2

	sum := 0.0
	for _, tr := range Replay([]schema.Fill{open, closeFill}, Config{Strict: true}) {
		sum += tr.RealizedPnl
	}
	assert.Equal(t, -0.2, sum)
}

func TestReplayExplicitPnlAndCloseHints(t *testing.T) {
	pnl := 1.25
	rebate := fill("1", enum.SideBuy, 1, 100, 0)
	rebate.RealizedPnl = &pnl

	trades := Replay([]schema.Fill{rebate}, Config{Strict: true})
	assert.Equal(t, 1.25, trades[0].RealizedPnl)
	assert.False(t, trades[0].IsOpen, "explicit pnl is a close signal")
	near(t, 1, trades[0].OpenedQty, "opened qty")

	hinted := fill("2", enum.SideSell, 1, 100, 0)
	hinted.EntryTime = baseTs - 5000
	hinted.ExitTime = baseTs
	trades = Replay([]schema.Fill{hinted}, Config{Strict: true})
	require.NotNil(t, trades[0].HoldTime)
	assert.Equal(t, int64(5000), *trades[0].HoldTime)
	assert.Equal(t, baseTs, trades[0].EntryTime)
	assert.Nil(t, trades[0].ExitPrice)
	assert.False(t, trades[0].IsOpen)
}

func TestReplayExplicitZeroPnl(t *testing.T) {
	zero := 0.0
	open := fill("1", enum.SideBuy, 1, 100, 0)
	open.RealizedPnl = &zero
	closeFill := fill("2", enum.SideSell, 1, 110, 60)
	closeFill.Fee = 0.5
	closeFill.RealizedPnl = &zero

	trades := Replay([]schema.Fill{open, closeFill}, Config{Strict: true})
	require.Len(t, trades, 2)
	assert.True(t, trades[0].IsOpen, "zero pnl on an opening fill is not a close signal")
	assert.Zero(t, trades[0].RealizedPnl)

	assert.False(t, trades[1].IsOpen)
	if trades[1].RealizedPnl != 0 {
		t.Fatalf("reported breakeven mismatch: got %v want 0", trades[1].RealizedPnl)
	}
	require.NotNil(t, trades[1].ExitPrice)
	assert.Equal(t, 110.0, *trades[1].ExitPrice)
}

func TestReplayConservesQuantity(t *testing.T) {
	fills := []schema.Fill{
		fill("1", enum.SideBuy, 0.3, 10, 0),
		fill("2", enum.SideBuy, 0.7, 11, 1),
		fill("3", enum.SideSell, 0.1, 12, 2),
		fill("4", enum.SideSell, 1.5, 13, 3),
		fill("5", enum.SideBuy, 0.6, 9, 4),
		fill("6", enum.SideSell, 0.2, 8, 5),
	}
	trades := Replay(fills, Config{Strict: true})
	require.Len(t, trades, len(fills))
	for i, tr := range trades {
		near(t, fills[i].Qty, tr.ClosedQty+tr.OpenedQty, "conservation "+tr.ID)
	}
}

func TestReplayDustIsNotALot(t *testing.T) {
	trades := Replay([]schema.Fill{
		fill("1", enum.SideBuy, 1.0, 100, 0),
		fill("2", enum.SideSell, 1.0+1e-12, 100, 1),
	}, Config{Strict: true})
	assert.False(t, trades[1].IsOpen)
	assert.Zero(t, trades[1].OpenedQty)
}

func TestReplayLargeQuantitiesCloseExactly(t *testing.T) {
	trades := Replay([]schema.Fill{
		fill("1", enum.SideBuy, 1234567890.1, 1.2e-05, 0),
		fill("2", enum.SideBuy, 987654321.7, 1.2e-05, 1),
		fill("3", enum.SideSell, 2222222211.8, 2e-05, 2),
		fill("4", enum.SideBuy, 1000, 1.5e-05, 3),
	}, Config{Strict: true})
	require.Len(t, trades, 4)

	flat := trades[2]
	assert.False(t, flat.IsOpen)
	assert.Zero(t, flat.OpenedQty)
	assert.Equal(t, 2222222211.8, flat.ClosedQty)
	assert.InDelta(t, 2222222211.8*8e-06, flat.RealizedPnl, 1e-6)

	fresh := trades[3]
	assert.True(t, fresh.IsOpen)
	assert.Zero(t, fresh.ClosedQty)
	assert.Equal(t, 1000.0, fresh.OpenedQty)
	assert.Nil(t, fresh.ExitPrice)
	if fresh.EntryPrice != 1.5e-05 {
		t.Fatalf("entry price mismatch: got %v want %v", fresh.EntryPrice, 1.5e-05)
	}

	positions := NewPositionReducer()
	positions.ApplyTrades(trades)
	assert.Equal(t, 1000.0, positions.Position(schema.GroupKey{Venue: "generic", Account: "acc", Symbol: "BTC"}))
}

func TestReplayLargeLotClosesInEqualSlices(t *testing.T) {
	const total = 5e8
	slice := total / 7
	fills := []schema.Fill{fill("open", enum.SideBuy, total, 1, 0)}
	for i := 0; i < 7; i++ {
		fills = append(fills, fill(string(rune('a'+i)), enum.SideSell, slice, 2, int64(i+1)))
	}

	trades := Replay(fills, Config{Strict: true})
	require.Len(t, trades, 8)
	for _, tr := range trades[1:] {
		assert.False(t, tr.IsOpen, "slice %s", tr.ID)
		assert.Zero(t, tr.OpenedQty, "slice %s", tr.ID)
		require.NotNil(t, tr.ExitPrice)
	}

	next := Replay(append(fills, fill("next", enum.SideBuy, 1, 3, 10)), Config{Strict: true})
	assert.Nil(t, next[8].ExitPrice, "no residual short left to close")
	assert.Equal(t, 3.0, next[8].EntryPrice)
}

func TestReplayInvalidFillKeepsRawFields(t *testing.T) {
	bad := fill("1", enum.SideBuy, 0, 100, 0)
	trades := Replay([]schema.Fill{bad}, Config{Strict: true})
	require.Len(t, trades, 1)
	assert.Equal(t, schema.NewRawTrade(bad), trades[0])
}

func TestReplayIsIdempotent(t *testing.T) {
	fills := []schema.Fill{
		fill("1", enum.SideBuy, 1, 100, 0),
		fill("2", enum.SideSell, 0.5, 101, 1),
		fill("3", enum.SideSell, 1.5, 99, 2),
		fill("4", enum.SideBuy, 1, 98, 3),
	}
	assert.Equal(t, Replay(fills, Config{}), Replay(fills, Config{}))
}
