package core

import (
	"context"
	"math/rand"
	"testing"

	"tradebook/internal/model/enum"
	"tradebook/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseTs = int64(1700000000000)

func fill(id, symbol string, side enum.Side, qty, price float64, offsetSec int64) schema.Fill {
	return schema.Fill{
		ID:        id,
		Venue:     "hyperliquid",
		Account:   "0xabc",
		Symbol:    symbol,
		Side:      side,
		Price:     price,
		Qty:       qty,
		Timestamp: baseTs + offsetSec*1000,
	}
}

func sampleFills() []schema.Fill {
	return []schema.Fill{
		fill("b1", "BTC", enum.SideBuy, 1, 100, 0),
		fill("b2", "BTC", enum.SideBuy, 0.5, 104, 10),
		fill("b3", "BTC", enum.SideSell, 1.2, 110, 20),
		fill("b4", "BTC", enum.SideSell, 0.8, 90, 30),
		fill("e1", "ETH", enum.SideSell, 2, 50, 5),
		fill("e2", "ETH", enum.SideBuy, 3, 40, 15),
		fill("e3", "ETH", enum.SideSell, 1, 45, 25),
	}
}

func byID(trades []schema.EnrichedTrade) map[string]schema.EnrichedTrade {
	out := make(map[string]schema.EnrichedTrade, len(trades))
	for _, trade := range trades {
		out[trade.ID] = trade
	}
	return out
}

func TestReconstructIsIndependentOfInputOrder(t *testing.T) {
	fills := sampleFills()
	want := Reconstruct(context.Background(), fills, Config{})
	require.Len(t, want, len(fills))

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]schema.Fill(nil), fills...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := Reconstruct(context.Background(), shuffled, Config{Workers: 1 + i%3})
		require.Equal(t, want, got, "shuffle %d", i)
	}
}

func TestReconstructSortsNewestFirst(t *testing.T) {
	trades := Reconstruct(context.Background(), sampleFills(), Config{})
	for i := 1; i < len(trades); i++ {
		if trades[i-1].Timestamp < trades[i].Timestamp {
			t.Fatalf("order mismatch at %d: %d before %d", i, trades[i-1].Timestamp, trades[i].Timestamp)
		}
	}
	assert.Equal(t, "b4", trades[0].ID)
	assert.Equal(t, "b1", trades[len(trades)-1].ID)
}

func TestReconstructBreaksTimestampTiesByID(t *testing.T) {
	open := fill("a", "BTC", enum.SideBuy, 1, 100, 0)
	closing := fill("b", "BTC", enum.SideSell, 1, 110, 0)

	for _, input := range [][]schema.Fill{{open, closing}, {closing, open}} {
		trades := Reconstruct(context.Background(), input, Config{})
		require.Len(t, trades, 2)
		assert.Equal(t, "b", trades[0].ID)
		assert.Equal(t, "a", trades[1].ID)

		assert.InDelta(t, 10.0, trades[0].RealizedPnl, 1e-9)
		assert.False(t, trades[0].IsOpen)
		assert.True(t, trades[1].IsOpen)
	}
}

func TestReconstructKeepsGroupsApart(t *testing.T) {
	trades := byID(Reconstruct(context.Background(), sampleFills(), Config{Workers: 2}))

	// e2 closes the 2.0 ETH short and opens 1.0 long; BTC lots are untouched.
	e2 := trades["e2"]
	assert.InDelta(t, 2.0, e2.ClosedQty, 1e-9)
	assert.InDelta(t, 20.0, e2.RealizedPnl, 1e-9)
	assert.True(t, e2.IsOpen)

	e3 := trades["e3"]
	assert.InDelta(t, 1.0, e3.ClosedQty, 1e-9)
	assert.InDelta(t, 5.0, e3.RealizedPnl, 1e-9)

	b3 := trades["b3"]
	assert.InDelta(t, 1.2, b3.ClosedQty, 1e-9)
	// FIFO: 1.0 @ 100 then 0.2 @ 104.
	assert.InDelta(t, 10.0+0.2*6, b3.RealizedPnl, 1e-9)

	b4 := trades["b4"]
	assert.InDelta(t, 0.3, b4.ClosedQty, 1e-9)
	assert.InDelta(t, 0.5, b4.OpenedQty, 1e-9)
	assert.True(t, b4.IsOpen)
}

func TestReconstructDropsInvalidFills(t *testing.T) {
	fills := sampleFills()
	bad := fill("x", "", enum.SideBuy, 1, 100, 1)
	zero := fill("z", "BTC", enum.SideBuy, 0, 100, 1)
	trades := Reconstruct(context.Background(), append(fills, bad, zero), Config{})
	require.Len(t, trades, len(fills))
	_, ok := byID(trades)["x"]
	assert.False(t, ok)
}

func TestReconstructEmptyAndCancelled(t *testing.T) {
	trades := Reconstruct(context.Background(), nil, Config{})
	require.NotNil(t, trades)
	require.Empty(t, trades)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	trades = Reconstruct(ctx, sampleFills(), Config{})
	require.NotNil(t, trades)
	require.Empty(t, trades)
}

func TestPartitionKeepsInputOrder(t *testing.T) {
	groups := Partition(sampleFills())
	require.Len(t, groups, 2)

	keys := SortedKeys(groups)
	require.Equal(t, "BTC", keys[0].Symbol)
	require.Equal(t, "ETH", keys[1].Symbol)

	btc := groups[keys[0]]
	require.Len(t, btc, 4)
	for i, id := range []string{"b1", "b2", "b3", "b4"} {
		if btc[i].ID != id {
			t.Fatalf("id mismatch at %d: got %s want %s", i, btc[i].ID, id)
		}
	}
}
