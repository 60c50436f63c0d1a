package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tradebook/internal/bus"
	"tradebook/internal/dedup"
	"tradebook/internal/obs"
	"tradebook/internal/recorder"
	"tradebook/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hyperliquidFill(tid int, side string, px, sz string, ts int64) []byte {
	return []byte(fmt.Sprintf(`{"channel":"userFills","data":{"user":"0xabc","fills":[{"coin":"BTC","px":%q,"sz":%q,"side":%q,"time":%d,"tid":%d,"fee":"0"}]}}`, px, sz, side, ts, tid))
}

func newTestUsecase(t *testing.T, queue *bus.Queue, clock *dedup.ManualClock, metrics *obs.Metrics) *Usecase {
	t.Helper()
	use, err := NewUsecase(UsecaseConfig{
		Dedup:    dedup.New(dedup.DefaultConfig(), clock),
		Queue:    queue,
		Metrics:  metrics,
		Sequence: obs.NewSequence(100),
		Clock:    clock,
	})
	require.NoError(t, err)
	return use
}

func TestUsecaseSuppressesRedelivery(t *testing.T) {
	clock := dedup.NewManualClock(time.UnixMilli(1700000000000))
	queue := bus.NewQueue(8)
	metrics := obs.NewMetrics()
	use := newTestUsecase(t, queue, clock, metrics)

	payload := hyperliquidFill(1, "B", "100", "1", 1700000000000)
	trades, err := use.Handle("hyperliquid", "0xabc", payload)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	clock.Advance(5 * time.Second)
	trades, err = use.Handle("hyperliquid", "0xabc", payload)
	require.NoError(t, err)
	assert.Empty(t, trades)

	assert.Equal(t, 1, queue.Len())
	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.Accepted)
	assert.Equal(t, uint64(1), snap.Duplicates)
	assert.Equal(t, uint64(2), snap.HandleLatency.Count)
}

func TestUsecaseNotifiesEnrichedClose(t *testing.T) {
	clock := dedup.NewManualClock(time.UnixMilli(1700000000000))
	queue := bus.NewQueue(8)
	use := newTestUsecase(t, queue, clock, nil)

	_, err := use.Handle("hyperliquid", "", hyperliquidFill(1, "B", "100", "1", 1700000000000))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	trades, err := use.Handle("hyperliquid", "", hyperliquidFill(2, "A", "110", "0.4", 1700000060000))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, 4.0, trades[0].RealizedPnl, 1e-9)
	assert.InDelta(t, 0.4, trades[0].ClosedQty, 1e-9)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Close()
	var got []bus.Notification
	queue.Run(ctx, func(n bus.Notification) {
		got = append(got, n)
	})
	require.Len(t, got, 2)
	assert.Equal(t, uint64(101), got[0].Seq)
	assert.Equal(t, uint64(102), got[1].Seq)
	assert.Equal(t, "2", got[1].Trade.ID)
	assert.Equal(t, int64(1700000060000), got[1].RecvTime)
	require.NotNil(t, got[1].Trade.ExitPrice)
	assert.InDelta(t, 110.0, *got[1].Trade.ExitPrice, 1e-9)
	assert.Len(t, use.History(), 2)
	assert.Equal(t, 1, use.Groups())
}

func TestUsecaseReplaysLateFillInOrder(t *testing.T) {
	clock := dedup.NewManualClock(time.UnixMilli(1700000100000))
	use := newTestUsecase(t, bus.NewQueue(8), clock, nil)

	// The close arrives first; it has nothing to close yet and opens a short.
	trades, err := use.Handle("hyperliquid", "", hyperliquidFill(2, "A", "110", "1", 1700000060000))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].IsOpen)

	// The earlier buy sorts first, so the group replays buy then sell.
	trades, err = use.Handle("hyperliquid", "", hyperliquidFill(1, "B", "100", "1", 1700000000000))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "1", trades[0].ID)
	assert.True(t, trades[0].IsOpen)
	assert.InDelta(t, 1.0, trades[0].OpenedQty, 1e-9)
}

func TestUsecasePrunesFlatHistory(t *testing.T) {
	clock := dedup.NewManualClock(time.UnixMilli(1700000000000))
	use, err := NewUsecase(UsecaseConfig{
		Dedup:     dedup.New(dedup.DefaultConfig(), clock),
		Queue:     bus.NewQueue(8),
		Clock:     clock,
		Retention: time.Minute,
	})
	require.NoError(t, err)

	for _, payload := range [][]byte{
		hyperliquidFill(1, "B", "100", "1", 1700000000000),
		hyperliquidFill(2, "A", "110", "1", 1700000010000),
		hyperliquidFill(3, "B", "120", "1", 1700000120000),
	} {
		_, err := use.Handle("hyperliquid", "", payload)
		require.NoError(t, err)
	}
	if got := len(use.History()); got != 1 {
		t.Fatalf("retained fills mismatch: got %d want %d", got, 1)
	}

	trades, err := use.Handle("hyperliquid", "", hyperliquidFill(4, "A", "130", "0.5", 1700000180000))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, 120.0, trades[0].EntryPrice, 1e-9)
	assert.InDelta(t, 0.5, trades[0].ClosedQty, 1e-9)
	assert.InDelta(t, 5.0, trades[0].RealizedPnl, 1e-9)
	assert.Len(t, use.History(), 2, "the open lot keeps its history")
}

func TestUsecaseKeepsHistoryWhenRetentionNegative(t *testing.T) {
	clock := dedup.NewManualClock(time.UnixMilli(1700000000000))
	use, err := NewUsecase(UsecaseConfig{
		Dedup:     dedup.New(dedup.DefaultConfig(), clock),
		Queue:     bus.NewQueue(8),
		Clock:     clock,
		Retention: -1,
	})
	require.NoError(t, err)

	_, err = use.Handle("hyperliquid", "", hyperliquidFill(1, "B", "100", "1", 1600000000000))
	require.NoError(t, err)
	_, err = use.Handle("hyperliquid", "", hyperliquidFill(2, "A", "100", "1", 1600000001000))
	require.NoError(t, err)
	_, err = use.Handle("hyperliquid", "", hyperliquidFill(3, "B", "100", "1", 1700000000000))
	require.NoError(t, err)
	assert.Len(t, use.History(), 3)
}

func TestUsecaseHandlesGroupsConcurrently(t *testing.T) {
	clock := dedup.NewManualClock(time.UnixMilli(1700000000000))
	queue := bus.NewQueue(256)
	metrics := obs.NewMetrics()
	use := newTestUsecase(t, queue, clock, metrics)

	coins := []string{"BTC", "ETH", "SOL", "HYPE"}
	var wg sync.WaitGroup
	for c, coin := range coins {
		wg.Add(1)
		go func(c int, coin string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				side := "B"
				if i%2 == 1 {
					side = "A"
				}
				payload := fmt.Sprintf(`{"channel":"userFills","data":{"user":"0xabc","fills":[{"coin":%q,"px":"10","sz":"1","side":%q,"time":%d,"tid":%d,"fee":"0"}]}}`,
					coin, side, 1700000000000+int64(i)*1000, c*100+i)
				if _, err := use.Handle("hyperliquid", "", []byte(payload)); err != nil {
					t.Errorf("handle %s fill %d, err: %+v", coin, i, err)
				}
			}
		}(c, coin)
	}
	wg.Wait()

	assert.Equal(t, len(coins), use.Groups())
	assert.Len(t, use.History(), len(coins)*20)
	assert.Equal(t, uint64(len(coins)*20), metrics.Snapshot().Accepted)
}

func TestUsecaseCountsDropsAndRejects(t *testing.T) {
	clock := dedup.NewManualClock(time.UnixMilli(1700000000000))
	queue := bus.NewQueue(1)
	metrics := obs.NewMetrics()
	use := newTestUsecase(t, queue, clock, metrics)

	_, err := use.Handle("hyperliquid", "", hyperliquidFill(1, "B", "100", "1", 1700000000000))
	require.NoError(t, err)
	_, err = use.Handle("hyperliquid", "", hyperliquidFill(2, "B", "100", "1", 1700000001000))
	require.NoError(t, err)
	_, err = use.Handle("hyperliquid", "", hyperliquidFill(3, "B", "0", "1", 1700000002000))
	require.NoError(t, err)
	_, err = use.Handle("hyperliquid", "", []byte(`[1,2]`))
	require.ErrorIs(t, err, exception.ErrPayloadMalformed)

	queue.Close()
	_, err = use.Handle("hyperliquid", "", hyperliquidFill(4, "B", "100", "1", 1700000003000))
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.QueueDrops)
	assert.Equal(t, uint64(1), snap.QueueClosed)
	assert.Equal(t, uint64(1), snap.Rejected[obs.ReasonNonPositivePrice])
	assert.Equal(t, uint64(1), snap.Rejected[obs.ReasonMalformed])
	assert.Equal(t, uint64(3), snap.Accepted)
}

func TestUsecaseJournalsRawPayloads(t *testing.T) {
	dir := t.TempDir()
	writer, err := recorder.NewWriter(recorder.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, writer.Start(context.Background()))

	clock := dedup.NewManualClock(time.UnixMilli(1700000000000))
	use, err := NewUsecase(UsecaseConfig{
		Dedup:   dedup.New(dedup.DefaultConfig(), clock),
		Queue:   bus.NewQueue(4),
		Journal: writer,
		Clock:   clock,
	})
	require.NoError(t, err)

	_, err = use.Handle("hyperliquid", "0xabc", hyperliquidFill(1, "B", "100", "1", 1700000000000))
	require.NoError(t, err)
	_, _ = use.Handle("bybit", "sub", []byte(`{"topic":"execution","data":{`))
	require.NoError(t, writer.Close())

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{Path: dir})
	require.NoError(t, err)
	var venues []string
	_, err = pb.Run(context.Background(), func(e recorder.Entry) error {
		venues = append(venues, e.Venue)
		assert.Equal(t, int64(1700000000000), e.RecvTime)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hyperliquid"}, venues, "the truncated payload cannot be journaled as JSON")
}

func TestNewUsecaseRequiresDedupAndQueue(t *testing.T) {
	_, err := NewUsecase(UsecaseConfig{Queue: bus.NewQueue(1)})
	require.ErrorIs(t, err, exception.ErrNilInstance)
}
