package core

import (
	"context"
	"runtime"
	"sort"

	"tradebook/internal/schema"
	"tradebook/internal/state"

	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"
)

// Config controls a reconstruction run.
type Config struct {
	// Workers bounds how many groups replay at once. Zero uses GOMAXPROCS.
	Workers int
	Ledger  state.Config
}

func (cfg Config) workers() int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Partition drops fills that cannot be replayed and splits the rest by
// group. Each group keeps the input order.
func Partition(fills []schema.Fill) map[schema.GroupKey][]schema.Fill {
	groups := make(map[schema.GroupKey][]schema.Fill)
	for _, f := range fills {
		if !f.Valid() {
			continue
		}
		key := f.Key()
		groups[key] = append(groups[key], f)
	}
	return groups
}

// SortedKeys returns the group keys in a stable order.
func SortedKeys(groups map[schema.GroupKey][]schema.Fill) []schema.GroupKey {
	keys := make([]schema.GroupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Reconstruct partitions fills, replays every group and returns the
// enriched trades newest first. The input slice is not modified. A
// cancelled ctx stops dispatching further groups and yields an empty
// result.
func Reconstruct(ctx context.Context, fills []schema.Fill, cfg Config) []schema.EnrichedTrade {
	groups := Partition(fills)
	if len(groups) == 0 {
		return []schema.EnrichedTrade{}
	}
	keys := SortedKeys(groups)
	results := make([][]schema.EnrichedTrade, len(keys))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.workers())
	for i, key := range keys {
		if egCtx.Err() != nil {
			break
		}
		group := groups[key]
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			schema.SortFills(group)
			results[i] = state.Replay(group, cfg.Ledger)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logs.Errorf("reconstruct %d groups, err: %+v", len(keys), err)
		return []schema.EnrichedTrade{}
	}
	if err := ctx.Err(); err != nil {
		logs.Errorf("reconstruct %d groups, err: %+v", len(keys), err)
		return []schema.EnrichedTrade{}
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	trades := make([]schema.EnrichedTrade, 0, total)
	for _, r := range results {
		trades = append(trades, r...)
	}
	schema.SortTradesForDisplay(trades)
	return trades
}
