package core

import (
	"context"
	"io"
	"time"

	"tradebook/internal/dedup"
	"tradebook/internal/ingest"
	"tradebook/internal/obs"
	"tradebook/internal/recorder"
	"tradebook/internal/schema"
	"tradebook/internal/state"

	"github.com/yanun0323/logs"
)

// ResyncConfig controls a journal resync.
type ResyncConfig struct {
	Dispatch Config
	Dedup    dedup.Config
	// NoDedup feeds every normalized fill to the ledger, duplicates included.
	NoDedup bool
	Metrics *obs.Metrics
}

// ResyncStats counts what a resync consumed.
type ResyncStats struct {
	Entries    int
	Undecoded  int
	Malformed  int
	Fills      int
	Duplicates int
	Files      int
}

// Loader turns journal entries into deduplicated fills. The dedup clock
// follows the recorded arrival time of each entry, so the TTL window is
// the one the live service saw.
type Loader struct {
	normalizer *ingest.Normalizer
	clock      *dedup.ManualClock
	dedup      *dedup.Deduplicator
	metrics    *obs.Metrics

	fills []schema.Fill
	stats ResyncStats
}

// NewLoader creates a loader for one resync run.
func NewLoader(normalizer *ingest.Normalizer, cfg ResyncConfig) *Loader {
	l := &Loader{
		normalizer: normalizer,
		metrics:    cfg.Metrics,
	}
	if !cfg.NoDedup {
		l.clock = dedup.NewManualClock(time.UnixMilli(0))
		l.dedup = dedup.New(cfg.Dedup, l.clock)
	}
	return l
}

// Add normalizes one entry. Payloads that cannot be decoded are logged and
// skipped.
func (l *Loader) Add(e recorder.Entry) error {
	l.stats.Entries++
	fills, err := l.normalizer.Intake(e.Venue, e.Account, e.Payload, l.metrics)
	if err != nil {
		l.stats.Undecoded++
		logs.Errorf("skip %s payload, err: %+v", e.Venue, err)
		return nil
	}

	if l.clock != nil && e.RecvTime > 0 {
		l.clock.Set(time.UnixMilli(e.RecvTime))
	}
	for _, fill := range fills {
		if l.dedup != nil {
			if e.RecvTime <= 0 {
				l.clock.Set(time.UnixMilli(fill.Timestamp))
			}
			if !l.dedup.Accept(fill) {
				l.stats.Duplicates++
				l.metrics.IncDuplicate()
				continue
			}
		}
		l.metrics.IncAccepted()
		l.fills = append(l.fills, fill)
	}
	l.stats.Fills = len(l.fills)
	return nil
}

// Fills returns the accepted fills in arrival order.
func (l *Loader) Fills() []schema.Fill {
	return l.fills
}

// Stats returns the running counts.
func (l *Loader) Stats() ResyncStats {
	return l.stats
}

// Resync rebuilds every group from a journal stream. Malformed lines are
// skipped; only a read failure or a cancelled ctx returns an error.
func Resync(ctx context.Context, r io.Reader, normalizer *ingest.Normalizer, cfg ResyncConfig) ([]schema.EnrichedTrade, ResyncStats, error) {
	loader := NewLoader(normalizer, cfg)
	malformed := 0
	err := recorder.Play(ctx, recorder.NewReader(r), loader.Add, func(err error) {
		malformed++
		cfg.Metrics.IncRejected(obs.ReasonMalformed)
		logs.Errorf("skip journal line, err: %+v", err)
	})
	stats := loader.Stats()
	stats.Malformed = malformed
	if err != nil {
		return nil, stats, err
	}
	return reconstructTimed(ctx, loader.Fills(), cfg), stats, nil
}

// ResyncPath rebuilds every group from a journal file or directory.
func ResyncPath(ctx context.Context, path string, normalizer *ingest.Normalizer, cfg ResyncConfig) ([]schema.EnrichedTrade, ResyncStats, error) {
	playback, err := recorder.NewPlayback(recorder.PlaybackConfig{Path: path})
	if err != nil {
		return nil, ResyncStats{}, err
	}
	loader := NewLoader(normalizer, cfg)
	played, err := playback.Run(ctx, loader.Add)
	stats := loader.Stats()
	stats.Files = played.Files
	stats.Malformed = played.Malformed
	if err != nil {
		return nil, stats, err
	}
	return reconstructTimed(ctx, loader.Fills(), cfg), stats, nil
}

func reconstructTimed(ctx context.Context, fills []schema.Fill, cfg ResyncConfig) []schema.EnrichedTrade {
	start := time.Now()
	trades := Reconstruct(ctx, fills, cfg.Dispatch)
	cfg.Metrics.ObserveReplay(time.Since(start))
	for _, trade := range trades {
		if trade.ClosedQty+trade.OpenedQty <= state.Epsilon {
			cfg.Metrics.IncDegraded()
		}
	}
	return trades
}
