package ingest

import (
	"encoding/json"
	"sync"
	"time"

	"tradebook/internal/bus"
	"tradebook/internal/dedup"
	"tradebook/internal/obs"
	"tradebook/internal/recorder"
	"tradebook/internal/schema"
	"tradebook/internal/state"
	"tradebook/pkg/exception"

	"github.com/yanun0323/logs"
)

// UsecaseConfig wires the live ingestion path. Dedup and Queue are
// required; Journal and Metrics are optional.
type UsecaseConfig struct {
	Normalizer *Normalizer
	Dedup      *dedup.Deduplicator
	Queue      *bus.Queue
	Journal    *recorder.Writer
	Metrics    *obs.Metrics
	Sequence   *obs.Sequence
	Ledger     state.Config
	// Retention is how far behind a group's newest fill a flat stretch of
	// history must end before it is dropped. Zero uses DefaultRetention;
	// a negative value keeps every fill.
	Retention time.Duration
	// Clock stamps arrival times. Nil uses the system clock.
	Clock dedup.Clock
}

// DefaultRetention keeps a day of closed history per group for late fills
// to sort into.
const DefaultRetention = 24 * time.Hour

// Usecase runs raw venue payloads through normalize, dedup and replay, and
// publishes one notification per accepted fill.
type Usecase struct {
	cfg UsecaseConfig

	mu      sync.Mutex
	history map[schema.GroupKey]*groupHistory
}

// groupHistory is the retained fills of one group, sorted. Each group has
// its own lock so a long replay does not stall the other groups.
type groupHistory struct {
	mu     sync.Mutex
	fills  []schema.Fill
	pruned int64 // timestamp of the newest dropped fill
}

// NewUsecase validates cfg and creates the live use case.
func NewUsecase(cfg UsecaseConfig) (*Usecase, error) {
	if cfg.Dedup == nil || cfg.Queue == nil {
		return nil, exception.ErrNilInstance
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = NewNormalizer(nil)
	}
	if cfg.Sequence == nil {
		cfg.Sequence = obs.NewSequence(0)
	}
	if cfg.Clock == nil {
		cfg.Clock = dedup.SystemClock{}
	}
	if cfg.Retention == 0 {
		cfg.Retention = DefaultRetention
	}
	return &Usecase{
		cfg:     cfg,
		history: make(map[schema.GroupKey]*groupHistory),
	}, nil
}

// Handle ingests one raw payload that arrived on account's connection to
// venue. It returns the enriched trades of the fills it accepted; an error
// means the payload could not be decoded at all.
func (use *Usecase) Handle(venue, account string, payload []byte) ([]schema.EnrichedTrade, error) {
	start := time.Now()
	defer func() {
		use.cfg.Metrics.ObserveHandle(time.Since(start))
	}()

	recvTime := use.cfg.Clock.Now().UnixMilli()
	use.record(venue, account, recvTime, payload)

	fills, err := use.cfg.Normalizer.Intake(venue, account, payload, use.cfg.Metrics)
	if err != nil {
		return nil, err
	}

	var trades []schema.EnrichedTrade
	for _, fill := range fills {
		if !use.cfg.Dedup.Accept(fill) {
			use.cfg.Metrics.IncDuplicate()
			continue
		}
		use.cfg.Metrics.IncAccepted()

		trade := use.replay(fill)
		trades = append(trades, trade)
		use.publish(bus.Notification{
			Seq:      use.cfg.Sequence.Next(),
			RecvTime: recvTime,
			Trade:    trade,
		})
	}
	return trades, nil
}

// History returns a copy of every retained fill in no particular order.
// Flat stretches older than the retention window are not included.
func (use *Usecase) History() []schema.Fill {
	use.mu.Lock()
	groups := make([]*groupHistory, 0, len(use.history))
	for _, g := range use.history {
		groups = append(groups, g)
	}
	use.mu.Unlock()

	var out []schema.Fill
	for _, g := range groups {
		g.mu.Lock()
		out = append(out, g.fills...)
		g.mu.Unlock()
	}
	return out
}

// Groups returns the number of groups seen so far.
func (use *Usecase) Groups() int {
	use.mu.Lock()
	defer use.mu.Unlock()
	return len(use.history)
}

func (use *Usecase) group(key schema.GroupKey) *groupHistory {
	use.mu.Lock()
	defer use.mu.Unlock()

	g, ok := use.history[key]
	if !ok {
		g = &groupHistory{}
		use.history[key] = g
	}
	return g
}

// replay appends fill to its group and re-runs the retained fills, so a
// late fill that sorts before earlier ones still gets correct lots.
func (use *Usecase) replay(fill schema.Fill) schema.EnrichedTrade {
	g := use.group(fill.Key())

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pruned > 0 && fill.Timestamp < g.pruned {
		logs.Infof("late fill %s in %s sorts before dropped history at %d, replayed against retained fills only", fill.ID, fill.Key(), g.pruned)
	}

	g.fills = append(g.fills, fill)
	schema.SortFills(g.fills)

	start := time.Now()
	trades := state.Replay(g.fills, use.cfg.Ledger)
	use.cfg.Metrics.ObserveReplay(time.Since(start))

	trade := schema.NewRawTrade(fill)
	for i := len(g.fills) - 1; i >= 0; i-- {
		if sameFill(g.fills[i], fill) {
			trade = trades[i]
			if trade.ClosedQty+trade.OpenedQty <= state.Epsilon {
				use.cfg.Metrics.IncDegraded()
			}
			break
		}
	}

	use.prune(g)
	return trade
}

// prune drops the longest flat prefix that ended at least Retention before
// the group's newest fill.
func (use *Usecase) prune(g *groupHistory) {
	if use.cfg.Retention < 0 || len(g.fills) == 0 {
		return
	}
	newest := g.fills[len(g.fills)-1].Timestamp
	cut := state.FlatPrefix(g.fills, newest-use.cfg.Retention.Milliseconds())
	if cut == 0 {
		return
	}
	g.pruned = g.fills[cut-1].Timestamp
	g.fills = append([]schema.Fill(nil), g.fills[cut:]...)
}

func (use *Usecase) publish(n bus.Notification) {
	switch err := use.cfg.Queue.TryPublish(n); err {
	case nil:
	case exception.ErrQueueClosed:
		use.cfg.Metrics.IncQueueClosed()
	default:
		use.cfg.Metrics.IncQueueDrop()
		logs.Errorf("drop notification for %s, err: %+v", n.Trade.ID, err)
	}
}

func (use *Usecase) record(venue, account string, recvTime int64, payload []byte) {
	if use.cfg.Journal == nil {
		return
	}
	err := use.cfg.Journal.TryAppend(recorder.Entry{
		Venue:    venue,
		Account:  account,
		RecvTime: recvTime,
		Payload:  json.RawMessage(payload),
	})
	if err != nil {
		logs.Errorf("journal %s payload, err: %+v", venue, err)
	}
}

func sameFill(a, b schema.Fill) bool {
	return a.ID == b.ID && !schema.FillLess(a, b) && !schema.FillLess(b, a)
}
