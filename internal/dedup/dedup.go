package dedup

import (
	"context"
	"sync"
	"time"

	"tradebook/internal/schema"

	"github.com/yanun0323/pkg/sys"
)

const (
	DefaultTTL           = 10 * time.Minute
	DefaultMaxKeys       = 5000
	DefaultSweepInterval = time.Minute
)

// Config bounds the key table.
type Config struct {
	TTL           time.Duration
	MaxKeys       int
	SweepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		TTL:           DefaultTTL,
		MaxKeys:       DefaultMaxKeys,
		SweepInterval: DefaultSweepInterval,
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = DefaultMaxKeys
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return cfg
}

// Deduplicator suppresses fills already seen within the TTL. A fill is
// known by two keys: venue|account|native id, and the content fingerprint
// venue|symbol|side|price|qty|second. A hit on either key is a duplicate,
// which means two genuinely separate fills identical down to the second
// are coalesced.
//
// Safe for concurrent use; Accept and the sweep share one lock.
type Deduplicator struct {
	mu    sync.Mutex
	cfg   Config
	clock Clock
	keys  *ttlCache

	evicted uint64
}

// New creates a deduplicator. A nil clock reads the system time.
func New(cfg Config, clock Clock) *Deduplicator {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = SystemClock{}
	}
	return &Deduplicator{
		cfg:   cfg,
		clock: clock,
		keys:  newTTLCache(cfg.TTL, cfg.MaxKeys),
	}
}

// NativeKey returns venue|account|id, or "" when the fill carries no venue id.
func NativeKey(f schema.Fill) string {
	id := f.NativeID()
	if id == "" {
		return ""
	}
	return f.Venue + "|" + f.Account + "|" + id
}

// Accept reports whether f is new and records its keys. A duplicate does
// not extend the lifetime of the keys it matched.
func (d *Deduplicator) Accept(f schema.Fill) bool {
	native := NativeKey(f)
	fingerprint := f.Fingerprint()

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if native != "" && d.keys.fresh(native, now) {
		return false
	}
	if d.keys.fresh(fingerprint, now) {
		return false
	}

	if native != "" {
		d.keys.put(native, now)
	}
	d.keys.put(fingerprint, now)
	d.evicted += uint64(d.keys.shrink())
	return true
}

// Sweep removes expired keys and returns how many were removed.
func (d *Deduplicator) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.keys.sweep(d.clock.Now())
}

// Len returns the number of keys held, expired or not.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.keys.len()
}

// Evicted returns how many live keys were dropped to stay under MaxKeys.
func (d *Deduplicator) Evicted() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.evicted
}

// Run sweeps every SweepInterval until ctx is done or the process shuts down.
func (d *Deduplicator) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sys.Shutdown():
			return
		case <-ticker.C:
			d.Sweep()
		}
	}
}
