package dedup

import (
	"time"

	"tradebook/pkg/deque"
)

type entry struct {
	key    string
	seenAt time.Time
}

// ttlCache remembers keys for ttl. Keys are kept in insertion order so both
// the sweep and the capacity eviction pop from the front. A key inserted
// again after expiring leaves a stale entry behind; stale entries are
// recognized by a seenAt that no longer matches the map and skipped.
type ttlCache struct {
	seen  map[string]time.Time
	order *deque.Deque[entry]
	ttl   time.Duration
	limit int
}

func newTTLCache(ttl time.Duration, limit int) *ttlCache {
	return &ttlCache{
		seen:  make(map[string]time.Time, limit),
		order: deque.New[entry](limit),
		ttl:   ttl,
		limit: limit,
	}
}

func (c *ttlCache) fresh(key string, now time.Time) bool {
	seenAt, ok := c.seen[key]
	return ok && now.Sub(seenAt) < c.ttl
}

func (c *ttlCache) put(key string, now time.Time) {
	c.seen[key] = now
	c.order.PushBack(entry{key: key, seenAt: now})
}

func (c *ttlCache) len() int {
	return len(c.seen)
}

// sweep drops expired keys and returns how many were removed.
func (c *ttlCache) sweep(now time.Time) int {
	removed := 0
	for front := c.order.Front(); front != nil && now.Sub(front.seenAt) >= c.ttl; front = c.order.Front() {
		e, _ := c.order.PopFront()
		if c.drop(e) {
			removed++
		}
	}
	return removed
}

// shrink evicts the oldest quarter of the live keys once the cache is over
// capacity, and returns how many were evicted.
func (c *ttlCache) shrink() int {
	if c.limit <= 0 || len(c.seen) <= c.limit {
		return 0
	}
	target := len(c.seen) / 4
	if target == 0 {
		target = 1
	}
	evicted := 0
	for evicted < target {
		e, ok := c.order.PopFront()
		if !ok {
			break
		}
		if c.drop(e) {
			evicted++
		}
	}
	return evicted
}

func (c *ttlCache) drop(e entry) bool {
	seenAt, ok := c.seen[e.key]
	if !ok || !seenAt.Equal(e.seenAt) {
		return false
	}
	delete(c.seen, e.key)
	return true
}
