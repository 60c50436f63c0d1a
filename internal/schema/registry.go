package schema

import (
	"fmt"
	"strings"
	"sync"
)

// Registry stores per-venue alias tables, e.g. hyperliquid spot index
// ids ("@107") mapped to the token name they trade.
type Registry struct {
	mu      sync.RWMutex
	aliases map[string]map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		aliases: make(map[string]map[string]string),
	}
}

// AddAlias registers alias -> name for a venue.
func (r *Registry) AddAlias(venue, alias, name string) error {
	venue = strings.ToLower(strings.TrimSpace(venue))
	alias = strings.TrimSpace(alias)
	name = strings.TrimSpace(name)
	if venue == "" {
		return fmt.Errorf("venue name is empty")
	}
	if alias == "" {
		return fmt.Errorf("alias is empty")
	}
	if name == "" {
		return fmt.Errorf("alias name is empty: %s", alias)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	table, ok := r.aliases[venue]
	if !ok {
		table = make(map[string]string)
		r.aliases[venue] = table
	}
	if existing, ok := table[alias]; ok && existing != name {
		return fmt.Errorf("alias already exists: %s/%s -> %s", venue, alias, existing)
	}
	table[alias] = name
	return nil
}

// ResolveAlias returns the name registered for alias on venue.
func (r *Registry) ResolveAlias(venue, alias string) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.aliases[strings.ToLower(venue)]
	if !ok {
		return "", false
	}
	name, ok := table[alias]
	return name, ok
}

// AliasCount returns the number of aliases registered for a venue.
func (r *Registry) AliasCount(venue string) int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.aliases[strings.ToLower(venue)])
}
