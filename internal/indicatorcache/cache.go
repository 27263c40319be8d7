// Package indicatorcache implements the per-symbol indicator column cache:
// indicator columns shared across configurations (the same entry_lookback
// swept against many exit_lookbacks, for example) are computed once and
// reused by every worker that needs them. A singleflight.Group collapses
// duplicate concurrent computations of the same key when two workers race
// on a cold entry; an optional second tier (Redis) lets multi-process sweep
// fan-outs share computed columns.
package indicatorcache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sawpanic/trendlab/internal/indicators"
)

// Key identifies one cached column: the symbol the bars belong to, the
// indicator kind, and its parameters in canonical textual form.
type Key struct {
	Symbol    string
	Indicator string
	Params    string
}

// String renders the key as a single cache token, also used as the Redis
// key by the remote tier.
func (k Key) String() string {
	return k.Symbol + "|" + k.Indicator + "|" + k.Params
}

// ParamsKey canonicalizes a parameter list into the Params field: values
// joined by commas in declaration order, floats in their shortest form.
func ParamsKey(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Tier is a secondary cache layer consulted on in-process misses and
// populated after computation. Implementations must treat absence as
// (nil, false, nil), not an error.
type Tier interface {
	Get(ctx context.Context, key Key) (indicators.Column, bool, error)
	Put(ctx context.Context, key Key, col indicators.Column) error
}

// Stats counts in-process hits and misses, read by the observability layer.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache is the in-process column cache. The zero value is not usable; use
// New.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]indicators.Column
	stats   Stats

	group singleflight.Group
	tier  Tier
}

// New constructs an empty Cache. tier may be nil for a purely in-process
// cache.
func New(tier Tier) *Cache {
	return &Cache{
		entries: make(map[string]indicators.Column),
		tier:    tier,
	}
}

// GetOrCompute returns the column for key, computing it at most once per
// process even under concurrent callers. The compute function must be pure
// in the key: same key, same column.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, compute func() indicators.Column) (indicators.Column, error) {
	token := key.String()

	c.mu.RLock()
	col, ok := c.entries[token]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.stats.Hits++
		c.mu.Unlock()
		return col, nil
	}

	v, err, _ := c.group.Do(token, func() (any, error) {
		// another goroutine may have filled the entry between the RLock
		// check and the singleflight admission.
		c.mu.RLock()
		col, ok := c.entries[token]
		c.mu.RUnlock()
		if ok {
			return col, nil
		}

		if c.tier != nil {
			col, found, err := c.tier.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("indicator cache tier get %s: %w", token, err)
			}
			if found {
				c.store(token, col, false)
				return col, nil
			}
		}

		col = compute()
		c.store(token, col, true)
		if c.tier != nil {
			if err := c.tier.Put(ctx, key, col); err != nil {
				return nil, fmt.Errorf("indicator cache tier put %s: %w", token, err)
			}
		}
		return col, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(indicators.Column), nil
}

func (c *Cache) store(token string, col indicators.Column, miss bool) {
	c.mu.Lock()
	c.entries[token] = col
	if miss {
		c.stats.Misses++
	}
	c.mu.Unlock()
}

// Stats returns a snapshot of hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Len returns the number of cached columns.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
