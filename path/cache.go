// path/cache.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package path

import (
	gomath "math"
	"sync/atomic"

	"github.com/mmp/vtolai/vehicle"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultResolution is the size of the lat/long cells (in degrees) that
// endpoints are snapped to for caching; about 10m.
const DefaultResolution = 1e-4

type traversalKey struct {
	start, end [2]int64
	t          vehicle.Traversal
}

type traversalEntry struct {
	ok   bool
	tick int64
}

// CachedPathfinder wraps a Pathfinder, caching answers to
// IsDirectPathTraversable for nearby endpoints for a limited number of
// ticks. Entries age by the tick last passed to SetTick, never by wall
// time. FindPath calls go straight through.
type CachedPathfinder struct {
	vehicle.Pathfinder
	Resolution float64
	// Lifetime is the number of ticks an answer stays valid.
	Lifetime int64

	tick         int64
	cache        *lru.Cache[traversalKey, traversalEntry]
	hits, misses atomic.Int64
}

func NewCachedPathfinder(pf vehicle.Pathfinder, size int, lifetime int64) *CachedPathfinder {
	// lru.New only fails for non-positive sizes.
	cache, _ := lru.New[traversalKey, traversalEntry](max(1, size))
	return &CachedPathfinder{
		Pathfinder: pf,
		Resolution: DefaultResolution,
		Lifetime:   max(1, lifetime),
		cache:      cache,
	}
}

// SetTick sets the current tick used to age cached answers.
func (c *CachedPathfinder) SetTick(tick int64) {
	c.tick = tick
}

func (c *CachedPathfinder) quantize(g vehicle.Geo) [2]int64 {
	return [2]int64{int64(gomath.Round(g.Lat / c.Resolution)), int64(gomath.Round(g.Lon / c.Resolution))}
}

func (c *CachedPathfinder) IsDirectPathTraversable(start, end vehicle.Geo, t vehicle.Traversal) bool {
	key := traversalKey{start: c.quantize(start), end: c.quantize(end), t: t}
	if e, found := c.cache.Get(key); found && c.tick >= e.tick && c.tick-e.tick < c.Lifetime {
		c.hits.Add(1)
		return e.ok
	}

	c.misses.Add(1)
	ok := c.Pathfinder.IsDirectPathTraversable(start, end, t)
	c.cache.Add(key, traversalEntry{ok: ok, tick: c.tick})
	return ok
}

// Stats returns the number of cache hits and misses so far.
func (c *CachedPathfinder) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *CachedPathfinder) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached answers.
func (c *CachedPathfinder) Len() int {
	return c.cache.Len()
}
