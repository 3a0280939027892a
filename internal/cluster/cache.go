package cluster

import (
	"sync"
	"time"

	"github.com/usealtoal/predictarb/internal/solver"
)

// Result is the cached Frank-Wolfe outcome for one cluster, with the time
// it was computed so staleness can be judged (SPEC_FULL §4.11).
type Result struct {
	Projection     solver.FrankWolfeResult
	LastComputedAt time.Time
}

// Cache maps a cluster ID to its most recent Frank-Wolfe result, guarded
// by one RWMutex matching the single-lock-per-structure policy of §5.
type Cache struct {
	mu      sync.RWMutex
	results map[ID]Result
}

// New creates an empty cluster cache.
func New() *Cache {
	return &Cache{results: make(map[ID]Result)}
}

// Get returns the cached result for id, if present.
func (c *Cache) Get(id ID) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[id]
	return r, ok
}

// Set stores the result for id, stamping LastComputedAt as now.
func (c *Cache) Set(id ID, projection solver.FrankWolfeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[id] = Result{Projection: projection, LastComputedAt: time.Now()}
}

// Fresh reports whether the cached entry for id exists and was computed
// within stalenessBound of now.
func (c *Cache) Fresh(id ID, stalenessBound time.Duration) (Result, bool) {
	r, ok := c.Get(id)
	if !ok {
		return Result{}, false
	}
	return r, time.Since(r.LastComputedAt) <= stalenessBound
}
