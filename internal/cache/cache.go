package cache

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Config holds the cache tuning knobs.
type Config struct {
	// DefaultTTL applies to Set calls that do not specify a TTL.
	DefaultTTL time.Duration

	// MaxEntries is the high-water mark that triggers cleanup.
	MaxEntries int

	// LowWater is the count above which cleanup evicts beyond expired entries.
	LowWater int

	// EvictBatch is how many least-valuable entries one eviction pass removes.
	EvictBatch int
}

// DefaultConfig returns the cache tuning the system was designed around.
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		MaxEntries: 1000,
		LowWater:   800,
		EvictBatch: 200,
	}
}

// entry is one cached value with its bookkeeping. All fields are guarded by
// the cache mutex.
type entry struct {
	value        any
	createdAt    time.Time
	expiresAt    time.Time
	lastAccessed time.Time
	hits         int
	operation    string
	params       map[string]any
}

// Cache is a TTL key/value store shared process-wide. A single mutex guards
// all entries; only bookkeeping happens under the lock, never the expensive
// computation whose result is being cached.
type Cache struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	// now is injectable for tests.
	now func() time.Time
}

// New creates a Cache. Invalid config values fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Cache {
	def := DefaultConfig()
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = def.DefaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.LowWater <= 0 || cfg.LowWater > cfg.MaxEntries {
		cfg.LowWater = cfg.MaxEntries * 4 / 5
	}
	if cfg.EvictBatch <= 0 {
		cfg.EvictBatch = def.EvictBatch
	}

	return &Cache{
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Get returns the cached value for the operation and parameters, if present
// and not expired. Expired entries are evicted lazily on lookup.
func (c *Cache) Get(operation string, params map[string]any) (any, bool) {
	key := Key(operation, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	now := c.now()
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		c.logger.Debug("cache entry expired", "operation", operation, "key", key)
		return nil, false
	}

	e.hits++
	e.lastAccessed = now
	c.logger.Debug("cache hit", "operation", operation, "hits", e.hits)
	return e.value, true
}

// Set stores a value for the operation and parameters. A non-positive ttl
// means the configured default. Insertion triggers capacity maintenance.
func (c *Cache) Set(operation string, value any, ttl time.Duration, params map[string]any) {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	key := Key(operation, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &entry{
		value:        value,
		createdAt:    now,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
		operation:    operation,
		params:       params,
	}

	c.cleanupLocked()
}

// cleanupLocked enforces the capacity policy. It runs with the mutex held:
// first drop expired entries, then if the count is still above the low-water
// mark evict a batch of the least-valuable entries by (hits, lastAccessed).
func (c *Cache) cleanupLocked() {
	if len(c.entries) <= c.cfg.MaxEntries {
		return
	}

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.cfg.LowWater {
		return
	}

	type keyed struct {
		key string
		e   *entry
	}
	candidates := make([]keyed, 0, len(c.entries))
	for key, e := range c.entries {
		candidates = append(candidates, keyed{key, e})
	}
	// The ordering between entries with identical hits and access time is
	// implementation-defined; the policy is advisory, not a guarantee.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].e.hits != candidates[j].e.hits {
			return candidates[i].e.hits < candidates[j].e.hits
		}
		return candidates[i].e.lastAccessed.Before(candidates[j].e.lastAccessed)
	})

	evict := min(c.cfg.EvictBatch, len(candidates))
	for _, cand := range candidates[:evict] {
		delete(c.entries, cand.key)
	}

	c.logger.Info("cache cleanup completed",
		"evicted", evict,
		"remaining", len(c.entries))
}

// Invalidate removes the entry for the operation and parameters.
func (c *Cache) Invalidate(operation string, params map[string]any) {
	key := Key(operation, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// InvalidateAll clears the entire cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.logger.Info("cache cleared")
}

// OperationStats summarizes cached entries for one operation name.
type OperationStats struct {
	Count int `json:"count"`
	Hits  int `json:"hits"`
}

// Stats is a point-in-time snapshot of cache contents.
type Stats struct {
	TotalEntries   int                       `json:"total_entries"`
	ExpiredEntries int                       `json:"expired_entries"`
	ValidEntries   int                       `json:"valid_entries"`
	TotalHits      int                       `json:"total_hits"`
	Operations     map[string]OperationStats `json:"operations"`
}

// GetStats reports counts, cumulative hits, and a per-operation breakdown.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := Stats{
		TotalEntries: len(c.entries),
		Operations:   make(map[string]OperationStats),
	}

	for _, e := range c.entries {
		if !now.Before(e.expiresAt) {
			stats.ExpiredEntries++
		}
		stats.TotalHits += e.hits

		op := stats.Operations[e.operation]
		op.Count++
		op.Hits += e.hits
		stats.Operations[e.operation] = op
	}

	stats.ValidEntries = stats.TotalEntries - stats.ExpiredEntries
	return stats
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
