package qail

import (
	"fmt"
	"hash/fnv"

	"github.com/qail-io/qail-go/pkg/ast"
)

// StatementName returns the deterministic server-side statement name of the
// given canonical SQL string: "s" followed by 16 lowercase hex digits of the
// 64-bit FNV-1a hash. Identical commands produce the same name on any
// connection.
func StatementName(sql string) string {
	hash := fnv.New64a()
	hash.Write([]byte(sql)) //nolint:errcheck
	return fmt.Sprintf("s%016x", hash.Sum64())
}

// CacheStats reports the effectiveness of a statement cache.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// HitRate returns the fraction of lookups answered by the cache.
func (stats CacheStats) HitRate() float64 {
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0
	}

	return float64(stats.Hits) / float64(total)
}

// cachedStatement tracks a single server-side prepared statement registered
// by the connection.
type cachedStatement struct {
	name       string
	paramCount int
	useCount   uint64
	lastUsed   uint64
}

// StatementCache is a bounded mapping from canonical SQL strings to
// server-side statement names. The cache is owned by a single connection and
// therefore unsynchronized, statement names registered on one connection are
// meaningless on another. Eviction is approximate LRU based on a use tick.
type StatementCache struct {
	capacity int
	tick     uint64
	entries  map[string]*cachedStatement
	stats    CacheStats
}

// NewStatementCache constructs a statement cache bounded to the given
// capacity.
func NewStatementCache(capacity int) *StatementCache {
	if capacity <= 0 {
		capacity = DefaultStatementCacheSize
	}

	return &StatementCache{
		capacity: capacity,
		entries:  map[string]*cachedStatement{},
	}
}

// Lookup returns the statement registered for the given SQL. A cache miss
// registers a new entry and reports registered=false, the caller is expected
// to prepend a Parse for the returned name to its outbound batch.
func (cache *StatementCache) Lookup(sql string) (name string, registered bool) {
	cache.tick++

	if entry, has := cache.entries[sql]; has {
		cache.stats.Hits++
		metricCacheHits.Inc()
		entry.useCount++
		entry.lastUsed = cache.tick
		return entry.name, true
	}

	cache.stats.Misses++
	metricCacheMisses.Inc()
	cache.evict()

	entry := &cachedStatement{
		name:       StatementName(sql),
		paramCount: ast.CountParams(sql),
		useCount:   1,
		lastUsed:   cache.tick,
	}
	cache.entries[sql] = entry

	return entry.name, false
}

// ParamCount returns the number of positional parameters of the cached
// statement for the given SQL, or -1 when the statement is not cached.
func (cache *StatementCache) ParamCount(sql string) int {
	if entry, has := cache.entries[sql]; has {
		return entry.paramCount
	}

	return -1
}

// Forget removes the entry of the given SQL, used when a registration
// failed server-side and the name cannot be bound to.
func (cache *StatementCache) Forget(sql string) {
	delete(cache.entries, sql)
}

// Len returns the number of cached statements.
func (cache *StatementCache) Len() int {
	return len(cache.entries)
}

// Stats returns the hit/miss counters of the cache.
func (cache *StatementCache) Stats() CacheStats {
	return cache.stats
}

// evict removes the least recently used entry whenever the cache is at
// capacity. The scan is linear, the cache is small and eviction rare.
func (cache *StatementCache) evict() {
	if len(cache.entries) < cache.capacity {
		return
	}

	var oldest string
	var oldestTick uint64
	for sql, entry := range cache.entries {
		if oldest == "" || entry.lastUsed < oldestTick {
			oldest = sql
			oldestTick = entry.lastUsed
		}
	}

	if oldest != "" {
		delete(cache.entries, oldest)
	}
}
