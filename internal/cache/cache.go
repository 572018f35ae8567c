package cache

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"filesearch/pkg/types"
)

// Fingerprint is a stable hash of a canonicalized Query.
type Fingerprint uint64

// FingerprintOf hashes q's canonical form: mode, scope, filters, text, and
// pagination all contribute, so logically distinct queries never collide
// in practice and logically identical ones always do.
func FingerprintOf(q types.Query) Fingerprint {
	q = q.Canonicalize()

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%d|%d", q.Text, q.Mode, q.Scope, q.MaxResults, q.Offset)
	fmt.Fprintf(&b, "|ext:%s", strings.Join(q.Filters.Extensions, ","))
	fmt.Fprintf(&b, "|size:%d-%d", q.Filters.Size.Min, q.Filters.Size.Max)
	fmt.Fprintf(&b, "|mtime:%d-%d", q.Filters.Modified.After.UnixNano(), q.Filters.Modified.Before.UnixNano())

	return Fingerprint(xxhash.Sum64String(b.String()))
}

// entry pairs a cached result set with the write-generation it was
// computed under, so a stale hit can be told apart from a fresh one
// without scanning every cached path.
type entry struct {
	results    []types.SearchResult
	generation uint64
}

// LruCache is a bounded map of Fingerprint -> []SearchResult, evicted by
// strict LRU on read-or-write access.
type LruCache struct {
	mu         sync.RWMutex
	lru        *lru.Cache[Fingerprint, entry]
	generation uint64
}

// New creates a cache holding at most capacity entries.
func New(capacity int) (*LruCache, error) {
	l, err := lru.New[Fingerprint, entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LruCache{lru: l}, nil
}

// Get returns the cached results for fp, if any and if they were computed
// under the current generation.
func (c *LruCache) Get(fp Fingerprint) ([]types.SearchResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.lru.Get(fp)
	if !ok || e.generation != c.generation {
		return nil, false
	}
	out := make([]types.SearchResult, len(e.results))
	copy(out, e.results)
	return out, true
}

// Put stores results under fp, stamped with the current generation.
func (c *LruCache) Put(fp Fingerprint, results []types.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]types.SearchResult, len(results))
	copy(stored, results)
	c.lru.Add(fp, entry{results: stored, generation: c.generation})
}

// Invalidate must be called by the writer after any mutation that could
// change which paths a cached query would return. It advances the
// generation counter so every previously cached entry reads as a miss,
// without requiring per-path bookkeeping.
func (c *LruCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
}

// Len reports the number of entries currently held, stale or not.
func (c *LruCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

// Resize changes the cache's capacity by replacing it with an empty cache
// of the new size, so every cached entry is dropped whether the capacity
// grows or shrinks.
func (c *LruCache) Resize(capacity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, err := lru.New[Fingerprint, entry](capacity)
	if err != nil {
		return fmt.Errorf("resize lru cache: %w", err)
	}
	c.lru = l
	return nil
}
