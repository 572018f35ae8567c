package searcher

import (
	"container/heap"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"filesearch/internal/cache"
	"filesearch/internal/match"
	"filesearch/internal/rank"
	"filesearch/internal/store"
	"filesearch/pkg/types"
)

// Config tunes Searcher behavior.
type Config struct {
	FuzzyThreshold       float64
	EnableAccessTracking bool
}

// Response wraps the ranked results of one Search call along with whether
// a deadline forced it to return early.
type Response struct {
	Results []types.SearchResult
	Partial bool
	Cached  bool
}

// Searcher evaluates Queries against a Store, using a Matcher/Ranker pair
// per query and an LruCache to skip re-evaluation of repeated queries.
type Searcher struct {
	st    store.Store
	cache *cache.LruCache
	cfg   Config

	mu          sync.RWMutex
	defaultRoot string // most recently indexed root, used as the full-scan fallback
}

// New creates a Searcher over st, caching results in c.
func New(st store.Store, c *cache.LruCache, cfg Config) *Searcher {
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = match.DefaultFuzzyThreshold
	}
	return &Searcher{st: st, cache: c, cfg: cfg}
}

// SetDefaultRoot records the most recently indexed root, used as the
// full-scan fallback when no narrower predicate is available.
func (s *Searcher) SetDefaultRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultRoot = root
}

// Search parses queryString and evaluates it.
func (s *Searcher) Search(ctx context.Context, queryString string, parse func(string) (types.Query, error)) (Response, error) {
	q, err := parse(queryString)
	if err != nil {
		return Response{}, err
	}
	return s.SearchWithQuery(ctx, q)
}

// SearchWithQuery evaluates an already-parsed Query.
func (s *Searcher) SearchWithQuery(ctx context.Context, q types.Query) (Response, error) {
	q = q.Canonicalize()

	fp := cache.FingerprintOf(q)
	if cached, ok := s.cache.Get(fp); ok {
		return Response{Results: cached, Cached: true}, nil
	}

	m, err := match.New(q, s.cfg.FuzzyThreshold)
	if err != nil {
		return Response{}, err
	}

	hint := s.predicateHint(q)
	k := rank.ShortlistSize(q.MaxResults)
	h := &minHeap{}
	heap.Init(h)

	var partial bool

candidateLoop:
	for rec, err := range s.st.QueryCandidates(ctx, hint) {
		if ctx.Err() != nil {
			partial = true
			break candidateLoop
		}
		if err != nil {
			return Response{}, fmt.Errorf("%w: %v", types.ErrStoreIO, err)
		}

		if !passesCheapFilters(rec, q.Filters) {
			continue
		}

		ev, ok := m.Match(rec)
		if !ok {
			continue
		}

		heap.Push(h, rank.Candidate{Record: rec, Evidence: ev})
		if h.Len() > k {
			heap.Pop(h)
		}
	}

	candidates := make([]rank.Candidate, h.Len())
	copy(candidates, *h)

	results := rank.Rank(candidates, q.Offset, q.MaxResults, time.Now())

	if !partial {
		s.cache.Put(fp, results)
	}

	if s.cfg.EnableAccessTracking {
		for _, r := range results {
			_ = s.st.IncrementAccessCount(ctx, r.Record.Path)
		}
	}

	return Response{Results: results, Partial: partial}, nil
}

// predicateHint picks the narrowest Store predicate the query allows.
func (s *Searcher) predicateHint(q types.Query) store.PredicateHint {
	if len(q.Filters.Extensions) > 0 {
		return store.PredicateHint{Extensions: q.Filters.Extensions}
	}

	// Name-substring narrowing only holds when the pattern is matched
	// against the name, or for an exact path, against its base name.
	if q.Mode == types.ModeExact && q.Scope == types.ScopePath {
		return store.PredicateHint{NameContains: filepath.Base(q.Text)}
	}
	if q.Scope == types.ScopeName {
		if q.Mode == types.ModeExact {
			return store.PredicateHint{NameContains: q.Text}
		}
		if prefix := literalPrefix(q.Text, q.Mode); prefix != "" {
			return store.PredicateHint{NameContains: prefix}
		}
	}

	s.mu.RLock()
	root := s.defaultRoot
	s.mu.RUnlock()
	return store.PredicateHint{ParentPrefix: root}
}

// passesCheapFilters applies the size/mtime filters before the more
// expensive Matcher pass.
func passesCheapFilters(rec *types.FileRecord, f types.Filters) bool {
	if f.Size.Min > 0 && rec.SizeBytes < f.Size.Min {
		return false
	}
	if f.Size.Max > 0 && rec.SizeBytes > f.Size.Max {
		return false
	}
	if !f.Modified.After.IsZero() && rec.Modified.Before(f.Modified.After) {
		return false
	}
	if !f.Modified.Before.IsZero() && rec.Modified.After(f.Modified.Before) {
		return false
	}
	return true
}

// literalPrefix extracts the literal prefix of a glob or regex pattern, up
// to its first metacharacter, for use as a narrowing LIKE predicate. A
// character made optional by a following regex quantifier is dropped, and
// a regex with alternation has no literal prefix.
func literalPrefix(pattern string, mode types.Mode) string {
	var metas string
	switch mode {
	case types.ModeGlob:
		metas = "*?[{\\"
	case types.ModeRegex:
		if strings.Contains(pattern, "|") {
			return ""
		}
		metas = ".^$*+?()[]{}|\\"
		pattern = strings.TrimPrefix(pattern, "^")
	default:
		return ""
	}

	idx := strings.IndexAny(pattern, metas)
	if idx < 0 {
		return pattern
	}
	if mode == types.ModeRegex && idx > 0 && strings.IndexByte("?*{", pattern[idx]) >= 0 {
		idx--
	}
	return pattern[:idx]
}
