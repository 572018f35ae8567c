package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"filesearch/internal/bloom"
	"filesearch/internal/cache"
	"filesearch/internal/indexer"
	"filesearch/internal/query"
	"filesearch/internal/searcher"
	"filesearch/internal/store"
	"filesearch/internal/watcher"
	"filesearch/pkg/types"
)

// EngineStats summarizes index health and resource usage for status
// reporting.
type EngineStats struct {
	Store         store.StoreStats
	CacheEntries  int
	ActiveWatches int
}

// Engine is the library facade: it owns the Store, BloomFilter, LruCache,
// Indexer, Watcher, and Searcher, and serializes all mutations through a
// single writer.
type Engine struct {
	cfg    Config
	logger *log.Logger

	st    store.Store
	bf    *bloom.Filter
	cache *cache.LruCache
	idx   *indexer.Indexer
	srch  *searcher.Searcher
	watch *watcher.Manager

	writerMu sync.Mutex // serializes index/update/clear calls
}

// Open creates or opens the index at cfg.IndexPath and wires every
// component together: storage first, then every component that depends
// on it, in order.
func Open(cfg Config, logger *log.Logger) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	st, err := store.Open(cfg.IndexPath)
	if err != nil {
		return nil, err
	}

	bf, err := loadOrBuildBloomFilter(st, cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	c, err := cache.New(cfg.CacheSize)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrStoreInit, err)
	}

	idx := indexer.New(st, bf, cfg.indexerConfig())
	idx.SetMutationHook(c.Invalidate)

	srch := searcher.New(st, c, searcher.Config{
		FuzzyThreshold:       cfg.FuzzyThreshold,
		EnableAccessTracking: cfg.EnableAccessTracking,
	})

	return &Engine{
		cfg:    cfg,
		logger: logger,
		st:     st,
		bf:     bf,
		cache:  c,
		idx:    idx,
		srch:   srch,
		watch:  watcher.NewManager(cfg.watchDebounce()),
	}, nil
}

// loadOrBuildBloomFilter loads the sidecar file if present and compatible,
// otherwise rebuilds from the Store's existing records.
func loadOrBuildBloomFilter(st store.Store, cfg Config, logger *log.Logger) (*bloom.Filter, error) {
	sidecar := cfg.bloomSidecarPath()
	if sidecar != "" {
		if bf, err := bloom.Load(sidecar, cfg.BloomFilterCapacity, cfg.BloomFilterErrorRate); err == nil {
			return bf, nil
		} else {
			logger.Printf("engine: bloom sidecar unusable, rebuilding from store: %v", err)
		}
	}
	return bloom.RebuildFromStore(context.Background(), st, cfg.BloomFilterCapacity, cfg.BloomFilterErrorRate)
}

// IndexDirectory performs a full index of root and blocks until complete.
func (e *Engine) IndexDirectory(ctx context.Context, root string, progress indexer.ProgressFunc) (indexer.Statistics, error) {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	stats, err := e.idx.IndexDirectory(ctx, root, progress)
	if err == nil {
		e.srch.SetDefaultRoot(root)
		e.saveBloomSidecar()
	}
	return stats, err
}

// UpdateIndex incrementally reconciles root against the existing index.
func (e *Engine) UpdateIndex(ctx context.Context, root string, progress indexer.ProgressFunc) (indexer.Statistics, error) {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	stats, err := e.idx.UpdateIndex(ctx, root, progress)
	if err == nil {
		e.saveBloomSidecar()
	}
	return stats, err
}

// SubmitIndexDirectory is the non-blocking variant of IndexDirectory,
// returning a Handle the caller can poll or cancel.
func (e *Engine) SubmitIndexDirectory(root string, progress indexer.ProgressFunc) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHandle(cancel)
	go func() {
		stats, err := e.IndexDirectory(ctx, root, progress)
		h.finish(stats, err)
	}()
	return h
}

// SubmitUpdateIndex is the non-blocking variant of UpdateIndex.
func (e *Engine) SubmitUpdateIndex(root string, progress indexer.ProgressFunc) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHandle(cancel)
	go func() {
		stats, err := e.UpdateIndex(ctx, root, progress)
		h.finish(stats, err)
	}()
	return h
}

// Search parses queryString and evaluates it.
func (e *Engine) Search(ctx context.Context, queryString string) (searcher.Response, error) {
	return e.srch.Search(ctx, queryString, query.Parse)
}

// SearchWithQuery evaluates an already-parsed Query.
func (e *Engine) SearchWithQuery(ctx context.Context, q types.Query) (searcher.Response, error) {
	return e.srch.SearchWithQuery(ctx, q)
}

// StartWatching subscribes to live changes under root, routing every
// coalesced Action through a targeted UpdateIndex so the writer remains
// the sole mutator of Store/BloomFilter/LruCache.
func (e *Engine) StartWatching(root string) (watcher.WatchId, error) {
	return e.watch.Start(root, func(a watcher.Action) {
		ctx := context.Background()
		if _, err := e.UpdateIndex(ctx, root, nil); err != nil {
			e.logger.Printf("engine: watch-triggered update of %s failed after %s event on %s: %v",
				root, a.Type, a.Path, err)
		}
	})
}

// StopWatching ends a watch started by StartWatching. Idempotent.
func (e *Engine) StopWatching(id watcher.WatchId) error {
	return e.watch.Stop(id)
}

// Stats reports index health and resource counts.
func (e *Engine) Stats(ctx context.Context) (EngineStats, error) {
	storeStats, err := e.st.Stats(ctx)
	if err != nil {
		return EngineStats{}, err
	}
	return EngineStats{
		Store:         storeStats,
		CacheEntries:  e.cache.Len(),
		ActiveWatches: e.watch.Len(),
	}, nil
}

// VerifyIndex compares the stored index against the live filesystem under
// root without mutating anything.
func (e *Engine) VerifyIndex(ctx context.Context, root string) (indexer.VerifyStats, error) {
	return e.idx.VerifyIndex(ctx, root)
}

// Vacuum compacts the on-disk store.
func (e *Engine) Vacuum(ctx context.Context) error {
	return e.st.Vacuum(ctx)
}

// ClearIndex truncates the entire index, flushes the cache, and resets the
// bloom filter. It is serialized behind the same writer lock every other
// mutation uses so no in-flight index/update call can race it.
func (e *Engine) ClearIndex(ctx context.Context) error {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	if _, err := e.st.DeletePrefix(ctx, ""); err != nil {
		return err
	}
	e.cache.Invalidate()
	e.bf.Reset()
	e.saveBloomSidecar()
	return nil
}

// Close releases the Store connection pool and persists the bloom sidecar.
func (e *Engine) Close() error {
	e.saveBloomSidecar()
	return e.st.Close()
}

func (e *Engine) saveBloomSidecar() {
	sidecar := e.cfg.bloomSidecarPath()
	if sidecar == "" {
		return
	}
	if err := e.bf.Save(sidecar); err != nil {
		e.logger.Printf("engine: failed to save bloom sidecar: %v", err)
	}
}
