package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"filesearch/internal/bloom"
	"filesearch/internal/store"
	"filesearch/pkg/types"
)

// ErrIndexingInProgress indicates a full index or update is already
// running on this Indexer instance.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Indexer materializes a filesystem subtree into FileRecords and commits
// them to a Store, updating the BloomFilter and notifying the writer's
// cache-invalidation hook as it goes.
type Indexer struct {
	st   store.Store
	bf   *bloom.Filter
	cfg  Config
	lock IndexLock

	onMutate func()
}

// New creates an Indexer over st and bf with the given configuration.
func New(st store.Store, bf *bloom.Filter, cfg Config) *Indexer {
	return &Indexer{st: st, bf: bf, cfg: cfg.WithDefaults()}
}

// SetMutationHook registers fn to be called after every committed batch.
// The Engine uses this to invalidate the LruCache without Indexer
// importing the cache package directly.
func (idx *Indexer) SetMutationHook(fn func()) {
	idx.onMutate = fn
}

func (idx *Indexer) notifyMutation() {
	if idx.onMutate != nil {
		idx.onMutate()
	}
}

// IndexDirectory performs a full index of root, returning the count of
// records committed.
func (idx *Indexer) IndexDirectory(ctx context.Context, root string, progress ProgressFunc) (Statistics, error) {
	if !idx.lock.TryAcquire() {
		return Statistics{}, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	root, err := filepath.Abs(root)
	if err != nil {
		return Statistics{}, fmt.Errorf("%w: %v", types.ErrWalk, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan *types.FileRecord, idx.cfg.Workers*4)
	prog := newProgressTracker(progress)

	var stats Statistics
	writerErr := make(chan error, 1)
	go func() {
		writerErr <- idx.runWriter(ctx, out, &stats)
	}()

	walkErr := idx.runWalk(ctx, root, out, prog, idx.cfg.EnableContentSearch)
	close(out)

	err = <-writerErr
	stats.Failed = int(prog.failed.Load())
	if err != nil {
		return stats, err
	}
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			stats.Cancelled = true
			return stats, fmt.Errorf("%w", types.ErrCancelled)
		}
		return stats, fmt.Errorf("%w: %v", types.ErrWalk, walkErr)
	}

	return stats, nil
}

// UpdateIndex incrementally reconciles root against the Store's existing
// records under root, adding, updating, and removing only what changed.
func (idx *Indexer) UpdateIndex(ctx context.Context, root string, progress ProgressFunc) (Statistics, error) {
	if !idx.lock.TryAcquire() {
		return Statistics{}, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	root, err := filepath.Abs(root)
	if err != nil {
		return Statistics{}, fmt.Errorf("%w: %v", types.ErrWalk, err)
	}

	prog := newProgressTracker(progress)

	// S_live: current filesystem set, metadata only (no content read yet).
	liveMeta, err := idx.collectAll(ctx, root, prog, false)
	if err != nil {
		return Statistics{}, fmt.Errorf("%w: %v", types.ErrWalk, err)
	}
	liveByPath := make(map[string]*types.FileRecord, len(liveMeta))
	for _, rec := range liveMeta {
		liveByPath[rec.Path] = rec
	}

	// S_idx: existing store records under root.
	var idxRecords []*types.FileRecord
	for rec, err := range idx.st.QueryCandidates(ctx, store.PredicateHint{ParentPrefix: root}) {
		if err != nil {
			return Statistics{}, fmt.Errorf("%w: %v", types.ErrStoreIO, err)
		}
		idxRecords = append(idxRecords, rec)
	}
	idxByPath := make(map[string]*types.FileRecord, len(idxRecords))
	for _, rec := range idxRecords {
		idxByPath[rec.Path] = rec
	}

	var stats Statistics
	var toUpsert []*types.FileRecord

	for path, live := range liveByPath {
		existing, ok := idxByPath[path]
		if !ok {
			full, err := idx.buildRecordAt(path, idx.cfg.EnableContentSearch, prog)
			if err != nil {
				stats.Failed++
				continue
			}
			toUpsert = append(toUpsert, full)
			stats.Added++
			continue
		}
		if existing.SizeBytes != live.SizeBytes || !existing.Modified.Equal(live.Modified) {
			full, err := idx.buildRecordAt(path, idx.cfg.EnableContentSearch, prog)
			if err != nil {
				stats.Failed++
				continue
			}
			toUpsert = append(toUpsert, full)
			stats.Updated++
		}
	}

	for path := range idxByPath {
		if _, ok := liveByPath[path]; !ok {
			if _, err := idx.st.DeletePrefix(ctx, path); err != nil {
				return stats, fmt.Errorf("%w: %v", types.ErrStoreIO, err)
			}
			stats.Removed++
		}
	}

	if len(toUpsert) > 0 {
		if err := idx.st.UpsertBatch(ctx, toUpsert); err != nil {
			return stats, fmt.Errorf("%w: %v", types.ErrStoreIO, err)
		}
		for _, rec := range toUpsert {
			idx.bf.Insert(rec.Path)
		}
	}
	if stats.Added > 0 || stats.Updated > 0 || stats.Removed > 0 {
		idx.notifyMutation()
	}

	return stats, nil
}

// VerifyStats reports the health of the index relative to the live
// filesystem.
type VerifyStats struct {
	Missing    int
	Stale      int
	Extra      int
	HealthyPct float64
}

// VerifyIndex compares stored records under root against the live
// filesystem without mutating anything.
func (idx *Indexer) VerifyIndex(ctx context.Context, root string) (VerifyStats, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return VerifyStats{}, fmt.Errorf("%w: %v", types.ErrWalk, err)
	}

	liveMeta, err := idx.collectAll(ctx, root, newProgressTracker(nil), false)
	if err != nil {
		return VerifyStats{}, fmt.Errorf("%w: %v", types.ErrWalk, err)
	}
	liveByPath := make(map[string]*types.FileRecord, len(liveMeta))
	for _, rec := range liveMeta {
		liveByPath[rec.Path] = rec
	}

	var stats VerifyStats
	var healthy, checked int

	for rec, err := range idx.st.QueryCandidates(ctx, store.PredicateHint{ParentPrefix: root}) {
		if err != nil {
			return VerifyStats{}, fmt.Errorf("%w: %v", types.ErrStoreIO, err)
		}
		checked++
		live, ok := liveByPath[rec.Path]
		switch {
		case !ok:
			stats.Missing++
		case live.SizeBytes != rec.SizeBytes || !live.Modified.Equal(rec.Modified):
			stats.Stale++
		default:
			healthy++
		}
		if ok {
			delete(liveByPath, rec.Path)
		}
	}
	stats.Extra = len(liveByPath)

	if checked > 0 {
		stats.HealthyPct = 100 * float64(healthy) / float64(checked)
	} else {
		stats.HealthyPct = 100
	}
	return stats, nil
}

// runWalk drives a bounded-concurrency directory traversal rooted at root,
// sending built records to out.
func (idx *Indexer) runWalk(ctx context.Context, root string, out chan<- *types.FileRecord, prog *progressTracker, includeContent bool) error {
	sem := make(chan struct{}, idx.cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)
	excl := newExclusionSet(idx.cfg.ExclusionPatterns)
	visited := &sync.Map{}

	if err := idx.walk(gctx, g, sem, root, excl, visited, out, prog, includeContent); err != nil {
		return err
	}
	return g.Wait()
}

// collectAll runs a traversal and returns every record, without writing to
// the Store. Used by UpdateIndex and VerifyIndex to compute S_live.
func (idx *Indexer) collectAll(ctx context.Context, root string, prog *progressTracker, includeContent bool) ([]*types.FileRecord, error) {
	out := make(chan *types.FileRecord, idx.cfg.Workers*4)
	var records []*types.FileRecord
	var mu sync.Mutex
	done := make(chan struct{})

	go func() {
		defer close(done)
		for rec := range out {
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
		}
	}()

	err := idx.runWalk(ctx, root, out, prog, includeContent)
	close(out)
	<-done

	if err != nil {
		return nil, err
	}
	return records, nil
}

// walk recursively lists dir, spawning a bounded-concurrency goroutine per
// subdirectory via g/sem, and sends a FileRecord for every eligible file.
func (idx *Indexer) walk(ctx context.Context, g *errgroup.Group, sem chan struct{}, dir string, excl *exclusionSet, visited *sync.Map, out chan<- *types.FileRecord, prog *progressTracker, includeContent bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		prog.reportError(dir, err)
		return nil
	}

	excl = excl.withDir(dir)

	for _, entry := range entries {
		name := entry.Name()
		if !idx.cfg.IndexHiddenFiles && strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(dir, name)
		if excl.excludes(path) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			prog.reportError(path, err)
			continue
		}

		fileType := types.FileTypeFile
		isDir := info.IsDir()

		if info.Mode()&os.ModeSymlink != 0 {
			if !idx.cfg.FollowSymlinks {
				continue
			}
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				prog.reportError(path, err)
				continue
			}
			if _, loaded := visited.LoadOrStore(real, struct{}{}); loaded {
				continue
			}
			realInfo, err := os.Stat(real)
			if err != nil {
				prog.reportError(path, err)
				continue
			}
			isDir = realInfo.IsDir()
			info = realInfo
			fileType = types.FileTypeSymlink
		}

		if isDir {
			sub := path
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			g.Go(func() error {
				defer func() { <-sem }()
				return idx.walk(ctx, g, sem, sub, excl, visited, out, prog, includeContent)
			})
			continue
		}

		rec := idx.buildRecord(path, info, fileType, prog, includeContent)
		if rec == nil {
			continue
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// buildRecord turns a stat result into a FileRecord, optionally reading
// and tokenizing content.
func (idx *Indexer) buildRecord(path string, info os.FileInfo, fileType types.FileType, prog *progressTracker, includeContent bool) *types.FileRecord {
	rec := types.NewFileRecord(path, uint64(info.Size()), info.ModTime(), fileType)

	if includeContent && isLikelyText(path, info.Size(), idx.cfg.MaxFileSizeForContent) {
		tokens, digest, err := readAndTokenize(path)
		if err != nil {
			prog.reportError(path, err)
		} else {
			rec.ContentTokens = tokens
			rec.ContentDigest = digest
		}
	}

	prog.reportIndexed()
	return rec
}

// buildRecordAt stats a single known path directly, without walking, for
// use by UpdateIndex's targeted re-read of added/changed files.
func (idx *Indexer) buildRecordAt(path string, includeContent bool, prog *progressTracker) (*types.FileRecord, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	fileType := types.FileTypeFile
	if info.Mode()&os.ModeSymlink != 0 {
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil, err
		}
		realInfo, err := os.Stat(real)
		if err != nil {
			return nil, err
		}
		info = realInfo
		fileType = types.FileTypeSymlink
	}
	return idx.buildRecord(path, info, fileType, prog, includeContent), nil
}

// runWriter drains in, committing to the Store in batches of
// cfg.BatchSize. A commit failure aborts the batch; earlier committed
// batches remain.
func (idx *Indexer) runWriter(ctx context.Context, in <-chan *types.FileRecord, stats *Statistics) error {
	batch := make([]*types.FileRecord, 0, idx.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := idx.st.UpsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("%w: %v", types.ErrStoreIO, err)
		}
		for _, rec := range batch {
			idx.bf.Insert(rec.Path)
		}
		stats.Added += len(batch)
		idx.notifyMutation()
		batch = batch[:0]
		return nil
	}

	for rec := range in {
		batch = append(batch, rec)
		if len(batch) >= idx.cfg.BatchSize {
			if err := flush(); err != nil {
				for range in {
				}
				return err
			}
		}
	}
	return flush()
}
