package indexer

import (
	"sync"
	"sync/atomic"
)

// progressTracker accumulates atomic counters and forwards each per-entry
// error to the caller's ProgressFunc. Per-file errors are counted and
// reported; they never abort the batch. Calls to the ProgressFunc are
// serialized by mu, so no two calls overlap.
type progressTracker struct {
	fn      ProgressFunc
	indexed atomic.Int32
	failed  atomic.Int32
	mu      sync.Mutex
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	return &progressTracker{fn: fn}
}

func (p *progressTracker) reportIndexed() {
	p.indexed.Add(1)
	p.emit(nil)
}

func (p *progressTracker) reportError(path string, err error) {
	p.failed.Add(1)
	p.emit(&IndexError{Path: path, Err: err})
}

func (p *progressTracker) emit(ierr *IndexError) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn(Progress{
		IndexedFiles: p.indexed.Load(),
		FailedFiles:  p.failed.Load(),
	}, ierr)
}
