package indexer

import "runtime"

// Config controls traversal, filtering, and batching.
type Config struct {
	Workers                int      // worker pool size (default: runtime.NumCPU())
	BatchSize              int      // records committed per Store.UpsertBatch (default 1000)
	MaxFileSizeForContent  int64    // files larger than this are never tokenized (default 1MiB)
	EnableContentSearch    bool     // whether to read and tokenize file content at all
	FollowSymlinks         bool     // follow symlinked directories during traversal
	IndexHiddenFiles       bool     // include dotfiles/dotdirs
	ExclusionPatterns      []string // additional gitignore-style patterns, applied repo-wide
}

// WithDefaults fills in zero-valued fields with their documented defaults.
func (c Config) WithDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}
	if c.MaxFileSizeForContent <= 0 {
		c.MaxFileSizeForContent = 1 << 20
	}
	return c
}

// Progress reports incremental counts during a long-running operation.
// The callback is invoked from the traversal goroutines, never by two of
// them at once.
type Progress struct {
	TotalFiles   int32
	IndexedFiles int32
	SkippedFiles int32
	FailedFiles  int32
	StartTime    int64 // unix nanos; zero if not started
}

// ProgressFunc receives Progress snapshots and any per-entry IndexError.
type ProgressFunc func(Progress, *IndexError)

// IndexError is a non-fatal per-entry failure surfaced through the
// progress callback rather than aborting the batch.
type IndexError struct {
	Path string
	Err  error
}

func (e *IndexError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// Statistics summarizes a completed index_directory or update_index call.
type Statistics struct {
	Added     int
	Updated   int
	Removed   int
	Skipped   int
	Failed    int
	Cancelled bool
}
