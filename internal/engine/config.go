package engine

import (
	"time"

	"filesearch/internal/indexer"
	"filesearch/internal/match"
)

// Config collects every option the Engine recognizes. Zero values take
// the defaults documented per field.
type Config struct {
	IndexPath string // relational store path; "" or ":memory:" for an ephemeral index

	ThreadCount            int   // worker pool size (default runtime.NumCPU())
	MaxFileSizeForContent  int64 // bytes; files larger are never tokenized (default 1MiB)
	EnableContentSearch    bool
	EnableFuzzySearch      bool
	FuzzyThreshold         float64 // default match.DefaultFuzzyThreshold
	CacheSize              int     // LruCache capacity (default 1000)
	BloomFilterCapacity    uint    // default 1_000_000
	BloomFilterErrorRate   float64 // default 0.01
	MaxSearchResults       int     // default 1000; not read by Search, which takes the limit from the Query (1000 when unset)
	BatchSize              int     // records per Store.UpsertBatch (default 1000)
	FollowSymlinks         bool
	IndexHiddenFiles       bool
	ExclusionPatterns      []string
	WatchDebounceMs        int // default 500
	EnableAccessTracking   bool
	DBPoolSize             int // reserved: the Store uses a single writer connection regardless
}

// WithDefaults fills in zero-valued fields with their documented defaults.
func (c Config) WithDefaults() Config {
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = match.DefaultFuzzyThreshold
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 1000
	}
	if c.BloomFilterCapacity == 0 {
		c.BloomFilterCapacity = 1_000_000
	}
	if c.BloomFilterErrorRate <= 0 {
		c.BloomFilterErrorRate = 0.01
	}
	if c.MaxSearchResults <= 0 {
		c.MaxSearchResults = 1000
	}
	if c.WatchDebounceMs <= 0 {
		c.WatchDebounceMs = 500
	}
	return c
}

func (c Config) watchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMs) * time.Millisecond
}

func (c Config) indexerConfig() indexer.Config {
	return indexer.Config{
		Workers:               c.ThreadCount,
		BatchSize:             c.BatchSize,
		MaxFileSizeForContent: c.MaxFileSizeForContent,
		EnableContentSearch:   c.EnableContentSearch,
		FollowSymlinks:        c.FollowSymlinks,
		IndexHiddenFiles:      c.IndexHiddenFiles,
		ExclusionPatterns:     c.ExclusionPatterns,
	}.WithDefaults()
}

func (c Config) bloomSidecarPath() string {
	if c.IndexPath == "" || c.IndexPath == ":memory:" {
		return ""
	}
	return c.IndexPath + ".bloom"
}
