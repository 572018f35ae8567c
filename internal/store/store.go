package store

import (
	"context"
	"database/sql"
	"iter"
	"time"

	"filesearch/pkg/types"
)

// PredicateHint narrows a QueryCandidates scan to the indexed columns the
// Store actually exposes (extension, parent_path, name). Searcher fills in
// whichever fields it can derive from the parsed Query; an empty hint scans
// the whole table.
type PredicateHint struct {
	Extensions   []string // match if Extension is one of these (already normalized)
	ParentPrefix string   // match if ParentPath == prefix or starts with prefix+separator
	NameContains string   // match if Name contains this substring (case-insensitive)
	Limit        int      // 0 means unbounded
}

// StoreStats reports counts and on-disk size for health/status reporting.
type StoreStats struct {
	RecordCount  int64
	SizeBytes    int64
	LastUpdated  time.Time
	SchemaVersion string
}

// Store is the persistent path -> FileRecord map. All mutating calls
// commit before returning; QueryCandidates returns a single-use iterator
// so callers never have to materialize the whole table.
type Store interface {
	// UpsertBatch inserts or replaces records by Path, transactionally,
	// all-or-nothing.
	UpsertBatch(ctx context.Context, records []*types.FileRecord) error

	// DeletePrefix removes every record whose Path equals pathPrefix or is
	// a descendant of it, transactionally. Returns the number removed.
	DeletePrefix(ctx context.Context, pathPrefix string) (int64, error)

	// Get returns the record at path, or (nil, nil) if absent.
	Get(ctx context.Context, path string) (*types.FileRecord, error)

	// QueryCandidates returns a finite, single-consumption sequence of
	// records matching hint. Iteration stops early on the first error,
	// which the iterator surfaces via the yielded error value.
	QueryCandidates(ctx context.Context, hint PredicateHint) iter.Seq2[*types.FileRecord, error]

	// IncrementAccessCount bumps AccessCount for path; best-effort, never
	// blocks a search on failure (see DESIGN.md for the consistency tradeoff).
	IncrementAccessCount(ctx context.Context, path string) error

	// Vacuum compacts on-disk storage.
	Vacuum(ctx context.Context) error

	// Stats reports counts, size, and last-update time.
	Stats(ctx context.Context) (StoreStats, error)

	// Close releases the underlying connection pool.
	Close() error
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting internal
// methods run either standalone or as part of a larger transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
