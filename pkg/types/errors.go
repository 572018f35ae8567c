package types

import "errors"

// Error kinds shared across the pipeline. These are sentinel values, not
// a type hierarchy: callers compare with errors.Is.
var (
	ErrStoreInit      = errors.New("store: initialization failed")
	ErrStoreIO        = errors.New("store: io error")
	ErrStoreMigration = errors.New("store: migration failed")
	ErrQueryParse     = errors.New("query: parse error")
	ErrQueryCompile   = errors.New("query: compile error")
	ErrWalk           = errors.New("indexer: walk error")
	ErrEncoding       = errors.New("indexer: encoding error")
	ErrWatchBackend   = errors.New("watcher: backend error")
	ErrCancelled      = errors.New("operation cancelled")
	ErrDeadlineExceeded = errors.New("search deadline exceeded")
)
