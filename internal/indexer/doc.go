// Package indexer walks a directory tree, applies exclusion rules, builds
// FileRecords, tokenizes eligible file content, and commits the result to
// a Store in batches.
//
// # Basic usage
//
//	idx := indexer.New(st, bf, indexer.Config{})
//	stats, err := idx.IndexDirectory(ctx, "/path/to/project", nil)
//
// Incremental reconciliation against a previously indexed root is done
// with UpdateIndex, which diffs the live filesystem set against the
// existing Store records under that root.
package indexer
