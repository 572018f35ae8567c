// Package types defines the data model shared across the indexing and
// search pipeline: FileRecord (the unit stored), Query (a parsed search
// request), and SearchResult (a ranked match returned to callers).
package types
