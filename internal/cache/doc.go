// Package cache implements LruCache: a bounded map from a canonicalized
// Query's fingerprint to its ranked SearchResults.
//
// Precise per-path invalidation would require tracking which cached result
// lists mention which path; this implementation flushes the whole cache
// on any write instead, distinguishing writes by a monotonically
// increasing generation counter rather than a per-entry scan. See
// DESIGN.md for the tradeoff.
package cache
