// Package bloom implements an approximate, non-authoritative path
// membership filter kept beside Store. The Indexer inserts every committed
// path and the Engine persists the filter as a sidecar file; no indexing
// or search code path calls MightContain, so lookups always go to Store.
// Any hit must still be confirmed against Store.
package bloom
