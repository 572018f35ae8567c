// Package engine wires Store, BloomFilter, LruCache, Indexer, Watcher, and
// Searcher into a single facade. It owns the one serialized writer lock
// that every mutation (full index, incremental update, clear) and every
// watcher-driven change is routed through, and propagates cache
// invalidation and bloom-filter updates from that writer.
package engine
