// Package watcher subscribes to recursive filesystem change notifications
// on a set of roots, debounces per-path events, and emits net
// add/update/remove actions for the Indexer's writer to apply.
package watcher
