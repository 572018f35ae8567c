// Package store implements the persistent path -> FileRecord mapping:
// crash-safe upserts, prefix deletes, narrow candidate retrieval,
// migrations, and storage statistics.
//
// # Basic usage
//
//	st, err := store.Open("/path/to/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
//	err = st.UpsertBatch(ctx, records)
//
//	for rec, err := range st.QueryCandidates(ctx, store.PredicateHint{Extensions: []string{"go"}}) {
//	    ...
//	}
//
// # Durability
//
// Every mutating call commits before returning. The database is opened in
// WAL journaling mode, but the Store holds a single connection, so reads
// and writes are serialized on it: a reader waits for an in-flight write,
// and an open QueryCandidates iteration holds the connection until it ends.
//
// # Migrations
//
// Schema version is tracked in a schema_version table and compared with
// github.com/Masterminds/semver/v3; downgrades are rejected.
package store
