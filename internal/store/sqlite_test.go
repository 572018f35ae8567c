package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesearch/pkg/types"
)

func setupTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	require.NotNil(t, st)
	return st
}

func sampleRecord(path string) *types.FileRecord {
	rec := types.NewFileRecord(path, 128, time.Now(), types.FileTypeFile)
	rec.ContentTokens = []string{"hello", "world"}
	return rec
}

func TestOpen(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	assert.NotNil(t, st)
}

func TestUpsertBatchAndGet(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	rec := sampleRecord("/a/b/c.go")
	require.NoError(t, st.UpsertBatch(ctx, []*types.FileRecord{rec}))

	got, err := st.Get(ctx, "/a/b/c.go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c.go", got.Name)
	assert.Equal(t, "go", got.Extension)
	assert.Equal(t, "/a/b", got.ParentPath)
}

func TestUpsertBatchReplaces(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	rec := sampleRecord("/a/b.txt")
	require.NoError(t, st.UpsertBatch(ctx, []*types.FileRecord{rec}))

	rec.SizeBytes = 999
	require.NoError(t, st.UpsertBatch(ctx, []*types.FileRecord{rec}))

	got, err := st.Get(ctx, "/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(999), got.SizeBytes)
}

func TestGetMissing(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()

	got, err := st.Get(context.Background(), "/nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeletePrefix(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	require.NoError(t, st.UpsertBatch(ctx, []*types.FileRecord{
		sampleRecord("/proj/a.go"),
		sampleRecord("/proj/sub/b.go"),
		sampleRecord("/other/c.go"),
	}))

	n, err := st.DeletePrefix(ctx, "/proj")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := st.Get(ctx, "/other/c.go")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestQueryCandidatesByExtension(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	require.NoError(t, st.UpsertBatch(ctx, []*types.FileRecord{
		sampleRecord("/x/a.go"),
		sampleRecord("/x/b.md"),
	}))

	var paths []string
	for rec, err := range st.QueryCandidates(ctx, PredicateHint{Extensions: []string{"go"}}) {
		require.NoError(t, err)
		paths = append(paths, rec.Path)
	}
	assert.Equal(t, []string{"/x/a.go"}, paths)
}

func TestQueryCandidatesByParentPrefix(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	require.NoError(t, st.UpsertBatch(ctx, []*types.FileRecord{
		sampleRecord("/x/y/a.go"),
		sampleRecord("/x/z/b.go"),
	}))

	var count int
	for _, err := range st.QueryCandidates(ctx, PredicateHint{ParentPrefix: "/x/y"}) {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 1, count)
}

func TestIncrementAccessCount(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	rec := sampleRecord("/a.go")
	require.NoError(t, st.UpsertBatch(ctx, []*types.FileRecord{rec}))
	require.NoError(t, st.IncrementAccessCount(ctx, "/a.go"))
	require.NoError(t, st.IncrementAccessCount(ctx, "/a.go"))

	got, err := st.Get(ctx, "/a.go")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.AccessCount)
}

func TestStats(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	require.NoError(t, st.UpsertBatch(ctx, []*types.FileRecord{
		sampleRecord("/a.go"),
		sampleRecord("/b.go"),
	}))

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.RecordCount)
	assert.Equal(t, CurrentSchemaVersion, stats.SchemaVersion)
}

func TestVacuum(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	assert.NoError(t, st.Vacuum(context.Background()))
}
