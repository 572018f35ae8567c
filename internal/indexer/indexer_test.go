package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesearch/internal/bloom"
	"filesearch/internal/store"
)

func newTestIndexer(t *testing.T) (*Indexer, store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	bf := bloom.New(1000, 0.01)
	return New(st, bf, Config{EnableContentSearch: true}), st
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndexDirectoryCommitsRecords(t *testing.T) {
	idx, st := newTestIndexer(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package main\nfunc main() {}\n")
	writeFile(t, filepath.Join(root, "b.md"), "# hello world\n")

	stats, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Added)

	rec, err := st.Get(context.Background(), filepath.Join(root, "a.go"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Contains(t, rec.ContentTokens, "package")
}

func TestIndexDirectorySkipsHiddenByDefault(t *testing.T) {
	idx, st := newTestIndexer(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden.go"), "package main\n")
	writeFile(t, filepath.Join(root, "visible.go"), "package main\n")

	_, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	rec, err := st.Get(context.Background(), filepath.Join(root, ".hidden.go"))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestIndexDirectoryRespectsGitignore(t *testing.T) {
	idx, st := newTestIndexer(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "ignored.go\n")
	writeFile(t, filepath.Join(root, "ignored.go"), "package main\n")
	writeFile(t, filepath.Join(root, "kept.go"), "package main\n")

	_, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	rec, err := st.Get(context.Background(), filepath.Join(root, "ignored.go"))
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = st.Get(context.Background(), filepath.Join(root, "kept.go"))
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestIndexDirectoryConcurrentCallRejected(t *testing.T) {
	idx, _ := newTestIndexer(t)
	require.True(t, idx.lock.TryAcquire())
	defer idx.lock.Release()

	_, err := idx.IndexDirectory(context.Background(), t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrIndexingInProgress)
}

func TestUpdateIndexIsIdempotent(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package main\n")

	_, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	stats, err := idx.UpdateIndex(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Added)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 0, stats.Removed)
}

func TestUpdateIndexDetectsAddedAndRemoved(t *testing.T) {
	idx, st := newTestIndexer(t)
	root := t.TempDir()
	aPath := filepath.Join(root, "a.go")
	writeFile(t, aPath, "package main\n")

	_, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(aPath))
	writeFile(t, filepath.Join(root, "d.go"), "package main\n")

	stats, err := idx.UpdateIndex(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Removed)

	rec, err := st.Get(context.Background(), aPath)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUpdateIndexDetectsModified(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	writeFile(t, path, "package main\n")

	_, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	writeFile(t, path, "package main\nfunc main() {}\n")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	stats, err := idx.UpdateIndex(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
}

func TestVerifyIndexReportsHealthy(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package main\n")

	_, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	vstats, err := idx.VerifyIndex(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, float64(100), vstats.HealthyPct)
	assert.Equal(t, 0, vstats.Missing)
	assert.Equal(t, 0, vstats.Stale)
}

func TestMutationHookFiresOnCommit(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package main\n")

	var calls int
	idx.SetMutationHook(func() { calls++ })

	_, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Greater(t, calls, 0)
}
