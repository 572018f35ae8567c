package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(Config{IndexPath: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestOpenAppliesDefaults(t *testing.T) {
	e := newTestEngine(t)
	require.Equal(t, 1000, e.cfg.CacheSize)
	require.Equal(t, uint(1_000_000), e.cfg.BloomFilterCapacity)
}

func TestIndexDirectoryThenSearch(t *testing.T) {
	e := newTestEngine(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("docs\n"), 0o644))

	stats, err := e.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Added)

	resp, err := e.Search(context.Background(), "*.go")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Equal(t, "main.go", resp.Results[0].Record.Name)
}

func TestUpdateIndexPicksUpNewFile(t *testing.T) {
	e := newTestEngine(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))

	_, err := e.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	stats, err := e.UpdateIndex(context.Background(), root, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Added)
}

func TestSubmitIndexDirectoryReturnsHandle(t *testing.T) {
	e := newTestEngine(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))

	h := e.SubmitIndexDirectory(root, nil)
	stats, err := h.Result()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Added)
	require.Equal(t, StatusDone, h.Status())
}

func TestClearIndexRemovesEverything(t *testing.T) {
	e := newTestEngine(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))

	_, err := e.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	require.NoError(t, e.ClearIndex(context.Background()))

	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.Store.RecordCount)
}

func TestVerifyIndexReportsMissingAfterManualDelete(t *testing.T) {
	e := newTestEngine(t)
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	_, err := e.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	vs, err := e.VerifyIndex(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 1, vs.Missing)
}

func TestStartStopWatchingIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	root := t.TempDir()

	id, err := e.StartWatching(root)
	require.NoError(t, err)
	require.NoError(t, e.StopWatching(id))
	require.NoError(t, e.StopWatching(id))
}

func TestStartWatchingTriggersUpdateOnNewFile(t *testing.T) {
	e := newTestEngine(t)
	root := t.TempDir()

	id, err := e.StartWatching(root)
	require.NoError(t, err)
	defer e.StopWatching(id)

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("hi"), 0o644))

	require.Eventually(t, func() bool {
		resp, err := e.Search(context.Background(), "new.txt")
		return err == nil && len(resp.Results) == 1
	}, 3*time.Second, 50*time.Millisecond)
}
