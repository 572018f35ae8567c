package bloom

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesearch/internal/store"
	"filesearch/pkg/types"
)

func TestInsertAndMightContain(t *testing.T) {
	f := New(1000, 0.01)
	f.Insert("/a/b.go")

	assert.True(t, f.MightContain("/a/b.go"))
}

func TestMightContainFalseForUnseenUsually(t *testing.T) {
	f := New(1000, 0.01)
	f.Insert("/a/b.go")

	assert.False(t, f.MightContain("/totally/unrelated/path.txt"))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	f := New(1000, 0.01)
	f.Insert("/a/b.go")
	f.Insert("/c/d.md")

	sidecar := filepath.Join(t.TempDir(), "index.bloom")
	require.NoError(t, f.Save(sidecar))

	loaded, err := Load(sidecar, 1000, 0.01)
	require.NoError(t, err)
	assert.True(t, loaded.MightContain("/a/b.go"))
	assert.True(t, loaded.MightContain("/c/d.md"))
}

func TestLoadRejectsSizeMismatch(t *testing.T) {
	f := New(1000, 0.01)
	sidecar := filepath.Join(t.TempDir(), "index.bloom")
	require.NoError(t, f.Save(sidecar))

	_, err := Load(sidecar, 2000, 0.01)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bloom"), 1000, 0.01)
	assert.Error(t, err)
}

func TestRebuildFromStore(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	rec := types.NewFileRecord("/a/b.go", 10, time.Now(), types.FileTypeFile)
	require.NoError(t, st.UpsertBatch(ctx, []*types.FileRecord{rec}))

	f, err := RebuildFromStore(ctx, st, 1000, 0.01)
	require.NoError(t, err)
	assert.True(t, f.MightContain("/a/b.go"))
}
