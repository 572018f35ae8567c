package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAndStopIsIdempotent(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	root := t.TempDir()

	id, err := m.Start(root, func(Action) {})
	require.NoError(t, err)

	require.NoError(t, m.Stop(id))
	require.NoError(t, m.Stop(id)) // idempotent
}

func TestStopUnknownIdIsNotAnError(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	assert.NoError(t, m.Stop(WatchId("does-not-exist")))
}

func TestWatchEmitsAddOnCreate(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	root := t.TempDir()

	var mu sync.Mutex
	var actions []Action
	id, err := m.Start(root, func(a Action) {
		mu.Lock()
		actions = append(actions, a)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer m.Stop(id)

	path := filepath.Join(root, "new.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, a := range actions {
			if a.Path == path && a.Type == ActionAdd {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatchEmitsRemoveOnDelete(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	root := t.TempDir()
	path := filepath.Join(root, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	var mu sync.Mutex
	var actions []Action
	id, err := m.Start(root, func(a Action) {
		mu.Lock()
		actions = append(actions, a)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer m.Stop(id)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, a := range actions {
			if a.Path == path && a.Type == ActionRemove {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}
