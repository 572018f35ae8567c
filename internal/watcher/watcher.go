package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"filesearch/pkg/types"
)

// DefaultDebounce is the coalescing window used when the caller doesn't
// configure one.
const DefaultDebounce = 500 * time.Millisecond

// ActionType identifies the net effect of a coalesced burst of events on
// one path.
type ActionType int

const (
	ActionAdd ActionType = iota
	ActionUpdate
	ActionRemove
)

func (a ActionType) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionUpdate:
		return "update"
	case ActionRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Action is the net effect the Watcher emits to the Indexer's writer for
// one path after debouncing.
type Action struct {
	Type ActionType
	Path string
}

// WatchId opaquely identifies a running watch. stop(id) is idempotent.
type WatchId string

// state is the per-watch lifecycle.
type state int32

const (
	stateStarting state = iota
	stateActive
	stateStopping
	stateStopped
)

// ErrAlreadyStopped is returned by actions that require an active watch.
var ErrAlreadyStopped = errors.New("watcher: already stopped")

// watch is one root's fsnotify subscription plus its debounce machinery.
type watch struct {
	id       WatchId
	root     string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	state    atomic.Int32
	cancel   context.CancelFunc
	onAction func(Action)
}

// Manager owns zero or more concurrently running watches. Each watch runs
// its own goroutine; Manager only tracks lifecycle and routes Stop calls.
type Manager struct {
	mu       sync.Mutex
	watches  map[WatchId]*watch
	debounce time.Duration
}

// NewManager creates a Manager using debounce as the default coalescing
// window for every watch it starts (0 means DefaultDebounce).
func NewManager(debounce time.Duration) *Manager {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Manager{
		watches:  make(map[WatchId]*watch),
		debounce: debounce,
	}
}

// Start subscribes to recursive changes under root. onAction is invoked
// for every coalesced Action from the debounce timer's goroutine (and, for
// events still pending at Stop, from the watch's own goroutine); calls may
// overlap, so callers applying it to a Store must serialize internally.
func (m *Manager) Start(root string, onAction func(Action)) (WatchId, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrWatchBackend, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrWatchBackend, err)
	}

	id := WatchId(uuid.NewString())
	ctx, cancel := context.WithCancel(context.Background())

	w := &watch{
		id:       id,
		root:     root,
		fsw:      fsw,
		debounce: m.debounce,
		cancel:   cancel,
		onAction: onAction,
	}
	w.state.Store(int32(stateStarting))

	if err := w.setupWatching(); err != nil {
		_ = fsw.Close()
		cancel()
		return "", fmt.Errorf("%w: %v", types.ErrWatchBackend, err)
	}

	w.state.Store(int32(stateActive))

	m.mu.Lock()
	m.watches[id] = w
	m.mu.Unlock()

	go w.run(ctx)

	return id, nil
}

// Len reports the number of currently active watches.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watches)
}

// Stop ends the watch identified by id. Idempotent: stopping an unknown or
// already-stopped id is not an error.
func (m *Manager) Stop(id WatchId) error {
	m.mu.Lock()
	w, ok := m.watches[id]
	if ok {
		delete(m.watches, id)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}

	w.state.Store(int32(stateStopping))
	w.cancel()
	return w.fsw.Close()
}

// setupWatching registers root and every subdirectory beneath it.
func (w *watch) setupWatching() error {
	return filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("watcher: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}

// run is the per-watch event loop: debounce, coalesce, emit.
func (w *watch) run(ctx context.Context) {
	pending := make(map[string]fsnotify.Event)
	var mu sync.Mutex
	var timer *time.Timer

	flush := func() {
		mu.Lock()
		events := pending
		pending = make(map[string]fsnotify.Event)
		mu.Unlock()

		for path, ev := range events {
			w.handle(path, ev)
		}
	}

	restartCount := 0
	const maxRestarts = 5

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			flush()
			w.state.Store(int32(stateStopped))
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if state(w.state.Load()) == stateStopping {
				continue // events received while stopping are dropped
			}
			if ev.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}

			mu.Lock()
			if prev, ok := pending[ev.Name]; ok && prev.Op&fsnotify.Create != 0 && ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				ev.Op |= fsnotify.Create // a create followed by writes is still a net add
			}
			pending[ev.Name] = ev
			mu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, flush)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: backend error on %s: %v", w.root, err)
			restartCount++
			if restartCount > maxRestarts {
				w.state.Store(int32(stateStopped))
				log.Printf("watcher: %s exceeded restart budget, stopping", w.root)
				return
			}
			time.Sleep(backoff(restartCount))
		}
	}
}

// handle maps one coalesced fsnotify event to a net Action and, for newly
// created directories, extends the watch to cover them.
func (w *watch) handle(path string, ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Create == fsnotify.Create:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				log.Printf("watcher: failed to watch new directory %s: %v", path, err)
			}
			return
		}
		w.emit(Action{Type: ActionAdd, Path: path})

	case ev.Op&fsnotify.Write == fsnotify.Write:
		w.emit(Action{Type: ActionUpdate, Path: path})

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.emit(Action{Type: ActionRemove, Path: path})
	}
}

func (w *watch) emit(a Action) {
	if w.onAction != nil {
		w.onAction(a)
	}
}

func backoff(attempt int) time.Duration {
	d := 200 * time.Millisecond << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
