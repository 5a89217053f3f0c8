// Package watch provides debounced file-change watching for individual
// paths. OS notifications arrive via fsnotify on the target's parent
// directory; bursts are coalesced per path and the callback fires only when
// the content hash actually changed, so touch-without-write never reaches
// the caller.
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kestrelhq/fsbroker/internal/errors"
	"github.com/kestrelhq/fsbroker/internal/logging"
	"github.com/kestrelhq/fsbroker/internal/validate"
)

// ChangeKind classifies a coalesced file change.
type ChangeKind int

const (
	// ChangeCreated fires for a file that did not exist when watching began.
	ChangeCreated ChangeKind = iota
	// ChangeUpdated fires when existing content changed.
	ChangeUpdated
	// ChangeDeleted fires when the file was removed or renamed away.
	ChangeDeleted
)

// String returns the kind's name for logs.
func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event describes one coalesced change to a watched path.
type Event struct {
	Path    string
	Kind    ChangeKind
	Content []byte // nil for deletions
	Hash    uint64 // zero for deletions
}

// Callback receives coalesced change events for one watched path.
type Callback func(Event)

// watchState tracks one watched path.
type watchState struct {
	path     string
	lastHash uint64
	hasHash  bool // false until the file has been observed to exist
	timer    *time.Timer
	pending  fsnotify.Op
	callback Callback
}

// Watcher manages debounced subscriptions for individual file paths.
// All methods are safe for concurrent use.
type Watcher struct {
	mu       sync.Mutex
	fs       *fsnotify.Watcher
	states   map[string]*watchState // target path -> state
	dirRefs  map[string]int         // parent dir -> watched-path count
	debounce time.Duration
	logger   *logging.Logger
	closed   bool
	loopDone chan struct{}
}

// New creates a Watcher with the given debounce window.
func New(debounce time.Duration, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	w := &Watcher{
		fs:       fsw,
		states:   make(map[string]*watchState),
		dirRefs:  make(map[string]int),
		debounce: debounce,
		logger:   logger.WithComponent("watch"),
		loopDone: make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Watch subscribes callback to coalesced changes of path. The path does not
// need to exist yet; a later appearance fires ChangeCreated. Fails with
// ErrAlreadyWatched for duplicate subscriptions.
func (w *Watcher) Watch(path string, callback Callback) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrManagerDisposed
	}
	if _, exists := w.states[path]; exists {
		return errors.Wrapf(errors.ErrAlreadyWatched, "%s", path)
	}

	state := &watchState{path: path, callback: callback}

	// Best-effort initial hash; absence is tolerated for files that are
	// created later.
	if content, err := os.ReadFile(path); err == nil {
		state.lastHash = validate.Hash(content)
		state.hasHash = true
	}

	dir := filepath.Dir(path)
	if w.dirRefs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch directory %s", dir)
		}
	}
	w.dirRefs[dir]++
	w.states[path] = state

	w.logger.Debug("watch started", "path", path, "initial_hash", state.hasHash)
	return nil
}

// Unwatch cancels the subscription for path, disposing its pending timer
// and the directory subscription when no other watched path shares it.
func (w *Watcher) Unwatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, exists := w.states[path]
	if !exists {
		return errors.Wrapf(errors.ErrNotWatched, "%s", path)
	}

	if state.timer != nil {
		state.timer.Stop()
		state.timer = nil
	}
	delete(w.states, path)

	dir := filepath.Dir(path)
	w.dirRefs[dir]--
	if w.dirRefs[dir] <= 0 {
		delete(w.dirRefs, dir)
		if err := w.fs.Remove(dir); err != nil {
			w.logger.Warn("failed to remove directory watch", "dir", dir, "error", err.Error())
		}
	}

	w.logger.Debug("watch stopped", "path", path)
	return nil
}

// Watched reports whether path has an active subscription.
func (w *Watcher) Watched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.states[path]
	return ok
}

// Count returns the number of watched paths.
func (w *Watcher) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.states)
}

// Close stops the watcher, cancels all pending timers, and disposes the OS
// subscription. No callbacks are invoked after Close returns. Safe to call
// twice.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, state := range w.states {
		if state.timer != nil {
			state.timer.Stop()
			state.timer = nil
		}
	}
	w.states = make(map[string]*watchState)
	w.dirRefs = make(map[string]int)
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.loopDone
	return err
}

// loop dispatches fsnotify events to per-path debounce timers until the
// underlying watcher closes.
func (w *Watcher) loop() {
	defer close(w.loopDone)

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err.Error())
		}
	}
}

// handleEvent records the event and (re)arms the path's debounce timer.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Chmod-only events carry no content change; attribute touches are
	// dropped here and content no-ops are dropped by the hash check.
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	path := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	state, watched := w.states[path]
	if !watched || w.closed {
		return
	}

	state.pending |= event.Op
	if state.timer != nil {
		state.timer.Stop()
	}
	state.timer = time.AfterFunc(w.debounce, func() {
		w.fire(path)
	})
}

// fire resolves a quiet period for path: it classifies the coalesced burst,
// re-reads the file, and invokes the callback only when content actually
// changed.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	state, watched := w.states[path]
	if !watched || w.closed {
		w.mu.Unlock()
		return
	}
	pending := state.pending
	state.pending = 0
	state.timer = nil
	callback := state.callback
	w.mu.Unlock()

	removed := pending&(fsnotify.Remove|fsnotify.Rename) != 0

	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("failed to re-read watched file", "path", path, "error", err.Error())
			return
		}
		// A burst ending in removal is a deletion; suppress it for files
		// that never existed from this watcher's perspective.
		w.mu.Lock()
		existed := state.hasHash
		state.hasHash = false
		state.lastHash = 0
		w.mu.Unlock()

		if removed && existed {
			w.logger.Debug("change detected", "path", path, "kind", "deleted")
			callback(Event{Path: path, Kind: ChangeDeleted})
		}
		return
	}

	hash := validate.Hash(content)

	w.mu.Lock()
	if state.hasHash && state.lastHash == hash {
		// Notifications without a content change (touch, same-byte rewrite).
		w.mu.Unlock()
		return
	}
	kind := ChangeUpdated
	if !state.hasHash {
		kind = ChangeCreated
	}
	state.lastHash = hash
	state.hasHash = true
	w.mu.Unlock()

	w.logger.Debug("change detected", "path", path, "kind", kind.String())
	callback(Event{Path: path, Kind: kind, Content: content, Hash: hash})
}
