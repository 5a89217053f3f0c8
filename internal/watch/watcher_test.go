package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelhq/fsbroker/internal/errors"
)

const (
	testDebounce = 50 * time.Millisecond
	eventWait    = 3 * time.Second
	quietWait    = 400 * time.Millisecond
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(testDebounce, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// collect subscribes path and returns a channel receiving its events.
func collect(t *testing.T, w *Watcher, path string) <-chan Event {
	t.Helper()
	events := make(chan Event, 16)
	if err := w.Watch(path, func(e Event) { events <- e }); err != nil {
		t.Fatalf("Watch(%s) error: %v", path, err)
	}
	return events
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for change event")
		return Event{}
	}
}

func expectQuiet(t *testing.T, events <-chan Event) {
	t.Helper()
	select {
	case e := <-events:
		t.Fatalf("unexpected event: kind=%s content=%q", e.Kind, e.Content)
	case <-time.After(quietWait):
	}
}

func TestWatchDuplicate(t *testing.T) {
	w := newTestWatcher(t)
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "x")

	if err := w.Watch(path, func(Event) {}); err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	if err := w.Watch(path, func(Event) {}); !errors.Is(err, errors.ErrAlreadyWatched) {
		t.Errorf("duplicate Watch() = %v, want ErrAlreadyWatched", err)
	}
}

func TestUnwatchUnknown(t *testing.T) {
	w := newTestWatcher(t)
	if err := w.Unwatch("/not/watched"); !errors.Is(err, errors.ErrNotWatched) {
		t.Errorf("Unwatch() = %v, want ErrNotWatched", err)
	}
}

func TestUpdateEvent(t *testing.T) {
	w := newTestWatcher(t)
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "before")

	events := collect(t, w, path)
	writeFile(t, path, "after")

	e := waitEvent(t, events)
	if e.Kind != ChangeUpdated {
		t.Errorf("Kind = %s, want updated", e.Kind)
	}
	if string(e.Content) != "after" {
		t.Errorf("Content = %q, want %q", e.Content, "after")
	}
	if e.Path != path {
		t.Errorf("Path = %q, want %q", e.Path, path)
	}
}

func TestCreateEvent(t *testing.T) {
	w := newTestWatcher(t)
	path := filepath.Join(t.TempDir(), "appears-later")

	events := collect(t, w, path)
	writeFile(t, path, "hello")

	e := waitEvent(t, events)
	if e.Kind != ChangeCreated {
		t.Errorf("Kind = %s, want created", e.Kind)
	}
	if string(e.Content) != "hello" {
		t.Errorf("Content = %q, want %q", e.Content, "hello")
	}
}

func TestDeleteEvent(t *testing.T) {
	w := newTestWatcher(t)
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "x")

	events := collect(t, w, path)
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	e := waitEvent(t, events)
	if e.Kind != ChangeDeleted {
		t.Errorf("Kind = %s, want deleted", e.Kind)
	}
	if e.Content != nil {
		t.Errorf("Content = %q, want nil for deletion", e.Content)
	}
}

func TestRecreateAfterDelete(t *testing.T) {
	w := newTestWatcher(t)
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "v1")

	events := collect(t, w, path)
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if e := waitEvent(t, events); e.Kind != ChangeDeleted {
		t.Fatalf("Kind = %s, want deleted", e.Kind)
	}

	writeFile(t, path, "v2")
	if e := waitEvent(t, events); e.Kind != ChangeCreated {
		t.Errorf("Kind = %s, want created after recreation", e.Kind)
	}
}

func TestSameContentSuppressed(t *testing.T) {
	w := newTestWatcher(t)
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "same")

	events := collect(t, w, path)
	writeFile(t, path, "same")

	expectQuiet(t, events)
}

func TestTouchSuppressed(t *testing.T) {
	w := newTestWatcher(t)
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "x")

	events := collect(t, w, path)
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatalf("Chtimes() error: %v", err)
	}

	expectQuiet(t, events)
}

func TestDebounceCoalescesBurst(t *testing.T) {
	w := newTestWatcher(t)
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "v0")

	events := collect(t, w, path)
	for i := 1; i <= 5; i++ {
		writeFile(t, path, fmt.Sprintf("v%d", i))
	}

	e := waitEvent(t, events)
	if string(e.Content) != "v5" {
		t.Errorf("Content = %q, want final burst content %q", e.Content, "v5")
	}
	expectQuiet(t, events)
}

func TestUnwatchStopsEvents(t *testing.T) {
	w := newTestWatcher(t)
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "x")

	events := collect(t, w, path)
	if err := w.Unwatch(path); err != nil {
		t.Fatalf("Unwatch() error: %v", err)
	}
	if w.Watched(path) {
		t.Error("Watched() = true after Unwatch")
	}

	writeFile(t, path, "y")
	expectQuiet(t, events)
}

func TestSiblingPathsIndependent(t *testing.T) {
	w := newTestWatcher(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a, "a1")
	writeFile(t, b, "b1")

	aEvents := collect(t, w, a)
	bEvents := collect(t, w, b)

	writeFile(t, b, "b2")

	e := waitEvent(t, bEvents)
	if e.Path != b {
		t.Errorf("Path = %q, want %q", e.Path, b)
	}
	expectQuiet(t, aEvents)

	// Unwatching one sibling must keep the shared directory watch alive.
	if err := w.Unwatch(a); err != nil {
		t.Fatalf("Unwatch() error: %v", err)
	}
	writeFile(t, b, "b3")
	if e := waitEvent(t, bEvents); string(e.Content) != "b3" {
		t.Errorf("Content = %q, want %q", e.Content, "b3")
	}
}

func TestCount(t *testing.T) {
	w := newTestWatcher(t)
	dir := t.TempDir()

	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("f%d", i))
		writeFile(t, path, "x")
		if err := w.Watch(path, func(Event) {}); err != nil {
			t.Fatalf("Watch() error: %v", err)
		}
	}
	if w.Count() != 3 {
		t.Errorf("Count() = %d, want 3", w.Count())
	}
}

func TestCloseIdempotent(t *testing.T) {
	w, err := New(testDebounce, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if err := w.Watch("/any", func(Event) {}); !errors.Is(err, errors.ErrManagerDisposed) {
		t.Errorf("Watch() after Close = %v, want ErrManagerDisposed", err)
	}
}
