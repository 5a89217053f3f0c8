package lockfile

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kestrelhq/fsbroker/internal/errors"
	"github.com/kestrelhq/fsbroker/internal/logging"
	"github.com/kestrelhq/fsbroker/internal/retry"
	"github.com/kestrelhq/fsbroker/internal/workspace"
)

// entry tracks per-path in-process state. A nil handle marks an acquisition
// in flight: the placeholder is registered before the lock file is attempted
// so the availability check and registration form one atomic step.
type entry struct {
	handle *Handle
}

// Coordinator acquires and releases advisory per-path locks. It owns the
// in-process handle registry and arbitrates cross-process contention through
// the sidecar lock file.
type Coordinator struct {
	mu       sync.Mutex
	entries  map[string]*entry // target path -> state
	liveness LivenessChecker
	backoff  retry.Policy
	logger   *logging.Logger
	clock    func() time.Time
	pid      int
}

// NewCoordinator creates a Coordinator with the default signal-probe
// liveness checker and backoff policy.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		entries:  make(map[string]*entry),
		liveness: SignalLiveness{},
		backoff:  retry.DefaultPolicy(),
		logger:   logging.NopLogger(),
		clock:    time.Now,
		pid:      os.Getpid(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLiveness substitutes the process-liveness checker.
func WithLiveness(checker LivenessChecker) Option {
	return func(c *Coordinator) {
		c.liveness = checker
	}
}

// WithBackoff sets the contention backoff policy.
func WithBackoff(policy retry.Policy) Option {
	return func(c *Coordinator) {
		c.backoff = policy
	}
}

// WithLogger sets the coordinator's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger.WithComponent("lockfile")
	}
}

// WithClock substitutes the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// Acquire obtains a lock on the target path, waiting up to timeout.
// If this coordinator already holds a handle for the path, that handle is
// returned directly (re-entrant within one manager instance). On timeout a
// LockTimeoutError is returned and no lock file is left behind.
func (c *Coordinator) Acquire(ctx context.Context, path string, lockType LockType, timeout time.Duration) (*Handle, error) {
	deadline := c.clock().Add(timeout)
	attempt := 0

	// In-process gate: either adopt an existing handle, register a
	// placeholder, or wait out a concurrent in-process acquisition.
	for {
		c.mu.Lock()
		e, held := c.entries[path]
		if !held {
			c.entries[path] = &entry{}
			c.mu.Unlock()
			break
		}
		if e.handle != nil {
			c.mu.Unlock()
			return e.handle, nil
		}
		c.mu.Unlock()

		// Another caller in this process is mid-acquisition; contend the
		// same way we would against another process.
		if err := c.sleepBackoff(ctx, path, attempt, deadline, timeout); err != nil {
			return nil, err
		}
		attempt++
	}

	handle, err := c.acquireFile(ctx, path, lockType, attempt, deadline, timeout)
	if err != nil {
		c.mu.Lock()
		delete(c.entries, path)
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.entries[path].handle = handle
	c.mu.Unlock()

	c.logger.Debug("lock acquired",
		"path", path,
		"type", string(lockType),
		"pid", handle.PID,
	)
	return handle, nil
}

// acquireFile runs the cross-process acquisition loop for a path whose
// in-process placeholder is already registered.
func (c *Coordinator) acquireFile(ctx context.Context, path string, lockType LockType, attempt int, deadline time.Time, timeout time.Duration) (*Handle, error) {
	lockPath := path + workspace.LockSuffix

	for reclaims := 0; ; {
		// Reclaim retries are immediate, but bound them so a lock file that
		// cannot be deleted (e.g. permissions) fails instead of spinning.
		if reclaims > 0 && c.clock().After(deadline) {
			return nil, errors.NewLockTimeoutError(path, timeout)
		}

		handle, err := c.tryCreate(path, lockPath, lockType)
		if err == nil {
			return handle, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, errors.Wrapf(err, "failed to create lock file %s", lockPath)
		}

		existing, readErr := readPayload(lockPath)
		switch {
		case readErr != nil:
			// Unreadable or corrupt payload: reclaim and retry immediately.
			c.removeLockFile(lockPath, "corrupt lock file reclaimed")
			reclaims++
			continue
		case !c.liveness.Alive(existing.ProcessID):
			// Stale lock from a dead process: reclaim without backoff.
			c.removeLockFile(lockPath, "stale lock reclaimed")
			c.logger.Warn("stale lock reclaimed",
				"path", path,
				"old_pid", existing.ProcessID,
			)
			reclaims++
			continue
		}

		// Live owner: back off and retry until the deadline.
		if err := c.sleepBackoff(ctx, path, attempt, deadline, timeout); err != nil {
			return nil, err
		}
		attempt++
	}
}

// sleepBackoff sleeps the backoff for attempt, bounded by the deadline and
// the context. Returns LockTimeoutError once the deadline has passed.
func (c *Coordinator) sleepBackoff(ctx context.Context, path string, attempt int, deadline time.Time, timeout time.Duration) error {
	remaining := deadline.Sub(c.clock())
	if remaining <= 0 {
		return errors.NewLockTimeoutError(path, timeout)
	}

	delay := c.backoff.Backoff(attempt)
	if delay > remaining {
		delay = remaining
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// tryCreate attempts exclusive creation of the lock file with this process's
// payload. Returns fs.ErrExist (wrapped) when another owner holds the lock.
func (c *Coordinator) tryCreate(path, lockPath string, lockType LockType) (*Handle, error) {
	now := c.clock()
	data, err := json.Marshal(payload{
		ProcessID:  c.pid,
		AcquiredAt: now.UnixMilli(),
		LockType:   lockType,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal lock payload")
	}

	// O_EXCL makes creation the atomic cross-process arbitration point.
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()           //nolint:errcheck
		os.Remove(lockPath) //nolint:errcheck
		return nil, errors.Wrap(err, "failed to write lock payload")
	}
	if err := f.Close(); err != nil {
		os.Remove(lockPath) //nolint:errcheck
		return nil, errors.Wrap(err, "failed to close lock file")
	}

	return &Handle{
		Path:       path,
		LockPath:   lockPath,
		PID:        c.pid,
		AcquiredAt: now,
		Type:       lockType,
	}, nil
}

// Release removes the in-process registration and deletes the lock file.
// It is idempotent and never escalates a failed delete: a leftover lock
// from a crashed owner is reclaimed by the next acquirer's liveness check.
func (c *Coordinator) Release(handle *Handle) {
	if handle == nil {
		return
	}

	c.mu.Lock()
	e, held := c.entries[handle.Path]
	if held && e.handle == handle {
		delete(c.entries, handle.Path)
	}
	c.mu.Unlock()

	// Only delete a lock file this process still owns.
	existing, err := readPayload(handle.LockPath)
	if err != nil || existing.ProcessID != c.pid {
		return
	}

	if err := os.Remove(handle.LockPath); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("failed to delete lock file",
			"path", handle.Path,
			"error", err.Error(),
		)
		return
	}

	c.logger.Debug("lock released", "path", handle.Path)
}

// ReleaseAll releases every handle held by this coordinator. Called on
// manager disposal.
func (c *Coordinator) ReleaseAll() {
	c.mu.Lock()
	handles := make([]*Handle, 0, len(c.entries))
	for _, e := range c.entries {
		if e.handle != nil {
			handles = append(handles, e.handle)
		}
	}
	c.mu.Unlock()

	for _, h := range handles {
		c.Release(h)
	}
}

// Held reports whether this coordinator currently holds a handle for the
// path.
func (c *Coordinator) Held(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	return ok && e.handle != nil
}

// Count returns the number of handles currently held.
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if e.handle != nil {
			n++
		}
	}
	return n
}

// CleanOrphans walks root and removes lock files whose recorded owners are
// no longer alive. Lock files held by this process or by live owners are
// left alone. Returns the number of locks reclaimed.
func (c *Coordinator) CleanOrphans(root string) int {
	reclaimed := 0

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !workspace.IsLockPath(path) {
			return nil
		}

		existing, readErr := readPayload(path)
		if readErr != nil {
			c.removeLockFile(path, "corrupt lock file reclaimed")
			reclaimed++
			return nil
		}
		if existing.ProcessID == c.pid || c.liveness.Alive(existing.ProcessID) {
			return nil
		}

		c.removeLockFile(path, "orphaned lock reclaimed")
		c.logger.Info("orphaned lock reclaimed",
			"lock_path", path,
			"old_pid", existing.ProcessID,
		)
		reclaimed++
		return nil
	})

	return reclaimed
}

// removeLockFile deletes a lock file, logging failures without escalating.
func (c *Coordinator) removeLockFile(lockPath, reason string) {
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("failed to remove lock file",
			"lock_path", lockPath,
			"reason", reason,
			"error", err.Error(),
		)
	}
}

// readPayload reads and parses a lock file's payload.
func readPayload(lockPath string) (*payload, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "failed to parse lock file")
	}
	if p.ProcessID <= 0 {
		return nil, errors.New("lock file missing owner process id")
	}
	return &p, nil
}
