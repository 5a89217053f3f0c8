package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kestrelhq/fsbroker/internal/cache"
	"github.com/kestrelhq/fsbroker/internal/config"
	"github.com/kestrelhq/fsbroker/internal/errors"
	"github.com/kestrelhq/fsbroker/internal/lockfile"
	"github.com/kestrelhq/fsbroker/internal/logging"
	"github.com/kestrelhq/fsbroker/internal/retry"
	"github.com/kestrelhq/fsbroker/internal/watch"
	"github.com/kestrelhq/fsbroker/internal/workspace"
)

// Status is a snapshot of a Manager's runtime state.
type Status struct {
	Initialized    bool
	WorkspaceRoot  string
	ActiveLocks    int
	ActiveWatchers int
	CacheEntries   int
}

// Manager coordinates all file access for one workspace root.
type Manager struct {
	cfg      *config.Config
	root     string
	resolver *workspace.Resolver
	locks    *lockfile.Coordinator
	cache    *cache.Cache
	watcher  *watch.Watcher
	policy   retry.Policy
	logger   *logging.Logger
	clock    func() time.Time
	rename   func(oldpath, newpath string) error

	ownsLogger bool

	mu        sync.Mutex
	disposed  bool
	maintStop chan struct{}
	maintDone chan struct{}
}

// options collects construction-time overrides.
type options struct {
	logger   *logging.Logger
	resolver *workspace.Resolver
	liveness lockfile.LivenessChecker
	clock    func() time.Time
}

// Option configures a Manager at construction.
type Option func(*options)

// WithLogger supplies an externally owned logger. The manager will not close
// it on Dispose.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithWorkspaceRoot sets the workspace root the manager operates on.
func WithWorkspaceRoot(root string) Option {
	return func(o *options) { o.resolver = workspace.NewResolver(root) }
}

// WithResolver supplies a pre-built path resolver.
func WithResolver(resolver *workspace.Resolver) Option {
	return func(o *options) { o.resolver = resolver }
}

// WithLiveness substitutes the lock coordinator's process-liveness checker.
// Used by tests.
func WithLiveness(checker lockfile.LivenessChecker) Option {
	return func(o *options) { o.liveness = checker }
}

// WithClock substitutes the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// New creates a Manager for the given configuration. A nil cfg uses the
// compiled-in defaults. The workspace root comes from WithWorkspaceRoot or
// WithResolver; without either, the current working directory is used.
func New(cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.resolver == nil {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to determine working directory")
		}
		o.resolver = workspace.NewResolver(cwd)
	}
	root, err := o.resolver.DetectRoot()
	if err != nil {
		return nil, err
	}

	logger := o.logger
	ownsLogger := false
	if logger == nil {
		logger, err = logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create logger")
		}
		ownsLogger = true
	}
	logger = logger.WithWorkspace(root)

	clock := o.clock
	if clock == nil {
		clock = time.Now
	}

	policy := retry.Policy{
		BaseDelay:  cfg.Retry.BaseDelay(),
		MaxDelay:   cfg.Retry.MaxDelay(),
		MaxRetries: cfg.Retry.MaxRetries,
	}

	lockOpts := []lockfile.Option{
		lockfile.WithBackoff(policy),
		lockfile.WithLogger(logger),
		lockfile.WithClock(clock),
	}
	if o.liveness != nil {
		lockOpts = append(lockOpts, lockfile.WithLiveness(o.liveness))
	}

	watcher, err := watch.New(cfg.Watch.Debounce(), logger)
	if err != nil {
		if ownsLogger {
			logger.Close() //nolint:errcheck
		}
		return nil, err
	}

	m := &Manager{
		cfg:        cfg,
		root:       root,
		resolver:   o.resolver,
		locks:      lockfile.NewCoordinator(lockOpts...),
		cache:      cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL()),
		watcher:    watcher,
		policy:     policy,
		logger:     logger.WithComponent("manager"),
		clock:      clock,
		rename:     os.Rename,
		ownsLogger: ownsLogger,
		maintStop:  make(chan struct{}),
		maintDone:  make(chan struct{}),
	}

	go m.maintenanceLoop()

	m.logger.Info("file access manager initialized", "root", root)
	return m, nil
}

// resolve turns a workspace-relative or absolute path into the absolute
// target path, failing once the manager has been disposed.
func (m *Manager) resolve(path string) (string, error) {
	m.mu.Lock()
	disposed := m.disposed
	m.mu.Unlock()
	if disposed {
		return "", errors.ErrManagerDisposed
	}

	// Absolute inputs get the same containment check as relative ones.
	if filepath.IsAbs(path) {
		return m.resolver.EnsureWithin(path)
	}
	return m.resolver.ResolveProjectPath(path)
}

// AcquireLock obtains an advisory lock on path, waiting up to the configured
// bound. The handle must be released with ReleaseLock.
func (m *Manager) AcquireLock(ctx context.Context, path string, lockType lockfile.LockType) (*lockfile.Handle, error) {
	abs, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	return m.locks.Acquire(ctx, abs, lockType, m.cfg.Lock.MaxLockTimeout())
}

// ReleaseLock releases a handle obtained from AcquireLock. Safe to call with
// nil or an already-released handle.
func (m *Manager) ReleaseLock(handle *lockfile.Handle) {
	m.locks.Release(handle)
}

// WatchFile subscribes callback to debounced content changes of path.
// Change events invalidate the manager's cache entry for the path before the
// callback runs.
func (m *Manager) WatchFile(path string, callback watch.Callback) error {
	abs, err := m.resolve(path)
	if err != nil {
		return err
	}
	return m.watcher.Watch(abs, func(e watch.Event) {
		m.cache.Invalidate(e.Path)
		callback(e)
	})
}

// StopWatching cancels the subscription for path.
func (m *Manager) StopWatching(path string) error {
	abs, err := m.resolve(path)
	if err != nil {
		return err
	}
	return m.watcher.Unwatch(abs)
}

// Retry runs op, retrying transient OS errors with the manager's backoff
// policy.
func (m *Manager) Retry(ctx context.Context, op func() error) error {
	return retry.Do(ctx, m.logger, m.policy, op)
}

// Status returns a snapshot of the manager's runtime state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	disposed := m.disposed
	m.mu.Unlock()

	return Status{
		Initialized:    !disposed,
		WorkspaceRoot:  m.root,
		ActiveLocks:    m.locks.Count(),
		ActiveWatchers: m.watcher.Count(),
		CacheEntries:   m.cache.Len(),
	}
}

// Dispose shuts the manager down: the maintenance task stops, watchers are
// closed, held locks are released, and the cache is cleared. Idempotent.
func (m *Manager) Dispose() error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil
	}
	m.disposed = true
	m.mu.Unlock()

	close(m.maintStop)
	<-m.maintDone

	err := m.watcher.Close()
	m.locks.ReleaseAll()
	m.cache.Clear()

	m.logger.Info("file access manager disposed")
	if m.ownsLogger {
		if cerr := m.logger.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
