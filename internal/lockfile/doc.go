// Package lockfile provides advisory cross-process file locking for fsbroker.
//
// Processes that honor the convention coordinate through a sidecar marker
// file (<target>.lock) containing the owner's process ID, acquisition time,
// and lock type. The OS does not enforce the lock; it only arbitrates
// cooperating fsbroker processes on the same filesystem.
//
// # Architecture
//
// The [Coordinator] maintains an in-memory registry of handles so that at
// most one in-process [Handle] exists per absolute path. The check-and-
// register step is atomic: a caller registers a placeholder under the
// registry mutex before attempting the lock file, so two concurrent callers
// in the same process can never both pass the availability check.
//
// Cross-process exclusivity rests on O_CREATE|O_EXCL creation of the lock
// file. When creation fails, the existing payload is read: a dead or
// unreadable owner is reclaimed immediately, a live owner triggers
// exponential backoff until the acquisition timeout elapses.
//
// # Basic Usage
//
//	coord := lockfile.NewCoordinator(lockfile.WithLogger(logger))
//
//	handle, err := coord.Acquire(ctx, "/ws/state.json", lockfile.LockExclusive, 5*time.Second)
//	if err != nil { ... }
//	defer coord.Release(handle)
//
// # Thread Safety
//
// All [Coordinator] methods are safe for concurrent use.
package lockfile
