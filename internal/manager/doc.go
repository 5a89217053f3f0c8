// Package manager provides the file-access façade that coordinates every
// read and write against a project workspace. It composes the subsystem
// packages into one API: path resolution, advisory locking, atomic writes,
// content caching, change watching, and transient-error retry.
//
// # Architecture
//
// A Manager owns one workspace root and one instance of each collaborator:
//
//   - workspace.Resolver derives absolute, temp, lock, and backup paths
//   - lockfile.Coordinator arbitrates cross-process access per target path
//   - cache.Cache serves repeated reads without touching the filesystem
//   - watch.Watcher delivers debounced, content-aware change callbacks
//   - retry.Do absorbs transient OS errors around filesystem calls
//
// Writes follow the lock, backup, temp-write, rename sequence so that a
// reader at any instant sees either the old content or the new content,
// never a partial file. A background maintenance task sweeps expired cache
// entries, reclaims orphaned lock files, and prunes stale temp files and
// aged backups.
//
// # Basic Usage
//
//	mgr, err := manager.New(config.Default(), manager.WithWorkspaceRoot(root))
//	if err != nil {
//	    return err
//	}
//	defer mgr.Dispose()
//
//	if err := mgr.WriteFile(ctx, "state.json", data); err != nil {
//	    return err
//	}
//	content, err := mgr.ReadFile(ctx, "state.json", true)
//
// # Thread Safety
//
// All Manager methods are safe for concurrent use. Operations on distinct
// paths proceed in parallel; operations on the same path serialize through
// the lock coordinator.
package manager
