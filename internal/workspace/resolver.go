// Package workspace resolves paths inside a project workspace. The resolver
// owns the workspace roots and derives the sidecar paths used by the rest of
// the subsystem: temp files for atomic writes, lock files for cross-process
// coordination, and timestamped backup paths.
package workspace

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/fsbroker/internal/errors"
)

// Suffixes for sidecar files derived from a target path.
const (
	LockSuffix   = ".lock"
	TempSuffix   = ".tmp"
	backupMarker = ".backup."
)

// Resolver turns workspace-relative paths into absolute paths and derives
// deterministic sidecar paths for a target. It is immutable after creation
// and safe for concurrent use.
type Resolver struct {
	roots []string
}

// NewResolver creates a Resolver over the given workspace roots. Roots are
// cleaned and made absolute; relative roots are resolved against the current
// working directory.
func NewResolver(roots ...string) *Resolver {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		if r == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		cleaned = append(cleaned, abs)
	}
	return &Resolver{roots: cleaned}
}

// DetectRoot returns the first configured workspace root, or ErrNoWorkspace
// if none is known.
func (r *Resolver) DetectRoot() (string, error) {
	if len(r.roots) == 0 {
		return "", errors.ErrNoWorkspace
	}
	return r.roots[0], nil
}

// Roots returns all configured workspace roots.
func (r *Resolver) Roots() []string {
	out := make([]string, len(r.roots))
	copy(out, r.roots)
	return out
}

// ResolveProjectPath joins the workspace root with a relative path and
// returns the absolute result. It fails with ErrNoWorkspace when no root is
// configured and with ErrOutsideWorkspace when the cleaned path escapes the
// root (e.g. via ".." segments).
func (r *Resolver) ResolveProjectPath(rel string) (string, error) {
	root, err := r.DetectRoot()
	if err != nil {
		return "", err
	}

	abs := filepath.Clean(filepath.Join(root, rel))
	if !within(root, abs) {
		return "", fmt.Errorf("%w: %s", errors.ErrOutsideWorkspace, rel)
	}
	return abs, nil
}

// EnsureWithin verifies that an already-absolute path stays under the
// workspace root and returns the cleaned path. Containment applies to every
// target regardless of how the caller spelled it.
func (r *Resolver) EnsureWithin(abs string) (string, error) {
	root, err := r.DetectRoot()
	if err != nil {
		return "", err
	}

	abs = filepath.Clean(abs)
	if !within(root, abs) {
		return "", fmt.Errorf("%w: %s", errors.ErrOutsideWorkspace, abs)
	}
	return abs, nil
}

// within reports whether the cleaned path abs is root itself or below it.
func within(root, abs string) bool {
	return abs == root || strings.HasPrefix(abs, root+string(filepath.Separator))
}

// TempPathFor returns a collision-resistant sibling path for atomic writes.
// The path is unique per call so concurrent writes to the same target never
// share a temp file.
func (r *Resolver) TempPathFor(abs string) string {
	dir := filepath.Dir(abs)
	name := filepath.Base(abs)
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return filepath.Join(dir, fmt.Sprintf(".%s.%s%s", name, token, TempSuffix))
}

// LockPathFor returns the deterministic lock-file path for a target.
func (r *Resolver) LockPathFor(abs string) string {
	return abs + LockSuffix
}

// BackupPathFor returns a timestamped backup path for a target.
func (r *Resolver) BackupPathFor(abs string, t time.Time) string {
	return fmt.Sprintf("%s%s%d", abs, backupMarker, t.UnixMilli())
}

// IsTempPath reports whether the base name matches the resolver's temp-file
// pattern. Used by maintenance to clean up temp files orphaned by crashes.
func IsTempPath(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, TempSuffix)
}

// IsLockPath reports whether the path names a lock sidecar file.
func IsLockPath(path string) bool {
	return strings.HasSuffix(path, LockSuffix)
}

// IsBackupPath reports whether the path names a timestamped backup file.
func IsBackupPath(path string) bool {
	return strings.Contains(filepath.Base(path), backupMarker)
}

// TargetForLockPath returns the target path a lock file guards.
func TargetForLockPath(lockPath string) string {
	return strings.TrimSuffix(lockPath, LockSuffix)
}
