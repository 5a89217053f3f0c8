package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/kestrelhq/fsbroker/internal/errors"
	"github.com/kestrelhq/fsbroker/internal/lockfile"
	"github.com/kestrelhq/fsbroker/internal/validate"
)

// writeOptions collects per-write overrides.
type writeOptions struct {
	verify bool
	backup bool
}

// WriteOption configures a single write operation.
type WriteOption func(*writeOptions)

// WithVerification reads the temp file back before the rename and fails the
// write on a mismatch.
func WithVerification() WriteOption {
	return func(o *writeOptions) { o.verify = true }
}

// WithBackup preserves the previous content as a timestamped sibling before
// the target is replaced. Backup failures are logged, not fatal.
func WithBackup() WriteOption {
	return func(o *writeOptions) { o.backup = true }
}

// ReadFile returns the content of path. With useCache, a fresh cache entry
// short-circuits the filesystem; a miss reads from disk and repopulates the
// cache. Read failures surface as ReadError.
func (m *Manager) ReadFile(ctx context.Context, path string, useCache bool) ([]byte, error) {
	abs, err := m.resolve(path)
	if err != nil {
		return nil, err
	}

	if useCache {
		if content, ok := m.cache.Get(abs); ok {
			// Callers may mutate the returned slice.
			out := make([]byte, len(content))
			copy(out, content)
			return out, nil
		}
	}

	var content []byte
	err = m.Retry(ctx, func() error {
		var readErr error
		content, readErr = os.ReadFile(abs)
		return readErr
	})
	if err != nil {
		return nil, errors.NewReadError(abs, err)
	}

	m.cache.Put(abs, content, validate.Hash(content))
	return content, nil
}

// WriteFile atomically replaces path with content. The target is locked for
// the duration, the content lands in a temp sibling first, and the final
// rename installs it in one step, so concurrent readers never observe a
// partial file. The cache entry is refreshed on success.
func (m *Manager) WriteFile(ctx context.Context, path string, content []byte, opts ...WriteOption) error {
	abs, err := m.resolve(path)
	if err != nil {
		return err
	}

	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}

	// The lock sidecar and temp sibling live next to the target, so the
	// parent directory must exist before either is created.
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create parent directory for %s", abs)
	}

	handle, err := m.locks.Acquire(ctx, abs, lockfile.LockExclusive, m.cfg.Lock.MaxLockTimeout())
	if err != nil {
		return err
	}
	defer m.locks.Release(handle)

	if o.backup {
		m.backupExisting(abs)
	}

	if err := m.atomicWrite(ctx, abs, content, o.verify); err != nil {
		return err
	}

	m.cache.Put(abs, content, validate.Hash(content))
	m.logger.Debug("file written", "path", abs, "bytes", len(content))
	return nil
}

// atomicWrite writes content to a temp sibling and renames it over the
// target. The temp file is removed on every failure path.
func (m *Manager) atomicWrite(ctx context.Context, abs string, content []byte, verify bool) error {
	tempPath := m.resolver.TempPathFor(abs)

	err := m.Retry(ctx, func() error {
		return writeAndSync(tempPath, content)
	})
	if err != nil {
		os.Remove(tempPath) //nolint:errcheck
		return errors.Wrapf(err, "failed to write temp file for %s", abs)
	}

	if verify {
		readBack, readErr := os.ReadFile(tempPath)
		if readErr != nil {
			os.Remove(tempPath) //nolint:errcheck
			return errors.NewReadError(tempPath, readErr)
		}
		if !bytes.Equal(readBack, content) {
			os.Remove(tempPath) //nolint:errcheck
			return errors.NewWriteVerificationError(abs, len(content), len(readBack))
		}
	}

	if err := m.Retry(ctx, func() error { return m.rename(tempPath, abs) }); err != nil {
		os.Remove(tempPath) //nolint:errcheck
		return errors.Wrapf(err, "failed to install %s", abs)
	}
	return nil
}

// writeAndSync creates path with content and flushes it to stable storage.
func writeAndSync(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}

// backupExisting copies the current content of abs to a timestamped sibling.
// Best effort: a missing target or a failed copy only logs.
func (m *Manager) backupExisting(abs string) {
	src, err := os.Open(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("backup skipped", "path", abs, "error", err.Error())
		}
		return
	}
	defer src.Close() //nolint:errcheck

	backupPath := m.resolver.BackupPathFor(abs, m.clock())
	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		m.logger.Warn("backup skipped", "path", abs, "error", err.Error())
		return
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()           //nolint:errcheck
		os.Remove(backupPath) //nolint:errcheck
		m.logger.Warn("backup failed", "path", abs, "error", err.Error())
		return
	}
	if err := dst.Close(); err != nil {
		os.Remove(backupPath) //nolint:errcheck
		m.logger.Warn("backup failed", "path", abs, "error", err.Error())
	}
}

// readJSONOptions collects per-read overrides.
type readJSONOptions struct {
	fallback    any
	hasFallback bool
}

// ReadJSONOption configures a single ReadJSON call.
type ReadJSONOption func(*readJSONOptions)

// DefaultTo makes a parse or validation failure populate the destination
// with fallback instead of propagating the error. Read failures still
// propagate.
func DefaultTo(fallback any) ReadJSONOption {
	return func(o *readJSONOptions) {
		o.fallback = fallback
		o.hasFallback = true
	}
}

// ReadJSON reads path, optionally validates the document against schema,
// and unmarshals it into v. Schema violations surface as ValidationError
// carrying every violation found; with DefaultTo, parse and validation
// failures populate v with the fallback instead.
func (m *Manager) ReadJSON(ctx context.Context, path string, v any, schema *validate.Schema, useCache bool, opts ...ReadJSONOption) error {
	abs, err := m.resolve(path)
	if err != nil {
		return err
	}

	var o readJSONOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, err := m.ReadFile(ctx, abs, useCache)
	if err != nil {
		return err
	}

	if err := decodeJSON(abs, data, v, schema); err != nil {
		if o.hasFallback {
			m.logger.Warn("falling back to default document",
				"path", abs,
				"error", err.Error(),
			)
			return assignFallback(v, o.fallback)
		}
		return err
	}
	return nil
}

// decodeJSON validates data against schema (when given) and unmarshals it
// into v.
func decodeJSON(abs string, data []byte, v any, schema *validate.Schema) error {
	if schema != nil {
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return errors.NewReadError(abs, err)
		}
		if err := schema.Validate(doc); err != nil {
			var verr *errors.ValidationError
			if errors.As(err, &verr) {
				return verr.WithPath(abs)
			}
			return err
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewReadError(abs, err)
	}
	return nil
}

// assignFallback copies the fallback document into the destination via a
// JSON round trip, so any JSON-compatible value works as a default.
func assignFallback(v, fallback any) error {
	data, err := json.Marshal(fallback)
	if err != nil {
		return errors.Wrap(err, "failed to marshal fallback document")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "failed to apply fallback document")
	}
	return nil
}

// WriteJSON marshals v as indented JSON and atomically writes it to path.
// When schema is non-nil the document is validated before any filesystem
// mutation, so a failed validation leaves the target untouched.
func (m *Manager) WriteJSON(ctx context.Context, path string, v any, schema *validate.Schema, opts ...WriteOption) error {
	abs, err := m.resolve(path)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to marshal JSON for %s", abs)
	}
	data = append(data, '\n')

	if schema != nil {
		// Validate the serialized form so what is checked is what lands on
		// disk.
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return errors.Wrapf(err, "failed to round-trip JSON for %s", abs)
		}
		if err := schema.Validate(doc); err != nil {
			var verr *errors.ValidationError
			if errors.As(err, &verr) {
				return verr.WithPath(abs)
			}
			return err
		}
	}

	return m.WriteFile(ctx, abs, data, opts...)
}

// FileExists reports whether path exists as a regular file.
func (m *Manager) FileExists(path string) (bool, error) {
	abs, err := m.resolve(path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.NewReadError(abs, err)
	}
	return info.Mode().IsRegular(), nil
}

// DeleteFile removes path under an exclusive lock and drops its cache entry.
// A missing target is not an error.
func (m *Manager) DeleteFile(ctx context.Context, path string) error {
	abs, err := m.resolve(path)
	if err != nil {
		return err
	}

	handle, err := m.locks.Acquire(ctx, abs, lockfile.LockExclusive, m.cfg.Lock.MaxLockTimeout())
	if err != nil {
		return err
	}
	defer m.locks.Release(handle)

	err = m.Retry(ctx, func() error {
		if rmErr := os.Remove(abs); rmErr != nil && !os.IsNotExist(rmErr) {
			return rmErr
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to delete %s", abs)
	}

	m.cache.Invalidate(abs)
	m.logger.Debug("file deleted", "path", abs)
	return nil
}
