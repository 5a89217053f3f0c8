// Package testutil provides testing utilities for fsbroker tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupWorkspace creates a temporary workspace directory for testing.
// The directory is automatically cleaned up when the test completes.
func SetupWorkspace(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// SetupWorkspaceWithContent creates a test workspace with the specified
// files. The files map contains workspace-relative paths to file contents;
// intermediate directories are created as needed.
func SetupWorkspaceWithContent(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := SetupWorkspace(t)

	for path, content := range files {
		fullPath := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write file %s: %v", path, err)
		}
	}

	return dir
}

// WriteFile writes content to path, creating parent directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// ReadFile reads path and fails the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return string(data)
}

// FileExists reports whether path exists as a regular file.
func FileExists(t *testing.T, path string) bool {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}
		t.Fatalf("failed to stat %s: %v", path, err)
	}
	return info.Mode().IsRegular()
}
