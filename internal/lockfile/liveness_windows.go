//go:build windows

package lockfile

import (
	"os"
)

// processAlive checks if a process with the given PID is still running.
// On Windows, FindProcess opens a handle and fails for nonexistent PIDs.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	defer process.Release() //nolint:errcheck
	return true
}
