//go:build unix

package lockfile

import (
	"os"
	"syscall"
)

// processAlive checks if a process with the given PID is still running.
// On Unix, sending signal 0 checks existence without affecting the process.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
