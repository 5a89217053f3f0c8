package lockfile

// LivenessChecker reports whether the process that recorded a lock is still
// running. The default implementation probes with a no-op signal; platforms
// without that primitive substitute their own check without changing the
// coordinator's algorithm.
type LivenessChecker interface {
	Alive(pid int) bool
}

// SignalLiveness probes processes using the platform's no-op signal.
type SignalLiveness struct{}

// Alive reports whether a process with the given PID is running.
func (SignalLiveness) Alive(pid int) bool {
	return processAlive(pid)
}

// LivenessFunc adapts a function to the LivenessChecker interface.
// Useful for tests that simulate dead owners.
type LivenessFunc func(pid int) bool

// Alive calls the wrapped function.
func (f LivenessFunc) Alive(pid int) bool { return f(pid) }
