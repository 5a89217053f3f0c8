package lockfile

import (
	"time"
)

// LockType defines the declared exclusivity of a lock. With a single marker
// file per target, the file's presence excludes all other acquirers
// regardless of type; the type is recorded in the payload so observers can
// tell read-modify-write sequences from shared reads.
type LockType string

const (
	// LockExclusive marks a lock taken for mutation.
	LockExclusive LockType = "exclusive"

	// LockShared marks a lock taken for multi-step reads.
	LockShared LockType = "shared"
)

// Handle represents an acquired lock. It is owned by the caller that
// acquired it and must be released exactly once; Release tolerates
// duplicates.
type Handle struct {
	Path       string    // Absolute target path
	LockPath   string    // Sidecar lock-file path
	PID        int       // Owning process ID
	AcquiredAt time.Time // When the lock was established
	Type       LockType  // Declared exclusivity
}

// payload is the JSON document written to the lock file. Field names are
// the cross-process wire format and must not change.
type payload struct {
	ProcessID  int      `json:"processId"`
	AcquiredAt int64    `json:"acquiredAt"` // epoch milliseconds
	LockType   LockType `json:"lockType"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)
