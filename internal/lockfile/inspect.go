package lockfile

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/kestrelhq/fsbroker/internal/workspace"
)

// Info describes an on-disk lock file, independent of any coordinator.
type Info struct {
	LockPath   string
	Target     string
	PID        int
	AcquiredAt time.Time
	Type       LockType
	Alive      bool
}

// Inspect reads a lock file's payload and probes its owner's liveness.
// A nil liveness uses the default signal probe.
func Inspect(lockPath string, liveness LivenessChecker) (*Info, error) {
	if liveness == nil {
		liveness = SignalLiveness{}
	}

	p, err := readPayload(lockPath)
	if err != nil {
		return nil, err
	}

	return &Info{
		LockPath:   lockPath,
		Target:     workspace.TargetForLockPath(lockPath),
		PID:        p.ProcessID,
		AcquiredAt: time.UnixMilli(p.AcquiredAt),
		Type:       p.LockType,
		Alive:      liveness.Alive(p.ProcessID),
	}, nil
}

// ListLocks walks root and inspects every lock file found. Unreadable or
// corrupt lock files are skipped.
func ListLocks(root string, liveness LivenessChecker) []*Info {
	var infos []*Info

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !workspace.IsLockPath(path) {
			return nil
		}
		if info, inspectErr := Inspect(path, liveness); inspectErr == nil {
			infos = append(infos, info)
		}
		return nil
	})

	return infos
}
