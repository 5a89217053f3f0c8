package manager

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kestrelhq/fsbroker/internal/workspace"
)

// staleTempAge is how old a temp file must be before maintenance treats it
// as orphaned by a crashed write. Writes in flight are far shorter than
// this.
const staleTempAge = 15 * time.Minute

// maintenanceLoop runs one pass at startup and then on the configured
// cadence until the manager is disposed.
func (m *Manager) maintenanceLoop() {
	defer close(m.maintDone)

	m.runMaintenance()

	interval := m.cfg.Maintenance.Interval()
	if interval <= 0 {
		<-m.maintStop
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.maintStop:
			return
		case <-ticker.C:
			m.runMaintenance()
		}
	}
}

// runMaintenance performs one housekeeping pass over the workspace.
func (m *Manager) runMaintenance() {
	swept := m.cache.Sweep()
	orphans := m.locks.CleanOrphans(m.root)
	temps := m.cleanStaleTempFiles()
	backups := m.pruneBackups()

	if swept+orphans+temps+backups > 0 {
		m.logger.Info("maintenance pass",
			"cache_swept", swept,
			"locks_reclaimed", orphans,
			"temps_removed", temps,
			"backups_pruned", backups,
		)
	}
}

// cleanStaleTempFiles removes temp siblings older than staleTempAge. These
// are leftovers from writes interrupted before their rename.
func (m *Manager) cleanStaleTempFiles() int {
	cutoff := m.clock().Add(-staleTempAge)
	removed := 0

	_ = filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !workspace.IsTempPath(path) {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil || info.ModTime().After(cutoff) {
			return nil
		}
		if rmErr := os.Remove(path); rmErr == nil {
			removed++
		}
		return nil
	})

	return removed
}

// pruneBackups removes timestamped backups older than the configured
// retention window. A non-positive retention disables pruning.
func (m *Manager) pruneBackups() int {
	retention := m.cfg.Maintenance.BackupRetention()
	if retention <= 0 {
		return 0
	}
	cutoff := m.clock().Add(-retention)
	removed := 0

	_ = filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !workspace.IsBackupPath(path) {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil || info.ModTime().After(cutoff) {
			return nil
		}
		if rmErr := os.Remove(path); rmErr == nil {
			removed++
		}
		return nil
	})

	return removed
}
