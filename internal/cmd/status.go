package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace access state",
	Long:  `Display the manager state for the workspace: root, locks, watchers, and cache.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Dispose() //nolint:errcheck

	s := mgr.Status()
	fmt.Printf("Workspace: %s\n", s.WorkspaceRoot)
	fmt.Printf("Initialized: %v\n", s.Initialized)
	fmt.Printf("Active locks: %d\n", s.ActiveLocks)
	fmt.Printf("Active watchers: %d\n", s.ActiveWatchers)
	fmt.Printf("Cache entries: %d\n", s.CacheEntries)
	return nil
}
