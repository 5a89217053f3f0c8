package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/fsbroker/internal/lockfile"
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "List lock files in the workspace",
	Long:  `Scan the workspace for lock files and show each owner's process and liveness.`,
	RunE:  runLocks,
}

func init() {
	rootCmd.AddCommand(locksCmd)
}

func runLocks(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}

	infos := lockfile.ListLocks(root, nil)
	if len(infos) == 0 {
		fmt.Println("No locks held")
		return nil
	}

	for _, info := range infos {
		state := "live"
		if !info.Alive {
			state = "stale"
		}
		fmt.Printf("%s\n", info.Target)
		fmt.Printf("    PID: %d (%s)\n", info.PID, state)
		fmt.Printf("    Type: %s\n", info.Type)
		fmt.Printf("    Acquired: %s\n", info.AcquiredAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
