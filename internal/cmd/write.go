package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/fsbroker/internal/manager"
)

var (
	writeVerify bool
	writeBackup bool
)

var writeCmd = &cobra.Command{
	Use:   "write <path> [content]",
	Short: "Atomically write a file through the access manager",
	Long: `Write content to a workspace file under an advisory lock. With no
content argument, stdin is written. The target is replaced atomically.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().BoolVar(&writeVerify, "verify", false, "read the content back before installing it")
	writeCmd.Flags().BoolVar(&writeBackup, "backup", false, "keep a timestamped backup of the previous content")
	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	var content []byte
	if len(args) == 2 {
		content = []byte(args[1])
	} else {
		var err error
		content, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Dispose() //nolint:errcheck

	var opts []manager.WriteOption
	if writeVerify {
		opts = append(opts, manager.WithVerification())
	}
	if writeBackup {
		opts = append(opts, manager.WithBackup())
	}

	if err := mgr.WriteFile(cmd.Context(), args[0], content, opts...); err != nil {
		return err
	}

	fmt.Printf("Wrote %d bytes to %s\n", len(content), args[0])
	return nil
}
