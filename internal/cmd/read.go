package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var readNoCache bool

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Read a file through the access manager",
	Long:  `Read a workspace file and print its content to stdout.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRead,
}

func init() {
	readCmd.Flags().BoolVar(&readNoCache, "no-cache", false, "bypass the content cache")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Dispose() //nolint:errcheck

	content, err := mgr.ReadFile(cmd.Context(), args[0], !readNoCache)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(content)
	return err
}
