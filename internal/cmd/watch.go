package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/fsbroker/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>...",
	Short: "Watch files for content changes",
	Long: `Watch one or more workspace files and print a line for each debounced
content change until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Dispose() //nolint:errcheck

	for _, path := range args {
		if err := mgr.WatchFile(path, printEvent); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		fmt.Printf("Watching %s\n", path)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Println("\nStopping")
	return nil
}

func printEvent(e watch.Event) {
	ts := time.Now().Format("15:04:05")
	switch e.Kind {
	case watch.ChangeDeleted:
		fmt.Printf("[%s] %s deleted\n", ts, e.Path)
	default:
		fmt.Printf("[%s] %s %s (%d bytes)\n", ts, e.Path, e.Kind, len(e.Content))
	}
}
