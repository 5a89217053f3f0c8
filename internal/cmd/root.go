package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelhq/fsbroker/internal/config"
	"github.com/kestrelhq/fsbroker/internal/logging"
	"github.com/kestrelhq/fsbroker/internal/manager"
)

var rootCmd = &cobra.Command{
	Use:   "fsbroker",
	Short: "Coordinated file access for shared project workspaces",
	Long: `fsbroker coordinates file access across processes sharing a workspace:
advisory locks arbitrate writers, writes are atomic, and repeated reads
are served from an mtime-aware cache.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/fsbroker/fsbroker.yaml)")
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "workspace root (default is the current directory)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fsbroker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FSBROKER")
	// Replace dots with underscores for nested keys in env vars
	// e.g., FSBROKER_LOCK_MAX_TIMEOUT_MS for lock.max_timeout_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// workspaceRoot resolves the workspace root from the flag or the current
// directory.
func workspaceRoot() (string, error) {
	if root := viper.GetString("workspace"); root != "" {
		return root, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}

// newManager builds a manager over the resolved workspace root using the
// loaded configuration.
func newManager() (*manager.Manager, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, err
	}

	cfg := config.Get()
	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	mgr, err := manager.New(cfg,
		manager.WithWorkspaceRoot(root),
		manager.WithLogger(logger),
	)
	if err != nil {
		logger.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to create file access manager: %w", err)
	}
	return mgr, nil
}
