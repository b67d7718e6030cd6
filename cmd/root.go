package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"wpback/internal/logger"
)

var (
	// ConfigFile is the path to the optional YAML configuration.
	ConfigFile string
	// Debug enables debug-level log output.
	Debug bool

	// rootCmd is the base command for wpback.
	rootCmd = &cobra.Command{
		Use:   "wpback",
		Short: "Back up and restore WordPress sites with their MySQL database",
		Long: `wpback archives a WordPress installation together with a full dump of
its MySQL database into a single tarball, and restores both from it.
Database credentials are read from the site's wp-config.php.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := logger.Init(Debug)
			return err
		},
	}
)

// Execute runs the root command.
func Execute() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		logger.Global().Error("command failed", "error", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&ConfigFile, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().
		BoolVar(&Debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}
