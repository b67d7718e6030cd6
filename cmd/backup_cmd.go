package cmd

import (
	"github.com/spf13/cobra"

	"wpback/internal/operations"
)

var backupCmd = &cobra.Command{
	Use:   "backup <output-dir> [wordpress-path]",
	Short: "Archive a WordPress site and its database into a tarball",
	Long: `backup dumps the site's MySQL database, flags default or weak
credentials found in wp-config.php, and packs the whole installation into
<output-dir>/` + operations.ArchiveFilename + `. When no wordpress-path is
given, common document roots are searched for an installation.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputDir := args[0]
		wpPath := ""
		if len(args) == 2 {
			wpPath = args[1]
		}

		op, err := operations.NewOperator(cmd.Context(), ConfigFile)
		if err != nil {
			return err
		}
		return op.BackupSite(cmd.Context(), wpPath, outputDir)
	},
}
