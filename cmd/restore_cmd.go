package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wpback/internal/operations"
)

var assumeYes bool

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-dir> <target-dir>",
	Short: "Restore a site backup and replay its database dump",
	Long: `restore unpacks the ` + operations.ArchiveFilename + ` from a wpback
backup directory over <target-dir> and loads the database dump it carries,
using the credentials from the restored wp-config.php. An existing
<target-dir> is REPLACED.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		backupDir, targetDir := args[0], args[1]

		archivePath, err := operations.ResolveArchive(backupDir)
		if err != nil {
			return err
		}

		listBackupDir(backupDir)
		if !assumeYes && !confirmReplace(targetDir) {
			fmt.Fprintln(os.Stderr, "aborted")
			return nil
		}

		op, err := operations.NewOperator(cmd.Context(), ConfigFile)
		if err != nil {
			return err
		}
		return op.RestoreSite(cmd.Context(), archivePath, targetDir)
	},
}

// listBackupDir prints what the backup directory holds (archive, metadata,
// loose config copies) so the user sees what they are restoring from.
func listBackupDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Backup directory %s:\n", dir)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		fmt.Fprintf(os.Stderr, "  %-30s %10d bytes\n", e.Name(), info.Size())
	}
}

// confirmReplace asks before the destructive unpack. Only an existing
// target needs confirming.
func confirmReplace(targetDir string) bool {
	if _, err := os.Stat(targetDir); err != nil {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s exists and will be replaced. Continue? [y/N] ", targetDir)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	restoreCmd.Flags().
		BoolVarP(&assumeYes, "yes", "y", false, "replace an existing target without asking")
}
