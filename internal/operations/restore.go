package operations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"wpback/internal/archive"
	"wpback/internal/database"
	"wpback/internal/dump"
	"wpback/internal/restore"
)

// ResolveArchive locates the site tarball inside a backup directory, the
// layout BackupSite produces.
func ResolveArchive(backupDir string) (string, error) {
	archivePath := filepath.Join(backupDir, ArchiveFilename)
	info, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("no %s in backup directory %q: %w", ArchiveFilename, backupDir, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s in backup directory %q is not a file", ArchiveFilename, backupDir)
	}
	return archivePath, nil
}

// RestoreSite unpacks a full-site archive over targetDir and replays the
// database dump it carries. Files are restored first so a database failure
// still leaves a usable tree. The unpack removes any existing targetDir;
// the CLI confirms that with the user before calling.
func (op *Operator) RestoreSite(ctx context.Context, archivePath, targetDir string) error {
	op.log.Info("restoring files", "archive", archivePath, "target", targetDir)
	if err := archive.Unpack(ctx, archivePath, targetDir); err != nil {
		return err
	}
	op.log.Info("files restored", "target", targetDir)

	creds, err := op.resolveCredentials(ctx, targetDir)
	if err != nil {
		return fmt.Errorf("restored tree has no usable wp-config.php: %w", err)
	}

	dumpPath, err := findDump(targetDir)
	if err != nil {
		op.log.Warn("no database dump in archive, files restored only",
			"error", err.Error(),
		)
		op.FixPermissions(targetDir)
		return nil
	}

	stmts, err := readDump(dumpPath)
	if err != nil {
		return err
	}
	// The dump doesn't belong in the live tree once loaded.
	defer os.Remove(dumpPath)

	rctx, cancel := context.WithTimeout(ctx, op.cfg.Restore.Timeout)
	defer cancel()

	db, err := database.Open(rctx, database.Config{
		Host:     creds.Host,
		Port:     creds.Port,
		User:     creds.User,
		Password: creds.Password,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureDatabase(rctx, creds.Name); err != nil {
		return err
	}
	if err := db.Exec(rctx, "SET autocommit=0"); err != nil {
		return fmt.Errorf("disable autocommit: %w", err)
	}

	result, err := restore.Replay(rctx, db, stmts, database.NewClassifier(), op.log)
	if err != nil {
		return err
	}
	op.log.Info("database restored",
		"database", creds.Name,
		"executed", result.Executed,
		"failed", result.Failed,
	)

	op.FixPermissions(targetDir)
	return nil
}

// findDump locates the database script inside a restored tree, preferring
// the plain .sql form over compressed ones.
func findDump(dir string) (string, error) {
	for _, pattern := range []string{"database_*.sql", "database_*.sql.zst", "database_*.sql.gz"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], nil
		}
	}
	return "", fmt.Errorf("no database_*.sql dump under %s", dir)
}

func readDump(path string) ([]string, error) {
	r, err := OpenDump(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	stmts, err := dump.Split(r)
	if err != nil {
		return nil, fmt.Errorf("parse dump %q: %w", path, err)
	}
	return stmts, nil
}
