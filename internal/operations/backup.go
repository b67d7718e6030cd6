package operations

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"wpback/internal/archive"
	"wpback/internal/database"
	"wpback/internal/dump"
	"wpback/internal/wpconfig"
)

// ArchiveFilename is the fixed name of the full-site tarball inside the
// output directory.
const ArchiveFilename = "wordpress-full.tar.gz"

// BackupSite dumps the site's database into its directory tree and packs
// the whole tree into a tar.gz under outputDir. A failing database dump
// does not stop the file archive: the files are still packed and the dump
// error is returned afterwards so the caller exits nonzero.
func (op *Operator) BackupSite(ctx context.Context, wpPath, outputDir string) error {
	site, err := op.findSite(wpPath)
	if err != nil {
		return err
	}
	op.log.Info("backing up WordPress installation", "path", site)

	creds, err := op.resolveCredentials(ctx, site)
	if err != nil {
		return err
	}
	op.auditCredentials(creds)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", outputDir, err)
	}

	start := time.Now()
	record := Metadata{
		Site:      site,
		Database:  creds.Name,
		Host:      creds.Host,
		StartedAt: start,
		Status:    "success",
	}

	// The dump is written inside the site tree so the archive carries both
	// files and database, then removed from the live tree afterwards.
	dumpPath := filepath.Join(site, "database_"+creds.Name+".sql")
	dumpErr := op.dumpDatabase(ctx, creds, dumpPath)
	if dumpErr != nil {
		record.Status = "files-only"
		record.Error = dumpErr.Error()
		op.log.Error("database dump failed, archiving files only",
			"database", creds.Name,
			"error", dumpErr.Error(),
		)
	} else {
		if info, err := os.Stat(dumpPath); err == nil {
			record.DumpBytes = info.Size()
		}
		if op.cfg.Backup.Compress {
			comPath, err := CompressZstd(dumpPath)
			if err != nil {
				os.Remove(dumpPath)
				return fmt.Errorf("compress dump: %w", err)
			}
			dumpPath = comPath
		}
	}
	defer os.Remove(dumpPath)

	archivePath := filepath.Join(outputDir, ArchiveFilename)
	if err := archive.Pack(ctx, site, archivePath); err != nil {
		return err
	}
	record.ArchiveFile = archivePath
	if info, err := os.Stat(archivePath); err == nil {
		record.SizeBytes = info.Size()
	}
	record.CompletedAt = time.Now()
	record.Duration = record.CompletedAt.Sub(start)

	// Loose copies beside the archive: the two files most often needed
	// without unpacking the whole site.
	for _, name := range []string{"wp-config.php", ".htaccess"} {
		src := filepath.Join(site, name)
		if err := copyFile(src, filepath.Join(outputDir, name)); err != nil {
			op.log.Debug("companion file not copied", "file", name, "error", err.Error())
		}
	}

	if err := record.Write(outputDir); err != nil {
		op.log.Warn("couldn't write metadata", "error", err.Error())
	}

	op.log.Info("backup complete",
		"archive", archivePath,
		"size_bytes", record.SizeBytes,
		"duration", record.Duration.String(),
	)
	if dumpErr != nil {
		return fmt.Errorf("database dump failed: %w", dumpErr)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// dumpDatabase connects with creds and writes the full dump script to
// dumpPath. A partial file is removed on failure.
func (op *Operator) dumpDatabase(ctx context.Context, creds *wpconfig.Credentials, dumpPath string) error {
	dctx, cancel := context.WithTimeout(ctx, op.cfg.Backup.Timeout)
	defer cancel()

	db, err := database.Open(dctx, database.Config{
		Host:     creds.Host,
		Port:     creds.Port,
		User:     creds.User,
		Password: creds.Password,
		Database: creds.Name,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.Create(dumpPath)
	if err != nil {
		return fmt.Errorf("create dump file %q: %w", dumpPath, err)
	}

	w := dump.NewWriter(f, op.log)
	if err := w.WriteScript(dctx, db, creds.Name, creds.Host); err != nil {
		f.Close()
		os.Remove(dumpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(dumpPath)
		return fmt.Errorf("close dump file %q: %w", dumpPath, err)
	}
	return nil
}
