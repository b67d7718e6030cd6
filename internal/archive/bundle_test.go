package archive

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	site := filepath.Join(tmp, "wordpress")
	writeFile(t, filepath.Join(site, "wp-config.php"), "<?php define('DB_NAME', 'wp');")
	writeFile(t, filepath.Join(site, "wp-content", "uploads", "img.bin"), "\x00\x01\xff binary")
	writeFile(t, filepath.Join(site, ".htaccess"), "RewriteEngine On\n")

	archivePath := filepath.Join(tmp, "wordpress-full.tar.gz")
	if err := Pack(context.Background(), site, archivePath); err != nil {
		t.Fatalf("Pack returned error: %v", err)
	}

	target := filepath.Join(tmp, "restored", "site")
	if err := Unpack(context.Background(), archivePath, target); err != nil {
		t.Fatalf("Unpack returned error: %v", err)
	}

	for rel, want := range map[string]string{
		"wp-config.php":                       "<?php define('DB_NAME', 'wp');",
		"wp-content/uploads/img.bin":          "\x00\x01\xff binary",
		".htaccess":                           "RewriteEngine On\n",
	} {
		got, err := os.ReadFile(filepath.Join(target, rel))
		if err != nil {
			t.Fatalf("restored file %s: %v", rel, err)
		}
		if string(got) != want {
			t.Errorf("%s content mismatch: got %q", rel, got)
		}
	}
}

func TestUnpackReplacesExistingTarget(t *testing.T) {
	tmp := t.TempDir()
	site := filepath.Join(tmp, "wordpress")
	writeFile(t, filepath.Join(site, "index.php"), "new")

	archivePath := filepath.Join(tmp, "site.tar.gz")
	if err := Pack(context.Background(), site, archivePath); err != nil {
		t.Fatalf("Pack returned error: %v", err)
	}

	target := filepath.Join(tmp, "live")
	writeFile(t, filepath.Join(target, "stale.php"), "old content")

	if err := Unpack(context.Background(), archivePath, target); err != nil {
		t.Fatalf("Unpack returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(target, "stale.php")); !os.IsNotExist(err) {
		t.Error("stale file survived the restore")
	}
	if _, err := os.Stat(filepath.Join(target, "index.php")); err != nil {
		t.Errorf("restored file missing: %v", err)
	}
}

// writeTarball builds a crafted archive directly, bypassing Pack.
func writeTarball(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create tarball: %v", err)
	}
	defer f.Close()
	gz := pgzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write body %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
}

func TestUnpackRejectsPathTraversal(t *testing.T) {
	tmp := t.TempDir()
	archivePath := filepath.Join(tmp, "evil.tar.gz")
	writeTarball(t, archivePath, map[string]string{
		"site/../../evil.php": "<?php",
	})

	err := Unpack(context.Background(), archivePath, filepath.Join(tmp, "out", "site"))
	if err == nil {
		t.Fatal("Unpack accepted a traversal entry")
	}
	if _, statErr := os.Stat(filepath.Join(tmp, "evil.php")); !os.IsNotExist(statErr) {
		t.Error("traversal entry was written outside the target")
	}
}

func TestUnpackRejectsAbsolutePath(t *testing.T) {
	tmp := t.TempDir()
	archivePath := filepath.Join(tmp, "abs.tar.gz")
	writeTarball(t, archivePath, map[string]string{
		"/etc/evil.conf": "bad",
	})

	if err := Unpack(context.Background(), archivePath, filepath.Join(tmp, "site")); err == nil {
		t.Fatal("Unpack accepted an absolute entry")
	}
}

func TestUnpackEmptyArchive(t *testing.T) {
	tmp := t.TempDir()
	archivePath := filepath.Join(tmp, "empty.tar.gz")
	writeTarball(t, archivePath, nil)

	if err := Unpack(context.Background(), archivePath, filepath.Join(tmp, "site")); err == nil {
		t.Fatal("Unpack accepted an empty archive")
	}
}
