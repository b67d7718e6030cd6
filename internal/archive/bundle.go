// Package archive packs a directory tree into a tar.gz stream and back.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
)

// ErrArchive marks packing or extraction failures. Extraction failing
// midway leaves a partial tree behind; it is reported, never rolled back.
var ErrArchive = errors.New("archive operation failed")

// Pack archives sourceDir into a tar.gz at archivePath. Entries are stored
// under the source directory's base name so the tree keeps its top-level
// directory when unpacked.
func Pack(ctx context.Context, sourceDir, archivePath string) error {
	src := filepath.Clean(sourceDir)
	root := filepath.Base(src)

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrArchive, archivePath, err)
	}
	defer out.Close()

	gz := pgzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		name := root
		if rel != "." {
			name = filepath.ToSlash(filepath.Join(root, rel))
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if walkErr != nil {
		return fmt.Errorf("%w: pack %s: %v", ErrArchive, src, walkErr)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("%w: finalize tar: %v", ErrArchive, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("%w: finalize gzip: %v", ErrArchive, err)
	}
	return nil
}

// Unpack extracts archivePath and installs its top-level directory at
// targetDir. A pre-existing targetDir is removed first; that is
// destructive, and the caller is expected to have confirmed it. The
// archive's own top-level name is extracted into targetDir's parent and
// renamed, so the archive may carry a different directory name than the
// restore target.
func Unpack(ctx context.Context, archivePath, targetDir string) error {
	target := filepath.Clean(targetDir)
	parent := filepath.Dir(target)

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrArchive, archivePath, err)
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: gzip %s: %v", ErrArchive, archivePath, err)
	}
	defer gz.Close()

	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("%w: remove existing %s: %v", ErrArchive, target, err)
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrArchive, parent, err)
	}

	tr := tar.NewReader(gz)
	root := ""
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrArchive, err)
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: read tar header: %v", ErrArchive, err)
		}

		if root == "" {
			root = topLevelName(hdr.Name)
		}

		if err := validatePath(hdr.Name, parent); err != nil {
			return fmt.Errorf("%w: %v", ErrArchive, err)
		}
		dest := filepath.Join(parent, filepath.FromSlash(hdr.Name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, os.FileMode(hdr.Mode)|0o700); err != nil {
				return fmt.Errorf("%w: mkdir %s: %v", ErrArchive, dest, err)
			}
		case tar.TypeReg:
			if err := extractFile(tr, dest, os.FileMode(hdr.Mode)); err != nil {
				return fmt.Errorf("%w: %v", ErrArchive, err)
			}
		case tar.TypeSymlink:
			if err := validateLink(hdr.Linkname, dest, parent); err != nil {
				return fmt.Errorf("%w: %v", ErrArchive, err)
			}
			os.Remove(dest)
			if err := os.Symlink(hdr.Linkname, dest); err != nil {
				return fmt.Errorf("%w: symlink %s: %v", ErrArchive, dest, err)
			}
		}
	}
	if root == "" {
		return fmt.Errorf("%w: %s is empty", ErrArchive, archivePath)
	}

	extracted := filepath.Join(parent, root)
	if extracted != target {
		if err := os.Rename(extracted, target); err != nil {
			return fmt.Errorf("%w: rename %s to %s: %v", ErrArchive, extracted, target, err)
		}
	}
	return nil
}

func extractFile(r io.Reader, dest string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func topLevelName(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[:i]
	}
	return name
}

// validatePath rejects entries that would escape the extraction base, such
// as absolute names or ../ traversal.
func validatePath(name, base string) error {
	if filepath.IsAbs(name) {
		return fmt.Errorf("absolute path in archive: %s", name)
	}
	clean := filepath.Clean(filepath.Join(base, filepath.FromSlash(name)))
	prefix := filepath.Clean(base) + string(os.PathSeparator)
	if !strings.HasPrefix(clean, prefix) && clean != filepath.Clean(base) {
		return fmt.Errorf("path escapes extraction directory: %s", name)
	}
	return nil
}

func validateLink(linkname, dest, base string) error {
	target := linkname
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(dest), target)
	}
	clean := filepath.Clean(target)
	prefix := filepath.Clean(base) + string(os.PathSeparator)
	if !strings.HasPrefix(clean, prefix) && clean != filepath.Clean(base) {
		return fmt.Errorf("symlink escapes extraction directory: %s -> %s", dest, linkname)
	}
	return nil
}
