package operations

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressZstd replaces the file at inputPath with a Zstandard-compressed
// copy and returns the new path.
func CompressZstd(inputPath string) (string, error) {
	outputPath := inputPath + ".zst"

	inFile, err := os.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	writer, err := zstd.NewWriter(outFile)
	if err != nil {
		return "", fmt.Errorf("failed to create Zstandard writer: %w", err)
	}
	if _, err := io.Copy(writer, inFile); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to compress file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize compressed file: %w", err)
	}

	if err := os.Remove(inputPath); err != nil {
		return "", fmt.Errorf("failed to remove original file: %w", err)
	}
	return outputPath, nil
}

// OpenDump opens a dump script for reading, transparently decoding the
// .zst and .gz forms a backup may carry.
func OpenDump(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch filepath.Ext(path) {
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd dump %q: %w", path, err)
		}
		return &decodedDump{r: zr.IOReadCloser(), f: f}, nil
	case ".gz":
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip dump %q: %w", path, err)
		}
		return &decodedDump{r: gr, f: f}, nil
	default:
		return f, nil
	}
}

// decodedDump closes both the decoder and the file beneath it.
type decodedDump struct {
	r io.ReadCloser
	f *os.File
}

func (d *decodedDump) Read(p []byte) (int, error) { return d.r.Read(p) }

func (d *decodedDump) Close() error {
	err := d.r.Close()
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	return err
}
