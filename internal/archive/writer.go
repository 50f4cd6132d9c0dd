package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/Bolder/internal/validation"
)

// Writer builds a tar archive, compressed according to its file extension.
type Writer struct {
	tw         *tar.Writer
	compressor io.WriteCloser
	file       *os.File
	modTime    time.Time
	names      map[string]bool
}

// Create starts a new archive at path. The extension picks the format:
// .tar, .tar.gz (.tgz) or .tar.xz (.txz). Parent directories are created.
func Create(path string) (*Writer, error) {
	format := validation.FileTypeFromExtension(path)
	switch format {
	case validation.FileTypeTar, validation.FileTypeTarGZ, validation.FileTypeTarXZ:
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	w := &Writer{file: f, modTime: time.Now().Truncate(time.Second), names: make(map[string]bool)}
	var out io.Writer = f
	switch format {
	case validation.FileTypeTarGZ:
		w.compressor = gzip.NewWriter(f)
		out = w.compressor
	case validation.FileTypeTarXZ:
		xw, err := xz.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		w.compressor = xw
		out = xw
	}
	w.tw = tar.NewWriter(out)
	return w, nil
}

// Add writes one regular file. Every entry shares the archive's timestamp
// so that rebuilding the same input gives the same listing.
func (w *Writer) Add(name string, mode int64, data []byte) error {
	clean, err := validation.SanitizeMemberName(name)
	if err != nil {
		return fmt.Errorf("archive member %q: %w", name, err)
	}
	if w.names[clean] {
		return fmt.Errorf("archive member %q: duplicate name", clean)
	}
	if mode == 0 {
		mode = 0644
	}
	if err := w.tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     clean,
		Mode:     mode,
		Size:     int64(len(data)),
		ModTime:  w.modTime,
	}); err != nil {
		return err
	}
	if _, err := w.tw.Write(data); err != nil {
		return err
	}
	w.names[clean] = true
	return nil
}

// Len returns the number of entries written so far.
func (w *Writer) Len() int {
	return len(w.names)
}

// Close flushes the tar stream and the compressor, then closes the file.
func (w *Writer) Close() error {
	var errs []error
	if err := w.tw.Close(); err != nil {
		errs = append(errs, err)
	}
	if w.compressor != nil {
		if err := w.compressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
