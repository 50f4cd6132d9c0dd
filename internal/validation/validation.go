// Package validation provides input validation and sanitization functions
// to prevent common security vulnerabilities like path traversal and
// resource exhaustion when reading documents and archives.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

// Security limits to prevent DoS attacks (CWE-400).
const (
	// MaxFileSize is the maximum size of a single document (64 MB).
	MaxFileSize = 64 << 20
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileTooLarge     = errors.New("file too large")
)

// ValidatePath performs path validation without requiring a base directory.
// It checks for length limits and invalid characters.
func ValidatePath(p string) error {
	if p == "" {
		return ErrEmptyPath
	}
	if len(p) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(p, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range p {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// SanitizeMemberName validates an archive member name and returns it in
// clean slash-separated form. Names that are absolute or climb out of the
// archive root are rejected.
func SanitizeMemberName(name string) (string, error) {
	if err := ValidatePath(name); err != nil {
		return "", err
	}
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}
	clean := path.Clean(name)
	if clean == "." {
		return "", ErrEmptyPath
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrPathTraversal
	}
	return clean, nil
}

// ReadLimited reads all of r, failing with ErrFileTooLarge once more than
// limit bytes arrive.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	return data, nil
}

// FileType represents a validated file type.
type FileType string

const (
	// Archive formats
	FileTypeTarXZ FileType = "tar.xz"
	FileTypeTarGZ FileType = "tar.gz"
	FileTypeTar   FileType = "tar"
	FileTypeZip   FileType = "zip"
	FileTypeGzip  FileType = "gzip"
	FileTypeXZ    FileType = "xz"

	// Documents
	FileTypeHTML  FileType = "html"
	FileTypeXHTML FileType = "xhtml"

	// Unknown
	FileTypeUnknown FileType = "unknown"
)

// IsDocument reports whether t is a markup type Bolder can annotate.
func (t FileType) IsDocument() bool {
	return t == FileTypeHTML || t == FileTypeXHTML
}

// HeaderSize is the number of leading bytes DetectFileType needs to see.
const HeaderSize = 512

// magicBytes defines magic byte signatures for file type detection.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
	offset   int
}{
	{FileTypeTar, []byte("ustar"), 257},
	{FileTypeGzip, []byte{0x1f, 0x8b}, 0},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, 0},
	{FileTypeZip, []byte{0x50, 0x4b, 0x03, 0x04}, 0},
}

// DetectFileType identifies a binary format from the leading bytes of a
// file. Text formats are not recognized and yield FileTypeUnknown.
func DetectFileType(header []byte) FileType {
	for _, sig := range magicBytes {
		if sig.offset+len(sig.magic) <= len(header) {
			if bytes.Equal(header[sig.offset:sig.offset+len(sig.magic)], sig.magic) {
				return sig.fileType
			}
		}
	}
	return FileTypeUnknown
}

// FileTypeFromExtension determines the expected file type from a filename.
func FileTypeFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)

	// Multi-extension formats (check these first)
	if strings.HasSuffix(lower, ".tar.xz") || strings.HasSuffix(lower, ".txz") {
		return FileTypeTarXZ
	}
	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		return FileTypeTarGZ
	}

	switch filepath.Ext(lower) {
	case ".tar":
		return FileTypeTar
	case ".xz":
		return FileTypeXZ
	case ".gz":
		return FileTypeGzip
	case ".zip":
		return FileTypeZip
	case ".html", ".htm":
		return FileTypeHTML
	case ".xhtml", ".xml":
		return FileTypeXHTML
	default:
		return FileTypeUnknown
	}
}

// ValidateFileType checks that header, the leading bytes of a file, matches
// the type its filename claims. It returns the type to treat the file as.
func ValidateFileType(header []byte, filename string) (FileType, error) {
	detected := DetectFileType(header)
	expected := FileTypeFromExtension(filename)

	// XZ and gzip wrap the tar, so the tar magic is not visible yet.
	if expected == FileTypeTarXZ && detected == FileTypeXZ {
		return FileTypeTarXZ, nil
	}
	if expected == FileTypeTarGZ && detected == FileTypeGzip {
		return FileTypeTarGZ, nil
	}
	if detected == expected {
		return detected, nil
	}

	if detected == FileTypeUnknown && expected.IsDocument() {
		if IsLikelyText(header) {
			return expected, nil
		}
		return FileTypeUnknown, fmt.Errorf("file type mismatch: %s does not look like %s", filename, expected)
	}
	if detected != FileTypeUnknown && expected != FileTypeUnknown {
		return FileTypeUnknown, fmt.Errorf("file type mismatch: extension suggests %s but content is %s", expected, detected)
	}
	if detected == FileTypeUnknown {
		return expected, nil
	}
	return detected, nil
}

// IsLikelyText reports whether buf looks like text rather than binary data.
func IsLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 bytes above 0x7f are neutral
	}
	if printable+control == 0 {
		return true
	}
	return float64(printable)/float64(printable+control) > 0.95
}
