package validation

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError error
	}{
		{"simple path", "page.html", nil},
		{"absolute path", "/var/www/index.html", nil},
		{"unicode path", "docs/café.html", nil},
		{"empty path", "", ErrEmptyPath},
		{"too long", strings.Repeat("a", MaxPathLength+1), ErrPathTooLong},
		{"null byte", "page\x00.html", ErrInvalidCharacter},
		{"newline", "page\n.html", ErrInvalidCharacter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantError == nil && err != nil {
				t.Errorf("ValidatePath() error = %v, want nil", err)
			}
			if tt.wantError != nil && !errors.Is(err, tt.wantError) {
				t.Errorf("ValidatePath() error = %v, want %v", err, tt.wantError)
			}
		})
	}
}

func TestSanitizeMemberName(t *testing.T) {
	tests := []struct {
		name      string
		member    string
		want      string
		wantError error
	}{
		{"plain", "index.html", "index.html", nil},
		{"nested", "site/news/today.html", "site/news/today.html", nil},
		{"dot prefix", "./site/index.html", "site/index.html", nil},
		{"redundant separators", "site//index.html", "site/index.html", nil},
		{"inner dotdot stays inside", "site/a/../b.html", "site/b.html", nil},
		{"backslashes", `site\index.html`, "site/index.html", nil},
		{"leading dotdot", "../etc/passwd", "", ErrPathTraversal},
		{"dotdot escapes", "site/../../etc/passwd", "", ErrPathTraversal},
		{"bare dotdot", "..", "", ErrPathTraversal},
		{"absolute", "/etc/passwd", "", ErrPathTraversal},
		{"root only", "./", "", ErrEmptyPath},
		{"empty", "", "", ErrEmptyPath},
		{"control character", "a\tb.html", "", ErrInvalidCharacter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeMemberName(tt.member)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("SanitizeMemberName(%q) error = %v, want %v", tt.member, err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeMemberName(%q) error = %v", tt.member, err)
			}
			if got != tt.want {
				t.Errorf("SanitizeMemberName(%q) = %q, want %q", tt.member, got, tt.want)
			}
		})
	}
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("12345"), 5)
	if err != nil || string(data) != "12345" {
		t.Errorf("ReadLimited at limit = %q, %v", data, err)
	}
	if _, err := ReadLimited(strings.NewReader("123456"), 5); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("ReadLimited over limit error = %v, want ErrFileTooLarge", err)
	}
}

func makeTarHeader() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[257:], "ustar")
	return buf
}

var (
	gzipMagic = []byte{0x1f, 0x8b, 0x08, 0x00}
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   FileType
	}{
		{"tar", makeTarHeader(), FileTypeTar},
		{"gzip", gzipMagic, FileTypeGzip},
		{"xz", xzMagic, FileTypeXZ},
		{"zip", []byte{0x50, 0x4b, 0x03, 0x04}, FileTypeZip},
		{"html", []byte("<!DOCTYPE html><p>Hi</p>"), FileTypeUnknown},
		{"short", []byte{0xfd, 0x37}, FileTypeUnknown},
		{"empty", nil, FileTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFileType(tt.header); got != tt.want {
				t.Errorf("DetectFileType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFileTypeFromExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     FileType
	}{
		{"site.tar.xz", FileTypeTarXZ},
		{"site.txz", FileTypeTarXZ},
		{"SITE.TAR.GZ", FileTypeTarGZ},
		{"site.tgz", FileTypeTarGZ},
		{"site.tar", FileTypeTar},
		{"page.html.xz", FileTypeXZ},
		{"page.gz", FileTypeGzip},
		{"site.zip", FileTypeZip},
		{"index.html", FileTypeHTML},
		{"index.HTM", FileTypeHTML},
		{"chapter.xhtml", FileTypeXHTML},
		{"feed.xml", FileTypeXHTML},
		{"style.css", FileTypeUnknown},
		{"README", FileTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := FileTypeFromExtension(tt.filename); got != tt.want {
				t.Errorf("FileTypeFromExtension(%q) = %s, want %s", tt.filename, got, tt.want)
			}
		})
	}
}

func TestValidateFileType(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		header    []byte
		want      FileType
		wantError bool
	}{
		{"tar", "site.tar", makeTarHeader(), FileTypeTar, false},
		{"tar.gz", "site.tar.gz", gzipMagic, FileTypeTarGZ, false},
		{"tgz", "site.tgz", gzipMagic, FileTypeTarGZ, false},
		{"tar.xz", "site.tar.xz", xzMagic, FileTypeTarXZ, false},
		{"single xz", "page.html.xz", xzMagic, FileTypeXZ, false},
		{"html text", "index.html", []byte("<p>The NASA team</p>"), FileTypeHTML, false},
		{"xhtml text", "ch1.xhtml", []byte(`<?xml version="1.0"?><html/>`), FileTypeXHTML, false},
		{"empty html", "empty.html", nil, FileTypeHTML, false},
		{"gzip named tar.xz", "site.tar.xz", gzipMagic, FileTypeUnknown, true},
		{"zip named tar.gz", "site.tar.gz", []byte{0x50, 0x4b, 0x03, 0x04}, FileTypeUnknown, true},
		{"binary named html", "index.html", []byte{0x00, 0x01, 0x02, 0x03}, FileTypeUnknown, true},
		{"gzip named html", "index.html", gzipMagic, FileTypeUnknown, true},
		{"unknown extension, known magic", "blob", xzMagic, FileTypeXZ, false},
		{"unknown both", "notes", []byte("plain words"), FileTypeUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFileType(tt.header, tt.filename)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateFileType() error = %v, wantError %v", err, tt.wantError)
			}
			if got != tt.want {
				t.Errorf("ValidateFileType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsLikelyText(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"ascii", []byte("The NASA team met IBM."), true},
		{"utf8", []byte("café 🙂 NASA"), true},
		{"whitespace", []byte("\t\r\n"), true},
		{"empty", nil, true},
		{"null byte", []byte("abc\x00def"), false},
		{"mostly control", bytes.Repeat([]byte{0x01, 0x02, 'a'}, 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLikelyText(tt.buf); got != tt.want {
				t.Errorf("IsLikelyText(%q) = %v, want %v", tt.buf, got, tt.want)
			}
		})
	}
}
