package settings

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/Bolder/core/errors"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadDefaults(t *testing.T) {
	s := openStore(t)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	if got.DefaultEnabled != want.DefaultEnabled || got.MinWordsInBlock != 10 ||
		got.DarkenBg != want.DarkenBg || got.LightenBg != want.LightenBg || len(got.SiteList) != 0 {
		t.Errorf("Load() = %+v, want defaults", got)
	}
	if got.SiteList == nil {
		t.Error("SiteList should be an empty list, not nil")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	in := Settings{
		DefaultEnabled:  false,
		SiteList:        []string{"example.com", "news.org"},
		MinWordsInBlock: 4,
		DarkenBg:        "rgba(10, 20, 30, 0.5)",
		LightenBg:       "rgb(200, 200, 200)",
	}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.DefaultEnabled || out.MinWordsInBlock != 4 || out.DarkenBg != in.DarkenBg ||
		out.LightenBg != in.LightenBg || strings.Join(out.SiteList, ",") != "example.com,news.org" {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if out, _ := s.Load(ctx); !out.DefaultEnabled {
		t.Error("Reset should restore defaults")
	}
}

func TestPartialStoreUsesDefaults(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ('minWordsInBlock', '3'), ('unknown', '"x"')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.MinWordsInBlock != 3 || !got.DefaultEnabled || got.DarkenBg != Defaults().DarkenBg {
		t.Errorf("Load() = %+v", got)
	}
}

func TestLoadCorruptValue(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ('defaultEnabled', 'yes please')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := s.Load(ctx)
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("Load() error = %v, want ParseError", err)
	}
}

func TestSaveValidates(t *testing.T) {
	s := openStore(t)
	bad := Defaults()
	bad.DarkenBg = "blue"
	if err := s.Save(context.Background(), bad); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Save() error = %v, want ErrInvalidInput", err)
	}
}

func TestSet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	tests := []struct {
		key, raw string
		wantErr  error
	}{
		{KeyDefaultEnabled, "false", nil},
		{KeySiteList, "a.com\n b.org ,,c.net", nil},
		{KeyMinWordsInBlock, "7", nil},
		{KeyDarkenBg, "rgba(1, 2, 3, 0.4)", nil},
		{KeyMinWordsInBlock, "-2", errors.ErrInvalidInput},
		{KeyDefaultEnabled, "maybe", errors.ErrInvalidInput},
		{KeyLightenBg, "white", errors.ErrInvalidInput},
		{KeyDarkenBg, "rgba(0, 0, 0, 0.1)}</style><script>alert(1)</script><style>", errors.ErrInvalidInput},
		{KeyLightenBg, "rgb(300, 0, 0)", errors.ErrInvalidInput},
		{"fontSize", "12", errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.raw, func(t *testing.T) {
			_, err := s.Set(ctx, tt.key, tt.raw)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Set() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DefaultEnabled || got.MinWordsInBlock != 7 || got.DarkenBg != "rgba(1, 2, 3, 0.4)" ||
		strings.Join(got.SiteList, ",") != "a.com,b.org,c.net" {
		t.Errorf("Load() = %+v", got)
	}
}

func TestEnabledFor(t *testing.T) {
	on := Settings{DefaultEnabled: true, SiteList: []string{"example.com", "News.org"}}
	off := Settings{DefaultEnabled: false, SiteList: []string{"example.com"}}
	tests := []struct {
		name string
		s    Settings
		host string
		want bool
	}{
		{"default on, unlisted", on, "golang.org", true},
		{"default on, listed", on, "example.com", false},
		{"default on, subdomain", on, "www.example.com", false},
		{"default on, case and port", on, "NEWS.org:8080", false},
		{"default on, url", on, "https://news.org/today", false},
		{"default on, lookalike", on, "notexample.com", true},
		{"default off, listed", off, "example.com", true},
		{"default off, unlisted", off, "golang.org", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.EnabledFor(tt.host); got != tt.want {
				t.Errorf("EnabledFor(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestIsColor(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"rgba(0, 0, 0, 0.1)", true},
		{"rgb(249,244,223)", true},
		{"rgba(255, 255, 255, 1)", true},
		{"  rgba(1, 2, 3, .4)  ", true},
		{"rgba(0, 0, 0, 0.1)}</style><script>alert(1)</script><style>", false},
		{"x; background: url(https://evil.example/)} rgb(0,0,0)", false},
		{"rgb(0,0,0) rgb(1,1,1)", false},
		{"rgb(256, 0, 0)", false},
		{"rgb(0, 999, 0)", false},
		{"rgba(0, 0, 0, 1.5)", false},
		{"rgba(0, 0, 0, 0.1", false},
		{"#000000", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsColor(tt.in); got != tt.want {
				t.Errorf("IsColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateRejectsMarkup(t *testing.T) {
	s := Defaults()
	s.DarkenBg = "rgba(0, 0, 0, 0.1)}</style><script>alert(1)</script><style>"
	if err := s.Validate(); !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("Validate() error = %v, want ErrInvalidInput", err)
	}
	if err := s.Apply(KeyDarkenBg, s.DarkenBg); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Apply() error = %v, want ErrInvalidInput", err)
	}
}

func TestRGBAToHexOpacity(t *testing.T) {
	tests := []struct {
		in      string
		hex     string
		opacity float64
	}{
		{"rgba(0, 0, 0, 0.1)", "#000000", 0.1},
		{"rgba(255, 255, 255, 0.25)", "#ffffff", 0.25},
		{"rgb(249,244,223)", "#f9f4df", 1},
		{"not a color", "#000000", 1},
		{"rgba(999,0,0)", "#000000", 1},
		{" rgba( 16 , 32 , 48 , .5 ) ", "#102030", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			hex, op := RGBAToHexOpacity(tt.in)
			if hex != tt.hex || op != tt.opacity {
				t.Errorf("RGBAToHexOpacity(%q) = %s, %v; want %s, %v", tt.in, hex, op, tt.hex, tt.opacity)
			}
		})
	}
}

func TestHexOpacityToRGBA(t *testing.T) {
	got, err := HexOpacityToRGBA("#f9f4df", 0.25)
	if err != nil {
		t.Fatalf("HexOpacityToRGBA: %v", err)
	}
	if got != "rgba(249, 244, 223, 0.25)" {
		t.Errorf("HexOpacityToRGBA = %q", got)
	}
	if got, _ := HexOpacityToRGBA("#000000", 1); got != "rgba(0, 0, 0, 1)" {
		t.Errorf("HexOpacityToRGBA opaque = %q", got)
	}
	for _, bad := range []string{"f9f4df", "#f9f4", "#zzzzzz"} {
		if _, err := HexOpacityToRGBA(bad, 0.5); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("HexOpacityToRGBA(%q) error = %v", bad, err)
		}
	}
	if _, err := HexOpacityToRGBA("#ffffff", 2); err == nil {
		t.Error("expected error for opacity above 1")
	}
}

func TestStylesheet(t *testing.T) {
	css := Stylesheet(Defaults())
	for _, want := range []string{
		"::highlight(bolder-highlight)",
		"font-weight: 700",
		"background-color: #f9f4df",
		"background-color: rgba(0, 0, 0, 0.1)",
		"prefers-color-scheme: dark",
		"background-color: rgba(255, 255, 255, 0.25)",
	} {
		if !strings.Contains(css, want) {
			t.Errorf("stylesheet missing %q:\n%s", want, css)
		}
	}
}
