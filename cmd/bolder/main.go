// Command bolder highlights capitalized words in HTML documents.
// It annotates files and site archives, replays mutation scripts, manages
// stored settings and runs the HTTP API.
package main

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/Bolder/core/classify"
	"github.com/FocuswithJustin/Bolder/core/dom"
	"github.com/FocuswithJustin/Bolder/core/engine"
	"github.com/FocuswithJustin/Bolder/core/highlight"
	"github.com/FocuswithJustin/Bolder/core/mutation"
	"github.com/FocuswithJustin/Bolder/core/script"
	"github.com/FocuswithJustin/Bolder/core/tokenize"
	"github.com/FocuswithJustin/Bolder/internal/api"
	"github.com/FocuswithJustin/Bolder/internal/archive"
	"github.com/FocuswithJustin/Bolder/internal/cache"
	"github.com/FocuswithJustin/Bolder/internal/config"
	"github.com/FocuswithJustin/Bolder/internal/logging"
	"github.com/FocuswithJustin/Bolder/internal/settings"
	"github.com/FocuswithJustin/Bolder/internal/validation"
)

const version = "0.1.0"

// stdout and stdin are swapped out by tests.
var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

// CLI defines the command-line interface for bolder.
var CLI struct {
	// Global flags
	Config   string `name:"config" short:"c" help:"YAML configuration file" type:"path" env:"BOLDER_CONFIG"`
	LogLevel string `name:"log-level" help:"Override the configured log level (debug, info, warn, error)"`

	Annotate AnnotateCmd   `cmd:"" help:"Highlight words in an HTML or XHTML document"`
	Bundle   BundleCmd     `cmd:"" help:"Highlight every document in a tar archive"`
	Replay   ReplayCmd     `cmd:"" help:"Replay a mutation script and print rendering commands"`
	Classify ClassifyCmd   `cmd:"" help:"Show which highlight rule each word matches"`
	Settings SettingsGroup `cmd:"" help:"Stored settings"`
	Serve    ServeCmd      `cmd:"" help:"Start the HTTP API server"`
	Version  VersionCmd    `cmd:"" help:"Print version information"`
}

// SettingsGroup contains settings store operations.
type SettingsGroup struct {
	Show  SettingsShowCmd  `cmd:"" help:"Print the stored settings"`
	Set   SettingsSetCmd   `cmd:"" help:"Change one stored setting"`
	Reset SettingsResetCmd `cmd:"" help:"Restore the default settings"`
	CSS   SettingsCSSCmd   `cmd:"" name:"css" help:"Print the highlight stylesheet"`
}

// setup loads the configuration and points logging at stderr so that
// command output on stdout stays clean.
func setup() (config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return cfg, err
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	logging.InitLoggerTo(os.Stderr, cfg.Log.LogLevel(), cfg.Log.LogFormat())
	return cfg, nil
}

// AnnotateCmd annotates a document.
type AnnotateCmd struct {
	Path   string `arg:"" help:"Document to annotate (- for stdin; xz input is decompressed)" default:"-"`
	Out    string `short:"o" help:"Output path (default stdout)" type:"path"`
	Format string `short:"f" help:"Output format" enum:"html,json" default:"html"`
	XHTML  bool   `name:"xhtml" help:"Parse the input as XHTML (implied by .xhtml and .xml)"`
	XZ     bool   `name:"xz" help:"Compress the output with xz"`
	Host   string `help:"Apply the stored site settings for this host"`
}

func (c *AnnotateCmd) Run() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	input, err := readInput(c.Path)
	if err != nil {
		return err
	}
	st, enabled, err := hostSettings(&cfg, c.Host)
	if err != nil {
		return err
	}

	doc, report, opts, err := annotateDocument(cfg.Engine, st, enabled, input, c.XHTML || isXHTMLPath(c.Path))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.Path, err)
	}
	logging.Info("document_annotated",
		"path", c.Path,
		"digest", report.Digest,
		"regions", len(report.Regions),
		"enabled", enabled)

	return writeOutput(c.Out, c.XZ, func(w io.Writer) error {
		if c.Format == "json" {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return dom.Render(w, doc.Root, opts)
	})
}

// BundleCmd annotates every document in a tar archive of a site.
type BundleCmd struct {
	Path string `arg:"" help:"Archive to read (.tar, .tar.gz, .tgz, .tar.xz or .txz)" type:"existingfile"`
	Out  string `short:"o" help:"Write a copy of the archive with every document annotated" type:"path"`
	Host string `help:"Apply the stored site settings for this host"`
	JSON bool   `name:"json" help:"Print one JSON object per member"`
}

// bundleEntry is one line of the bundle summary.
type bundleEntry struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Regions int    `json:"regions"`
	Digest  string `json:"digest,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (c *BundleCmd) Run() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	st, enabled, err := hostSettings(&cfg, c.Host)
	if err != nil {
		return err
	}

	var out *archive.Writer
	if c.Out != "" {
		if out, err = archive.Create(c.Out); err != nil {
			return err
		}
	}

	var entries []bundleEntry
	walkErr := archive.Walk(c.Path, func(h *tar.Header, content io.Reader) (bool, error) {
		if h.Typeflag != tar.TypeReg {
			return false, nil
		}
		name, err := validation.SanitizeMemberName(h.Name)
		if err != nil {
			logging.SecurityEvent("archive_member_rejected", "bundle", "archive", c.Path, "member", h.Name, "error", err.Error())
			entries = append(entries, bundleEntry{Name: h.Name, Type: string(validation.FileTypeUnknown), Error: err.Error()})
			return false, nil
		}
		data, err := validation.ReadLimited(content, validation.MaxFileSize)
		if err != nil {
			return true, fmt.Errorf("member %s: %w", name, err)
		}

		entry := bundleEntry{Name: name, Type: string(validation.FileTypeFromExtension(name))}
		head := data[:min(len(data), validation.HeaderSize)]
		typ, typErr := validation.ValidateFileType(head, name)
		if typErr == nil && typ.IsDocument() {
			doc, report, opts, err := annotateDocument(cfg.Engine, st, enabled, data, typ == validation.FileTypeXHTML)
			if err != nil {
				entry.Error = err.Error()
				logging.Warn("bundle_member_unparsed", "member", name, "error", err)
			} else {
				entry.Regions = len(report.Regions)
				entry.Digest = report.Digest
				var buf bytes.Buffer
				if err := dom.Render(&buf, doc.Root, opts); err != nil {
					return true, fmt.Errorf("member %s: %w", name, err)
				}
				data = buf.Bytes()
			}
		} else if typErr != nil {
			entry.Error = typErr.Error()
		}
		entries = append(entries, entry)

		if out != nil {
			if err := out.Add(name, h.Mode, data); err != nil {
				return true, err
			}
		}
		return false, nil
	})
	if out != nil {
		if err := out.Close(); err != nil && walkErr == nil {
			walkErr = err
		}
		if walkErr != nil {
			os.Remove(c.Out)
		}
	}
	if walkErr != nil {
		return walkErr
	}

	total := 0
	for _, e := range entries {
		total += e.Regions
	}
	logging.Info("bundle_annotated",
		"archive", c.Path,
		"members", len(entries),
		"regions", total,
		"enabled", enabled)

	if c.JSON {
		enc := json.NewEncoder(stdout)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		status := "ok"
		if e.Error != "" {
			status = e.Error
		} else if !validation.FileType(e.Type).IsDocument() {
			status = "copied"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Name, e.Type, e.Regions, status)
	}
	fmt.Fprintf(tw, "total\t\t%d\t%d members\n", total, len(entries))
	return tw.Flush()
}

// ReplayCmd applies a script to a document with a live engine attached.
type ReplayCmd struct {
	Path   string `arg:"" help:"Document to load" type:"existingfile"`
	Script string `arg:"" help:"Replay script" type:"existingfile"`
	JSON   bool   `name:"json" help:"Print one JSON object per batch"`
	XHTML  bool   `name:"xhtml" help:"Parse the input as XHTML (implied by .xhtml and .xml)"`
	Render string `help:"Write the final annotated document to this path" type:"path"`
}

// replayBatch is one line of `replay --json` output.
type replayBatch struct {
	Batch    int                     `json:"batch"`
	Stats    mutation.Stats          `json:"stats"`
	Commands []highlight.WireCommand `json:"commands"`
}

func (c *ReplayCmd) Run() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	input, err := readInput(c.Path)
	if err != nil {
		return err
	}
	doc, err := parseDocument(input, c.XHTML || isXHTMLPath(c.Path))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.Path, err)
	}
	f, err := os.Open(c.Script)
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	s, err := script.Parse(filepath.Base(c.Script), f)
	if err != nil {
		return err
	}

	rec := &highlight.Recorder{}
	e, err := engine.New(cfg.Engine, rec)
	if err != nil {
		return err
	}
	if err := e.Start(doc); err != nil {
		return err
	}
	doc.Observe(true)

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	batch := 0
	emit := func(stats mutation.Stats) {
		cmds := highlight.CommandsToWire(rec.Take())
		if c.JSON {
			data, _ := json.Marshal(replayBatch{Batch: batch, Stats: stats, Commands: cmds})
			fmt.Fprintln(stdout, string(data))
		} else {
			fmt.Fprintf(tw, "# batch %d: %d records, %d units, %d swept\n", batch, stats.Records, stats.Processed, stats.Swept)
			for _, cmd := range cmds {
				r := cmd.Region
				fmt.Fprintf(tw, "%s\t%d\t%d:%d\t%s\t%s\n", cmd.Op, r.Node, r.Start, r.End, r.Word, r.Rule)
			}
			tw.Flush()
		}
		batch++
	}
	emit(mutation.Stats{})

	runner := &script.Runner{Doc: doc, Sync: mutation.New(e), OnBatch: emit}
	res, runErr := runner.Run(context.Background(), s)
	logging.Info("replay_completed",
		"script", c.Script,
		"statements", res.Statements,
		"batches", len(res.Batches),
		"regions", e.Registry().Len())

	if c.Render != "" {
		if err := writeOutput(c.Render, false, func(w io.Writer) error {
			return dom.Render(w, doc.Root, e.Marks(settings.Stylesheet(settings.Defaults())))
		}); err != nil {
			return err
		}
	}
	return runErr
}

// ClassifyCmd prints the rule each word matches.
type ClassifyCmd struct {
	Words []string `arg:"" help:"Words or phrases to classify"`
}

func (c *ClassifyCmd) Run() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	cl := classify.New(cfg.Engine.MinUppercaseLen, cfg.Engine.MinCapitalizedLen)
	tok := tokenize.New([]rune(cfg.Engine.Terminators))

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, phrase := range c.Words {
		for _, w := range tok.Words(phrase) {
			rule, _ := cl.Classify(w.Text)
			fmt.Fprintf(tw, "%s\t%s\n", w.Text, rule)
		}
	}
	return tw.Flush()
}

// SettingsShowCmd prints the stored settings as JSON.
type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	st, err := loadSettings(cfg)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

// SettingsSetCmd changes one setting.
type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting key (defaultEnabled, siteList, minWordsInBlock, bolderDarkenBg, bolderLightenBg)"`
	Value string `arg:"" help:"New value; siteList takes a comma or newline separated list"`
}

func (c *SettingsSetCmd) Run() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	return withStore(cfg, func(ctx context.Context, store *settings.Store) error {
		st, err := store.Set(ctx, c.Key, c.Value)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s updated\n", c.Key)
		logging.Info("settings_saved", "key", c.Key, "default_enabled", st.DefaultEnabled, "sites", len(st.SiteList))
		return nil
	})
}

// SettingsResetCmd restores the defaults.
type SettingsResetCmd struct{}

func (c *SettingsResetCmd) Run() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	return withStore(cfg, func(ctx context.Context, store *settings.Store) error {
		if err := store.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "settings reset to defaults")
		return nil
	})
}

// SettingsCSSCmd prints the stylesheet for the stored colors.
type SettingsCSSCmd struct{}

func (c *SettingsCSSCmd) Run() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	st, err := loadSettings(cfg)
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, settings.Stylesheet(st))
	return err
}

// ServeCmd runs the HTTP API.
type ServeCmd struct {
	Port   int    `help:"HTTP server port (overrides the configuration file)"`
	APIKey string `name:"api-key" help:"Require this API key" env:"BOLDER_API_KEY"`
}

func (c *ServeCmd) Run() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.APIKey != "" {
		cfg.Server.APIKey = c.APIKey
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := settings.Open(ctx, cfg.Server.SettingsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	return api.Start(ctx, apiConfig(cfg), store)
}

// apiConfig maps the file configuration onto the server's.
func apiConfig(cfg config.Config) api.Config {
	ac := api.DefaultConfig()
	ac.Port = cfg.Server.Port
	ac.Engine = cfg.Engine
	ac.MaxBodyBytes = cfg.Server.MaxBodyBytes
	ac.RateLimitRequests = cfg.Server.RateLimit
	ac.RateLimitBurst = cfg.Server.RateLimitBurst
	ac.AllowedOrigins = cfg.Server.AllowedOrigins
	if cfg.Server.APIKey != "" {
		ac.Auth = api.AuthConfig{Enabled: true, APIKey: cfg.Server.APIKey}
	}
	if cfg.Server.TLSCert != "" {
		ac.TLS = api.TLSConfig{Enabled: true, CertFile: cfg.Server.TLSCert, KeyFile: cfg.Server.TLSKey}
	}
	return ac
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "bolder version %s\n", version)
	return nil
}

// Helper functions

// readInput reads path, or stdin for "-". Input that starts with the xz
// magic is decompressed.
func readInput(path string) ([]byte, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	br := bufio.NewReader(r)
	if head, _ := br.Peek(validation.HeaderSize); validation.DetectFileType(head) == validation.FileTypeXZ {
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read xz stream: %w", err)
		}
		r = xr
	} else {
		r = br
	}
	data, err := validation.ReadLimited(r, validation.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// isXHTMLPath reports whether path names an XHTML or XML file, looking
// through a trailing .xz.
func isXHTMLPath(path string) bool {
	return validation.FileTypeFromExtension(strings.TrimSuffix(path, ".xz")) == validation.FileTypeXHTML
}

func parseDocument(data []byte, xhtml bool) (*dom.Document, error) {
	if xhtml {
		return dom.ParseXHTMLBytes(data)
	}
	return dom.ParseHTML(bytes.NewReader(data))
}

// writeOutput runs write against path, or stdout when path is empty,
// optionally through an xz compressor.
func writeOutput(path string, compress bool, write func(io.Writer) error) (err error) {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	if !compress {
		return write(w)
	}
	xw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to start xz stream: %w", err)
	}
	if err := write(xw); err != nil {
		xw.Close()
		return err
	}
	return xw.Close()
}

// withStore opens the configured settings store for the duration of fn.
func withStore(cfg config.Config, fn func(context.Context, *settings.Store) error) error {
	ctx := context.Background()
	store, err := settings.Open(ctx, cfg.Server.SettingsDB)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func loadSettings(cfg config.Config) (st settings.Settings, err error) {
	err = withStore(cfg, func(ctx context.Context, store *settings.Store) error {
		st, err = store.Load(ctx)
		return err
	})
	return st, err
}

// hostSettings returns the settings that apply to host and whether
// highlighting is enabled there. Without a host the defaults apply and the
// configured block size is kept.
func hostSettings(cfg *config.Config, host string) (settings.Settings, bool, error) {
	if host == "" {
		return settings.Defaults(), true, nil
	}
	st, err := loadSettings(*cfg)
	if err != nil {
		return st, false, err
	}
	cfg.Engine.MinWordsInBlock = st.MinWordsInBlock
	return st, st.EnabledFor(host), nil
}

// annotateDocument parses input and, when enabled, runs the engine over it.
// A disabled document keeps its markup and reports no regions.
func annotateDocument(ec engine.Config, st settings.Settings, enabled bool, input []byte, xhtml bool) (*dom.Document, engine.Report, dom.RenderOptions, error) {
	report := engine.Report{Regions: []highlight.WireRegion{}}
	doc, err := parseDocument(input, xhtml)
	if err != nil {
		return nil, report, dom.RenderOptions{}, err
	}
	opts := dom.RenderOptions{}
	if enabled {
		e, err := engine.Annotate(ec, doc)
		if err != nil {
			return nil, report, opts, err
		}
		report = e.Report()
		opts = e.Marks(settings.Stylesheet(st))
	}
	report.Digest = cache.Sum(input)
	return doc, report, opts, nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("bolder"),
		kong.Description("Bolder - highlight capitalized words in HTML documents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
