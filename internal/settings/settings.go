// Package settings persists user options in a SQLite key-value table. Each
// option is stored as a JSON value under its own key, and keys that were
// never saved read back as their defaults.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/Bolder/core/errors"
	"github.com/FocuswithJustin/Bolder/core/sqlite"
)

// Option keys.
const (
	KeyDefaultEnabled  = "defaultEnabled"
	KeySiteList        = "siteList"
	KeyMinWordsInBlock = "minWordsInBlock"
	KeyDarkenBg        = "bolderDarkenBg"
	KeyLightenBg       = "bolderLightenBg"
)

// Keys lists every option key in display order.
var Keys = []string{KeyDefaultEnabled, KeySiteList, KeyMinWordsInBlock, KeyDarkenBg, KeyLightenBg}

// Settings is the full option set.
type Settings struct {
	DefaultEnabled  bool     `json:"defaultEnabled"`
	SiteList        []string `json:"siteList"`
	MinWordsInBlock int      `json:"minWordsInBlock"`
	DarkenBg        string   `json:"bolderDarkenBg"`
	LightenBg       string   `json:"bolderLightenBg"`
}

// Defaults returns the factory option set.
func Defaults() Settings {
	return Settings{
		DefaultEnabled:  true,
		SiteList:        []string{},
		MinWordsInBlock: 10,
		DarkenBg:        "rgba(0, 0, 0, 0.1)",
		LightenBg:       "rgba(255, 255, 255, 0.25)",
	}
}

// Validate rejects values the highlighter cannot use.
func (s Settings) Validate() error {
	if s.MinWordsInBlock < 0 {
		return errors.NewValidation(KeyMinWordsInBlock, "must not be negative")
	}
	if !IsColor(s.DarkenBg) {
		return errors.NewValidation(KeyDarkenBg, "must be an rgb() or rgba() color")
	}
	if !IsColor(s.LightenBg) {
		return errors.NewValidation(KeyLightenBg, "must be an rgb() or rgba() color")
	}
	return nil
}

// EnabledFor reports whether highlighting runs on host. Sites in the list are
// exceptions to the default: listed sites are disabled when the default is
// on and enabled when it is off. A listed domain also covers its subdomains.
func (s Settings) EnabledFor(host string) bool {
	host = normalizeHost(host)
	listed := false
	for _, site := range s.SiteList {
		site = normalizeHost(site)
		if site != "" && (host == site || strings.HasSuffix(host, "."+site)) {
			listed = true
			break
		}
	}
	return s.DefaultEnabled != listed
}

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexAny(h, "/:"); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSuffix(h, ".")
}

// ParseSiteList splits a newline- or comma-separated list, dropping blanks.
func ParseSiteList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == ',' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Store reads and writes settings.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the settings database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open settings", path, err)
	}
	if err := sqlite.Migrate(ctx, db, schema...); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored settings with defaults filled in for missing keys.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	out := Defaults()
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return out, errors.NewIO("load settings", s.path, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return out, errors.NewIO("load settings", s.path, err)
		}
		var target any
		switch key {
		case KeyDefaultEnabled:
			target = &out.DefaultEnabled
		case KeySiteList:
			target = &out.SiteList
		case KeyMinWordsInBlock:
			target = &out.MinWordsInBlock
		case KeyDarkenBg:
			target = &out.DarkenBg
		case KeyLightenBg:
			target = &out.LightenBg
		default:
			continue
		}
		if err := json.Unmarshal([]byte(value), target); err != nil {
			pe := errors.NewParse("JSON", s.path, "settings key "+key+": "+err.Error())
			pe.Err = err
			return out, pe
		}
	}
	if err := rows.Err(); err != nil {
		return out, errors.NewIO("load settings", s.path, err)
	}
	if out.SiteList == nil {
		out.SiteList = []string{}
	}
	return out, nil
}

// Save validates and writes every option.
func (s *Store) Save(ctx context.Context, st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if st.SiteList == nil {
		st.SiteList = []string{}
	}
	values := map[string]any{
		KeyDefaultEnabled:  st.DefaultEnabled,
		KeySiteList:        st.SiteList,
		KeyMinWordsInBlock: st.MinWordsInBlock,
		KeyDarkenBg:        st.DarkenBg,
		KeyLightenBg:       st.LightenBg,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewIO("save settings", s.path, err)
	}
	for _, key := range Keys {
		data, err := json.Marshal(values[key])
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "encode %s", key)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(data)); err != nil {
			_ = tx.Rollback()
			return errors.NewIO("save settings", s.path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewIO("save settings", s.path, err)
	}
	return nil
}

// Set parses raw for key, applies it to the stored settings and saves them.
func (s *Store) Set(ctx context.Context, key, raw string) (Settings, error) {
	st, err := s.Load(ctx)
	if err != nil {
		return st, err
	}
	if err := st.Apply(key, raw); err != nil {
		return st, err
	}
	return st, s.Save(ctx, st)
}

// Reset removes every stored option so defaults apply again.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return errors.NewIO("reset settings", s.path, err)
	}
	return nil
}

// Apply sets one option from its textual form.
func (s *Settings) Apply(key, raw string) error {
	raw = strings.TrimSpace(raw)
	switch key {
	case KeyDefaultEnabled:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.NewValidation(key, "must be true or false")
		}
		s.DefaultEnabled = v
	case KeySiteList:
		s.SiteList = ParseSiteList(raw)
	case KeyMinWordsInBlock:
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return errors.NewValidation(key, "must be a non-negative integer")
		}
		s.MinWordsInBlock = v
	case KeyDarkenBg, KeyLightenBg:
		if !IsColor(raw) {
			return errors.NewValidation(key, "must be an rgb() or rgba() color")
		}
		if key == KeyDarkenBg {
			s.DarkenBg = raw
		} else {
			s.LightenBg = raw
		}
	default:
		return errors.NewNotFound("setting", key)
	}
	return nil
}
