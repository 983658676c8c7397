package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"holidaycal/internal/model"
	"holidaycal/internal/region"
)

// ICSConfig describes a single ICS input, either a subscription URL or a
// local file.
type ICSConfig struct {
	// ID is an internal identifier used for logging.
	ID string `yaml:"id" json:"id"`
	// Name is used as the calendar name of the parsed events.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Path is a local .ics file. Takes precedence over URL.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Validate checks that exactly one of URL and Path is usable.
func (c ICSConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.URL,
			validation.When(c.Path == "", validation.Required, is.URL),
		),
	)
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web endpoints.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Validate validates the credentials.
func (c *BasicAuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// PreviewConfig controls the headless screenshot of the host page.
type PreviewConfig struct {
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Index is the host HTML document carrying the holiday markers.
	Index string `yaml:"index" json:"index"`
	// Input is the JSON calendar export. Optional when ICS sources are set.
	Input string `yaml:"input" json:"input"`
	// ICS lists additional ICS inputs.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// Region is the target region code (e.g. "BC").
	Region string `yaml:"region" json:"region"`
	// HorizonDays is the number of days after today included in the window.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`
	// Limit caps the number of rendered holidays.
	Limit int `yaml:"limit" json:"limit"`

	// Timezone is the IANA zone used to decide what "today" is.
	Timezone string `yaml:"timezone" json:"timezone"`
	// RefreshCron is the cron schedule for re-rendering in serve mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Listen is the HTTP listen address in serve mode.
	Listen string `yaml:"listen" json:"listen"`
	// CacheDir holds per-URL ICS caches.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Preview PreviewConfig `yaml:"preview" json:"preview"`
}

// MaxHorizonDays bounds the display window (about ten years).
const MaxHorizonDays = 3660

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index:       "public/index.html",
		Input:       "data/calendar/canadian-holidays.json",
		ICS:         []ICSConfig{},
		Region:      "BC",
		HorizonDays: 180,
		Limit:       8,
		Timezone:    "America/Vancouver",
		RefreshCron: "0 3 * * *",
		Listen:      "127.0.0.1:8080",
		CacheDir:    "./var/ics-cache",
		LogLevel:    "info",
		Preview: PreviewConfig{
			Output: "preview.png",
			Width:  800,
			Height: 480,
		},
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()

	c.Region = strings.ToUpper(strings.TrimSpace(c.Region))
	if c.Region == "" {
		c.Region = def.Region
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.Limit <= 0 {
		c.Limit = def.Limit
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].Name == "" {
			c.ICS[i].Name = c.ICS[i].ID
		}
	}
	if c.Preview.Output == "" {
		c.Preview.Output = def.Preview.Output
	}
	if c.Preview.Width <= 0 {
		c.Preview.Width = def.Preview.Width
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = def.Preview.Height
	}
}

// Validate reports configuration errors that Normalize cannot repair.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Index, validation.Required),
		validation.Field(&c.Region, validation.Required, validation.By(knownRegion)),
		validation.Field(&c.HorizonDays, validation.Required, validation.Min(1), validation.Max(MaxHorizonDays)),
		validation.Field(&c.Limit, validation.Required, validation.Min(1)),
		validation.Field(&c.Timezone, validation.By(loadableZone)),
		validation.Field(&c.RefreshCron, validation.Required, validation.By(cronSpec)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	); err != nil {
		return err
	}

	if c.Input == "" && len(c.ICS) == 0 {
		return errors.New("config: no input and no ics sources configured")
	}
	for i, src := range c.ICS {
		if err := src.Validate(); err != nil {
			return fmt.Errorf("ics[%d]: %w", i, err)
		}
	}
	if c.BasicAuth != nil {
		if err := c.BasicAuth.Validate(); err != nil {
			return fmt.Errorf("basic_auth: %w", err)
		}
	}
	return nil
}

func knownRegion(v any) error {
	s, _ := v.(string)
	if !region.Known(s) {
		return fmt.Errorf("unknown region code %q (known: %s)", s, strings.Join(region.Codes(), ", "))
	}
	return nil
}

func loadableZone(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	_, err := time.LoadLocation(s)
	return err
}

func cronSpec(v any) error {
	s, _ := v.(string)
	_, err := cron.ParseStandard(s)
	return err
}

// Location returns the configured zone, or the local zone when unset or
// unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Today returns the calendar day of now in the configured zone.
func (c *Config) Today(now time.Time) time.Time {
	return model.DayOf(now.In(c.Location()))
}

// ParseReferenceDate resolves a user-supplied "today". ISO dates are taken
// literally; anything else goes through the natural-language parser
// ("next friday", "in 3 weeks") relative to now.
func ParseReferenceDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if d, err := model.ParseDate(s); err == nil {
		return d, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("parse date %q: not a date", s)
	}
	return model.DayOf(r.Time), nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".holidaycal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
