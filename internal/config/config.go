package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

const (
	defaultListen      = "127.0.0.1:8080"
	defaultHolidayURL  = "https://raw.githubusercontent.com/guangrei/APIHariLibur_V2/main/holidays.json"
	defaultRefreshCron = "*/15 * * * *"
	defaultCacheDir    = "/var/lib/schoolboard/cache"
	defaultOffsetHours = 7
)

// SheetsConfig names the spreadsheet tabs holding each data set.
type SheetsConfig struct {
	Students  string `yaml:"students" json:"students" validate:"required"`
	Subjects  string `yaml:"subjects" json:"subjects" validate:"required"`
	Agenda    string `yaml:"agenda" json:"agenda" validate:"required"`
	Timetable string `yaml:"timetable" json:"timetable" validate:"required"`
}

// HolidayConfig describes the holiday calendar document.
type HolidayConfig struct {
	// URL is the calendar endpoint.
	URL string `yaml:"url" json:"url" validate:"required,url"`
	// Format is "json" (date-keyed map) or "ics".
	Format string `yaml:"format" json:"format" validate:"oneof=json ics"`
	// TTLMinutes is how long a downloaded calendar is reused.
	TTLMinutes int `yaml:"ttl_minutes" json:"ttl_minutes" validate:"gte=1"`
}

// LogConfig controls internal/log.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=console json"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// SnapshotConfig controls PNG captures of the /board page.
type SnapshotConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Output is where the PNG is written.
	Output string `yaml:"output" json:"output" validate:"required_if=Enabled true"`
	// Cron is the capture schedule; empty means after every refresh.
	Cron   string `yaml:"cron" json:"cron"`
	Width  int    `yaml:"width" json:"width" validate:"gte=0"`
	Height int    `yaml:"height" json:"height" validate:"gte=0"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the board and API.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// SheetID is the Google Sheets document id of the class spreadsheet.
	SheetID string        `yaml:"sheet_id" json:"sheet_id"`
	Sheets  SheetsConfig  `yaml:"sheets" json:"sheets"`
	Holiday HolidayConfig `yaml:"holiday" json:"holiday"`

	// UTCOffsetHours is the school's fixed distance from UTC. WIB is 7.
	UTCOffsetHours float64 `yaml:"utc_offset_hours" json:"utc_offset_hours" validate:"gte=-12,lte=14"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic spreadsheet refresh.
	RefreshCron string `yaml:"refresh" json:"refresh" validate:"required"`

	// CacheDir holds the HTTP cache of downloaded documents.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" validate:"required"`

	Log      LogConfig      `yaml:"log" json:"log"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen: defaultListen,
		Sheets: SheetsConfig{
			Students:  "Siswa",
			Subjects:  "Pelajaran",
			Agenda:    "Agenda",
			Timetable: "Jadwal",
		},
		Holiday: HolidayConfig{
			URL:        defaultHolidayURL,
			Format:     "json",
			TTLMinutes: 60,
		},
		UTCOffsetHours: defaultOffsetHours,
		RefreshCron:    defaultRefreshCron,
		CacheDir:       defaultCacheDir,
		Log:            LogConfig{Level: "info", Format: "console"},
		Snapshot: SnapshotConfig{
			Output: "/var/lib/schoolboard/board.png",
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Sheets.Students == "" {
		c.Sheets.Students = def.Sheets.Students
	}
	if c.Sheets.Subjects == "" {
		c.Sheets.Subjects = def.Sheets.Subjects
	}
	if c.Sheets.Agenda == "" {
		c.Sheets.Agenda = def.Sheets.Agenda
	}
	if c.Sheets.Timetable == "" {
		c.Sheets.Timetable = def.Sheets.Timetable
	}
	if c.Holiday.URL == "" {
		c.Holiday.URL = def.Holiday.URL
	}
	c.Holiday.Format = strings.ToLower(strings.TrimSpace(c.Holiday.Format))
	if c.Holiday.Format == "" {
		c.Holiday.Format = def.Holiday.Format
	}
	if c.Holiday.TTLMinutes <= 0 {
		c.Holiday.TTLMinutes = def.Holiday.TTLMinutes
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Snapshot.Output == "" {
		c.Snapshot.Output = def.Snapshot.Output
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints after Normalize.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Environment variables that override the file. A .env file in the working
// directory is read first if present.
const (
	EnvListen   = "SCHOOLBOARD_LISTEN"
	EnvSheetID  = "SCHOOLBOARD_SHEET_ID"
	EnvLogLevel = "SCHOOLBOARD_LOG_LEVEL"
	EnvCacheDir = "SCHOOLBOARD_CACHE_DIR"
)

// ApplyEnv overlays environment overrides onto c.
func (c *Config) ApplyEnv() {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvSheetID); v != "" {
		c.SheetID = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are applied last, then the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.ApplyEnv()
			cfg.Normalize()
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	// Start from defaults so keys absent from the file keep default values
	// (utc_offset_hours in particular, whose zero value is meaningful).
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ApplyEnv()
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".schoolboard-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
