package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vaultlens/internal/dailynote"
	"github.com/starford/vaultlens/internal/selection"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Vault      VaultConfig       `yaml:"vault"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	DailyNotes DailyNotesConfig  `yaml:"daily_notes"`
	Selection  SelectionConfig   `yaml:"selection"`
	Events     EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.DailyNotes.Validate(); err != nil {
		return err
	}
	if err := c.Selection.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// DailyNotesConfig describes where daily notes live and how they are named.
type DailyNotesConfig struct {
	// Format is a moment-style date format such as YYYY-MM-DD.
	Format   string `yaml:"format"`
	Folder   string `yaml:"folder"`
	Template string `yaml:"template"`
}

// Validate validates the daily-notes configuration.
func (c *DailyNotesConfig) Validate() error {
	if _, err := dailynote.ParseLayout(c.Format); err != nil {
		return fmt.Errorf("daily_notes: %w", err)
	}
	return nil
}

// StoreConfig converts to the daily-note store configuration.
func (c *DailyNotesConfig) StoreConfig() dailynote.Config {
	return dailynote.Config{Format: c.Format, Folder: c.Folder, Template: c.Template}
}

// Week starts.
const (
	WeekStartSunday = "sunday"
	WeekStartMonday = "monday"
)

// SelectionConfig holds the initial selection options and the settings of
// the day-change loop.
type SelectionConfig struct {
	selection.Options `yaml:",inline"`

	WeekStart        string        `yaml:"week_start"`
	Timezone         string        `yaml:"timezone"`
	DayCheckInterval time.Duration `yaml:"day_check_interval"`
}

// Validate validates the selection configuration.
func (c *SelectionConfig) Validate() error {
	c.WeekStart = strings.ToLower(c.WeekStart)
	if err := validation.ValidateStruct(c,
		validation.Field(&c.WeekStart, validation.In(WeekStartSunday, WeekStartMonday)),
		validation.Field(&c.DayCheckInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.Timezone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
	); err != nil {
		return fmt.Errorf("selection: %w", err)
	}
	if err := c.Options.Validate(); err != nil {
		return fmt.Errorf("selection: %w", err)
	}
	return nil
}

// Weekday returns the first day of the week.
func (c *SelectionConfig) Weekday() time.Weekday {
	if c.WeekStart == WeekStartMonday {
		return time.Monday
	}
	return time.Sunday
}

// Location returns the time zone daily dates and windows are computed in.
// An empty timezone means the local zone.
func (c *SelectionConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// EventsConfig holds SSE settings.
type EventsConfig struct {
	// Throttle is the minimum interval between selection.updated events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./vaultlens.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		DailyNotes: DailyNotesConfig{
			Format: dailynote.DefaultFormat,
		},
		Selection: SelectionConfig{
			Options: selection.Options{
				Mode:      selection.ModeDaily,
				TimeRange: selection.RangeAll,
				TimeField: selection.FieldMTime,
			},
			WeekStart:        WeekStartSunday,
			DayCheckInterval: time.Minute,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
