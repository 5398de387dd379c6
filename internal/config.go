package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Admin surface modes.
const (
	AdminModeDisabled = "disabled"
	AdminModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	Store   StoreConfig       `yaml:"store"`
	Admin   AdminConfig       `yaml:"admin"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	return c.Admin.Validate()
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

// ContentConfig holds the path to the seed content directory.
type ContentConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StoreConfig holds explicit KV store credentials. Both fields are
// optional: when empty, credentials are resolved from the environment,
// and when nothing resolves the server runs in read-only disk mode.
type StoreConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// AdminConfig holds admin surface configuration.
//
// Mode controls how the /api/admin routes are exposed:
//   - "disabled" (default): admin routes reject every request.
//   - "token": requests must carry a valid X-Admin-Token header; Token
//     must be non-empty.
type AdminConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the admin configuration.
func (c *AdminConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = AdminModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AdminModeDisabled, AdminModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AdminModeToken && c.Token == "" {
		return fmt.Errorf("admin: mode is %q but token is empty", AdminModeToken)
	}
	return nil
}

// AdminEnabled returns true when the admin surface is active.
func (c *AdminConfig) AdminEnabled() bool {
	return c.Mode == AdminModeToken
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
		Content: ContentConfig{
			Path: "./content",
		},
		Admin: AdminConfig{
			Mode: AdminModeDisabled,
		},
	}
}
