package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/debounce"
	"github.com/starford/notehub/internal/noteclient"
)

// TokenEnv is the environment variable the NoteHub token falls back to.
const TokenEnv = "NOTEHUB_TOKEN"

// Auth modes for the local presentation API.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	NoteHub NoteHubConfig     `yaml:"notehub"`
	View    ViewConfig        `yaml:"view"`
	Auth    AuthConfig        `yaml:"auth"`
}

// ApplyEnv fills settings that may come from the environment instead of the file.
func (c *Config) ApplyEnv() {
	if c.NoteHub.Token == "" {
		c.NoteHub.Token = os.Getenv(TokenEnv)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.NoteHub.Validate(); err != nil {
		return err
	}
	if err := c.View.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// NoteHubConfig holds the remote notes service connection.
type NoteHubConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate fails with an *apperr.ConfigError when the token is missing; the
// client cannot do anything useful without it.
func (c *NoteHubConfig) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return &apperr.ConfigError{
			Field:  "notehub.token",
			Reason: fmt.Sprintf("bearer token is not set (set it in the config file or %s)", TokenEnv),
		}
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Client returns the transport configuration.
func (c *NoteHubConfig) Client() noteclient.Config {
	return noteclient.Config{BaseURL: c.BaseURL, Token: c.Token}
}

// ViewConfig tunes the page controller and query cache.
type ViewConfig struct {
	SearchDebounce time.Duration `yaml:"search_debounce"`
	StaleTime      time.Duration `yaml:"stale_time"`
}

// Validate validates the view configuration.
func (c *ViewConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SearchDebounce, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.StaleTime, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration for the local presentation API.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		NoteHub: NoteHubConfig{
			BaseURL: noteclient.DefaultBaseURL,
			Timeout: 10 * time.Second,
		},
		View: ViewConfig{
			SearchDebounce: debounce.DefaultWait,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
