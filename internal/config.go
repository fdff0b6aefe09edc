package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/grimoire/internal/outname"
	"github.com/starford/grimoire/internal/output"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Render RenderConfig      `yaml:"render"`
	Output OutputConfig      `yaml:"output"`
	PDF    PDFConfig         `yaml:"pdf"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Watch  WatchConfig       `yaml:"watch"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if err := c.PDF.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
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

// VaultConfig holds the path to the Markdown vault directory.
// An empty path disables vault lookups.
type VaultConfig struct {
	Path string `yaml:"path"`
	// Suggestions is how many similar note names a failed lookup reports.
	Suggestions int `yaml:"suggestions"`
}

// Enabled reports whether a vault is configured.
func (c *VaultConfig) Enabled() bool {
	return c.Path != ""
}

// RenderConfig holds markup options.
type RenderConfig struct {
	ConvertLists bool `yaml:"convert_lists"`
}

// OutputConfig lists the output directories, tried in order, and the file
// stem used for documents without a source name.
type OutputConfig struct {
	Dirs         []string `yaml:"dirs"`
	FallbackName string   `yaml:"fallback_name"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dirs, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.FallbackName, validation.By(plainName)),
	)
}

// Primary returns the first output directory.
func (c *OutputConfig) Primary() string {
	if len(c.Dirs) == 0 {
		return ""
	}
	return c.Dirs[0]
}

func plainName(v any) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return errors.New("must be a plain file name")
	}
	return nil
}

// PDFConfig configures the external HTML to PDF command. An empty command
// disables PDF output. Args may use the {input} and {output} placeholders.
type PDFConfig struct {
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether PDF output is configured.
func (c *PDFConfig) Enabled() bool {
	return c.Command != ""
}

// Validate validates the PDF configuration.
func (c *PDFConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Args, validation.Required, validation.By(hasOutputPlaceholder)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func hasOutputPlaceholder(v any) error {
	args, _ := v.([]string)
	for _, a := range args {
		if strings.Contains(a, output.OutputPlaceholder) {
			return nil
		}
	}
	return fmt.Errorf("must contain the %s placeholder", output.OutputPlaceholder)
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

// WatchConfig holds the inbox directory watched for new Markdown files.
// An empty inbox disables the watcher.
type WatchConfig struct {
	Inbox    string        `yaml:"inbox"`
	Debounce time.Duration `yaml:"debounce"`
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
		Vault: VaultConfig{
			Suggestions: 5,
		},
		Output: OutputConfig{
			Dirs:         []string{"./output"},
			FallbackName: outname.FallbackBase,
		},
		PDF: PDFConfig{
			Timeout: time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "./grimoire.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
