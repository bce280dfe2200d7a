package config

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"shinobi/internal/events"
)

const FileName = "shinobi.yml"

// Config models shinobi.yml.
type Config struct {
	API      APIConfig       `yaml:"api" mapstructure:"api"`
	Export   ExportConfig    `yaml:"export" mapstructure:"export"`
	Server   ServerConfig    `yaml:"server" mapstructure:"server"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" mapstructure:"webhooks"`
}

// APIConfig locates the backend the CLI talks to.
type APIConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	APIKey         string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BearerToken    string `yaml:"bearer_token,omitempty" mapstructure:"bearer_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type ExportConfig struct {
	OutputDir    string `yaml:"output_dir" mapstructure:"output_dir"`
	Locale       string `yaml:"locale" mapstructure:"locale"`
	Timezone     string `yaml:"timezone,omitempty" mapstructure:"timezone"`
	PreviewLines int    `yaml:"preview_lines" mapstructure:"preview_lines"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr" mapstructure:"addr"`
	BasePath    string `yaml:"base_path" mapstructure:"base_path"`
	RequireAuth bool   `yaml:"require_auth" mapstructure:"require_auth"`
	JWTSecret   string `yaml:"jwt_secret,omitempty" mapstructure:"jwt_secret"`
}

// WebhookConfig is one outbound event subscription. An empty Events list
// subscribes to everything.
type WebhookConfig struct {
	URL            string   `yaml:"url" mapstructure:"url"`
	Events         []string `yaml:"events,omitempty" mapstructure:"events"`
	Secret         string   `yaml:"secret,omitempty" mapstructure:"secret"`
	Enabled        *bool    `yaml:"enabled,omitempty" mapstructure:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
	RatePerSecond  float64  `yaml:"rate_per_second,omitempty" mapstructure:"rate_per_second"`
}

// Timeout returns the API request timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Tag parses the export locale; callers run Validate first.
func (c ExportConfig) Tag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Spanish
	}
	return tag
}

// Location resolves the export timezone, defaulting to the local zone.
func (c ExportConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "export.timezone %q", c.Timezone)
	}
	return loc, nil
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf("config %s not found; create one with shinobi config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to Default when the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return FromFile(path)
}

// Validate ensures the config is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Newf("config.api.base_url %q must be an absolute URL", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("config.api.timeout_seconds must be > 0")
	}
	if _, err := language.Parse(c.Export.Locale); err != nil {
		return errors.Wrapf(err, "config.export.locale %q", c.Export.Locale)
	}
	if _, err := c.Export.Location(); err != nil {
		return errors.Wrap(err, "config")
	}
	if c.Export.PreviewLines < 0 {
		return errors.New("config.export.preview_lines must be >= 0")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return errors.Newf("config.server.base_path %q must start with /", c.Server.BasePath)
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return errors.Newf("config.webhooks[%d].url is required", i)
		}
		if hook.RatePerSecond < 0 {
			return errors.Newf("config.webhooks[%d].rate_per_second must be >= 0", i)
		}
		for _, evt := range hook.Events {
			if !knownEvent(evt) {
				return errors.Newf("config.webhooks[%d] subscribes to unknown event %q", i, evt)
			}
		}
	}
	return nil
}

func knownEvent(evt string) bool {
	for _, t := range events.Types {
		if t == evt {
			return true
		}
	}
	return false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return FromYAML(data)
}

// YAML renders cfg the way it would appear in shinobi.yml.
func (c *Config) YAML() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return "", errors.Wrap(err, "encode config")
	}
	if err := enc.Close(); err != nil {
		return "", errors.Wrap(err, "encode config")
	}
	return buf.String(), nil
}

const defaultTemplate = `api:
  base_url: http://localhost:5000/api
  timeout_seconds: 10

export:
  output_dir: .
  locale: es
  preview_lines: 20

server:
  addr: ":5000"
  base_path: /api
  require_auth: false

# webhooks:
#   - url: https://example.com/hooks/shinobi
#     events: [asignacion.created, asignacion.completed]
#     rate_per_second: 2
`
