package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the application.
// Values are resolved in order: defaults, optional YAML file,
// environment variables. Environment variables win.
type Config struct {
	Sentry  SentryConfig  `koanf:"sentry"`
	Gemini  GeminiConfig  `koanf:"gemini"`
	Server  ServerConfig  `koanf:"server"`
	Slack   SlackConfig   `koanf:"slack"`
	Docs    DocsConfig    `koanf:"docs"`
	Log     LogConfig     `koanf:"log"`
	Tracing TracingConfig `koanf:"tracing"`
}

// SentryConfig configures the Sentry event source.
type SentryConfig struct {
	// AuthToken is the bearer token for the Sentry API
	AuthToken string `koanf:"auth_token" validate:"required"`

	// Org is the Sentry organization slug
	Org string `koanf:"org" validate:"required"`

	// Project is the Sentry project slug
	Project string `koanf:"project" validate:"required"`

	// BaseURL is the Sentry instance to query (self-hosted or SaaS)
	BaseURL string `koanf:"base_url"`

	// TimeoutSeconds bounds a single Sentry API request
	TimeoutSeconds int `koanf:"timeout_seconds" validate:"gte=1"`

	// WindowMinutes is the half-width of the event search window
	// around the reported timestamp
	WindowMinutes int `koanf:"window_minutes" validate:"gte=1"`

	// CacheSize is the maximum number of cached event lookups
	CacheSize int `koanf:"cache_size" validate:"gte=1"`
}

// Timeout returns the request timeout as a duration.
func (c *SentryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Window returns the search half-width as a duration.
func (c *SentryConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// GeminiConfig configures the analysis model.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API
	APIKey string `koanf:"api_key" validate:"required"`

	// Model is the model identifier used for analysis
	Model string `koanf:"model" validate:"required"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Port is the port the API server listens on
	Port int `koanf:"port" validate:"gte=1,lte=65535"`

	// AuthToken is the shared secret callers present in X-Auth-Token
	AuthToken string `koanf:"auth_token" validate:"required"`

	// AllowedOrigins is a comma-separated CORS origin list ("*" for any)
	AllowedOrigins string `koanf:"allowed_origins"`
}

// AllowedOriginList splits AllowedOrigins into individual origins.
func (c *ServerConfig) AllowedOriginList() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// SlackConfig configures the optional Slack slash command surface.
type SlackConfig struct {
	// SigningSecret verifies request signatures; empty disables Slack
	SigningSecret string `koanf:"signing_secret"`
}

// Enabled reports whether the Slack surface should be served.
func (c *SlackConfig) Enabled() bool {
	return c.SigningSecret != ""
}

// DocsConfig configures the knowledge base.
type DocsConfig struct {
	// Dir holds workflow.md and known_errors.md
	Dir string `koanf:"dir" validate:"required"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the default log level (debug, info, warn, error)
	Level string `koanf:"level"`
}

// TracingConfig configures OpenTelemetry trace export.
type TracingConfig struct {
	// Enabled turns on trace export
	Enabled bool `koanf:"enabled"`

	// Endpoint is the OTLP gRPC endpoint for trace export
	Endpoint string `koanf:"endpoint"`

	// TLSCAPath is the CA certificate for TLS verification
	TLSCAPath string `koanf:"tls_ca_path"`
}

// envKeys maps environment variables to config keys. Variables not
// listed here are ignored by the loader.
var envKeys = map[string]string{
	"SENTRY_AUTH_TOKEN":      "sentry.auth_token",
	"SENTRY_ORG":             "sentry.org",
	"SENTRY_PROJECT":         "sentry.project",
	"SENTRY_BASE_URL":        "sentry.base_url",
	"SENTRY_TIMEOUT_SECONDS": "sentry.timeout_seconds",
	"SENTRY_WINDOW_MINUTES":  "sentry.window_minutes",
	"SENTRY_CACHE_SIZE":      "sentry.cache_size",
	"GEMINI_API_KEY":         "gemini.api_key",
	"GEMINI_MODEL":           "gemini.model",
	"PORT":                   "server.port",
	"APP_PASSWORD":           "server.auth_token",
	"ALLOWED_ORIGINS":        "server.allowed_origins",
	"SLACK_SIGNING_SECRET":   "slack.signing_secret",
	"DOCS_DIR":               "docs.dir",
	"LOG_LEVEL":              "log.level",
	"TRACING_ENABLED":        "tracing.enabled",
	"TRACING_ENDPOINT":       "tracing.endpoint",
	"TRACING_TLS_CA":         "tracing.tls_ca_path",
}

// requiredEnv maps validator namespaces of required fields back to the
// environment variable an operator would set to fix them.
var requiredEnv = map[string]string{
	"Config.Sentry.AuthToken": "SENTRY_AUTH_TOKEN",
	"Config.Sentry.Org":       "SENTRY_ORG",
	"Config.Sentry.Project":   "SENTRY_PROJECT",
	"Config.Gemini.APIKey":    "GEMINI_API_KEY",
	"Config.Gemini.Model":     "GEMINI_MODEL",
	"Config.Server.AuthToken": "APP_PASSWORD",
	"Config.Docs.Dir":         "DOCS_DIR",
}

var validate = validator.New()

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Sentry: SentryConfig{
			BaseURL:        "https://sentry.io",
			TimeoutSeconds: 30,
			WindowMinutes:  5,
			CacheSize:      100,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Server: ServerConfig{
			Port:           8000,
			AllowedOrigins: "*",
		},
		Docs: DocsConfig{
			Dir: "docs",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load resolves configuration from an optional YAML file and the
// environment, then validates it. path may be empty when all values
// come from the environment.
func Load(path string) (*Config, error) {
	// A .env file is a local development convenience; absence is fine.
	_ = godotenv.Load()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, NewConfigError(fmt.Sprintf("failed to load config file %q: %v", path, err))
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, NewConfigError(fmt.Sprintf("failed to load environment: %v", err))
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, NewConfigError(fmt.Sprintf("failed to parse configuration: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is complete and consistent.
// Missing required values are reported together so an operator can fix
// them in one pass.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return NewConfigError(err.Error())
		}

		var missing, invalid []string
		for _, ve := range verrs {
			if ve.Tag() == "required" {
				if name, ok := requiredEnv[ve.Namespace()]; ok {
					missing = append(missing, name)
				} else {
					missing = append(missing, ve.Namespace())
				}
				continue
			}
			invalid = append(invalid, fmt.Sprintf("%s (%s)", ve.Namespace(), ve.Tag()))
		}

		if len(missing) > 0 {
			return NewConfigError("Missing required configuration: " + strings.Join(missing, ", "))
		}
		return NewConfigError("invalid configuration: " + strings.Join(invalid, ", "))
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("TRACING_ENDPOINT must be set when tracing is enabled")
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
