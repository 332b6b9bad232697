package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setRequiredEnv sets the minimum environment for a loadable config.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SENTRY_AUTH_TOKEN", "test-sentry-token")
	t.Setenv("SENTRY_ORG", "acme")
	t.Setenv("SENTRY_PROJECT", "storefront")
	t.Setenv("GEMINI_API_KEY", "test-gemini-key")
	t.Setenv("APP_PASSWORD", "test-app-password")
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Sentry.BaseURL != "https://sentry.io" {
		t.Errorf("BaseURL = %q, want https://sentry.io", cfg.Sentry.BaseURL)
	}
	if cfg.Sentry.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d, want 30", cfg.Sentry.TimeoutSeconds)
	}
	if cfg.Sentry.WindowMinutes != 5 {
		t.Errorf("WindowMinutes = %d, want 5", cfg.Sentry.WindowMinutes)
	}
	if cfg.Sentry.CacheSize != 100 {
		t.Errorf("CacheSize = %d, want 100", cfg.Sentry.CacheSize)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q, want gemini-2.5-flash", cfg.Gemini.Model)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.AllowedOrigins != "*" {
		t.Errorf("AllowedOrigins = %q, want *", cfg.Server.AllowedOrigins)
	}
	if cfg.Docs.Dir != "docs" {
		t.Errorf("Docs.Dir = %q, want docs", cfg.Docs.Dir)
	}
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9100")
	t.Setenv("SENTRY_WINDOW_MINUTES", "10")
	t.Setenv("SENTRY_BASE_URL", "https://sentry.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TRACING_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Sentry.AuthToken != "test-sentry-token" {
		t.Errorf("AuthToken = %q", cfg.Sentry.AuthToken)
	}
	if cfg.Sentry.Org != "acme" || cfg.Sentry.Project != "storefront" {
		t.Errorf("org/project = %q/%q", cfg.Sentry.Org, cfg.Sentry.Project)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Sentry.WindowMinutes != 10 {
		t.Errorf("WindowMinutes = %d, want 10", cfg.Sentry.WindowMinutes)
	}
	if cfg.Sentry.BaseURL != "https://sentry.example.com" {
		t.Errorf("BaseURL = %q", cfg.Sentry.BaseURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	// Untouched values keep their defaults.
	if cfg.Sentry.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d, want default 30", cfg.Sentry.TimeoutSeconds)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q, want default", cfg.Gemini.Model)
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9100
sentry:
  window_minutes: 15
  cache_size: 50
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("PORT", "9200")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9200 {
		t.Errorf("Port = %d, want 9200 (env wins over file)", cfg.Server.Port)
	}
	if cfg.Sentry.WindowMinutes != 15 {
		t.Errorf("WindowMinutes = %d, want 15 (from file)", cfg.Sentry.WindowMinutes)
	}
	if cfg.Sentry.CacheSize != 50 {
		t.Errorf("CacheSize = %d, want 50 (from file)", cfg.Sentry.CacheSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateMissingRequired(t *testing.T) {
	t.Setenv("PORT", "8000")
	t.Setenv("SENTRY_AUTH_TOKEN", "")
	t.Setenv("SENTRY_ORG", "")
	t.Setenv("SENTRY_PROJECT", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("APP_PASSWORD", "")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for missing required configuration")
	}

	msg := err.Error()
	if !strings.HasPrefix(msg, "Missing required configuration: ") {
		t.Fatalf("error = %q, want missing-configuration prefix", msg)
	}
	for _, name := range []string{"SENTRY_AUTH_TOKEN", "SENTRY_ORG", "SENTRY_PROJECT", "GEMINI_API_KEY", "APP_PASSWORD"} {
		if !strings.Contains(msg, name) {
			t.Errorf("error %q does not name %s", msg, name)
		}
	}
}

func TestValidateInvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "70000")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
	if !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("error = %q, want invalid-configuration message", err.Error())
	}
}

func TestValidateTracingEndpointRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8000")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_ENDPOINT", "")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for tracing without endpoint")
	}
	if !strings.Contains(err.Error(), "TRACING_ENDPOINT") {
		t.Errorf("error = %q, want TRACING_ENDPOINT mention", err.Error())
	}
}

func TestAllowedOriginList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"wildcard", "*", []string{"*"}},
		{"single origin", "https://app.example.com", []string{"https://app.example.com"}},
		{"multiple with spaces", "https://a.example.com, https://b.example.com", []string{"https://a.example.com", "https://b.example.com"}},
		{"empty entries dropped", "https://a.example.com,,", []string{"https://a.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &ServerConfig{AllowedOrigins: tt.raw}
			got := c.AllowedOriginList()
			if len(got) != len(tt.want) {
				t.Fatalf("AllowedOriginList() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("origin[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSentryDurations(t *testing.T) {
	c := &SentryConfig{TimeoutSeconds: 30, WindowMinutes: 5}

	if got := c.Timeout().Seconds(); got != 30 {
		t.Errorf("Timeout = %vs, want 30s", got)
	}
	if got := c.Window().Minutes(); got != 5 {
		t.Errorf("Window = %vm, want 5m", got)
	}
}

func TestSlackEnabled(t *testing.T) {
	if (&SlackConfig{}).Enabled() {
		t.Error("empty signing secret should disable Slack")
	}
	if !(&SlackConfig{SigningSecret: "s3cret"}).Enabled() {
		t.Error("signing secret should enable Slack")
	}
}
