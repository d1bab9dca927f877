package testsupport

import (
	"path/filepath"
	"testing"

	"labelsheet/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Platform.APIKey = "test"
	cfg.Paths.JournalDir = filepath.Join(base, "journal")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAPIKey sets the platform API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Platform.APIKey = key
	}
}

// WithEndpoint points the platform client at the given base URL, typically an
// httptest server.
func WithEndpoint(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Platform.Endpoint = url
	}
}

// WithDivider overrides the name-path divider.
func WithDivider(divider string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Annotate.Divider = divider
	}
}
