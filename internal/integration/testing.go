package integration

import (
	"context"
	"os"
	"testing"
	"time"
)

// Config holds integration test configuration from environment
type Config struct {
	EndpointURL  string // ws:// or wss:// base of a running backend
	EndpointPath string
	Codec        string
	TestTimeout  time.Duration
	SkipSlow     bool
}

// LoadConfig loads integration test configuration from environment
func LoadConfig() *Config {
	cfg := &Config{
		EndpointURL:  os.Getenv("CHATWIDGET_E2E_URL"),
		EndpointPath: os.Getenv("CHATWIDGET_E2E_PATH"),
		Codec:        os.Getenv("CHATWIDGET_E2E_CODEC"),
		TestTimeout:  60 * time.Second,
		SkipSlow:     os.Getenv("SKIP_SLOW_TESTS") == "1",
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/ws"
	}
	if cfg.Codec == "" {
		cfg.Codec = "json"
	}
	return cfg
}

// SkipIfNoEndpoint skips the test if no external backend is configured
func SkipIfNoEndpoint(t *testing.T, cfg *Config) {
	t.Helper()
	if cfg.EndpointURL == "" {
		t.Skip("Skipping live backend test: CHATWIDGET_E2E_URL not set")
	}
}

// SkipIfShort skips integration tests in short mode
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// NewTestContext creates a context with timeout for integration tests
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
