package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDefaultsPass(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.Endpoint.URL = "" }, "endpoint.url must not be empty"},
		{"bad scheme", func(c *Config) { c.Endpoint.URL = "ftp://x" }, `endpoint.url scheme "ftp"`},
		{"relative path", func(c *Config) { c.Endpoint.Path = "ws" }, "endpoint.path must start with /"},
		{"codec", func(c *Config) { c.Endpoint.Codec = "xml" }, `endpoint.codec "xml"`},
		{"transport", func(c *Config) { c.Endpoint.Transports = []string{"polling"} }, `unsupported transport "polling"`},
		{"dial timeout", func(c *Config) { c.Endpoint.DialTimeout = 0 }, "endpoint.dial_timeout must be > 0"},
		{"read limit", func(c *Config) { c.Endpoint.ReadLimit = 0 }, "endpoint.read_limit must be > 0"},
		{"queue size", func(c *Config) { c.Endpoint.QueueSize = -1 }, "endpoint.queue_size must be > 0"},
		{"breaker failures", func(c *Config) { c.Breaker.MaxFailures = 0 }, "breaker.max_failures must be > 0"},
		{"breaker timeout", func(c *Config) { c.Breaker.Timeout = 0 }, "breaker.timeout must be > 0"},
		{"welcome id", func(c *Config) { c.Widget.WelcomeID = "" }, "widget.welcome_id must not be empty"},
		{"welcome category", func(c *Config) { c.Widget.WelcomeCategory = "" }, "widget.welcome_category must not be empty"},
		{"blank reason", func(c *Config) { c.Widget.FeedbackReasons = []string{" "} }, "widget.feedback_reasons[0] must not be empty"},
		{"duplicate reason", func(c *Config) { c.Widget.FeedbackReasons = []string{"a", "a"} }, `duplicate reason "a"`},
		{"backend addr", func(c *Config) { c.Backend.Addr = "nohostport" }, "backend.addr"},
		{"backend path", func(c *Config) { c.Backend.Path = "ws" }, "backend.path must start with /"},
		{"fragment rate", func(c *Config) { c.Backend.FragmentRate = 0 }, "backend.fragment_rate must be > 0"},
		{"fragment burst", func(c *Config) { c.Backend.FragmentBurst = 0 }, "backend.fragment_burst must be > 0"},
		{"topic title", func(c *Config) { c.Backend.Topics = []TopicConfig{{Description: "d"}} }, "backend.topics[0].title must not be empty"},
		{"logger level", func(c *Config) { c.Logger.Level = "loud" }, `logger.level "loud"`},
		{"logger format", func(c *Config) { c.Logger.Format = "xml" }, `logger.format "xml"`},
		{"tracer exporter", func(c *Config) { c.Tracer = TracerConfig{Enabled: true, Exporter: "otlp"} }, `tracer.exporter "otlp"`},
		{"tracer file output", func(c *Config) { c.Tracer = TracerConfig{Enabled: true, Exporter: "file"} }, "tracer.output is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			assertContains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAccumulates(t *testing.T) {
	cfg := Defaults()
	cfg.Endpoint.URL = ""
	cfg.Breaker.MaxFailures = 0
	cfg.Logger.Format = "xml"

	err := Validate(cfg)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
}

func TestValidateTracerDisabledSkipsExporter(t *testing.T) {
	cfg := Defaults()
	cfg.Tracer = TracerConfig{Enabled: false, Exporter: "otlp"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled tracer should not be validated: %v", err)
	}
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}
