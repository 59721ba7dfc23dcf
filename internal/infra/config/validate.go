package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateEndpoint(cfg, ve)
	validateBreaker(cfg, ve)
	validateWidget(cfg, ve)
	validateBackend(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validSchemes = map[string]bool{"ws": true, "wss": true, "http": true, "https": true}

var validCodecs = map[string]bool{"json": true, "msgpack": true}

func validateEndpoint(cfg *Config, ve *ValidationError) {
	e := cfg.Endpoint
	if e.URL == "" {
		ve.Add("endpoint.url must not be empty")
	} else if u, err := url.Parse(e.URL); err != nil {
		ve.Add("endpoint.url is invalid: %v", err)
	} else if !validSchemes[u.Scheme] {
		ve.Add("endpoint.url scheme %q must be ws, wss, http or https", u.Scheme)
	}
	if e.Path != "" && !strings.HasPrefix(e.Path, "/") {
		ve.Add("endpoint.path must start with /")
	}
	if !validCodecs[e.Codec] {
		ve.Add("endpoint.codec %q must be json or msgpack", e.Codec)
	}
	for _, tr := range e.Transports {
		if tr != "websocket" {
			ve.Add("endpoint.transports: unsupported transport %q", tr)
		}
	}
	if e.DialTimeout <= 0 {
		ve.Add("endpoint.dial_timeout must be > 0")
	}
	if e.ReadLimit <= 0 {
		ve.Add("endpoint.read_limit must be > 0")
	}
	if e.QueueSize <= 0 {
		ve.Add("endpoint.queue_size must be > 0")
	}
}

func validateBreaker(cfg *Config, ve *ValidationError) {
	if cfg.Breaker.MaxFailures == 0 {
		ve.Add("breaker.max_failures must be > 0")
	}
	if cfg.Breaker.Timeout <= 0 {
		ve.Add("breaker.timeout must be > 0")
	}
}

func validateWidget(cfg *Config, ve *ValidationError) {
	w := cfg.Widget
	if w.WelcomeID == "" {
		ve.Add("widget.welcome_id must not be empty")
	}
	if w.WelcomeCategory == "" {
		ve.Add("widget.welcome_category must not be empty")
	}
	seen := make(map[string]bool, len(w.FeedbackReasons))
	for i, r := range w.FeedbackReasons {
		if strings.TrimSpace(r) == "" {
			ve.Add("widget.feedback_reasons[%d] must not be empty", i)
		}
		if seen[r] {
			ve.Add("widget.feedback_reasons: duplicate reason %q", r)
		}
		seen[r] = true
	}
}

func validateBackend(cfg *Config, ve *ValidationError) {
	b := cfg.Backend
	if _, _, err := net.SplitHostPort(b.Addr); err != nil {
		ve.Add("backend.addr %q is invalid: %v", b.Addr, err)
	}
	if !strings.HasPrefix(b.Path, "/") {
		ve.Add("backend.path must start with /")
	}
	if b.FragmentRate <= 0 {
		ve.Add("backend.fragment_rate must be > 0")
	}
	if b.FragmentBurst <= 0 {
		ve.Add("backend.fragment_burst must be > 0")
	}
	if b.UpgradesPerMin < 0 || b.UpgradeBurst < 0 {
		ve.Add("backend.upgrades_per_min and backend.upgrade_burst must not be negative")
	}
	for i, t := range b.Topics {
		if t.Title == "" {
			ve.Add("backend.topics[%d].title must not be empty", i)
		}
	}
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q must be debug, info, warn or error", cfg.Logger.Level)
	}
	if f := cfg.Logger.Format; f != "text" && f != "json" {
		ve.Add("logger.format %q must be text or json", f)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "noop", "", "stdout":
	case "file":
		if cfg.Tracer.Output == "" {
			ve.Add("tracer.output is required for the file exporter")
		}
	default:
		ve.Add("tracer.exporter %q must be noop, stdout or file", cfg.Tracer.Exporter)
	}
}
