package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"chatwidget/internal/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHATWIDGET_"

// KeyEnv names the variable holding the passphrase for enc: values.
const KeyEnv = EnvPrefix + "CONFIG_KEY"

// Config is the top-level application configuration.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint" envPrefix:"ENDPOINT_"`
	Breaker  BreakerConfig  `yaml:"breaker" envPrefix:"BREAKER_"`
	Widget   WidgetConfig   `yaml:"widget" envPrefix:"WIDGET_"`
	Backend  BackendConfig  `yaml:"backend" envPrefix:"BACKEND_"`
	Logger   LoggerConfig   `yaml:"logger" envPrefix:"LOGGER_"`
	Tracer   TracerConfig   `yaml:"tracer" envPrefix:"TRACER_"`
}

// EndpointConfig holds the connection parameters handed to the channel.
// Query and header values may be enc: secrets.
type EndpointConfig struct {
	URL          string            `yaml:"url" env:"URL"`
	Path         string            `yaml:"path" env:"PATH"`
	Query        map[string]string `yaml:"query,omitempty"`
	Transports   []string          `yaml:"transports" env:"TRANSPORTS"`
	Subprotocols []string          `yaml:"subprotocols,omitempty" env:"SUBPROTOCOLS"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	Codec        string            `yaml:"codec" env:"CODEC"` // "json" or "msgpack"
	DialTimeout  time.Duration     `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	ReadLimit    int64             `yaml:"read_limit" env:"READ_LIMIT"`
	QueueSize    int               `yaml:"queue_size" env:"QUEUE_SIZE"`
}

// Domain converts to the opaque bag the channel adapter consumes.
func (e EndpointConfig) Domain() domain.EndpointConfig {
	return domain.EndpointConfig{
		URL:          e.URL,
		Path:         e.Path,
		Query:        cloneMap(e.Query),
		Transports:   append([]string(nil), e.Transports...),
		Subprotocols: append([]string(nil), e.Subprotocols...),
		Headers:      cloneMap(e.Headers),
		Codec:        e.Codec,
	}
}

// BreakerConfig guards channel establishment.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures" env:"MAX_FAILURES"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// WidgetConfig holds the widget's copy and welcome request.
type WidgetConfig struct {
	WelcomeID       string   `yaml:"welcome_id" env:"WELCOME_ID"`
	WelcomeCategory string   `yaml:"welcome_category" env:"WELCOME_CATEGORY"`
	FeedbackReasons []string `yaml:"feedback_reasons" env:"FEEDBACK_REASONS" envSeparator:";"`
	NoticeTitle     string   `yaml:"notice_title" env:"NOTICE_TITLE"`
	NoticeBody      string   `yaml:"notice_body" env:"NOTICE_BODY"`
}

// BackendConfig configures the mock conversational backend.
type BackendConfig struct {
	Addr          string        `yaml:"addr" env:"ADDR"`
	Path          string        `yaml:"path" env:"PATH"`
	FragmentRate  float64       `yaml:"fragment_rate" env:"FRAGMENT_RATE"` // fragments per second
	FragmentBurst int           `yaml:"fragment_burst" env:"FRAGMENT_BURST"`
	FeedbackDB    string        `yaml:"feedback_db" env:"FEEDBACK_DB"` // sqlite path, empty for memory
	Topics        []TopicConfig `yaml:"topics"`

	UpgradesPerMin int `yaml:"upgrades_per_min" env:"UPGRADES_PER_MIN"` // 0 disables
	UpgradeBurst   int `yaml:"upgrade_burst" env:"UPGRADE_BURST"`
}

// TopicConfig is one suggestion served by the mock backend.
type TopicConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Message     string `yaml:"message"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"` // stderr, stdout, discard or a file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Exporter string `yaml:"exporter" env:"EXPORTER"` // noop, stdout or file
	Output   string `yaml:"output" env:"OUTPUT"`     // file exporter path
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			URL:         "ws://127.0.0.1:8787",
			Path:        "/ws",
			Transports:  []string{"websocket"},
			Codec:       "json",
			DialTimeout: 10 * time.Second,
			ReadLimit:   1 << 20,
			QueueSize:   64,
		},
		Breaker: BreakerConfig{
			MaxFailures: 3,
			Timeout:     30 * time.Second,
		},
		Widget: WidgetConfig{
			WelcomeID:       domain.DefaultWelcomeID,
			WelcomeCategory: domain.DefaultWelcomeCategory,
			FeedbackReasons: append([]string(nil), domain.DefaultFeedbackReasons...),
			NoticeTitle:     domain.DefaultNoticeTitle,
			NoticeBody:      domain.DefaultNoticeBody,
		},
		Backend: BackendConfig{
			Addr:          "127.0.0.1:8787",
			Path:          "/ws",
			FragmentRate:  20,
			FragmentBurst: 1,
			Topics: []TopicConfig{
				{
					Title:       "Getting started",
					Description: "How do I get started?",
					Message:     "A short tour of what I can help with.",
				},
				{
					Title:       "Pricing",
					Description: "What does it cost?",
					Message:     "Plans, limits and billing.",
				},
				{
					Title:       "Support",
					Description: "I need help with my account.",
					Message:     "Account access and settings.",
				},
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, loads an optional .env next to it, applies
// env var overrides, decrypts secrets and validates. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		if err := validatePermissions(absPath); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", domain.ErrConfigLoad, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := LoadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if passphrase := os.Getenv(KeyEnv); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv exports the variables in a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides maps CHATWIDGET_* env vars onto cfg. Unset variables
// leave the current value alone.
func ApplyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("%w: env overrides: %v", domain.ErrConfigLoad, err)
	}
	return nil
}

// decryptSecrets replaces enc: query and header values with their plaintext.
func decryptSecrets(cfg *Config, passphrase string) error {
	if err := decryptMap(cfg.Endpoint.Query, passphrase); err != nil {
		return fmt.Errorf("endpoint query: %w", err)
	}
	if err := decryptMap(cfg.Endpoint.Headers, passphrase); err != nil {
		return fmt.Errorf("endpoint headers: %w", err)
	}
	return nil
}

func decryptMap(m map[string]string, passphrase string) error {
	for k, v := range m {
		if !strings.HasPrefix(v, "enc:") {
			continue
		}
		plain, err := DecryptValue(strings.TrimPrefix(v, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		m[k] = plain
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// hex(salt) ":" hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts a value produced by EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("%w: invalid encrypted format", domain.ErrDecryption)
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("%w: decode salt: %v", domain.ErrDecryption, err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", domain.ErrDecryption, err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrDecryption)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects group- or world-writable config files.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	if mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
