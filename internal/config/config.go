// Package config loads SGGuide configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Defaults shared with the command-line flags.
const (
	DefaultStateDir   = "/var/lib/sgguide"
	DefaultSessionTTL = 2 * time.Hour
)

// ErrInvalidSessionTTL is returned by Validate for a non-positive TTL.
var ErrInvalidSessionTTL = errors.New("session TTL must be positive")

// Twilio holds the optional WhatsApp channel credentials.
type Twilio struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber string `env:"TWILIO_FROM_NUMBER"`
}

// Enabled reports whether every credential is present.
func (t Twilio) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

// Config is the process configuration.
type Config struct {
	APIKey       string `env:"OPENROUTER_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	BaseURL      string `env:"SGGUIDE_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	Model        string `env:"SGGUIDE_MODEL" envDefault:"meta-llama/llama-3-70b-instruct"`
	Variant      string `env:"SGGUIDE_VARIANT" envDefault:"sg-complete"`

	Addr          string        `env:"API_ADDR" envDefault:":8080"`
	PublicURL     string        `env:"SGGUIDE_PUBLIC_URL"` // external base URL, used to verify Twilio signatures
	SecureCookies bool          `env:"SGGUIDE_SECURE_COOKIES"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	StateDir      string        `env:"SGGUIDE_STATE_DIR" envDefault:"/var/lib/sgguide"`
	SessionTTL    time.Duration `env:"SGGUIDE_SESSION_TTL" envDefault:"2h"`
	PurgeSchedule string        `env:"SGGUIDE_PURGE_SCHEDULE" envDefault:"*/5 * * * *"`
	Debug         bool          `env:"SGGUIDE_DEBUG"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`

	Twilio Twilio
}

// Load reads the given .env files (or ./.env when none are named) and then
// parses the environment. A missing .env file is not an error; variables
// already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("config.Load: no .env file loaded", "error", err)
	} else {
		slog.Debug("config.Load: .env file loaded")
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(false): func(v string) (interface{}, error) { return ParseBool(v) },
		},
	}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = cfg.OpenAIAPIKey
	}

	slog.Debug("config.Load: environment loaded",
		"api_key_set", cfg.APIKey != "",
		"base_url", cfg.BaseURL,
		"model", cfg.Model,
		"variant", cfg.Variant,
		"addr", cfg.Addr,
		"dsn_set", cfg.DatabaseURL != "",
		"state_dir", cfg.StateDir,
		"session_ttl", cfg.SessionTTL,
		"twilio_enabled", cfg.Twilio.Enabled())
	return cfg, nil
}

// Validate checks values the environment parser cannot.
func (c Config) Validate() error {
	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseBool accepts true/1/yes/on and false/0/no/off, case-insensitively.
// An empty value is false.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", v)
	}
}

// ParseLevel maps a level name such as "debug" or "WARN" to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
