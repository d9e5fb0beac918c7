// Package config handles loading and validating the completion engine's
// configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level configuration for the sqlcopilot engine.
type Config struct {
	API         APIConfig         `koanf:"api"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Database    DatabaseConfig    `koanf:"database"`
}

// APIConfig holds settings for talking to the completion/chat service.
type APIConfig struct {
	URL string `koanf:"url"`

	// PrimeThreshold is the cursor-position heuristic: completions are only
	// issued once the user has typed more than this many characters.
	// Configurable; the default keeps the historical value of 5.
	PrimeThreshold int `koanf:"prime_threshold"`

	// MaxTokens is the max_tokens sent on a real (non-prime) completion
	// request.
	MaxTokens int `koanf:"max_tokens"`

	// PollInterval is loaded and defaulted here but not read by the
	// transport worker, which checks for staleness before every read of
	// the response body instead of on a timer.
	PollInterval time.Duration `koanf:"poll_interval"`
}

// CredentialsConfig points at the credential file (see internal/auth).
type CredentialsConfig struct {
	Path string `koanf:"path"`
}

// DatabaseConfig holds the connection string used by internal/schema to
// introspect the connected database's public tables and columns.
type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

const (
	defaultPrimeThreshold = 5
	defaultMaxTokens      = 256
	defaultPollInterval   = 100 * time.Millisecond
)

// Load reads configuration from a YAML file, layers environment variable
// overrides on top, and returns a fully populated Config.
func Load(path string) (*Config, error) {
	// Load .env file into the process environment (ignored if not present).
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	// Any env var starting with SQLCOPILOT_ can override a config value.
	// SQLCOPILOT_API_URL -> api.url, SQLCOPILOT_API_PRIME_THRESHOLD ->
	// api.prime_threshold, and so on.
	if err := k.Load(env.Provider("SQLCOPILOT_", ".", func(s string) string {
		// Only the first underscore separates the section from the key, so
		// multi-word keys such as prime_threshold keep their underscores.
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, "SQLCOPILOT_")),
			"_", ".", 1,
		)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := Config{
		API: APIConfig{
			PrimeThreshold: defaultPrimeThreshold,
			MaxTokens:      defaultMaxTokens,
			PollInterval:   defaultPollInterval,
		},
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR_NAME} placeholders in the database DSN so secrets can
	// live in the environment instead of the config file.
	if strings.HasPrefix(cfg.Database.DSN, "${") && strings.HasSuffix(cfg.Database.DSN, "}") {
		envVar := cfg.Database.DSN[2 : len(cfg.Database.DSN)-1]
		cfg.Database.DSN = os.Getenv(envVar)
	}

	if cfg.Credentials.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.Credentials.Path = home + "/.sqlcopilot/credentials.json"
	}

	return &cfg, nil
}
