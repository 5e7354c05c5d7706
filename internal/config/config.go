package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/jdelaire/shingram/core/auth"
	"github.com/jdelaire/shingram/internal/keychain"
)

const (
	// DefaultPath is the config file used when none is given.
	DefaultPath = "shingram.yml"

	envPrefix = "SHINGRAM_"
	// TokenEnv is the conventional bot token variable, read when neither
	// the file nor SHINGRAM_TOKEN sets one.
	TokenEnv = "TELEGRAM_BOT_TOKEN"
)

// Load reads configuration in increasing precedence: defaults, the YAML
// file at path (optional), then SHINGRAM_* environment variables. A .env
// file next to path is loaded into the environment first without
// overriding variables that are already set. When no token is configured,
// TELEGRAM_BOT_TOKEN and then the system keychain are consulted.
func Load(path string) (*Config, error) {
	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", dotenv, err)
	}

	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// SHINGRAM_WEBHOOK_SECRET -> webhook.secret, SHINGRAM_TOKEN -> token.
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Token == "" {
		cfg.Token = os.Getenv(TokenEnv)
	}
	if cfg.Token == "" {
		if tok, err := keychain.Get(keychain.TokenAccount); err == nil {
			cfg.Token = tok
		}
	}
	return cfg, nil
}

// envKey maps SHINGRAM_SECTION_FIELD_NAME to section.field_name and splits
// comma separated values into lists.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	key = strings.Replace(key, "_", ".", 1)
	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

// Save writes the configuration to the given YAML file path. The token is
// never written; use the keychain or the environment for it.
func (c *Config) Save(path string) error {
	out := *c
	out.Token = ""
	data, err := yamlv3.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks values shared by every mode of operation.
func (c *Config) Validate() error {
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}
	if c.Polling.Timeout < 0 || c.Polling.Timeout > 50 {
		return fmt.Errorf("polling.timeout must be between 0 and 50 seconds")
	}
	if c.Polling.ErrorBackoff < 0 {
		return fmt.Errorf("polling.error_backoff must be non-negative")
	}
	if c.Dispatch.HandlerTimeout < 0 {
		return fmt.Errorf("dispatch.handler_timeout must be non-negative")
	}
	if c.Policy.Freshness < 0 {
		return fmt.Errorf("policy.freshness must be non-negative")
	}
	if c.Webhook.Secret != "" {
		if err := auth.ValidateSecret(c.Webhook.Secret); err != nil {
			return fmt.Errorf("webhook.secret: %w", err)
		}
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		return fmt.Errorf("webhook.path must start with /")
	}
	return nil
}

// RequireToken reports a missing bot token.
func (c *Config) RequireToken() error {
	if c.Token == "" {
		return fmt.Errorf("bot token is required: set %s or %sTOKEN, or run `shingram token set`", TokenEnv, envPrefix)
	}
	return nil
}

// RequireWebhookURL reports a missing public webhook URL.
func (c *Config) RequireWebhookURL() error {
	if !strings.HasPrefix(c.Webhook.URL, "https://") {
		return fmt.Errorf("webhook.url must be an https URL, got %q", c.Webhook.URL)
	}
	return nil
}
