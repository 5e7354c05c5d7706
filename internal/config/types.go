package config

import "time"

// Config is the on-disk and environment configuration of the bot process.
type Config struct {
	Token    string         `yaml:"token,omitempty" koanf:"token"`
	Log      LogConfig      `yaml:"log" koanf:"log"`
	Polling  PollingConfig  `yaml:"polling" koanf:"polling"`
	Webhook  WebhookConfig  `yaml:"webhook" koanf:"webhook"`
	Dispatch DispatchConfig `yaml:"dispatch" koanf:"dispatch"`
	Policy   PolicyConfig   `yaml:"policy" koanf:"policy"`
}

type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`   // debug, info, warn, error
	Format string `yaml:"format" koanf:"format"` // text or json
}

// PollingConfig tunes the getUpdates loop.
type PollingConfig struct {
	Timeout        int           `yaml:"timeout" koanf:"timeout"` // seconds
	ErrorBackoff   time.Duration `yaml:"error_backoff" koanf:"error_backoff"`
	InitialOffset  int64         `yaml:"initial_offset,omitempty" koanf:"initial_offset"`
	AllowedUpdates []string      `yaml:"allowed_updates,omitempty" koanf:"allowed_updates"`
}

// WebhookConfig describes both the local listener and the public URL
// registered with setWebhook.
type WebhookConfig struct {
	Listen      string `yaml:"listen" koanf:"listen"`
	Path        string `yaml:"path" koanf:"path"`
	URL         string `yaml:"url,omitempty" koanf:"url"`
	Secret      string `yaml:"secret,omitempty" koanf:"secret"`
	DropPending bool   `yaml:"drop_pending,omitempty" koanf:"drop_pending"`
}

type DispatchConfig struct {
	Serialize      bool          `yaml:"serialize" koanf:"serialize"`
	HandlerTimeout time.Duration `yaml:"handler_timeout" koanf:"handler_timeout"`
}

// PolicyConfig gates which updates reach handlers.
type PolicyConfig struct {
	AllowedChats  []int64       `yaml:"allowed_chats,omitempty" koanf:"allowed_chats"`
	RestrictUsers bool          `yaml:"restrict_users,omitempty" koanf:"restrict_users"`
	Freshness     time.Duration `yaml:"freshness" koanf:"freshness"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Polling: PollingConfig{
			Timeout:      30,
			ErrorBackoff: 5 * time.Second,
		},
		Webhook: WebhookConfig{
			Listen: ":8443",
			Path:   "/telegram/webhook",
		},
		Dispatch: DispatchConfig{
			HandlerTimeout: 30 * time.Second,
		},
		Policy: PolicyConfig{
			Freshness: 5 * time.Minute,
		},
	}
}
