package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jdelaire/shingram/core/auth"
	"github.com/jdelaire/shingram/core/policy"
)

// BotConfig wires the delivery paths of a Bot.
type BotConfig struct {
	Poller         PollerConfig
	Policy         *policy.Policy
	SerialDispatch bool
	HandlerTimeout time.Duration
}

// Bot is the public entry point: one router shared by the long-poll loop
// and the webhook ingestor.
type Bot struct {
	client     APIClient
	router     *Router
	dispatcher *Dispatcher
	poller     *Poller
	webhook    *WebhookIngestor
	logger     *slog.Logger
}

// NewBot assembles a Bot around client.
func NewBot(client APIClient, cfg BotConfig, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}

	var opts []DispatcherOption
	if cfg.Policy != nil {
		opts = append(opts, WithPolicy(cfg.Policy))
	}
	if cfg.SerialDispatch {
		opts = append(opts, WithSerialDispatch())
	}
	if cfg.HandlerTimeout > 0 {
		opts = append(opts, WithHandlerTimeout(cfg.HandlerTimeout))
	}

	router := NewRouter()
	dispatcher := NewDispatcher(router, logger, opts...)
	return &Bot{
		client:     client,
		router:     router,
		dispatcher: dispatcher,
		poller:     NewPoller(client, dispatcher, cfg.Poller, logger),
		webhook:    NewWebhookIngestor(dispatcher, logger),
		logger:     logger,
	}
}

// On registers h for key ("type", "type:name" or "*") and returns h.
func (b *Bot) On(key string, h Handler) Handler {
	return b.router.On(key, h)
}

// Router exposes the shared router.
func (b *Bot) Router() *Router { return b.router }

// Client exposes the API client for direct method calls from handlers.
func (b *Bot) Client() APIClient { return b.client }

// Run starts long polling and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	return b.poller.Run(ctx)
}

// Offset returns the poller's next update offset.
func (b *Bot) Offset() int64 { return b.poller.Offset() }

// HandleWebhookUpdate processes one pushed update. See WebhookIngestor.Handle.
func (b *Bot) HandleWebhookUpdate(ctx context.Context, body []byte, headers http.Header, secret string) error {
	return b.webhook.Handle(ctx, body, headers, secret)
}

// WebhookInfo mirrors the Bot API getWebhookInfo result.
type WebhookInfo struct {
	URL                  string   `json:"url"`
	HasCustomCertificate bool     `json:"has_custom_certificate"`
	PendingUpdateCount   int      `json:"pending_update_count"`
	IPAddress            string   `json:"ip_address,omitempty"`
	LastErrorDate        int64    `json:"last_error_date,omitempty"`
	LastErrorMessage     string   `json:"last_error_message,omitempty"`
	MaxConnections       int      `json:"max_connections,omitempty"`
	AllowedUpdates       []string `json:"allowed_updates,omitempty"`
}

// SetWebhook registers url for push delivery. A non-empty secret must follow
// the Bot API token rules. extra carries optional parameters such as
// max_connections, allowed_updates or drop_pending_updates.
func (b *Bot) SetWebhook(ctx context.Context, url, secret string, extra map[string]any) error {
	if url == "" {
		return fmt.Errorf("webhook url is required")
	}
	params := map[string]any{"url": url}
	if secret != "" {
		if err := auth.ValidateSecret(secret); err != nil {
			return fmt.Errorf("invalid webhook secret: %w", err)
		}
		params["secret_token"] = secret
	}
	for k, v := range extra {
		params[k] = v
	}
	if _, err := b.client.Call(ctx, "setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	b.logger.Info("webhook set", "url", url, "secret", secret != "")
	return nil
}

// DeleteWebhook switches the bot back to long polling.
func (b *Bot) DeleteWebhook(ctx context.Context, dropPending bool) error {
	if _, err := b.client.Call(ctx, "deleteWebhook", map[string]any{
		"drop_pending_updates": dropPending,
	}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	b.logger.Info("webhook deleted", "drop_pending_updates", dropPending)
	return nil
}

// GetWebhookInfo returns the current webhook status.
func (b *Bot) GetWebhookInfo(ctx context.Context) (WebhookInfo, error) {
	result, err := b.client.Call(ctx, "getWebhookInfo", nil)
	if err != nil {
		return WebhookInfo{}, fmt.Errorf("get webhook info: %w", err)
	}
	var info WebhookInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return WebhookInfo{}, fmt.Errorf("decode webhook info: %w", err)
	}
	return info, nil
}
