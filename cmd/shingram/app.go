package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/jdelaire/shingram/adapters/telegram"
	"github.com/jdelaire/shingram/core"
	"github.com/jdelaire/shingram/core/configwatch"
	"github.com/jdelaire/shingram/core/policy"
	"github.com/jdelaire/shingram/internal/config"
)

const watchInterval = 2 * time.Second

// app is a bot assembled from config with the demo handlers registered.
type app struct {
	cfg    *config.Config
	client *telegram.Client
	policy *policy.Policy
	bot    *core.Bot
	logger *slog.Logger
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	client := telegram.New(cfg.Token)
	pol := policy.New(policy.Config{
		Allowed:       cfg.Policy.AllowedChats,
		RestrictUsers: cfg.Policy.RestrictUsers,
		Freshness:     cfg.Policy.Freshness,
	})
	bot := core.NewBot(client, core.BotConfig{
		Poller:         pollerConfig(cfg.Polling),
		Policy:         pol,
		SerialDispatch: cfg.Dispatch.Serialize,
		HandlerTimeout: cfg.Dispatch.HandlerTimeout,
	}, logger)
	registerHandlers(bot, client)

	return &app{cfg: cfg, client: client, policy: pol, bot: bot, logger: logger}
}

// pollerConfig maps the polling section onto the poller. A configured
// timeout of 0 selects short polling rather than the default timeout.
func pollerConfig(c config.PollingConfig) core.PollerConfig {
	return core.PollerConfig{
		Timeout:        c.Timeout,
		ShortPoll:      c.Timeout == 0,
		ErrorBackoff:   c.ErrorBackoff,
		InitialOffset:  c.InitialOffset,
		AllowedUpdates: c.AllowedUpdates,
	}
}

// identify logs the bot account and the registered routes.
func (a *app) identify(ctx context.Context) error {
	me, err := a.client.GetMe(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("bot ready", "username", me.Username, "id", me.ID, "routes", a.bot.Router().Keys())
	return nil
}

// watchConfig hot-reloads the chat allowlist from the config file until ctx
// is done.
func (a *app) watchConfig(ctx context.Context, path string) {
	reloader := core.NewPolicyReloader(a.policy, loadAllowlist, a.cfg.Policy.AllowedChats, a.logger)
	w := configwatch.New(watchInterval, a.logger)
	w.Watch(path, reloader.Reload)
	go w.Run(ctx)
}

func loadAllowlist(path string) ([]int64, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg.Policy.AllowedChats, nil
}
