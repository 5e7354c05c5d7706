package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdelaire/shingram/adapters/webhook"
	"github.com/jdelaire/shingram/internal/config"
)

var (
	serveRegister bool
	dropPending   bool
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Serve and manage webhook delivery",
}

var webhookServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the webhook endpoint",
	Long: `Listens on webhook.listen and handles updates POSTed to webhook.path.
With --register the public webhook.url is registered with Telegram first.
TLS is expected to be terminated in front of this process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireToken(); err != nil {
			return err
		}
		logger := newLogger(cfg.Log, os.Stderr)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := newApp(cfg, logger)
		if err := a.identify(ctx); err != nil {
			return fmt.Errorf("getMe: %w", err)
		}
		if serveRegister {
			if err := registerWebhook(ctx, a, cfg); err != nil {
				return err
			}
		}
		a.watchConfig(ctx, cfgFile)

		srv := webhook.NewServer(cfg.Webhook.Listen, cfg.Webhook.Path,
			webhook.NewHandler(a.bot, cfg.Webhook.Secret, logger), logger)
		if err := srv.Start(); err != nil {
			return err
		}
		<-ctx.Done()

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var webhookSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Register webhook.url with Telegram",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, a, err := managementApp()
		if err != nil {
			return err
		}
		return registerWebhook(cmd.Context(), a, cfg)
	},
}

var webhookDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the registered webhook",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, a, err := managementApp()
		if err != nil {
			return err
		}
		return a.bot.DeleteWebhook(cmd.Context(), dropPending)
	},
}

var webhookInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the current webhook status",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, a, err := managementApp()
		if err != nil {
			return err
		}
		info, err := a.bot.GetWebhookInfo(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if info.URL == "" {
			fmt.Fprintln(out, "No webhook set (long polling mode)")
			return nil
		}
		fmt.Fprintf(out, "URL:              %s\n", info.URL)
		fmt.Fprintf(out, "Pending updates:  %d\n", info.PendingUpdateCount)
		if info.MaxConnections > 0 {
			fmt.Fprintf(out, "Max connections:  %d\n", info.MaxConnections)
		}
		if len(info.AllowedUpdates) > 0 {
			fmt.Fprintf(out, "Allowed updates:  %v\n", info.AllowedUpdates)
		}
		if info.LastErrorMessage != "" {
			at := time.Unix(info.LastErrorDate, 0).Format(time.RFC3339)
			fmt.Fprintf(out, "Last error:       %s (%s)\n", info.LastErrorMessage, at)
		}
		return nil
	},
}

func managementApp() (*config.Config, *app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireToken(); err != nil {
		return nil, nil, err
	}
	return cfg, newApp(cfg, newLogger(cfg.Log, os.Stderr)), nil
}

func registerWebhook(ctx context.Context, a *app, cfg *config.Config) error {
	if err := cfg.RequireWebhookURL(); err != nil {
		return err
	}
	extra := map[string]any{}
	if len(cfg.Polling.AllowedUpdates) > 0 {
		extra["allowed_updates"] = cfg.Polling.AllowedUpdates
	}
	if cfg.Webhook.DropPending || dropPending {
		extra["drop_pending_updates"] = true
	}
	return a.bot.SetWebhook(ctx, cfg.Webhook.URL, cfg.Webhook.Secret, extra)
}

func init() {
	webhookServeCmd.Flags().BoolVar(&serveRegister, "register", false, "register webhook.url before serving")
	webhookCmd.PersistentFlags().BoolVar(&dropPending, "drop-pending", false, "drop updates queued at Telegram")

	webhookCmd.AddCommand(webhookServeCmd, webhookSetCmd, webhookDeleteCmd, webhookInfoCmd)
	rootCmd.AddCommand(webhookCmd)
}
