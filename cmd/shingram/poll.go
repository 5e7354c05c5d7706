package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var pollDeleteWebhook bool

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Receive updates by long polling",
	Long: `Runs the getUpdates loop until interrupted. getUpdates is refused while a
webhook is registered, so by default the webhook is removed first.`,
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
		if pollDeleteWebhook {
			if err := a.bot.DeleteWebhook(ctx, false); err != nil {
				return fmt.Errorf("removing webhook: %w", err)
			}
		}
		a.watchConfig(ctx, cfgFile)

		return a.bot.Run(ctx)
	},
}

func init() {
	pollCmd.Flags().BoolVar(&pollDeleteWebhook, "delete-webhook", true, "remove a registered webhook before polling")
	rootCmd.AddCommand(pollCmd)
}
