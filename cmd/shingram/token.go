package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jdelaire/shingram/internal/keychain"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the bot token in the system keychain",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the bot token (reads stdin when no argument is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			fmt.Fprint(cmd.ErrOrStderr(), "Bot token: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading token: %w", err)
			}
			token = line
		}
		token = strings.TrimSpace(token)
		if err := validateToken(token); err != nil {
			return err
		}
		if err := keychain.Set(keychain.TokenAccount, token); err != nil {
			return fmt.Errorf("storing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Token stored in keychain.")
		return nil
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored bot token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keychain.Delete(keychain.TokenAccount); err != nil {
			return fmt.Errorf("deleting token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Token removed from keychain.")
		return nil
	},
}

// validateToken checks the "<bot id>:<secret>" shape of a bot token.
func validateToken(token string) error {
	id, secret, ok := strings.Cut(token, ":")
	if !ok || id == "" || secret == "" {
		return fmt.Errorf("token must look like <bot id>:<secret>")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return fmt.Errorf("token bot id must be numeric")
		}
	}
	return nil
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd, tokenDeleteCmd)
	rootCmd.AddCommand(tokenCmd)
}
