package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Obtain and refresh API tokens",
	}

	cmd.AddCommand(newTokenExchangeCmd())
	cmd.AddCommand(newTokenRefreshCmd())

	return cmd
}

func newTokenExchangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange",
		Short: "Exchange the caller secret for a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.CallerSecret == "" {
				return fmt.Errorf("--caller-secret is required")
			}

			req := map[string]string{"exchange": cfg.CallerSecret}
			return requestToken(cmd, req)
		},
	}
}

func newTokenRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Trade the current token for a new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return fmt.Errorf("no token; run 'palacectl token exchange' first")
			}

			req := map[string]string{"refresh": cfg.Token}
			return requestToken(cmd, req)
		},
	}
}

func requestToken(cmd *cobra.Command, req map[string]string) error {
	var result TokenResult

	// The token endpoint does not take a token
	client.SetToken("")
	if err := client.Post("/api/token", req, &result); err != nil {
		return err
	}

	// Save token
	if err := cfg.SaveToken(result.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	client.SetToken(result.Token)

	out := NewOutput(cmd.OutOrStdout(), cfg.Output)
	out.Print(result)
	return nil
}
