package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Read and update player wallets",
	}

	cmd.AddCommand(newWalletGetCmd())
	cmd.AddCommand(newWalletUpdateCmd())

	return cmd
}

func newWalletGetCmd() *cobra.Command {
	var wallets []string

	cmd := &cobra.Command{
		Use:   "get <uuid>",
		Short: "Show wallet balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"uuid": args[0]}
			if len(wallets) > 0 {
				req["wallets"] = wallets
			}
			var result Wallets

			if err := client.Post("/api/player/wallet/get", req, &result); err != nil {
				return err
			}

			out := NewOutput(cmd.OutOrStdout(), cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&wallets, "wallet", nil, "Wallet name, repeatable (default: all wallets)")

	return cmd
}

func newWalletUpdateCmd() *cobra.Command {
	var (
		wallets       []string
		delta         int64
		allowNegative bool
		failIfPartial bool
	)

	cmd := &cobra.Command{
		Use:   "update <uuid>",
		Short: "Add delta to one or more wallets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(wallets) == 0 {
				return fmt.Errorf("--wallet is required")
			}

			req := map[string]any{
				"uuid":          args[0],
				"wallets":       wallets,
				"delta":         delta,
				"allowNegative": allowNegative,
				"failIfPartial": failIfPartial,
			}
			var result WalletUpdate

			if err := client.Post("/api/player/wallet", req, &result); err != nil {
				return err
			}

			out := NewOutput(cmd.OutOrStdout(), cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&wallets, "wallet", nil, "Wallet name, repeatable (required)")
	cmd.Flags().Int64Var(&delta, "delta", 0, "Amount to add, negative to spend")
	cmd.Flags().BoolVar(&allowNegative, "allow-negative", false, "Allow balances to drop below zero")
	cmd.Flags().BoolVar(&failIfPartial, "fail-if-partial", true, "Roll back every wallet if one cannot be updated")
	_ = cmd.MarkFlagRequired("wallet")

	return cmd
}
