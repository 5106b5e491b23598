package cli

import (
	"github.com/spf13/cobra"

	"github.com/palacemc/palace-web/internal/model"
)

func newConnectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connection",
		Short: "Manage linked external accounts",
	}

	cmd.AddCommand(newConnectionGetCmd())
	cmd.AddCommand(newConnectionSetCmd())
	cmd.AddCommand(newConnectionFindCmd())

	return cmd
}

func newConnectionGetCmd() *cobra.Command {
	var provider, pair string

	cmd := &cobra.Command{
		Use:   "get <uuid>",
		Short: "Read one value of a player's connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"uuid": args[0],
				"type": provider,
				"pair": pair,
			}
			var result ConnectionValue

			if err := client.Post("/api/player/connection/get", req, &result); err != nil {
				return err
			}

			out := NewOutput(cmd.OutOrStdout(), cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "type", "discord", "Connection provider")
	cmd.Flags().StringVar(&pair, "pair", "content", "Pair to read: content, hash or token")

	return cmd
}

func newConnectionSetCmd() *cobra.Command {
	var (
		provider, pair, value string
		expire                int64
	)

	cmd := &cobra.Command{
		Use:   "set <uuid>",
		Short: "Write one value of a player's connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"uuid":  args[0],
				"type":  provider,
				"pair":  pair,
				"value": value,
			}
			switch {
			case cmd.Flags().Changed("expire"):
				req["expire"] = expire
			case pair != "hash":
				req["expire"] = model.InstantSecondMax
			}
			var result ConnectionValue

			if err := client.Post("/api/player/connection", req, &result); err != nil {
				return err
			}

			out := NewOutput(cmd.OutOrStdout(), cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "type", "discord", "Connection provider")
	cmd.Flags().StringVar(&pair, "pair", "content", "Pair to write: content, hash or token")
	cmd.Flags().StringVar(&value, "value", "", "Value to store")
	cmd.Flags().Int64Var(&expire, "expire", 0, "Expiry in epoch seconds (default: never, or the longest hash lifetime)")

	return cmd
}

func newConnectionFindCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "find <content>",
		Short: "Find the player linked to an external account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"type":    provider,
				"content": args[0],
			}
			var result Player

			if err := client.Post("/api/player/connection/find", req, &result); err != nil {
				return err
			}

			out := NewOutput(cmd.OutOrStdout(), cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "type", "discord", "Connection provider")

	return cmd
}
