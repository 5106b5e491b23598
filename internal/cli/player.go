package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player lookup commands",
	}

	cmd.AddCommand(newPlayerGetCmd())
	cmd.AddCommand(newPlayerFindCmd())
	cmd.AddCommand(newPlayerCountCmd())

	return cmd
}

func newPlayerGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <uuid>",
		Short: "Show a player by uuid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Player

			if err := client.Get("/api/playerFromUUID/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cmd.OutOrStdout(), cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPlayerFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <name>",
		Short: "List players currently using a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PlayerList

			if err := client.Get("/api/playersFromName/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cmd.OutOrStdout(), cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPlayerCountCmd() *cobra.Command {
	var live bool

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Show player counts",
		Long: `Show player counts. Without --live this is the cached daily snapshot;
--live recomputes the counts and needs a token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PlayerCount

			var err error
			if live {
				err = client.Post("/api/playerCount", map[string]any{}, &result)
			} else {
				err = client.Get("/api/playerCount", &result)
			}
			if err != nil {
				return err
			}

			out := NewOutput(cmd.OutOrStdout(), cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&live, "live", false, "Recompute counts instead of using the daily snapshot")

	return cmd
}
