package cli

import (
	"github.com/spf13/cobra"

	"github.com/hoopstat/scorekeeper/internal/api/response"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game session commands",
	}

	cmd.AddCommand(newGameOpenCmd())
	cmd.AddCommand(newGameCloseCmd())
	cmd.AddCommand(newGameListCmd())
	cmd.AddCommand(newGameStateCmd())
	cmd.AddCommand(newGameLocalCmd())
	cmd.AddCommand(newGameReloadCmd())

	return cmd
}

func newGameOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <game-id>",
		Short: "Open a session on a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameState
			if err := client.Post(gamePath(args[0], "session"), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <game-id>",
		Short: "Close the session on a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(gamePath(args[0], "session")); err != nil {
				return err
			}

			output(cmd).PrintMessage("Closed session on " + args[0])
			return nil
		},
	}
}

func newGameListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open game sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.SessionList
			if err := client.Get("/api/v1/games", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <game-id>",
		Short: "Show the live state of an open game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameState
			if err := client.Get(gamePath(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameLocalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "local <game-id>",
		Short: "Show the locally cached snapshot of a game",
		Long: `Show the snapshot kept in the session cache. The snapshot outlives the
session, so this works after the game has been closed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.LocalSnapshot
			if err := client.Get(gamePath(args[0], "local"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGameReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload <game-id>",
		Short: "Reload the game from the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameState
			if err := client.Post(gamePath(args[0], "reload"), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
