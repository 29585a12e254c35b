package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hoopstat/scorekeeper/internal/api/request"
	"github.com/hoopstat/scorekeeper/internal/api/response"
)

func newClockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Game clock commands",
	}

	cmd.AddCommand(newClockActionCmd("start", "Start the game clock"))
	cmd.AddCommand(newClockActionCmd("pause", "Pause the game clock"))

	return cmd
}

func newClockActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <game-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Clock
			if err := client.Post(gamePath(args[0], "clock", action), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newQuarterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quarter",
		Short: "Quarter commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "end <game-id>",
		Short: "End the current quarter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameState
			if err := client.Post(gamePath(args[0], "quarter", "end"), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	})

	return cmd
}

func newStartersCmd() *cobra.Command {
	var home, away []string

	cmd := &cobra.Command{
		Use:   "starters <game-id>",
		Short: "Set both starting lineups",
		Long: `Set both starting lineups.

Setting starters on a scheduled game starts it. No other write is accepted
until then.`,
		Example: `  scorekeeper starters demo \
    --home home-1,home-2,home-3,home-4,home-5 \
    --away away-1,away-2,away-3,away-4,away-5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameState
			req := request.SetStartersRequest{Home: home, Away: away}
			if err := client.Put(gamePath(args[0], "starters"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&home, "home", nil, "Home starter IDs")
	cmd.Flags().StringSliceVar(&away, "away", nil, "Away starter IDs")
	_ = cmd.MarkFlagRequired("home")
	_ = cmd.MarkFlagRequired("away")

	return cmd
}

func newSubCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sub <game-id> <home|away> <player-out> <player-in>",
		Short: "Substitute a player",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			side := strings.ToLower(args[1])
			if side != "home" && side != "away" {
				return fmt.Errorf("side must be home or away")
			}

			var result response.GameState
			req := request.SubstitutionRequest{Side: side, PlayerOutID: args[2], PlayerInID: args[3]}
			if err := client.Post(gamePath(args[0], "substitutions"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <game-id> <home> <away>",
		Short: "Set the score",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := parseScore(args[1])
			if err != nil {
				return err
			}
			away, err := parseScore(args[2])
			if err != nil {
				return err
			}

			var result response.GameState
			req := request.UpdateScoreRequest{Home: &home, Away: &away}
			if err := client.Put(gamePath(args[0], "score"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func parseScore(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("score must be a non-negative integer: %q", s)
	}
	return n, nil
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <game-id> <player-id> <kind>",
		Short: "Record a stat",
		Long: `Record a stat for a player.

Kinds: rebound, assist, steal, block, turnover, personal_foul`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.RecordStatRequest{PlayerID: args[1], Kind: args[2]}
			if err := client.Post(gamePath(args[0], "stats"), req, nil); err != nil {
				return err
			}

			output(cmd).PrintMessage(fmt.Sprintf("Recorded %s for %s", args[2], args[1]))
			return nil
		},
	}
}

func newShotCmd() *cobra.Command {
	var missed bool

	cmd := &cobra.Command{
		Use:   "shot <game-id> <player-id> <shot-type>",
		Short: "Record a shot attempt",
		Long: `Record a shot attempt for a player. Shots count as made unless --missed is set.

Shot types: two_point, three_point, free_throw`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Shot
			req := request.RecordShotRequest{PlayerID: args[1], ShotType: args[2], Made: !missed}
			if err := client.Post(gamePath(args[0], "shots"), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&missed, "missed", false, "Record the shot as missed")

	return cmd
}

func newPermsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perms",
		Short: "Permission commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <game-id>",
		Short: "Show your permissions in a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Permissions
			if err := client.Get(gamePath(args[0], "permissions"), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh <game-id>",
		Short: "Re-fetch your permissions from the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Permissions
			if err := client.Post(gamePath(args[0], "permissions", "refresh"), nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	})

	cmd.AddCommand(newPermsSetCmd())

	return cmd
}

func newPermsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <game-id> <user-id> <permission=true|false>...",
		Short:   "Change another user's permissions",
		Example: `  scorekeeper perms set demo 01J0ABCD canEditShots=true canControlClock=false`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parsePermissionPatch(args[2:])
			if err != nil {
				return err
			}

			if err := client.Patch(gamePath(args[0], "permissions", args[1]), patch, nil); err != nil {
				return err
			}

			output(cmd).PrintMessage(fmt.Sprintf("Updated %d permissions for %s", len(patch), args[1]))
			return nil
		},
	}
}

func parsePermissionPatch(args []string) (request.PermissionPatchRequest, error) {
	patch := request.PermissionPatchRequest{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected permission=true|false, got %q", arg)
		}
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %q", name, value)
		}
		patch[name] = v
	}
	return patch, nil
}
