package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "scorekeeper",
		Short: "Courtside scorekeeping client and server",
		Long: `scorekeeper runs the local scorekeeping API and talks to it.

Use "scorekeeper serve" to start the API. The remaining commands log in,
open game sessions, drive the clock, record lineups, scores, stats and shots,
manage permissions and stream live session events.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load token from file if not provided via flag/env
			if err := cfg.LoadToken(); err != nil {
				return err
			}

			client = NewClient(cfg.ServerURL, cfg.Token)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: SCOREKEEPER_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Session token (env: SCOREKEEPER_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: SCOREKEEPER_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newMeCmd())
	rootCmd.AddCommand(newGameCmd())
	rootCmd.AddCommand(newClockCmd())
	rootCmd.AddCommand(newQuarterCmd())
	rootCmd.AddCommand(newStartersCmd())
	rootCmd.AddCommand(newSubCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newStatCmd())
	rootCmd.AddCommand(newShotCmd())
	rootCmd.AddCommand(newPermsCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// output returns a formatter writing to the command's streams
func output(cmd *cobra.Command) *Output {
	return NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
}
