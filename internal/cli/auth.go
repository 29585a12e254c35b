package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hoopstat/scorekeeper/internal/api/request"
	"github.com/hoopstat/scorekeeper/internal/api/response"
)

func newLoginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and save the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.New("--password is required")
			}

			var result response.AuthResponse
			req := request.LoginRequest{Username: args[0], Password: password}
			if err := client.Post("/api/v1/auth/login", req, &result); err != nil {
				return err
			}

			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out, closing every open game session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.LogoutResponse
			if err := client.Post("/api/v1/auth/logout", nil, &result); err != nil {
				return err
			}

			if err := cfg.ClearToken(); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.User
			if err := client.Get("/api/v1/auth/me", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
