package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult
			if err := client.Get("/api/v1/health", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			if result.Status != "ok" {
				return fmt.Errorf("server reported status %q", result.Status)
			}
			return nil
		},
	}
}
