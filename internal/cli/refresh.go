package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCmd creates the 'refresh' command.
func NewRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Purge old dismissed suggestions",
		Long:  `Delete dismissed suggestions older than suggest.retention (7 days by default).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			n := a.service.RefreshSuggestions(context.Background())
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d dismissed suggestion(s).\n", n)
			return nil
		},
	}
}
