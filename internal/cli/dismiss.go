package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewDismissCmd creates the 'dismiss' command.
func NewDismissCmd() *cobra.Command {
	var feedback string

	cmd := &cobra.Command{
		Use:   "dismiss <suggestion-id>",
		Short: "Dismiss a suggestion, optionally with feedback",
		Long: `Mark a suggestion as dismissed so it is no longer shown.

Feedback "positive" lowers the similarity threshold, "negative" raises it.
Other values are recorded but do not change the threshold.`,
		Example: `  cal-suggest dismiss 12
  cal-suggest dismiss 12 --feedback negative`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid suggestion id %q", args[0])
			}
			return runDismiss(cmd, id, feedback)
		},
	}

	cmd.Flags().StringVarP(&feedback, "feedback", "f", "", "Feedback: positive or negative")

	return cmd
}

func runDismiss(cmd *cobra.Command, id int64, feedback string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.service.DismissSuggestion(context.Background(), id, feedback) {
		return fmt.Errorf("suggestion %d not found", id)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dismissed suggestion %d.\n", id)
	return nil
}
