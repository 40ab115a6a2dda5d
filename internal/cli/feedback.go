package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewFeedbackCmd creates the 'feedback' command that prints the feedback log.
func NewFeedbackCmd() *cobra.Command {
	var (
		since      time.Duration
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Show feedback given on dismissed suggestions",
		Long: `Show feedback recorded when suggestions were dismissed, with the
similarity threshold that was in effect afterwards.`,
		Example: `  cal-suggest feedback --since 72h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			records, err := a.sqlite.FeedbackSince(context.Background(), time.Now().Add(-since))
			if err != nil {
				return fmt.Errorf("failed to read feedback: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				s, err := formatJSON(records)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}

			if len(records) == 0 {
				fmt.Fprintf(out, "No feedback in the last %s.\n", since)
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(out, "  %s  user %d  #%d %s: %s (threshold %.2f)\n",
					r.Timestamp.Local().Format("2006-01-02 15:04"), r.UserID, r.SuggestionID, r.EventName, r.Feedback, r.Threshold)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "How far back to look")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}
