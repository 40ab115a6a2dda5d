package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/cal-suggest/internal/storage"
)

// NewSuggestCmd creates the 'suggest' command.
func NewSuggestCmd() *cobra.Command {
	var (
		userID     int64
		date       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Show event suggestions for a user and date",
		Long: `Show suggested events for a day based on the user's calendar history.

Stored suggestions are returned as-is. When none are stored, the engine is
trained on the user's history and its recommendations are saved first.`,
		Example: `  cal-suggest suggest --user 1 --date 2026-10-26
  cal-suggest suggest --user 1 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd, userID, date, jsonOutput)
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "User id (required)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Target date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runSuggest(cmd *cobra.Command, userID int64, date string, jsonOutput bool) error {
	day, err := parseDate(date)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	suggestions := a.service.GetSuggestions(context.Background(), userID, day)

	out := cmd.OutOrStdout()
	if jsonOutput {
		s, err := formatJSON(suggestions)
		if err != nil {
			return fmt.Errorf("failed to format suggestions: %w", err)
		}
		fmt.Fprintln(out, s)
		return nil
	}

	printSuggestions(cmd, day.Format(storage.DateLayout), suggestions)
	return nil
}

func printSuggestions(cmd *cobra.Command, day string, suggestions []storage.Suggestion) {
	out := cmd.OutOrStdout()
	if len(suggestions) == 0 {
		fmt.Fprintf(out, "No suggestions for %s.\n", day)
		return
	}

	fmt.Fprintf(out, "Suggestions for %s (%d):\n\n", day, len(suggestions))
	for _, s := range suggestions {
		fmt.Fprintf(out, "  [%d] %s at %s (score %.2f)\n", s.ID, s.EventName, s.SuggestedTime, s.SimilarityScore)
		fmt.Fprintf(out, "      %s\n", s.Explanation)
	}
}
