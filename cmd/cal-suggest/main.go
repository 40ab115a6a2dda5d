/*
Package main is the entry point for the cal-suggest CLI.

cal-suggest learns from a user's calendar history and suggests events for
a given day, explaining each suggestion by the time of day the user tends
to schedule similar events.

Usage:

	cal-suggest [command]

Available Commands:

	events      Manage calendar history used for suggestions
	suggest     Show event suggestions for a user and date
	dismiss     Dismiss a suggestion, optionally with feedback
	refresh     Purge old dismissed suggestions
	feedback    Show feedback given on dismissed suggestions
	maintain    Run periodic suggestion refreshes
	config      Create or inspect the configuration file
	version     Show version information

Examples:

	# Import history and ask for suggestions
	cal-suggest events import --user 1 history.json
	cal-suggest suggest --user 1 --date 2026-10-26

	# Tell the recommender a suggestion was off
	cal-suggest dismiss 12 --feedback negative
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/khanglvm/cal-suggest/internal/cli"
	"github.com/khanglvm/cal-suggest/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cal-suggest",
		Short: "Calendar event suggestions from your own history",
		Long: `cal-suggest suggests calendar events for a day based on the events a user
has scheduled before.

Each past event is reduced to its weekday, start hour and duration. Events
whose features lie close to the rest of the history score highest, and
suggestions scoring above the similarity threshold are stored per user and
date until dismissed. Feedback on dismissal nudges the threshold.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.BindGlobalFlags(rootCmd)

	rootCmd.AddCommand(cli.NewEventsCmd())
	rootCmd.AddCommand(cli.NewSuggestCmd())
	rootCmd.AddCommand(cli.NewDismissCmd())
	rootCmd.AddCommand(cli.NewRefreshCmd())
	rootCmd.AddCommand(cli.NewFeedbackCmd())
	rootCmd.AddCommand(cli.NewMaintainCmd())
	rootCmd.AddCommand(cli.NewConfigCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
