package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/khanglvm/cal-suggest/internal/logging"
	"github.com/khanglvm/cal-suggest/internal/recommend"
	"github.com/khanglvm/cal-suggest/internal/search"
	"github.com/khanglvm/cal-suggest/internal/storage"
)

// NewEventsCmd creates the 'events' command group for managing history.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage calendar history used for suggestions",
	}

	cmd.AddCommand(newEventsAddCmd())
	cmd.AddCommand(newEventsImportCmd())
	cmd.AddCommand(newEventsListCmd())
	cmd.AddCommand(newEventsSearchCmd())
	cmd.AddCommand(newEventsUsersCmd())

	return cmd
}

func newEventsAddCmd() *cobra.Command {
	var (
		userID int64
		event  storage.HistoricalEvent
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add one event to a user's history",
		Example: `  cal-suggest events add --user 1 --name Standup --date 2026-10-19 --start 09:00:00 --end 09:15:00`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateEvent(event); err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			id, err := a.store.AddEvent(context.Background(), userID, event)
			if err != nil {
				return fmt.Errorf("failed to add event: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added event %d: %s on %s at %s\n", id, event.Name, event.Date, event.StartTime)
			return nil
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "User id (required)")
	cmd.Flags().StringVar(&event.Name, "name", "", "Event name (required)")
	cmd.Flags().StringVar(&event.Date, "date", "", "Date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&event.StartTime, "start", "", "Start time HH:MM:SS (required)")
	cmd.Flags().StringVar(&event.EndTime, "end", "", "End time HH:MM:SS (required)")
	cmd.Flags().StringVar(&event.Location, "location", "", "Location")
	cmd.Flags().StringVar(&event.Description, "description", "", "Description")
	for _, name := range []string{"user", "name", "date", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newEventsImportCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import events from a JSON array",
		Long: `Import events from a JSON file holding an array of objects with
name, date, start_time, end_time and optional location and description.
Events that do not parse are skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsImport(cmd, userID, args[0])
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "User id (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runEventsImport(cmd *cobra.Command, userID int64, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var events []storage.HistoricalEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	ctx := context.Background()
	imported := 0
	for i, event := range events {
		if err := validateEvent(event); err != nil {
			fmt.Fprintf(out, "  skipped #%d: %v\n", i, err)
			continue
		}
		if _, err := a.store.AddEvent(ctx, userID, event); err != nil {
			return fmt.Errorf("failed to add event #%d: %w", i, err)
		}
		imported++
	}

	fmt.Fprintf(out, "Imported %d of %d event(s) for user %d.\n", imported, len(events), userID)
	return nil
}

func newEventsListCmd() *cobra.Command {
	var (
		userID     int64
		date       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List a user's events",
		Example: `  cal-suggest events list --user 1
  cal-suggest events list --user 1 --date 2026-10-19`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				if _, err := parseDate(date); err != nil {
					return err
				}
				return runEventsOn(cmd, userID, date, jsonOutput)
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			history, err := a.store.FetchHistory(context.Background(), userID)
			if err != nil {
				return fmt.Errorf("failed to fetch history: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				s, err := formatJSON(history)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}

			if len(history) == 0 {
				fmt.Fprintf(out, "No events for user %d.\n", userID)
				return nil
			}
			fmt.Fprintf(out, "Events for user %d (%d):\n\n", userID, len(history))
			for _, e := range history {
				fmt.Fprintf(out, "  [%d] %s  %s-%s  %s", e.ID, e.Date, e.StartTime, e.EndTime, e.Name)
				if e.Location != "" {
					fmt.Fprintf(out, " @ %s", e.Location)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "User id (required)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Only events on this date (YYYY-MM-DD)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// maxEventsPerDay bounds a single-day listing.
const maxEventsPerDay = 100

func runEventsOn(cmd *cobra.Command, userID int64, date string, jsonOutput bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	indexer, err := indexHistory(context.Background(), a, []int64{userID})
	if err != nil {
		return err
	}
	defer indexer.Close()

	results, err := indexer.EventsOn(userID, date, maxEventsPerDay)
	if err != nil {
		return err
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].StartTime != results[j].StartTime {
			return results[i].StartTime < results[j].StartTime
		}
		return results[i].EventID < results[j].EventID
	})

	out := cmd.OutOrStdout()
	if jsonOutput {
		s, err := formatJSON(results)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s)
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No events for user %d on %s.\n", userID, date)
		return nil
	}
	fmt.Fprintf(out, "Events for user %d on %s (%d):\n\n", userID, date, len(results))
	for _, r := range results {
		fmt.Fprintf(out, "  [%d] %s-%s  %s", r.EventID, r.StartTime, r.EndTime, r.Name)
		if r.Location != "" {
			fmt.Fprintf(out, " @ %s", r.Location)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func newEventsSearchCmd() *cobra.Command {
	var (
		userID int64
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over event history",
		Long: `Search event names, locations and descriptions, tolerating one typo.
Without --user every user's history is searched.`,
		Example: `  cal-suggest events search --user 1 dentist
  cal-suggest events search standup`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsSearch(cmd, userID, strings.Join(args, " "), limit)
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "Only search this user's events")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Maximum results")

	return cmd
}

func runEventsSearch(cmd *cobra.Command, userID int64, query string, limit int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	allUsers := !cmd.Flags().Changed("user")

	users := []int64{userID}
	if allUsers {
		if users, err = a.store.ListUsers(ctx); err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
	}

	indexer, err := indexHistory(ctx, a, users)
	if err != nil {
		return err
	}
	defer indexer.Close()

	var results []search.EventResult
	if allUsers {
		results, err = indexer.Search(query, limit)
	} else {
		results, err = indexer.SearchByUser(query, userID, limit)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No events match %q.\n", query)
		return nil
	}
	for _, r := range results {
		if allUsers {
			fmt.Fprintf(out, "  user %d  ", r.UserID)
		} else {
			fmt.Fprint(out, "  ")
		}
		fmt.Fprintf(out, "[%d] %s  %s  %s (%.2f)\n", r.EventID, r.Date, r.StartTime, r.Name, r.Score)
	}
	return nil
}

// indexHistory loads the history of users into a fresh in-memory index.
func indexHistory(ctx context.Context, a *app, users []int64) (*search.Indexer, error) {
	indexer, err := search.NewIndexer()
	if err != nil {
		return nil, err
	}

	for _, userID := range users {
		history, err := a.store.FetchHistory(ctx, userID)
		if err != nil {
			indexer.Close()
			return nil, fmt.Errorf("failed to fetch history of user %d: %w", userID, err)
		}
		if err := indexer.IndexEvents(userID, history); err != nil {
			indexer.Close()
			return nil, err
		}
	}

	if n, err := indexer.Count(); err == nil {
		logging.Debug().Int("users", len(users)).Uint64("events", n).Msg("indexed history")
	}
	return indexer, nil
}

func newEventsUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List user ids that have history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			users, err := a.store.ListUsers(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users with history.")
				return nil
			}
			for _, id := range users {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}

// validateEvent rejects events the recommender could only read as zeros.
func validateEvent(e storage.HistoricalEvent) error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("event name is required")
	}
	if _, ok := recommend.ExtractFeatures(e); !ok {
		return fmt.Errorf("event %q: date must be YYYY-MM-DD and times HH:MM:SS", e.Name)
	}
	return nil
}
