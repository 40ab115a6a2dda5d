package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// newRootCmd mirrors the wiring in cmd/cal-suggest.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cal-suggest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	BindGlobalFlags(root)
	root.AddCommand(NewEventsCmd())
	root.AddCommand(NewSuggestCmd())
	root.AddCommand(NewDismissCmd())
	root.AddCommand(NewRefreshCmd())
	root.AddCommand(NewFeedbackCmd())
	root.AddCommand(NewMaintainCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewVersionCmd())
	return root
}

// setupEnv points HOME and the database at a temp dir.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("CAL_SUGGEST_CONFIG", "")
	t.Setenv("CAL_SUGGEST_STORAGE_PATH", filepath.Join(dir, "calendar.db"))
	t.Setenv("CAL_SUGGEST_LOGGING_LEVEL", "error")
	configPath = ""
	logLevel = ""
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath = ""
	logLevel = ""

	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func TestCommandProperties(t *testing.T) {
	tests := []struct {
		cmd *cobra.Command
		use string
	}{
		{NewEventsCmd(), "events"},
		{NewSuggestCmd(), "suggest"},
		{NewDismissCmd(), "dismiss <suggestion-id>"},
		{NewRefreshCmd(), "refresh"},
		{NewFeedbackCmd(), "feedback"},
		{NewMaintainCmd(), "maintain"},
		{NewConfigCmd(), "config"},
		{NewVersionCmd(), "version"},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			if tt.cmd.Use != tt.use {
				t.Errorf("Use = %q, want %q", tt.cmd.Use, tt.use)
			}
			if tt.cmd.Short == "" {
				t.Error("Short description is empty")
			}
		})
	}
}

func TestSuggestCommandFlags(t *testing.T) {
	cmd := NewSuggestCmd()
	for _, name := range []string{"user", "date", "json"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
	if cmd.Flags().ShorthandLookup("u") == nil {
		t.Error("missing -u shorthand")
	}
}

func TestMaintainCommandHelp(t *testing.T) {
	out, err := runCLI(t, "maintain", "--help")
	if err != nil {
		t.Fatalf("maintain --help failed: %v", err)
	}
	for _, want := range []string{"maintain", "refresh_interval", "--metrics-addr", "SIGTERM"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "Version:") || !strings.Contains(out, "Commit:") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestSuggestRequiresUser(t *testing.T) {
	setupEnv(t)
	if _, err := runCLI(t, "suggest"); err == nil {
		t.Error("expected error without --user")
	}
}

func TestSuggestRejectsBadDate(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "suggest", "--user", "1", "--date", "26/10/2026")
	if err == nil || !strings.Contains(err.Error(), "invalid date") {
		t.Errorf("expected invalid date error, got %v", err)
	}
}

func TestEventsAddRejectsMalformed(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "events", "add", "--user", "1", "--name", "Standup",
		"--date", "2026-10-05", "--start", "9am", "--end", "09:15:00")
	if err == nil {
		t.Error("expected error for malformed start time")
	}
}

func TestEndToEndSuggestAndDismiss(t *testing.T) {
	setupEnv(t)

	// Three identical Monday standups.
	for _, date := range []string{"2026-10-05", "2026-10-12", "2026-10-19"} {
		out, err := runCLI(t, "events", "add", "--user", "1", "--name", "Standup",
			"--date", date, "--start", "09:00:00", "--end", "09:15:00")
		if err != nil {
			t.Fatalf("events add failed: %v", err)
		}
		if !strings.Contains(out, "Added event") {
			t.Errorf("unexpected add output: %q", out)
		}
	}

	out, err := runCLI(t, "events", "list", "--user", "1")
	if err != nil {
		t.Fatalf("events list failed: %v", err)
	}
	if strings.Count(out, "Standup") != 3 {
		t.Errorf("expected 3 listed events, got:\n%s", out)
	}

	out, err = runCLI(t, "suggest", "--user", "1", "--date", "2026-10-26")
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if !strings.Contains(out, "Suggestions for 2026-10-26 (3)") {
		t.Errorf("unexpected suggest output:\n%s", out)
	}
	if !strings.Contains(out, "09:00 AM") {
		t.Errorf("expected explanation with start time, got:\n%s", out)
	}

	// A Tuesday has nothing.
	out, err = runCLI(t, "suggest", "--user", "1", "--date", "2026-10-27")
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if !strings.Contains(out, "No suggestions for 2026-10-27") {
		t.Errorf("expected no suggestions, got:\n%s", out)
	}

	out, err = runCLI(t, "dismiss", "1", "--feedback", "negative")
	if err != nil {
		t.Fatalf("dismiss failed: %v", err)
	}
	if !strings.Contains(out, "Dismissed suggestion 1") {
		t.Errorf("unexpected dismiss output: %q", out)
	}

	out, err = runCLI(t, "suggest", "--user", "1", "--date", "2026-10-26")
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if !strings.Contains(out, "(2)") {
		t.Errorf("expected 2 remaining suggestions, got:\n%s", out)
	}

	if _, err := runCLI(t, "dismiss", "999"); err == nil {
		t.Error("expected error dismissing unknown suggestion")
	}

	// A later invocation starts from the threshold the first one left.
	if _, err := runCLI(t, "dismiss", "2", "--feedback", "negative"); err != nil {
		t.Fatalf("second dismiss failed: %v", err)
	}

	out, err = runCLI(t, "feedback")
	if err != nil {
		t.Fatalf("feedback failed: %v", err)
	}
	if !strings.Contains(out, "Standup: negative (threshold 0.72)") ||
		!strings.Contains(out, "Standup: negative (threshold 0.74)") {
		t.Errorf("unexpected feedback output:\n%s", out)
	}

	out, err = runCLI(t, "events", "users")
	if err != nil {
		t.Fatalf("events users failed: %v", err)
	}
	if strings.TrimSpace(out) != "1" {
		t.Errorf("events users = %q, want 1", out)
	}
}

func TestEventsImportAndSearch(t *testing.T) {
	dir := setupEnv(t)

	file := filepath.Join(dir, "events.json")
	data := `[
  {"name": "Dentist appointment", "date": "2026-10-06", "start_time": "14:00:00", "end_time": "15:00:00", "location": "Main St"},
  {"name": "Team lunch", "date": "2026-10-07", "start_time": "12:00:00", "end_time": "13:00:00"},
  {"name": "Broken", "date": "soon", "start_time": "12:00:00", "end_time": "13:00:00"}
]`
	if err := os.WriteFile(file, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "events", "import", "--user", "2", file)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 2 of 3") {
		t.Errorf("unexpected import output:\n%s", out)
	}
	if !strings.Contains(out, "skipped #2") {
		t.Errorf("expected skipped event to be reported:\n%s", out)
	}

	out, err = runCLI(t, "events", "search", "--user", "2", "dentist")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, "Dentist appointment") || strings.Contains(out, "Team lunch") {
		t.Errorf("unexpected search output:\n%s", out)
	}
}

func TestEventsListByDate(t *testing.T) {
	setupEnv(t)

	events := [][]string{
		{"Lunch", "2026-10-19", "12:00:00", "13:00:00"},
		{"Standup", "2026-10-19", "09:00:00", "09:15:00"},
		{"Gym", "2026-10-20", "18:00:00", "19:00:00"},
	}
	for _, e := range events {
		if _, err := runCLI(t, "events", "add", "--user", "1", "--name", e[0],
			"--date", e[1], "--start", e[2], "--end", e[3]); err != nil {
			t.Fatalf("events add failed: %v", err)
		}
	}

	out, err := runCLI(t, "events", "list", "--user", "1", "--date", "2026-10-19")
	if err != nil {
		t.Fatalf("events list --date failed: %v", err)
	}
	if !strings.Contains(out, "on 2026-10-19 (2)") || strings.Contains(out, "Gym") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Index(out, "Standup") > strings.Index(out, "Lunch") {
		t.Errorf("expected events ordered by start time:\n%s", out)
	}

	if _, err := runCLI(t, "events", "list", "--user", "1", "--date", "19/10/2026"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestEventsSearchAllUsers(t *testing.T) {
	setupEnv(t)

	for _, user := range []string{"1", "2"} {
		if _, err := runCLI(t, "events", "add", "--user", user, "--name", "Standup",
			"--date", "2026-10-19", "--start", "09:00:00", "--end", "09:15:00"); err != nil {
			t.Fatalf("events add failed: %v", err)
		}
	}

	out, err := runCLI(t, "events", "search", "standup")
	if err != nil {
		t.Fatalf("events search failed: %v", err)
	}
	if !strings.Contains(out, "user 1") || !strings.Contains(out, "user 2") {
		t.Errorf("expected hits for both users:\n%s", out)
	}

	out, err = runCLI(t, "events", "search", "--user", "2", "standup")
	if err != nil {
		t.Fatalf("events search --user failed: %v", err)
	}
	if strings.Count(out, "Standup") != 1 {
		t.Errorf("expected one hit for user 2:\n%s", out)
	}
}

func TestMaintainStatus(t *testing.T) {
	setupEnv(t)

	a, err := openApp()
	if err != nil {
		t.Fatalf("openApp failed: %v", err)
	}
	defer a.close()

	rec := httptest.NewRecorder()
	a.serveStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var st struct {
		Breaker string `json:"breaker"`
		Engines []struct {
			UserID    int64   `json:"user_id"`
			Threshold float64 `json:"threshold"`
		} `json:"engines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	if st.Breaker != "closed" {
		t.Errorf("breaker = %q, want closed", st.Breaker)
	}
	if len(st.Engines) != 1 || st.Engines[0].Threshold != 0.7 {
		t.Errorf("unexpected engines: %+v", st.Engines)
	}

	// Logging the same status must not panic with no refresh yet.
	a.logStatus()
}

func TestRefreshCommand(t *testing.T) {
	setupEnv(t)
	out, err := runCLI(t, "refresh")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if !strings.Contains(out, "Purged 0 dismissed suggestion(s).") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := setupEnv(t)

	out, err := runCLI(t, "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	path := filepath.Join(dir, ".cal-suggest.yaml")
	if !strings.Contains(out, path) {
		t.Errorf("expected path %s in output %q", path, out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	if _, err := runCLI(t, "config", "init"); err == nil {
		t.Error("expected error when config exists without --force")
	}
	if _, err := runCLI(t, "config", "init", "--force"); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}

	out, err = runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"similarity_threshold: 0.7", "refresh_interval: 24h0m0s", "level: error"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}
