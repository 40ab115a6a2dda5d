/*
Package cli implements the cal-suggest commands.

Every command that touches data builds an app: configuration, logging, the
SQLite store (optionally behind a circuit breaker), the feedback tracker
and the suggestion service, in that order, and closes them in reverse.
*/
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/khanglvm/cal-suggest/internal/config"
	"github.com/khanglvm/cal-suggest/internal/logging"
	"github.com/khanglvm/cal-suggest/internal/storage"
	"github.com/khanglvm/cal-suggest/internal/suggest"
)

// Global flag values, bound by BindGlobalFlags.
var (
	configPath string
	logLevel   string
)

// BindGlobalFlags registers --config and --log-level on the root command.
func BindGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.cal-suggest.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level")
}

// app holds the wired components for one command run.
type app struct {
	cfg     *config.Config
	sqlite  *storage.SQLiteStorage
	breaker *storage.BreakerStore // nil when breaker.enabled is off
	store   storage.Store
	tracker *suggest.Tracker
	service *suggest.Service
}

// loadConfig loads configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	return cfg, nil
}

// openApp builds the store and service. The caller must call close.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	sqlite := storage.NewStorage(cfg.Storage.Path)
	if err := sqlite.Init(); err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Storage.Path, err)
	}

	var store storage.Store = sqlite
	var breaker *storage.BreakerStore
	if cfg.Breaker.Enabled {
		breaker = storage.NewBreakerStore(sqlite, storage.BreakerSettings{
			MaxFailures: cfg.Breaker.MaxFailures,
			OpenTimeout: cfg.Breaker.OpenTimeout,
		})
		store = breaker
	}

	tracker := suggest.NewTracker(store)
	if !cfg.Suggest.RecordFeedback {
		tracker.Disable()
	}

	service := suggest.NewService(store, suggest.Options{
		Threshold:       cfg.Recommend.SimilarityThreshold,
		Limit:           cfg.Recommend.DefaultLimit,
		RefreshInterval: cfg.Suggest.RefreshInterval,
		Retention:       cfg.Suggest.Retention,
		PerUserModels:   cfg.Recommend.PerUserModels,
		Tracker:         tracker,
		WarmOnRefresh:   cfg.Suggest.WarmOnRefresh,
	})

	logging.Debug().
		Str("db", sqlite.Path()).
		Bool("breaker", cfg.Breaker.Enabled).
		Bool("record_feedback", tracker.IsEnabled()).
		Float64("threshold", cfg.Recommend.SimilarityThreshold).
		Msg("app ready")

	return &app{
		cfg:     cfg,
		sqlite:  sqlite,
		breaker: breaker,
		store:   store,
		tracker: tracker,
		service: service,
	}, nil
}

// close flushes pending feedback and closes the database.
func (a *app) close() {
	a.tracker.Stop()
	if err := a.store.Close(); err != nil {
		logging.Warn().Err(err).Msg("failed to close store")
	}
}

// parseDate accepts YYYY-MM-DD; empty means today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return storage.DateOnly(time.Now()), nil
	}
	t, err := time.Parse(storage.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// formatJSON pretty-prints data as JSON.
func formatJSON(data interface{}) (string, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
