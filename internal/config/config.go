/*
Package config loads cal-suggest configuration.

Values are layered: built-in defaults, then an optional YAML file, then
environment variables prefixed CAL_SUGGEST_ (for example
CAL_SUGGEST_RECOMMEND_SIMILARITY_THRESHOLD=0.65). The file is taken from
--config, CAL_SUGGEST_CONFIG, or ~/.cal-suggest.yaml when it exists.

Example file:

	storage:
	  path: ~/.cal-suggest/calendar.db
	recommend:
	  similarity_threshold: 0.7
	  default_limit: 3
	  per_user_models: false
	suggest:
	  refresh_interval: 24h
	  retention: 168h
	  warm_on_refresh: true
	  record_feedback: true
	breaker:
	  enabled: true
	  max_failures: 5
	  open_timeout: 30s
	logging:
	  level: info
	  format: console
	metrics:
	  addr: ":9090"
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CAL_SUGGEST_"

	// ConfigPathEnvVar overrides the config file location.
	ConfigPathEnvVar = "CAL_SUGGEST_CONFIG"
)

// Config is the root configuration.
type Config struct {
	Storage   StorageConfig   `koanf:"storage"`
	Recommend RecommendConfig `koanf:"recommend"`
	Suggest   SuggestConfig   `koanf:"suggest"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	// Path is the database file. A leading ~ is expanded.
	Path string `koanf:"path"`
}

// RecommendConfig tunes the recommendation engine.
type RecommendConfig struct {
	SimilarityThreshold float64 `koanf:"similarity_threshold" validate:"gt=0,lte=1"`
	DefaultLimit        int     `koanf:"default_limit" validate:"gte=1,lte=50"`

	// PerUserModels keeps one engine per user instead of a shared one.
	PerUserModels bool `koanf:"per_user_models"`
}

// SuggestConfig tunes the suggestion lifecycle.
type SuggestConfig struct {
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gte=1m"`
	Retention       time.Duration `koanf:"retention" validate:"gte=1h"`

	// WarmOnRefresh makes maintain compute today's suggestions for every
	// user after each refresh.
	WarmOnRefresh bool `koanf:"warm_on_refresh"`

	// RecordFeedback logs dismissal feedback. The logged threshold is what
	// later runs start from; turning this off pins the configured value.
	RecordFeedback bool `koanf:"record_feedback"`
}

// BreakerConfig tunes the circuit breaker around the store.
type BreakerConfig struct {
	Enabled     bool          `koanf:"enabled"`
	MaxFailures uint32        `koanf:"max_failures" validate:"gte=1"`
	OpenTimeout time.Duration `koanf:"open_timeout" validate:"gte=1s"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" validate:"omitempty,listen_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dbPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".cal-suggest", "calendar.db")
	}

	return &Config{
		Storage: StorageConfig{
			Path: dbPath,
		},
		Recommend: RecommendConfig{
			SimilarityThreshold: 0.7,
			DefaultLimit:        3,
			PerUserModels:       false,
		},
		Suggest: SuggestConfig{
			RefreshInterval: 24 * time.Hour,
			Retention:       7 * 24 * time.Hour,
			WarmOnRefresh:   true,
			RecordFeedback:  true,
		},
		Breaker: BreakerConfig{
			Enabled:     true,
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}
}

// GetDefaultConfigPath returns the path to ~/.cal-suggest.yaml.
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".cal-suggest.yaml"), nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !hasHomePrefix(path) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func hasHomePrefix(path string) bool {
	return len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator)
}
