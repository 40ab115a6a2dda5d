package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ResolvePath picks the config file to read. An explicit path or one from
// CAL_SUGGEST_CONFIG must exist; the home default is used only if present.
// An empty result means no file.
func ResolvePath(explicit string) (path string, required bool) {
	if explicit != "" {
		return expandHome(explicit), true
	}
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return expandHome(p), true
	}
	p, err := GetDefaultConfigPath()
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, false
}

// Load builds the configuration from defaults, the resolved file and the
// environment, then validates it.
func Load(explicitPath string) (*Config, error) {
	path, required := ResolvePath(explicitPath)
	return LoadFrom(path, required)
}

// LoadFrom builds the configuration using the file at path. An empty path
// skips the file layer.
func LoadFrom(path string, required bool) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: YAML file
	if path != "" {
		if err := checkReadable(path); err != nil {
			var notFound *ConfigNotFoundError
			if !required && errors.As(err, &notFound) {
				path = ""
			} else {
				return nil, err
			}
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &InvalidConfigError{
				Path:    path,
				Message: fmt.Sprintf("YAML parse error: %v", err),
				Hint:    "Run 'cal-suggest config init --force' to write a fresh config",
			}
		}
	}

	// Layer 3: environment, highest priority.
	// CAL_SUGGEST_RECOMMEND_DEFAULT_LIMIT -> recommend.default_limit
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    describePath(path),
			Message: fmt.Sprintf("failed to decode configuration: %v", err),
			Hint:    "Check value types, durations look like 30s or 24h",
		}
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)

	if err := Validate(cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    describePath(path),
			Message: err.Error(),
			Hint:    "Fix the listed keys in the config file or CAL_SUGGEST_* environment",
		}
	}

	return cfg, nil
}

// envKey maps CAL_SUGGEST_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if key == "config" {
		return ""
	}
	return strings.Replace(key, "_", ".", 1)
}

func describePath(path string) string {
	if path == "" {
		return "(defaults and environment)"
	}
	return path
}

// checkReadable reports a missing or unreadable config file.
func checkReadable(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &ConfigNotFoundError{Path: path}
		}
		return fmt.Errorf("failed to access config: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return &PermissionError{
				Path:    path,
				Op:      "read",
				Fix:     getReadPermissionFix(path),
				Details: getPermissionDetails(path),
			}
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return f.Close()
}

// getReadPermissionFix returns platform-specific fix command
func getReadPermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s → Properties → Security → Edit permissions", path)
	default: // unix-like
		return fmt.Sprintf("Run: chmod 644 %s", path)
	}
}

// getPermissionDetails checks file ownership and permissions
func getPermissionDetails(path string) string {
	if runtime.GOOS == "windows" {
		return "" // Not applicable on Windows
	}

	info, err := os.Stat(path)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}
