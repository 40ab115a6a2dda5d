package config

import (
	"fmt"
	"os"
	"strings"
)

// defaultNotFoundHint is shown when a required config file is missing.
const defaultNotFoundHint = "Run 'cal-suggest config init' to write one, or unset CAL_SUGGEST_CONFIG to use defaults"

// PermissionError reports a config file or directory cal-suggest cannot
// read or write. It matches os.ErrPermission.
type PermissionError struct {
	Path    string
	Op      string // "read" or "write"
	Fix     string // shell command that grants access
	Details string
}

func (e *PermissionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cal-suggest cannot %s config %s: permission denied\n", e.Op, e.Path)
	if e.Details != "" {
		b.WriteString(e.Details + "\n")
	}
	if e.Fix != "" {
		b.WriteString("💡 Fix: " + e.Fix)
	}
	return b.String()
}

func (e *PermissionError) Unwrap() error { return os.ErrPermission }

// ConfigNotFoundError reports a config file named by --config or
// CAL_SUGGEST_CONFIG that does not exist. It matches os.ErrNotExist.
type ConfigNotFoundError struct {
	Path string
	Hint string
}

func (e *ConfigNotFoundError) Error() string {
	hint := e.Hint
	if hint == "" {
		hint = defaultNotFoundHint
	}
	return fmt.Sprintf("config file not found: %s\n\n💡 %s", e.Path, hint)
}

func (e *ConfigNotFoundError) Unwrap() error { return os.ErrNotExist }

// InvalidConfigError reports a config that does not parse, decode or
// validate. Path is "(defaults and environment)" when no file was read.
type InvalidConfigError struct {
	Path    string
	Message string
	Hint    string
}

func (e *InvalidConfigError) Error() string {
	msg := fmt.Sprintf("invalid config: %s\n", e.Path)
	if e.Message != "" {
		msg += e.Message + "\n"
	}
	if e.Hint != "" {
		msg += "💡 " + e.Hint
	}
	return msg
}
