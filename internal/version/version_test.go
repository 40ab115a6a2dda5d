package version

import "testing"

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		date    string
		want    string
	}{
		{"dev build", "dev", "none", "unknown", "dev (development build)"},
		{"release", "v0.3.0", "abc1234", "2026-10-19", "v0.3.0 (commit: abc1234, built: 2026-10-19)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatVersion(tt.version, tt.commit, tt.date); got != tt.want {
				t.Errorf("FormatVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetVersionDefaults(t *testing.T) {
	v, c, d := GetVersionComponents()
	if v != Version || c != Commit || d != Date {
		t.Errorf("GetVersionComponents() = %q %q %q", v, c, d)
	}
	if GetVersion() != FormatVersion(Version, Commit, Date) {
		t.Errorf("GetVersion() = %q", GetVersion())
	}
}
