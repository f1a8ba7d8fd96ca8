package version

import (
	"log/slog"
	"runtime"
	"strings"
	"testing"
)

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()

	if !strings.HasPrefix(info, "iv-go version dev") {
		t.Errorf("version info should start with 'iv-go version dev', got %q", info)
	}
	if !strings.Contains(info, "unknown") {
		t.Error("version info should contain 'unknown' for commit and build time")
	}
	if !strings.Contains(info, runtime.Version()) {
		t.Errorf("version info should contain Go version %s", runtime.Version())
	}
}

func TestGetVersionInfoWithCustomValues(t *testing.T) {
	originalVersion, originalCommit, originalBuildTime := Version, GitCommit, BuildTime
	defer func() {
		Version, GitCommit, BuildTime = originalVersion, originalCommit, originalBuildTime
	}()

	Version = "v1.0.0"
	GitCommit = "abc123"
	BuildTime = "2024-01-01T00:00:00Z"

	info := GetVersionInfo()
	for _, want := range []string{"v1.0.0", "abc123", "2024-01-01T00:00:00Z"} {
		if !strings.Contains(info, want) {
			t.Errorf("version info should contain %q, got %q", want, info)
		}
	}

	attrs := LogAttrs()
	if len(attrs) != 3 {
		t.Fatalf("expected 3 log attrs, got %d", len(attrs))
	}
	if a := attrs[1].(slog.Attr); a.Value.String() != "v1.0.0" {
		t.Errorf("expected version attr v1.0.0, got %s", a.Value)
	}
}
