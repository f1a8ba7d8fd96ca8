// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"log/slog"
	"runtime"
)

// Name is the binary name.
const Name = "iv-go"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func GetVersionInfo() string {
	return fmt.Sprintf("%s version %s (commit: %s, built: %s, go: %s)",
		Name, Version, GitCommit, BuildTime, runtime.Version())
}

// LogAttrs describes the build for startup log lines.
func LogAttrs() []any {
	return []any{
		slog.String("service", Name),
		slog.String("version", Version),
		slog.String("commit", GitCommit),
	}
}
