package version

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Build metadata, set with -ldflags "-X" at release time
var (
	App       string = "AuthCascade"
	Version   string
	GitCommit string
	BuildTime string
	GoVersion string
	BuildOS   string
	BuildArch string
)

// Print writes the version information to w
func Print(w io.Writer) {
	fmt.Fprintf(w, "%s version %s\n", App, getVersion())
	if GitCommit != "" {
		fmt.Fprintf(w, "Git commit: %s\n", getShortCommit())
	}
	if BuildTime != "" {
		fmt.Fprintf(w, "Build time: %s\n", BuildTime)
	}
	if GoVersion != "" {
		fmt.Fprintf(w, "Go version: %s\n", GoVersion)
	}
	if BuildOS != "" && BuildArch != "" {
		fmt.Fprintf(w, "Built for: %s/%s\n", BuildOS, BuildArch)
	}
}

// Fields returns the build metadata as log fields for the startup line
func Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", getVersion()),
		zap.String("commit", getShortCommit()),
		zap.String("build_time", BuildTime),
	}
}

func getShortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

func getVersion() string {
	if Version != "" {
		return Version
	}
	return "dev"
}
