// Package version provides utilities for extracting build and dependency
// information from the compiled binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// BuildInfo contains build-time information embedded by the Go toolchain.
type BuildInfo struct {
	GoVersion   string `json:"goVersion"`
	MainModule  string `json:"mainModule"`
	MainVersion string `json:"mainVersion"`
	Commit      string `json:"commit,omitempty"`
}

// GetBuildInfo extracts build information from the current binary using
// runtime/debug. Returns placeholder values when build info is unavailable,
// e.g. in binaries built without module support.
func GetBuildInfo() *BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return &BuildInfo{
			GoVersion:   "unknown",
			MainModule:  "unknown",
			MainVersion: "unknown",
		}
	}

	buildInfo := &BuildInfo{
		GoVersion:   info.GoVersion,
		MainModule:  info.Path,
		MainVersion: info.Main.Version,
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			buildInfo.Commit = setting.Value
			break
		}
	}

	if buildInfo.MainVersion == "" || buildInfo.MainVersion == "(devel)" {
		buildInfo.MainVersion = "dev"
	}

	return buildInfo
}

// String returns a single-line human readable version string suitable for
// the --version flag output.
func (b *BuildInfo) String() string {
	if b.Commit != "" {
		commit := b.Commit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		return fmt.Sprintf("%s (%s, %s)", b.MainVersion, commit, b.GoVersion)
	}
	return fmt.Sprintf("%s (%s)", b.MainVersion, b.GoVersion)
}
