package app

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/tejashwikalptaru/tunedeck/internal/app.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildTime string
	Modified  bool
}

// GetVersionInfo returns the linker-provided values, filling gaps from the
// VCS stamp the go command embeds in module builds.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{Version: Version, Commit: GitCommit, BuildTime: BuildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = info.withBuildSettings(bi.Settings)
	}
	return info
}

func (v VersionInfo) withBuildSettings(settings []debug.BuildSetting) VersionInfo {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if v.Commit == "" {
				v.Commit = s.Value
			}
		case "vcs.time":
			if v.BuildTime == "" {
				v.BuildTime = s.Value
			}
		case "vcs.modified":
			v.Modified = s.Value == "true"
		}
	}
	return v
}

// String returns e.g. "tunedeck 1.2.0 (commit: 1a2b3c4, built: 2026-01-02T15:04:05Z)".
func (v VersionInfo) String() string {
	commit := orUnknown(v.Commit)
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if v.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("tunedeck %s (commit: %s, built: %s)", v.Version, commit, orUnknown(v.BuildTime))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
