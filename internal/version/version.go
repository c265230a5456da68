// Package version reports how the shtml binary was built. Values come from
// -ldflags when set, otherwise from the module build info.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	devVersion = "dev"
	unknown    = "unknown"
)

// Set with -ldflags "-X github.com/conneroisu/shtml/internal/version.Version=...".
var (
	Version   = devVersion
	GitCommit = unknown
	// BuildTime is RFC3339.
	BuildTime = unknown
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time,omitzero"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty"`
	Release   bool      `json:"release"`
}

// readSetting is swapped in tests.
var readSetting = func(key string) (string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	if key == "main.version" {
		return info.Main.Version, true
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value, true
		}
	}
	return "", false
}

// GetBuildInfo collects everything known about the binary.
func GetBuildInfo() BuildInfo {
	v := GetVersion()
	return BuildInfo{
		Version:   v,
		GitCommit: GetGitCommit(),
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     IsDirty(),
		Release:   isRelease(v),
	}
}

// GetVersion prefers the linked version, then the module version, then a
// dev-<commit> pseudo version.
func GetVersion() string {
	if Version != "" && Version != devVersion {
		return Version
	}
	if v, ok := readSetting("main.version"); ok && v != "" && v != "(devel)" {
		return v
	}
	if rev, ok := readSetting("vcs.revision"); ok && len(rev) >= 7 {
		return devVersion + "-" + rev[:7]
	}
	return devVersion
}

// GetGitCommit returns the full commit hash or "unknown".
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != unknown {
		return GitCommit
	}
	if rev, ok := readSetting("vcs.revision"); ok && rev != "" {
		return rev
	}
	return unknown
}

// GetShortVersion is the one-line form shown in the health report.
func GetShortVersion() string {
	v := GetVersion()
	commit := GetGitCommit()
	if commit == unknown || len(commit) < 7 || strings.HasPrefix(v, devVersion+"-") {
		return v
	}
	if v == devVersion {
		return devVersion + "-" + commit[:7]
	}
	return fmt.Sprintf("%s (%s)", v, commit[:7])
}

// GetDetailedVersion lists every known field, one per line.
func GetDetailedVersion() string {
	info := GetBuildInfo()

	lines := []string{"Version: " + info.Version}
	if info.GitCommit != unknown {
		lines = append(lines, "Commit: "+info.GitCommit)
	}
	if !info.BuildTime.IsZero() {
		lines = append(lines, "Built: "+info.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+info.GoVersion, "Platform: "+info.Platform)
	return strings.Join(lines, "\n")
}

// IsRelease reports whether the binary carries a real version.
func IsRelease() bool {
	return isRelease(GetVersion())
}

func isRelease(v string) bool {
	return v != devVersion && !strings.HasPrefix(v, devVersion+"-")
}

// IsDirty reports uncommitted changes at build time.
func IsDirty() bool {
	v, ok := readSetting("vcs.modified")
	return ok && v == "true"
}

func parseBuildTime(s string) time.Time {
	if s == "" || s == unknown {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
