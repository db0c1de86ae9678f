// Package version reports the build version of the smartlock binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/smartlock/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/smartlock/internal/version.Commit=abc123"
//
// Unset values are filled from the VCS stamp in the build info.
var (
	Version = ""
	Commit  = ""
)

// Info describes one build.
type Info struct {
	Version   string
	Commit    string
	GoVersion string
	Dirty     bool
}

var (
	once   sync.Once
	cached Info
)

// Get returns the build information, resolved once.
func Get() Info {
	once.Do(func() {
		bi, _ := debug.ReadBuildInfo()
		cached = resolve(Version, Commit, bi, time.Now())
	})
	return cached
}

// resolve fills the gaps left by ldflags from build info and falls back to
// a dev version stamped with now.
func resolve(version, commit string, bi *debug.BuildInfo, now time.Time) Info {
	info := Info{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
	}

	var revision, vcsTime string
	if bi != nil {
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			case "vcs.time":
				vcsTime = s.Value
			}
		}
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}

	if info.Commit == "" && revision != "" {
		if len(revision) > 7 {
			revision = revision[:7]
		}
		info.Commit = revision
		if info.Dirty {
			info.Commit += "-dirty"
		}
	}

	if info.Version == "" {
		stamp := now
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			stamp = t
		}
		info.Version = "dev-" + stamp.Format("20060102")
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}

// Short returns the version alone.
func Short() string {
	return Get().Version
}

// Full returns the full version string including commit
func Full() string {
	i := Get()
	return fmt.Sprintf("%s (commit: %s, %s)", i.Version, i.Commit, i.GoVersion)
}
