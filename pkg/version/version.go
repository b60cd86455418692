// Package version holds the build metadata of the specmatch binary. Release
// builds stamp it with
//
//	-ldflags "-X github.com/compozy/specmatch/pkg/version.Version=v0.4.0 -X github.com/compozy/specmatch/pkg/version.Commit=3f2a9c1"
//
// and `go install` builds fall back to the module and VCS data embedded by
// the Go toolchain.
package version

import (
	"runtime/debug"
	"sync"
)

var (
	Version = ""
	Commit  = ""
)

const unknown = "unknown"

// Info is the resolved build metadata.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

var resolved = sync.OnceValue(func() Info {
	info, _ := debug.ReadBuildInfo()
	return resolve(Version, Commit, info)
})

func resolve(version, commit string, build *debug.BuildInfo) Info {
	if build != nil {
		if version == "" && build.Main.Version != "" && build.Main.Version != "(devel)" {
			version = build.Main.Version
		}
		for _, s := range build.Settings {
			if commit == "" && s.Key == "vcs.revision" {
				commit = s.Value
			}
		}
	}
	if version == "" {
		version = unknown
	}
	if commit == "" {
		commit = unknown
	}
	return Info{Version: version, Commit: commit}
}

// Get returns the build metadata, resolved once per process.
func Get() Info {
	return resolved()
}

// GetVersion returns just the version.
func GetVersion() string {
	return Get().Version
}

// String is the form printed by `specmatch --version` and the server banner.
func (i Info) String() string {
	if i.Commit == unknown {
		return i.Version
	}
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return i.Version + " (" + commit + ")"
}
