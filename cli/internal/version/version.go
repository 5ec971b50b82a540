// Package version reports what inilite binary is running. Values set with
// -ldflags "-X" win; anything left empty is read from the build info the Go
// toolchain embeds (module version, vcs.revision, vcs.time, vcs.modified).
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// fallbackVersion names a build with neither ldflags nor a module version,
// such as `go run` from a checkout.
const fallbackVersion = "0.1.0-dev"

var (
	// Version is the release version, set at link time.
	Version = ""
	// BuildDate is the build or commit time, set at link time.
	BuildDate = ""
	// GitCommit is the commit hash, set at link time.
	GitCommit = ""
)

// Info holds version information
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	Modified  bool
	GoVersion string
	Platform  string
}

// Get returns version information
func Get() Info {
	i := Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		i = fill(i, bi)
	}
	return finish(i)
}

// fill copies whatever the link-time values left empty from bi.
func fill(i Info, bi *debug.BuildInfo) Info {
	if i.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		i.Version = bi.Main.Version
	}
	if bi.GoVersion != "" {
		i.GoVersion = bi.GoVersion
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == "" {
				i.GitCommit = s.Value
			}
		case "vcs.time":
			if i.BuildDate == "" {
				i.BuildDate = s.Value
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
	return i
}

func finish(i Info) Info {
	if i.Version == "" {
		i.Version = fallbackVersion
	}
	if i.BuildDate == "" {
		i.BuildDate = "unknown"
	}
	if i.GitCommit == "" {
		i.GitCommit = "unknown"
	}
	return i
}

// String returns a one-line version string
func (i Info) String() string {
	return fmt.Sprintf("inilite %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString returns a detailed version string
func (i Info) FullString() string {
	commit := i.GitCommit
	if i.Modified {
		commit += " (modified)"
	}
	return fmt.Sprintf(`inilite %s
  Build Date: %s
  Git Commit: %s
  Platform:   %s
  Go Version: %s`, i.Version, i.BuildDate, commit, i.Platform, i.GoVersion)
}
