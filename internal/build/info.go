// Package build exposes version information injected at link time.
package build

import "fmt"

// These variables are set at build time via -ldflags, e.g.
//
//	-X github.com/shaharia-lab/mailadapter/internal/build.Version=v1.2.0
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// Info is the build information in structured form.
type Info struct {
	Version   string `json:"version"`
	CommitSHA string `json:"commit_sha"`
	BuildDate string `json:"build_date"`
}

// Current returns the build information of the running binary.
func Current() Info {
	return Info{Version: Version, CommitSHA: CommitSHA, BuildDate: BuildDate}
}

// IsRelease reports whether the binary was built from a tagged release.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && i.Version != "unknown" && i.Version != ""
}

// String returns a single human-readable build info string.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.CommitSHA, i.BuildDate)
}

// String returns the current build info string.
func String() string {
	return Current().String()
}
