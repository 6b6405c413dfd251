// Package version carries the lachu build stamp. The linker fills the
// variables in, e.g.
//
//	go build -ldflags "-X github.com/sajadtroy/lachu/common/version.Version=v1.2.0"
//
// A plain `go build` leaves the development defaults.
package version

import "fmt"

// Build stamp, overridden with -ldflags -X.
var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info is printed by `lachu --version`.
func Info() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}

// UserAgent identifies the bot to the completion API, e.g. "lachu/v1.2.0".
func UserAgent() string {
	return "lachu/" + Version
}
