// Package version carries build metadata set with -ldflags -X.
package version

import "fmt"

// Set at link time, e.g.
//
//	go build -ldflags "-X github.com/takumi-yamaga/simple-acceptance-study/internal/version.Version=v0.3.0"
var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String describes the build for version output and stored runs.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}
