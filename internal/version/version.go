// Package version carries build identification, injected at link time:
//
//	-ldflags "-X github.com/jwbonner/advantagescope/internal/version.Version=v1.2.3"
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// GitSHA is the source commit.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
