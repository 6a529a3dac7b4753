// Package version carries the build identity Glasha prints at startup.
// All three values are stamped through -ldflags at build time.
package version

var (
	// Version is the release tag, or the dev placeholder for local builds.
	Version = "v0.0.0-dev"

	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"

	// BuildTime is when the binary was built.
	BuildTime = "unknown"
)

// Info renders the version, commit, and build time as one line.
func Info() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}
