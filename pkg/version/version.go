// Package version holds build metadata, overridable at link time with
// -ldflags "-X locbridge/pkg/version.Version=...".
package version

// Version is the release version.
var Version = "v0.3.1"

// Commit is the source revision the binary was built from.
var Commit = "dev"

// String returns "Version (Commit)".
func String() string {
	return Version + " (" + Commit + ")"
}
