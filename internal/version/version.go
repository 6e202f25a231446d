// Package version carries the build version, overridable at link time with
// -ldflags "-X .../internal/version.version=v1.2.3".
package version

var version = "dev"

// Get returns the build version string.
func Get() string {
	return version
}
