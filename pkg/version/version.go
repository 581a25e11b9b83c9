// Package version holds the build version of the host.
package version

// Set using -ldflags "-X go.minekube.com/intercept/pkg/version.version=v1.2.3"
var version = "dev"

// String returns the build version.
func String() string {
	return version
}

// Brand returns the server brand sent to clients, e.g. "intercept/v1.2.3".
func Brand() string {
	return "intercept/" + String()
}
