// Package version provides information about the build version of the service.
package version

// BuildInfo holds version information about the service build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information. The version, commit, and date variables
// are set at build time using -ldflags.
func Info() BuildInfo {
	// -ldflags "-X 'github.com/ditsyandrea22/celo-identity/internal/core/version.version=v0.1.0'
	// -X 'github.com/ditsyandrea22/celo-identity/internal/core/version.commit=abcd'"
	return BuildInfo{
		Service: Service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// Service names the binary family reported by Info
var Service = "celoid"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
