// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths and CLI branding.
	App = "playengine"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// Repository is the project home, used in update notices.
	Repository = "https://github.com/playengine/playengine"

	// ReleasesAPI reports the latest published release.
	ReleasesAPI = "https://api.github.com/repos/playengine/playengine/releases/latest"

	// UserAgent is the default HTTP User-Agent string used when probing and resolving remote media.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Build metadata, overridden at link time via -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
