// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Playback Backend - these keys locate and parameterize the external media engine.
const (
	PlayerPath    = "player.path"
	PlayerArgs    = "player.args"
	PlayerHwdec   = "player.hwdec"
	PlayerTimeout = "player.socket_timeout"
)

// Audio Defaults - initial values of the session configuration on every load.
const (
	AudioVolume    = "audio.volume"
	AudioAmplifier = "audio.amplifier"
	AudioPriority  = "audio.priority"
)

// Subtitle Defaults - these keys govern external subtitle decoding and language preference.
const (
	SubtitlePriority           = "subtitle.priority"
	SubtitleEncoding           = "subtitle.encoding"
	SubtitleEncodingAutodetect = "subtitle.encoding_autodetect"
)

// Autoload - sibling file discovery per stream type.
const (
	AutoloadSubtitleEnable = "autoload.subtitle.enable"
	AutoloadSubtitleMode   = "autoload.subtitle.mode"
	AutoloadSubtitleSelect = "autoload.subtitle.select"
	AutoloadAudioEnable    = "autoload.audio.enable"
	AutoloadAudioMode      = "autoload.audio.mode"
	AutoloadAudioSelect    = "autoload.audio.select"
)

// History Tracking - these keys configure persistence of per-locator selections and positions.
const (
	HistoryRememberTracks = "history.remember_tracks"
	HistoryResume         = "history.resume"
)

// Telemetry - frame rate estimation window.
const (
	TelemetrySpeedWindow     = "telemetry.speed_window"
	TelemetrySpeedMinSamples = "telemetry.speed_min_samples"
)

// Resolvers - turning page or stream references into playable locators.
const (
	ResolverYtDlpPath = "resolver.ytdlp_path"
	ResolverLua       = "resolver.lua"
	ResolverCacheTTL  = "resolver.cache_ttl"
	ResolverProbe     = "resolver.probe"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
