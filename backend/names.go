package backend

// Events emitted by the backend.
const (
	EventStartFile       = "start-file"
	EventFileLoaded      = "file-loaded"
	EventPlaybackRestart = "playback-restart"
	EventSeek            = "seek"
	EventEndFile         = "end-file"
	EventIdle            = "idle"
	EventShutdown        = "shutdown"
)

// EndReason explains an end-file event.
type EndReason string

const (
	EndEOF      EndReason = "eof"
	EndStop     EndReason = "stop"
	EndQuit     EndReason = "quit"
	EndError    EndReason = "error"
	EndRedirect EndReason = "redirect"
	EndUnknown  EndReason = "unknown"
)

// Fatal reports whether the reason ends the session with an error.
func (r EndReason) Fatal() bool { return r == EndError }

// Properties observed by the engine.
const (
	PropPause         = "pause"
	PropTimePos       = "time-pos"
	PropDuration      = "duration"
	PropBuffering     = "paused-for-cache"
	PropSeeking       = "seeking"
	PropCacheBuffer   = "cache-buffering-state"
	PropCacheUsed     = "demuxer-cache-duration"
	PropTrackList     = "track-list"
	PropMediaTitle    = "media-title"
	PropDroppedFrames = "frame-drop-count"
	PropDelayedFrames = "vo-delayed-frame-count"
	PropEstimatedVF   = "estimated-frame-number"
	PropAVSync        = "avsync"
	PropHwdecCurrent  = "hwdec-current"
	PropChapterList   = "chapter-list"
	PropEditionList   = "edition-list"
)

// Observed lists every property the engine subscribes to.
var Observed = []string{
	PropPause,
	PropTimePos,
	PropDuration,
	PropBuffering,
	PropSeeking,
	PropCacheBuffer,
	PropCacheUsed,
	PropTrackList,
	PropMediaTitle,
	PropDroppedFrames,
	PropDelayedFrames,
	PropEstimatedVF,
	PropAVSync,
	PropHwdecCurrent,
	PropChapterList,
	PropEditionList,
}

// Commands issued by the engine.
const (
	CmdLoadFile   = "loadfile"
	CmdStop       = "stop"
	CmdSeek       = "seek"
	CmdVideoAdd   = "video-add"
	CmdAudioAdd   = "audio-add"
	CmdSubAdd     = "sub-add"
	CmdScreenshot = "screenshot-to-file"
	CmdQuit       = "quit"
)

// TrackFlag tells audio-add and sub-add whether to activate the added track.
type TrackFlag string

const (
	TrackSelect TrackFlag = "select"
	TrackAuto   TrackFlag = "auto"
	TrackCached TrackFlag = "cached"
)
