package protocol

// StatusSuccess is the error-field value mpv uses for successful responses.
const StatusSuccess = "success"

// IPC commands used by this module. The client passes any other command name
// through unvalidated.
const (
	CommandGetProperty     = "get_property"
	CommandSetProperty     = "set_property"
	CommandObserveProperty = "observe_property"
	CommandLoadFile        = "loadfile"
	CommandSeek            = "seek"
	CommandStop            = "stop"
	CommandPlaylistNext    = "playlist-next"
	CommandPlaylistPrev    = "playlist-prev"
	CommandPlaylistClear   = "playlist-clear"
)

// loadfile insertion flags.
const (
	LoadFileReplace    = "replace"
	LoadFileAppend     = "append"
	LoadFileInsertNext = "insert-next"
	LoadFileInsertAt   = "insert-at"
)

// seek reference modes.
const (
	SeekAbsolute = "absolute"
	SeekRelative = "relative"
)

// Properties watched or queried by the player layer.
// See https://mpv.io/manual/stable/#properties
const (
	PropertyPause        = "pause"
	PropertyIdleActive   = "idle-active"
	PropertyBuffering    = "paused-for-cache"
	PropertyMute         = "mute"
	PropertyVolume       = "volume"
	PropertyDuration     = "duration"
	PropertyTimePos      = "time-pos"
	PropertyMediaTitle   = "media-title"
	PropertyLoopFile     = "loop-file"
	PropertyLoopPlaylist = "loop-playlist"
)

const (
	// EventPropertyChange is emitted by mpv for observed properties.
	EventPropertyChange = "property-change"

	// EventDisconnected is synthesized by the connection when the stream
	// breaks. mpv itself never sends it.
	EventDisconnected = "disconnected"
)
