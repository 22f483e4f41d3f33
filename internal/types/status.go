package types

// Status is a type for the lifecycle status of a stored resource.
// It determines whether a record is visible to reads.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

type RunMode string

const (
	// ModeLocal runs the reconciler CLI against local config
	ModeLocal RunMode = "local"
	// ModeAPI is reserved for callers embedding this core behind a server
	ModeAPI RunMode = "api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
