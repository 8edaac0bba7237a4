package stream

import "errors"

// Import and mutation failure taxonomy. Import errors abort the import
// before anything is committed to the timeline; the stream is never left
// partially modified by a failed import.
var (
	// ErrReadFault means the source could not be read or held no header.
	ErrReadFault = errors.New("weather file unreadable")
	// ErrBadFileType means the header matched no recognized format.
	ErrBadFileType = errors.New("unrecognized weather file format")
	// ErrInvalidData means a value was outside its physical range (or a
	// missing-hour run was too long to interpolate).
	ErrInvalidData = errors.New("invalid weather data")
	// ErrInvalidTime means rows were out of order or left a gap other
	// than exactly one hour/day.
	ErrInvalidTime = errors.New("invalid observation time")
	// ErrAttemptPrepend means a row fell before the timeline start.
	ErrAttemptPrepend = errors.New("data precedes timeline start")
	// ErrAttemptOverwrite means a row would replace existing data and
	// overwriting was not enabled.
	ErrAttemptOverwrite = errors.New("data would overwrite existing readings")
	// ErrAttemptAppend means a row could not be appended, e.g. because
	// the target day holds the other representation.
	ErrAttemptAppend = errors.New("cannot append reading")
	// ErrStartAfterNoon means the first hourly row fell after local
	// solar noon of its day, or not on an exact hour.
	ErrStartAfterNoon = errors.New("hourly data must start at or before local noon")
)
