package energy

import "errors"

var (
	// ErrUnavailable indicates the reading mechanism could not produce a value
	// (tool missing, permission denied, counter unreadable). The engine treats
	// the tick's energy as zero.
	ErrUnavailable = errors.New("energy: reading unavailable")

	// ErrKeyNotPresent indicates the tool ran but produced no usable energy column.
	ErrKeyNotPresent = errors.New("energy: key not present")

	// ErrUnsupportedPlatform is returned by New when no source exists for the host OS.
	// It is fatal at startup.
	ErrUnsupportedPlatform = errors.New("energy: unsupported platform")

	// ErrUnknownKind is returned by New for an unrecognised source name.
	ErrUnknownKind = errors.New("energy: unknown source kind")
)
