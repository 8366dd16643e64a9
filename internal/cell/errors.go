package cell

import "errors"

var (
	// ErrInvalidIdentifier is returned for packed ids, tokens or quadkeys that
	// do not describe a cell (no valid sentinel, bad face, bad digit).
	ErrInvalidIdentifier = errors.New("invalid cell identifier")

	// ErrMaxLevelExceeded is returned when asking for children of a leaf cell.
	ErrMaxLevelExceeded = errors.New("cell level exceeds maximum")

	// ErrInvalidLevel is returned when a level is outside [0, MaxLevel] or does
	// not match the level the caller required.
	ErrInvalidLevel = errors.New("invalid cell level")
)
