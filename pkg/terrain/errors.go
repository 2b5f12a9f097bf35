package terrain

import "errors"

// Error kinds returned by the terrain package. Callers should use
// errors.Is against these sentinels rather than comparing strings.
var (
	// ErrOutOfRange is returned when a numeric field falls outside its
	// documented domain (biome ID, base height, material ID, palette
	// index, chunk coordinate).
	ErrOutOfRange = errors.New("terrain: value out of range")

	// ErrMalformedInput is returned for buffer length mismatches, a
	// palette built from the wrong number of bytes, or a truncated file
	// region.
	ErrMalformedInput = errors.New("terrain: malformed input")

	// ErrIO is returned when an underlying file operation fails.
	ErrIO = errors.New("terrain: io failure")

	// ErrExists is returned by Create when the target file already
	// exists.
	ErrExists = errors.New("terrain: file already exists")

	// ErrMissing is returned by Open when the target file does not
	// exist, or by RemoveHandler when the handle ID is unknown.
	ErrMissing = errors.New("terrain: not found")
)
