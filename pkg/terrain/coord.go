package terrain

import (
	"fmt"
	"math"
)

// chunkWorldSize is the world-space extent of a single chunk along each
// axis, used by WorldToChunk.
const chunkWorldSize = 4.0

// Vec2 is a floating-point world position, as handed to WorldToChunk and
// StreamingHandle.
type Vec2 struct {
	X, Z float64
}

// Coord2 is an unsigned 2D chunk coordinate.
type Coord2 struct {
	X, Z uint32
}

// String renders the coordinate as "(x,z)", used as a singleflight and
// cache-debug key.
func (c Coord2) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Add returns the componentwise sum of a and b.
func (a Coord2) Add(b Coord2) Coord2 {
	return Coord2{X: a.X + b.X, Z: a.Z + b.Z}
}

// Sub returns the componentwise absolute difference between a and b. This
// is deliberately not a true group subtraction — it keeps values unsigned
// so callers can treat the result as a span or size.
func (a Coord2) Sub(b Coord2) Coord2 {
	return Coord2{X: absDiffU32(a.X, b.X), Z: absDiffU32(a.Z, b.Z)}
}

// Mul returns the componentwise product of a and b.
func (a Coord2) Mul(b Coord2) Coord2 {
	return Coord2{X: a.X * b.X, Z: a.Z * b.Z}
}

// DivScalar returns the componentwise integer quotient of a by s.
func (a Coord2) DivScalar(s uint32) Coord2 {
	return Coord2{X: a.X / s, Z: a.Z / s}
}

// Less is a partial order: it reports true only when both components of a
// are strictly less than the corresponding components of b.
func (a Coord2) Less(b Coord2) bool {
	return a.X < b.X && a.Z < b.Z
}

// Equal reports whether a and b have identical components.
func (a Coord2) Equal(b Coord2) bool {
	return a.X == b.X && a.Z == b.Z
}

// Area returns v.X * v.Z, used to size a rectangular chunk region.
func Area(v Coord2) uint32 {
	return v.X * v.Z
}

// WorldToChunk maps a world-space position to the chunk coordinate that
// contains it, flooring toward negative infinity.
func WorldToChunk(p Vec2) Coord2 {
	cx := math.Floor(p.X / chunkWorldSize)
	cz := math.Floor(p.Z / chunkWorldSize)
	return Coord2{X: uint32(int64(cx)), Z: uint32(int64(cz))}
}

func absDiffU32(a, b uint32) uint32 {
	if a >= b {
		return a - b
	}
	return b - a
}
