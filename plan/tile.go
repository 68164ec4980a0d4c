package plan

import (
	"math"
	"math/bits"
)

const (
	// DefaultBufferBytes is the default I/O buffer budget (1 MiB).
	DefaultBufferBytes = 1 << 20

	// DefaultScaleFactor multiplies the power-of-two edge; it reproduces the
	// empirical "2 * 2**n * 10" constant of the original out-of-core dot.
	DefaultScaleFactor = 20
)

// TileEdge derives the square tile edge from a buffer budget.
//
// The result is deterministic and always >= 1. Non-positive elemSize is
// treated as 1 and non-positive scale as DefaultScaleFactor.
func TileEdge(bufferBytes int64, elemSize, scale int) int {
	if elemSize <= 0 {
		elemSize = 1
	}
	if scale <= 0 {
		scale = DefaultScaleFactor
	}
	if bufferBytes <= 0 {
		return 1
	}

	raw := uint64(math.Sqrt(float64(bufferBytes / int64(elemSize))))
	if raw == 0 {
		return 1
	}
	pow2 := uint64(1) << (bits.Len64(raw) - 1)

	edge := pow2 * uint64(scale)
	if edge > math.MaxInt32 {
		edge = math.MaxInt32
	}
	return max(int(edge), 1)
}

// WorkingSetBytes is the memory held while one tile step runs: two operand
// tiles plus one accumulation buffer of edge x edge elements.
func WorkingSetBytes(edge, elemSize int) int64 {
	e := int64(edge)
	return 3 * e * e * int64(elemSize)
}
