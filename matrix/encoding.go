package matrix

import (
	"encoding/binary"
	"math"
)

// Cast converts v to the value that survives a round trip through dtype:
// float32 rounding, integer rounding and two's-complement wrap-around.
func Cast(v float64, dtype DType) float64 {
	switch dtype {
	case Float64:
		return v
	case Float32:
		return float64(float32(v))
	case Int8:
		return float64(int8(toInt(v)))
	case Int16:
		return float64(int16(toInt(v)))
	case Int32:
		return float64(int32(toInt(v)))
	case Int64:
		return float64(toInt(v))
	case Uint8:
		return float64(uint8(toUint(v)))
	case Uint16:
		return float64(uint16(toUint(v)))
	case Uint32:
		return float64(uint32(toUint(v)))
	case Uint64:
		return float64(toUint(v))
	default:
		return 0
	}
}

func toInt(v float64) int64 { return int64(math.Round(v)) }

func toUint(v float64) uint64 {
	v = math.Round(v)
	if v < 0 {
		return uint64(int64(v))
	}
	return uint64(v)
}

// Decode converts len(dst) little-endian elements of type dtype from src
// into dst. src must hold at least len(dst)*dtype.Size() bytes.
func Decode(dst []float64, src []byte, dtype DType) {
	size := dtype.Size()
	for i := range dst {
		dst[i] = decodeOne(src[i*size:], dtype)
	}
}

// Encode writes src as little-endian elements of type dtype into dst.
// dst must hold at least len(src)*dtype.Size() bytes.
func Encode(dst []byte, src []float64, dtype DType) {
	size := dtype.Size()
	for i, v := range src {
		encodeOne(dst[i*size:], v, dtype)
	}
}

// AddEncoded adds add element-wise into the encoded elements held in dst.
func AddEncoded(dst []byte, add []float64, dtype DType) {
	size := dtype.Size()
	for i, v := range add {
		p := dst[i*size:]
		encodeOne(p, decodeOne(p, dtype)+v, dtype)
	}
}

func decodeOne(p []byte, dtype DType) float64 {
	switch dtype {
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(p))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	case Int8:
		return float64(int8(p[0]))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(p)))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(p)))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(p)))
	case Uint8:
		return float64(p[0])
	case Uint16:
		return float64(binary.LittleEndian.Uint16(p))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(p))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(p))
	default:
		return 0
	}
}

func encodeOne(p []byte, v float64, dtype DType) {
	switch dtype {
	case Float64:
		binary.LittleEndian.PutUint64(p, math.Float64bits(v))
	case Float32:
		binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
	case Int8:
		p[0] = byte(int8(toInt(v)))
	case Int16:
		binary.LittleEndian.PutUint16(p, uint16(int16(toInt(v))))
	case Int32:
		binary.LittleEndian.PutUint32(p, uint32(int32(toInt(v))))
	case Int64:
		binary.LittleEndian.PutUint64(p, uint64(toInt(v)))
	case Uint8:
		p[0] = uint8(toUint(v))
	case Uint16:
		binary.LittleEndian.PutUint16(p, uint16(toUint(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(p, uint32(toUint(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(p, toUint(v))
	}
}
