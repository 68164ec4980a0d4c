// Package compress implements the self-describing block filters used for
// matrix chunks.
//
// Frame format: [Filter uint8][RawSize uint32][StoredSize uint32][Data...].
// StoredSize == 0 marks a block kept raw because the filter did not help.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Filter identifies the compression algorithm of a block.
type Filter uint8

const (
	// None stores blocks raw.
	None Filter = 0
	// LZ4 uses LZ4 block compression (fast, good for hot data).
	LZ4 Filter = 1
	// Zstd uses Zstandard (better ratio).
	Zstd Filter = 2
)

// ZstdLevel is the Zstandard level used by Zstd; it matches a moderate
// "complevel 5" setting.
const ZstdLevel = 5

const headerSize = 9

var (
	// ErrCorrupt is returned for frames that cannot be decoded.
	ErrCorrupt = errors.New("compress: corrupt block")
	// ErrUnknownFilter is returned for filter ids or names that are not known.
	ErrUnknownFilter = errors.New("compress: unknown filter")
)

func (f Filter) String() string {
	switch f {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("filter(%d)", uint8(f))
	}
}

// ParseFilter parses a filter name as returned by String.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(ZstdLevel)))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Encode frames data with filter f. Blocks that do not shrink below 90% of
// their raw size are stored raw.
func Encode(data []byte, f Filter) ([]byte, error) {
	var (
		packed []byte
		err    error
	)
	switch f {
	case None:
	case LZ4:
		packed, err = compressLZ4(data)
	case Zstd:
		packed, err = compressZstd(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFilter, uint8(f))
	}
	if err != nil {
		return nil, err
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		return frame(f, data, 0), nil
	}
	return frame(f, packed, len(data)), nil
}

func frame(f Filter, payload []byte, rawSize int) []byte {
	stored := len(payload)
	if rawSize == 0 {
		rawSize, stored = len(payload), 0
	}
	out := make([]byte, headerSize+len(payload))
	out[0] = byte(f)
	binary.LittleEndian.PutUint32(out[1:], uint32(rawSize))
	binary.LittleEndian.PutUint32(out[5:], uint32(stored))
	copy(out[headerSize:], payload)
	return out
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

func compressZstd(data []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

// Decode returns the raw bytes of a frame produced by Encode.
// Raw frames alias the input.
func Decode(block []byte) ([]byte, error) {
	if len(block) < headerSize {
		return nil, ErrCorrupt
	}
	f := Filter(block[0])
	rawSize := int(binary.LittleEndian.Uint32(block[1:]))
	stored := int(binary.LittleEndian.Uint32(block[5:]))
	body := block[headerSize:]

	if stored == 0 {
		if len(body) < rawSize {
			return nil, ErrCorrupt
		}
		return body[:rawSize], nil
	}
	if len(body) < stored {
		return nil, ErrCorrupt
	}
	body = body[:stored]

	switch f {
	case LZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if n != rawSize {
			return nil, ErrCorrupt
		}
		return out, nil
	case Zstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if len(out) != rawSize {
			return nil, ErrCorrupt
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFilter, uint8(f))
	}
}
