package filestore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/tilemat/internal/conv"
	"github.com/hupe1980/tilemat/internal/hash"
	"github.com/hupe1980/tilemat/matrix"
)

const (
	headerSize = 64
	crcOffset  = headerSize - 4
	version    = 1
)

var magic = [4]byte{'T', 'M', 'A', 'T'}

var (
	// ErrBadMagic is returned when a file does not start with the TMAT magic.
	ErrBadMagic = errors.New("filestore: not a matrix file")
	// ErrCorrupt is returned when a header checksum or the file size is wrong.
	ErrCorrupt = errors.New("filestore: corrupt file")
	// ErrUnsupportedVersion is returned for files written by a newer format.
	ErrUnsupportedVersion = errors.New("filestore: unsupported format version")
)

type header struct {
	dtype matrix.DType
	rows  int
	cols  int
}

func (h header) payloadSize() int64 {
	return int64(h.rows) * int64(h.cols) * int64(h.dtype.Size())
}

func (h header) encode() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], version)
	buf[6] = byte(h.dtype)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.rows))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.cols))
	binary.LittleEndian.PutUint32(buf[crcOffset:], hash.CRC32C(buf[:crcOffset]))
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < headerSize {
		return header{}, fmt.Errorf("%w: %d byte file", ErrCorrupt, len(buf))
	}
	if [4]byte(buf[0:4]) != magic {
		return header{}, ErrBadMagic
	}
	if got, want := binary.LittleEndian.Uint32(buf[crcOffset:headerSize]), hash.CRC32C(buf[:crcOffset]); got != want {
		return header{}, fmt.Errorf("%w: header checksum %08x, want %08x", ErrCorrupt, got, want)
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != version {
		return header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	rows, err := conv.Uint64ToInt(binary.LittleEndian.Uint64(buf[8:16]))
	if err != nil {
		return header{}, fmt.Errorf("%w: rows: %w", ErrCorrupt, err)
	}
	cols, err := conv.Uint64ToInt(binary.LittleEndian.Uint64(buf[16:24]))
	if err != nil {
		return header{}, fmt.Errorf("%w: cols: %w", ErrCorrupt, err)
	}
	h := header{dtype: matrix.DType(buf[6]), rows: rows, cols: cols}
	if !h.dtype.Valid() {
		return header{}, fmt.Errorf("%w: dtype %d", ErrCorrupt, buf[6])
	}
	if _, err := conv.MulInt64(int64(rows), int64(cols), int64(h.dtype.Size())); err != nil {
		return header{}, fmt.Errorf("%w: payload: %w", ErrCorrupt, err)
	}
	if want := headerSize + h.payloadSize(); int64(len(buf)) != want {
		return header{}, fmt.Errorf("%w: size %d, want %d", ErrCorrupt, len(buf), want)
	}
	return h, nil
}
