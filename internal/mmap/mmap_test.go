package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mmap_test")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestMmap_OpenReadClose(t *testing.T) {
	content := []byte("Hello, Mmap!")
	m, err := Open(writeFile(t, content))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())
	assert.False(t, m.Writable())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Mmap!", string(buf))

	n, err = m.ReadAt(make([]byte, 10), 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	buf3 := make([]byte, 10)
	n, err = m.ReadAt(buf3, 7)
	assert.Equal(t, 5, n)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "Mmap!", string(buf3[:n]))

	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)

	_, err = m.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestMmap_ReadWrite(t *testing.T) {
	path := writeFile(t, make([]byte, 16))

	m, err := OpenMode(path, ReadWrite)
	require.NoError(t, err)
	assert.True(t, m.Writable())

	n, err := m.WriteAt([]byte("tile"), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	m.Bytes()[0] = 'x'

	_, err = m.WriteAt([]byte("overflow"), 12)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\x00\x00\x00tile", string(got[:8]))
}

func TestMmap_EmptyFile(t *testing.T) {
	m, err := Open(writeFile(t, nil))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.NoError(t, m.Advise(AccessSequential))
}

func TestMmap_CloseIdempotent(t *testing.T) {
	m, err := Open(writeFile(t, []byte("abc")))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())

	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Sync(), ErrClosed)
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	_, err = m.Region(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMmap_Region(t *testing.T) {
	m, err := Open(writeFile(t, []byte("headerpayload")))
	require.NoError(t, err)
	defer m.Close()

	r, err := m.Region(6, 7)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(r.Bytes()))
	assert.Equal(t, 7, r.Size())
	assert.NoError(t, r.Advise(AccessRandom))

	_, err = m.Region(6, 8)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Region(-1, 2)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}
