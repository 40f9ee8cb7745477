package filesource

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T, contents string) *Source {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "file.txt", []byte(contents), 0o644))
	return NewWithFs(fs)
}

func TestOpenMissingFileReturnsErrNotFound(t *testing.T) {
	s := newFixture(t, "irrelevant")
	_, err := s.Open("does-not-exist.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSizeMatchesContentLength(t *testing.T) {
	s := newFixture(t, "0123456789")
	h, err := s.Open("file.txt")
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, uint64(10), h.Size())
}

func TestReadAtShortReadOnEOF(t *testing.T) {
	s := newFixture(t, "0123456789")
	h, err := s.Open("file.txt")
	require.NoError(t, err)
	defer h.Close()

	buf, err := h.ReadAt(5, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("56789"), buf)
}

func TestReadAtZeroLengthAtEOFIsValid(t *testing.T) {
	s := newFixture(t, "0123456789")
	h, err := s.Open("file.txt")
	require.NoError(t, err)
	defer h.Close()

	buf, err := h.ReadAt(10, 100)
	require.NoError(t, err)
	assert.Empty(t, buf)
}

func TestReadAtFullBuffer(t *testing.T) {
	s := newFixture(t, "0123456789")
	h, err := s.Open("file.txt")
	require.NoError(t, err)
	defer h.Close()

	buf, err := h.ReadAt(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123"), buf)
}
