// Package filesource provides the sender's random-access read-at-offset
// primitive over the requested file, backed by afero so that production
// code reads real files while tests run against an in-memory filesystem.
package filesource

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ErrNotFound is returned by Open when the requested file does not exist.
var ErrNotFound = errors.New("filesource: file not found")

// Handle is an open file ready for random-access reads.
type Handle struct {
	file afero.File
	size uint64
}

// Source opens files against a backing afero.Fs.
type Source struct {
	fs afero.Fs
}

// New returns a Source backed by the real OS filesystem.
func New() *Source {
	return &Source{fs: afero.NewOsFs()}
}

// NewWithFs returns a Source backed by an arbitrary afero.Fs, for tests.
func NewWithFs(fs afero.Fs) *Source {
	return &Source{fs: fs}
}

// Open opens path for reading and determines its size up front.
func (s *Source) Open(path string) (*Handle, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%q", path)
		}
		return nil, errors.Wrapf(err, "opening %q", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat %q", path)
	}
	return &Handle{file: f, size: uint64(info.Size())}, nil
}

// Size returns the file's total byte length.
func (h *Handle) Size() uint64 {
	return h.size
}

// ReadAt reads up to maxLen bytes starting at offset. It returns fewer
// than maxLen bytes iff EOF was reached; a zero-length read at offset ==
// Size() is valid and not an error.
func (h *Handle) ReadAt(offset uint64, maxLen int) ([]byte, error) {
	buf := make([]byte, maxLen)
	n, err := h.file.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "read at offset %d", offset)
	}
	return buf[:n], nil
}

// Close releases the underlying file.
func (h *Handle) Close() error {
	return h.file.Close()
}
