package ncfile

import (
	"errors"
	"io"
)

// Buffer is an in-memory io.ReaderAt and io.WriterAt, so a netCDF file can
// be built or parsed without touching disk.
type Buffer struct {
	b []byte
}

// NewBuffer wraps b. The buffer takes ownership of b.
func NewBuffer(b []byte) *Buffer { return &Buffer{b: b} }

// Bytes returns the buffer contents.
func (m *Buffer) Bytes() []byte { return m.b }

// Len returns the buffer size in bytes.
func (m *Buffer) Len() int { return len(m.b) }

func (m *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("ncfile: negative offset")
	}
	if off >= int64(len(m.b)) {
		return 0, io.EOF
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("ncfile: negative offset")
	}
	end := int(off) + len(p)
	if end > len(m.b) {
		if end > cap(m.b) {
			grown := make([]byte, end, max(end, 2*cap(m.b)))
			copy(grown, m.b)
			m.b = grown
		} else {
			m.b = m.b[:end]
		}
	}
	return copy(m.b[off:], p), nil
}
