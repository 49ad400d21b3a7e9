package construct

import (
	"io"

	"github.com/pkg/errors"
)

// Whence values mirror io.Seeker's, duplicated here so callers of this
// package never need to import "io" just to call Stream.Seek.
const (
	SeekStart   = io.SeekStart
	SeekCurrent = io.SeekCurrent
	SeekEnd     = io.SeekEnd
)

// Stream is the seekable byte cursor every construct reads from and writes
// to. Bitwise wraps one in a bit-granular Stream (see restream.go); every
// other construct only ever sees the byte-granular shape described here.
type Stream interface {
	// Read returns exactly n bytes or a *StreamError wrapping io.ErrUnexpectedEOF.
	Read(n int) ([]byte, error)
	// Write writes p in full or returns a *StreamError.
	Write(p []byte) error
	// Tell returns the current offset from the start of the stream.
	Tell() (int64, error)
	// Seek repositions the cursor; whence is one of Seek{Start,Current,End}.
	Seek(offset int64, whence int) (int64, error)
	// Size returns the total length of the stream if known, else an error.
	Size() (int64, error)
}

// MemStream is an in-memory, growable, seekable byte buffer. Build() writes
// into one of these; ParseBytes wraps the input bytes in one too, so both
// directions share the same cursor semantics (in particular: Pointer can
// seek backward over already-written bytes during a build and patch them).
type MemStream struct {
	buf []byte
	pos int64
}

// NewMemStream wraps existing bytes for reading, or starts an empty buffer
// for writing if b is nil.
func NewMemStream(b []byte) *MemStream {
	return &MemStream{buf: b}
}

// Bytes returns the accumulated buffer. Safe to call after Build finishes.
func (m *MemStream) Bytes() []byte { return m.buf }

func (m *MemStream) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, &StreamError{Message: "negative read size"}
	}
	avail := int64(len(m.buf)) - m.pos
	if int64(n) > avail {
		return nil, &StreamError{
			Message: errors.Wrapf(io.ErrUnexpectedEOF, "need %d bytes, %d available", n, avail).Error(),
			Cause:   io.ErrUnexpectedEOF,
		}
	}
	out := make([]byte, n)
	copy(out, m.buf[m.pos:m.pos+int64(n)])
	m.pos += int64(n)
	return out, nil
}

func (m *MemStream) Write(p []byte) error {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return nil
}

func (m *MemStream) Tell() (int64, error) { return m.pos, nil }

func (m *MemStream) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case SeekStart:
		base = 0
	case SeekCurrent:
		base = m.pos
	case SeekEnd:
		base = int64(len(m.buf))
	default:
		return 0, &StreamError{Message: "invalid whence"}
	}
	np := base + offset
	if np < 0 {
		return 0, &StreamError{Message: "seek before start of stream"}
	}
	m.pos = np
	return m.pos, nil
}

func (m *MemStream) Size() (int64, error) { return int64(len(m.buf)), nil }

// BoundedStream restricts reads/writes to a fixed-length window of an
// underlying Stream, starting at the window's current position. Prefixed
// and GreedyBytes use it to give a subconstruct its own "end of stream".
type BoundedStream struct {
	inner  Stream
	start  int64
	length int64
}

// NewBoundedStream opens a length-byte window onto inner starting at
// inner's current position.
func NewBoundedStream(inner Stream, length int64) (*BoundedStream, error) {
	start, err := inner.Tell()
	if err != nil {
		return nil, err
	}
	return &BoundedStream{inner: inner, start: start, length: length}, nil
}

func (b *BoundedStream) Read(n int) ([]byte, error) {
	pos, err := b.inner.Tell()
	if err != nil {
		return nil, err
	}
	if pos-b.start+int64(n) > b.length {
		return nil, &StreamError{Message: "read past end of bounded window", Cause: io.ErrUnexpectedEOF}
	}
	return b.inner.Read(n)
}

func (b *BoundedStream) Write(p []byte) error {
	pos, err := b.inner.Tell()
	if err != nil {
		return err
	}
	if pos-b.start+int64(len(p)) > b.length {
		return &StreamError{Message: "write past end of bounded window"}
	}
	return b.inner.Write(p)
}

func (b *BoundedStream) Tell() (int64, error) {
	pos, err := b.inner.Tell()
	if err != nil {
		return 0, err
	}
	return pos - b.start, nil
}

func (b *BoundedStream) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case SeekStart:
		base = b.start
	case SeekCurrent:
		pos, err := b.inner.Tell()
		if err != nil {
			return 0, err
		}
		base = pos
	case SeekEnd:
		base = b.start + b.length
	default:
		return 0, &StreamError{Message: "invalid whence"}
	}
	np := base + offset
	if np < b.start || np > b.start+b.length {
		return 0, &StreamError{Message: "seek outside bounded window"}
	}
	if _, err := b.inner.Seek(np, SeekStart); err != nil {
		return 0, err
	}
	return np - b.start, nil
}

func (b *BoundedStream) Size() (int64, error) { return b.length, nil }

// Remaining reports how many bytes are left in the window from the current
// position, used by GreedyBytes when wrapped in a Prefixed/Bounded window.
func (b *BoundedStream) Remaining() (int64, error) {
	pos, err := b.Tell()
	if err != nil {
		return 0, err
	}
	return b.length - pos, nil
}
