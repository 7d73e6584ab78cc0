package recorder

import (
	"bytes"
	"errors"
)

var (
	// ErrSealed is returned when appending to a sealed Buffer.
	ErrSealed = errors.New("recorder: buffer is sealed")

	// ErrNotSealed is returned when reading the payload of an open Buffer.
	ErrNotSealed = errors.New("recorder: buffer is not sealed")
)

// Buffer is the ordered, append-only sequence of raw PCM chunks captured in
// one session. Once sealed it accepts no further writes and its payload can be
// read. A Buffer is owned by a single goroutine.
type Buffer struct {
	chunks [][]byte
	size   int
	sealed bool
}

// Append adds chunk to the end of the buffer. The buffer keeps chunk; the
// caller must not modify it afterwards.
func (b *Buffer) Append(chunk []byte) error {
	if b.sealed {
		return ErrSealed
	}
	b.chunks = append(b.chunks, chunk)
	b.size += len(chunk)
	return nil
}

// Seal forbids further appends. Sealing twice is a no-op.
func (b *Buffer) Seal() { b.sealed = true }

// Sealed reports whether Seal has been called.
func (b *Buffer) Sealed() bool { return b.sealed }

// Chunks returns the number of chunks appended.
func (b *Buffer) Chunks() int { return len(b.chunks) }

// Size returns the total payload size in bytes.
func (b *Buffer) Size() int { return b.size }

// Bytes returns the concatenation of all chunks. It fails with ErrNotSealed
// while the buffer is still open.
func (b *Buffer) Bytes() ([]byte, error) {
	if !b.sealed {
		return nil, ErrNotSealed
	}
	return bytes.Join(b.chunks, nil), nil
}

// discard drops all captured audio. Used when capture fails.
func (b *Buffer) discard() {
	b.chunks = nil
	b.size = 0
	b.sealed = true
}
