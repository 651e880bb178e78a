// Package buffer implements the bounded byte region used throughout the
// ingest core. A Buffer tracks head and tail cursors over a backing
// region; pulls past the tail latch a sticky overflow flag and return
// zero bytes rather than failing. Regions can be carved into non-owning
// sub-buffers that alias the parent's storage without copying.
package buffer

import "io"

// Buffer is a byte region with read (head) and write (tail) cursors.
// Invariant: 0 <= head <= tail <= len(data). The zero value is an
// invalid, empty buffer.
type Buffer struct {
	mem      Memory
	data     []byte
	head     int
	tail     int
	overflow bool
	owned    bool
}

// New allocates a buffer of size bytes from mem. If the allocator fails,
// the returned buffer reports IsValid() == false.
func New(size int, mem Memory) *Buffer {
	b := &Buffer{mem: mem, owned: true}
	if size > 0 {
		b.data = mem.allocate(size)
	} else {
		b.data = []byte{}
	}
	return b
}

// Wrap borrows p as a fully written buffer: head at the start, tail at
// the end. The buffer does not own p.
func Wrap(p []byte) *Buffer {
	return &Buffer{data: p, tail: len(p)}
}

// IsValid reports whether the buffer has backing storage. A failed
// allocation in New yields an invalid buffer.
func (b *Buffer) IsValid() bool { return b != nil && b.data != nil }

// Empty reports whether all written bytes have been consumed.
func (b *Buffer) Empty() bool { return b.head == b.tail }

// Overflow reports whether any pull has run past the tail. The flag is
// sticky until Reset.
func (b *Buffer) Overflow() bool { return b.overflow }

// Size returns the number of unread bytes (tail - head).
func (b *Buffer) Size() int { return b.tail - b.head }

// Available returns the writable space remaining (limit - tail).
func (b *Buffer) Available() int { return len(b.data) - b.tail }

// Capacity returns the total region size (limit - base).
func (b *Buffer) Capacity() int { return len(b.data) }

// HeadOffset returns the head cursor as an offset from the region base.
func (b *Buffer) HeadOffset() int { return b.head }

// TailOffset returns the tail cursor as an offset from the region base.
func (b *Buffer) TailOffset() int { return b.tail }

// HeadBytes returns the unread region [head, tail). The slice aliases
// the buffer's storage.
func (b *Buffer) HeadBytes() []byte { return b.data[b.head:b.tail] }

// Bytes returns the written region [base, tail). The slice aliases the
// buffer's storage; offsets from the framing cursors index into it.
func (b *Buffer) Bytes() []byte { return b.data[:b.tail] }

// Reset rewinds both cursors to the base and clears the overflow latch.
func (b *Buffer) Reset() {
	b.head = 0
	b.tail = 0
	b.overflow = false
}

// Release returns owned storage to the allocator and invalidates the
// buffer. Borrowed buffers only drop their reference.
func (b *Buffer) Release() {
	if b.owned && b.data != nil {
		b.mem.release(b.data)
	}
	b.data = nil
	b.head = 0
	b.tail = 0
}

// Push appends p at the tail, clipping to the available write space.
// It returns the number of bytes actually written.
func (b *Buffer) Push(p []byte) int {
	n := len(p)
	if avail := b.Available(); n > avail {
		n = avail
	}
	copy(b.data[b.tail:], p[:n])
	b.tail += n
	return n
}

// PushFromReader appends up to n bytes read from r at the tail, clipping
// to the available write space. A read error other than EOF is returned
// with the count read so far.
func (b *Buffer) PushFromReader(r io.Reader, n int) (int, error) {
	if avail := b.Available(); n > avail {
		n = avail
	}
	read, err := io.ReadFull(r, b.data[b.tail:b.tail+n])
	b.tail += read
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return read, nil
	}
	return read, err
}

// PullByte consumes one byte at the head. Pulling from an empty buffer
// latches overflow; an overflowed buffer always returns zero.
func (b *Buffer) PullByte() byte {
	if b.head == b.tail {
		b.overflow = true
	}
	if b.overflow {
		return 0
	}
	c := b.data[b.head]
	b.head++
	return c
}

// PullUint16 consumes a big-endian 16-bit value.
func (b *Buffer) PullUint16() uint16 {
	v := uint16(b.PullByte()) << 8
	return v | uint16(b.PullByte())
}

// PullUint32 consumes a big-endian 32-bit value.
func (b *Buffer) PullUint32() uint32 {
	v := uint32(b.PullUint16()) << 16
	return v | uint32(b.PullUint16())
}

// Skip advances the head by n bytes, clipping at the tail and latching
// overflow if the skip runs past it.
func (b *Buffer) Skip(n int) {
	b.head += n
	if b.head > b.tail {
		b.overflow = true
		b.head = b.tail
	}
}

// PullFrom moves up to n bytes from src's head to b's tail, clipping to
// both src.Size() and b.Available(). It returns the count moved.
func (b *Buffer) PullFrom(src *Buffer, n int) int {
	if n > src.Size() {
		n = src.Size()
	}
	if avail := b.Available(); n > avail {
		n = avail
	}
	if n > 0 {
		copy(b.data[b.tail:], src.data[src.head:src.head+n])
		b.tail += n
		src.head += n
	}
	return n
}

// Obtain reserves n bytes at the tail and returns them for direct
// writing, or nil if the reservation would exceed the limit.
func (b *Buffer) Obtain(n int) []byte {
	if b.tail+n > len(b.data) {
		return nil
	}
	p := b.data[b.tail : b.tail+n]
	b.tail += n
	return p
}

// SubBuffer carves a non-owning buffer over [tail+offset, tail+offset+size),
// clipped to this buffer's limit. The sub-buffer aliases this buffer's
// storage and starts empty.
func (b *Buffer) SubBuffer(offset, size int) *Buffer {
	start := b.tail + offset
	if start > len(b.data) {
		return &Buffer{data: b.data[len(b.data):]}
	}
	end := start + size
	if end > len(b.data) {
		end = len(b.data)
	}
	return &Buffer{data: b.data[start:end:end]}
}

// SubBufferFromUsed returns a non-owning view of the unread region
// [head, tail), fully written.
func (b *Buffer) SubBufferFromUsed() *Buffer {
	return Wrap(b.data[b.head:b.tail:b.tail])
}
