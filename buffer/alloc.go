package buffer

// AllocFunc allocates size bytes for the given region. Returning nil
// signals allocation failure; the requesting Buffer becomes invalid.
type AllocFunc func(region, size int) []byte

// FreeFunc returns a region's bytes to the host allocator.
type FreeFunc func(region int, b []byte)

// Memory is an allocation handle threaded through every constructor that
// owns storage. The zero value uses the Go heap. Region is an opaque tag
// routed to the host's AllocFunc so pools can be segregated per concern
// (segment input vs. elementary-stream payload, for example).
type Memory struct {
	Alloc  AllocFunc
	Free   FreeFunc
	Region int
}

func (m Memory) allocate(size int) []byte {
	if m.Alloc == nil {
		return make([]byte, size)
	}
	return m.Alloc(m.Region, size)
}

func (m Memory) release(b []byte) {
	if m.Free != nil {
		m.Free(m.Region, b)
	}
}
