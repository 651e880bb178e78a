package hls

// writeDoneNone marks that no slot has been finalized yet.
const writeDoneNone = -1

// streamPosition tracks the cursors of the per-type double buffer. The
// writer reserves the slot at writeTo, finalizes it by setting
// writeDone, and moves on when the reader has freed the next slot. Both
// writeTo and writeDone are needed: writeDone != writeTo means the
// writer holds a reserved slot it has not finished.
type streamPosition struct {
	bufferCount int
	readFrom    int
	readAU      int
	writeTo     int
	writeDone   int
}

func (p *streamPosition) reset(count int) {
	p.bufferCount = count
	p.readFrom = 0
	p.readAU = 0
	p.writeTo = 0
	p.writeDone = writeDoneNone
}

// hasWriteSpace reports whether the writer may start filling a slot.
func (p *streamPosition) hasWriteSpace() bool {
	return (p.writeTo+1)%p.bufferCount != p.readFrom || p.writeDone != p.writeTo
}

// hasReadSpace reports whether a finalized slot is available to read.
func (p *streamPosition) hasReadSpace() bool {
	return p.readFrom != p.writeTo
}

// advanceRead releases the slot at readFrom. If the writer was blocked
// waiting on it, the write cursor claims the freed slot.
func (p *streamPosition) advanceRead() bool {
	if p.readFrom == p.writeTo {
		return false
	}
	if p.writeDone == p.writeTo && (p.writeTo+1)%p.bufferCount == p.readFrom {
		p.writeTo = p.readFrom
	}
	p.readFrom = (p.readFrom + 1) % p.bufferCount
	return true
}

// advanceWrite finalizes the slot at writeTo and, when the next slot is
// free, moves the write cursor onto it.
func (p *streamPosition) advanceWrite() bool {
	p.writeDone = p.writeTo

	next := (p.writeTo + 1) % p.bufferCount
	if next == p.readFrom {
		return false
	}
	p.writeTo = next
	return true
}
