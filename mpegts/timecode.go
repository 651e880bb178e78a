package mpegts

import "github.com/zsiec/helix/buffer"

// pullTimecode consumes a 5-byte PTS/DTS field. The 33-bit clock value
// is spread over the five bytes with marker bits after each group; the
// masks discard the markers and the 4-bit prefix so any marker values
// on the wire decode to the same clock value.
func pullTimecode(buf *buffer.Buffer) uint64 {
	tc := uint64(buf.PullByte()&0x0E) << 29
	tc |= uint64(buf.PullByte()) << 22
	tc |= uint64(buf.PullByte()&0xFE) << 14
	tc |= uint64(buf.PullByte()) << 7
	tc |= uint64(buf.PullByte()&0xFE) >> 1
	return tc
}

// PutTimecode encodes a 33-bit clock value into the 5-byte PTS/DTS wire
// form, with the given 4-bit prefix and all marker bits set.
func PutTimecode(dst []byte, prefix uint8, tc uint64) {
	dst[0] = prefix<<4 | uint8(tc>>29)&0x0E | 0x01
	dst[1] = uint8(tc >> 22)
	dst[2] = uint8(tc>>14)&0xFE | 0x01
	dst[3] = uint8(tc >> 7)
	dst[4] = uint8(tc<<1) | 0x01
}
