package es

// adtsHeaderLen is the ADTS fixed+variable header size without the
// optional CRC. Two more bytes follow when protection_absent is clear.
const adtsHeaderLen = 7

// parseADTS advances the access-unit scan over an AAC stream. Each
// complete ADTS frame, header included, becomes one access unit. Bytes
// that do not line up on an 0xFFF syncword are skipped one at a time
// until sync is regained.
func (s *Stream) parseADTS() {
	data := s.payload.Bytes()
	for s.parser.tail-s.parser.head >= adtsHeaderLen {
		hdr := data[s.parser.head:]
		if hdr[0] != 0xFF || hdr[1]&0xF0 != 0xF0 {
			s.parser.head++
			continue
		}

		frameLen := int(hdr[3]&0x03)<<11 | int(hdr[4])<<3 | int(hdr[5])>>5
		if frameLen < adtsHeaderLen {
			// corrupt length field, drop the false sync byte
			s.parser.head++
			continue
		}
		if s.parser.tail-s.parser.head < frameLen {
			return
		}

		s.appendAccessUnit(data[s.parser.head : s.parser.head+frameLen])
		s.parser.head += frameLen
	}
}
