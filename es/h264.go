package es

import "github.com/zsiec/helix/h264"

// parseH264 advances the access-unit scan over bytes appended since the
// last call. An access unit begins at the first slice NAL whose
// first_mb_in_slice is zero, or at a leading non-VCL NAL (SEI, SPS, PPS,
// AUD), approximating the access-unit ordering of ITU-T H.264 Fig 7-1:
// non-VCL units first, then the slices of one picture. vclCheck latches
// once a unit opens so that the slices belonging to it do not open
// another.
func (s *Stream) parseH264() {
	data := s.payload.Bytes()
	for s.parser.head+4 < s.parser.tail {
		hdr := data[s.parser.head:]
		finish := false

		if hdr[0] == 0 && hdr[1] == 0 && hdr[2] == 0x01 {
			nalType := h264.TypeOf(hdr[3])

			if nalType >= h264.NALTypeSliceNonIDR && nalType < h264.NALTypeEndOfSeq {
				if s.parser.vclCheck {
					if h264.IsVCL(nalType) {
						s.parser.vclCheck = false
					}
				} else {
					if !h264.IsVCL(nalType) {
						s.parser.vclCheck = true
						if !s.parser.hasStart {
							s.parser.auStart = s.parser.head
							s.parser.hasStart = true
						} else {
							finish = true
						}
					} else if hdr[4]&0x80 != 0 {
						// first_mb_in_slice == 0 starts a new picture
						if !s.parser.hasStart {
							s.parser.auStart = s.parser.head
							s.parser.hasStart = true
						} else {
							finish = true
						}
					}
				}
			}

			if finish {
				s.appendAccessUnit(data[s.parser.auStart:s.parser.head])
				s.parser.hasStart = false
				s.parser.vclCheck = false
			}

			s.parser.head += 4
		} else {
			s.parser.head++
		}
	}
}
