// Package h264 provides the small slice of H.264 bitstream knowledge the
// ingest core needs: NAL unit classification for access-unit framing and
// SPS parsing for stream reporting.
package h264

// NAL unit type constants as defined in ITU-T H.264 Table 7-1.
const (
	NALTypeSliceNonIDR = 1
	NALTypeSlicePartA  = 2
	NALTypeSlicePartB  = 3
	NALTypeSlicePartC  = 4
	NALTypeIDR         = 5
	NALTypeSEI         = 6
	NALTypeSPS         = 7
	NALTypePPS         = 8
	NALTypeAUD         = 9
	NALTypeEndOfSeq    = 10
)

// TypeOf extracts the 5-bit NAL unit type from a NAL header byte.
func TypeOf(header byte) byte { return header & 0x1F }

// IsVCL reports whether the NAL type carries coded slice data
// (types 1 through 5).
func IsVCL(nalType byte) bool {
	return nalType >= NALTypeSliceNonIDR && nalType <= NALTypeIDR
}

// IsKeyframe reports whether the NAL type is an IDR slice.
func IsKeyframe(nalType byte) bool { return nalType == NALTypeIDR }

// removeEmulationPrevention strips 0x000003 emulation-prevention bytes
// from a NAL payload, yielding the raw byte sequence payload (RBSP).
func removeEmulationPrevention(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+2 < len(data) && data[i] == 0 && data[i+1] == 0 && data[i+2] == 3 &&
			(i+3 >= len(data) || data[i+3] <= 3) {
			out = append(out, 0, 0)
			i += 2
		} else {
			out = append(out, data[i])
		}
	}
	return out
}
