package h264

import (
	"bytes"
	"math/bits"
	"testing"

	"github.com/icza/bitio"
)

// spsWriter builds synthetic SPS payloads bit by bit.
type spsWriter struct {
	buf bytes.Buffer
	w   *bitio.Writer
}

func newSPSWriter() *spsWriter {
	sw := &spsWriter{}
	sw.w = bitio.NewWriter(&sw.buf)
	return sw
}

func (sw *spsWriter) bits(v uint64, n uint8) { sw.w.WriteBits(v, n) }

func (sw *spsWriter) ue(v uint64) {
	n := uint8(bits.Len64(v + 1))
	if n > 1 {
		sw.w.WriteBits(0, n-1)
	}
	sw.w.WriteBits(v+1, n)
}

func (sw *spsWriter) nalu() []byte {
	sw.w.WriteBits(1, 1) // rbsp_stop_one_bit
	sw.w.Close()
	return append([]byte{0x67}, sw.buf.Bytes()...)
}

func baselineSPS(widthMbsMinus1, heightMapUnitsMinus1 uint64) []byte {
	sw := newSPSWriter()
	sw.bits(66, 8)   // profile_idc baseline
	sw.bits(0xC0, 8) // constraint flags
	sw.bits(30, 8)   // level_idc
	sw.ue(0)         // seq_parameter_set_id
	sw.ue(0)         // log2_max_frame_num_minus4
	sw.ue(0)         // pic_order_cnt_type
	sw.ue(0)         // log2_max_pic_order_cnt_lsb_minus4
	sw.ue(1)         // max_num_ref_frames
	sw.bits(0, 1)    // gaps_in_frame_num_value_allowed
	sw.ue(widthMbsMinus1)
	sw.ue(heightMapUnitsMinus1)
	sw.bits(1, 1) // frame_mbs_only
	sw.bits(1, 1) // direct_8x8_inference
	sw.bits(0, 1) // frame_cropping
	sw.bits(0, 1) // vui_parameters_present
	return sw.nalu()
}

func TestParseSPS_Baseline(t *testing.T) {
	t.Parallel()
	info, err := ParseSPS(baselineSPS(39, 29))
	if err != nil {
		t.Fatalf("ParseSPS: %v", err)
	}
	if info.Width != 640 || info.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", info.Width, info.Height)
	}
	if info.ProfileIDC != 66 || info.LevelIDC != 30 {
		t.Errorf("profile/level = %d/%d", info.ProfileIDC, info.LevelIDC)
	}
	if got := info.CodecString(); got != "avc1.42C01E" {
		t.Errorf("CodecString = %q, want avc1.42C01E", got)
	}
}

func TestParseSPS_Cropping(t *testing.T) {
	t.Parallel()
	sw := newSPSWriter()
	sw.bits(66, 8)
	sw.bits(0, 8)
	sw.bits(31, 8)
	sw.ue(0)      // seq_parameter_set_id
	sw.ue(0)      // log2_max_frame_num_minus4
	sw.ue(0)      // pic_order_cnt_type
	sw.ue(0)      // log2_max_pic_order_cnt_lsb_minus4
	sw.ue(1)      // max_num_ref_frames
	sw.bits(0, 1) // gaps_in_frame_num_value_allowed
	sw.ue(119)    // 1920 wide
	sw.ue(67)     // 1088 tall before crop
	sw.bits(1, 1) // frame_mbs_only
	sw.bits(1, 1) // direct_8x8_inference
	sw.bits(1, 1) // frame_cropping
	sw.ue(0)      // crop left
	sw.ue(0)      // crop right
	sw.ue(0)      // crop top
	sw.ue(4)      // crop bottom: 4*2 luma rows for 4:2:0
	sw.bits(0, 1) // vui_parameters_present

	info, err := ParseSPS(sw.nalu())
	if err != nil {
		t.Fatalf("ParseSPS: %v", err)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", info.Width, info.Height)
	}
}

func TestParseSPS_HighProfile(t *testing.T) {
	t.Parallel()
	sw := newSPSWriter()
	sw.bits(100, 8) // profile_idc high
	sw.bits(0, 8)
	sw.bits(40, 8)
	sw.ue(0)      // seq_parameter_set_id
	sw.ue(1)      // chroma_format_idc 4:2:0
	sw.ue(0)      // bit_depth_luma_minus8
	sw.ue(0)      // bit_depth_chroma_minus8
	sw.bits(0, 1) // qpprime_y_zero_transform_bypass
	sw.bits(0, 1) // seq_scaling_matrix_present
	sw.ue(0)      // log2_max_frame_num_minus4
	sw.ue(0)      // pic_order_cnt_type
	sw.ue(0)      // log2_max_pic_order_cnt_lsb_minus4
	sw.ue(2)      // max_num_ref_frames
	sw.bits(0, 1) // gaps_in_frame_num_value_allowed
	sw.ue(79)     // 1280 wide
	sw.ue(44)     // 720 tall
	sw.bits(1, 1) // frame_mbs_only
	sw.bits(1, 1) // direct_8x8_inference
	sw.bits(0, 1) // frame_cropping
	sw.bits(0, 1) // vui_parameters_present

	info, err := ParseSPS(sw.nalu())
	if err != nil {
		t.Fatalf("ParseSPS: %v", err)
	}
	if info.Width != 1280 || info.Height != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720", info.Width, info.Height)
	}
	if got := info.CodecString(); got != "avc1.640028" {
		t.Errorf("CodecString = %q", got)
	}
}

func TestParseSPS_TooShort(t *testing.T) {
	t.Parallel()
	if _, err := ParseSPS([]byte{0x67, 0x42}); err == nil {
		t.Error("expected error for truncated SPS")
	}
}

func TestTypeOf(t *testing.T) {
	t.Parallel()
	cases := []struct {
		header byte
		want   byte
	}{
		{0x67, NALTypeSPS},
		{0x68, NALTypePPS},
		{0x65, NALTypeIDR},
		{0x41, NALTypeSliceNonIDR},
		{0x09, NALTypeAUD},
		{0x06, NALTypeSEI},
	}
	for _, tc := range cases {
		if got := TypeOf(tc.header); got != tc.want {
			t.Errorf("TypeOf(%#02x) = %d, want %d", tc.header, got, tc.want)
		}
	}
}

func TestIsVCL(t *testing.T) {
	t.Parallel()
	for ty := byte(0); ty < 16; ty++ {
		want := ty >= 1 && ty <= 5
		if got := IsVCL(ty); got != want {
			t.Errorf("IsVCL(%d) = %v, want %v", ty, got, want)
		}
	}
}

func TestRemoveEmulationPrevention(t *testing.T) {
	t.Parallel()
	in := []byte{0x00, 0x00, 0x03, 0x01, 0xAB, 0x00, 0x00, 0x03, 0x03}
	want := []byte{0x00, 0x00, 0x01, 0xAB, 0x00, 0x00, 0x03}
	if got := removeEmulationPrevention(in); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}
