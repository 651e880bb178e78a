package h264

import (
	"bytes"
	"testing"
)

func annexB(nals ...[]byte) []byte {
	var out []byte
	for i, nal := range nals {
		if i == 0 {
			out = append(out, 0x00, 0x00, 0x00, 0x01) // 4-byte start code
		} else {
			out = append(out, 0x00, 0x00, 0x01)
		}
		out = append(out, nal...)
	}
	return out
}

func TestSPSFromAccessUnit(t *testing.T) {
	t.Parallel()
	sps := baselineSPS(39, 29)
	au := annexB(
		[]byte{0x09, 0xF0}, // AUD
		sps,
		[]byte{0x68, 0xCE, 0x38, 0x80}, // PPS
		[]byte{0x65, 0x88, 0x80, 0x00}, // IDR slice
	)

	info, err := SPSFromAccessUnit(au)
	if err != nil {
		t.Fatalf("SPSFromAccessUnit: %v", err)
	}
	if info.Width != 640 || info.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", info.Width, info.Height)
	}
	if got := info.CodecString(); got != "avc1.42C01E" {
		t.Errorf("CodecString = %q, want avc1.42C01E", got)
	}
}

func TestSPSFromAccessUnit_NoSPS(t *testing.T) {
	t.Parallel()
	au := annexB(
		[]byte{0x09, 0xF0},
		[]byte{0x41, 0x9A, 0x02},
	)
	if _, err := SPSFromAccessUnit(au); err == nil {
		t.Error("expected error for access unit without SPS")
	}
}

func TestContainsKeyframe(t *testing.T) {
	t.Parallel()
	idr := annexB([]byte{0x09, 0xF0}, []byte{0x65, 0x88, 0x80})
	if !ContainsKeyframe(idr) {
		t.Error("IDR access unit not reported as keyframe")
	}
	nonIDR := annexB([]byte{0x09, 0xF0}, []byte{0x41, 0x9A, 0x02})
	if ContainsKeyframe(nonIDR) {
		t.Error("non-IDR access unit reported as keyframe")
	}
}

func TestForEachNAL_StartCodeForms(t *testing.T) {
	t.Parallel()
	au := annexB([]byte{0x09, 0xF0}, []byte{0x67, 0x42}, []byte{0x65, 0x88})
	var got [][]byte
	forEachNAL(au, func(nal []byte) bool {
		got = append(got, nal)
		return true
	})
	want := [][]byte{{0x09, 0xF0}, {0x67, 0x42}, {0x65, 0x88}}
	if len(got) != len(want) {
		t.Fatalf("NAL count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("nal[%d] = % x, want % x", i, got[i], want[i])
		}
	}
}
