package es

import (
	"bytes"
	"testing"

	"github.com/zsiec/helix/buffer"
)

// nal serializes a start-code-prefixed NAL unit.
func nal(header byte, payload ...byte) []byte {
	return append([]byte{0x00, 0x00, 0x01, header}, payload...)
}

var (
	nalSPS      = nal(0x67, 0x42, 0xC0, 0x1E, 0xD9)
	nalPPS      = nal(0x68, 0xCE, 0x3C, 0x80, 0x00)
	nalIDR      = nal(0x65, 0x88, 0x84, 0x00, 0x33) // first_mb_in_slice bit set
	nalAUD      = nal(0x09, 0xF0)
	nalSliceMB0 = nal(0x41, 0x9A, 0x02) // non-IDR slice, first_mb_in_slice bit set
)

func newVideoStream(t *testing.T, size int) *Stream {
	t.Helper()
	payload := buffer.New(size, buffer.Memory{})
	if !payload.IsValid() {
		t.Fatal("payload allocation failed")
	}
	return NewStream(payload, TypeH264, 1, 1)
}

func appendBytes(t *testing.T, s *Stream, data []byte) {
	t.Helper()
	src := buffer.Wrap(data)
	if short := s.AppendPayload(src, len(data), false); short != 0 {
		t.Fatalf("AppendPayload shortfall = %d", short)
	}
}

func TestH264Framer_SingleAccessUnit(t *testing.T) {
	t.Parallel()
	s := newVideoStream(t, 4096)

	var input []byte
	input = append(input, nalSPS...)
	input = append(input, nalPPS...)
	input = append(input, nalIDR...)
	auLen := len(input)
	input = append(input, nalIDR...)
	appendBytes(t, s, input)

	if s.AccessUnitCount() != 1 {
		t.Fatalf("AccessUnitCount = %d, want 1", s.AccessUnitCount())
	}
	au := s.AccessUnitAt(0)
	if au == nil {
		t.Fatal("AccessUnitAt(0) = nil")
	}
	if len(au.Data) != auLen {
		t.Errorf("AU size = %d, want %d", len(au.Data), auLen)
	}
	if !bytes.Equal(au.Data, input[:auLen]) {
		t.Error("AU bytes do not span SPS through first slice")
	}
}

func TestH264Framer_NoBoundaryNoEmission(t *testing.T) {
	t.Parallel()
	s := newVideoStream(t, 4096)
	var input []byte
	input = append(input, nalSPS...)
	input = append(input, nalPPS...)
	input = append(input, nalIDR...)
	appendBytes(t, s, input)

	if s.AccessUnitCount() != 0 {
		t.Errorf("AccessUnitCount = %d, want 0 before a boundary is observed", s.AccessUnitCount())
	}
}

func TestH264Framer_IncrementalAppendsMatchOnePass(t *testing.T) {
	t.Parallel()
	var input []byte
	for i := 0; i < 4; i++ {
		input = append(input, nalSPS...)
		input = append(input, nalPPS...)
		input = append(input, nalIDR...)
		input = append(input, nalSliceMB0...)
	}

	onePass := newVideoStream(t, 4096)
	appendBytes(t, onePass, input)

	byteWise := newVideoStream(t, 4096)
	for i := range input {
		appendBytes(t, byteWise, input[i:i+1])
	}

	if onePass.AccessUnitCount() != byteWise.AccessUnitCount() {
		t.Fatalf("AU counts differ: one-pass %d, byte-wise %d",
			onePass.AccessUnitCount(), byteWise.AccessUnitCount())
	}
	for i := 0; i < onePass.AccessUnitCount(); i++ {
		a, b := onePass.AccessUnitAt(i), byteWise.AccessUnitAt(i)
		if !bytes.Equal(a.Data, b.Data) {
			t.Errorf("AU %d bytes differ", i)
		}
		if a.PTS != b.PTS || a.DTS != b.DTS {
			t.Errorf("AU %d timestamps differ", i)
		}
	}
}

func TestH264Framer_TimestampInheritance(t *testing.T) {
	t.Parallel()
	s := newVideoStream(t, 4096)
	s.UpdatePTSDTS(90000, 87000)

	var input []byte
	input = append(input, nalSPS...)
	input = append(input, nalIDR...)
	input = append(input, nalIDR...) // boundary, emits during this append
	appendBytes(t, s, input)

	if s.AccessUnitCount() != 1 {
		t.Fatalf("AccessUnitCount = %d, want 1", s.AccessUnitCount())
	}
	au := s.AccessUnitAt(0)
	if au.PTS != 90000 || au.DTS != 87000 {
		t.Errorf("AU pts/dts = %d/%d, want 90000/87000", au.PTS, au.DTS)
	}
}

func TestUpdatePTS_SetsBothClocks(t *testing.T) {
	t.Parallel()
	s := newVideoStream(t, 64)
	s.UpdatePTS(0x1FFFFFFFF)
	if s.pts != 0x1FFFFFFFF || s.dts != 0x1FFFFFFFF {
		t.Errorf("pts/dts = %#x/%#x", s.pts, s.dts)
	}
}

func TestAppendPayload_ReportsShortfall(t *testing.T) {
	t.Parallel()
	s := newVideoStream(t, 16)
	data := make([]byte, 40)
	src := buffer.Wrap(data)

	short := s.AppendPayload(src, len(data), true)
	if short != 24 {
		t.Errorf("shortfall = %d, want 24", short)
	}
	if src.Size() != 40 {
		t.Errorf("source consumed on overflow: %d bytes left", src.Size())
	}
	if s.payload.Size() != 0 {
		t.Errorf("payload partially written: %d bytes", s.payload.Size())
	}
}

func TestAccessUnitBatches_ChainPastCapacity(t *testing.T) {
	t.Parallel()
	const pairs = 500
	s := newVideoStream(t, pairs*16)

	var input []byte
	for i := 0; i < pairs; i++ {
		input = append(input, nalAUD...)
		input = append(input, nalSliceMB0...)
	}
	appendBytes(t, s, input)

	count := s.AccessUnitCount()
	if count <= accessUnitBatchSize {
		t.Fatalf("AccessUnitCount = %d, want > %d to exercise chaining", count, accessUnitBatchSize)
	}
	total := 0
	for i := 0; i < count; i++ {
		au := s.AccessUnitAt(i)
		if au == nil {
			t.Fatalf("AccessUnitAt(%d) = nil", i)
		}
		if len(au.Data) == 0 {
			t.Fatalf("AU %d is empty", i)
		}
		total += len(au.Data)
	}
	if total > s.payload.Size() {
		t.Errorf("AU sizes sum to %d, payload holds %d", total, s.payload.Size())
	}
	if s.AccessUnitAt(count) != nil {
		t.Error("AccessUnitAt past the end should be nil")
	}
}

func buildADTSFrame(payloadLen int) []byte {
	frameLen := adtsHeaderLen + payloadLen
	hdr := []byte{
		0xFF, 0xF1, // syncword, MPEG-4, layer 0, no CRC
		0x50,                          // AAC LC, 44100 Hz
		0x80 | byte(frameLen>>11)&0x03,
		byte(frameLen >> 3),
		byte(frameLen&0x07) << 5,
		0xFC,
	}
	frame := make([]byte, 0, frameLen)
	frame = append(frame, hdr...)
	for i := 0; i < payloadLen; i++ {
		frame = append(frame, byte(i))
	}
	return frame
}

func TestADTSFramer_FramesAndResync(t *testing.T) {
	t.Parallel()
	payload := buffer.New(1024, buffer.Memory{})
	s := NewStream(payload, TypeAAC, 1, 0x80)
	s.UpdatePTS(1234)

	var input []byte
	input = append(input, 0xDE, 0xAD) // garbage before sync
	f1 := buildADTSFrame(32)
	f2 := buildADTSFrame(48)
	input = append(input, f1...)
	input = append(input, f2...)
	appendBytes(t, s, input)

	if s.AccessUnitCount() != 2 {
		t.Fatalf("AccessUnitCount = %d, want 2", s.AccessUnitCount())
	}
	if au := s.AccessUnitAt(0); len(au.Data) != len(f1) || au.PTS != 1234 {
		t.Errorf("AU 0 = %d bytes pts %d", len(au.Data), au.PTS)
	}
	if au := s.AccessUnitAt(1); len(au.Data) != len(f2) {
		t.Errorf("AU 1 = %d bytes, want %d", len(au.Data), len(f2))
	}
}

func TestADTSFramer_PartialFrameWaits(t *testing.T) {
	t.Parallel()
	payload := buffer.New(1024, buffer.Memory{})
	s := NewStream(payload, TypeAAC, 1, 0x80)

	frame := buildADTSFrame(64)
	appendBytes(t, s, frame[:len(frame)-10])
	if s.AccessUnitCount() != 0 {
		t.Fatalf("partial frame emitted: count = %d", s.AccessUnitCount())
	}
	appendBytes(t, s, frame[len(frame)-10:])
	if s.AccessUnitCount() != 1 {
		t.Fatalf("AccessUnitCount = %d, want 1", s.AccessUnitCount())
	}
}

func TestStreamType_String(t *testing.T) {
	t.Parallel()
	if TypeH264.String() != "h264" || TypeAAC.String() != "aac" || TypeNull.String() != "null" {
		t.Error("unexpected StreamType strings")
	}
	if !TypeH264.IsVideo() || TypeAAC.IsVideo() {
		t.Error("IsVideo misclassifies")
	}
}
