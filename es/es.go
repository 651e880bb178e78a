// Package es accumulates elementary stream payloads handed over from the
// transport demuxer and frames them into access units. Video streams are
// framed with an incremental H.264 start-code scanner, audio streams with
// an ADTS header scanner. Framing happens during payload append so each
// access unit captures the PTS/DTS in effect when its bytes arrived.
package es

import (
	"github.com/zsiec/helix/buffer"
)

// StreamType identifies the codec carried by a stream. Values match the
// ISO 13818-1 stream_type codes used in the PMT.
type StreamType uint8

const (
	TypeNull StreamType = 0x00
	TypeAAC  StreamType = 0x0F
	TypeH264 StreamType = 0x1B
)

func (t StreamType) String() string {
	switch t {
	case TypeAAC:
		return "aac"
	case TypeH264:
		return "h264"
	default:
		return "null"
	}
}

// IsVideo reports whether the stream type carries video.
func (t StreamType) IsVideo() bool { return t == TypeH264 }

// AccessUnit is one framed unit of an elementary stream: an H.264 access
// unit or one ADTS frame. Data aliases the stream's payload buffer and
// remains valid until the stream is reset or released.
type AccessUnit struct {
	Data []byte
	PTS  uint64
	DTS  uint64
}

// accessUnitBatchSize allows roughly ten seconds of 29.97 fps video
// per batch before chaining.
const accessUnitBatchSize = 384

type accessUnitBatch struct {
	units []AccessUnit
	next  *accessUnitBatch
}

// parserState tracks the incremental access-unit scan across appends.
// Offsets index into the payload buffer's used region.
type parserState struct {
	active   bool
	head     int
	tail     int
	auStart  int
	hasStart bool
	vclCheck bool
}

// Stream is a single elementary stream: the raw payload bytes plus the
// access units framed out of them so far.
type Stream struct {
	payload  *buffer.Buffer
	typ      StreamType
	progID   uint16
	index    uint8
	streamID uint8
	pts      uint64
	dts      uint64

	batches *accessUnitBatch
	current *accessUnitBatch
	auCount int
	parser  parserState
}

// NewStream wraps a payload buffer as an elementary stream of the given
// type. The buffer is typically a sub-buffer carved from a larger
// segment arena.
func NewStream(payload *buffer.Buffer, typ StreamType, progID uint16, index uint8) *Stream {
	return &Stream{
		payload: payload,
		typ:     typ,
		progID:  progID,
		index:   index,
	}
}

// IsValid reports whether the stream carries a known type and a usable
// payload buffer.
func (s *Stream) IsValid() bool {
	return s != nil && s.typ != TypeNull && s.payload.IsValid()
}

func (s *Stream) Type() StreamType { return s.typ }

func (s *Stream) ProgramID() uint16 { return s.progID }

func (s *Stream) Index() uint8 { return s.index }

func (s *Stream) StreamID() uint8 { return s.streamID }

// PTS returns the most recent presentation timestamp observed on the
// enclosing PES stream.
func (s *Stream) PTS() uint64 { return s.pts }

// DTS returns the most recent decode timestamp.
func (s *Stream) DTS() uint64 { return s.dts }

// Buffer exposes the underlying payload buffer.
func (s *Stream) Buffer() *buffer.Buffer { return s.payload }

// UpdateStreamID records the PES stream_id for this stream.
func (s *Stream) UpdateStreamID(id uint8) { s.streamID = id }

// UpdatePTS sets the presentation timestamp for subsequent access units.
// DTS follows PTS when the PES header carries no separate DTS.
func (s *Stream) UpdatePTS(pts uint64) {
	s.pts = pts
	s.dts = pts
}

// UpdatePTSDTS sets both timestamps for subsequent access units.
func (s *Stream) UpdatePTSDTS(pts, dts uint64) {
	s.pts = pts
	s.dts = dts
}

// AppendPayload moves n bytes from source into the stream's payload
// buffer and advances the access-unit scan over the new bytes. If the
// payload buffer cannot hold n more bytes nothing is consumed and the
// shortfall in bytes is returned; a return of zero means the append
// succeeded.
func (s *Stream) AppendPayload(source *buffer.Buffer, n int, pesStart bool) int {
	if n > s.payload.Available() {
		return n - s.payload.Available()
	}

	if !s.parser.active {
		s.parser.active = true
		s.parser.head = s.payload.HeadOffset()
		s.parser.tail = s.parser.head
		s.parser.hasStart = false
		s.parser.vclCheck = false
	}

	if n == 0 {
		return 0
	}

	s.payload.PullFrom(source, n)
	s.parser.tail = s.payload.TailOffset()

	switch s.typ {
	case TypeH264:
		s.parseH264()
	case TypeAAC:
		s.parseADTS()
	}
	return 0
}

// AccessUnitCount returns the number of access units framed so far.
func (s *Stream) AccessUnitCount() int { return s.auCount }

// AccessUnitAt returns the access unit at index in framing order, or nil
// if out of range.
func (s *Stream) AccessUnitAt(index int) *AccessUnit {
	if index < 0 {
		return nil
	}
	base := 0
	for batch := s.batches; batch != nil; batch = batch.next {
		if index < base+len(batch.units) {
			return &batch.units[index-base]
		}
		base += len(batch.units)
	}
	return nil
}

func (s *Stream) appendAccessUnit(data []byte) {
	if s.current == nil || len(s.current.units) == cap(s.current.units) {
		batch := &accessUnitBatch{units: make([]AccessUnit, 0, accessUnitBatchSize)}
		if s.current != nil {
			s.current.next = batch
		} else {
			s.batches = batch
		}
		s.current = batch
	}
	s.current.units = append(s.current.units, AccessUnit{
		Data: data,
		PTS:  s.pts,
		DTS:  s.dts,
	})
	s.auCount++
}
