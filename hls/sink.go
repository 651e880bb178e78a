package hls

import (
	"github.com/zsiec/helix/es"
)

// esSink adapts the pipeline's double-buffered stream storage to the
// demuxer's sink interface. Stream indices are allocated from
// 0x01..0x7F for video and 0x80..0xFF for audio so an index alone
// identifies the stream type.
type esSink struct {
	s *Stream
}

// CreateStream carves the slot at the ring's write cursor out of the
// matching master buffer and attaches a fresh elementary stream to it.
// Each master buffer is split evenly across the ring's slots.
func (k *esSink) CreateStream(typ es.StreamType, progID uint16) *es.Stream {
	s := k.s
	switch typ {
	case es.TypeH264:
		if s.videoESIndex == 0 {
			s.videoESIndex = 0x01
		}
		index := s.videoESIndex
		s.videoESIndex++

		slot := s.videoPos.writeTo
		slotSize := s.videoBuffer.Available() / s.bufferCount
		sub := s.videoBuffer.SubBuffer(slot*slotSize, slotSize)
		stream := es.NewStream(sub, typ, progID, index)
		s.videoStreams[slot] = stream
		return stream

	case es.TypeAAC:
		if s.audioESIndex == 0 {
			s.audioESIndex = 0x80
		}
		index := s.audioESIndex
		s.audioESIndex++

		slot := s.audioPos.writeTo
		slotSize := s.audioBuffer.Available() / s.bufferCount
		sub := s.audioBuffer.SubBuffer(slot*slotSize, slotSize)
		stream := es.NewStream(sub, typ, progID, index)
		s.audioStreams[slot] = stream
		return stream
	}
	return nil
}

// GetStream resolves a stream by its allocated index. The index range
// determines which ring is searched.
func (k *esSink) GetStream(progID uint16, index uint8) *es.Stream {
	s := k.s
	if index > 0 && index < 0x80 {
		for _, stream := range s.videoStreams {
			if stream != nil && stream.Index() == index {
				return stream
			}
		}
	} else if index >= 0x80 {
		for _, stream := range s.audioStreams {
			if stream != nil && stream.Index() == index {
				return stream
			}
		}
	}
	return nil
}

// FinalizeStream marks the stream's ring slot as fully written.
func (k *esSink) FinalizeStream(progID uint16, index uint8) {
	stream := k.GetStream(progID, index)
	if stream == nil {
		return
	}
	if stream.Index() < 0x80 {
		k.s.videoPos.advanceWrite()
	} else {
		k.s.audioPos.advanceWrite()
	}
}

// OverflowStream declines overflow handoff: a segment larger than its
// ring slot is a sizing error the host must fix.
func (k *esSink) OverflowStream(progID uint16, index uint8, needed int) *es.Stream {
	k.s.log.Error("elementary stream overflow",
		"prog", progID, "index", index, "needed", needed)
	return nil
}
