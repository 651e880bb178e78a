// Package hls implements the ingest pipeline: fetch an HLS master
// playlist, fetch each rendition's media playlist, then loop fetching
// media segments and feeding them through the transport stream demuxer
// into double-buffered per-type elementary streams.
//
// The pipeline is single-threaded and cooperative. Each call to Update
// performs at most one state transition; all I/O waits surface as
// "remain in the current state and return". The host drives progress by
// calling Update repeatedly and drains framed access units with
// PullAccessUnits.
package hls

import (
	"bufio"
	"bytes"
	"log/slog"

	"github.com/zsiec/helix/buffer"
	"github.com/zsiec/helix/es"
	"github.com/zsiec/helix/mpegts"
	"github.com/zsiec/helix/playlist"
)

// DefaultBufferCount is the number of slots in each per-type stream
// ring. Two slots let the demuxer fill a segment while the host drains
// the previous one.
const DefaultBufferCount = 2

// Bits reported by PullAccessUnits.
const (
	PulledVideo = 0x01
	PulledAudio = 0x02
)

const noRendition = -1

// Stream is the HLS ingest pipeline.
type Stream struct {
	log   *slog.Logger
	mem   buffer.Memory
	input Input

	state State
	req   Request
	res   Resource

	master  playlist.Master
	toParse int
	toPlay  int

	rootURL      string
	segmentIndex int

	inputBuf    *buffer.Buffer
	videoBuffer *buffer.Buffer
	audioBuffer *buffer.Buffer

	demuxer     *mpegts.Demuxer
	demuxResult mpegts.Result

	bufferCount  int
	videoESIndex uint8
	audioESIndex uint8
	videoStreams []*es.Stream
	audioStreams []*es.Stream
	videoPos     streamPosition
	audioPos     streamPosition
}

// NewStream creates a pipeline that fetches the presentation at url
// through input. Elementary stream storage is carved from videoBuf and
// audioBuf; each must be large enough to hold DefaultBufferCount
// segments of its type. If log is nil, slog.Default() is used.
func NewStream(input Input, videoBuf, audioBuf *buffer.Buffer, url string, mem buffer.Memory, log *slog.Logger) *Stream {
	if log == nil {
		log = slog.Default()
	}
	s := &Stream{
		log:          log.With("component", "hls"),
		mem:          mem,
		input:        input,
		state:        StateOpenRootList,
		toParse:      noRendition,
		toPlay:       noRendition,
		rootURL:      rootOf(url),
		videoBuffer:  videoBuf,
		audioBuffer:  audioBuf,
		bufferCount:  DefaultBufferCount,
		videoStreams: make([]*es.Stream, DefaultBufferCount),
		audioStreams: make([]*es.Stream, DefaultBufferCount),
	}
	s.demuxer = mpegts.NewDemuxer(&esSink{s: s}, mem, log)
	s.resetStreams()
	s.req = input.Open(url)
	return s
}

// State returns the pipeline's current state.
func (s *Stream) State() State { return s.state }

// SegmentIndex returns the index of the segment being fetched or about
// to be fetched within the playing rendition.
func (s *Stream) SegmentIndex() int { return s.segmentIndex }

// Master exposes the parsed master playlist.
func (s *Stream) Master() *playlist.Master { return &s.master }

// Demuxer exposes the transport demuxer, e.g. for attaching stats.
func (s *Stream) Demuxer() *mpegts.Demuxer { return s.demuxer }

// DemuxResult returns the demuxer result that moved the pipeline into
// StateInStreamError.
func (s *Stream) DemuxResult() mpegts.Result { return s.demuxResult }

// Finished reports whether every segment of the playing rendition has
// been fetched and demuxed.
func (s *Stream) Finished() bool {
	if s.state != StateDownloadSegment || s.toPlay == noRendition {
		return false
	}
	return s.segmentIndex >= s.master.Renditions[s.toPlay].Playlist.SegmentCount()
}

// Close releases the currently open input resource.
func (s *Stream) Close() {
	if s.res != 0 {
		s.input.Close(s.res)
		s.res = 0
	}
}

// Reset rewinds playback to the first segment and clears all elementary
// stream state. Parsed playlists are kept.
func (s *Stream) Reset() {
	s.resetStreams()
}

// Update advances the pipeline by at most one state transition. Waiting
// on I/O leaves the state unchanged.
func (s *Stream) Update() {
	switch s.state {
	case StateOpenRootList, StateOpenMediaList, StateOpenSegment:
		s.updateOpen()
	case StateReadRootList:
		s.updateReadRootList()
	case StateReadMediaList:
		s.updateReadMediaList()
	case StateDownloadSegment:
		s.updateDownloadSegment()
	case StateReadSegment:
		s.updateReadSegment()
	default:
		// terminal error states
	}
}

// updateOpen polls the pending open request shared by the three Open
// states and, on completion, allocates the input buffer and issues the
// read.
func (s *Stream) updateOpen() {
	status, value := s.input.Result(s.req)
	switch status {
	case StatusPending:
		return
	case StatusComplete:
		s.res = Resource(value)
		size := s.input.Size(s.res)
		if size == 0 {
			s.failOpen(StateNoStreamError)
			return
		}
		s.inputBuf = buffer.New(int(size), s.mem)
		dst := s.inputBuf.Obtain(int(size))
		if dst == nil {
			s.failOpen(StateMemoryError)
			return
		}
		s.req = s.input.Read(s.res, dst)
		switch s.state {
		case StateOpenRootList:
			s.state = StateReadRootList
		case StateOpenMediaList:
			s.state = StateReadMediaList
		case StateOpenSegment:
			s.state = StateReadSegment
		default:
			s.state = StateInternalError
		}
	default: // StatusError, StatusInvalid
		s.failOpen(StateNoStreamError)
	}
}

// failOpen enters an error state from one of the Open states. A failed
// media list open marks its rendition unavailable.
func (s *Stream) failOpen(errState State) {
	if s.state == StateOpenMediaList && s.toParse >= 0 && s.toParse < s.master.RenditionCount() {
		s.master.Renditions[s.toParse].Info.Available = false
	}
	s.log.Warn("input open failed", "state", s.state.String())
	s.state = errState
}

func (s *Stream) updateReadRootList() {
	status, _ := s.input.Result(s.req)
	switch status {
	case StatusPending:
		return
	case StatusComplete:
		s.closeResource()
		var parser playlist.MasterParser
		s.parseLines(func(line string) {
			parser.ParseLine(&s.master, line)
		})

		s.toParse = 0
		if s.master.RenditionCount() == 0 {
			s.log.Warn("master playlist has no renditions")
			s.state = StateNoStreamError
			return
		}
		s.openMediaList(s.toParse)
	default:
		s.closeResource()
		s.releaseInputBuf()
		s.state = StateNoStreamError
	}
}

func (s *Stream) updateReadMediaList() {
	status, _ := s.input.Result(s.req)
	switch status {
	case StatusPending:
		return
	case StatusComplete:
		s.closeResource()
		rendition := &s.master.Renditions[s.toParse]
		var parser playlist.MediaParser
		s.parseLines(func(line string) {
			parser.ParseLine(&rendition.Playlist, line)
		})
		rendition.Info.Available = true

		s.toParse++
		if s.toParse < s.master.RenditionCount() {
			s.openMediaList(s.toParse)
			return
		}

		// all renditions parsed; play the first until bandwidth
		// selection exists
		s.toPlay = 0
		s.resetStreams()
		s.state = StateDownloadSegment
	default:
		s.closeResource()
		s.releaseInputBuf()
		s.master.Renditions[s.toParse].Info.Available = false
		s.state = StateNoStreamError
	}
}

// updateDownloadSegment opens the next segment once both stream rings
// have a writable slot. Without write space the pipeline idles here,
// applying back-pressure to the fetch loop.
func (s *Stream) updateDownloadSegment() {
	if s.toPlay == noRendition {
		s.state = StateInternalError
		return
	}
	pl := &s.master.Renditions[s.toPlay].Playlist
	if s.segmentIndex >= pl.SegmentCount() {
		return // end of presentation
	}
	if !s.videoPos.hasWriteSpace() || !s.audioPos.hasWriteSpace() {
		return
	}
	seg := pl.SegmentAt(s.segmentIndex)
	s.req = s.input.Open(resolveURL(s.rootURL, seg.URI))
	s.state = StateOpenSegment
}

func (s *Stream) updateReadSegment() {
	status, _ := s.input.Result(s.req)
	switch status {
	case StatusPending:
		return
	case StatusComplete:
		s.closeResource()
		result := s.demuxer.Read(s.inputBuf)
		s.releaseInputBuf()
		if result != mpegts.ResultComplete {
			s.demuxResult = result
			s.log.Error("segment demux failed",
				"segment", s.segmentIndex, "result", result.String())
			s.state = StateInStreamError
			return
		}
		s.segmentIndex++
		s.state = StateDownloadSegment
	default:
		// transient read failure: release and retry the segment
		s.closeResource()
		s.releaseInputBuf()
		s.log.Debug("segment read failed, retrying", "segment", s.segmentIndex)
		s.state = StateDownloadSegment
	}
}

// PullAccessUnits copies the next video and/or audio access unit from
// the ring's read slots into vau and aau. The return value has
// PulledVideo and/or PulledAudio set for each output written. Draining
// a slot advances the read cursor, which may unblock a waiting writer.
func (s *Stream) PullAccessUnits(vau, aau *es.AccessUnit) int {
	pulled := 0

	if s.videoPos.hasReadSpace() {
		if stream := s.videoStreams[s.videoPos.readFrom]; stream != nil {
			if s.videoPos.readAU < stream.AccessUnitCount() {
				*vau = *stream.AccessUnitAt(s.videoPos.readAU)
				s.videoPos.readAU++
				pulled |= PulledVideo
			}
			if s.videoPos.readAU >= stream.AccessUnitCount() {
				if s.videoPos.advanceRead() {
					s.videoPos.readAU = 0
				}
			}
		}
	}

	if s.audioPos.hasReadSpace() {
		if stream := s.audioStreams[s.audioPos.readFrom]; stream != nil {
			if s.audioPos.readAU < stream.AccessUnitCount() {
				*aau = *stream.AccessUnitAt(s.audioPos.readAU)
				s.audioPos.readAU++
				pulled |= PulledAudio
			}
			if s.audioPos.readAU >= stream.AccessUnitCount() {
				if s.audioPos.advanceRead() {
					s.audioPos.readAU = 0
				}
			}
		}
	}

	return pulled
}

func (s *Stream) openMediaList(i int) {
	url := resolveURL(s.rootURL, s.master.Renditions[i].Playlist.URI)
	s.req = s.input.Open(url)
	s.state = StateOpenMediaList
}

// parseLines feeds each line of the input buffer to fn, then releases
// the buffer.
func (s *Stream) parseLines(fn func(line string)) {
	scanner := bufio.NewScanner(bytes.NewReader(s.inputBuf.HeadBytes()))
	for scanner.Scan() {
		fn(scanner.Text())
	}
	s.releaseInputBuf()
}

func (s *Stream) closeResource() {
	if s.res != 0 {
		s.input.Close(s.res)
		s.res = 0
	}
}

func (s *Stream) releaseInputBuf() {
	if s.inputBuf != nil {
		s.inputBuf.Release()
		s.inputBuf = nil
	}
}

func (s *Stream) resetStreams() {
	s.videoPos.reset(s.bufferCount)
	s.audioPos.reset(s.bufferCount)
	s.videoESIndex = 0
	s.audioESIndex = 0
	for i := 0; i < s.bufferCount; i++ {
		s.videoStreams[i] = nil
		s.audioStreams[i] = nil
	}
	s.segmentIndex = 0
}
