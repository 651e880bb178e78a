package playlist

import (
	"strconv"
	"strings"
)

type parserState int

const (
	stateInit parserState = iota
	stateInputLine
	statePlaylistLine
)

// MediaParser parses a media playlist one line at a time. The zero value
// is ready to use; feed lines in order via ParseLine.
type MediaParser struct {
	state   parserState
	pending Segment
}

// ParseLine consumes one line of a media playlist. Lines may carry
// trailing CR/LF; leading and trailing whitespace is ignored. Blank
// lines and unrecognized tags are skipped.
func (p *MediaParser) ParseLine(pl *MediaPlaylist, line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	switch p.state {
	case stateInit:
		if trimmed == "#EXTM3U" {
			p.state = stateInputLine
		}

	case stateInputLine:
		if !strings.HasPrefix(trimmed, "#") {
			return
		}
		tag, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			return
		}
		switch tag {
		case "#EXT-X-VERSION":
			if v, err := strconv.Atoi(value); err == nil && pl.Version == 1 {
				pl.Version = v
			}
		case "#EXT-X-TARGETDURATION":
			if v, err := strconv.ParseFloat(value, 32); err == nil {
				pl.TargetDuration = float32(v)
			}
		case "#EXT-X-MEDIA-SEQUENCE":
			if v, err := strconv.Atoi(value); err == nil {
				pl.SeqNo = v
			}
		case "#EXTINF":
			duration, rest, ok := strings.Cut(value, ",")
			if !ok {
				return // standard requires "#EXTINF:<duration>,"
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(duration), 32); err == nil {
				p.pending.Duration = float32(v)
			}
			if rest != "" {
				p.pending.URI = rest
				pl.Segments = append(pl.Segments, p.pending)
				p.pending = Segment{}
			} else {
				p.state = statePlaylistLine
			}
		}

	case statePlaylistLine:
		p.pending.URI = trimmed
		pl.Segments = append(pl.Segments, p.pending)
		p.pending = Segment{}
		p.state = stateInputLine
	}
}

// MasterParser parses a master playlist one line at a time. The zero
// value is ready to use.
type MasterParser struct {
	state   parserState
	version int
	pending Info
}

// ParseLine consumes one line of a master playlist.
func (p *MasterParser) ParseLine(m *Master, line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	switch p.state {
	case stateInit:
		if trimmed == "#EXTM3U" {
			p.state = stateInputLine
			p.version = 1
		}

	case stateInputLine:
		if !strings.HasPrefix(trimmed, "#") {
			return
		}
		tag, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			return
		}
		switch tag {
		case "#EXT-X-VERSION":
			if v, err := strconv.Atoi(value); err == nil && p.version == 1 {
				p.version = v
			}
		case "#EXT-X-STREAM-INF":
			p.pending = Info{}
			p.parseStreamInf(value)
			// The next line carries the media playlist URI.
			p.state = statePlaylistLine
		}

	case statePlaylistLine:
		m.AddStream(p.pending, trimmed)
		p.pending = Info{}
		p.state = stateInputLine
	}
}

// parseStreamInf walks the comma-separated KEY=VALUE attribute list of a
// #EXT-X-STREAM-INF tag. Quoted values may contain commas.
func (p *MasterParser) parseStreamInf(attrs string) {
	for len(attrs) > 0 {
		key, rest, ok := strings.Cut(attrs, "=")
		if !ok {
			return
		}
		var value string
		if strings.HasPrefix(rest, `"`) {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				value = rest[1:]
				rest = ""
			} else {
				value = rest[1 : 1+end]
				rest = rest[2+end:]
				rest = strings.TrimPrefix(rest, ",")
			}
		} else {
			value, rest, _ = strings.Cut(rest, ",")
		}
		attrs = rest

		switch strings.TrimSpace(key) {
		case "BANDWIDTH":
			if v, err := strconv.ParseUint(value, 10, 32); err == nil {
				p.pending.Bandwidth = uint32(v)
			}
		case "RESOLUTION":
			w, h, ok := strings.Cut(value, "x")
			if !ok {
				break
			}
			wv, errW := strconv.ParseUint(w, 10, 32)
			hv, errH := strconv.ParseUint(h, 10, 32)
			if errW == nil && errH == nil {
				p.pending.FrameWidth = uint32(wv)
				p.pending.FrameHeight = uint32(hv)
			}
		case "CODECS":
			p.pending.Codecs = value
		}
	}
}
