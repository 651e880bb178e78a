// Package playlist models HLS master and media playlists and implements
// the line-oriented M3U8 tag parsers used by the ingest pipeline. Only
// the tag subset needed to sequence segment fetches is recognized;
// unknown tags are ignored.
package playlist

// Segment describes one media segment referenced by a media playlist.
type Segment struct {
	URI      string
	Duration float32
}

// MediaPlaylist is an ordered list of segments plus the playlist-level
// tags that describe them.
type MediaPlaylist struct {
	URI            string
	SeqNo          int
	TargetDuration float32
	Version        int
	Segments       []Segment
}

// NewMediaPlaylist returns an empty playlist for the given URI with the
// protocol-default version of 1.
func NewMediaPlaylist(uri string) MediaPlaylist {
	return MediaPlaylist{URI: uri, Version: 1}
}

// SegmentCount returns the number of segments parsed so far.
func (p *MediaPlaylist) SegmentCount() int { return len(p.Segments) }

// SegmentAt returns the segment at index, or nil if out of range.
func (p *MediaPlaylist) SegmentAt(index int) *Segment {
	if index < 0 || index >= len(p.Segments) {
		return nil
	}
	return &p.Segments[index]
}

// Info carries the #EXT-X-STREAM-INF attributes of one rendition.
// Codecs is retained as the raw attribute value; decoding RFC 6381
// codec strings is left to the host. Available flips to true once the
// rendition's media playlist has been fetched and parsed.
type Info struct {
	FrameWidth  uint32
	FrameHeight uint32
	Bandwidth   uint32
	Codecs      string
	Available   bool
}

// Rendition pairs a master-playlist stream entry with its media playlist.
type Rendition struct {
	Info     Info
	Playlist MediaPlaylist
}

// Master is an ordered collection of renditions parsed from a master
// playlist. Renditions are addressed by index; callers iterating while
// appending must not hold pointers across AddStream calls.
type Master struct {
	Renditions []Rendition
}

// AddStream appends a rendition with the given attributes and media
// playlist URI, returning its index.
func (m *Master) AddStream(info Info, uri string) int {
	m.Renditions = append(m.Renditions, Rendition{
		Info:     info,
		Playlist: NewMediaPlaylist(uri),
	})
	return len(m.Renditions) - 1
}

// RenditionCount returns the number of renditions parsed so far.
func (m *Master) RenditionCount() int { return len(m.Renditions) }
