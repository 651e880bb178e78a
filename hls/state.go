package hls

// State is the pipeline's current position in the fetch/demux cycle.
// Error states are terminal; the host decides whether to tear down and
// restart.
type State int

const (
	StateOpenRootList State = iota
	StateReadRootList
	StateOpenMediaList
	StateReadMediaList
	StateDownloadSegment
	StateOpenSegment
	StateReadSegment
	StateNoStreamError
	StateInStreamError
	StateMemoryError
	StateInternalError
)

func (s State) String() string {
	switch s {
	case StateOpenRootList:
		return "open root list"
	case StateReadRootList:
		return "read root list"
	case StateOpenMediaList:
		return "open media list"
	case StateReadMediaList:
		return "read media list"
	case StateDownloadSegment:
		return "download segment"
	case StateOpenSegment:
		return "open segment"
	case StateReadSegment:
		return "read segment"
	case StateNoStreamError:
		return "no stream error"
	case StateInStreamError:
		return "in-stream error"
	case StateMemoryError:
		return "memory error"
	case StateInternalError:
		return "internal error"
	default:
		return "unknown"
	}
}

// Failed reports whether the state is a terminal error.
func (s State) Failed() bool {
	switch s {
	case StateNoStreamError, StateInStreamError, StateMemoryError, StateInternalError:
		return true
	}
	return false
}
