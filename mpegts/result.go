package mpegts

// Result reports the outcome of a demuxer read pass or of parsing a
// single packet within one.
type Result int

const (
	// ResultComplete means the source was fully consumed and all PES
	// streams have been finalized.
	ResultComplete Result = iota
	// ResultTruncated means the source ended mid-packet.
	ResultTruncated
	// ResultContinue is internal: the current packet was consumed and
	// more input is expected.
	ResultContinue
	// ResultInvalidPacket means a sync, reserved-bit, or start-code
	// check failed. Fatal for the current source.
	ResultInvalidPacket
	// ResultIOError means the read source failed.
	ResultIOError
	// ResultOutOfMemory means a buffer allocation failed.
	ResultOutOfMemory
	// ResultStreamOverflow means an elementary stream buffer filled and
	// the sink declined to provide a replacement.
	ResultStreamOverflow
	// ResultUnsupportedTable means a PSI section other than PAT/PMT was
	// encountered.
	ResultUnsupportedTable
	// ResultUnsupported means a feature of the stream is not handled.
	ResultUnsupported
	// ResultInternalError indicates a demuxer invariant was violated.
	ResultInternalError
)

func (r Result) String() string {
	switch r {
	case ResultComplete:
		return "complete"
	case ResultTruncated:
		return "truncated"
	case ResultContinue:
		return "continue"
	case ResultInvalidPacket:
		return "invalid packet"
	case ResultIOError:
		return "io error"
	case ResultOutOfMemory:
		return "out of memory"
	case ResultStreamOverflow:
		return "stream overflow"
	case ResultUnsupportedTable:
		return "unsupported table"
	case ResultUnsupported:
		return "unsupported"
	case ResultInternalError:
		return "internal error"
	default:
		return "unknown"
	}
}

// Failed reports whether the result is fatal for the current source.
func (r Result) Failed() bool {
	switch r {
	case ResultComplete, ResultContinue:
		return false
	default:
		return true
	}
}
