// Package mpegts implements a streaming MPEG-2 transport stream
// demultiplexer per ISO/IEC 13818-1. It reassembles PSI sections
// (PAT/PMT) and PES packets from 188-byte packets keyed by PID and
// hands elementary stream payloads to a host-provided Sink, which owns
// stream storage policy.
package mpegts

import (
	"io"
	"log/slog"

	"github.com/zsiec/helix/buffer"
	"github.com/zsiec/helix/es"
)

// PacketSize is the fixed MPEG-TS packet length.
const PacketSize = 188

const (
	pidPAT  uint16 = 0x0000
	pidNull uint16 = 0x1FFF

	tableIDPAT uint8 = 0x00
	tableIDPMT uint8 = 0x02
)

// Sink receives demuxed elementary stream events. The demuxer never
// allocates stream storage itself; the four methods let the host attach,
// look up, flush, and rotate streams.
type Sink interface {
	// CreateStream is invoked on the first PMT reference to a supported
	// stream type. A nil return is treated as out of memory.
	CreateStream(typ es.StreamType, progID uint16) *es.Stream
	// GetStream resolves a previously created stream, or nil.
	GetStream(progID uint16, index uint8) *es.Stream
	// FinalizeStream marks end of input for a stream.
	FinalizeStream(progID uint16, index uint8)
	// OverflowStream gives the sink a chance to supply a larger or
	// rotated stream when an append would overflow. Returning nil
	// surfaces ResultStreamOverflow to the caller.
	OverflowStream(progID uint16, index uint8, needed int) *es.Stream
}

// StatsRecorder is the interface accepted by Demuxer for recording
// transport telemetry. All methods are invoked from the Read call.
type StatsRecorder interface {
	RecordPacket(pid uint16)
	RecordTransportError(pid uint16)
	RecordPESPayload(pid uint16, bytes int)
	RecordStreamCreated(typ es.StreamType, progID uint16)
}

type nodeKind int

const (
	kindNull nodeKind = iota
	kindPSI
	kindPES
)

// pidNode is the per-PID reassembly state. The node list is kept sorted
// by ascending PID.
type pidNode struct {
	pid  uint16
	kind nodeKind
	buf  *buffer.Buffer

	progID uint16

	// PSI
	tableID     uint8
	hasSyntax   bool
	sectionDone bool

	// PES
	hdrFlags uint16
	index    uint8
}

// Demuxer reassembles PSI and PES data from a transport stream. A
// Demuxer is reusable: each Read resets per-PID state, so a source that
// restates PAT/PMT (an HLS segment) builds its table state afresh.
type Demuxer struct {
	log   *slog.Logger
	sink  Sink
	mem   buffer.Memory
	stats StatsRecorder

	pkt     *buffer.Buffer
	nodes   []*pidNode
	syncCnt int
	skipCnt int
}

// NewDemuxer creates a demuxer delivering to sink. Buffers are drawn
// from mem. If log is nil, slog.Default() is used.
func NewDemuxer(sink Sink, mem buffer.Memory, log *slog.Logger) *Demuxer {
	if log == nil {
		log = slog.Default()
	}
	return &Demuxer{
		log:  log.With("component", "mpegts"),
		sink: sink,
		mem:  mem,
	}
}

// SetStats installs a telemetry recorder. Pass nil to disable.
func (d *Demuxer) SetStats(s StatsRecorder) { d.stats = s }

// PacketCount returns the number of packets with valid sync consumed by
// the most recent Read.
func (d *Demuxer) PacketCount() int { return d.syncCnt }

// SkipCount returns the number of packets dropped for transport errors
// by the most recent Read.
func (d *Demuxer) SkipCount() int { return d.skipCnt }

// Read consumes the buffered source packet by packet until it is
// exhausted or a packet fails to parse. On success all PES streams are
// finalized through the sink and ResultComplete is returned.
func (d *Demuxer) Read(in *buffer.Buffer) Result {
	return d.readLoop(func(pkt *buffer.Buffer) (int, error) {
		return pkt.PullFrom(in, PacketSize), nil
	})
}

// ReadFrom consumes packets from r until EOF or a parse failure.
func (d *Demuxer) ReadFrom(r io.Reader) Result {
	return d.readLoop(func(pkt *buffer.Buffer) (int, error) {
		return pkt.PushFromReader(r, PacketSize)
	})
}

func (d *Demuxer) readLoop(fill func(*buffer.Buffer) (int, error)) Result {
	if !d.pkt.IsValid() || d.pkt.Capacity() < PacketSize {
		d.pkt = buffer.New(PacketSize, d.mem)
		if !d.pkt.IsValid() {
			return ResultOutOfMemory
		}
	}

	d.reset()

	result := ResultContinue
	for result == ResultContinue {
		d.pkt.Reset()

		n, err := fill(d.pkt)
		switch {
		case err != nil:
			d.log.Debug("source read failed", "error", err)
			result = ResultIOError
		case n == 0:
			result = ResultComplete
		case n < PacketSize:
			result = ResultTruncated
		default:
			result = d.parsePacket()
		}
	}

	if result == ResultComplete {
		d.finalizeStreams()
	}
	return result
}

// reset drops all per-PID reassembly state.
func (d *Demuxer) reset() {
	d.syncCnt = 0
	d.skipCnt = 0
	for _, node := range d.nodes {
		if node.buf != nil {
			node.buf.Release()
		}
	}
	d.nodes = d.nodes[:0]
}

func (d *Demuxer) finalizeStreams() {
	for _, node := range d.nodes {
		if node.kind == kindPES {
			d.sink.FinalizeStream(node.progID, node.index)
		}
	}
}

func (d *Demuxer) parsePacket() Result {
	if b := d.pkt.PullByte(); b != 0x47 {
		return ResultInvalidPacket
	}
	d.syncCnt++

	word := d.pkt.PullUint16()
	pid := word & 0x1FFF
	payloadUnitStart := word&0x4000 != 0
	transportError := word&0x8000 != 0

	if d.stats != nil {
		d.stats.RecordPacket(pid)
	}
	if transportError {
		d.skipCnt++
		if d.stats != nil {
			d.stats.RecordTransportError(pid)
		}
		return ResultContinue
	}

	flags := d.pkt.PullByte()
	hasAdaptation := flags&0x20 != 0
	hasPayload := flags&0x10 != 0

	if pid == pidNull || !hasPayload {
		return ResultContinue
	}

	if hasAdaptation {
		adaptLen := d.pkt.PullByte()
		d.pkt.Skip(int(adaptLen))
		if d.pkt.Overflow() {
			return ResultInvalidPacket
		}
	}

	node := d.createOrFindNode(pid)
	if node.pid == pidPAT || node.kind == kindPSI {
		return d.parsePayloadPSI(node, payloadUnitStart)
	}
	if node.kind == kindPES {
		return d.parsePayloadPES(node, payloadUnitStart)
	}
	return ResultContinue
}

// createOrFindNode returns the reassembly node for pid, inserting a new
// node in PID order if needed. The PID space is small enough that a
// linear scan wins over anything fancier.
func (d *Demuxer) createOrFindNode(pid uint16) *pidNode {
	i := 0
	for i < len(d.nodes) && d.nodes[i].pid < pid {
		i++
	}
	if i < len(d.nodes) && d.nodes[i].pid == pid {
		return d.nodes[i]
	}
	node := &pidNode{pid: pid}
	d.nodes = append(d.nodes, nil)
	copy(d.nodes[i+1:], d.nodes[i:])
	d.nodes[i] = node
	return node
}

func supportedStreamType(streamType uint8) bool {
	switch es.StreamType(streamType) {
	case es.TypeH264, es.TypeAAC:
		return true
	}
	return false
}
