package mpegts

import (
	"github.com/zsiec/helix/buffer"
	"github.com/zsiec/helix/es"
)

// parsePayloadPSI accumulates PSI section bytes for the node and, once
// the section is complete, walks the PAT or PMT entries. Table-walk
// errors stop consumption of the current section only; subsequent
// packets on the PID are still parsed.
func (d *Demuxer) parsePayloadPSI(node *pidNode, start bool) Result {
	if start {
		// pointer field offsets the start of the table data
		ptr := d.pkt.PullByte()
		d.pkt.Skip(int(ptr))
		if d.pkt.Overflow() {
			return ResultInvalidPacket
		}

		tableID := d.pkt.PullByte()
		sectionHeader := d.pkt.PullUint16()
		if sectionHeader&0x3000 != 0x3000 {
			return ResultInvalidPacket
		}
		hasSyntax := sectionHeader&0x8000 != 0
		sectionLength := int(sectionHeader & 0x0FFF)

		if node.buf != nil {
			node.buf.Release()
		}
		node.kind = kindPSI
		node.tableID = tableID
		node.hasSyntax = hasSyntax
		node.sectionDone = false
		node.buf = buffer.New(sectionLength, d.mem)
		if !node.buf.IsValid() {
			return ResultOutOfMemory
		}
	}

	if !node.buf.IsValid() {
		return ResultInternalError
	}
	if node.sectionDone {
		return ResultContinue
	}

	n := d.pkt.Size()
	if n > node.buf.Available() {
		n = node.buf.Available()
	}
	if moved := node.buf.PullFrom(d.pkt, n); moved != n {
		return ResultInternalError
	}
	if node.buf.Available() > 0 {
		return ResultContinue // expecting more section data
	}
	node.sectionDone = true

	if !node.hasSyntax {
		d.skipSection(node, ResultUnsupportedTable)
		return ResultContinue
	}

	buf := node.buf
	progID := buf.PullUint16()
	b := buf.PullByte()
	if b&0xC0 != 0xC0 {
		return ResultInvalidPacket
	}
	if b&0x01 != 0x01 {
		// section not yet current
		d.skipSection(node, ResultUnsupportedTable)
		return ResultContinue
	}
	buf.Skip(2) // section_number, last_section_number

	result := ResultContinue
	switch node.tableID {
	case tableIDPAT:
		// 4-byte PAT entries, trailing CRC32 excluded
		numPrograms := (buf.Size() - 4) / 4
		for i := 0; i < numPrograms && result == ResultContinue; i++ {
			result = d.parseSectionPAT(buf)
		}
	case tableIDPMT:
		result = d.parseSectionPMT(buf, progID)
	default:
		result = ResultUnsupportedTable
	}
	if result != ResultContinue {
		d.log.Debug("psi section skipped",
			"pid", node.pid, "table", node.tableID, "result", result.String())
	}

	buf.Skip(4) // CRC32, unchecked
	return ResultContinue
}

// skipSection drops a complete but unusable section, leaving the stream
// parseable. The next payload start on the PID reopens the node.
func (d *Demuxer) skipSection(node *pidNode, reason Result) {
	d.log.Debug("psi section skipped",
		"pid", node.pid, "table", node.tableID, "result", reason.String())
}

// parseSectionPAT reads one program association entry and registers a
// PSI node for the program's PMT PID.
func (d *Demuxer) parseSectionPAT(buf *buffer.Buffer) Result {
	progNum := buf.PullUint16()
	progPID := buf.PullUint16()
	if progPID&0xE000 != 0xE000 {
		return ResultInvalidPacket
	}
	progPID &= 0x1FFF

	pmtNode := d.createOrFindNode(progPID)
	pmtNode.kind = kindPSI
	pmtNode.progID = progNum
	pmtNode.tableID = 0
	pmtNode.hasSyntax = false
	return ResultContinue
}

// parseSectionPMT walks the program map's elementary stream entries,
// attaching a stream through the sink for each supported stream type.
func (d *Demuxer) parseSectionPMT(buf *buffer.Buffer, progID uint16) Result {
	pidPCR := buf.PullUint16()
	progInfoLen := buf.PullUint16()
	if pidPCR&0xE000 != 0xE000 {
		return ResultInvalidPacket
	}
	if progInfoLen&0xF000 != 0xF000 {
		return ResultInvalidPacket
	}
	buf.Skip(int(progInfoLen & 0x03FF))

	for buf.Size() > 4 { // 4 trailing bytes are the CRC32
		streamType := buf.PullByte()
		pidStream := buf.PullUint16()
		if pidStream&0xE000 != 0xE000 {
			return ResultInvalidPacket
		}
		pidStream &= 0x1FFF

		esDescLen := buf.PullUint16() & 0x03FF
		buf.Skip(int(esDescLen))

		if !supportedStreamType(streamType) {
			continue
		}

		node := d.createOrFindNode(pidStream)
		if node.kind == kindNull {
			node.kind = kindPES
			node.progID = progID
			node.hdrFlags = 0
			node.index = 0
		}
		stream := d.sink.GetStream(node.progID, node.index)
		if stream == nil {
			stream = d.sink.CreateStream(es.StreamType(streamType), node.progID)
			if stream != nil && d.stats != nil {
				d.stats.RecordStreamCreated(stream.Type(), node.progID)
			}
		}
		if stream == nil {
			return ResultOutOfMemory
		}
		node.index = stream.Index()
	}

	if buf.Size() != 4 {
		return ResultInvalidPacket
	}
	return ResultContinue
}
