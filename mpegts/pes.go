package mpegts

import "github.com/zsiec/helix/buffer"

const (
	streamIDPadding  = 0xBE
	streamIDPrivate2 = 0xBF
)

// parsePayloadPES reassembles the optional PES header for the node and
// appends the remaining packet payload to the elementary stream. The
// padding and private-2 stream ids carry no optional header.
func (d *Demuxer) parsePayloadPES(node *pidNode, start bool) Result {
	stream := d.sink.GetStream(node.progID, node.index)
	if stream == nil {
		return ResultContinue
	}

	frameBegin := start
	if start {
		startCode := d.pkt.PullUint32()
		if startCode&0xFFFFFF00 != 0x00000100 {
			return ResultInvalidPacket
		}
		streamID := uint8(startCode)
		stream.UpdateStreamID(streamID)
		d.pkt.Skip(2) // PES packet length

		if streamID != streamIDPadding && streamID != streamIDPrivate2 {
			headerFlags := d.pkt.PullUint16()
			if headerFlags&0xC000 != 0x8000 {
				return ResultInvalidPacket
			}
			if headerFlags&0x3000 != 0x0000 {
				return ResultInvalidPacket
			}
			node.hdrFlags = headerFlags

			hdrLen := int(d.pkt.PullByte())
			if hdrLen > 0 {
				if node.buf.IsValid() && node.buf.Capacity() >= hdrLen {
					node.buf.Reset()
				} else {
					if node.buf != nil {
						node.buf.Release()
					}
					node.buf = buffer.New(hdrLen, d.mem)
					if !node.buf.IsValid() {
						return ResultOutOfMemory
					}
				}
			}
		}
	}

	if node.buf.IsValid() && node.buf.Available() > 0 {
		frameBegin = true
		n := node.buf.Available()
		if n > d.pkt.Size() {
			n = d.pkt.Size()
		}
		node.buf.PullFrom(d.pkt, n)

		if node.buf.Available() > 0 {
			return ResultContinue // header spans another packet
		}

		switch node.hdrFlags & 0x00C0 {
		case 0x0080:
			stream.UpdatePTS(pullTimecode(node.buf))
		case 0x00C0:
			stream.UpdatePTSDTS(pullTimecode(node.buf), pullTimecode(node.buf))
		}
	}

	payload := d.pkt.Size()
	short := stream.AppendPayload(d.pkt, payload, frameBegin)
	if short > 0 {
		// let the sink hand us a rotated or larger stream
		stream = d.sink.OverflowStream(node.progID, node.index, short)
		if stream != nil {
			short = stream.AppendPayload(d.pkt, d.pkt.Size(), frameBegin)
		}
		if stream == nil || short > 0 {
			return ResultStreamOverflow
		}
	}
	if d.stats != nil && payload > 0 {
		d.stats.RecordPESPayload(node.pid, payload)
	}
	return ResultContinue
}
