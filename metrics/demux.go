// Package metrics exposes the ingest core's telemetry as Prometheus
// collectors: per-PID transport counters recorded inline by the demuxer
// and a pipeline exporter that samples the HLS state machine on scrape.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zsiec/helix/es"
)

// Namespace prefixes all metric names.
const Namespace = "helix"

const demuxSubsystem = "demux"

// DemuxStats records transport demuxer telemetry into Prometheus
// counters. It implements mpegts.StatsRecorder.
type DemuxStats struct {
	packets         *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	pesBytes        *prometheus.CounterVec
	streamsCreated  *prometheus.CounterVec
}

// NewDemuxStats creates the demux counters and registers them with reg.
func NewDemuxStats(reg prometheus.Registerer) *DemuxStats {
	s := &DemuxStats{
		packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: demuxSubsystem,
			Name:      "packets_total",
			Help:      "transport packets parsed, by PID",
		}, []string{"pid"}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: demuxSubsystem,
			Name:      "transport_errors_total",
			Help:      "transport packets dropped for the error indicator, by PID",
		}, []string{"pid"}),
		pesBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: demuxSubsystem,
			Name:      "pes_payload_bytes_total",
			Help:      "PES payload bytes delivered to elementary streams, by PID",
		}, []string{"pid"}),
		streamsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: demuxSubsystem,
			Name:      "streams_created_total",
			Help:      "elementary streams attached from PMT entries, by codec",
		}, []string{"codec"}),
	}
	reg.MustRegister(s.packets, s.transportErrors, s.pesBytes, s.streamsCreated)
	return s
}

func pidLabel(pid uint16) string {
	return "0x" + strconv.FormatUint(uint64(pid), 16)
}

func (s *DemuxStats) RecordPacket(pid uint16) {
	s.packets.WithLabelValues(pidLabel(pid)).Inc()
}

func (s *DemuxStats) RecordTransportError(pid uint16) {
	s.transportErrors.WithLabelValues(pidLabel(pid)).Inc()
}

func (s *DemuxStats) RecordPESPayload(pid uint16, bytes int) {
	s.pesBytes.WithLabelValues(pidLabel(pid)).Add(float64(bytes))
}

func (s *DemuxStats) RecordStreamCreated(typ es.StreamType, progID uint16) {
	s.streamsCreated.WithLabelValues(typ.String()).Inc()
}
