package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const pipelineSubsystem = "pipeline"

var (
	stateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, pipelineSubsystem, "state"),
		"Current pipeline state (1 for the active state)",
		[]string{"state"}, nil,
	)
	segmentIndexDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, pipelineSubsystem, "segment_index"),
		"Index of the segment being fetched",
		nil, nil,
	)
	packetsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, pipelineSubsystem, "segment_packets"),
		"Transport packets parsed from the most recent segment",
		nil, nil,
	)
	skippedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, pipelineSubsystem, "segment_skipped_packets"),
		"Transport packets skipped in the most recent segment",
		nil, nil,
	)
)

// PipelineSnapshot is one sample of the pipeline's observable state.
type PipelineSnapshot struct {
	State        string
	SegmentIndex int
	PacketCount  int
	SkipCount    int
}

// PipelineExporter collects pipeline metrics on scrape from a snapshot
// function, keeping the single-threaded pipeline free of locks. The
// snapshot function must be safe to call from the scrape goroutine;
// hosts typically publish snapshots through a small mutex or atomic.
// It implements prometheus.Collector.
type PipelineExporter struct {
	snapshot func() PipelineSnapshot
}

func NewPipelineExporter(snapshot func() PipelineSnapshot) *PipelineExporter {
	return &PipelineExporter{snapshot: snapshot}
}

// Describe implements prometheus.Collector.
func (e *PipelineExporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- stateDesc
	ch <- segmentIndexDesc
	ch <- packetsDesc
	ch <- skippedDesc
}

// Collect implements prometheus.Collector.
func (e *PipelineExporter) Collect(ch chan<- prometheus.Metric) {
	snap := e.snapshot()
	ch <- prometheus.MustNewConstMetric(stateDesc, prometheus.GaugeValue, 1, snap.State)
	ch <- prometheus.MustNewConstMetric(segmentIndexDesc, prometheus.GaugeValue, float64(snap.SegmentIndex))
	ch <- prometheus.MustNewConstMetric(packetsDesc, prometheus.GaugeValue, float64(snap.PacketCount))
	ch <- prometheus.MustNewConstMetric(skippedDesc, prometheus.GaugeValue, float64(snap.SkipCount))
}
