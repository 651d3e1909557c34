// Package metrics exposes prometheus counters/gauges for the analysis
// pipeline, mirroring the teacher's per-audit-record Inc()/ExportMetrics
// hook (decoder/ipProfile.go) but pointed at the analysis domain: packets
// processed, windows closed, packets dropped, detections emitted per
// label. Registration uses a private registry so creating multiple
// Analyzer instances in the same process (e.g. in tests) never panics
// on duplicate registration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Recorder bundles the metric handles one Analyzer run increments.
type Recorder struct {
	Registry *prometheus.Registry

	PacketsProcessed prometheus.Counter
	WindowsTotal     prometheus.Counter
	PacketsDropped   prometheus.Counter
	Detections       *prometheus.CounterVec
}

// NewRecorder builds a fresh, independently-registered Recorder.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		Registry: reg,
		PacketsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zshark_packets_processed_total",
			Help: "Total packets consumed from the capture stream.",
		}),
		WindowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zshark_windows_total",
			Help: "Total time windows closed by the window processor.",
		}),
		PacketsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zshark_packets_dropped_total",
			Help: "Total packets dropped due to the per-window memory cap.",
		}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zshark_detections_total",
			Help: "Total detections emitted, by label.",
		}, []string{"label"}),
	}

	reg.MustRegister(r.PacketsProcessed, r.WindowsTotal, r.PacketsDropped, r.Detections)

	return r
}

// Snapshot renders the current counter values into a plain map, suitable
// for embedding into AnalysisResult.ModelStats without requiring a
// consumer to understand prometheus types.
func (r *Recorder) Snapshot() map[string]interface{} {
	out := map[string]interface{}{
		"packets_processed": counterValue(r.PacketsProcessed),
		"windows_total":      counterValue(r.WindowsTotal),
		"packets_dropped":    counterValue(r.PacketsDropped),
	}

	labels := map[string]float64{}
	metricChan := make(chan prometheus.Metric, 64)
	r.Detections.Collect(metricChan)
	close(metricChan)

	for m := range metricChan {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			continue
		}
		label := ""
		for _, lp := range pb.GetLabel() {
			if lp.GetName() == "label" {
				label = lp.GetValue()
			}
		}
		if label != "" {
			labels[label] = pb.GetCounter().GetValue()
		}
	}
	out["detections_by_label"] = labels

	return out
}

func counterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
