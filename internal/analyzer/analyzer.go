// Package analyzer implements the pipeline orchestrator (spec.md §2,
// §4): it drives the packet streamer through the window processor, runs
// every enabled detector against each closed window in registration
// order, accumulates global aggregates from the same window packet
// lists, and — once the stream ends — fuses all detections into the
// final AnalysisResult.
//
// The orchestration shape follows the teacher's
// InitGoPacketDecoders/connection-flush pattern
// (decoder/gopacketDecoder.go, decoder/packet/connection.go): a fixed
// set of named handlers is driven to completion over a bounded input,
// with per-handler state kept private and flushed at the end of a run.
package analyzer

import (
	"sort"
	"time"

	"github.com/Delta-Sec/Z-Shark/internal/config"
	"github.com/Delta-Sec/Z-Shark/internal/detect"
	"github.com/Delta-Sec/Z-Shark/internal/metrics"
	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/stream"
	"github.com/Delta-Sec/Z-Shark/internal/window"
	"github.com/Delta-Sec/Z-Shark/internal/xlog"
)

var log = xlog.For("analyzer")

// IPCount is one entry of AnalysisResult.TopSourceIPs.
type IPCount struct {
	IP      string `json:"ip"`
	Packets int64  `json:"packets"`
	Bytes   int64  `json:"bytes"`
}

// PortCount is one entry of AnalysisResult.TopDestPorts.
type PortCount struct {
	Port    int   `json:"port"`
	Packets int64 `json:"packets"`
	Bytes   int64 `json:"bytes"`
}

// AnalysisResult is the engine's final output (spec.md §3).
type AnalysisResult struct {
	PCAPPath     string    `json:"pcap_path"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	TotalPackets int64     `json:"total_packets"`
	TotalBytes   int64     `json:"total_bytes"`

	Detections   []detect.Detection `json:"detections"`
	WindowStats  []window.Stats     `json:"window_stats"`
	TopSourceIPs []IPCount          `json:"top_source_ips"`
	TopDestPorts []PortCount        `json:"top_dest_ports"`

	SummaryStats map[string]interface{} `json:"summary_stats"`
	// ModelStats is an additive field carrying the run's prometheus
	// counter snapshot; it does not replace anything spec.md names.
	ModelStats map[string]interface{} `json:"model_stats"`
}

// Analyzer drives one analysis run. Detector state is private to an
// Analyzer instance and must never be shared across runs or goroutines
// (spec.md §5 "Shared resources").
type Analyzer struct {
	cfg      *config.Config
	registry *detect.Registry
	recorder *metrics.Recorder
}

// New builds an Analyzer from cfg, constructing and configuring all
// five detectors. Returns a ConfigError if cfg fails validation or a
// detector's params cannot be decoded.
func New(cfg *config.Config) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	return &Analyzer{cfg: cfg, registry: registry, recorder: metrics.NewRecorder()}, nil
}

func buildRegistry(cfg *config.Config) (*detect.Registry, error) {
	var detectors []detect.Detector

	if m, ok := enabled(cfg, config.EngineDDoSVolume); ok {
		params := detect.DefaultDDoSParams()
		if err := config.DecodeParams(config.EngineDDoSVolume, m.Params, &params); err != nil {
			return nil, err
		}
		d, err := detect.NewDDoS(params)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, d)
	}

	if m, ok := enabled(cfg, config.EnginePortScan); ok {
		params := detect.DefaultPortScanParams()
		if err := config.DecodeParams(config.EnginePortScan, m.Params, &params); err != nil {
			return nil, err
		}
		d, err := detect.NewPortScan(params)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, d)
	}

	if m, ok := enabled(cfg, config.EngineARPSpoof); ok {
		params := detect.DefaultARPSpoofParams()
		if err := config.DecodeParams(config.EngineARPSpoof, m.Params, &params); err != nil {
			return nil, err
		}
		d, err := detect.NewARPSpoof(params)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, d)
	}

	if m, ok := enabled(cfg, config.EngineDNSAnomaly); ok {
		params := detect.DefaultDNSAnomalyParams()
		if err := config.DecodeParams(config.EngineDNSAnomaly, m.Params, &params); err != nil {
			return nil, err
		}
		d, err := detect.NewDNSAnomaly(params)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, d)
	}

	if m, ok := enabled(cfg, config.EngineBeaconing); ok {
		params := detect.DefaultBeaconingParams()
		if err := config.DecodeParams(config.EngineBeaconing, m.Params, &params); err != nil {
			return nil, err
		}
		d, err := detect.NewBeaconing(params)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, d)
	}

	return detect.NewRegistry(detectors...), nil
}

func enabled(cfg *config.Config, id config.EngineID) (config.ModelConfig, bool) {
	m, ok := cfg.Models[id]
	if !ok {
		m = config.Default().Models[id]
	}
	return m, m.Enabled
}

// AnalyzePCAP runs the full pipeline against path: stream -> window ->
// detect -> aggregate -> fuse.
func (a *Analyzer) AnalyzePCAP(path string) (*AnalysisResult, error) {
	s, err := stream.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	proc := window.NewProcessor(a.cfg.WindowSizeS(), window.DefaultMaxWindowPackets)

	result := &AnalysisResult{
		PCAPPath:     path,
		SummaryStats: map[string]interface{}{},
	}

	sourceIPStats := map[string]*IPCount{}
	destPortStats := map[int]*PortCount{}

	var allDetections []detect.Detection
	var first, last time.Time

	proc.Process(s.Packets(), func(w window.Window) bool {
		result.WindowStats = append(result.WindowStats, w.Stats)
		result.TotalPackets += w.Stats.PacketCount
		result.TotalBytes += w.Stats.TotalBytes

		a.recorder.WindowsTotal.Inc()
		a.recorder.PacketsProcessed.Add(float64(w.Stats.PacketCount))

		if first.IsZero() {
			first = w.Stats.StartTime
		}
		last = w.Stats.EndTime

		for _, d := range a.registry.Detectors() {
			dets := d.Analyze(w.Stats, w.Packets)
			for _, det := range dets {
				a.recorder.Detections.WithLabelValues(det.Label).Inc()
			}
			allDetections = append(allDetections, dets...)
		}

		accumulateAggregates(w.Packets, sourceIPStats, destPortStats)

		return true
	})

	result.StartTime = first
	result.EndTime = last

	result.Detections = detect.Fuse(allDetections)
	result.TopSourceIPs = topSourceIPs(sourceIPStats)
	result.TopDestPorts = topDestPorts(destPortStats)

	result.SummaryStats["total_packets"] = result.TotalPackets
	result.SummaryStats["total_bytes"] = result.TotalBytes
	result.ModelStats = a.recorder.Snapshot()

	log.Infow("analysis complete", "packets", result.TotalPackets, "detections", len(result.Detections))

	return result, nil
}

func accumulateAggregates(packets []packet.Packet, srcIPs map[string]*IPCount, dstPorts map[int]*PortCount) {
	for _, pkt := range packets {
		length := int64(pkt.Length())

		if ip, ok := pkt.IP(); ok {
			c, ok := srcIPs[ip.Src]
			if !ok {
				c = &IPCount{IP: ip.Src}
				srcIPs[ip.Src] = c
			}
			c.Packets++
			c.Bytes += length
		}

		var dport int
		var havePort bool
		if tcp, ok := pkt.TCP(); ok {
			dport, havePort = int(tcp.DstPort), true
		} else if udp, ok := pkt.UDP(); ok {
			dport, havePort = int(udp.DstPort), true
		}

		if havePort {
			c, ok := dstPorts[dport]
			if !ok {
				c = &PortCount{Port: dport}
				dstPorts[dport] = c
			}
			c.Packets++
			c.Bytes += length
		}
	}
}

func topSourceIPs(stats map[string]*IPCount) []IPCount {
	out := make([]IPCount, 0, len(stats))
	for _, c := range stats {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Packets != out[j].Packets {
			return out[i].Packets > out[j].Packets
		}
		return out[i].IP < out[j].IP
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func topDestPorts(stats map[int]*PortCount) []PortCount {
	out := make([]PortCount, 0, len(stats))
	for _, c := range stats {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Packets != out[j].Packets {
			return out[i].Packets > out[j].Packets
		}
		return out[i].Port < out[j].Port
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}
