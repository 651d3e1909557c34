package detect

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/Delta-Sec/Z-Shark/internal/config"
	"github.com/Delta-Sec/Z-Shark/internal/flow"
	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/window"
	"github.com/Delta-Sec/Z-Shark/internal/zerrors"
)

// BeaconingParams are the beaconing detector's configurable parameters
// (spec.md §4.9).
type BeaconingParams struct {
	HistorySize            int     `mapstructure:"history_size"`
	FFTThreshold           float64 `mapstructure:"fft_threshold"`
	MaxIATs                float64 `mapstructure:"max_iat_s"`
	IdleEvictionS          float64 `mapstructure:"idle_eviction_s"`
	CleanupIntervalPackets int     `mapstructure:"cleanup_interval_packets"`
}

// DefaultBeaconingParams returns spec.md §4.9's documented defaults.
func DefaultBeaconingParams() BeaconingParams {
	return BeaconingParams{
		HistorySize:            100,
		FFTThreshold:           0.5,
		MaxIATs:                10.0,
		IdleEvictionS:          300,
		CleanupIntervalPackets: 1000,
	}
}

type flowState struct {
	iats           *ring
	lastPacketTime float64
	haveLast       bool
}

// Beaconing flags periodic, FFT-detectable communication per flow
// (spec.md §4.9; the per-flow variant is the spec-definitive one, see
// spec.md §9 open question — the non-per-flow deque variant some
// implementations carry is intentionally not reproduced here).
type Beaconing struct {
	params BeaconingParams

	flows          map[string]*flowState
	packetsSeen    int
}

// NewBeaconing builds a Beaconing detector. Out-of-range params are
// rejected eagerly with a ConfigError rather than silently clamped
// (spec.md §7).
func NewBeaconing(params BeaconingParams) (*Beaconing, error) {
	if params.HistorySize <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineBeaconing), "history_size must be positive")
	}
	if params.FFTThreshold <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineBeaconing), "fft_threshold must be positive")
	}
	if params.MaxIATs <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineBeaconing), "max_iat_s must be positive")
	}
	if params.IdleEvictionS <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineBeaconing), "idle_eviction_s must be positive")
	}
	if params.CleanupIntervalPackets <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineBeaconing), "cleanup_interval_packets must be positive")
	}

	return &Beaconing{params: params, flows: make(map[string]*flowState)}, nil
}

func (b *Beaconing) Name() string { return string(config.EngineBeaconing) }

func (b *Beaconing) Analyze(stats window.Stats, packets []packet.Packet) (detections []Detection) {
	defer recoverAnalyze(b.Name(), packets, &detections)

	for _, pkt := range packets {
		key := flowKeyOf(pkt)
		if key == "" {
			continue
		}

		t := float64(pkt.Timestamp().UnixNano()) / 1e9

		fs, ok := b.flows[key]
		if !ok {
			fs = &flowState{iats: newRing(b.params.HistorySize)}
			b.flows[key] = fs
		}

		if fs.haveLast {
			iat := t - fs.lastPacketTime
			if iat < b.params.MaxIATs {
				fs.iats.push(iat)
			}
		}
		fs.lastPacketTime = t
		fs.haveLast = true

		b.packetsSeen++
		if b.packetsSeen%b.params.CleanupIntervalPackets == 0 {
			b.evictIdle(t)
		}
	}

	// visit flows in sorted order so detections come out deterministically.
	keys := make([]string, 0, len(b.flows))
	for key := range b.flows {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fs := b.flows[key]
		if !fs.iats.full() {
			continue
		}

		samples := fs.iats.values()
		peakMag := beaconingPeak(samples)

		if peakMag > b.params.FFTThreshold {
			severity := peakMag / b.params.FFTThreshold
			if severity > 1 {
				severity = 1
			}

			detections = append(detections, Detection{
				ModelName:     b.Name(),
				Timestamp:     stats.EndTime,
				Severity:      severity,
				Score:         peakMag,
				Label:         "C2 Beaconing Suspect (FFT)",
				Justification: fmt.Sprintf("Flow %s shows a periodic IAT spectrum peak of magnitude %.3f.", key, peakMag),
				Evidence: map[string]interface{}{
					"flow_key":       key,
					"peak_magnitude": peakMag,
				},
				FlowKey: key,
			})

			fs.iats.clear()
			fs.haveLast = false
		}
	}

	return detections
}

func (b *Beaconing) UpdateBaseline(_ window.Stats, _ []packet.Packet) {}

func (b *Beaconing) evictIdle(now float64) {
	for key, fs := range b.flows {
		if now-fs.lastPacketTime > b.params.IdleEvictionS {
			delete(b.flows, key)
		}
	}
}

// beaconingPeak computes the FFT of the mean-removed IAT vector and
// returns the magnitude of its strongest non-DC frequency component
// (spec.md §4.9 steps 1-3).
func beaconingPeak(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)

	centered := make([]float64, n)
	for i, v := range x {
		centered[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, centered)

	half := n / 2
	peakMag := 0.0

	for k := 1; k <= half; k++ {
		mag := (2.0 / float64(n)) * cmplxAbs(coeffs[k])
		if mag > peakMag {
			peakMag = mag
		}
	}

	return peakMag
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// flowKeyOf derives the bidirectional flow key for a packet, honoring
// the protocol's actual ports when present (spec.md §3 flow key).
func flowKeyOf(pkt packet.Packet) string {
	ip, ok := pkt.IP()
	if !ok {
		return ""
	}

	srcPort, dstPort := flow.NoPort, flow.NoPort
	proto := ip.Proto

	if tcp, ok := pkt.TCP(); ok {
		srcPort, dstPort = int(tcp.SrcPort), int(tcp.DstPort)
	} else if udp, ok := pkt.UDP(); ok {
		srcPort, dstPort = int(udp.SrcPort), int(udp.DstPort)
	}

	return flow.Key(ip.Src, ip.Dst, srcPort, dstPort, proto)
}
