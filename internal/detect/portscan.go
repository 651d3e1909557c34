package detect

import (
	"fmt"
	"sort"

	"github.com/Delta-Sec/Z-Shark/internal/config"
	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/window"
	"github.com/Delta-Sec/Z-Shark/internal/zerrors"
)

// PortScanParams are the port_scan detector's configurable parameters
// (spec.md §4.6).
type PortScanParams struct {
	MinUniquePorts int     `mapstructure:"min_unique_ports"`
	MinPackets     int     `mapstructure:"min_packets"`
	IdleEvictionS  float64 `mapstructure:"idle_eviction_s"`
}

// DefaultPortScanParams returns spec.md §4.6's documented defaults.
func DefaultPortScanParams() PortScanParams {
	return PortScanParams{MinUniquePorts: 10, MinPackets: 5, IdleEvictionS: 300}
}

// PortScan is the stateful per-source unique-port-set port-scan
// detector (spec.md §4.6). Its scanHistory/lastSeen maps hold its
// cross-window mutable state, bounded by idle eviction,
// the same idle-timeout-keyed eviction idea the teacher applies to
// in-flight connections (decoder/packet/connection.go's flushConns).
type PortScan struct {
	params PortScanParams

	scanHistory map[string]map[int]struct{}
	lastSeen    map[string]float64
}

// NewPortScan builds a PortScan detector. Out-of-range params are
// rejected eagerly with a ConfigError rather than silently clamped
// (spec.md §7).
func NewPortScan(params PortScanParams) (*PortScan, error) {
	if params.MinUniquePorts <= 0 {
		return nil, zerrors.NewConfigError(string(config.EnginePortScan), "min_unique_ports must be positive")
	}
	if params.IdleEvictionS <= 0 {
		return nil, zerrors.NewConfigError(string(config.EnginePortScan), "idle_eviction_s must be positive")
	}

	return &PortScan{
		params:      params,
		scanHistory: make(map[string]map[int]struct{}),
		lastSeen:    make(map[string]float64),
	}, nil
}

func (p *PortScan) Name() string { return string(config.EnginePortScan) }

func (p *PortScan) Analyze(stats window.Stats, packets []packet.Packet) (detections []Detection) {
	defer recoverAnalyze(p.Name(), packets, &detections)

	endTS := float64(stats.EndTime.Unix())

	for _, pkt := range packets {
		ip, ok := pkt.IP()
		if !ok {
			continue
		}

		var dport int
		var havePort bool
		if tcp, ok := pkt.TCP(); ok {
			dport, havePort = int(tcp.DstPort), true
		} else if udp, ok := pkt.UDP(); ok {
			dport, havePort = int(udp.DstPort), true
		}
		if !havePort {
			continue
		}

		ports, ok := p.scanHistory[ip.Src]
		if !ok {
			ports = make(map[int]struct{})
			p.scanHistory[ip.Src] = ports
		}
		ports[dport] = struct{}{}
		p.lastSeen[ip.Src] = endTS
	}

	// visit sources in sorted order so detections come out deterministically.
	srcIPs := make([]string, 0, len(p.scanHistory))
	for srcIP := range p.scanHistory {
		srcIPs = append(srcIPs, srcIP)
	}
	sort.Strings(srcIPs)

	for _, srcIP := range srcIPs {
		ports := p.scanHistory[srcIP]
		lastSeen := p.lastSeen[srcIP]

		if endTS-lastSeen > p.params.IdleEvictionS {
			delete(p.scanHistory, srcIP)
			delete(p.lastSeen, srcIP)
			continue
		}

		uniquePorts := len(ports)
		if uniquePorts >= p.params.MinUniquePorts {
			severity := float64(uniquePorts-p.params.MinUniquePorts) / 20.0
			if severity > 1 {
				severity = 1
			}
			if severity < 0 {
				severity = 0
			}

			detections = append(detections, Detection{
				ModelName:     p.Name(),
				Timestamp:     stats.EndTime,
				Severity:      severity,
				Score:         float64(uniquePorts),
				Label:         "Port Scan Suspect (Stateful)",
				Justification: fmt.Sprintf("Source %s touched %d unique destination ports.", srcIP, uniquePorts),
				Evidence: map[string]interface{}{
					"source_ip":    srcIP,
					"unique_ports": uniquePorts,
				},
			})

			// coalesce: clear the set so the next window starts a fresh scan tally.
			for k := range ports {
				delete(ports, k)
			}
		}
	}

	return detections
}

func (p *PortScan) UpdateBaseline(_ window.Stats, _ []packet.Packet) {}
