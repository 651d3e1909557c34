package detect

import (
	"fmt"
	"sort"

	"github.com/Delta-Sec/Z-Shark/internal/config"
	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/window"
	"github.com/Delta-Sec/Z-Shark/internal/zerrors"
)

// ARPSpoofParams are the arp_spoof detector's configurable parameters
// (spec.md §4.7).
type ARPSpoofParams struct {
	MaxGratuitousARPPerWindow int     `mapstructure:"max_gratuitous_arp_per_window"`
	IdleEvictionS             float64 `mapstructure:"idle_eviction_s"`
}

// DefaultARPSpoofParams returns spec.md §4.7's documented defaults.
func DefaultARPSpoofParams() ARPSpoofParams {
	return ARPSpoofParams{MaxGratuitousARPPerWindow: 5, IdleEvictionS: 600}
}

// ARPSpoof tracks the IP<->MAC binding table and gratuitous-ARP rate
// to flag MAC-conflict spoofing and ARP floods (spec.md §4.7).
type ARPSpoof struct {
	params ARPSpoofParams

	ipMAC    map[string]string
	lastSeen map[string]float64
}

// NewARPSpoof builds an ARPSpoof detector. Out-of-range params are
// rejected eagerly with a ConfigError rather than silently clamped
// (spec.md §7).
func NewARPSpoof(params ARPSpoofParams) (*ARPSpoof, error) {
	if params.MaxGratuitousARPPerWindow <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineARPSpoof), "max_gratuitous_arp_per_window must be positive")
	}
	if params.IdleEvictionS <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineARPSpoof), "idle_eviction_s must be positive")
	}

	return &ARPSpoof{
		params:   params,
		ipMAC:    make(map[string]string),
		lastSeen: make(map[string]float64),
	}, nil
}

func (a *ARPSpoof) Name() string { return string(config.EngineARPSpoof) }

func (a *ARPSpoof) Analyze(stats window.Stats, packets []packet.Packet) (detections []Detection) {
	defer recoverAnalyze(a.Name(), packets, &detections)

	gratuitousCount := make(map[string]int)
	endTS := float64(stats.EndTime.Unix())

	for _, pkt := range packets {
		arp, ok := pkt.ARP()
		if !ok {
			continue
		}

		if existing, bound := a.ipMAC[arp.SrcIP]; bound && existing != arp.SrcMAC && arp.SrcMAC != "" {
			detections = append(detections, Detection{
				ModelName:     a.Name(),
				Timestamp:     stats.EndTime,
				Severity:      1.0,
				Score:         1.0,
				Label:         "ARP Spoofing Detected (MAC Conflict)",
				Justification: fmt.Sprintf("IP %s changed binding from MAC %s to %s.", arp.SrcIP, existing, arp.SrcMAC),
				Evidence: map[string]interface{}{
					"ip":      arp.SrcIP,
					"old_mac": existing,
					"new_mac": arp.SrcMAC,
				},
			})
			a.ipMAC[arp.SrcIP] = arp.SrcMAC
		}

		if arp.Op == packet.ARPReply && arp.SrcIP == arp.DstIP && arp.SrcIP != "" {
			gratuitousCount[arp.SrcIP]++
		}

		a.lastSeen[arp.SrcIP] = endTS
	}

	// bind any senders not already bound, after the conflict check above
	// so a first sighting never triggers a spurious conflict.
	for _, pkt := range packets {
		arp, ok := pkt.ARP()
		if !ok || arp.SrcMAC == "" || arp.SrcIP == "" {
			continue
		}
		if _, bound := a.ipMAC[arp.SrcIP]; !bound {
			a.ipMAC[arp.SrcIP] = arp.SrcMAC
		}
	}

	// visit IPs in sorted order so detections come out deterministically.
	gratuitousIPs := make([]string, 0, len(gratuitousCount))
	for ip := range gratuitousCount {
		gratuitousIPs = append(gratuitousIPs, ip)
	}
	sort.Strings(gratuitousIPs)

	for _, ip := range gratuitousIPs {
		count := gratuitousCount[ip]
		if count > a.params.MaxGratuitousARPPerWindow {
			severity := float64(count-a.params.MaxGratuitousARPPerWindow) / 5.0
			if severity > 1 {
				severity = 1
			}

			detections = append(detections, Detection{
				ModelName:     a.Name(),
				Timestamp:     stats.EndTime,
				Severity:      severity,
				Score:         float64(count),
				Label:         "Excessive Gratuitous ARP",
				Justification: fmt.Sprintf("IP %s sent %d gratuitous ARP replies, exceeding %d.", ip, count, a.params.MaxGratuitousARPPerWindow),
				Evidence: map[string]interface{}{
					"ip":    ip,
					"count": count,
				},
			})
		}
	}

	for ip, last := range a.lastSeen {
		if endTS-last > a.params.IdleEvictionS {
			delete(a.lastSeen, ip)
			delete(a.ipMAC, ip)
		}
	}

	return detections
}

func (a *ARPSpoof) UpdateBaseline(_ window.Stats, _ []packet.Packet) {}
