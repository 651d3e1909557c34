// Package window implements the window processor and per-window
// statistics computation (spec.md §4.2, §4.3): packets are grouped into
// fixed-duration, non-overlapping windows with a hard cap
// on in-memory packet count, and each closed window's stats are
// computed before ownership of its packet list passes to the analyzer.
package window

import (
	"math"
	"strconv"
	"time"

	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/xlog"
)

var log = xlog.For("window")

// minDuration floors duration_s to avoid division by zero (spec.md §3).
const minDuration = 1e-6

// Stats is the per-window value object (spec.md §3 WindowStats).
type Stats struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	PacketCount int64   `json:"packet_count"`
	TotalBytes  int64   `json:"total_bytes"`
	DurationS   float64 `json:"duration_s"`
	PPS         float64 `json:"pps"`
	BPS         float64 `json:"bps"`

	SrcIPEntropy   float64 `json:"src_ip_entropy"`
	DstIPEntropy   float64 `json:"dst_ip_entropy"`
	DstPortEntropy float64 `json:"dst_port_entropy"`

	InterArrivalTimes []float64 `json:"inter_arrival_times"`
}

// Processor groups an incoming packet sequence into fixed-duration
// windows, capping the number of packets held in memory at once
// (spec.md §4.2). A Processor is single-use: construct one per
// analysis run.
type Processor struct {
	windowSizeS      float64
	maxWindowPackets int

	currentWindow       []packet.Packet
	windowStart         time.Time
	windowStartValid    bool
	droppedPacketsCount int
}

// DefaultMaxWindowPackets is the spec-documented default memory cap.
const DefaultMaxWindowPackets = 10000

// NewProcessor builds a Processor for the given window size (seconds).
// maxWindowPackets <= 0 selects DefaultMaxWindowPackets.
func NewProcessor(windowSizeS float64, maxWindowPackets int) *Processor {
	if maxWindowPackets <= 0 {
		maxWindowPackets = DefaultMaxWindowPackets
	}
	return &Processor{windowSizeS: windowSizeS, maxWindowPackets: maxWindowPackets}
}

// Window pairs a closed window's stats with the packets that produced
// them. Ownership of Packets passes to the caller; the Processor never
// touches this slice again.
type Window struct {
	Stats   Stats
	Packets []packet.Packet
}

// Process consumes the packet source (as returned by stream.Streamer.
// Packets) and invokes emit for each closed window, in window-close
// order, including the trailing partial window once the source is
// exhausted (spec.md §4.2 "flush the trailing non-empty window").
//
// emit returning false stops processing early, mirroring the
// range-over-func "stop iteration" contract without requiring Go 1.23
// range-over-func syntax at the call site.
func (p *Processor) Process(source func(yield func(packet.Packet) bool), emit func(Window) bool) {
	stop := false

	source(func(pkt packet.Packet) bool {
		t := pkt.Timestamp()
		if t.IsZero() {
			// timestamp could not be established; skip silently (spec.md §4.2).
			return true
		}

		if !p.windowStartValid {
			p.windowStart = t
			p.windowStartValid = true
		}

		if !t.Before(p.windowStart.Add(time.Duration(p.windowSizeS * float64(time.Second)))) {
			if w, ok := p.closeWindow(); ok {
				if !emit(w) {
					stop = true
					return false
				}
			}

			p.currentWindow = []packet.Packet{pkt}
			p.windowStart = t
			p.droppedPacketsCount = 0

			return true
		}

		if len(p.currentWindow) < p.maxWindowPackets {
			p.currentWindow = append(p.currentWindow, pkt)
		} else {
			p.droppedPacketsCount++
		}

		return true
	})

	if stop {
		return
	}

	if w, ok := p.closeWindow(); ok {
		emit(w)
	}
}

// closeWindow computes Stats for the current packet list using the
// nominal window bounds: StartTime is the window's start (the timestamp
// of the packet that opened it) and EndTime is StartTime plus the window
// size (spec.md §4.2 step 2). Windows never overlap; a window starts at
// the previous window's EndTime only when a packet arrives exactly at
// that boundary, so a quiet stretch leaves a gap between windows.
func (p *Processor) closeWindow() (Window, bool) {
	if len(p.currentWindow) == 0 {
		return Window{}, false
	}

	if p.droppedPacketsCount > 0 {
		log.Warnw("window overloaded, dropped packets", "dropped", p.droppedPacketsCount)
	}

	stats := computeStats(p.currentWindow)
	stats.StartTime = p.windowStart
	stats.EndTime = p.windowStart.Add(time.Duration(p.windowSizeS * float64(time.Second)))

	return Window{Stats: stats, Packets: p.currentWindow}, true
}

// computeStats computes the internal (observed-timestamp) portion of
// Stats from a non-empty packet list (spec.md §4.3). StartTime/EndTime
// are overwritten by the caller with the nominal window bounds.
func computeStats(packets []packet.Packet) Stats {
	first := packets[0].Timestamp()
	last := packets[len(packets)-1].Timestamp()

	duration := last.Sub(first).Seconds()
	if duration < minDuration {
		duration = minDuration
	}

	var totalBytes int64

	srcIPs := make([]string, 0, len(packets))
	dstIPs := make([]string, 0, len(packets))
	dstPorts := make([]string, 0, len(packets))
	iats := make([]float64, 0, len(packets))

	prev := first
	for _, pkt := range packets {
		totalBytes += int64(pkt.Length())

		if ip, ok := pkt.IP(); ok {
			srcIPs = append(srcIPs, ip.Src)
			dstIPs = append(dstIPs, ip.Dst)
		}

		if tcp, ok := pkt.TCP(); ok {
			dstPorts = append(dstPorts, portKey(int(tcp.DstPort)))
		} else if udp, ok := pkt.UDP(); ok {
			dstPorts = append(dstPorts, portKey(int(udp.DstPort)))
		}

		t := pkt.Timestamp()
		iats = append(iats, t.Sub(prev).Seconds())
		prev = t
	}

	packetCount := int64(len(packets))

	return Stats{
		PacketCount:       packetCount,
		TotalBytes:        totalBytes,
		DurationS:         duration,
		PPS:               float64(packetCount) / duration,
		BPS:               float64(totalBytes) * 8 / duration,
		SrcIPEntropy:      ShannonEntropy(srcIPs),
		DstIPEntropy:      ShannonEntropy(dstIPs),
		DstPortEntropy:    ShannonEntropy(dstPorts),
		InterArrivalTimes: iats,
	}
}

func portKey(p int) string {
	return strconv.Itoa(p)
}

// ShannonEntropy computes the base-2 Shannon entropy of the given
// multiset of categorical values (spec.md §4.3, §8 unit laws). The
// entropy of the empty multiset is 0.
func ShannonEntropy(values []string) float64 {
	if len(values) == 0 {
		return 0
	}

	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	total := float64(len(values))
	entropy := 0.0

	for _, c := range counts {
		pr := float64(c) / total
		entropy -= pr * math.Log2(pr)
	}

	return entropy
}
