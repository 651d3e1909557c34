// Package packet provides a narrow accessor view over a decoded
// gopacket.Packet, so that detectors never need to know about gopacket's
// layer-lookup machinery directly.
//
// This mirrors the layer-dispatch style of a gopacket-based decoder
// pipeline: callers ask "do you have an IP layer" and get an optional
// structured view back, instead of type-asserting gopacket layers
// themselves.
package packet

import (
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// IPView is the subset of an IP layer the analysis engine cares about.
type IPView struct {
	Src   string
	Dst   string
	Proto string
}

// TCPView is the subset of a TCP layer the analysis engine cares about.
type TCPView struct {
	SrcPort uint16
	DstPort uint16
}

// UDPView is the subset of a UDP layer the analysis engine cares about.
type UDPView struct {
	SrcPort uint16
	DstPort uint16
}

// ARPOp mirrors the gopacket ARP opcode space; only Request/Reply matter
// to the spoof detector.
type ARPOp uint16

const (
	ARPRequest ARPOp = 1
	ARPReply   ARPOp = 2
)

// ARPView is the subset of an ARP layer the spoof detector needs.
type ARPView struct {
	Op      ARPOp
	SrcIP   string
	DstIP   string // "target" IP (pdst)
	SrcMAC  string
}

// DNSQuestion is a single DNS question-section entry.
type DNSQuestion struct {
	Name string
}

// DNSView is the subset of a DNS layer the anomaly detector needs.
type DNSView struct {
	IsQuery   bool
	Questions []DNSQuestion
}

// Packet is the uniform accessor contract every detector codes against.
// Layer presence is queryable via the boolean return; absence is never
// an error.
type Packet interface {
	Timestamp() time.Time
	Length() int

	IP() (IPView, bool)
	TCP() (TCPView, bool)
	UDP() (UDPView, bool)
	ARP() (ARPView, bool)
	DNS() (DNSView, bool)
}

// gopacketWrapper adapts a decoded gopacket.Packet to the Packet interface.
type gopacketWrapper struct {
	raw gopacket.Packet
}

// Wrap adapts a gopacket.Packet into the engine's narrow Packet view.
func Wrap(p gopacket.Packet) Packet {
	return gopacketWrapper{raw: p}
}

func (w gopacketWrapper) Timestamp() time.Time {
	if md := w.raw.Metadata(); md != nil {
		return md.Timestamp
	}
	return time.Time{}
}

func (w gopacketWrapper) Length() int {
	if md := w.raw.Metadata(); md != nil {
		return md.Length
	}
	return len(w.raw.Data())
}

func (w gopacketWrapper) IP() (IPView, bool) {
	if l := w.raw.Layer(layers.LayerTypeIPv4); l != nil {
		ip, ok := l.(*layers.IPv4)
		if !ok {
			return IPView{}, false
		}
		return IPView{Src: ip.SrcIP.String(), Dst: ip.DstIP.String(), Proto: ip.Protocol.String()}, true
	}
	if l := w.raw.Layer(layers.LayerTypeIPv6); l != nil {
		ip, ok := l.(*layers.IPv6)
		if !ok {
			return IPView{}, false
		}
		return IPView{Src: ip.SrcIP.String(), Dst: ip.DstIP.String(), Proto: ip.NextHeader.String()}, true
	}
	return IPView{}, false
}

func (w gopacketWrapper) TCP() (TCPView, bool) {
	l := w.raw.Layer(layers.LayerTypeTCP)
	if l == nil {
		return TCPView{}, false
	}
	tcp, ok := l.(*layers.TCP)
	if !ok {
		return TCPView{}, false
	}
	return TCPView{SrcPort: uint16(tcp.SrcPort), DstPort: uint16(tcp.DstPort)}, true
}

func (w gopacketWrapper) UDP() (UDPView, bool) {
	l := w.raw.Layer(layers.LayerTypeUDP)
	if l == nil {
		return UDPView{}, false
	}
	udp, ok := l.(*layers.UDP)
	if !ok {
		return UDPView{}, false
	}
	return UDPView{SrcPort: uint16(udp.SrcPort), DstPort: uint16(udp.DstPort)}, true
}

func (w gopacketWrapper) ARP() (ARPView, bool) {
	l := w.raw.Layer(layers.LayerTypeARP)
	if l == nil {
		return ARPView{}, false
	}
	arp, ok := l.(*layers.ARP)
	if !ok {
		return ARPView{}, false
	}
	return ARPView{
		Op:     ARPOp(arp.Operation),
		SrcIP:  ipv4String(arp.SourceProtAddress),
		DstIP:  ipv4String(arp.DstProtAddress),
		SrcMAC: macString(arp.SourceHwAddress),
	}, true
}

func (w gopacketWrapper) DNS() (DNSView, bool) {
	l := w.raw.Layer(layers.LayerTypeDNS)
	if l == nil {
		return DNSView{}, false
	}
	dns, ok := l.(*layers.DNS)
	if !ok {
		return DNSView{}, false
	}

	qs := make([]DNSQuestion, 0, len(dns.Questions))
	for _, q := range dns.Questions {
		qs = append(qs, DNSQuestion{Name: string(q.Name)})
	}

	return DNSView{IsQuery: !dns.QR, Questions: qs}, true
}

func ipv4String(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return net.IP(b).String()
}

func macString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return net.HardwareAddr(b).String()
}
