// Package testpacket builds in-memory packet.Packet values for unit
// tests, bypassing gopacket decoding entirely so detector and
// window-processor tests never depend on binary capture fixtures.
package testpacket

import (
	"time"

	"github.com/Delta-Sec/Z-Shark/internal/packet"
)

// Fake is a hand-constructed packet.Packet for tests.
type Fake struct {
	TS     time.Time
	Len    int
	IPV    *packet.IPView
	TCPV   *packet.TCPView
	UDPV   *packet.UDPView
	ARPV   *packet.ARPView
	DNSV   *packet.DNSView
}

func (f Fake) Timestamp() time.Time { return f.TS }
func (f Fake) Length() int          { return f.Len }

func (f Fake) IP() (packet.IPView, bool) {
	if f.IPV == nil {
		return packet.IPView{}, false
	}
	return *f.IPV, true
}

func (f Fake) TCP() (packet.TCPView, bool) {
	if f.TCPV == nil {
		return packet.TCPView{}, false
	}
	return *f.TCPV, true
}

func (f Fake) UDP() (packet.UDPView, bool) {
	if f.UDPV == nil {
		return packet.UDPView{}, false
	}
	return *f.UDPV, true
}

func (f Fake) ARP() (packet.ARPView, bool) {
	if f.ARPV == nil {
		return packet.ARPView{}, false
	}
	return *f.ARPV, true
}

func (f Fake) DNS() (packet.DNSView, bool) {
	if f.DNSV == nil {
		return packet.DNSView{}, false
	}
	return *f.DNSV, true
}

// IP builds a Fake with an IP layer (and nothing else).
func IP(ts time.Time, length int, src, dst, proto string) Fake {
	return Fake{TS: ts, Len: length, IPV: &packet.IPView{Src: src, Dst: dst, Proto: proto}}
}

// TCP builds a Fake with IP+TCP layers.
func TCP(ts time.Time, length int, src, dst string, sport, dport uint16) Fake {
	return Fake{
		TS:   ts,
		Len:  length,
		IPV:  &packet.IPView{Src: src, Dst: dst, Proto: "TCP"},
		TCPV: &packet.TCPView{SrcPort: sport, DstPort: dport},
	}
}

// UDP builds a Fake with IP+UDP layers.
func UDP(ts time.Time, length int, src, dst string, sport, dport uint16) Fake {
	return Fake{
		TS:   ts,
		Len:  length,
		IPV:  &packet.IPView{Src: src, Dst: dst, Proto: "UDP"},
		UDPV: &packet.UDPView{SrcPort: sport, DstPort: dport},
	}
}

// ARP builds a Fake with an ARP layer.
func ARP(ts time.Time, op packet.ARPOp, srcIP, dstIP, srcMAC string) Fake {
	return Fake{TS: ts, Len: 42, ARPV: &packet.ARPView{Op: op, SrcIP: srcIP, DstIP: dstIP, SrcMAC: srcMAC}}
}

// DNSQuery builds a Fake carrying a single DNS query question.
func DNSQuery(ts time.Time, src, dst string, qname string) Fake {
	return Fake{
		TS:  ts,
		Len: 64,
		IPV: &packet.IPView{Src: src, Dst: dst, Proto: "UDP"},
		UDPV: &packet.UDPView{SrcPort: 51234, DstPort: 53},
		DNSV: &packet.DNSView{IsQuery: true, Questions: []packet.DNSQuestion{{Name: qname}}},
	}
}
