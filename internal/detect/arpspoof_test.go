package detect

import (
	"testing"
	"time"

	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/testpacket"
)

func TestARPSpoofMACConflict(t *testing.T) {
	a, err := NewARPSpoof(DefaultARPSpoofParams())
	if err != nil {
		t.Fatalf("NewARPSpoof: %v", err)
	}

	base := time.Unix(60000, 0)

	first := testpacket.ARP(base, packet.ARPReply, "10.0.0.1", "10.0.0.1", "aa:aa:aa:aa:aa:aa")
	a.Analyze(windowStats(base, base.Add(time.Second), 1), []packet.Packet{first})

	second := testpacket.ARP(base.Add(time.Second), packet.ARPReply, "10.0.0.1", "10.0.0.1", "bb:bb:bb:bb:bb:bb")
	dets := a.Analyze(windowStats(base.Add(time.Second), base.Add(2*time.Second), 1), []packet.Packet{second})

	found := false
	for _, det := range dets {
		if det.Label == "ARP Spoofing Detected (MAC Conflict)" {
			found = true
			if det.Evidence["ip"] != "10.0.0.1" {
				t.Errorf("unexpected ip evidence: %v", det.Evidence)
			}
		}
	}
	if !found {
		t.Errorf("expected MAC conflict detection, got %v", dets)
	}
}

func TestARPSpoofGratuitousFlood(t *testing.T) {
	a, err := NewARPSpoof(ARPSpoofParams{MaxGratuitousARPPerWindow: 5, IdleEvictionS: 600})
	if err != nil {
		t.Fatalf("NewARPSpoof: %v", err)
	}

	base := time.Unix(70000, 0)

	var packets []packet.Packet
	for i := 0; i < 8; i++ {
		packets = append(packets, testpacket.ARP(base.Add(time.Duration(i)*time.Millisecond), packet.ARPReply, "10.0.0.5", "10.0.0.5", "cc:cc:cc:cc:cc:cc"))
	}

	dets := a.Analyze(windowStats(base, base.Add(time.Second), int64(len(packets))), packets)

	found := false
	for _, det := range dets {
		if det.Label == "Excessive Gratuitous ARP" {
			found = true
			if det.Evidence["count"] != 8 {
				t.Errorf("unexpected count evidence: %v", det.Evidence)
			}
		}
	}
	if !found {
		t.Errorf("expected gratuitous ARP flood detection, got %v", dets)
	}
}

func TestARPSpoofFirstSightingNoConflict(t *testing.T) {
	a, err := NewARPSpoof(DefaultARPSpoofParams())
	if err != nil {
		t.Fatalf("NewARPSpoof: %v", err)
	}

	base := time.Unix(80000, 0)
	pkt := testpacket.ARP(base, packet.ARPRequest, "10.0.0.9", "10.0.0.1", "dd:dd:dd:dd:dd:dd")

	dets := a.Analyze(windowStats(base, base.Add(time.Second), 1), []packet.Packet{pkt})
	if len(dets) != 0 {
		t.Errorf("first sighting of an IP must not trigger a conflict, got %v", dets)
	}
}
