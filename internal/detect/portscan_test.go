package detect

import (
	"testing"
	"time"

	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/testpacket"
	"github.com/Delta-Sec/Z-Shark/internal/window"
)

func windowStats(start, end time.Time, count int64) window.Stats {
	return window.Stats{StartTime: start, EndTime: end, PacketCount: count}
}

func TestPortScanStatefulAcrossWindows(t *testing.T) {
	p, err := NewPortScan(DefaultPortScanParams())
	if err != nil {
		t.Fatalf("NewPortScan: %v", err)
	}

	base := time.Unix(40000, 0)

	var first []packet.Packet
	for i := 0; i < 5; i++ {
		first = append(first, testpacket.TCP(base.Add(time.Duration(i)*time.Millisecond), 60, "10.0.0.7", "10.0.0.200", 4444, uint16(1000+i)))
	}

	stats1 := windowStats(base, base.Add(10*time.Second), int64(len(first)))
	dets := p.Analyze(stats1, first)
	for _, det := range dets {
		if det.Label == "Port Scan Suspect (Stateful)" {
			t.Fatalf("unexpected detection with only 5 unique ports: %v", dets)
		}
	}

	var second []packet.Packet
	for i := 0; i < 20; i++ {
		second = append(second, testpacket.TCP(base.Add(10*time.Second+time.Duration(i)*time.Millisecond), 60, "10.0.0.7", "10.0.0.200", 4444, uint16(2000+i)))
	}

	stats2 := windowStats(base.Add(10*time.Second), base.Add(20*time.Second), int64(len(second)))
	dets = p.Analyze(stats2, second)

	found := false
	for _, det := range dets {
		if det.Label == "Port Scan Suspect (Stateful)" {
			found = true
			if det.Evidence["source_ip"] != "10.0.0.7" {
				t.Errorf("unexpected source_ip evidence: %v", det.Evidence)
			}
		}
	}
	if !found {
		t.Errorf("expected port scan detection after 25 cumulative ports, got %v", dets)
	}
}

func TestPortScanIdleEviction(t *testing.T) {
	p, err := NewPortScan(PortScanParams{MinUniquePorts: 10, IdleEvictionS: 5})
	if err != nil {
		t.Fatalf("NewPortScan: %v", err)
	}

	base := time.Unix(50000, 0)

	pkt := testpacket.TCP(base, 60, "10.0.0.9", "10.0.0.200", 1234, 80)
	p.Analyze(windowStats(base, base.Add(time.Second), 1), []packet.Packet{pkt})

	if _, ok := p.scanHistory["10.0.0.9"]; !ok {
		t.Fatal("expected source to be tracked after first packet")
	}

	later := base.Add(time.Hour)
	p.Analyze(windowStats(later, later.Add(time.Second), 0), nil)

	if _, ok := p.scanHistory["10.0.0.9"]; ok {
		t.Error("expected idle source to be evicted")
	}
}
