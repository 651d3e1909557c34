package detect

import (
	"testing"
	"time"

	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/testpacket"
)

func TestDNSAnomalyDGADomain(t *testing.T) {
	d, err := NewDNSAnomaly(DefaultDNSAnomalyParams())
	if err != nil {
		t.Fatalf("NewDNSAnomaly: %v", err)
	}

	base := time.Unix(90000, 0)
	// 16 distinct characters in the label: entropy log2(16) = 4.0 > 3.8.
	pkt := testpacket.DNSQuery(base, "10.0.0.3", "8.8.8.8", "kq7z9xv3m2pnbw4h.com")

	dets := d.Analyze(windowStats(base, base.Add(time.Second), 1), []packet.Packet{pkt})

	found := false
	for _, det := range dets {
		if det.Label == "DNS High Entropy (DGA Suspect)" {
			found = true
			if det.Score < 3.8 {
				t.Errorf("expected entropy score above threshold, got %v", det.Score)
			}
		}
	}
	if !found {
		t.Errorf("expected DGA detection for high-entropy label, got %v", dets)
	}
}

func TestDNSAnomalyLowEntropyIgnored(t *testing.T) {
	d, err := NewDNSAnomaly(DefaultDNSAnomalyParams())
	if err != nil {
		t.Fatalf("NewDNSAnomaly: %v", err)
	}

	base := time.Unix(91000, 0)
	pkt := testpacket.DNSQuery(base, "10.0.0.3", "8.8.8.8", "www.google.com")

	dets := d.Analyze(windowStats(base, base.Add(time.Second), 1), []packet.Packet{pkt})
	if len(dets) != 0 {
		t.Errorf("expected no detection for a low-entropy domain, got %v", dets)
	}
}

func TestDNSAnomalySeenDomainSuppressed(t *testing.T) {
	d, err := NewDNSAnomaly(DefaultDNSAnomalyParams())
	if err != nil {
		t.Fatalf("NewDNSAnomaly: %v", err)
	}

	base := time.Unix(92000, 0)
	pkt1 := testpacket.DNSQuery(base, "10.0.0.3", "8.8.8.8", "kq7z9xv3m2pnbw4h.com")
	pkt2 := testpacket.DNSQuery(base.Add(time.Second), "10.0.0.3", "8.8.8.8", "kq7z9xv3m2pnbw4h.com")

	d.Analyze(windowStats(base, base.Add(time.Second), 1), []packet.Packet{pkt1})
	dets := d.Analyze(windowStats(base.Add(time.Second), base.Add(2*time.Second), 1), []packet.Packet{pkt2})

	if len(dets) != 0 {
		t.Errorf("expected a repeated domain to be suppressed, got %v", dets)
	}
}

func TestRegistrableLabel(t *testing.T) {
	tests := []struct {
		qname string
		want  string
	}{
		{"kq7z9xv3m2pn.com", "kq7z9xv3m2pn"},
		{"evil.example.co.uk", "example"},
		{"localhost", "localhost"},
	}

	for _, tt := range tests {
		if got := registrableLabel(tt.qname); got != tt.want {
			t.Errorf("registrableLabel(%q) = %q, want %q", tt.qname, got, tt.want)
		}
	}
}
