package detect

import (
	"testing"
	"time"

	"github.com/Delta-Sec/Z-Shark/internal/window"
)

func statsAt(t time.Time, pps, entropy float64) window.Stats {
	return window.Stats{
		StartTime:    t.Add(-10 * time.Second),
		EndTime:      t,
		PacketCount:  int64(pps * 10),
		DurationS:    10,
		PPS:          pps,
		SrcIPEntropy: entropy,
	}
}

func TestDDoSVolumeSpike(t *testing.T) {
	d, err := NewDDoS(DDoSParams{HistorySize: 100, PPSZThreshold: 5.0, EntropyDropRatio: 0.5})
	if err != nil {
		t.Fatalf("NewDDoS: %v", err)
	}

	base := time.Unix(10000, 0)

	// 100 baseline windows at ~100 pps.
	for i := 0; i < 100; i++ {
		dets := d.Analyze(statsAt(base.Add(time.Duration(i)*10*time.Second), 100, 4.0), nil)
		if len(dets) != 0 {
			t.Fatalf("unexpected detection during baseline window %d: %v", i, dets)
		}
	}

	// spike window: far above the established baseline.
	spikeTime := base.Add(101 * 10 * time.Second)
	dets := d.Analyze(statsAt(spikeTime, 5000, 4.0), nil)

	found := false
	for _, det := range dets {
		if det.Label == "High Volume Anomaly (DDoS Suspect)" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected DDoS volume detection on spike window, got %v", dets)
	}
}

func TestDDoSEntropyCollapse(t *testing.T) {
	d, err := NewDDoS(DDoSParams{HistorySize: 100, PPSZThreshold: 5.0, EntropyDropRatio: 0.5})
	if err != nil {
		t.Fatalf("NewDDoS: %v", err)
	}

	base := time.Unix(20000, 0)

	for i := 0; i < 100; i++ {
		d.Analyze(statsAt(base.Add(time.Duration(i)*10*time.Second), 100, 4.0), nil)
	}

	collapseTime := base.Add(101 * 10 * time.Second)
	dets := d.Analyze(statsAt(collapseTime, 100, 0.2), nil)

	found := false
	for _, det := range dets {
		if det.Label == "Source IP Entropy Collapse" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected entropy collapse detection, got %v", dets)
	}
}

func TestDDoSCurrentSampleExcludedFromOwnBaseline(t *testing.T) {
	d, err := NewDDoS(DDoSParams{HistorySize: 10, PPSZThreshold: 5.0, EntropyDropRatio: 0.5})
	if err != nil {
		t.Fatalf("NewDDoS: %v", err)
	}

	base := time.Unix(30000, 0)
	for i := 0; i < 5; i++ {
		d.Analyze(statsAt(base.Add(time.Duration(i)*10*time.Second), 10, 4.0), nil)
	}

	// Scored against five 10-pps windows (std 0, substituted by 1), the
	// spike's z-score is exactly 100000-10; had the spike been pushed
	// first, the mean and std would absorb it and z would fall below 5.
	dets := d.Analyze(statsAt(base.Add(5*10*time.Second), 100000, 4.0), nil)
	if len(dets) == 0 {
		t.Fatal("a spike sample leaked into its own baseline before scoring")
	}
	if z := dets[0].Score; z != 99990 {
		t.Errorf("expected z-score 99990 against the pre-spike baseline, got %v", z)
	}
}
