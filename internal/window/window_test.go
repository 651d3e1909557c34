package window

import (
	"testing"
	"time"

	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/testpacket"
)

func TestShannonEntropyUnitLaws(t *testing.T) {
	tests := []struct {
		name string
		vals []string
		want float64
	}{
		{"four_distinct", []string{"a", "b", "c", "d"}, 2},
		{"all_same", []string{"a", "a", "a", "a"}, 0},
		{"two_pairs", []string{"a", "a", "b", "b"}, 1},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShannonEntropy(tt.vals)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("ShannonEntropy(%v) = %v, want %v", tt.vals, got, tt.want)
			}
		})
	}
}

func iterFrom(packets []packet.Packet) func(func(packet.Packet) bool) {
	return func(yield func(packet.Packet) bool) {
		for _, p := range packets {
			if !yield(p) {
				return
			}
		}
	}
}

func TestProcessorContiguityAndConservation(t *testing.T) {
	base := time.Unix(1000, 0)

	var packets []packet.Packet
	// 35s of traffic at 1s spacing, window size 10s: three full windows
	// and a partial fourth.
	for i := 0; i < 35; i++ {
		packets = append(packets, testpacket.TCP(base.Add(time.Duration(i)*time.Second), 100, "10.0.0.1", "10.0.0.2", 1234, 80))
	}

	proc := NewProcessor(10, 0)

	var windows []Window
	proc.Process(iterFrom(packets), func(w Window) bool {
		windows = append(windows, w)
		return true
	})

	if len(windows) == 0 {
		t.Fatal("expected at least one window")
	}

	var totalPackets int64
	for i, w := range windows {
		totalPackets += w.Stats.PacketCount

		if w.Stats.StartTime.After(w.Stats.EndTime) {
			t.Errorf("window %d: start_time after end_time", i)
		}

		if i > 0 {
			prevEnd := windows[i-1].Stats.EndTime
			if !w.Stats.StartTime.Equal(prevEnd) {
				t.Errorf("window %d: start_time %v does not equal previous end_time %v (gap/overlap)", i, w.Stats.StartTime, prevEnd)
			}
		}
	}

	if totalPackets != int64(len(packets)) {
		t.Errorf("packet conservation violated: got %d, want %d", totalPackets, len(packets))
	}
}

func TestProcessorMemoryCap(t *testing.T) {
	base := time.Unix(2000, 0)

	var packets []packet.Packet
	for i := 0; i < 50; i++ {
		// all within the same 10s window
		packets = append(packets, testpacket.TCP(base, 64, "10.0.0.1", "10.0.0.2", 1111, 80))
	}

	proc := NewProcessor(10, 5)

	var got Window
	proc.Process(iterFrom(packets), func(w Window) bool {
		got = w
		return true
	})

	if len(got.Packets) > 5 {
		t.Errorf("window exceeded max_window_packets: got %d, want <= 5", len(got.Packets))
	}
}

func TestEntropyBounds(t *testing.T) {
	base := time.Unix(3000, 0)

	var packets []packet.Packet
	ips := []string{"10.0.0.1", "10.0.0.1", "10.0.0.1"}
	for i, ip := range ips {
		packets = append(packets, testpacket.IP(base.Add(time.Duration(i)*time.Millisecond), 60, ip, "10.0.0.99", "TCP"))
	}

	stats := computeStats(packets)
	if stats.SrcIPEntropy != 0 {
		t.Errorf("single distinct source IP should have zero entropy, got %v", stats.SrcIPEntropy)
	}
}
