package detect

import (
	"testing"
	"time"
)

func TestFuseKeepsMaxScore(t *testing.T) {
	t1 := time.Unix(1000, 0)
	t2 := time.Unix(1010, 0)

	in := []Detection{
		{Label: "Port Scan Suspect (Stateful)", Score: 12, Timestamp: t1, Evidence: map[string]interface{}{"source_ip": "10.0.0.1"}},
		{Label: "Port Scan Suspect (Stateful)", Score: 25, Timestamp: t2, Evidence: map[string]interface{}{"source_ip": "10.0.0.1"}},
	}

	out := Fuse(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 fused detection, got %d", len(out))
	}
	if out[0].Score != 25 {
		t.Errorf("expected max score 25 to survive, got %v", out[0].Score)
	}
}

func TestFuseTieBreaksByEarliestTimestamp(t *testing.T) {
	early := time.Unix(500, 0)
	late := time.Unix(600, 0)

	in := []Detection{
		{Label: "X", Score: 10, Timestamp: late, Evidence: map[string]interface{}{"ip": "10.0.0.2"}},
		{Label: "X", Score: 10, Timestamp: early, Evidence: map[string]interface{}{"ip": "10.0.0.2"}},
	}

	out := Fuse(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 fused detection, got %d", len(out))
	}
	if !out[0].Timestamp.Equal(early) {
		t.Errorf("expected earliest timestamp to survive a score tie, got %v", out[0].Timestamp)
	}
}

func TestFuseDistinctEvidenceKeysNotMerged(t *testing.T) {
	now := time.Unix(1000, 0)

	in := []Detection{
		{Label: "X", Score: 10, Timestamp: now, Evidence: map[string]interface{}{"ip": "10.0.0.2"}},
		{Label: "X", Score: 10, Timestamp: now, Evidence: map[string]interface{}{"ip": "10.0.0.3"}},
	}

	out := Fuse(in)
	if len(out) != 2 {
		t.Errorf("expected distinct evidence keys to remain separate, got %d", len(out))
	}
}

func TestFuseIdempotent(t *testing.T) {
	now := time.Unix(1000, 0)

	in := []Detection{
		{Label: "X", Score: 10, Timestamp: now, Evidence: map[string]interface{}{"ip": "10.0.0.2"}},
		{Label: "Y", Score: 5, Timestamp: now, Evidence: map[string]interface{}{"domain": "evil.com"}},
	}

	once := Fuse(in)
	twice := Fuse(once)

	if len(once) != len(twice) {
		t.Fatalf("fusing an already-fused list changed its length: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Label != twice[i].Label || once[i].Score != twice[i].Score || !once[i].Timestamp.Equal(twice[i].Timestamp) {
			t.Errorf("fusing an already-fused list changed entry %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}
