// Package detect implements the five stateful detector state machines
// (spec.md §4.4-§4.9) and the detection-fusion stage (§4.10), behind a
// common Detector contract.
//
// The detector registry is the teacher's decoder-registry pattern
// (decoder/gopacketDecoder.go's defaultGoPacketDecoders: a fixed,
// ordered, independently-enable/disable-able slice of named handlers
// driven by one dispatch loop) repurposed for the analysis domain: a
// fixed, ordered slice of detectors driven by the analyzer's per-window
// loop, in the registration order spec.md §5 requires.
package detect

import (
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/window"
	"github.com/Delta-Sec/Z-Shark/internal/xlog"
)

var log = xlog.For("detect")

// Detection is the immutable record a detector emits (spec.md §3).
type Detection struct {
	ModelName     string                 `json:"model_name"`
	Timestamp     time.Time              `json:"timestamp"`
	Severity      float64                `json:"severity"`
	Score         float64                `json:"score"`
	Label         string                 `json:"label"`
	Justification string                 `json:"justification"`
	Evidence      map[string]interface{} `json:"evidence"`
	FlowKey       string                 `json:"flow_key,omitempty"`
}

// evidencePriority is the fusion key priority list (spec.md §4.10,
// §9 "Fusion key priority"): a detector wishing to be fused by a new
// key must emit one of these fields in its evidence.
var evidencePriority = []string{"ip", "source_ip", "domain", "flow_key"}

// PrimaryEvidenceKey returns the stringified value of the first present
// field among the fusion priority list, or "" if none are present.
func PrimaryEvidenceKey(d Detection) string {
	for _, key := range evidencePriority {
		if v, ok := d.Evidence[key]; ok {
			return toString(v)
		}
	}
	return ""
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Detector is the common contract every detector satisfies (spec.md
// §4.4). Detectors may hold arbitrary cross-window state but that
// state must be bounded; they must not mutate the window they are
// given, and Analyze must never panic out (per-packet failures are
// recovered and logged at DEBUG by the individual detector).
type Detector interface {
	// Name is the detector id used as Detection.ModelName and as the
	// configuration engine_id.
	Name() string

	// Analyze inspects one closed window and returns zero or more
	// detections, each timestamped at stats.EndTime.
	Analyze(stats window.Stats, packets []packet.Packet) []Detection

	// UpdateBaseline folds one window's observations into the
	// detector's cross-window state. Analyze calls this itself after
	// scoring the current window, per spec.md §4.4/§4.5's
	// exclude-current-sample baseline contract; exported separately so
	// tests can probe baseline state directly.
	UpdateBaseline(stats window.Stats, packets []packet.Packet)
}

// recoverAnalyze is deferred at the top of every detector's Analyze. A
// panic mid-window must never escape the registry loop (spec.md §7
// "detectors MUST NOT throw out of analyze"); it is logged at DEBUG
// with a spew.Sdump of the offending window's packets and the window
// is scored as producing no detections.
func recoverAnalyze(detectorName string, packets []packet.Packet, detections *[]Detection) {
	if r := recover(); r != nil {
		log.Debugw("detector panic recovered", "detector", detectorName, "panic", r, "packets", spew.Sdump(packets))
		*detections = nil
	}
}

// Registry is the fixed, ordered set of detectors the analyzer drives.
type Registry struct {
	detectors []Detector
}

// NewRegistry builds a Registry from detectors in registration order.
// Registration order determines the emission order of detections
// within a window (spec.md §5).
func NewRegistry(detectors ...Detector) *Registry {
	return &Registry{detectors: detectors}
}

// Detectors returns the registry's detectors in registration order.
func (r *Registry) Detectors() []Detector {
	return r.detectors
}
