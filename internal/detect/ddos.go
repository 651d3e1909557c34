package detect

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/Delta-Sec/Z-Shark/internal/config"
	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/window"
	"github.com/Delta-Sec/Z-Shark/internal/zerrors"
)

// DDoSParams are the ddos_volume detector's configurable parameters
// (spec.md §4.5), decoded from ModelConfig.Params via mapstructure.
type DDoSParams struct {
	HistorySize      int     `mapstructure:"history_size"`
	PPSZThreshold    float64 `mapstructure:"pps_z_threshold"`
	EntropyDropRatio float64 `mapstructure:"entropy_drop_ratio"`
	DefaultPPS       float64 `mapstructure:"default_pps"`
	DefaultEntropy   float64 `mapstructure:"default_entropy"`
}

// DefaultDDoSParams returns spec.md §4.5's documented defaults.
func DefaultDDoSParams() DDoSParams {
	return DDoSParams{HistorySize: 100, PPSZThreshold: 5.0, EntropyDropRatio: 0.5}
}

// DDoS is the DDoS detector: a rolling z-score on PPS, plus an
// entropy-collapse test on source-IP entropy (spec.md §4.5).
type DDoS struct {
	params DDoSParams

	ppsHistory     *ring
	entropyHistory *ring
}

// NewDDoS builds a DDoS detector, optionally pre-seeding both rolling
// histories with warm-start values (spec.md §4.5 "default_pps" /
// "default_entropy"). Out-of-range params are rejected eagerly with a
// ConfigError rather than silently clamped (spec.md §7 "ConfigError:
// ... out-of-range parameter. Fatal at analyzer construction").
func NewDDoS(params DDoSParams) (*DDoS, error) {
	if params.HistorySize <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineDDoSVolume), "history_size must be positive")
	}
	if params.PPSZThreshold <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineDDoSVolume), "pps_z_threshold must be positive")
	}
	if params.EntropyDropRatio <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineDDoSVolume), "entropy_drop_ratio must be positive")
	}

	d := &DDoS{
		params:         params,
		ppsHistory:     newRing(params.HistorySize),
		entropyHistory: newRing(params.HistorySize),
	}

	if params.DefaultPPS != 0 {
		for i := 0; i < params.HistorySize; i++ {
			d.ppsHistory.push(params.DefaultPPS)
		}
	}
	if params.DefaultEntropy != 0 {
		for i := 0; i < params.HistorySize; i++ {
			d.entropyHistory.push(params.DefaultEntropy)
		}
	}

	return d, nil
}

func (d *DDoS) Name() string { return string(config.EngineDDoSVolume) }

func (d *DDoS) Analyze(stats window.Stats, packets []packet.Packet) (detections []Detection) {
	defer recoverAnalyze(d.Name(), packets, &detections)

	currentPPS := stats.PPS
	currentEntropy := stats.SrcIPEntropy

	if hist := d.ppsHistory.values(); len(hist) > 0 {
		meanPPS := stat.Mean(hist, nil)
		stdPPS := stat.StdDev(hist, nil)
		if stdPPS == 0 {
			stdPPS = 1.0
		}

		z := (currentPPS - meanPPS) / stdPPS
		threshold := d.params.PPSZThreshold

		if z > threshold {
			severity := (z - threshold) / max(threshold, 1.0)
			if severity > 1 {
				severity = 1
			}

			detections = append(detections, Detection{
				ModelName:     d.Name(),
				Timestamp:     stats.EndTime,
				Severity:      severity,
				Score:         z,
				Label:         "High Volume Anomaly (DDoS Suspect)",
				Justification: fmt.Sprintf("PPS z-score %.2f exceeds threshold %.2f (current %.1f pps vs mean %.1f pps).", z, threshold, currentPPS, meanPPS),
				Evidence: map[string]interface{}{
					"current_pps": currentPPS,
					"mean_pps":    meanPPS,
					"z_score":     z,
				},
			})
		}
	}

	if hist := d.entropyHistory.values(); len(hist) > 0 {
		meanEntropy := stat.Mean(hist, nil)
		dropRatio := d.params.EntropyDropRatio

		if meanEntropy > 1.0 && currentEntropy < meanEntropy*dropRatio {
			severity := (meanEntropy - currentEntropy) / meanEntropy
			if severity > 1 {
				severity = 1
			}

			detections = append(detections, Detection{
				ModelName:     d.Name(),
				Timestamp:     stats.EndTime,
				Severity:      severity,
				Score:         currentEntropy,
				Label:         "Source IP Entropy Collapse",
				Justification: fmt.Sprintf("Source IP entropy collapsed to %.2f bits, below %.0f%% of mean %.2f bits.", currentEntropy, dropRatio*100, meanEntropy),
				Evidence: map[string]interface{}{
					"current_entropy": currentEntropy,
					"mean_entropy":    meanEntropy,
				},
			})
		}
	}

	d.UpdateBaseline(stats, packets)

	return detections
}

func (d *DDoS) UpdateBaseline(stats window.Stats, _ []packet.Packet) {
	d.ppsHistory.push(stats.PPS)
	d.entropyHistory.push(stats.SrcIPEntropy)
}
