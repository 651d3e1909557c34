package detect

import (
	"fmt"
	"strings"

	"github.com/Delta-Sec/Z-Shark/internal/config"
	"github.com/Delta-Sec/Z-Shark/internal/packet"
	"github.com/Delta-Sec/Z-Shark/internal/window"
	"github.com/Delta-Sec/Z-Shark/internal/zerrors"
)

// DNSAnomalyParams are the dns_anomaly detector's configurable
// parameters (spec.md §4.8).
type DNSAnomalyParams struct {
	EntropyThreshold float64 `mapstructure:"entropy_threshold"`
	MaxSeenDomains   int     `mapstructure:"max_seen_domains"`
	MinLabelLength   int     `mapstructure:"min_label_length"`
}

// DefaultDNSAnomalyParams returns spec.md §4.8's documented defaults.
func DefaultDNSAnomalyParams() DNSAnomalyParams {
	return DNSAnomalyParams{EntropyThreshold: 3.8, MaxSeenDomains: 50000, MinLabelLength: 5}
}

// DNSAnomaly flags DGA-like high-entropy DNS query labels (spec.md
// §4.8).
type DNSAnomaly struct {
	params DNSAnomalyParams

	seenDomains map[string]struct{}
}

// NewDNSAnomaly builds a DNSAnomaly detector. Out-of-range params are
// rejected eagerly with a ConfigError rather than silently clamped
// (spec.md §7).
func NewDNSAnomaly(params DNSAnomalyParams) (*DNSAnomaly, error) {
	if params.EntropyThreshold <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineDNSAnomaly), "entropy_threshold must be positive")
	}
	if params.MaxSeenDomains <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineDNSAnomaly), "max_seen_domains must be positive")
	}
	if params.MinLabelLength <= 0 {
		return nil, zerrors.NewConfigError(string(config.EngineDNSAnomaly), "min_label_length must be positive")
	}

	return &DNSAnomaly{params: params, seenDomains: make(map[string]struct{})}, nil
}

func (d *DNSAnomaly) Name() string { return string(config.EngineDNSAnomaly) }

func (d *DNSAnomaly) Analyze(stats window.Stats, packets []packet.Packet) (detections []Detection) {
	defer recoverAnalyze(d.Name(), packets, &detections)

	for _, pkt := range packets {
		dns, ok := pkt.DNS()
		if !ok || !dns.IsQuery {
			continue
		}

		for _, q := range dns.Questions {
			if q.Name == "" {
				log.Debugw("detector input error", "error", zerrors.NewDetectorInputError(d.Name(), "name"))
				continue
			}

			qname := normalizeQName(q.Name)
			if qname == "" {
				continue
			}

			label := registrableLabel(qname)

			if _, seen := d.seenDomains[label]; seen {
				continue
			}
			if len(label) < d.params.MinLabelLength {
				continue
			}

			d.seenDomains[label] = struct{}{}
			if len(d.seenDomains) > d.params.MaxSeenDomains {
				d.seenDomains = make(map[string]struct{})
			}

			entropy := window.ShannonEntropy(charLabels(label))
			if entropy > d.params.EntropyThreshold {
				severity := entropy / 5.0
				if severity > 1 {
					severity = 1
				}

				detections = append(detections, Detection{
					ModelName:     d.Name(),
					Timestamp:     stats.EndTime,
					Severity:      severity,
					Score:         entropy,
					Label:         "DNS High Entropy (DGA Suspect)",
					Justification: fmt.Sprintf("Query label %q has character entropy %.2f, above threshold %.2f.", label, entropy, d.params.EntropyThreshold),
					Evidence: map[string]interface{}{
						"domain":  qname,
						"entropy": entropy,
					},
				})
			}
		}
	}

	return detections
}

func (d *DNSAnomaly) UpdateBaseline(_ window.Stats, _ []packet.Packet) {}

// normalizeQName strips a trailing root dot from a DNS query name.
func normalizeQName(raw string) string {
	return strings.TrimSuffix(raw, ".")
}

// registrableLabel picks the "registrable label" per spec.md §4.8 step
// 2: the ccTLD-aware heuristic favors parts[-3] for names like
// "example.co.uk" (>=3 parts, 2-letter TLD, <=3-letter second-to-last
// part); otherwise parts[-2], falling back to parts[0] for a bare
// single-part name.
func registrableLabel(qname string) string {
	parts := strings.Split(qname, ".")

	if len(parts) >= 3 && len(parts[len(parts)-1]) == 2 && len(parts[len(parts)-2]) <= 3 {
		return parts[len(parts)-3]
	}
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return parts[0]
}

// charLabels splits a label into one-character strings so it can be fed
// to the shared ShannonEntropy helper, which operates over a multiset
// of opaque categorical values.
func charLabels(label string) []string {
	runes := []rune(label)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
