package detect

// Fuse dedups detections by (label, primary-evidence-key), keeping the
// maximum-score survivor per group and breaking score ties by earliest
// timestamp (spec.md §4.10). Survivors are returned in encounter order,
// and fusing an already-fused list is a no-op (spec.md §8 "Fusion
// idempotence").
func Fuse(detections []Detection) []Detection {
	type groupKey struct {
		label string
		evKey string
	}

	best := make(map[groupKey]int) // group -> index into order
	order := make([]Detection, 0, len(detections))

	for _, d := range detections {
		key := groupKey{label: d.Label, evKey: PrimaryEvidenceKey(d)}

		if idx, ok := best[key]; ok {
			cur := order[idx]
			if d.Score > cur.Score || (d.Score == cur.Score && d.Timestamp.Before(cur.Timestamp)) {
				order[idx] = d
			}
			continue
		}

		best[key] = len(order)
		order = append(order, d)
	}

	return order
}
