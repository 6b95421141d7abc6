package geometry

// SuppressOverlaps removes redundant boxes from a candidate list.
//
// A box is redundant when some other box overlaps it above threshold (per
// ExtendedOverlap) and has strictly smaller area: the larger box of a
// conflicting pair is dropped on the assumption that the smaller one is the
// more specific detection. Equal-area conflicts keep both boxes — the area
// comparison is a strict inequality.
//
// Retained boxes keep their input order, so output is deterministic given
// deterministic detector output. O(n²) pairwise comparison.
func SuppressOverlaps(boxes []Box, threshold float64) []Box {
	kept := make([]Box, 0, len(boxes))
	for i, a := range boxes {
		redundant := false
		for j, b := range boxes {
			if i == j {
				continue
			}
			if ExtendedOverlap(a, b) > threshold && a.Area() > b.Area() {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, a)
		}
	}
	return kept
}
