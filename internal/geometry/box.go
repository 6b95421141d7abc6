package geometry

import "math"

// epsilon keeps overlap ratios finite for degenerate (zero-area) boxes.
const epsilon = 1e-6

// Box is an axis-aligned rectangle in the detector's coordinate space,
// paired with the detector's confidence score for it. Boxes are immutable
// once produced.
type Box struct {
	X1, Y1, X2, Y2 float64
	Confidence     float64
}

// Area returns the box area. Inverted boxes (x2 < x1 or y2 < y1) yield a
// negative area; callers treat those as degenerate.
func (b Box) Area() float64 {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// intersection returns the overlapping area of a and b, or 0 when they are
// disjoint.
func intersection(a, b Box) float64 {
	x1 := math.Max(a.X1, b.X1)
	y1 := math.Max(a.Y1, b.Y1)
	x2 := math.Min(a.X2, b.X2)
	y2 := math.Min(a.Y2, b.Y2)
	return math.Max(0, x2-x1) * math.Max(0, y2-y1)
}

// IoU computes standard intersection-over-union between two boxes.
func IoU(a, b Box) float64 {
	inter := intersection(a, b)
	union := a.Area() + b.Area() - inter + epsilon
	return inter / union
}

// ExtendedOverlap returns max(IoU(a,b), intersection/area(a),
// intersection/area(b)). The ratio terms catch full or near-full containment
// that plain IoU misses. The max makes the result symmetric.
func ExtendedOverlap(a, b Box) float64 {
	inter := intersection(a, b)
	union := a.Area() + b.Area() - inter + epsilon

	iou := inter / union
	ratioA := inter / (a.Area() + epsilon)
	ratioB := inter / (b.Area() + epsilon)
	return math.Max(iou, math.Max(ratioA, ratioB))
}
