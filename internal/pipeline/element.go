package pipeline

// Bounds is an element's integer pixel rectangle as top-left plus size —
// note the shape difference from the detector's float x1y1x2y2 boxes.
type Bounds struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DetectedElement is the user-facing unit of a detection result. Created
// only by the pipeline after captioning; never mutated afterwards.
type DetectedElement struct {
	// Label is a short lowercase token: the first word of the caption, or
	// "icon" when no caption is available.
	Label string `json:"label"`

	// Description is the full caption text; empty when captioning failed
	// or found nothing.
	Description string `json:"description"`

	// Confidence is the detector's score, rounded to 3 decimals.
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}
