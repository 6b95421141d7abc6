// Package pipeline implements the detection-and-captioning flow: validate
// the incoming image, decode it, run the region detector, suppress redundant
// overlapping regions, then crop and caption each surviving region.
//
// # Input Limits
//
// Two hard limits guard the resource-heavy backends and are checked before
// any model runs: the base64 payload may not exceed 50 MiB (checked before
// decoding), and the decoded image may not exceed 3840x2160 pixels. The
// pixel limit exists mainly for the captioner, whose per-pixel cost far
// exceeds the detector's. Both limits and the 64x64 caption canvas are
// calibration constants of the captioning backend — do not tune them.
//
// # Degradation
//
// A captioning failure affects only its own element: the element keeps its
// box and confidence and falls back to the "icon" label with an empty
// description. Detector failures abort the whole request.
package pipeline
