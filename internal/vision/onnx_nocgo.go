//go:build !cgo

package vision

import "errors"

// ErrDetectorUnavailable is returned by LoadONNXDetector when the binary was
// built without cgo: onnxruntime needs it. Unlike the captioner, there is no
// per-element fallback for detection, so the load fails and every detect
// request gets an error response.
var ErrDetectorUnavailable = errors.New("detector unavailable: binary built without cgo")

// LoadONNXDetector on non-cgo builds always fails, implementing
// DetectorLoader.
func LoadONNXDetector(modelsDir, device string) (Detector, error) {
	return nil, ErrDetectorUnavailable
}
