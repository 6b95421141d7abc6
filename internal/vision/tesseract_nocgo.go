//go:build !cgo

package vision

import (
	"errors"
	"image"
)

// ErrCaptionerUnavailable is returned per caption when the binary was built
// without cgo. The pipeline substitutes its fallback label for each affected
// element, so detection still works — elements just lose their descriptions.
var ErrCaptionerUnavailable = errors.New("captioner unavailable: binary built without cgo")

type unavailableCaptioner struct{}

// LoadTesseractCaptioner on non-cgo builds returns a captioner that fails
// every call with ErrCaptionerUnavailable, implementing CaptionerLoader.
func LoadTesseractCaptioner(modelsDir, device string) (Captioner, error) {
	return unavailableCaptioner{}, nil
}

func (unavailableCaptioner) Caption(crop image.Image) (string, error) {
	return "", ErrCaptionerUnavailable
}
