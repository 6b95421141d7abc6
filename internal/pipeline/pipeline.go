package pipeline

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/mathieufro/strobe-vision/internal/geometry"
	"github.com/mathieufro/strobe-vision/internal/vision"
)

const (
	// MaxBase64Bytes is the hard cap on the base64 payload, checked before
	// decoding anything.
	MaxBase64Bytes = 50 * 1024 * 1024

	// MaxPixels caps decoded image area at 4K (3840x2160).
	MaxPixels = 3840 * 2160

	// captionCanvas is the fixed square the crop is resized to before
	// captioning. The captioning backend is calibrated for this exact size.
	captionCanvas = 64

	// DefaultConfidenceThreshold and DefaultIoUThreshold are the pipeline's
	// own permissive defaults: the detector over-generates candidates and
	// the overlap suppressor prunes them. The protocol layer has its own,
	// stricter defaults.
	DefaultConfidenceThreshold = 0.01
	DefaultIoUThreshold        = 0.1
)

// ErrInputTooLarge marks requests rejected by the payload or pixel limits.
var ErrInputTooLarge = errors.New("input too large")

// ErrInvalidImage marks payloads that are not decodable images.
var ErrInvalidImage = errors.New("invalid image")

// Pipeline orchestrates one detect call end to end. It owns no model state
// itself; backends live in the vision Manager and load lazily on first use.
type Pipeline struct {
	models *vision.Manager
	log    *logrus.Logger
}

// New creates a Pipeline over the given backend manager.
func New(models *vision.Manager, log *logrus.Logger) *Pipeline {
	return &Pipeline{models: models, log: log}
}

// Detect finds UI elements in a base64-encoded image and returns them in
// detector order after overlap suppression. Captioning failures degrade the
// affected element to ("icon", "") and are logged; they never fail the
// request. The returned slice is non-nil even when empty.
func (p *Pipeline) Detect(imageB64 string, confThreshold, iouThreshold float64) ([]DetectedElement, error) {
	// Size check before any decoding work.
	if len(imageB64) > MaxBase64Bytes {
		return nil, fmt.Errorf("%w: payload %d bytes exceeds 50MB limit", ErrInputTooLarge, len(imageB64))
	}

	raw, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", ErrInvalidImage, err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	// Normalize to a plain color image regardless of the source format's
	// color model.
	img := imaging.Clone(decoded)
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	if width*height > MaxPixels {
		return nil, fmt.Errorf("%w: image %dx%d exceeds 4K limit", ErrInputTooLarge, width, height)
	}

	// First detect pays for model loading; later calls are no-ops here.
	if err := p.models.EnsureLoaded(); err != nil {
		return nil, err
	}

	boxes, err := p.models.Detector().Detect(img, confThreshold, iouThreshold)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	kept := geometry.SuppressOverlaps(boxes, iouThreshold)

	elements := make([]DetectedElement, 0, len(kept))
	for _, box := range kept {
		element, ok := p.captionBox(img, width, height, box)
		if ok {
			elements = append(elements, element)
		}
	}

	return elements, nil
}

// captionBox crops one surviving box, captions it, and assembles the final
// element. Returns ok=false for boxes that collapse to zero size after
// integer conversion.
func (p *Pipeline) captionBox(img image.Image, width, height int, box geometry.Box) (DetectedElement, bool) {
	x1 := clampInt(int(box.X1), 0, width)
	y1 := clampInt(int(box.Y1), 0, height)
	x2 := clampInt(int(box.X2), 0, width)
	y2 := clampInt(int(box.Y2), 0, height)
	if x2 <= x1 || y2 <= y1 {
		return DetectedElement{}, false
	}

	crop := imaging.Crop(img, image.Rect(x1, y1, x2, y2))
	canvas := imaging.Resize(crop, captionCanvas, captionCanvas, imaging.Lanczos)

	label, description := "icon", ""
	caption, err := p.models.Captioner().Caption(canvas)
	if err != nil {
		// Per-box degradation: keep the element, drop the caption.
		p.log.WithError(err).WithField("bounds", fmt.Sprintf("%d,%d %dx%d", x1, y1, x2-x1, y2-y1)).
			Warn("caption failed, using fallback label")
	} else {
		description = strings.TrimSpace(caption)
		if fields := strings.Fields(description); len(fields) > 0 {
			label = strings.ToLower(fields[0])
		}
	}

	return DetectedElement{
		Label:       label,
		Description: description,
		Confidence:  math.Round(box.Confidence*1000) / 1000,
		Bounds:      Bounds{X: x1, Y: y1, W: x2 - x1, H: y2 - y1},
	}, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
