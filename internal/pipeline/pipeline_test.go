package pipeline

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mathieufro/strobe-vision/internal/geometry"
	"github.com/mathieufro/strobe-vision/internal/vision"
)

// fakeDetector returns a fixed set of boxes for any image.
type fakeDetector struct {
	boxes []geometry.Box
	err   error
}

func (d *fakeDetector) Detect(img image.Image, conf, iou float64) ([]geometry.Box, error) {
	return d.boxes, d.err
}

// fakeCaptioner replays canned captions per call and can fail selected calls.
type fakeCaptioner struct {
	captions []string
	errAt    map[int]error
	calls    int
}

func (c *fakeCaptioner) Caption(crop image.Image) (string, error) {
	call := c.calls
	c.calls++
	if err, ok := c.errAt[call]; ok {
		return "", err
	}
	if call < len(c.captions) {
		return c.captions[call], nil
	}
	return "", nil
}

func newTestPipeline(t *testing.T, d vision.Detector, c vision.Captioner) *Pipeline {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	m := vision.NewManager(t.TempDir(), "cpu",
		func(modelsDir, device string) (vision.Detector, error) { return d, nil },
		func(modelsDir, device string) (vision.Captioner, error) { return c, nil },
		log,
	)
	return New(m, log)
}

func encodeImageB64(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDetect_OversizedPayloadRejected(t *testing.T) {
	p := newTestPipeline(t, &fakeDetector{}, &fakeCaptioner{})

	payload := strings.Repeat("A", MaxBase64Bytes+1)
	_, err := p.Detect(payload, DefaultConfidenceThreshold, DefaultIoUThreshold)
	if !errors.Is(err, ErrInputTooLarge) {
		t.Fatalf("expected ErrInputTooLarge, got %v", err)
	}
	if !strings.Contains(err.Error(), "50MB") {
		t.Errorf("error should name the 50MB limit, got: %v", err)
	}
}

func TestDetect_OversizedPayloadSkipsModelLoad(t *testing.T) {
	loads := 0
	log := logrus.New()
	log.SetOutput(io.Discard)
	m := vision.NewManager(t.TempDir(), "cpu",
		func(modelsDir, device string) (vision.Detector, error) {
			loads++
			return &fakeDetector{}, nil
		},
		func(modelsDir, device string) (vision.Captioner, error) { return &fakeCaptioner{}, nil },
		log,
	)
	p := New(m, log)

	payload := strings.Repeat("A", MaxBase64Bytes+1)
	if _, err := p.Detect(payload, 0.3, 0.5); err == nil {
		t.Fatal("expected error")
	}
	if loads != 0 {
		t.Errorf("validation failure must not trigger model loading, loader ran %d times", loads)
	}
}

func TestDetect_InvalidBase64(t *testing.T) {
	p := newTestPipeline(t, &fakeDetector{}, &fakeCaptioner{})

	_, err := p.Detect("not base64!!!", 0.3, 0.5)
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}

func TestDetect_UndecodableBytes(t *testing.T) {
	p := newTestPipeline(t, &fakeDetector{}, &fakeCaptioner{})

	junk := base64.StdEncoding.EncodeToString([]byte{0x89, 0x50, 0x4E, 0x47})
	_, err := p.Detect(junk, 0.3, 0.5)
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}

func TestDetect_OversizedDimensionsRejected(t *testing.T) {
	p := newTestPipeline(t, &fakeDetector{}, &fakeCaptioner{})

	// 4100x2100 = 8.61M pixels, just over the 3840x2160 budget.
	payload := encodeImageB64(t, 4100, 2100)
	_, err := p.Detect(payload, 0.3, 0.5)
	if !errors.Is(err, ErrInputTooLarge) {
		t.Fatalf("expected ErrInputTooLarge, got %v", err)
	}
	if !strings.Contains(err.Error(), "4K") {
		t.Errorf("error should name the 4K limit, got: %v", err)
	}
}

func TestDetect_ElementAssembly(t *testing.T) {
	detector := &fakeDetector{boxes: []geometry.Box{
		{X1: 10.6, Y1: 20.9, X2: 42.2, Y2: 60.1, Confidence: 0.98765},
	}}
	captioner := &fakeCaptioner{captions: []string{"  Submit Button  "}}
	p := newTestPipeline(t, detector, captioner)

	elements, err := p.Detect(encodeImageB64(t, 200, 200), 0.3, 0.5)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elements))
	}

	e := elements[0]
	if e.Label != "submit" {
		t.Errorf("Label: got %q, want submit (lowercased first token)", e.Label)
	}
	if e.Description != "Submit Button" {
		t.Errorf("Description: got %q, want trimmed full caption", e.Description)
	}
	if e.Confidence != 0.988 {
		t.Errorf("Confidence: got %v, want 0.988 (3 decimals)", e.Confidence)
	}
	// Bounds are truncating integer conversions of the float box.
	want := Bounds{X: 10, Y: 20, W: 32, H: 40}
	if e.Bounds != want {
		t.Errorf("Bounds: got %+v, want %+v", e.Bounds, want)
	}
	if e.Bounds.W <= 0 || e.Bounds.H <= 0 {
		t.Error("bounds must have positive size")
	}
}

func TestDetect_CaptionFailureDegradesOneElement(t *testing.T) {
	detector := &fakeDetector{boxes: []geometry.Box{
		{X1: 0, Y1: 0, X2: 20, Y2: 20, Confidence: 0.9},
		{X1: 100, Y1: 100, X2: 120, Y2: 120, Confidence: 0.8},
		{X1: 150, Y1: 0, X2: 170, Y2: 20, Confidence: 0.7},
	}}
	captioner := &fakeCaptioner{
		captions: []string{"close icon", "broken", "settings gear"},
		errAt:    map[int]error{1: errors.New("backend exploded")},
	}
	p := newTestPipeline(t, detector, captioner)

	elements, err := p.Detect(encodeImageB64(t, 200, 200), 0.3, 0.5)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(elements) != 3 {
		t.Fatalf("caption failure must not shrink results: got %d elements, want 3", len(elements))
	}

	if elements[0].Label != "close" || elements[2].Label != "settings" {
		t.Errorf("healthy elements lost their captions: %+v", elements)
	}
	if elements[1].Label != "icon" || elements[1].Description != "" {
		t.Errorf("degraded element: got (%q, %q), want (icon, \"\")", elements[1].Label, elements[1].Description)
	}
}

func TestDetect_EmptyCaptionFallsBackToIcon(t *testing.T) {
	detector := &fakeDetector{boxes: []geometry.Box{
		{X1: 0, Y1: 0, X2: 30, Y2: 30, Confidence: 0.5},
	}}
	captioner := &fakeCaptioner{captions: []string{"   "}}
	p := newTestPipeline(t, detector, captioner)

	elements, err := p.Detect(encodeImageB64(t, 100, 100), 0.3, 0.5)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if elements[0].Label != "icon" {
		t.Errorf("Label: got %q, want icon for empty caption", elements[0].Label)
	}
	if elements[0].Description != "" {
		t.Errorf("Description: got %q, want empty", elements[0].Description)
	}
}

func TestDetect_OverlapSuppressionApplied(t *testing.T) {
	// A large box containing a small one: the suppressor drops the larger.
	detector := &fakeDetector{boxes: []geometry.Box{
		{X1: 0, Y1: 0, X2: 150, Y2: 150, Confidence: 0.9},
		{X1: 10, Y1: 10, X2: 40, Y2: 40, Confidence: 0.8},
	}}
	captioner := &fakeCaptioner{captions: []string{"menu"}}
	p := newTestPipeline(t, detector, captioner)

	elements, err := p.Detect(encodeImageB64(t, 200, 200), 0.3, 0.5)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("expected suppression to keep 1 element, got %d", len(elements))
	}
	if elements[0].Bounds.W != 30 {
		t.Errorf("kept the wrong box: %+v", elements[0].Bounds)
	}
}

func TestDetect_DetectorErrorFailsRequest(t *testing.T) {
	detector := &fakeDetector{err: errors.New("inference blew up")}
	p := newTestPipeline(t, detector, &fakeCaptioner{})

	_, err := p.Detect(encodeImageB64(t, 50, 50), 0.3, 0.5)
	if err == nil || !strings.Contains(err.Error(), "inference blew up") {
		t.Fatalf("detector errors must fail the whole request, got %v", err)
	}
}

func TestDetect_ZeroSizeBoxSkipped(t *testing.T) {
	detector := &fakeDetector{boxes: []geometry.Box{
		{X1: 10, Y1: 10, X2: 10.4, Y2: 10.9, Confidence: 0.9}, // collapses to 0x0
		{X1: 20, Y1: 20, X2: 50, Y2: 50, Confidence: 0.8},
	}}
	captioner := &fakeCaptioner{captions: []string{"button", "button"}}
	p := newTestPipeline(t, detector, captioner)

	elements, err := p.Detect(encodeImageB64(t, 100, 100), 0.3, 0.5)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("degenerate box should be skipped: got %d elements", len(elements))
	}
	if elements[0].Bounds.X != 20 {
		t.Errorf("wrong element survived: %+v", elements[0])
	}
}

func TestDetect_EmptyResultIsNonNil(t *testing.T) {
	p := newTestPipeline(t, &fakeDetector{}, &fakeCaptioner{})

	elements, err := p.Detect(encodeImageB64(t, 50, 50), 0.3, 0.5)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if elements == nil {
		t.Error("elements must be non-nil so it serializes as [] not null")
	}
}
