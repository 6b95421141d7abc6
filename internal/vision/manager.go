package vision

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/mathieufro/strobe-vision/internal/geometry"
)

// Detector finds candidate UI element regions in an image. Implementations
// are expected to over-generate candidates at permissive thresholds and rely
// on the caller's overlap suppression to prune them.
type Detector interface {
	Detect(img image.Image, confThreshold, iouThreshold float64) ([]geometry.Box, error)
}

// Captioner produces a short text description of a small cropped element.
type Captioner interface {
	Caption(crop image.Image) (string, error)
}

// DetectorLoader constructs a Detector from the model assets directory for
// the selected device.
type DetectorLoader func(modelsDir, device string) (Detector, error)

// CaptionerLoader constructs a Captioner from the model assets directory for
// the selected device.
type CaptionerLoader func(modelsDir, device string) (Captioner, error)

// Manager holds the process-wide backend state: at most one loaded detector,
// one loaded captioner, and the device they were loaded for. Loading is lazy
// and happens at most once; there is no unload transition.
//
// The sidecar processes requests strictly one at a time on a single worker,
// so Manager does no locking. Introducing concurrent request handling would
// require adding synchronization here first.
type Manager struct {
	modelsDir string
	device    string
	log       *logrus.Logger

	loadDetector  DetectorLoader
	loadCaptioner CaptionerLoader

	detector  Detector
	captioner Captioner
	loaded    bool
}

// NewManager returns an unloaded Manager. The device choice is made by the
// caller (once, at startup) and is never re-evaluated.
func NewManager(modelsDir, device string, dl DetectorLoader, cl CaptionerLoader, log *logrus.Logger) *Manager {
	return &Manager{
		modelsDir:     modelsDir,
		device:        device,
		log:           log,
		loadDetector:  dl,
		loadCaptioner: cl,
	}
}

// EnsureLoaded loads both backends if they are not loaded yet. Calls after a
// successful load are no-ops. A failed load leaves the Manager unloaded so a
// later request can retry.
func (m *Manager) EnsureLoaded() error {
	if m.loaded {
		return nil
	}

	detector, err := m.loadDetector(m.modelsDir, m.device)
	if err != nil {
		return fmt.Errorf("failed to load detector: %w", err)
	}

	captioner, err := m.loadCaptioner(m.modelsDir, m.device)
	if err != nil {
		return fmt.Errorf("failed to load captioner: %w", err)
	}

	m.detector = detector
	m.captioner = captioner
	m.loaded = true
	m.log.WithField("device", m.device).Info("model backends loaded")
	return nil
}

// Loaded reports whether the backends have been loaded.
func (m *Manager) Loaded() bool {
	return m.loaded
}

// Device returns the device string chosen at startup (for example "cuda",
// "mps", or "cpu").
func (m *Manager) Device() string {
	return m.device
}

// Detector returns the loaded detector. Callers must EnsureLoaded first.
func (m *Manager) Detector() Detector {
	return m.detector
}

// Captioner returns the loaded captioner. Callers must EnsureLoaded first.
func (m *Manager) Captioner() Captioner {
	return m.captioner
}
