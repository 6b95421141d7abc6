//go:build cgo

package vision

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/mathieufro/strobe-vision/internal/geometry"
)

const (
	// detectorInputSize is the fixed square input expected by the icon
	// detection model.
	detectorInputSize = 640

	// detectorCandidates is the number of candidate rows in the model's
	// output head at 640x640 input.
	detectorCandidates = 8400
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime initializes the onnxruntime environment exactly once per
// process. The shared library path can be overridden with
// STROBE_VISION_ORT_LIB.
func initRuntime() error {
	ortInitOnce.Do(func() {
		if lib := os.Getenv("STROBE_VISION_ORT_LIB"); lib != "" {
			ort.SetSharedLibraryPath(lib)
		} else {
			ort.SetSharedLibraryPath(defaultSharedLibPath())
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

func defaultSharedLibPath() string {
	if runtime.GOOS == "windows" {
		return "third_party/onnxruntime.dll"
	}
	if runtime.GOOS == "darwin" {
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.dylib"
		}
		return "third_party/onnxruntime.dylib"
	}
	if runtime.GOARCH == "arm64" {
		return "third_party/onnxruntime_arm64.so"
	}
	return "third_party/onnxruntime.so"
}

// ONNXDetector runs the fine-tuned icon detection model through onnxruntime.
// The session and its tensors are allocated once at load time and reused on
// every call; the sidecar's single-worker execution means no locking is
// needed around Run.
type ONNXDetector struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// LoadONNXDetector loads the icon detection model from
// <modelsDir>/icon_detect/model.onnx for the given device, implementing
// DetectorLoader.
func LoadONNXDetector(modelsDir, device string) (Detector, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	modelPath := filepath.Join(modelsDir, "icon_detect", "model.onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("detector model not found: %w", err)
	}

	inputShape := ort.NewShape(1, 3, detectorInputSize, detectorInputSize)
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, 3*detectorInputSize*detectorInputSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	// Single-class model: 4 box coordinates + 1 score per candidate.
	outputShape := ort.NewShape(1, 5, detectorCandidates)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	switch device {
	case "cuda":
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, fmt.Errorf("CUDA unavailable: %w", err)
		}
		defer cudaOpts.Destroy()
		if err := options.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, fmt.Errorf("failed to enable CUDA provider: %w", err)
		}
	case "mps":
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, fmt.Errorf("failed to enable CoreML provider: %w", err)
		}
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &ONNXDetector{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

// Detect runs one forward pass and returns candidate boxes in the source
// image's coordinate space, highest confidence first, with standard greedy
// NMS applied at iouThreshold.
func (d *ONNXDetector) Detect(img image.Image, confThreshold, iouThreshold float64) ([]geometry.Box, error) {
	size := img.Bounds().Size()
	srcW, srcH := float64(size.X), float64(size.Y)

	d.prepareInput(img)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return postprocess(d.output.GetData(), srcW, srcH, confThreshold, iouThreshold), nil
}

// prepareInput resizes the image to the model's square input and writes it
// into the session tensor in CHW layout, normalized to [0,1].
func (d *ONNXDetector) prepareInput(img image.Image) {
	resized := resize.Resize(detectorInputSize, detectorInputSize, img, resize.Lanczos3)
	data := d.input.GetData()

	idx := 0
	plane := detectorInputSize * detectorInputSize
	for y := 0; y < detectorInputSize; y++ {
		for x := 0; x < detectorInputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			data[idx] = float32(r>>8) / 255.0
			data[idx+plane] = float32(g>>8) / 255.0
			data[idx+2*plane] = float32(b>>8) / 255.0
			idx++
		}
	}
}

// postprocess converts the raw output head into boxes in source coordinates,
// filters by confidence, and applies greedy NMS.
func postprocess(output []float32, srcW, srcH, confThreshold, iouThreshold float64) []geometry.Box {
	candidates := make([]geometry.Box, 0, 64)

	for i := 0; i < detectorCandidates; i++ {
		conf := float64(output[4*detectorCandidates+i])
		if conf < confThreshold {
			continue
		}

		xc := float64(output[i])
		yc := float64(output[detectorCandidates+i])
		w := float64(output[2*detectorCandidates+i])
		h := float64(output[3*detectorCandidates+i])

		// Model space -> source pixel space.
		x1 := (xc - w/2) / detectorInputSize * srcW
		y1 := (yc - h/2) / detectorInputSize * srcH
		x2 := (xc + w/2) / detectorInputSize * srcW
		y2 := (yc + h/2) / detectorInputSize * srcH

		candidates = append(candidates, geometry.Box{
			X1:         clamp(x1, 0, srcW),
			Y1:         clamp(y1, 0, srcH),
			X2:         clamp(x2, 0, srcW),
			Y2:         clamp(y2, 0, srcH),
			Confidence: conf,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	// Greedy NMS on plain IoU. The pipeline applies the extended-overlap
	// suppression afterwards; this pass only dedupes near-identical anchors.
	kept := make([]geometry.Box, 0, len(candidates))
	suppressed := make([]bool, len(candidates))
	for i := range candidates {
		if suppressed[i] {
			continue
		}
		kept = append(kept, candidates[i])
		for j := i + 1; j < len(candidates); j++ {
			if suppressed[j] {
				continue
			}
			if geometry.IoU(candidates[i], candidates[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Close releases the session and its tensors. The sidecar never calls this
// during normal operation; it exists for tests and embedders.
func (d *ONNXDetector) Close() {
	d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
}
