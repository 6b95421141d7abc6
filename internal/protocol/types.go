package protocol

import (
	"fmt"

	"github.com/mathieufro/strobe-vision/internal/pipeline"
)

// Protocol-layer threshold defaults, applied when a detect request omits
// options. These are intentionally stricter than the pipeline's internal
// defaults; callers rely on both sets staying distinct.
const (
	DefaultConfidenceThreshold = 0.3
	DefaultIoUThreshold        = 0.5
)

// unknownID correlates responses to requests that carried no usable id.
const unknownID = "unknown"

// Request is one incoming line. Type selects the operation; Image and
// Options only apply to detect requests.
type Request struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Image   string   `json:"image,omitempty"`
	Options *Options `json:"options,omitempty"`
}

// Options carries per-request detection thresholds. Pointer fields
// distinguish "absent, use the default" from an explicit zero.
type Options struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	IoUThreshold        *float64 `json:"iou_threshold,omitempty"`
}

// DetectRequest is a fully-validated detect request with defaults applied.
type DetectRequest struct {
	ID                  string
	Image               string
	ConfidenceThreshold float64
	IoUThreshold        float64
}

// parseDetectRequest validates a raw detect request and fills in the
// protocol-layer threshold defaults. Missing id or image are caller errors.
func parseDetectRequest(req *Request) (*DetectRequest, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("detect request missing required field: id")
	}
	if req.Image == "" {
		return nil, fmt.Errorf("detect request missing required field: image")
	}

	out := &DetectRequest{
		ID:                  req.ID,
		Image:               req.Image,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		IoUThreshold:        DefaultIoUThreshold,
	}
	if req.Options != nil {
		if req.Options.ConfidenceThreshold != nil {
			out.ConfidenceThreshold = *req.Options.ConfidenceThreshold
		}
		if req.Options.IoUThreshold != nil {
			out.IoUThreshold = *req.Options.IoUThreshold
		}
	}
	return out, nil
}

// PongResponse answers a ping. It reports backend state without forcing the
// models to load.
type PongResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	ModelsLoaded bool   `json:"models_loaded"`
	Device       string `json:"device"`
}

// ResultResponse carries the elements found by one detect request.
type ResultResponse struct {
	ID        string                     `json:"id"`
	Type      string                     `json:"type"`
	Elements  []pipeline.DetectedElement `json:"elements"`
	LatencyMS int64                      `json:"latency_ms"`
}

// ErrorResponse reports any per-request failure.
type ErrorResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newPongResponse(id string, loaded bool, device string) *PongResponse {
	return &PongResponse{ID: id, Type: "pong", ModelsLoaded: loaded, Device: device}
}

func newResultResponse(id string, elements []pipeline.DetectedElement, latencyMS int64) *ResultResponse {
	return &ResultResponse{ID: id, Type: "result", Elements: elements, LatencyMS: latencyMS}
}

func newErrorResponse(id, message string) *ErrorResponse {
	return &ErrorResponse{ID: id, Type: "error", Message: message}
}
