// Package vision owns the model backends behind the detection pipeline: the
// region detector, the region captioner, device selection, and model asset
// resolution.
//
// Backends are expensive to load, so the Manager loads them lazily on first
// use and exactly once for the lifetime of the process. There is no unload:
// the process is a single-worker sidecar and the loaded state is simply
// dropped when the process exits.
//
// The production detector runs an ONNX icon-detection model through
// onnxruntime; the production captioner runs Tesseract over each cropped
// element. Both need cgo: on non-cgo builds the detector refuses to load and
// the captioner degrades every caption to the fallback label. Both sit
// behind small interfaces so the pipeline and its tests never touch the
// real runtimes.
package vision
