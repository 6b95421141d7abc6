// Package geometry provides axis-aligned bounding box math for the detection
// pipeline: intersection-over-union, an extended overlap metric that also
// catches containment, and redundant-box suppression.
//
// # Coordinate System
//
// Boxes use the detector's native coordinate space: (x1,y1) is the top-left
// corner, (x2,y2) the bottom-right, with X increasing rightward and Y
// increasing downward. Coordinates are floating-point; conversion to integer
// pixel bounds happens later, in the pipeline.
//
// # Extended Overlap
//
// Plain IoU under-reports containment: a small icon fully inside a larger
// button region has low IoU even though the two detections are redundant.
// ExtendedOverlap therefore takes the max of IoU and each box's containment
// ratio, so full or near-full containment scores close to 1 regardless of
// the relative sizes.
//
// All functions are pure and safe for concurrent use.
package geometry
