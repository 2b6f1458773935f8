// Package detector decodes raw SCRFD-style face detector outputs into
// deduplicated face detections in original-image coordinates.
package detector

import (
	"image"
	"math"

	jsoniter "github.com/json-iterator/go"
)

// Facial landmark indices in the order the network emits them.
const (
	LeftEye      = 0
	RightEye     = 1
	Nose         = 2
	LeftMouth    = 3
	RightMouth   = 4
	NumLandmarks = 5
)

// Point is a 2D point in floating point pixel space.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Center is an anchor location on the input-tensor grid.
type Center struct {
	X int
	Y int
}

// Landmarks holds the five facial landmarks of a candidate.
type Landmarks [NumLandmarks]Point

// Box is an axis-aligned box given by its corners.
type Box struct {
	X1, Y1 float32 // top-left
	X2, Y2 float32 // bottom-right
}

// Width returns box width.
func (b Box) Width() float32 {
	return b.X2 - b.X1
}

// Height returns box height.
func (b Box) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns box area. Inverted boxes yield a non-positive area.
func (b Box) Area() float32 {
	return b.Width() * b.Height()
}

// Candidate is a decoded, unfiltered detection in original-image scale.
// Landmarks is only meaningful when HasLandmarks is set.
type Candidate struct {
	Box          Box
	Score        float32
	Landmarks    Landmarks
	HasLandmarks bool
}

// Rect is an integer bounding box. It serializes as [x1, y1, x2, y2].
type Rect struct {
	X1, Y1, X2, Y2 int
}

// Width returns the rect width.
func (r Rect) Width() int {
	return r.X2 - r.X1
}

// Height returns the rect height.
func (r Rect) Height() int {
	return r.Y2 - r.Y1
}

// Rectangle converts r to an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// MarshalJSON implements json.Marshaler.
func (r Rect) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal([4]int{r.X1, r.Y1, r.X2, r.Y2})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rect) UnmarshalJSON(data []byte) error {
	var v [4]int
	if err := jsoniter.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Rect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
	return nil
}

// PixelPoint is an integer image coordinate. It serializes as [x, y].
type PixelPoint struct {
	X, Y int
}

// Point converts p to an image.Point.
func (p PixelPoint) Point() image.Point {
	return image.Pt(p.X, p.Y)
}

// MarshalJSON implements json.Marshaler.
func (p PixelPoint) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PixelPoint) UnmarshalJSON(data []byte) error {
	var v [2]int
	if err := jsoniter.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = PixelPoint{X: v[0], Y: v[1]}
	return nil
}

// FaceLandmarks are the clamped integer landmarks of a Detection.
type FaceLandmarks [NumLandmarks]PixelPoint

// Detection is a final face detection in original-image pixels.
type Detection struct {
	BBox       Rect           `json:"bbox"`
	Confidence float32        `json:"confidence"`
	Landmarks  *FaceLandmarks `json:"landmarks,omitempty"`
}

// clampPixel clamps v into [0, limit] and truncates toward zero.
// NaN maps to 0.
func clampPixel(v float32, limit int) int {
	f := float64(v)
	if math.IsNaN(f) {
		return 0
	}
	if f < 0 {
		return 0
	}
	if f > float64(limit) {
		return limit
	}
	return int(f)
}
