// Package geometry converts between the coordinate spaces an editor deals
// with: on-screen client coordinates, the canvas backing buffer, normalized
// grid positions and source-image pixels.
package geometry

import "math"

// Display limits for the editing canvas.
const (
	MaxDisplayWidth  = 800
	MaxDisplayHeight = 600
)

// Point is a position in some pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is an integer pixel extent, e.g. a canvas backing buffer or an image.
type Size struct {
	W int `json:"width"`
	H int `json:"height"`
}

func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// Box is the on-screen bounding rectangle of a canvas in client coordinates.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClientToCanvas maps a client coordinate into the canvas backing-pixel
// space, undoing any scaling between the displayed box and the buffer.
// A box with no extent on an axis is treated as unscaled on that axis.
func ClientToCanvas(client Point, box Box, canvas Size) Point {
	sx, sy := 1.0, 1.0
	if box.Width > 0 {
		sx = float64(canvas.W) / box.Width
	}
	if box.Height > 0 {
		sy = float64(canvas.H) / box.Height
	}
	return Point{
		X: (client.X - box.Left) * sx,
		Y: (client.Y - box.Top) * sy,
	}
}

// Normalize expresses a canvas point as fractions of the canvas extent.
func Normalize(p Point, canvas Size) Point {
	if canvas.Empty() {
		return Point{}
	}
	return Point{X: p.X / float64(canvas.W), Y: p.Y / float64(canvas.H)}
}

// Boundaries turns sorted normalized positions into the pixel boundary list
// [0, p0*extent, ..., extent]. Adjacent pairs are the cell spans of the axis.
func Boundaries(positions []float64, extent float64) []float64 {
	out := make([]float64, 0, len(positions)+2)
	out = append(out, 0)
	for _, p := range positions {
		out = append(out, p*extent)
	}
	return append(out, extent)
}

// DisplaySize scales src down to fit inside limit, keeping its aspect
// ratio. Images that already fit are returned unchanged; nothing is
// scaled up.
func DisplaySize(src, limit Size) Size {
	if src.Empty() {
		return Size{}
	}
	if limit.Empty() || (src.W <= limit.W && src.H <= limit.H) {
		return src
	}
	ratio := math.Min(float64(limit.W)/float64(src.W), float64(limit.H)/float64(src.H))
	return Size{
		W: max(1, int(float64(src.W)*ratio)),
		H: max(1, int(float64(src.H)*ratio)),
	}
}

// DefaultDisplayLimit is the 800×600 cap used by the editors.
func DefaultDisplayLimit() Size {
	return Size{W: MaxDisplayWidth, H: MaxDisplayHeight}
}
