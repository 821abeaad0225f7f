// Package render draws the grid overlay an editor shows on top of the
// scaled source image. It is presentation only: nothing here changes the
// grid or the crop output.
package render

import (
	"image"
	"image/color"
	"math"
	"strconv"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"gridcrop/internal/geometry"
)

const (
	lineWidth    = 2
	dashLength   = 5
	handleRadius = 6
)

var (
	labelFill    = color.NRGBA{R: 255, G: 255, B: 255, A: 230}
	labelOutline = color.NRGBA{A: 255}
)

// Frame is everything the overlay needs for one draw.
type Frame struct {
	Source     image.Image
	Display    geometry.Size
	Vertical   []float64
	Horizontal []float64
	Cols, Rows int
	Color      color.Color
}

// Scale resamples src to size.
func Scale(src image.Image, size geometry.Size) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size.W, size.H))
	if src == nil || size.Empty() {
		return dst
	}
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// Overlay renders f at its display size: the scaled image, dashed divider
// lines, a round handle on each line and the cell number in every cell.
func Overlay(f Frame) *image.NRGBA {
	dst := Scale(f.Source, f.Display)
	if f.Display.Empty() {
		return dst
	}
	c := f.Color
	if c == nil {
		c, _ = ParseColor(DefaultGridColor)
	}
	w, h := float64(f.Display.W), float64(f.Display.H)
	xs := geometry.Boundaries(f.Vertical, w)
	ys := geometry.Boundaries(f.Horizontal, h)

	for _, x := range xs[1 : len(xs)-1] {
		dashedVertical(dst, int(math.Round(x)), c)
	}
	for _, y := range ys[1 : len(ys)-1] {
		dashedHorizontal(dst, int(math.Round(y)), c)
	}
	for _, x := range xs[1 : len(xs)-1] {
		disc(dst, x, h/2, handleRadius, c)
	}
	for _, y := range ys[1 : len(ys)-1] {
		disc(dst, w/2, y, handleRadius, c)
	}

	for row := 0; row < f.Rows && row+1 < len(ys); row++ {
		for col := 0; col < f.Cols && col+1 < len(xs); col++ {
			cx := (xs[col] + xs[col+1]) / 2
			cy := (ys[row] + ys[row+1]) / 2
			label(dst, strconv.Itoa(row*f.Cols+col+1), cx, cy)
		}
	}
	return dst
}

func dashedVertical(dst *image.NRGBA, x int, c color.Color) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		if (y/dashLength)%2 == 1 {
			continue
		}
		for dx := -lineWidth / 2; dx < lineWidth-lineWidth/2; dx++ {
			dst.Set(x+dx, y, c)
		}
	}
}

func dashedHorizontal(dst *image.NRGBA, y int, c color.Color) {
	b := dst.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		if (x/dashLength)%2 == 1 {
			continue
		}
		for dy := -lineWidth / 2; dy < lineWidth-lineWidth/2; dy++ {
			dst.Set(x, y+dy, c)
		}
	}
}

func disc(dst *image.NRGBA, cx, cy, r float64, c color.Color) {
	x0, x1 := int(math.Floor(cx-r)), int(math.Ceil(cx+r))
	y0, y1 := int(math.Floor(cy-r)), int(math.Ceil(cy+r))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy <= r*r {
				dst.Set(x, y, c)
			}
		}
	}
}

// label draws s centred on (cx, cy) with a one-pixel outline.
func label(dst *image.NRGBA, s string, cx, cy float64) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Round()
	x := int(math.Round(cx)) - width/2
	// Face7x13 has ascent 11, descent 2
	y := int(math.Round(cy)) + (face.Ascent-face.Descent)/2

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(labelOutline), Face: face}
	for _, off := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		d.Dot = fixed.P(x+off[0], y+off[1])
		d.DrawString(s)
	}
	d.Src = image.NewUniform(labelFill)
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}
