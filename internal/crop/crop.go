// Package crop cuts a source image into the cells described by a grid.
package crop

import (
	"errors"
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"gridcrop/internal/geometry"
)

var (
	// ErrEmptyCell is reported when a raster is requested for a cell whose
	// rounded rectangle has no area.
	ErrEmptyCell = errors.New("crop: empty cell")
	// ErrMissingBoundary is reported when the grid has fewer lines than its
	// dimensions require, i.e. staged dimensions were never committed.
	ErrMissingBoundary = errors.New("crop: missing cell boundary")
	// ErrOutOfBounds is reported for a cell rectangle outside the image.
	ErrOutOfBounds = errors.New("crop: cell outside image")
)

// Result is one cropped cell. CellNumber is 1-based in row-major order.
type Result struct {
	Image      *image.NRGBA
	CellNumber int
	Width      int
	Height     int
}

// Empty reports whether the cell rounded to zero width or height.
func (r Result) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Skipped describes a cell whose raster could not be produced.
type Skipped struct {
	CellNumber int
	Rect       image.Rectangle
	Err        error
}

func (s Skipped) Error() string {
	return fmt.Sprintf("cell %d %v: %v", s.CellNumber, s.Rect, s.Err)
}

func (s Skipped) Unwrap() error {
	return s.Err
}

// Outcome is the per-cell result: exactly one of Result or Skipped is set.
type Outcome struct {
	Result  *Result
	Skipped *Skipped
}

// SkipPolicy decides what Crop does with a cell that failed.
type SkipPolicy int

const (
	// Skip omits failed cells from the results.
	Skip SkipPolicy = iota
	// Fail aborts the crop on the first failed cell.
	Fail
)

func (p SkipPolicy) String() string {
	if p == Fail {
		return "fail"
	}
	return "skip"
}

// ParsePolicy maps "skip" and "fail" to a policy; anything else is Skip.
func ParsePolicy(s string) SkipPolicy {
	if s == "fail" {
		return Fail
	}
	return Skip
}

// RasterFunc copies rectangle r of src into a new raster.
type RasterFunc func(src image.Image, r image.Rectangle) (*image.NRGBA, error)

// Engine crops images. The zero value uses Copy and the Skip policy.
type Engine struct {
	Policy SkipPolicy
	Raster RasterFunc
	// OnSkip, if set, is called for every skipped cell.
	OnSkip func(Skipped)
}

// Cell is a cell number and its rectangle in source pixels.
type Cell struct {
	Number int
	Rect   image.Rectangle
	Err    error
}

// Cells computes the source-pixel rectangle of every cell in row-major
// order. vertical and horizontal are the normalized line positions.
func Cells(bounds image.Rectangle, vertical, horizontal []float64, cols, rows int) []Cell {
	xs := geometry.Boundaries(vertical, float64(bounds.Dx()))
	ys := geometry.Boundaries(horizontal, float64(bounds.Dy()))

	cells := make([]Cell, 0, max(0, cols*rows))
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c := Cell{Number: row*cols + col + 1}
			if col+1 >= len(xs) || row+1 >= len(ys) {
				c.Err = ErrMissingBoundary
				cells = append(cells, c)
				continue
			}
			c.Rect = image.Rect(
				bounds.Min.X+round(xs[col]),
				bounds.Min.Y+round(ys[row]),
				bounds.Min.X+round(xs[col+1]),
				bounds.Min.Y+round(ys[row+1]),
			)
			cells = append(cells, c)
		}
	}
	return cells
}

// Outcomes crops every cell independently and reports each one. A cell that
// rounds to no area still yields a Result, with zero Width or Height.
func (e Engine) Outcomes(img image.Image, vertical, horizontal []float64, cols, rows int) []Outcome {
	if img == nil {
		return nil
	}
	raster := e.Raster
	if raster == nil {
		raster = Copy
	}
	cells := Cells(img.Bounds(), vertical, horizontal, cols, rows)
	out := make([]Outcome, 0, len(cells))
	for _, c := range cells {
		err := c.Err
		var dst *image.NRGBA
		switch {
		case err != nil:
		case c.Rect.Empty():
			// lines rounded onto the same pixel: the cell is kept with no area
			dst = image.NewNRGBA(image.Rect(0, 0, max(c.Rect.Dx(), 0), max(c.Rect.Dy(), 0)))
		default:
			dst, err = raster(img, c.Rect)
		}
		if err != nil {
			out = append(out, Outcome{Skipped: &Skipped{CellNumber: c.Number, Rect: c.Rect, Err: err}})
			continue
		}
		b := dst.Bounds()
		out = append(out, Outcome{Result: &Result{
			Image:      dst,
			CellNumber: c.Number,
			Width:      b.Dx(),
			Height:     b.Dy(),
		}})
	}
	return out
}

// Crop returns the cropped cells of img. A nil image yields no results and
// no error. Under the Skip policy failed cells are left out; under Fail the
// first failure is returned.
func (e Engine) Crop(img image.Image, vertical, horizontal []float64, cols, rows int) ([]Result, error) {
	outcomes := e.Outcomes(img, vertical, horizontal, cols, rows)
	results := make([]Result, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Skipped != nil {
			if e.OnSkip != nil {
				e.OnSkip(*o.Skipped)
			}
			if e.Policy == Fail {
				return nil, *o.Skipped
			}
			continue
		}
		results = append(results, *o.Result)
	}
	return results, nil
}

// Crop runs the default engine.
func Crop(img image.Image, vertical, horizontal []float64, cols, rows int) []Result {
	results, _ := Engine{}.Crop(img, vertical, horizontal, cols, rows)
	return results
}

// Copy is a 1:1 pixel copy of r into a raster anchored at the origin.
func Copy(src image.Image, r image.Rectangle) (*image.NRGBA, error) {
	if r.Empty() {
		return nil, ErrEmptyCell
	}
	if !r.In(src.Bounds()) {
		return nil, ErrOutOfBounds
	}
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Copy(dst, image.Point{}, src, r, xdraw.Src, nil)
	return dst, nil
}

func round(v float64) int {
	return int(math.Round(v))
}
