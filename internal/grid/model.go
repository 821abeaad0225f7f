// Package grid holds the normalized divider lines of an N×M crop grid.
//
// Both line sequences are kept strictly increasing inside (0,1). Mutators
// clamp a moved line between its neighbours instead of re-sorting, so the
// index of a line is also its spatial order.
package grid

import (
	"errors"
	"fmt"
	"math"
)

// Model owns the grid dimensions and the two line sequences.
//
// Dimensions are staged with SetDimensions and only materialize into lines
// on Initialize or Reset, which lets a front end decide when a size change
// is committed.
type Model struct {
	dims       Dimensions
	vertical   []Line
	horizontal []Line
}

// New returns a model with evenly spaced lines for d. Out-of-range
// dimensions fall back to the 3×3 default.
func New(d Dimensions) *Model {
	if !d.Valid() {
		d = DefaultDimensions()
	}
	m := &Model{}
	m.Initialize(d.Cols, d.Rows)
	return m
}

// Initialize replaces both line sequences with an even layout for cols×rows
// and records those dimensions. Callers validate cols and rows; values
// outside [1,10] are clamped into range.
func (m *Model) Initialize(cols, rows int) {
	m.dims = Dimensions{Cols: clampCount(cols), Rows: clampCount(rows)}
	m.vertical = evenLines(m.dims.Cols)
	m.horizontal = evenLines(m.dims.Rows)
}

// SetDimensions stages a new column and/or row count. Each value is applied
// only when it is in range and differs from the current one; lines are not
// regenerated. It reports whether anything changed.
func (m *Model) SetDimensions(cols, rows int) bool {
	changed := false
	if InRange(cols) && cols != m.dims.Cols {
		m.dims.Cols = cols
		changed = true
	}
	if InRange(rows) && rows != m.dims.Rows {
		m.dims.Rows = rows
		changed = true
	}
	return changed
}

// Reset discards manual adjustments by re-initializing with the current
// dimensions.
func (m *Model) Reset() {
	m.Initialize(m.dims.Cols, m.dims.Rows)
}

func (m *Model) Dimensions() Dimensions {
	return m.dims
}

// Stale reports whether staged dimensions have not been materialized yet.
func (m *Model) Stale() bool {
	return len(m.vertical) != m.dims.Cols-1 || len(m.horizontal) != m.dims.Rows-1
}

// Lines returns a copy of the lines for axis a.
func (m *Model) Lines(a Axis) []Line {
	src := m.seq(a)
	out := make([]Line, len(src))
	copy(out, src)
	return out
}

// Positions returns the normalized positions for axis a in spatial order.
func (m *Model) Positions(a Axis) []float64 {
	src := m.seq(a)
	out := make([]float64, len(src))
	for i, l := range src {
		out[i] = l.Position
	}
	return out
}

func (m *Model) Len(a Axis) int {
	return len(m.seq(a))
}

// Position returns the position of line i on axis a.
func (m *Model) Position(a Axis, i int) (float64, bool) {
	s := m.seq(a)
	if i < 0 || i >= len(s) {
		return 0, false
	}
	return s[i].Position, true
}

// Bounds returns the positions of the predecessor and successor of line i,
// using 0 and 1 at the sequence ends.
func (m *Model) Bounds(a Axis, i int) (prev, next float64) {
	s := m.seq(a)
	prev, next = 0, 1
	if i > 0 && i-1 < len(s) {
		prev = s[i-1].Position
	}
	if i >= 0 && i+1 < len(s) {
		next = s[i+1].Position
	}
	return prev, next
}

// Move sets line i on axis a to pos, clamped to stay MinGap away from its
// neighbours. Only index i is written. It returns the stored position and
// false when the line does not exist or pos is not a number.
func (m *Model) Move(a Axis, i int, pos float64) (float64, bool) {
	s := m.seq(a)
	if i < 0 || i >= len(s) || math.IsNaN(pos) {
		return 0, false
	}
	prev, next := m.Bounds(a, i)
	pos = math.Max(prev+MinGap, math.Min(next-MinGap, pos))
	s[i] = Line{Position: pos}
	return pos, true
}

// ErrPlacement is returned by Place for an unusable set of positions.
var ErrPlacement = errors.New("invalid line positions")

// Place moves every line on axis a to ps. The positions must match the line
// count, be strictly increasing and keep MinGap from each other and from
// the image edges. Lines moving right are placed from the far end first and
// lines moving left from the near end, so no line is clamped by a neighbour
// that has yet to move.
func (m *Model) Place(a Axis, ps []float64) error {
	s := m.seq(a)
	if len(ps) != len(s) {
		return fmt.Errorf("%w: %s axis has %d lines, got %d positions", ErrPlacement, a, len(s), len(ps))
	}
	const eps = 1e-9
	prev := 0.0
	for i, p := range ps {
		if math.IsNaN(p) || p-prev < MinGap-eps {
			return fmt.Errorf("%w: %s line %d at %v is closer than %v to its neighbour", ErrPlacement, a, i, p, MinGap)
		}
		prev = p
	}
	if 1-prev < MinGap-eps {
		return fmt.Errorf("%w: %s line %d at %v is closer than %v to the edge", ErrPlacement, a, len(ps)-1, prev, MinGap)
	}
	for i := len(ps) - 1; i >= 0; i-- {
		if ps[i] > s[i].Position {
			m.Move(a, i, ps[i])
		}
	}
	for i := range ps {
		if ps[i] < s[i].Position {
			m.Move(a, i, ps[i])
		}
	}
	return nil
}

// Clone returns an independent copy of the model.
func (m *Model) Clone() *Model {
	return &Model{
		dims:       m.dims,
		vertical:   m.Lines(Vertical),
		horizontal: m.Lines(Horizontal),
	}
}

func (m *Model) seq(a Axis) []Line {
	switch a {
	case Vertical:
		return m.vertical
	case Horizontal:
		return m.horizontal
	default:
		return nil
	}
}

func evenLines(cells int) []Line {
	lines := make([]Line, 0, cells-1)
	for i := 1; i < cells; i++ {
		lines = append(lines, Line{Position: float64(i) / float64(cells)})
	}
	return lines
}

func clampCount(n int) int {
	if n < MinCells {
		return MinCells
	}
	if n > MaxCells {
		return MaxCells
	}
	return n
}
