// Package drag implements hit-testing of grid lines and the drag state
// machine that moves them.
package drag

import (
	"math"

	"gridcrop/internal/geometry"
	"gridcrop/internal/grid"
)

// Tolerance is how close, in canvas pixels, a pointer must be to grab a line.
const Tolerance = 10.0

// Cursor is the pointer affordance an editor should show.
type Cursor string

const (
	CursorDefault   Cursor = "crosshair"
	CursorColResize Cursor = "ew-resize"
	CursorRowResize Cursor = "ns-resize"
)

// CursorFor returns the resize cursor for lines on axis a.
func CursorFor(a grid.Axis) Cursor {
	switch a {
	case grid.Vertical:
		return CursorColResize
	case grid.Horizontal:
		return CursorRowResize
	default:
		return CursorDefault
	}
}

// Hit identifies one line of the grid.
type Hit struct {
	Axis  grid.Axis `json:"axis"`
	Index int       `json:"index"`
}

// FindNearestLine returns the first line within Tolerance of p, scanning
// vertical lines before horizontal ones. It is a first-match scan, so at a
// crossing the vertical line wins even if the horizontal one is closer.
func FindNearestLine(m *grid.Model, p geometry.Point, canvas geometry.Size) (Hit, bool) {
	if m == nil || canvas.Empty() {
		return Hit{}, false
	}
	for i, pos := range m.Positions(grid.Vertical) {
		if math.Abs(p.X-pos*float64(canvas.W)) < Tolerance {
			return Hit{Axis: grid.Vertical, Index: i}, true
		}
	}
	for i, pos := range m.Positions(grid.Horizontal) {
		if math.Abs(p.Y-pos*float64(canvas.H)) < Tolerance {
			return Hit{Axis: grid.Horizontal, Index: i}, true
		}
	}
	return Hit{}, false
}

// State is the transient drag state of one pointer interaction.
type State struct {
	Active bool      `json:"active"`
	Axis   grid.Axis `json:"axis"`
	Index  int       `json:"index"`
}

// Idle is the state outside of a drag.
var Idle = State{Axis: grid.None, Index: -1}

// Feedback tells the caller how to react to an event.
type Feedback struct {
	Cursor         Cursor `json:"cursor"`
	PreventDefault bool   `json:"preventDefault"`
	Changed        bool   `json:"changed"`
}

// Engine runs the Idle/Dragging state machine against a grid model. It
// never touches the model while idle.
type Engine struct {
	state  State
	cursor Cursor
}

func NewEngine() *Engine {
	return &Engine{state: Idle, cursor: CursorDefault}
}

func (e *Engine) State() State {
	return e.state
}

func (e *Engine) Cursor() Cursor {
	return e.cursor
}

func (e *Engine) Dragging() bool {
	return e.state.Active
}

// Down starts a drag when p is on a line.
func (e *Engine) Down(m *grid.Model, p geometry.Point, canvas geometry.Size) Feedback {
	hit, ok := FindNearestLine(m, p, canvas)
	if !ok {
		return Feedback{Cursor: e.cursor}
	}
	e.state = State{Active: true, Axis: hit.Axis, Index: hit.Index}
	e.cursor = CursorFor(hit.Axis)
	return Feedback{Cursor: e.cursor, PreventDefault: true}
}

// Move updates the dragged line, or picks a hover cursor while idle.
func (e *Engine) Move(m *grid.Model, p geometry.Point, canvas geometry.Size) Feedback {
	if !e.state.Active {
		e.cursor = CursorDefault
		if hit, ok := FindNearestLine(m, p, canvas); ok {
			e.cursor = CursorFor(hit.Axis)
		}
		return Feedback{Cursor: e.cursor}
	}
	if m == nil || canvas.Empty() {
		return Feedback{Cursor: e.cursor, PreventDefault: true}
	}

	n := geometry.Normalize(p, canvas)
	target := n.X
	if e.state.Axis == grid.Horizontal {
		target = n.Y
	}
	before, _ := m.Position(e.state.Axis, e.state.Index)
	after, ok := m.Move(e.state.Axis, e.state.Index, target)
	if !ok {
		// the line went away under us (grid re-initialized); end the drag
		return e.Release()
	}
	return Feedback{Cursor: e.cursor, PreventDefault: true, Changed: after != before}
}

// Release ends any drag. Used for pointer up, pointer leave and touch end.
func (e *Engine) Release() Feedback {
	e.state = Idle
	e.cursor = CursorDefault
	return Feedback{Cursor: e.cursor}
}
