package session

import (
	"errors"
	"image"
	"sync"

	"gridcrop/internal/crop"
	"gridcrop/internal/drag"
	"gridcrop/internal/geometry"
	"gridcrop/internal/grid"
	"gridcrop/internal/logging"
	"gridcrop/internal/render"
)

// ErrNoImage is reported by front ends for operations that need a loaded image.
var ErrNoImage = errors.New("no image loaded")

// Options configures a new Session.
type Options struct {
	Dimensions   grid.Dimensions
	DisplayLimit geometry.Size
	Color        string
	Policy       crop.SkipPolicy
}

// Pointer is a pointer or touch position in client coordinates together
// with the on-screen box of the canvas it happened on.
type Pointer struct {
	Client geometry.Point
	Box    geometry.Box
}

// Session owns the durable editor state: the source image and the grid.
// Drag state and crop results are derived from them.
//
// Methods are not safe for concurrent use; callers that dispatch events
// from several goroutines hold Lock for the duration of one event.
type Session struct {
	mu sync.Mutex

	opts     Options
	img      image.Image
	filename string
	source   geometry.Size
	display  geometry.Size
	grid     *grid.Model
	drag     *drag.Engine
	results  []crop.Result
	skipped  []crop.Skipped
	color    string
}

// New returns an empty session. Zero option fields take their defaults.
func New(opts Options) *Session {
	if !opts.Dimensions.Valid() {
		opts.Dimensions = grid.DefaultDimensions()
	}
	if opts.DisplayLimit.Empty() {
		opts.DisplayLimit = geometry.DefaultDisplayLimit()
	}
	color, err := render.NormalizeColor(opts.Color)
	if err != nil {
		color = render.DefaultGridColor
	}
	opts.Color = color
	return &Session{
		opts:  opts,
		grid:  grid.New(opts.Dimensions),
		drag:  drag.NewEngine(),
		color: color,
	}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Upload replaces the source image. The grid is re-initialized with the
// current dimensions and derived state is dropped.
func (s *Session) Upload(name string, img image.Image) {
	if img == nil {
		s.Clear()
		return
	}
	b := img.Bounds()
	s.img = img
	s.filename = name
	s.source = geometry.Size{W: b.Dx(), H: b.Dy()}
	s.display = geometry.DisplaySize(s.source, s.opts.DisplayLimit)
	s.grid.Reset()
	s.results = nil
	s.skipped = nil
	s.drag.Release()
	logging.Info("loaded %s (%dx%d, display %dx%d)", name, s.source.W, s.source.H, s.display.W, s.display.H)
}

// Clear drops the image and returns the grid to 3×3.
func (s *Session) Clear() {
	s.img = nil
	s.filename = ""
	s.source = geometry.Size{}
	s.display = geometry.Size{}
	s.grid.Initialize(grid.DefaultCols, grid.DefaultRows)
	s.results = nil
	s.skipped = nil
	s.drag.Release()
}

func (s *Session) HasImage() bool {
	return s.img != nil
}

// Image returns the source image, or nil.
func (s *Session) Image() image.Image {
	return s.img
}

func (s *Session) Filename() string {
	return s.filename
}

// DisplaySize is the backing size of the editing canvas.
func (s *Session) DisplaySize() geometry.Size {
	return s.display
}

// Grid exposes the model for read access by renderers.
func (s *Session) Grid() *grid.Model {
	return s.grid
}

// StageDimensions stages a new grid size without regenerating lines. It is
// refused while a drag is in progress and reports whether anything changed.
func (s *Session) StageDimensions(cols, rows int) bool {
	if s.drag.Dragging() {
		return false
	}
	return s.grid.SetDimensions(cols, rows)
}

// Commit materializes the staged dimensions as an even grid.
func (s *Session) Commit() bool {
	if s.drag.Dragging() {
		return false
	}
	s.grid.Reset()
	return true
}

// Resize stages and commits cols×rows in one step. Out-of-range values are
// ignored; the grid is only regenerated when the size actually changed.
func (s *Session) Resize(cols, rows int) bool {
	if !s.StageDimensions(cols, rows) {
		return false
	}
	return s.Commit()
}

// Reset discards manual line adjustments.
func (s *Session) Reset() {
	s.grid.Reset()
}

// SetColor changes the overlay colour. Invalid colours are ignored.
func (s *Session) SetColor(c string) bool {
	hex, err := render.NormalizeColor(c)
	if err != nil {
		return false
	}
	s.color = hex
	return true
}

func (s *Session) Color() string {
	return s.color
}

func (s *Session) canvasPoint(p Pointer) geometry.Point {
	return geometry.ClientToCanvas(p.Client, p.Box, s.display)
}

// PointerDown starts a drag if the pointer is on a line.
func (s *Session) PointerDown(p Pointer) drag.Feedback {
	if s.img == nil {
		return drag.Feedback{Cursor: s.drag.Cursor()}
	}
	return s.drag.Down(s.grid, s.canvasPoint(p), s.display)
}

// PointerMove drags the active line, or updates the hover cursor.
func (s *Session) PointerMove(p Pointer) drag.Feedback {
	if s.img == nil {
		return drag.Feedback{Cursor: s.drag.Cursor()}
	}
	return s.drag.Move(s.grid, s.canvasPoint(p), s.display)
}

// PointerUp ends a drag. Pointer leave and touch end map here as well.
func (s *Session) PointerUp() drag.Feedback {
	return s.drag.Release()
}

func (s *Session) DragState() drag.State {
	return s.drag.State()
}

// Crop recomputes every cell from the source image and replaces the
// previous results. Without an image it does nothing. When the skip policy
// is Fail and a cell fails, the previous results are kept.
func (s *Session) Crop() ([]crop.Result, error) {
	if s.img == nil {
		return nil, nil
	}
	var skipped []crop.Skipped
	e := crop.Engine{
		Policy: s.opts.Policy,
		OnSkip: func(sk crop.Skipped) {
			skipped = append(skipped, sk)
			logging.Warn("skipped %v", sk)
		},
	}
	d := s.grid.Dimensions()
	results, err := e.Crop(s.img, s.grid.Positions(grid.Vertical), s.grid.Positions(grid.Horizontal), d.Cols, d.Rows)
	if err != nil {
		return nil, err
	}
	s.results = results
	s.skipped = skipped
	return s.Results(), nil
}

// Results returns a copy of the last crop results.
func (s *Session) Results() []crop.Result {
	out := make([]crop.Result, len(s.results))
	copy(out, s.results)
	return out
}

// Skipped returns the cells left out of the last crop.
func (s *Session) Skipped() []crop.Skipped {
	out := make([]crop.Skipped, len(s.skipped))
	copy(out, s.skipped)
	return out
}

// Snapshot is a read-only view of the session for renderers and APIs.
type Snapshot struct {
	HasImage   bool            `json:"hasImage"`
	Filename   string          `json:"filename,omitempty"`
	Source     geometry.Size   `json:"source"`
	Display    geometry.Size   `json:"display"`
	Dimensions grid.Dimensions `json:"dimensions"`
	Stale      bool            `json:"stale"`
	Vertical   []float64       `json:"vertical"`
	Horizontal []float64       `json:"horizontal"`
	Color      string          `json:"color"`
	Drag       drag.State      `json:"drag"`
	Cursor     drag.Cursor     `json:"cursor"`
	Results    int             `json:"results"`
	Skipped    int             `json:"skipped"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		HasImage:   s.img != nil,
		Filename:   s.filename,
		Source:     s.source,
		Display:    s.display,
		Dimensions: s.grid.Dimensions(),
		Stale:      s.grid.Stale(),
		Vertical:   s.grid.Positions(grid.Vertical),
		Horizontal: s.grid.Positions(grid.Horizontal),
		Color:      s.color,
		Drag:       s.drag.State(),
		Cursor:     s.drag.Cursor(),
		Results:    len(s.results),
		Skipped:    len(s.skipped),
	}
}

// Frame builds the renderer input for the current state.
func (s *Session) Frame() render.Frame {
	c, _ := render.ParseColor(s.color)
	d := s.grid.Dimensions()
	return render.Frame{
		Source:     s.img,
		Display:    s.display,
		Vertical:   s.grid.Positions(grid.Vertical),
		Horizontal: s.grid.Positions(grid.Horizontal),
		Cols:       d.Cols,
		Rows:       d.Rows,
		Color:      c,
	}
}
