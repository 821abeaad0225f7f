package grid

const (
	MinCells    = 1
	MaxCells    = 10
	DefaultCols = 3
	DefaultRows = 3

	// MinGap is the smallest normalized distance a line keeps from its
	// neighbours and from the image edges while it is being moved.
	MinGap = 0.05
)

// Axis selects one of the two families of divider lines.
type Axis int

const (
	None       Axis = iota
	Vertical        // column dividers, positions along the image width
	Horizontal      // row dividers, positions along the image height
)

func (a Axis) String() string {
	switch a {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	default:
		return "none"
	}
}

// Line is a divider at a normalized position in (0,1) of its axis extent.
type Line struct {
	Position float64 `json:"position"`
}

// Dimensions is the number of columns and rows of the grid.
type Dimensions struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// DefaultDimensions is the 3×3 grid a fresh or cleared session starts with.
func DefaultDimensions() Dimensions {
	return Dimensions{Cols: DefaultCols, Rows: DefaultRows}
}

// InRange reports whether n is an allowed column or row count.
func InRange(n int) bool {
	return n >= MinCells && n <= MaxCells
}

func (d Dimensions) Valid() bool {
	return InRange(d.Cols) && InRange(d.Rows)
}

// Cells is the number of cells the grid produces.
func (d Dimensions) Cells() int {
	return d.Cols * d.Rows
}
