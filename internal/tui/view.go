package tui

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gridcrop/internal/geometry"
	"gridcrop/internal/grid"
	"gridcrop/internal/render"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
)

func (m Model) header() string {
	snap := m.sess.Snapshot()
	title := headerStyle.Render("gridcrop")
	info := fmt.Sprintf(" %s  %d×%d px  grid %d×%d",
		snap.Filename, snap.Source.W, snap.Source.H, snap.Dimensions.Cols, snap.Dimensions.Rows)
	if snap.Drag.Active {
		info += fmt.Sprintf("  dragging %s line %d", snap.Drag.Axis, snap.Drag.Index)
	}
	return title + dimStyle.Render(info)
}

// lineCells maps normalized positions to terminal columns or rows.
func lineCells(positions []float64, extent int) map[int]int {
	out := make(map[int]int, len(positions))
	for i, p := range positions {
		c := min(int(p*float64(extent)), extent-1)
		out[c] = i
	}
	return out
}

// labelCells centres the row-major number of every grid cell inside it and
// returns the digit to draw at each terminal cell.
func labelCells(v, h []float64, w, hgt int) map[[2]int]rune {
	xs := geometry.Boundaries(v, float64(w))
	ys := geometry.Boundaries(h, float64(hgt))
	out := make(map[[2]int]rune)
	for r := 0; r+1 < len(ys); r++ {
		for c := 0; c+1 < len(xs); c++ {
			label := strconv.Itoa(r*(len(xs)-1) + c + 1)
			x := int((xs[c]+xs[c+1])/2) - len(label)/2
			y := int((ys[r] + ys[r+1]) / 2)
			for i, d := range label {
				out[[2]int{x + i, y}] = d
			}
		}
	}
	return out
}

func hex(c color.Color) lipgloss.Color {
	return lipgloss.Color(render.Hex(c))
}

// canvas draws the image downsampled to one pixel per terminal cell with
// the grid lines on top.
func (m Model) canvas() string {
	box := m.canvasBox()
	w, h := int(box.Width), int(box.Height)
	if !m.sess.HasImage() {
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, dimStyle.Render("no image loaded"))
	}

	thumb := render.Scale(m.sess.Image(), geometry.Size{W: w, H: h})
	snap := m.sess.Snapshot()
	vcells := lineCells(snap.Vertical, w)
	hcells := lineCells(snap.Horizontal, h)
	labels := labelCells(snap.Vertical, snap.Horizontal, w, h)

	lineColor := lipgloss.Color(snap.Color)
	activeColor := lipgloss.Color("#ffffff")

	var b strings.Builder
	for y := 0; y < h; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		hi, onRow := hcells[y]
		for x := 0; x < w; x++ {
			px := thumb.NRGBAAt(x, y)
			st := lipgloss.NewStyle().Background(hex(px))
			vi, onCol := vcells[x]

			ch := " "
			fg := lineColor
			switch {
			case onCol && onRow:
				ch = "┼"
			case onCol:
				ch = "│"
				if snap.Drag.Active && snap.Drag.Axis == grid.Vertical && snap.Drag.Index == vi {
					fg = activeColor
				}
			case onRow:
				ch = "─"
				if snap.Drag.Active && snap.Drag.Axis == grid.Horizontal && snap.Drag.Index == hi {
					fg = activeColor
				}
			default:
				if d, ok := labels[[2]int{x, y}]; ok {
					ch = string(d)
					fg = hex(render.Contrast(px))
				}
			}
			b.WriteString(st.Foreground(fg).Render(ch))
		}
	}
	return b.String()
}
