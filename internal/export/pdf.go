package export

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf/v2"

	"gridcrop/internal/crop"
)

const (
	pageW       = 595
	pageH       = 842
	margin      = 40
	gutter      = 12
	captionH    = 12
	titleSize   = 14
	captionSize = 8
	maxPerRow   = 5
)

// WriteContactSheet lays the cells out on A4 pages, cols per row (at most
// five), each with a "Cell n (WxHpx)" caption. Cells without pixels are
// drawn as an empty dashed box.
func WriteContactSheet(w io.Writer, results []crop.Result, cols int, title string) error {
	if len(results) == 0 {
		return ErrNoResults
	}
	perRow := min(max(cols, 1), maxPerRow)
	boxW := (float64(pageW-2*margin) - float64(perRow-1)*gutter) / float64(perRow)
	boxH := boxW

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)
	pdf.AddPage()

	y := float64(margin)
	if title != "" {
		pdf.SetFont("Helvetica", "B", titleSize)
		pdf.SetXY(margin, y)
		pdf.CellFormat(float64(pageW-2*margin), 16, title, "", 0, "L", false, 0, "")
		y += 16 + gutter
	}
	pdf.SetFont("Helvetica", "", captionSize)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, r := range results {
		col := i % perRow
		if col == 0 && i > 0 {
			y += boxH + captionH + gutter
		}
		if y+boxH+captionH > pageH-margin {
			pdf.AddPage()
			y = margin
		}

		x := float64(margin) + float64(col)*(boxW+gutter)
		if r.Empty() {
			pdf.SetDrawColor(160, 160, 160)
			pdf.SetDashPattern([]float64{3, 3}, 0)
			pdf.Rect(x, y, boxW, boxH, "D")
			pdf.SetDashPattern([]float64{}, 0)
		} else {
			var buf bytes.Buffer
			if err := WritePNG(&buf, r); err != nil {
				return err
			}
			name := fmt.Sprintf("cell-%d-%d", i, r.CellNumber)
			pdf.RegisterImageOptionsReader(name, opts, &buf)

			// fit inside the box keeping the aspect ratio
			scale := math.Min(boxW/float64(r.Width), boxH/float64(r.Height))
			iw, ih := float64(r.Width)*scale, float64(r.Height)*scale
			pdf.ImageOptions(name, x+(boxW-iw)/2, y+(boxH-ih), iw, ih, false, opts, 0, "")
		}

		pdf.SetXY(x, y+boxH+2)
		caption := fmt.Sprintf("Cell %d (%dx%dpx)", r.CellNumber, r.Width, r.Height)
		pdf.CellFormat(boxW, captionH-2, caption, "", 0, "C", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build contact sheet: %w", err)
	}
	return pdf.Output(w)
}
