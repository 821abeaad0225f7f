// Package export serializes crop results: one PNG per cell, a ZIP archive
// of all cells, or a printable PDF contact sheet.
package export

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gridcrop/internal/crop"
)

var (
	ErrNoResults    = errors.New("no crop results")
	ErrCellNotFound = errors.New("cell not found")
)

// CellFilename is the download name of one cell.
func CellFilename(cellNumber int) string {
	return fmt.Sprintf("crop_%d.png", cellNumber)
}

// ArchiveName is the download name of the bulk archive created at t.
func ArchiveName(t time.Time) string {
	return "cropped_images_" + t.UTC().Format(time.DateOnly) + ".zip"
}

// ContactSheetName is the download name of the PDF sheet created at t.
func ContactSheetName(t time.Time) string {
	return "cropped_images_" + t.UTC().Format(time.DateOnly) + ".pdf"
}

// entryName names the i-th archive entry, falling back to the 1-based index
// when a result carries no cell number.
func entryName(i int, r crop.Result) string {
	if r.CellNumber > 0 {
		return CellFilename(r.CellNumber)
	}
	return CellFilename(i + 1)
}

// Find returns the result with the given cell number.
func Find(results []crop.Result, cellNumber int) (crop.Result, error) {
	for _, r := range results {
		if r.CellNumber == cellNumber {
			return r, nil
		}
	}
	return crop.Result{}, fmt.Errorf("cell %d: %w", cellNumber, ErrCellNotFound)
}

// WritePNG encodes one cell as PNG.
func WritePNG(w io.Writer, r crop.Result) error {
	if r.Image == nil {
		return fmt.Errorf("cell %d: %w", r.CellNumber, ErrCellNotFound)
	}
	if r.Empty() {
		return fmt.Errorf("cell %d: %w", r.CellNumber, crop.ErrEmptyCell)
	}
	return png.Encode(w, r.Image)
}

// Drawable reports whether any result has pixels to encode.
func Drawable(results []crop.Result) bool {
	for _, r := range results {
		if !r.Empty() {
			return true
		}
	}
	return false
}

// WriteFiles writes every non-empty result as crop_<n>.png into dir and
// returns the written paths.
func WriteFiles(dir string, results []crop.Result) ([]string, error) {
	if !Drawable(results) {
		return nil, ErrNoResults
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	paths := make([]string, 0, len(results))
	for i, r := range results {
		if r.Empty() {
			continue
		}
		p, err := writeFile(dir, entryName(i, r), r)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeFile(dir, baseName string, r crop.Result) (path string, err error) {
	path = filepath.Join(dir, baseName)
	if strings.Contains(baseName, "..") || filepath.Base(path) != baseName {
		return "", fmt.Errorf("invalid file name %q", baseName)
	}
	f, err := os.Create(path) //nolint:gosec // baseName is generated
	if err != nil {
		return "", err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()
	if err := WritePNG(f, r); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
