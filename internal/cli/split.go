package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"gridcrop/internal/config"
	"gridcrop/internal/crop"
	"gridcrop/internal/export"
	"gridcrop/internal/grid"
	"gridcrop/internal/imageio"
	"gridcrop/internal/logging"
)

type splitOptions struct {
	cols       int
	rows       int
	vertical   []float64
	horizontal []float64
	outDir     string
	zip        bool
	pdf        bool
	cellFiles  bool
	now        func() time.Time
}

func buildSplitCommand(g *globalFlags) *cobra.Command {
	var opts splitOptions
	cmd := &cobra.Command{
		Use:   "split IMAGE",
		Short: "Crop an image into grid cells",
		Long: `Crop an image into cols×rows cells and write each cell as crop_<n>.png.

Divider lines default to an even grid. --vertical and --horizontal place
them explicitly as fractions of the image size, e.g. --vertical 0.2,0.6
for a three-column grid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if err := setupLogging(cfg, cliStderr); err != nil {
				return err
			}
			defer logging.Close()
			if !cmd.Flags().Changed("cols") {
				opts.cols = cfg.DefaultCols
			}
			if !cmd.Flags().Changed("rows") {
				opts.rows = cfg.DefaultRows
			}
			opts.now = time.Now
			paths, err := runSplit(cfg, args[0], opts)
			for _, p := range paths {
				fmt.Fprintln(cliStdout, p)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&opts.cols, "cols", grid.DefaultCols, "number of columns (1-10)")
	cmd.Flags().IntVar(&opts.rows, "rows", grid.DefaultRows, "number of rows (1-10)")
	cmd.Flags().Float64SliceVar(&opts.vertical, "vertical", nil, "column divider positions in (0,1)")
	cmd.Flags().Float64SliceVar(&opts.horizontal, "horizontal", nil, "row divider positions in (0,1)")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "output directory (default: next to the image)")
	cmd.Flags().BoolVar(&opts.zip, "zip", false, "also write all cells to a zip archive")
	cmd.Flags().BoolVar(&opts.pdf, "pdf", false, "also write a PDF contact sheet")
	cmd.Flags().BoolVar(&opts.cellFiles, "cells", true, "write one PNG per cell")
	return cmd
}

// runSplit crops the image at path and returns the files it wrote.
func runSplit(cfg *config.Config, path string, opts splitOptions) ([]string, error) {
	d := grid.Dimensions{Cols: opts.cols, Rows: opts.rows}
	if !d.Valid() {
		return nil, fmt.Errorf("grid must be between %d and %d cells per side, got %d×%d",
			grid.MinCells, grid.MaxCells, opts.cols, opts.rows)
	}
	src, err := imageio.DecodeFile(path, cfg.Limits())
	if err != nil {
		return nil, err
	}
	m := grid.New(d)
	if len(opts.vertical) > 0 {
		if err := m.Place(grid.Vertical, opts.vertical); err != nil {
			return nil, err
		}
	}
	if len(opts.horizontal) > 0 {
		if err := m.Place(grid.Horizontal, opts.horizontal); err != nil {
			return nil, err
		}
	}

	e := crop.Engine{
		Policy: cfg.Policy(),
		OnSkip: func(sk crop.Skipped) { logging.Warn("skipped %v", sk) },
	}
	results, err := e.Crop(src.Image, m.Positions(grid.Vertical), m.Positions(grid.Horizontal), d.Cols, d.Rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, export.ErrNoResults
	}
	logging.Info("cropped %s into %d cells", path, len(results))

	outDir := opts.outDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", outDir, err)
	}

	var written []string
	if opts.cellFiles {
		paths, err := export.WriteFiles(outDir, results)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	if opts.zip {
		p := filepath.Join(outDir, export.ArchiveName(now()))
		if err := writeTo(p, func(f *os.File) error { return export.WriteZip(f, results) }); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	if opts.pdf {
		p := filepath.Join(outDir, export.ContactSheetName(now()))
		title := filepath.Base(path)
		if err := writeTo(p, func(f *os.File) error {
			return export.WriteContactSheet(f, results, d.Cols, title)
		}); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

func writeTo(path string, fn func(*os.File) error) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()
	return fn(f)
}
