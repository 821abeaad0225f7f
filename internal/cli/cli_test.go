package cli

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridcrop/internal/config"
	"gridcrop/internal/grid"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	prevOut, prevErr := cliStdout, cliStderr
	cliStdout, cliStderr = &out, &errOut
	t.Cleanup(func() { cliStdout, cliStderr = prevOut, prevErr })
	return &out, &errOut
}

func writeImage(t *testing.T, dir string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, "photo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return path
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestSplit_DefaultGrid(t *testing.T) {
	out, _ := capture(t)
	dir := t.TempDir()
	img := writeImage(t, dir, 90, 60)

	code := Run([]string{"split", img})
	require.Equal(t, 0, code)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, filepath.Join(dir, "crop_1.png"), lines[0])
	assert.Equal(t, filepath.Join(dir, "crop_9.png"), lines[8])

	w, h := decodeSize(t, lines[4])
	assert.Equal(t, 30, w)
	assert.Equal(t, 20, h)
}

func TestSplit_ExplicitLines(t *testing.T) {
	capture(t)
	dir := t.TempDir()
	img := writeImage(t, dir, 90, 60)
	outDir := filepath.Join(dir, "cells")

	code := Run([]string{"split", img, "--cols", "3", "--rows", "1", "--vertical", "0.2,0.6", "--out", outDir})
	require.Equal(t, 0, code)

	widths := []int{18, 36, 36}
	for i, want := range widths {
		w, h := decodeSize(t, filepath.Join(outDir, "crop_"+string(rune('1'+i))+".png"))
		assert.Equal(t, want, w, "cell %d", i+1)
		assert.Equal(t, 60, h)
	}
}

func TestSplit_BadLines(t *testing.T) {
	_, errOut := capture(t)
	img := writeImage(t, t.TempDir(), 90, 60)

	code := Run([]string{"split", img, "--cols", "3", "--vertical", "0.5"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "invalid line positions")
}

func TestSplit_BadDimensions(t *testing.T) {
	_, errOut := capture(t)
	img := writeImage(t, t.TempDir(), 90, 60)

	code := Run([]string{"split", img, "--cols", "11"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "between 1 and 10")
}

func TestRunSplit_Archives(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, 90, 60)
	opts := splitOptions{
		cols: 2, rows: 2,
		zip: true, pdf: true,
		now: func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) },
	}
	paths, err := runSplit(config.Default(), img, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "cropped_images_2024-03-09.zip"),
		filepath.Join(dir, "cropped_images_2024-03-09.pdf"),
	}, paths)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestRunSplit_MissingFile(t *testing.T) {
	_, err := runSplit(config.Default(), filepath.Join(t.TempDir(), "nope.png"),
		splitOptions{cols: grid.DefaultCols, rows: grid.DefaultRows, cellFiles: true})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigFlag(t *testing.T) {
	out, _ := capture(t)
	dir := t.TempDir()
	img := writeImage(t, dir, 40, 40)
	cfgPath := filepath.Join(dir, "gridcrop.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("default_cols = 2\ndefault_rows = 1\n"), 0o600))

	code := Run([]string{"split", img, "--config", cfgPath})
	require.Equal(t, 0, code)
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 2)
}

func TestConfigFlag_Unsupported(t *testing.T) {
	_, errOut := capture(t)
	dir := t.TempDir()
	img := writeImage(t, dir, 40, 40)
	cfgPath := filepath.Join(dir, "gridcrop.ini")
	require.NoError(t, os.WriteFile(cfgPath, []byte("x=1"), 0o600))

	assert.Equal(t, 1, Run([]string{"split", img, "--config", cfgPath}))
	assert.Contains(t, errOut.String(), "unsupported config format")
}

func TestVersion(t *testing.T) {
	out, _ := capture(t)
	require.Equal(t, 0, Run([]string{"version"}))
	assert.Equal(t, "gridcrop dev\n", out.String())
}
