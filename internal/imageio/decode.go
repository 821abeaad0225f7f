// Package imageio decodes uploaded images under a size limit.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxUploadBytes is the largest accepted upload (50 MiB).
	MaxUploadBytes = 50 << 20
	// MaxPixels caps width×height so a small file cannot declare a huge raster.
	MaxPixels = 8192 * 8192
)

// Limits bounds what Decode accepts. Zero fields take the package defaults.
type Limits struct {
	Bytes  int64
	Pixels int64
}

// DefaultLimits returns MaxUploadBytes and MaxPixels.
func DefaultLimits() Limits {
	return Limits{Bytes: MaxUploadBytes, Pixels: MaxPixels}
}

func (l Limits) withDefaults() Limits {
	if l.Bytes <= 0 {
		l.Bytes = MaxUploadBytes
	}
	if l.Pixels <= 0 {
		l.Pixels = MaxPixels
	}
	return l
}

var (
	ErrTooLarge          = errors.New("image exceeds size limit")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrEmptyImage        = errors.New("image has no pixels")
)

// Decoded is a decoded source image.
type Decoded struct {
	Image  image.Image
	Format string
	Width  int
	Height int
}

// Decode reads at most lim.Bytes from r and decodes them. The header is
// checked against lim.Pixels before any pixel data is allocated.
func Decode(r io.Reader, lim Limits) (Decoded, error) {
	lim = lim.withDefaults()
	b, err := io.ReadAll(io.LimitReader(r, lim.Bytes+1))
	if err != nil {
		return Decoded{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(b)) > lim.Bytes {
		return Decoded{}, ErrTooLarge
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Decoded{}, ErrUnsupportedFormat
		}
		return Decoded{}, fmt.Errorf("decode %s header: %w", format, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Decoded{}, ErrEmptyImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > lim.Pixels {
		return Decoded{}, fmt.Errorf("%dx%d %s: %w", cfg.Width, cfg.Height, format, ErrTooLarge)
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Decoded{}, ErrUnsupportedFormat
		}
		return Decoded{}, fmt.Errorf("decode %s: %w", format, err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return Decoded{}, ErrEmptyImage
	}
	return Decoded{Image: img, Format: format, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string, lim Limits) (d Decoded, err error) {
	f, err := os.Open(filepath.Clean(path)) //nolint:gosec // path comes from the command line
	if err != nil {
		return Decoded{}, err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()
	return Decode(f, lim)
}
