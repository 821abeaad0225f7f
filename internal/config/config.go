// Package config loads gridcrop settings from a YAML or TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"gridcrop/internal/crop"
	"gridcrop/internal/geometry"
	"gridcrop/internal/grid"
	"gridcrop/internal/imageio"
	"gridcrop/internal/logging"
	"gridcrop/internal/render"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "GRIDCROP_CONFIG"

// Config holds everything a binary can tune. Zero or invalid values are
// replaced with defaults by Validate.
type Config struct {
	Addr             string `yaml:"addr" toml:"addr"`
	MaxUploadBytes   int64  `yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	MaxPixels        int64  `yaml:"max_pixels" toml:"max_pixels"`
	DefaultCols      int    `yaml:"default_cols" toml:"default_cols"`
	DefaultRows      int    `yaml:"default_rows" toml:"default_rows"`
	GridColor        string `yaml:"grid_color" toml:"grid_color"`
	DisplayMaxWidth  int    `yaml:"display_max_width" toml:"display_max_width"`
	DisplayMaxHeight int    `yaml:"display_max_height" toml:"display_max_height"`
	LogLevel         string `yaml:"log_level" toml:"log_level"`
	LogFile          string `yaml:"log_file" toml:"log_file"`
	SkipPolicy       string `yaml:"skip_policy" toml:"skip_policy"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Addr:             ":8080",
		MaxUploadBytes:   imageio.MaxUploadBytes,
		MaxPixels:        imageio.MaxPixels,
		DefaultCols:      grid.DefaultCols,
		DefaultRows:      grid.DefaultRows,
		GridColor:        render.DefaultGridColor,
		DisplayMaxWidth:  geometry.MaxDisplayWidth,
		DisplayMaxHeight: geometry.MaxDisplayHeight,
		LogLevel:         "info",
		SkipPolicy:       crop.Skip.String(),
	}
}

// Load reads the file at path, choosing the decoder by extension. An empty
// path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(filepath.Clean(path)) //nolint:gosec // operator-supplied path
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	case ".toml":
		err = toml.Unmarshal(b, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Validate()
	return cfg, nil
}

// LoadFromEnv loads the file named by $GRIDCROP_CONFIG.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvPath))
}

// Validate resets every out-of-range field to its default.
func (c *Config) Validate() {
	d := Default()
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = d.Addr
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.MaxPixels <= 0 {
		c.MaxPixels = d.MaxPixels
	}
	if !grid.InRange(c.DefaultCols) {
		c.DefaultCols = d.DefaultCols
	}
	if !grid.InRange(c.DefaultRows) {
		c.DefaultRows = d.DefaultRows
	}
	if hex, err := render.NormalizeColor(c.GridColor); err == nil {
		c.GridColor = hex
	} else {
		c.GridColor = d.GridColor
	}
	if c.DisplayMaxWidth <= 0 || c.DisplayMaxHeight <= 0 {
		c.DisplayMaxWidth, c.DisplayMaxHeight = d.DisplayMaxWidth, d.DisplayMaxHeight
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		c.LogLevel = d.LogLevel
	}
	if c.SkipPolicy != crop.Skip.String() && c.SkipPolicy != crop.Fail.String() {
		c.SkipPolicy = d.SkipPolicy
	}
}

// Dimensions is the grid size new sessions start with.
func (c *Config) Dimensions() grid.Dimensions {
	return grid.Dimensions{Cols: c.DefaultCols, Rows: c.DefaultRows}
}

// Limits is what an image file may weigh and measure.
func (c *Config) Limits() imageio.Limits {
	return imageio.Limits{Bytes: c.MaxUploadBytes, Pixels: c.MaxPixels}
}

// DisplayLimit is the cap on the editing canvas size.
func (c *Config) DisplayLimit() geometry.Size {
	return geometry.Size{W: c.DisplayMaxWidth, H: c.DisplayMaxHeight}
}

func (c *Config) Policy() crop.SkipPolicy {
	return crop.ParsePolicy(c.SkipPolicy)
}

func (c *Config) Level() logging.Level {
	l, _ := logging.ParseLevel(c.LogLevel)
	return l
}
