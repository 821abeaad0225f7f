package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridcrop/internal/crop"
	"gridcrop/internal/grid"
	"gridcrop/internal/imageio"
	"gridcrop/internal/logging"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, grid.DefaultDimensions(), cfg.Dimensions())
	assert.Equal(t, imageio.DefaultLimits(), cfg.Limits())
}

func TestLoad_YAML(t *testing.T) {
	p := writeFile(t, "gridcrop.yaml", `
addr: "127.0.0.1:9000"
default_cols: 4
default_rows: 2
grid_color: "FF0000"
log_level: debug
skip_policy: fail
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, grid.Dimensions{Cols: 4, Rows: 2}, cfg.Dimensions())
	assert.Equal(t, "#ff0000", cfg.GridColor)
	assert.Equal(t, logging.LevelDebug, cfg.Level())
	assert.Equal(t, crop.Fail, cfg.Policy())
}

func TestLoad_TOML(t *testing.T) {
	p := writeFile(t, "gridcrop.toml", `
addr = ":7070"
max_upload_bytes = 1024
max_pixels = 4096
display_max_width = 400
display_max_height = 300
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, imageio.Limits{Bytes: 1024, Pixels: 4096}, cfg.Limits())
	assert.Equal(t, 400, cfg.DisplayLimit().W)
	assert.Equal(t, 300, cfg.DisplayLimit().H)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	p := writeFile(t, "gridcrop.yml", `
default_cols: 0
default_rows: 44
grid_color: "not a colour"
log_level: loud
skip_policy: maybe
display_max_width: -1
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	d := Default()
	assert.Equal(t, d.Dimensions(), cfg.Dimensions())
	assert.Equal(t, d.GridColor, cfg.GridColor)
	assert.Equal(t, d.LogLevel, cfg.LogLevel)
	assert.Equal(t, d.SkipPolicy, cfg.SkipPolicy)
	assert.Equal(t, d.DisplayLimit(), cfg.DisplayLimit())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "gridcrop.json", `{}`))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "broken.yaml", "addr: [unterminated"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "broken.toml", "addr = "))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	p := writeFile(t, "env.yaml", "addr: \":6060\"\n")
	t.Setenv(EnvPath, p)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.Addr)
}
