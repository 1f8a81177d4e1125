package config

import (
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []graphics.DeviceType{
		graphics.DeviceTypeOpenGLCore,
		graphics.DeviceTypeOpenGLES3,
		graphics.DeviceTypeOpenGLES2,
	}, cfg.Devices())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
[application]
name = "testbed"
width = 800
height = 600

[graphics]
device = "vulkan"
debug = true

[postprocess.dof]
enabled = true
focus = 4.5
`))
	require.NoError(t, err)
	assert.Equal(t, "testbed", cfg.Application.Name)
	assert.Equal(t, uint32(800), cfg.Application.Width)
	assert.Equal(t, graphics.DeviceTypeVulkan, cfg.Graphics.Device)
	assert.True(t, cfg.Graphics.Debug)
	assert.True(t, cfg.PostProcess.DepthOfField.Enabled)
	assert.Equal(t, float32(4.5), cfg.PostProcess.DepthOfField.Focus)
	// untouched keys keep their defaults
	assert.Equal(t, "dof", cfg.PostProcess.DepthOfField.Material)
	assert.Equal(t, "assets", cfg.Assets.Path)
	assert.Equal(t, uint32(2), cfg.Graphics.FramesInFlight)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown device", "[graphics]\ndevice = \"metal\"\n"},
		{"unknown key", "[graphics]\ncolour = 1\n"},
		{"zero width", "[application]\nwidth = 0\n"},
		{"too many frames", "[graphics]\nframes_in_flight = 8\n"},
		{"no materials", "[render]\nmax_materials = 0\n"},
		{"syntax", "[graphics\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	cfg := Default()
	cfg.Graphics.Device = graphics.DeviceTypeOpenGLES2
	cfg.Log.Level = "debug"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
