package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
	"github.com/spaghettifunk/prism/engine/renderer/opengl/gles3"
	"github.com/spaghettifunk/prism/engine/renderer/opengl/gltest"
)

func registerRecorder(t *testing.T) {
	t.Helper()
	graphics.Register(graphics.DeviceTypeOpenGLES3, func() graphics.Device {
		return gles3.NewDevice(gltest.New("OpenGL ES 3.0 gltest").Loader())
	})
	t.Cleanup(func() { graphics.Register(graphics.DeviceTypeOpenGLES3, nil) })
}

func TestRendererFallsBack(t *testing.T) {
	registerRecorder(t)
	surface := &gltest.Surface{Width: 320, Height: 200}

	var opened []graphics.DeviceType
	r, err := New(config.Default(), func(dt graphics.DeviceType) (graphics.Surface, error) {
		opened = append(opened, dt)
		return surface, nil
	})
	require.NoError(t, err)
	defer r.Shutdown()

	assert.Equal(t, []graphics.DeviceType{graphics.DeviceTypeOpenGLCore, graphics.DeviceTypeOpenGLES3}, opened)
	assert.Equal(t, graphics.DeviceTypeOpenGLES3, r.Device().Type())
	assert.IsType(t, &opengl.Device{}, r.Device())
	require.NotNil(t, r.Swapchain())
	require.NotNil(t, r.Context())
	assert.Equal(t, uint32(320), r.Swapchain().Framebuffer().Desc().Width)
	assert.Equal(t, 1, surface.Interval, "vsync is on by default")
}

func TestRendererSkipsFailingSurface(t *testing.T) {
	registerRecorder(t)
	cfg := config.Default()
	cfg.Graphics.Device = graphics.DeviceTypeOpenGLES3
	cfg.Graphics.Fallback = nil

	calls := 0
	_, err := New(cfg, func(graphics.DeviceType) (graphics.Surface, error) {
		calls++
		return nil, errors.New("no display")
	})
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.Equal(t, 1, calls)
}

func TestRendererNoBackend(t *testing.T) {
	_, err := New(config.Default(), func(graphics.DeviceType) (graphics.Surface, error) {
		return &gltest.Surface{Width: 1, Height: 1}, nil
	})
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.ErrorIs(t, err, graphics.ErrUnsupportedDevice)

	_, err = New(nil, nil)
	assert.Error(t, err)
}

func TestRendererShutdownTwice(t *testing.T) {
	registerRecorder(t)
	r, err := New(config.Default(), func(graphics.DeviceType) (graphics.Surface, error) {
		return &gltest.Surface{Width: 8, Height: 8}, nil
	})
	require.NoError(t, err)
	require.NoError(t, r.Shutdown())
	assert.Nil(t, r.Device())
	require.NoError(t, r.Shutdown())
}
