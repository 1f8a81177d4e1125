package gltest

import (
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
	"github.com/spaghettifunk/prism/engine/renderer/opengl/gles3"
)

// Harness is an OpenGL ES 3 device set up over a recorder, with a swapchain
// and a context, for tests of code above the device layer.
type Harness struct {
	Recorder  *Recorder
	Surface   *Surface
	Device    *opengl.Device
	Swapchain graphics.Swapchain
	Context   graphics.Context
}

// NewHarness returns a ready device presenting to a width x height surface.
// The swapchain has an RGBA8 color and a D24S8 depth attachment.
func NewHarness(width, height int, debug bool) (*Harness, error) {
	rec := New("OpenGL ES 3.0 gltest")
	surface := &Surface{Width: width, Height: height}
	dev := gles3.NewDevice(rec.Loader())
	if err := dev.Setup(graphics.DeviceDesc{Type: graphics.DeviceTypeOpenGLES3, Debug: debug, Surface: surface}); err != nil {
		return nil, err
	}
	sc, err := dev.CreateSwapchain(graphics.SwapchainDesc{
		Surface:            surface,
		ColorFormat:        graphics.FormatR8G8B8A8Unorm,
		DepthStencilFormat: graphics.FormatD24UnormS8UInt,
	})
	if err != nil {
		dev.Close()
		return nil, err
	}
	ctx, err := dev.CreateContext(graphics.ContextDesc{Swapchain: sc})
	if err != nil {
		sc.Release()
		dev.Close()
		return nil, err
	}
	return &Harness{Recorder: rec, Surface: surface, Device: dev, Swapchain: sc, Context: ctx}, nil
}

// Close releases the context and swapchain, then closes the device.
func (h *Harness) Close() {
	h.Context.Release()
	h.Swapchain.Release()
	h.Device.Close()
}
