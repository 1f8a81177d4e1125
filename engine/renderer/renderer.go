// Package renderer brings up the first usable graphics device from the
// configured preference list and owns its swapchain and context.
package renderer

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

var ErrNoDevice = errors.New("no graphics device could be created")

// SurfaceOpener prepares the window for a device type. It is called again
// with the next type when a device cannot be brought up on the surface.
type SurfaceOpener func(t graphics.DeviceType) (graphics.Surface, error)

var depthFormats = []graphics.Format{
	graphics.FormatD24UnormS8UInt,
	graphics.FormatD32SFloatS8UInt,
	graphics.FormatD32SFloat,
	graphics.FormatD16Unorm,
}

type Renderer struct {
	device    graphics.Device
	swapchain graphics.Swapchain
	context   graphics.Context
	log       *log.Logger
}

/**
 * @brief Tries cfg.Devices() in order and keeps the first device whose setup,
 * swapchain and context all succeed. Backends must have been registered with
 * graphics.Register beforehand.
 */
func New(cfg *config.Config, open SurfaceOpener) (*Renderer, error) {
	if cfg == nil || open == nil {
		err := fmt.Errorf("func New - config and surface opener are required")
		core.LogError(err.Error())
		return nil, err
	}
	r := &Renderer{log: core.Logger().With("system", "renderer")}

	var errs []error
	for _, t := range cfg.Devices() {
		if err := r.bringUp(cfg.Graphics, t, open); err != nil {
			r.log.Warn("device unavailable", "device", t, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}
		r.log.Info("device ready", "device", t)
		return r, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrNoDevice, errors.Join(errs...))
}

func (r *Renderer) bringUp(cfg config.Graphics, t graphics.DeviceType, open SurfaceOpener) error {
	surface, err := open(t)
	if err != nil {
		return err
	}
	device, err := graphics.NewDevice(graphics.DeviceDesc{Type: t, Debug: cfg.Debug, Surface: surface})
	if err != nil {
		return err
	}

	depth := graphics.FormatUndefined
	for _, f := range depthFormats {
		if device.Caps().Attachments.Has(f) {
			depth = f
			break
		}
	}
	width, height := surface.FramebufferSize()
	swapchain, err := device.CreateSwapchain(graphics.SwapchainDesc{
		Surface:            surface,
		Width:              uint32(max(width, 0)),
		Height:             uint32(max(height, 0)),
		VSync:              cfg.VSync,
		ColorFormat:        graphics.FormatR8G8B8A8Unorm,
		DepthStencilFormat: depth,
		ImageCount:         cfg.FramesInFlight,
	})
	if err != nil {
		device.Close()
		return err
	}
	ctx, err := device.CreateContext(graphics.ContextDesc{Swapchain: swapchain})
	if err != nil {
		swapchain.Release()
		device.Close()
		return err
	}

	r.device = device
	r.swapchain = swapchain
	r.context = ctx
	return nil
}

func (r *Renderer) Device() graphics.Device       { return r.device }
func (r *Renderer) Swapchain() graphics.Swapchain { return r.swapchain }
func (r *Renderer) Context() graphics.Context     { return r.context }

// Shutdown releases the context and swapchain, then closes the device.
func (r *Renderer) Shutdown() error {
	if r.device == nil {
		return nil
	}
	r.context.Release()
	r.swapchain.Release()
	r.device.Close()
	r.device, r.swapchain, r.context = nil, nil, nil
	return nil
}
