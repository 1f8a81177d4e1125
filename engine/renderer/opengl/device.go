package opengl

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/**
 * @brief Device shared by the OpenGL ES 2, OpenGL ES 3 and desktop OpenGL
 * backends. The variants differ only in how they load the entry points and
 * in the profile their probe reports.
 */
type Device struct {
	typ   graphics.DeviceType
	load  Loader
	probe Probe

	desc    graphics.DeviceDesc
	surface graphics.GLSurface
	f       Functions
	profile *Profile
	state   *glState
	log     *log.Logger

	// emptyVAO is bound for draws without vertex input on profiles that
	// refuse to draw without a vertex array object.
	emptyVAO VertexArray
}

var _ graphics.Device = (*Device)(nil)

func NewDevice(t graphics.DeviceType, load Loader, probe Probe) *Device {
	return &Device{
		typ:   t,
		load:  load,
		probe: probe,
		log:   core.Logger().With("backend", t.String()),
	}
}

func (d *Device) Setup(desc graphics.DeviceDesc) error {
	if d.f != nil {
		return graphics.ErrAlreadySetup
	}
	if desc.Type != d.typ {
		return fmt.Errorf("%w: %s device cannot run %s", graphics.ErrUnsupportedDevice, d.typ, desc.Type)
	}
	surface, ok := desc.Surface.(graphics.GLSurface)
	if !ok {
		return fmt.Errorf("%w: %s needs an OpenGL surface", graphics.ErrUnsupportedDevice, d.typ)
	}
	surface.MakeContextCurrent()

	f, err := d.load(surface)
	if err != nil {
		return fmt.Errorf("%w: loading %s: %v", graphics.ErrUnsupportedDevice, d.typ, err)
	}
	profile, err := d.probe(f)
	if err != nil {
		return err
	}

	state := newGLState(f, profile.Caps)
	var emptyVAO VertexArray
	if profile.Caps.Has(graphics.FeatureVertexArray) {
		emptyVAO = f.CreateVertexArray()
	}

	d.desc = desc
	d.surface = surface
	d.f = f
	d.profile = profile
	d.state = state
	d.emptyVAO = emptyVAO
	if err := d.checkError("setup"); err != nil {
		d.Close()
		return fmt.Errorf("%w: %v", graphics.ErrUnsupportedDevice, err)
	}

	core.LogInfo("%s device ready: %s, %s", d.typ, profile.Version, f.GetString(RENDERER))
	d.log.Debug("capabilities",
		"textures", len(profile.Formats),
		"max_texture_size", profile.Caps.MaxTextureSize,
		"max_vertex_attributes", profile.Caps.MaxVertexAttributes,
		"max_color_attachments", profile.Caps.MaxColorAttachments,
	)
	return nil
}

// Close deletes the objects the device created for itself. It leaves the
// device ready for another Setup.
func (d *Device) Close() {
	if d.f == nil {
		return
	}
	if d.emptyVAO != 0 {
		d.state.deleteVertexArray(d.emptyVAO)
		d.emptyVAO = 0
	}
	d.f = nil
	d.state = nil
	d.profile = nil
	d.surface = nil
}

func (d *Device) Type() graphics.DeviceType {
	return d.typ
}

func (d *Device) Desc() graphics.DeviceDesc {
	return d.desc
}

func (d *Device) Caps() graphics.Caps {
	if d.profile == nil {
		return graphics.Caps{}
	}
	return d.profile.Caps
}

// Profile returns what the live context supports, nil before Setup.
func (d *Device) Profile() *Profile {
	return d.profile
}

// checkError drains the GL error queue. Every pending error is logged; the
// returned error wraps graphics.ErrNative and names the first one.
func (d *Device) checkError(op string) error {
	var first Enum
	// a lost context reports errors forever
	for i := 0; i < 8; i++ {
		code := d.f.GetError()
		if code == NO_ERROR {
			break
		}
		core.LogError("%s: %s: %s", d.typ, op, errorName(code))
		if first == NO_ERROR {
			first = code
		}
	}
	if first != NO_ERROR {
		return fmt.Errorf("%w: %s: %s", graphics.ErrNative, op, errorName(first))
	}
	return nil
}

func errorName(code Enum) string {
	switch code {
	case INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	case INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	}
	return fmt.Sprintf("0x%04x", uint32(code))
}

// isES2 reports whether the context lacks the OpenGL ES 3 / OpenGL 3 core
// entry points (sized formats, texture levels, vertex arrays).
func (d *Device) isES2() bool {
	return d.profile.Version.ES && !d.profile.Version.AtLeast(3, 0)
}
