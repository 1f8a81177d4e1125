package engine

import (
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/opengl/glcore"
	"github.com/spaghettifunk/prism/engine/renderer/opengl/gles2"
	"github.com/spaghettifunk/prism/engine/renderer/opengl/gles3"
	"github.com/spaghettifunk/prism/engine/renderer/opengl/glnative"
	"github.com/spaghettifunk/prism/engine/renderer/vulkan"
)

func init() {
	graphics.Register(graphics.DeviceTypeOpenGLES2, func() graphics.Device { return gles2.NewDevice(glnative.LoadES) })
	graphics.Register(graphics.DeviceTypeOpenGLES3, func() graphics.Device { return gles3.NewDevice(glnative.LoadES) })
	graphics.Register(graphics.DeviceTypeOpenGLCore, func() graphics.Device { return glcore.NewDevice(glnative.LoadCore) })
	graphics.Register(graphics.DeviceTypeVulkan, func() graphics.Device { return vulkan.NewDevice() })
}
