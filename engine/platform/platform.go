package platform

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

var (
	_ graphics.GLSurface     = (*Platform)(nil)
	_ graphics.VulkanSurface = (*Platform)(nil)
)

/**
 * @brief The application window. Depending on the device type it was opened
 * for it owns an OpenGL (ES) context or is ready to host a Vulkan surface.
 */
type Platform struct {
	window     *glfw.Window
	deviceType graphics.DeviceType
	events     *core.EventBus
	log        *log.Logger
	startTime  float64
	quit       bool
}

func New(events *core.EventBus) (*Platform, error) {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return nil, err
	}
	return &Platform{
		events:    events,
		log:       core.Logger().With("system", "platform"),
		startTime: glfw.GetTime(),
	}, nil
}

// OpenWindow creates the window with the context hints t needs. An already
// open window is closed first.
func (p *Platform) OpenWindow(name string, x, y, width, height uint32, t graphics.DeviceType) error {
	p.CloseWindow()

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	if err := contextHints(t); err != nil {
		return err
	}

	window, err := glfw.CreateWindow(int(width), int(height), name, nil, nil)
	if err != nil {
		p.log.Error("failed to create window", "device", t, "err", err)
		return err
	}
	p.window = window
	p.deviceType = t

	window.SetKeyCallback(p.keyCallback)
	window.SetCloseCallback(p.closeCallback)
	window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	window.SetPos(int(x), int(y))
	window.Show()

	p.log.Debug("window opened", "device", t, "width", width, "height", height)
	return nil
}

func contextHints(t graphics.DeviceType) error {
	switch t {
	case graphics.DeviceTypeVulkan:
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	case graphics.DeviceTypeOpenGLES2:
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 2)
		glfw.WindowHint(glfw.ContextVersionMinor, 0)
	case graphics.DeviceTypeOpenGLES3:
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 3)
		glfw.WindowHint(glfw.ContextVersionMinor, 0)
	case graphics.DeviceTypeOpenGLCore:
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 1)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	default:
		return fmt.Errorf("%w: no window hints for %s", graphics.ErrUnsupportedDevice, t)
	}
	return nil
}

func (p *Platform) CloseWindow() {
	if p.window == nil {
		return
	}
	p.window.Destroy()
	p.window = nil
	p.deviceType = graphics.DeviceTypeNone
}

func (p *Platform) Shutdown() error {
	p.CloseWindow()
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It returns false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.quit && (p.window == nil || !p.window.ShouldClose())
}

// GetAbsoluteTime returns the seconds since the platform started.
func (p *Platform) GetAbsoluteTime() float64 {
	return glfw.GetTime() - p.startTime
}

func (p *Platform) DeviceType() graphics.DeviceType { return p.deviceType }

func (p *Platform) FramebufferSize() (width, height int) {
	if p.window == nil {
		return 0, 0
	}
	return p.window.GetFramebufferSize()
}

func (p *Platform) MakeContextCurrent() { p.window.MakeContextCurrent() }
func (p *Platform) SwapBuffers()        { p.window.SwapBuffers() }
func (p *Platform) SwapInterval(interval int) {
	glfw.SwapInterval(interval)
}

func (p *Platform) GetProcAddress(name string) unsafe.Pointer {
	return glfw.GetProcAddress(name)
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.window.GetRequiredInstanceExtensions()
}

func (p *Platform) InstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (p *Platform) CreateWindowSurface(instance interface{}) (uintptr, error) {
	return p.window.CreateWindowSurface(instance, nil)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if p.events == nil || key == glfw.KeyUnknown {
		return
	}
	var ctx core.EventContext
	ctx.Data.U32[0] = uint32(key)
	switch action {
	case glfw.Press:
		p.events.Fire(core.EVENT_CODE_KEY_PRESSED, p, ctx)
	case glfw.Release:
		p.events.Fire(core.EVENT_CODE_KEY_RELEASED, p, ctx)
	}
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.quit = true
	if p.events != nil {
		p.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, p, core.EventContext{})
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if p.events == nil {
		return
	}
	var ctx core.EventContext
	ctx.Data.U32[0] = uint32(width)
	ctx.Data.U32[1] = uint32(height)
	p.events.Fire(core.EVENT_CODE_RESIZED, p, ctx)
}

// Codes carried in data.U32[0] of key events.
const (
	KeyEscape = uint32(glfw.KeyEscape)
	KeyW      = uint32(glfw.KeyW)
	KeyA      = uint32(glfw.KeyA)
	KeyS      = uint32(glfw.KeyS)
	KeyD      = uint32(glfw.KeyD)
	KeyF      = uint32(glfw.KeyF)
)
