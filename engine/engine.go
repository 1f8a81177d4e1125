package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *config.Config
	isRunning     atomic.Bool
	isSuspended   bool
	events        *core.EventBus
	platform      *platform.Platform
	renderer      *renderer.Renderer
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	width         uint32
	height        uint32
	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.Config == nil {
		err := fmt.Errorf("func New - game and its configuration are required")
		core.LogError(err.Error())
		return nil, err
	}
	if err := g.Config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if err := core.SetLogLevel(g.Config.Log.Level); err != nil {
		return nil, err
	}

	events := core.NewEventBus()
	p, err := platform.New(events)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       g.Config,
		events:       events,
		platform:     p,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        g.Config.Application.Width,
		height:       g.Config.Application.Height,
	}
	e.isRunning.Store(true)
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	app := e.config.Application
	r, err := renderer.New(e.config, func(t graphics.DeviceType) (graphics.Surface, error) {
		if err := e.platform.OpenWindow(app.Name, app.X, app.Y, app.Width, app.Height, t); err != nil {
			return nil, err
		}
		return e.platform, nil
	})
	if err != nil {
		return err
	}
	e.renderer = r

	am, err := assets.NewAssetManager(e.config.Assets.Path, e.events)
	if err != nil {
		return err
	}
	e.assetManager = am
	if e.config.Assets.Watch {
		if err := am.Watch(); err != nil {
			// hot reload is optional
			core.LogWarn("asset watching disabled: %s", err)
		}
	}

	sm, err := systems.NewSystemManager(e.config, r.Device(), r.Context(), r.Swapchain(), am, e.events)
	if err != nil {
		return err
	}
	e.systemManager = sm
	e.gameInstance.SystemManager = sm
	e.gameInstance.Events = e.events

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}

	fbw, fbh := e.platform.FramebufferSize()
	e.width, e.height = uint32(fbw), uint32(fbh)
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			break
		}
		if e.isSuspended {
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.GetAbsoluteTime()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("game update failed, shutting down: %s", err)
			return err
		}
		e.systemManager.Update()

		if err := e.gameInstance.FnRender(delta); err != nil {
			core.LogError("game render failed, shutting down: %s", err)
			return err
		}
		if err := e.systemManager.Render(); err != nil {
			// a failed camera does not stop the frame
			core.LogWarn("frame rendered with errors: %s", err)
		}

		e.metrics.Update(e.platform.GetAbsoluteTime() - frameStartTime)
		e.lastTime = currentTime
	}
	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
	}
	if e.assetManager != nil {
		errs = append(errs, e.assetManager.Close())
	}
	if e.renderer != nil {
		errs = append(errs, e.renderer.Shutdown())
	}
	errs = append(errs, e.platform.Shutdown())
	e.events.Shutdown()
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

// Metrics returns the frames per second and the average frame time in ms.
func (e *Engine) Metrics() (float64, float64) {
	return e.metrics.Frame()
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if data.Data.U32[0] == platform.KeyEscape {
		// other listeners may care about quitting too
		e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width, height := data.Data.U32[0], data.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.systemManager.Resize(width, height); err != nil {
		core.LogError(err.Error())
	}
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
	return true
}
