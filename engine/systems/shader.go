package systems

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var (
	ErrShaderNotFound = errors.New("shader not found")
	ErrTooManyShaders = errors.New("shader limit reached")
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/** @brief The maximum number of shaders held in the system. */
	MaxShaderCount uint16
}

/**
 * @brief Builds programs from the stage files of the asset directory and
 * rebuilds them when a stage file changes.
 */
type ShaderSystem struct {
	config  ShaderSystemConfig
	device  graphics.Device
	assets  *assets.AssetManager
	events  *core.EventBus
	ids     *core.IDAllocator
	shaders map[string]*metadata.Shader

	onReload []func(*metadata.Shader)

	log *log.Logger
}

func NewShaderSystem(config ShaderSystemConfig, device graphics.Device, am *assets.AssetManager, events *core.EventBus) (*ShaderSystem, error) {
	if config.MaxShaderCount == 0 {
		err := fmt.Errorf("func NewShaderSystem - config.MaxShaderCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if device == nil || am == nil {
		return nil, fmt.Errorf("func NewShaderSystem - device and asset manager are required")
	}
	ss := &ShaderSystem{
		config:  config,
		device:  device,
		assets:  am,
		events:  events,
		ids:     core.NewIDAllocator(int(config.MaxShaderCount)),
		shaders: make(map[string]*metadata.Shader),
		log:     core.Logger().With("system", "shaders"),
	}
	if events != nil {
		events.Register(core.EVENT_CODE_ASSET_CHANGED, ss, ss.onAssetChanged)
	}
	return ss, nil
}

// Acquire returns the vertex and fragment program called name, building it
// on first use.
func (ss *ShaderSystem) Acquire(name string) (*metadata.Shader, error) {
	if s, ok := ss.shaders[name]; ok {
		return s, nil
	}
	return ss.Load(metadata.GraphicsShaderConfig(name))
}

// Load builds the program described by config. A program already loaded
// under the same name is returned as is.
func (ss *ShaderSystem) Load(config metadata.ShaderConfig) (*metadata.Shader, error) {
	if s, ok := ss.shaders[config.Name]; ok {
		return s, nil
	}
	if len(ss.shaders) >= int(ss.config.MaxShaderCount) {
		return nil, fmt.Errorf("%w: %d shaders", ErrTooManyShaders, ss.config.MaxShaderCount)
	}
	program, err := ss.build(config)
	if err != nil {
		return nil, err
	}
	s := &metadata.Shader{
		Name:    config.Name,
		Config:  config,
		Program: program,
	}
	s.ID = ss.ids.Acquire(s)
	ss.shaders[config.Name] = s
	ss.log.Debug("loaded", "shader", config.Name, "id", s.ID)
	return s, nil
}

func (ss *ShaderSystem) build(config metadata.ShaderConfig) (graphics.Program, error) {
	deviceType := ss.device.Type()
	shaders := make([]graphics.Shader, 0, len(config.Stages))
	defer func() {
		// the program keeps what it links
		for _, s := range shaders {
			s.Release()
		}
	}()

	for _, stage := range config.Stages {
		file := metadata.ShaderFileName(config.Name, stage, deviceType)
		res, err := ss.assets.Load(file, nil)
		if err != nil {
			return nil, fmt.Errorf("shader %s %s stage: %w", config.Name, stage, err)
		}
		code, _ := res.Data.([]byte)
		shader, err := ss.device.CreateShader(graphics.ShaderDesc{
			Name:     path.Base(file),
			Stage:    stage,
			Entry:    "main",
			Bytecode: code,
		})
		ss.assets.Unload(res)
		if err != nil {
			return nil, fmt.Errorf("shader %s %s stage: %w", config.Name, stage, err)
		}
		shaders = append(shaders, shader)
	}
	return ss.device.CreateProgram(graphics.ProgramDesc{Name: config.Name, Shaders: shaders})
}

// Get returns a loaded shader without building it.
func (ss *ShaderSystem) Get(name string) (*metadata.Shader, bool) {
	s, ok := ss.shaders[name]
	return s, ok
}

// OnReload registers fn to be called after a shader got a new program.
func (ss *ShaderSystem) OnReload(fn func(*metadata.Shader)) {
	ss.onReload = append(ss.onReload, fn)
}

// Reload rebuilds a loaded shader from its files. On failure the previous
// program stays in place.
func (ss *ShaderSystem) Reload(name string) error {
	s, ok := ss.shaders[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrShaderNotFound, name)
	}
	program, err := ss.build(s.Config)
	if err != nil {
		ss.log.Error("reload failed, keeping the previous program", "shader", name, "err", err)
		return err
	}
	graphics.Release(s.Program)
	s.Program = program
	s.Generation++
	ss.log.Info("reloaded", "shader", name, "generation", s.Generation)
	for _, fn := range ss.onReload {
		fn(s)
	}
	return nil
}

// shaderForFile returns the program a stage file of the current device
// belongs to.
func (ss *ShaderSystem) shaderForFile(p string) (string, bool) {
	rest, ok := strings.CutPrefix(p, "shaders/")
	if !ok {
		return "", false
	}
	rest, ok = strings.CutSuffix(rest, "."+metadata.ShaderVariant(ss.device.Type()))
	if !ok {
		return "", false
	}
	i := strings.LastIndexByte(rest, '.')
	if i <= 0 {
		return "", false
	}
	if _, ok := metadata.Stage(rest[i+1:]); !ok {
		return "", false
	}
	return rest[:i], true
}

func (ss *ShaderSystem) onAssetChanged(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	name, ok := ss.shaderForFile(data.Data.S)
	if !ok {
		return false
	}
	if _, loaded := ss.shaders[name]; !loaded {
		return false
	}
	// the error is logged by Reload
	_ = ss.Reload(name)
	return false
}

func (ss *ShaderSystem) Shutdown() error {
	if ss.events != nil {
		ss.events.Unregister(core.EVENT_CODE_ASSET_CHANGED, ss)
	}
	for name, s := range ss.shaders {
		graphics.Release(s.Program)
		s.Program = nil
		if err := ss.ids.Release(s.ID); err != nil {
			ss.log.Warn("release id", "shader", name, "err", err)
		}
	}
	clear(ss.shaders)
	ss.onReload = nil
	return nil
}
