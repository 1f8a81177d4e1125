package systems

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var (
	ErrMaterialNotFound = errors.New("material not found")
	ErrTooManyMaterials = errors.New("material limit reached")
)

/** @brief The material system configuration. */
type MaterialSystemConfig struct {
	/** @brief The maximum number of materials that can be loaded at once. */
	MaxMaterialCount uint32
}

// textureBinding remembers which texture feeds a pass param, so the param
// can follow the texture when it is reloaded.
type textureBinding struct {
	pass    *metadata.MaterialPass
	param   string
	texture string
}

type materialEntry struct {
	material    *metadata.Material
	config      metadata.MaterialConfig
	path        string
	refs        uint32
	autoRelease bool
	bindings    []textureBinding
}

func (e *materialEntry) usesShader(name string) bool {
	for _, t := range e.config.Techniques {
		for _, p := range t.Passes {
			if p.Shader == name {
				return true
			}
		}
	}
	return false
}

/**
 * @brief Turns material configs into materials: one pipeline and descriptor
 * set per pass, built for a single framebuffer layout and the Vertex3D input
 * layout. Materials are rebuilt in place when their file or one of their
 * shaders changes, keeping their ID.
 */
type MaterialSystem struct {
	config   MaterialSystemConfig
	device   graphics.Device
	target   graphics.FramebufferLayout
	shaders  *ShaderSystem
	textures *TextureSystem
	assets   *assets.AssetManager
	events   *core.EventBus

	input  graphics.InputLayout
	states map[graphics.StateDesc]graphics.State

	ids       *core.IDAllocator
	materials map[string]*materialEntry
	byPath    map[string]string

	log *log.Logger
}

func NewMaterialSystem(config MaterialSystemConfig, device graphics.Device, target graphics.FramebufferLayout, ss *ShaderSystem, ts *TextureSystem, am *assets.AssetManager, events *core.EventBus) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if target == nil || ss == nil || ts == nil {
		return nil, fmt.Errorf("func NewMaterialSystem - target layout, shader and texture systems are required")
	}
	input, err := device.CreateInputLayout(metadata.Vertex3DLayout())
	if err != nil {
		return nil, fmt.Errorf("vertex layout: %w", err)
	}
	ms := &MaterialSystem{
		config:    config,
		device:    device,
		target:    graphics.Retain(target),
		shaders:   ss,
		textures:  ts,
		assets:    am,
		events:    events,
		input:     input,
		states:    make(map[graphics.StateDesc]graphics.State),
		ids:       core.NewIDAllocator(int(config.MaxMaterialCount)),
		materials: make(map[string]*materialEntry),
		byPath:    make(map[string]string),
		log:       core.Logger().With("system", "materials"),
	}
	ss.OnReload(ms.onShaderReloaded)
	ts.OnLoaded(ms.onTextureLoaded)
	if events != nil {
		events.Register(core.EVENT_CODE_ASSET_CHANGED, ms, ms.onAssetChanged)
	}
	return ms, nil
}

// MaterialPath is the asset file a named material is loaded from.
func MaterialPath(name string) string {
	return "materials/" + name + ".material.yaml"
}

// Acquire returns the material called name, loading it from
// materials/<name>.material.yaml on first use. Loaded materials are never
// auto released.
func (ms *MaterialSystem) Acquire(name string) (*metadata.Material, error) {
	if e, ok := ms.materials[name]; ok {
		e.refs++
		return e.material, nil
	}
	if ms.assets == nil {
		return nil, fmt.Errorf("%w: %s", ErrMaterialNotFound, name)
	}
	p := MaterialPath(name)
	if !ms.assets.Exists(p) {
		return nil, fmt.Errorf("%w: %s", ErrMaterialNotFound, name)
	}
	config, err := ms.loadConfig(p)
	if err != nil {
		return nil, err
	}
	if config.Name != name {
		ms.log.Warn("material file names another material, using the file name", "file", p, "name", config.Name)
		config.Name = name
	}
	e, err := ms.create(config, false)
	if err != nil {
		return nil, err
	}
	e.path = p
	ms.byPath[p] = name
	return e.material, nil
}

// AcquireFromConfig builds a material from config, or takes a reference on
// the loaded material of the same name.
func (ms *MaterialSystem) AcquireFromConfig(config metadata.MaterialConfig, autoRelease bool) (*metadata.Material, error) {
	if e, ok := ms.materials[config.Name]; ok {
		e.refs++
		return e.material, nil
	}
	e, err := ms.create(config, autoRelease)
	if err != nil {
		return nil, err
	}
	return e.material, nil
}

func (ms *MaterialSystem) loadConfig(p string) (metadata.MaterialConfig, error) {
	res, err := ms.assets.Load(p, nil)
	if err != nil {
		return metadata.MaterialConfig{}, err
	}
	defer ms.assets.Unload(res)
	config, ok := res.Data.(*metadata.MaterialConfig)
	if !ok {
		return metadata.MaterialConfig{}, fmt.Errorf("%s is not a material", p)
	}
	return *config, nil
}

func (ms *MaterialSystem) create(config metadata.MaterialConfig, autoRelease bool) (*materialEntry, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(ms.materials) >= int(ms.config.MaxMaterialCount) {
		return nil, fmt.Errorf("%w: %d materials", ErrTooManyMaterials, ms.config.MaxMaterialCount)
	}
	e := &materialEntry{
		config:      config,
		refs:        1,
		autoRelease: autoRelease,
	}
	techniques, bindings, err := ms.build(config)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", config.Name, err)
	}
	e.material = &metadata.Material{Name: config.Name, Techniques: techniques}
	e.bindings = bindings
	e.material.ID = ms.ids.Acquire(e)
	ms.materials[config.Name] = e
	ms.log.Debug("created", "material", config.Name, "id", e.material.ID)
	return e, nil
}

// Get returns a loaded material without taking a reference.
func (ms *MaterialSystem) Get(name string) (*metadata.Material, bool) {
	e, ok := ms.materials[name]
	if !ok {
		return nil, false
	}
	return e.material, true
}

// Release drops a reference. Auto release materials are destroyed with their
// last reference.
func (ms *MaterialSystem) Release(name string) {
	e, ok := ms.materials[name]
	if !ok {
		ms.log.Warn("release of unknown material", "material", name)
		return
	}
	if e.refs > 0 {
		e.refs--
	}
	if e.refs == 0 && e.autoRelease {
		ms.destroy(e)
	}
}

func (ms *MaterialSystem) destroy(e *materialEntry) {
	ms.releaseBindings(e.bindings)
	e.material.Release()
	delete(ms.materials, e.material.Name)
	if e.path != "" {
		delete(ms.byPath, e.path)
	}
	if err := ms.ids.Release(e.material.ID); err != nil {
		ms.log.Warn("release id", "material", e.material.Name, "err", err)
	}
	ms.log.Debug("destroyed", "material", e.material.Name)
}

func (ms *MaterialSystem) releaseBindings(bindings []textureBinding) {
	for _, b := range bindings {
		ms.textures.Release(b.texture)
	}
}

// Reload rebuilds a material from its file, or from its config when it was
// not loaded from a file. The *Material and its ID stay the same; on failure
// the previous passes are kept.
func (ms *MaterialSystem) Reload(name string) error {
	e, ok := ms.materials[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMaterialNotFound, name)
	}
	config := e.config
	if e.path != "" {
		var err error
		if config, err = ms.loadConfig(e.path); err != nil {
			ms.log.Error("reload failed, keeping the previous passes", "material", name, "err", err)
			return err
		}
		config.Name = name
		if err := config.Validate(); err != nil {
			ms.log.Error("reload failed, keeping the previous passes", "material", name, "err", err)
			return err
		}
	}
	techniques, bindings, err := ms.build(config)
	if err != nil {
		ms.log.Error("reload failed, keeping the previous passes", "material", name, "err", err)
		return err
	}
	// new texture references are taken before the old ones are dropped
	ms.releaseBindings(e.bindings)
	e.material.Release()
	e.material.Techniques = techniques
	e.material.Generation++
	e.bindings = bindings
	e.config = config
	ms.log.Info("reloaded", "material", name, "generation", e.material.Generation)
	return nil
}

func (ms *MaterialSystem) build(config metadata.MaterialConfig) ([]*metadata.Technique, []textureBinding, error) {
	var (
		techniques []*metadata.Technique
		bindings   []textureBinding
	)
	fail := func(err error) ([]*metadata.Technique, []textureBinding, error) {
		for _, t := range techniques {
			for _, p := range t.Passes {
				p.Release()
			}
		}
		ms.releaseBindings(bindings)
		return nil, nil, err
	}

	for _, tc := range config.Techniques {
		technique := &metadata.Technique{Name: tc.Name, Queue: tc.Queue}
		techniques = append(techniques, technique)
		for _, pc := range tc.Passes {
			pass, err := ms.buildPass(config.Name, pc)
			if err != nil {
				return fail(fmt.Errorf("pass %s: %w", pc.Name, err))
			}
			technique.Passes = append(technique.Passes, pass)
			b, err := ms.applyPassConfig(pass, pc)
			bindings = append(bindings, b...)
			if err != nil {
				return fail(fmt.Errorf("pass %s: %w", pc.Name, err))
			}
		}
	}
	return techniques, bindings, nil
}

func (ms *MaterialSystem) buildPass(material string, pc metadata.PassConfig) (*metadata.MaterialPass, error) {
	shader, err := ms.shaders.Acquire(pc.Shader)
	if err != nil {
		return nil, err
	}
	stateDesc, err := pc.State.Desc()
	if err != nil {
		return nil, err
	}
	state, err := ms.state(stateDesc)
	if err != nil {
		return nil, err
	}
	layoutDesc, err := pc.LayoutDesc()
	if err != nil {
		return nil, err
	}
	setLayout, err := ms.device.CreateDescriptorSetLayout(layoutDesc)
	if err != nil {
		return nil, err
	}
	defer setLayout.Release()

	pipeline, err := ms.device.CreatePipeline(graphics.PipelineDesc{
		Name:                material + "/" + pc.Name,
		Program:             shader.Program,
		InputLayout:         ms.input,
		State:               state,
		DescriptorSetLayout: setLayout,
		FramebufferLayout:   ms.target,
	})
	if err != nil {
		return nil, err
	}
	set, err := ms.device.CreateDescriptorSet(graphics.DescriptorSetDesc{Layout: setLayout})
	if err != nil {
		pipeline.Release()
		return nil, err
	}
	return &metadata.MaterialPass{Name: pc.Name, Pass: pc.Pass, Pipeline: pipeline, Set: set}, nil
}

// state shares one state object between equal descriptions.
func (ms *MaterialSystem) state(desc graphics.StateDesc) (graphics.State, error) {
	if s, ok := ms.states[desc]; ok {
		return s, nil
	}
	s, err := ms.device.CreateState(desc)
	if err != nil {
		return nil, err
	}
	ms.states[desc] = s
	return s, nil
}

// applyPassConfig sets the initial values and textures of a pass. Texture
// params without a configured texture get the white texture.
func (ms *MaterialSystem) applyPassConfig(pass *metadata.MaterialPass, pc metadata.PassConfig) ([]textureBinding, error) {
	for name, values := range pc.Values {
		value, err := paramValue(values)
		if err != nil {
			return nil, fmt.Errorf("value %s: %w", name, err)
		}
		if err := pass.SetParam(name, value); err != nil {
			return nil, err
		}
	}

	var bindings []textureBinding
	for _, p := range pc.Params {
		if !strings.EqualFold(p.Type, "texture") {
			continue
		}
		textureName, ok := pc.Textures[p.Name]
		if !ok {
			if err := pass.SetTexture(p.Name, ms.textures.White()); err != nil {
				return bindings, err
			}
			continue
		}
		texture, err := ms.textures.Acquire(textureName, true)
		if err != nil {
			// keep the default texture bound, a missing image is not fatal
			ms.log.Warn("texture unavailable", "pass", pass.Name, "param", p.Name, "texture", textureName, "err", err)
		} else {
			bindings = append(bindings, textureBinding{pass: pass, param: p.Name, texture: textureName})
		}
		if err := pass.SetTexture(p.Name, texture); err != nil {
			return bindings, err
		}
	}
	for param := range pc.Textures {
		if !pass.Set.Has(param) {
			return bindings, fmt.Errorf("%w: texture for %s", graphics.ErrUnknownParam, param)
		}
	}
	return bindings, nil
}

// paramValue maps one to sixteen floats onto the matching uniform type.
func paramValue(values []float32) (interface{}, error) {
	switch len(values) {
	case 1:
		return values[0], nil
	case 2:
		return mgl32.Vec2{values[0], values[1]}, nil
	case 3:
		return mgl32.Vec3{values[0], values[1], values[2]}, nil
	case 4:
		return mgl32.Vec4{values[0], values[1], values[2], values[3]}, nil
	case 16:
		var m mgl32.Mat4
		copy(m[:], values)
		return m, nil
	}
	return nil, fmt.Errorf("%w: %d floats", graphics.ErrParamType, len(values))
}

func (ms *MaterialSystem) onShaderReloaded(s *metadata.Shader) {
	for name, e := range ms.materials {
		if e.usesShader(s.Name) {
			// the error is logged by Reload
			_ = ms.Reload(name)
		}
	}
}

func (ms *MaterialSystem) onTextureLoaded(name string, texture graphics.Texture) {
	for _, e := range ms.materials {
		for _, b := range e.bindings {
			if b.texture != name {
				continue
			}
			if err := b.pass.SetTexture(b.param, texture); err != nil {
				ms.log.Warn("rebind texture", "material", e.material.Name, "param", b.param, "err", err)
			}
		}
	}
}

func (ms *MaterialSystem) onAssetChanged(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	name, ok := ms.byPath[data.Data.S]
	if !ok {
		return false
	}
	_ = ms.Reload(name)
	return false
}

func (ms *MaterialSystem) Shutdown() error {
	if ms.events != nil {
		ms.events.Unregister(core.EVENT_CODE_ASSET_CHANGED, ms)
	}
	for _, e := range ms.materials {
		ms.destroy(e)
	}
	for desc, s := range ms.states {
		s.Release()
		delete(ms.states, desc)
	}
	graphics.Release(ms.input)
	graphics.Release(ms.target)
	ms.input = nil
	ms.target = nil
	return nil
}
