package systems

import (
	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/postprocess"
)

/**
 * @brief Owns every engine system for one device and swapchain. Systems are
 * created in dependency order and shut down in reverse.
 */
type SystemManager struct {
	jobSystem      *JobSystem
	cameraSystem   *CameraSystem
	shaderSystem   *ShaderSystem
	textureSystem  *TextureSystem
	materialSystem *MaterialSystem
	geometrySystem *GeometrySystem
	renderPipeline *RenderPipeline

	assets *assets.AssetManager
	// shutdown order, filled while creating
	shutdowns []func() error
}

func NewSystemManager(cfg *config.Config, device graphics.Device, ctx graphics.Context, swapchain graphics.Swapchain, am *assets.AssetManager, events *core.EventBus) (*SystemManager, error) {
	sm := &SystemManager{assets: am}
	if err := sm.create(cfg, device, ctx, swapchain, events); err != nil {
		sm.Shutdown()
		return nil, err
	}
	return sm, nil
}

func (sm *SystemManager) create(cfg *config.Config, device graphics.Device, ctx graphics.Context, swapchain graphics.Swapchain, events *core.EventBus) error {
	var err error
	render := cfg.Render

	if sm.jobSystem, err = NewJobSystem(JobSystemConfig{
		WorkerCount: render.Workers,
		QueueSize:   64,
	}); err != nil {
		return err
	}
	sm.onShutdown(sm.jobSystem.Shutdown)

	if sm.cameraSystem, err = NewCameraSystem(CameraSystemConfig{
		MaxCameraCount: 64,
	}); err != nil {
		return err
	}
	sm.onShutdown(sm.cameraSystem.Shutdown)

	if sm.shaderSystem, err = NewShaderSystem(ShaderSystemConfig{
		MaxShaderCount: render.MaxShaders,
	}, device, sm.assets, events); err != nil {
		return err
	}
	sm.onShutdown(sm.shaderSystem.Shutdown)

	if sm.textureSystem, err = NewTextureSystem(TextureSystemConfig{
		MaxTextureCount: render.MaxTextures,
	}, device, sm.assets, sm.jobSystem, events); err != nil {
		return err
	}
	sm.onShutdown(sm.textureSystem.Shutdown)

	if sm.materialSystem, err = NewMaterialSystem(MaterialSystemConfig{
		MaxMaterialCount: render.MaxMaterials,
	}, device, swapchain.Framebuffer().Desc().Layout, sm.shaderSystem, sm.textureSystem, sm.assets, events); err != nil {
		return err
	}
	sm.onShutdown(sm.materialSystem.Shutdown)

	if sm.geometrySystem, err = NewGeometrySystem(GeometrySystemConfig{
		MaxGeometryCount: render.MaxGeometries,
	}, device); err != nil {
		return err
	}
	sm.onShutdown(sm.geometrySystem.Shutdown)

	if sm.renderPipeline, err = NewRenderPipeline(device, ctx, swapchain, sm.materialSystem, sm.geometrySystem, render.LightMaterial); err != nil {
		return err
	}
	sm.onShutdown(sm.renderPipeline.Shutdown)

	if dof := cfg.PostProcess.DepthOfField; dof.Enabled {
		if err := sm.renderPipeline.AddStage(postprocess.NewDepthOfField(dof.Material, dof.Focus, dof.Range)); err != nil {
			return err
		}
	}

	width, height := swapchain.Framebuffer().Desc().Width, swapchain.Framebuffer().Desc().Height
	sm.cameraSystem.GetDefault().Resize(width, height)
	return nil
}

func (sm *SystemManager) onShutdown(fn func() error) {
	sm.shutdowns = append(sm.shutdowns, fn)
}

func (sm *SystemManager) JobSystem() *JobSystem           { return sm.jobSystem }
func (sm *SystemManager) CameraSystem() *CameraSystem     { return sm.cameraSystem }
func (sm *SystemManager) ShaderSystem() *ShaderSystem     { return sm.shaderSystem }
func (sm *SystemManager) TextureSystem() *TextureSystem   { return sm.textureSystem }
func (sm *SystemManager) MaterialSystem() *MaterialSystem { return sm.materialSystem }
func (sm *SystemManager) GeometrySystem() *GeometrySystem { return sm.geometrySystem }
func (sm *SystemManager) RenderPipeline() *RenderPipeline { return sm.renderPipeline }

// Update delivers changed assets and finished jobs. Call once per frame
// before Render.
func (sm *SystemManager) Update() {
	if sm.assets != nil {
		sm.assets.Update()
	}
	sm.jobSystem.Update()
}

// Render draws one frame with every camera.
func (sm *SystemManager) Render() error {
	return sm.renderPipeline.Render(sm.cameraSystem.Cameras())
}

// Resize follows a new window size. Cameras drawing to the swapchain take
// the new aspect ratio.
func (sm *SystemManager) Resize(width, height uint32) error {
	if err := sm.renderPipeline.Resize(width, height); err != nil {
		return err
	}
	for _, camera := range sm.cameraSystem.Cameras() {
		if camera.Framebuffer() == nil {
			camera.Resize(width, height)
		}
	}
	return nil
}

// Cameras is a shortcut for the cameras in render order.
func (sm *SystemManager) Cameras() []*components.Camera {
	return sm.cameraSystem.Cameras()
}

func (sm *SystemManager) Shutdown() error {
	for i := len(sm.shutdowns) - 1; i >= 0; i-- {
		if err := sm.shutdowns[i](); err != nil {
			return err
		}
	}
	sm.shutdowns = nil
	return nil
}
