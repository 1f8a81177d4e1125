package systems

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/postprocess"
)

var ErrNoSwapchain = errors.New("render pipeline: no swapchain")

/**
 * @brief Drives one frame: every camera in order draws its visible objects
 * bucket by bucket, lights are drawn as screen quads with the light
 * material, then the post-process chain writes the swapchain.
 *
 * Object passes get "model", "view" and "project" set when they declare
 * them. Light passes get "view", "project", "lightType", "lightColour",
 * "lightPosition", "lightDirection", "lightRange" and "lightAngle".
 */
type RenderPipeline struct {
	device    graphics.Device
	context   graphics.Context
	swapchain graphics.Swapchain

	materials  *MaterialSystem
	geometry   *GeometrySystem
	renderData *RenderDataManager
	chain      *postprocess.Chain

	lightMaterial string
	// offscreen target main cameras draw into while the chain has stages
	sceneTarget graphics.Framebuffer

	log *log.Logger
}

var _ postprocess.Pipeline = (*RenderPipeline)(nil)

// NewRenderPipeline creates a pipeline presenting to swapchain. lightMaterial
// names the material lights are drawn with; empty disables light drawing.
func NewRenderPipeline(device graphics.Device, ctx graphics.Context, swapchain graphics.Swapchain, ms *MaterialSystem, gs *GeometrySystem, lightMaterial string) (*RenderPipeline, error) {
	if swapchain == nil {
		return nil, ErrNoSwapchain
	}
	if ms == nil || gs == nil {
		return nil, fmt.Errorf("render pipeline: material and geometry systems are required")
	}
	return &RenderPipeline{
		device:        device,
		context:       ctx,
		swapchain:     swapchain,
		materials:     ms,
		geometry:      gs,
		renderData:    NewRenderDataManager(),
		chain:         postprocess.NewChain(),
		lightMaterial: lightMaterial,
		log:           core.Logger().With("system", "render_pipeline"),
	}, nil
}

func (rp *RenderPipeline) Device() graphics.Device   { return rp.device }
func (rp *RenderPipeline) Context() graphics.Context { return rp.context }

// TargetLayout is the layout every material pipeline is built for.
func (rp *RenderPipeline) TargetLayout() graphics.FramebufferLayout {
	return rp.materials.target
}

// Material returns a loaded material, loading it on first use.
func (rp *RenderPipeline) Material(name string) (*metadata.Material, error) {
	if m, ok := rp.materials.Get(name); ok {
		return m, nil
	}
	return rp.materials.Acquire(name)
}

// SceneDepth is the depth of the offscreen scene target post-process stages
// read from.
func (rp *RenderPipeline) SceneDepth() graphics.Texture {
	if rp.sceneTarget == nil {
		return nil
	}
	return postprocess.DepthTexture(rp.sceneTarget)
}

// RenderData exposes the render lists of the camera drawn last.
func (rp *RenderPipeline) RenderData() *RenderDataManager {
	return rp.renderData
}

func (rp *RenderPipeline) Chain() *postprocess.Chain {
	return rp.chain
}

// AddStage appends a post-process stage. Main cameras draw offscreen from
// then on.
func (rp *RenderPipeline) AddStage(stage postprocess.Stage) error {
	return rp.chain.Add(rp, stage)
}

// DrawScreenQuad draws the full screen quad with pass into the bound target.
func (rp *RenderPipeline) DrawScreenQuad(pass *metadata.MaterialPass) {
	quad := rp.geometry.ScreenQuad()
	rp.context.SetPipeline(pass.Pipeline)
	rp.context.SetDescriptorSet(pass.Set)
	quad.Bind(rp.context)
	rp.context.DrawRenderMesh(quad.Draw)
}

// Resize follows a new window size. The scene target is recreated on the
// next frame.
func (rp *RenderPipeline) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	graphics.Release(rp.sceneTarget)
	rp.sceneTarget = nil
	return rp.swapchain.Resize(width, height)
}

// Render draws cameras in the given order and presents. The frame always
// reaches RenderEnd and Present; failures of single cameras are joined into
// the returned error.
func (rp *RenderPipeline) Render(cameras []*components.Camera) error {
	var errs []error
	rp.context.RenderBegin()

	offscreen := rp.chain.Len() > 0
	if offscreen {
		if err := rp.ensureSceneTarget(); err != nil {
			errs = append(errs, err)
			offscreen = false
		}
	}
	for _, camera := range cameras {
		if err := rp.renderCamera(camera, offscreen); err != nil {
			rp.log.Error("camera failed", "camera", cameraName(camera), "err", err)
			errs = append(errs, err)
		}
	}
	if offscreen {
		if err := rp.chain.Render(rp, rp.sceneTarget, rp.swapchain.Framebuffer()); err != nil {
			errs = append(errs, err)
		}
	}

	rp.context.RenderEnd()
	if err := rp.context.Err(); err != nil {
		errs = append(errs, err)
	}
	rp.context.Present()
	return errors.Join(errs...)
}

func cameraName(camera *components.Camera) string {
	if camera == nil {
		return "<nil>"
	}
	return camera.Name()
}

func (rp *RenderPipeline) ensureSceneTarget() error {
	target := rp.swapchain.Framebuffer()
	width, height := target.Desc().Width, target.Desc().Height
	if rp.sceneTarget != nil {
		desc := rp.sceneTarget.Desc()
		if desc.Width == width && desc.Height == height {
			return nil
		}
		rp.sceneTarget.Release()
		rp.sceneTarget = nil
	}
	fb, err := postprocess.NewRenderTarget(rp.device, postprocess.TargetDesc{
		Name:   "scene",
		Layout: rp.TargetLayout(),
		Width:  width,
		Height: height,
	})
	if err != nil {
		return err
	}
	rp.sceneTarget = fb
	return nil
}

func (rp *RenderPipeline) renderCamera(camera *components.Camera, offscreen bool) error {
	if err := rp.renderData.AssignVisible(camera); err != nil {
		return err
	}

	target := camera.Framebuffer()
	if target == nil && offscreen {
		target = rp.sceneTarget
	}
	rp.context.SetFramebuffer(target)
	if vp := camera.Viewport(); vp.Width > 0 && vp.Height > 0 {
		rp.context.SetViewport(vp)
	}
	if flags, color, depth, stencil := camera.Clear(); flags != 0 {
		rp.context.ClearFramebuffer(flags, color, depth, stencil)
	}

	view, project := camera.View(), camera.Project()
	for _, bucket := range metadata.DrawOrder {
		draws := rp.renderData.Draws(bucket.Queue, bucket.Pass)
		if bucket.Queue == metadata.RenderQueueLighting {
			rp.drawLights(camera, draws)
			continue
		}
		for _, d := range draws {
			rp.drawObject(d, view, project)
		}
	}
	return nil
}

func (rp *RenderPipeline) drawObject(d RenderDraw, view, project mgl32.Mat4) {
	mesh := d.Object.Mesh
	if mesh == nil || d.Pass == nil {
		return
	}
	rp.setParam(d.Pass, "model", d.Object.World)
	rp.setParam(d.Pass, "view", view)
	rp.setParam(d.Pass, "project", project)
	rp.context.SetPipeline(d.Pass.Pipeline)
	rp.context.SetDescriptorSet(d.Pass.Set)
	mesh.Bind(rp.context)
	rp.context.DrawRenderMesh(mesh.Draw)
}

// lightPass picks the pass a light is drawn with: a lights pass of the
// light's own material, else of the light material.
func (rp *RenderPipeline) lightPass(object *metadata.RenderObject) *metadata.MaterialPass {
	for _, m := range []*metadata.Material{object.Material, rp.defaultLightMaterial()} {
		if m == nil {
			continue
		}
		for _, t := range m.Techniques {
			for _, p := range t.Passes {
				if p.Pass == metadata.RenderPassLights {
					return p
				}
			}
		}
	}
	return nil
}

func (rp *RenderPipeline) defaultLightMaterial() *metadata.Material {
	if rp.lightMaterial == "" {
		return nil
	}
	m, err := rp.Material(rp.lightMaterial)
	if err != nil {
		rp.log.Warn("light material unavailable, lights are skipped", "material", rp.lightMaterial, "err", err)
		// do not retry every frame
		rp.lightMaterial = ""
		return nil
	}
	return m
}

func (rp *RenderPipeline) drawLights(camera *components.Camera, draws []RenderDraw) {
	for _, d := range draws {
		light := d.Object.Light
		if light == nil {
			continue
		}
		pass := rp.lightPass(d.Object)
		if pass == nil {
			continue
		}
		world := d.Object.World
		rp.setParam(pass, "view", camera.View())
		rp.setParam(pass, "project", camera.Project())
		rp.setParam(pass, "lightType", int32(light.Type))
		rp.setParam(pass, "lightColour", light.Colour.Mul(light.Intensity))
		rp.setParam(pass, "lightPosition", world.Col(3).Vec3())
		rp.setParam(pass, "lightDirection", world.Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3())
		rp.setParam(pass, "lightRange", light.Range)
		rp.setParam(pass, "lightAngle", light.Angle)
		rp.DrawScreenQuad(pass)
	}
}

func (rp *RenderPipeline) setParam(pass *metadata.MaterialPass, name string, value interface{}) {
	if pass.Set == nil || !pass.Set.Has(name) {
		return
	}
	if err := pass.SetParam(name, value); err != nil {
		rp.log.Debug("param not set", "pass", pass.Name, "param", name, "err", err)
	}
}

func (rp *RenderPipeline) Shutdown() error {
	rp.chain.Close()
	graphics.Release(rp.sceneTarget)
	rp.sceneTarget = nil
	return nil
}
