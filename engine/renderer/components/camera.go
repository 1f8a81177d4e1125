package components

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/** @brief The name of the default camera. */
const DefaultCameraName string = "default"

type CameraType uint8

const (
	CameraTypePerspective CameraType = iota
	CameraTypeOrtho
)

/**
 * @brief Represents a camera that can be used for
 * a variety of things, especially rendering. Ideally,
 * these are created and managed by the camera system.
 */
type Camera struct {
	name string

	/** @brief The position of this camera. */
	position mgl32.Vec3
	/** @brief The rotation of this camera using Euler angles (pitch, yaw, roll). */
	eulerRotation mgl32.Vec3

	cameraType CameraType
	order      metadata.CameraOrder

	/** @brief Vertical field of view in degrees. */
	aperture float32
	ratio    float32
	near     float32
	far      float32

	left, right, bottom, top float32

	/** @brief Zero size means the whole render target. */
	viewport graphics.Viewport

	clearFlags   graphics.ClearFlags
	clearColor   mgl32.Vec4
	clearDepth   float32
	clearStencil uint32

	/** @brief The render target, nil for the swapchain. */
	framebuffer graphics.Framebuffer
	scene       metadata.VisibilityQuery

	viewDirty    bool
	projectDirty bool

	view               mgl32.Mat4
	viewInverse        mgl32.Mat4
	project            mgl32.Mat4
	projectInverse     mgl32.Mat4
	viewProject        mgl32.Mat4
	viewProjectInverse mgl32.Mat4
}

type CameraLookup struct {
	ID             uint16
	ReferenceCount uint16
	Camera         *Camera
}

func NewCamera(name string) *Camera {
	camera := &Camera{name: name}
	camera.Reset()
	return camera
}

// Reset restores a main perspective camera at the origin looking down -Z.
func (c *Camera) Reset() {
	graphics.Release(c.framebuffer)
	*c = Camera{
		name:         c.name,
		cameraType:   CameraTypePerspective,
		order:        metadata.CameraOrderMain,
		aperture:     70,
		ratio:        1,
		near:         0.1,
		far:          1000,
		left:         -1,
		right:        1,
		bottom:       -1,
		top:          1,
		clearFlags:   graphics.ClearAll,
		clearColor:   mgl32.Vec4{0, 0, 0, 1},
		clearDepth:   1,
		viewDirty:    true,
		projectDirty: true,
	}
}

func (c *Camera) Name() string { return c.name }

func (c *Camera) Position() mgl32.Vec3 { return c.position }

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.position = position
	c.viewDirty = true
}

func (c *Camera) EulerRotation() mgl32.Vec3 { return c.eulerRotation }

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.eulerRotation = rotation
	c.viewDirty = true
}

// LookAt places the camera at eye facing target. Roll is reset.
func (c *Camera) LookAt(eye, target mgl32.Vec3) {
	dir := target.Sub(eye)
	if dir.Len() == 0 {
		c.SetPosition(eye)
		return
	}
	dir = dir.Normalize()
	pitch := float32(gomath.Asin(float64(math.Clamp(dir.Y(), -1, 1))))
	yaw := float32(gomath.Atan2(float64(-dir.X()), float64(-dir.Z())))
	c.position = eye
	c.eulerRotation = mgl32.Vec3{pitch, yaw, 0}
	c.viewDirty = true
}

func (c *Camera) Type() CameraType { return c.cameraType }

func (c *Camera) SetType(t CameraType) {
	c.cameraType = t
	c.projectDirty = true
}

func (c *Camera) Order() metadata.CameraOrder { return c.order }

func (c *Camera) SetOrder(order metadata.CameraOrder) { c.order = order }

func (c *Camera) Aperture() float32 { return c.aperture }

func (c *Camera) SetAperture(degrees float32) {
	c.aperture = degrees
	c.projectDirty = true
}

func (c *Camera) Ratio() float32 { return c.ratio }

func (c *Camera) SetRatio(ratio float32) {
	c.ratio = ratio
	c.projectDirty = true
}

func (c *Camera) Near() float32 { return c.near }

func (c *Camera) SetNear(near float32) {
	c.near = near
	c.projectDirty = true
}

func (c *Camera) Far() float32 { return c.far }

func (c *Camera) SetFar(far float32) {
	c.far = far
	c.projectDirty = true
}

// SetPerspective switches to a perspective projection.
func (c *Camera) SetPerspective(aperture, ratio, near, far float32) {
	c.cameraType = CameraTypePerspective
	c.aperture, c.ratio, c.near, c.far = aperture, ratio, near, far
	c.projectDirty = true
}

// SetOrtho switches to an orthographic projection with the given extents.
func (c *Camera) SetOrtho(left, right, bottom, top float32) {
	c.cameraType = CameraTypeOrtho
	c.left, c.right, c.bottom, c.top = left, right, bottom, top
	c.projectDirty = true
}

func (c *Camera) Ortho() (left, right, bottom, top float32) {
	return c.left, c.right, c.bottom, c.top
}

func (c *Camera) Viewport() graphics.Viewport { return c.viewport }

func (c *Camera) SetViewport(viewport graphics.Viewport) { c.viewport = viewport }

// Resize sets a full viewport and, for perspective cameras, the aspect ratio.
func (c *Camera) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.viewport = graphics.FullViewport(width, height)
	if c.cameraType == CameraTypePerspective {
		c.SetRatio(float32(width) / float32(height))
	}
}

func (c *Camera) ClearFlags() graphics.ClearFlags { return c.clearFlags }

func (c *Camera) SetClear(flags graphics.ClearFlags, color mgl32.Vec4, depth float32, stencil uint32) {
	c.clearFlags = flags
	c.clearColor = color
	c.clearDepth = depth
	c.clearStencil = stencil
}

func (c *Camera) Clear() (flags graphics.ClearFlags, color mgl32.Vec4, depth float32, stencil uint32) {
	return c.clearFlags, c.clearColor, c.clearDepth, c.clearStencil
}

// Framebuffer is the target the camera renders into; nil means the swapchain.
func (c *Camera) Framebuffer() graphics.Framebuffer { return c.framebuffer }

func (c *Camera) SetFramebuffer(fb graphics.Framebuffer) {
	c.framebuffer = graphics.Swap(c.framebuffer, fb)
}

// Scene is what the camera looks at.
func (c *Camera) Scene() metadata.VisibilityQuery { return c.scene }

func (c *Camera) SetScene(scene metadata.VisibilityQuery) { c.scene = scene }

func (c *Camera) rotation() mgl32.Mat4 {
	e := c.eulerRotation
	return mgl32.HomogRotate3DY(e.Y()).Mul4(mgl32.HomogRotate3DX(e.X())).Mul4(mgl32.HomogRotate3DZ(e.Z()))
}

func (c *Camera) update() {
	if c.viewDirty {
		p := c.position
		rot := c.rotation()
		c.viewInverse = mgl32.Translate3D(p.X(), p.Y(), p.Z()).Mul4(rot)
		c.view = rot.Transpose().Mul4(mgl32.Translate3D(-p.X(), -p.Y(), -p.Z()))
	}
	if c.projectDirty {
		if c.cameraType == CameraTypeOrtho {
			c.project = mgl32.Ortho(c.left, c.right, c.bottom, c.top, c.near, c.far)
		} else {
			c.project = mgl32.Perspective(mgl32.DegToRad(c.aperture), c.ratio, c.near, c.far)
		}
		c.projectInverse = c.project.Inv()
	}
	if c.viewDirty || c.projectDirty {
		c.viewProject = c.project.Mul4(c.view)
		c.viewProjectInverse = c.viewInverse.Mul4(c.projectInverse)
		c.viewDirty = false
		c.projectDirty = false
	}
}

func (c *Camera) View() mgl32.Mat4 {
	c.update()
	return c.view
}

func (c *Camera) ViewInverse() mgl32.Mat4 {
	c.update()
	return c.viewInverse
}

func (c *Camera) Project() mgl32.Mat4 {
	c.update()
	return c.project
}

func (c *Camera) ProjectInverse() mgl32.Mat4 {
	c.update()
	return c.projectInverse
}

func (c *Camera) ViewProject() mgl32.Mat4 {
	c.update()
	return c.viewProject
}

func (c *Camera) ViewProjectInverse() mgl32.Mat4 {
	c.update()
	return c.viewProjectInverse
}

func (c *Camera) viewportRect() (x, y, w, h int) {
	return int(c.viewport.X), int(c.viewport.Y), int(c.viewport.Width), int(c.viewport.Height)
}

// WorldToScreen maps a world position to window coordinates with a bottom
// left origin; z is the depth in 0..1.
func (c *Camera) WorldToScreen(pos mgl32.Vec3) mgl32.Vec3 {
	x, y, w, h := c.viewportRect()
	return mgl32.Project(pos, c.View(), c.Project(), x, y, w, h)
}

// ScreenToWorld is the inverse of WorldToScreen.
func (c *Camera) ScreenToWorld(pos mgl32.Vec3) mgl32.Vec3 {
	x, y, w, h := c.viewportRect()
	world, err := mgl32.UnProject(pos, c.View(), c.Project(), x, y, w, h)
	if err != nil {
		return c.position
	}
	return world
}

// ScreenToDirection returns the normalized world direction of the ray
// through a window position.
func (c *Camera) ScreenToDirection(pos mgl32.Vec2) mgl32.Vec3 {
	near := c.ScreenToWorld(mgl32.Vec3{pos.X(), pos.Y(), 0})
	far := c.ScreenToWorld(mgl32.Vec3{pos.X(), pos.Y(), 1})
	dir := far.Sub(near)
	if dir.Len() == 0 {
		return c.Forward()
	}
	return dir.Normalize()
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.ViewInverse().Col(2).Vec3().Mul(-1).Normalize()
}

func (c *Camera) Backward() mgl32.Vec3 {
	return c.Forward().Mul(-1)
}

func (c *Camera) Left() mgl32.Vec3 {
	return c.Right().Mul(-1)
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.ViewInverse().Col(0).Vec3().Normalize()
}

func (c *Camera) move(direction mgl32.Vec3, amount float32) {
	c.position = c.position.Add(direction.Mul(amount))
	c.viewDirty = true
}

func (c *Camera) MoveForward(amount float32)  { c.move(c.Forward(), amount) }
func (c *Camera) MoveBackward(amount float32) { c.move(c.Backward(), amount) }
func (c *Camera) MoveLeft(amount float32)     { c.move(c.Left(), amount) }
func (c *Camera) MoveRight(amount float32)    { c.move(c.Right(), amount) }
func (c *Camera) MoveUp(amount float32)       { c.move(mgl32.Vec3{0, 1, 0}, amount) }
func (c *Camera) MoveDown(amount float32)     { c.move(mgl32.Vec3{0, -1, 0}, amount) }

func (c *Camera) Yaw(amount float32) {
	c.eulerRotation[1] += amount
	c.viewDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.eulerRotation[0] += amount

	// Clamp to avoid Gimbal lock.
	limit := mgl32.DegToRad(89)
	c.eulerRotation[0] = math.Clamp(c.eulerRotation[0], -limit, limit)

	c.viewDirty = true
}
