package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFramebuffer struct {
	graphics.RefCount
	destroyed bool
}

func (f *testFramebuffer) Desc() graphics.FramebufferDesc { return graphics.FramebufferDesc{} }

func newTestFramebuffer() *testFramebuffer {
	fb := &testFramebuffer{}
	fb.InitRefs(func() { fb.destroyed = true })
	return fb
}

// assertVec3 compares component-wise against an absolute delta, so values
// that should be exactly zero may carry float noise.
func assertVec3(t *testing.T, expected, actual mgl32.Vec3, delta float64) {
	t.Helper()
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], delta, "component %d of %v", i, actual)
	}
}

func assertMat4(t *testing.T, expected, actual mgl32.Mat4, delta float64) {
	t.Helper()
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], delta, "element %d", i)
	}
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera("main")
	assert.Equal(t, "main", c.Name())
	assert.Equal(t, metadata.CameraOrderMain, c.Order())
	assert.Equal(t, CameraTypePerspective, c.Type())
	assertMat4(t, mgl32.Ident4(), c.View(), 1e-6)
	assert.Nil(t, c.Scene())
	assert.Nil(t, c.Framebuffer())
}

func TestCameraDepthIsClipW(t *testing.T) {
	c := NewCamera("main")
	c.SetPerspective(90, 1, 0.1, 100)

	clip := c.ViewProject().Mul4x1(mgl32.Vec4{0, 0, -5, 1})
	assert.InDelta(t, 5, clip.W(), 1e-4)

	c.SetPosition(mgl32.Vec3{0, 0, 5})
	clip = c.ViewProject().Mul4x1(mgl32.Vec4{0, 0, -5, 1})
	assert.InDelta(t, 10, clip.W(), 1e-4)
}

func TestCameraInverses(t *testing.T) {
	c := NewCamera("main")
	c.SetPerspective(60, 16.0/9.0, 0.5, 50)
	c.LookAt(mgl32.Vec3{3, 2, 7}, mgl32.Vec3{0, 0, 0})

	assertMat4(t, mgl32.Ident4(), c.View().Mul4(c.ViewInverse()), 1e-4)
	assertMat4(t, mgl32.Ident4(), c.Project().Mul4(c.ProjectInverse()), 1e-4)
	assertMat4(t, mgl32.Ident4(), c.ViewProject().Mul4(c.ViewProjectInverse()), 1e-3)
}

func TestCameraLookAtAndMovement(t *testing.T) {
	c := NewCamera("main")
	c.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 0, 0})
	assertVec3(t, mgl32.Vec3{1, 0, 0}, c.Forward(), 1e-5)
	assertVec3(t, mgl32.Vec3{0, 0, 1}, c.Right(), 1e-5)

	c.MoveForward(2)
	assertVec3(t, mgl32.Vec3{2, 0, 0}, c.Position(), 1e-5)
	c.MoveUp(1)
	assertVec3(t, mgl32.Vec3{2, 1, 0}, c.Position(), 1e-5)

	c.Pitch(10)
	assert.InDelta(t, mgl32.DegToRad(89), c.EulerRotation().X(), 1e-6)
}

func TestCameraScreenMapping(t *testing.T) {
	c := NewCamera("main")
	c.SetPerspective(90, 1, 0.1, 100)
	c.Resize(200, 200)
	assert.Equal(t, float32(1), c.Ratio())

	screen := c.WorldToScreen(mgl32.Vec3{0, 0, -5})
	assert.InDelta(t, 100, screen.X(), 1e-3)
	assert.InDelta(t, 100, screen.Y(), 1e-3)

	world := c.ScreenToWorld(screen)
	assertVec3(t, mgl32.Vec3{0, 0, -5}, world, 1e-2)

	dir := c.ScreenToDirection(mgl32.Vec2{100, 100})
	assertVec3(t, mgl32.Vec3{0, 0, -1}, dir, 1e-4)
}

func TestCameraOrtho(t *testing.T) {
	c := NewCamera("shadow")
	c.SetOrder(metadata.CameraOrderShadow)
	c.SetOrtho(-10, 10, -10, 10)
	assert.Equal(t, CameraTypeOrtho, c.Type())

	clip := c.ViewProject().Mul4x1(mgl32.Vec4{10, 10, -0.1, 1})
	assert.InDelta(t, 1, clip.X(), 1e-5)
	assert.InDelta(t, 1, clip.Y(), 1e-5)
	assert.InDelta(t, 1, clip.W(), 1e-6)
}

func TestCameraFramebufferReference(t *testing.T) {
	fb := newTestFramebuffer()
	c := NewCamera("offscreen")
	c.SetFramebuffer(fb)
	require.Equal(t, int32(2), fb.Refs())

	fb.Release()
	assert.False(t, fb.destroyed)

	c.Reset()
	assert.True(t, fb.destroyed)
	assert.Nil(t, c.Framebuffer())
	assert.Equal(t, "offscreen", c.Name())
}
