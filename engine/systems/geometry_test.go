package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func TestGeometrySystemDefaults(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	gs := env.geometry

	cube := gs.Default()
	require.NotNil(t, cube)
	assert.Equal(t, metadata.DefaultMeshName, cube.Name)
	assert.Equal(t, uint32(36), cube.Draw.IndexCount)
	assert.Equal(t, graphics.IndexTypeUInt32, cube.IndexType)
	assert.InDelta(t, 0.5, cube.Bounds.Max.X(), 1e-6)

	quad := gs.ScreenQuad()
	require.NotNil(t, quad)
	assert.Equal(t, uint32(6), quad.Draw.IndexCount)

	got, err := gs.Acquire(metadata.DefaultMeshName)
	require.NoError(t, err)
	assert.Same(t, cube, got)
	got, err = gs.Acquire(metadata.ScreenQuadMeshName)
	require.NoError(t, err)
	assert.Same(t, quad, got)
}

func TestGeometrySystemAcquireRelease(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	gs := env.geometry

	cfg := GeneratePlaneConfig(4, 2, 2, 1, 1, 1, "floor", "brick")
	mesh, err := gs.AcquireFromConfig(cfg, true)
	require.NoError(t, err)
	assert.NotZero(t, mesh.ID)
	assert.Equal(t, uint32(8), mesh.Draw.VertexCount)
	assert.Equal(t, uint32(12), mesh.Draw.IndexCount)
	assert.NotNil(t, mesh.Vertices)
	assert.NotNil(t, mesh.Indices)

	again, err := gs.AcquireFromConfig(cfg, true)
	require.NoError(t, err)
	assert.Same(t, mesh, again)
	got, err := gs.Acquire("floor")
	require.NoError(t, err)
	assert.Same(t, mesh, got)

	gs.Release("floor")
	gs.Release("floor")
	assert.NotNil(t, mesh.Vertices)
	gs.Release("floor")
	assert.Nil(t, mesh.Vertices)
	_, err = gs.Acquire("floor")
	assert.ErrorIs(t, err, ErrGeometryNotFound)
}

func TestGeometrySystemErrors(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)

	_, err := env.geometry.AcquireFromConfig(metadata.GeometryConfig{Name: "empty"}, true)
	assert.ErrorIs(t, err, ErrEmptyGeometry)

	gs, err := NewGeometrySystem(GeometrySystemConfig{MaxGeometryCount: 1}, env.h.Device)
	require.NoError(t, err)
	defer gs.Shutdown()
	_, err = gs.AcquireFromConfig(GenerateCubeConfig(1, 1, 1, 1, 1, "a", ""), true)
	require.NoError(t, err)
	_, err = gs.AcquireFromConfig(GenerateCubeConfig(1, 1, 1, 1, 1, "b", ""), true)
	assert.ErrorIs(t, err, ErrTooManyGeometry)

	_, err = NewGeometrySystem(GeometrySystemConfig{}, env.h.Device)
	assert.Error(t, err)
}

func TestGeneratePlaneConfig(t *testing.T) {
	cfg := GeneratePlaneConfig(2, 2, 1, 1, 2, 2, "", "")
	assert.Equal(t, metadata.DefaultMeshName, cfg.Name)
	assert.Equal(t, metadata.DefaultMaterialName, cfg.MaterialName)
	require.Len(t, cfg.Vertices, 4)
	assert.Equal(t, []uint32{0, 3, 1, 0, 1, 2}, cfg.Indices)

	assert.Equal(t, mgl32.Vec3{-1, -1, 0}, cfg.Vertices[0].Position)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, cfg.Vertices[1].Position)
	assert.Equal(t, mgl32.Vec2{2, 2}, cfg.Vertices[1].Texcoord)
	for _, v := range cfg.Vertices {
		assert.InDelta(t, 1, v.Normal.Z(), 1e-5, "plane faces +Z")
	}

	bounds := cfg.Bounds()
	assert.Equal(t, mgl32.Vec3{-1, -1, 0}, bounds.Min)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, bounds.Max)

	// zero sizes fall back to one
	cfg = GeneratePlaneConfig(0, 0, 0, 0, 0, 0, "p", "m")
	assert.Len(t, cfg.Vertices, 4)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0}, cfg.Vertices[1].Position)
}
