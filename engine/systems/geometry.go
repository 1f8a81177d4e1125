package systems

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var (
	ErrGeometryNotFound = errors.New("geometry not found")
	ErrTooManyGeometry  = errors.New("geometry limit reached")
	ErrEmptyGeometry    = errors.New("geometry has no vertices")
)

/** @brief The geometry system configuration. */
type GeometrySystemConfig struct {
	/** @brief The maximum number of meshes that can be registered at once. */
	MaxGeometryCount uint32
}

type geometryEntry struct {
	mesh        *metadata.Mesh
	refs        uint32
	autoRelease bool
}

/**
 * @brief Uploads geometry configs as meshes and hands them out by name. Owns
 * the default cube and the full screen quad.
 */
type GeometrySystem struct {
	config GeometrySystemConfig
	device graphics.Device
	ids    *core.IDAllocator
	meshes map[string]*geometryEntry

	defaultMesh *metadata.Mesh
	screenQuad  *metadata.Mesh

	log *log.Logger
}

func NewGeometrySystem(config GeometrySystemConfig, device graphics.Device) (*GeometrySystem, error) {
	if config.MaxGeometryCount == 0 {
		err := fmt.Errorf("func NewGeometrySystem - config.MaxGeometryCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	gs := &GeometrySystem{
		config: config,
		device: device,
		ids:    core.NewIDAllocator(int(config.MaxGeometryCount)),
		meshes: make(map[string]*geometryEntry),
		log:    core.Logger().With("system", "geometry"),
	}
	if err := gs.createDefaultGeometries(); err != nil {
		gs.Shutdown()
		return nil, err
	}
	return gs, nil
}

func (gs *GeometrySystem) createDefaultGeometries() error {
	cube := GenerateCubeConfig(1, 1, 1, 1, 1, metadata.DefaultMeshName, metadata.DefaultMaterialName)
	var err error
	if gs.defaultMesh, err = gs.upload(cube); err != nil {
		return fmt.Errorf("default mesh: %w", err)
	}
	vertices, indices := math.GenerateScreenQuad()
	quad := metadata.GeometryConfig{Name: metadata.ScreenQuadMeshName, Vertices: vertices, Indices: indices}
	if gs.screenQuad, err = gs.upload(quad); err != nil {
		return fmt.Errorf("screen quad: %w", err)
	}
	return nil
}

// Default is the unit cube.
func (gs *GeometrySystem) Default() *metadata.Mesh { return gs.defaultMesh }

// ScreenQuad covers clip space, for lights and post-process passes.
func (gs *GeometrySystem) ScreenQuad() *metadata.Mesh { return gs.screenQuad }

// AcquireFromConfig uploads config as a mesh named config.Name, or takes a
// reference on the mesh already registered under that name.
func (gs *GeometrySystem) AcquireFromConfig(config metadata.GeometryConfig, autoRelease bool) (*metadata.Mesh, error) {
	if e, ok := gs.meshes[config.Name]; ok {
		e.refs++
		return e.mesh, nil
	}
	if len(gs.meshes) >= int(gs.config.MaxGeometryCount) {
		return nil, fmt.Errorf("%w: %d meshes", ErrTooManyGeometry, gs.config.MaxGeometryCount)
	}
	mesh, err := gs.upload(config)
	if err != nil {
		return nil, err
	}
	e := &geometryEntry{mesh: mesh, refs: 1, autoRelease: autoRelease}
	mesh.ID = gs.ids.Acquire(e)
	gs.meshes[config.Name] = e
	gs.log.Debug("created", "mesh", config.Name, "vertices", len(config.Vertices), "indices", len(config.Indices))
	return mesh, nil
}

// Acquire takes a reference on a registered mesh.
func (gs *GeometrySystem) Acquire(name string) (*metadata.Mesh, error) {
	switch name {
	case metadata.DefaultMeshName:
		return gs.defaultMesh, nil
	case metadata.ScreenQuadMeshName:
		return gs.screenQuad, nil
	}
	e, ok := gs.meshes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGeometryNotFound, name)
	}
	e.refs++
	return e.mesh, nil
}

// Release drops a reference. Auto release meshes are destroyed with their
// last reference.
func (gs *GeometrySystem) Release(name string) {
	e, ok := gs.meshes[name]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
	if e.refs == 0 && e.autoRelease {
		gs.destroy(name, e)
	}
}

func (gs *GeometrySystem) destroy(name string, e *geometryEntry) {
	e.mesh.Release()
	delete(gs.meshes, name)
	if err := gs.ids.Release(e.mesh.ID); err != nil {
		gs.log.Warn("release id", "mesh", name, "err", err)
	}
}

func (gs *GeometrySystem) upload(config metadata.GeometryConfig) (*metadata.Mesh, error) {
	if len(config.Vertices) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyGeometry, config.Name)
	}
	vertexBytes := math.VertexBytes(config.Vertices)
	vertices, err := gs.device.CreateData(graphics.DataDesc{
		Type:   graphics.DataTypeVertex,
		Size:   uint32(len(vertexBytes)),
		Stream: vertexBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("mesh %s vertices: %w", config.Name, err)
	}
	mesh := &metadata.Mesh{
		Name:     config.Name,
		Vertices: vertices,
		Bounds:   config.Bounds(),
		Draw:     graphics.Indirect{VertexCount: uint32(len(config.Vertices)), InstanceCount: 1},
	}
	if len(config.Indices) > 0 {
		indexBytes := math.IndexBytes(config.Indices)
		indices, err := gs.device.CreateData(graphics.DataDesc{
			Type:   graphics.DataTypeIndex,
			Size:   uint32(len(indexBytes)),
			Stream: indexBytes,
		})
		if err != nil {
			mesh.Release()
			return nil, fmt.Errorf("mesh %s indices: %w", config.Name, err)
		}
		mesh.Indices = indices
		mesh.IndexType = graphics.IndexTypeUInt32
		mesh.Draw.IndexCount = uint32(len(config.Indices))
	}
	return mesh, nil
}

func (gs *GeometrySystem) Shutdown() error {
	for name, e := range gs.meshes {
		gs.destroy(name, e)
	}
	if gs.defaultMesh != nil {
		gs.defaultMesh.Release()
		gs.defaultMesh = nil
	}
	if gs.screenQuad != nil {
		gs.screenQuad.Release()
		gs.screenQuad = nil
	}
	return nil
}

/**
 * @brief Generates configuration for plane geometries given the provided
 * parameters. The plane lies in XY and faces +Z.
 *
 * @param width The overall width of the plane. Must be non-zero.
 * @param height The overall height of the plane. Must be non-zero.
 * @param xSegmentCount The number of segments along the x-axis in the plane. Must be non-zero.
 * @param ySegmentCount The number of segments along the y-axis in the plane. Must be non-zero.
 * @param tileX The number of times the texture should tile across the plane on the x-axis. Must be non-zero.
 * @param tileY The number of times the texture should tile across the plane on the y-axis. Must be non-zero.
 * @param name The name of the generated geometry.
 * @param materialName The name of the material to be used.
 * @return A geometry configuration which can then be fed into AcquireFromConfig.
 */
func GeneratePlaneConfig(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32, name, materialName string) metadata.GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if ySegmentCount < 1 {
		core.LogWarn("ySegmentCount must be a positive number. Defaulting to one.")
		ySegmentCount = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	config := metadata.GeometryConfig{
		Name:         name,
		MaterialName: materialName,
		// 4 verts and 6 indices per segment
		Vertices: make([]math.Vertex3D, xSegmentCount*ySegmentCount*4),
		Indices:  make([]uint32, xSegmentCount*ySegmentCount*6),
	}
	if config.Name == "" {
		config.Name = metadata.DefaultMeshName
	}
	if config.MaterialName == "" {
		config.MaterialName = metadata.DefaultMaterialName
	}

	segWidth := width / float32(xSegmentCount)
	segHeight := height / float32(ySegmentCount)
	halfWidth := width * 0.5
	halfHeight := height * 0.5
	white := mgl32.Vec4{1, 1, 1, 1}
	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := float32(x)*segWidth - halfWidth
			minY := float32(y)*segHeight - halfHeight
			maxX := minX + segWidth
			maxY := minY + segHeight
			minUVX := float32(x) / float32(xSegmentCount) * tileX
			minUVY := float32(y) / float32(ySegmentCount) * tileY
			maxUVX := float32(x+1) / float32(xSegmentCount) * tileX
			maxUVY := float32(y+1) / float32(ySegmentCount) * tileY

			vOffset := (y*xSegmentCount + x) * 4
			v := config.Vertices[vOffset : vOffset+4]
			v[0] = math.Vertex3D{Position: mgl32.Vec3{minX, minY, 0}, Texcoord: mgl32.Vec2{minUVX, minUVY}, Colour: white}
			v[1] = math.Vertex3D{Position: mgl32.Vec3{maxX, maxY, 0}, Texcoord: mgl32.Vec2{maxUVX, maxUVY}, Colour: white}
			v[2] = math.Vertex3D{Position: mgl32.Vec3{minX, maxY, 0}, Texcoord: mgl32.Vec2{minUVX, maxUVY}, Colour: white}
			v[3] = math.Vertex3D{Position: mgl32.Vec3{maxX, minY, 0}, Texcoord: mgl32.Vec2{maxUVX, minUVY}, Colour: white}

			iOffset := (y*xSegmentCount + x) * 6
			copy(config.Indices[iOffset:], []uint32{vOffset, vOffset + 3, vOffset + 1, vOffset, vOffset + 1, vOffset + 2})
		}
	}
	math.GeometryGenerateNormals(config.Vertices, config.Indices)
	math.GeometryGenerateTangents(config.Vertices, config.Indices)
	return config
}

// GenerateCubeConfig builds a cube centered at the origin.
func GenerateCubeConfig(width, height, depth, tileX, tileY float32, name, materialName string) metadata.GeometryConfig {
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}
	if depth == 0 {
		depth = 1
	}
	if tileX == 0 {
		tileX = 1
	}
	if tileY == 0 {
		tileY = 1
	}
	vertices, indices := math.GenerateCube(width, height, depth, tileX, tileY)
	config := metadata.GeometryConfig{Name: name, MaterialName: materialName, Vertices: vertices, Indices: indices}
	if config.Name == "" {
		config.Name = metadata.DefaultMeshName
	}
	if config.MaterialName == "" {
		config.MaterialName = metadata.DefaultMaterialName
	}
	return config
}
