package metadata

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/math"
)

/** @brief What a render object draws. The set is closed. */
type RenderObjectKind uint8

const (
	RenderObjectMesh RenderObjectKind = iota
	RenderObjectLight
)

func (k RenderObjectKind) String() string {
	if k == RenderObjectLight {
		return "light"
	}
	return "mesh"
}

/** @brief The camera a render object is about to be drawn by. */
type RenderCamera interface {
	Order() CameraOrder
	Position() mgl32.Vec3
	View() mgl32.Mat4
	Project() mgl32.Mat4
	ViewProject() mgl32.Mat4
}

/** @brief Receives a callback once per camera before an object is queued. */
type RenderListener interface {
	OnWillRenderObject(camera RenderCamera)
}

type LightType uint8

const (
	LightDirectional LightType = iota
	LightPoint
	LightSpot
)

type Light struct {
	Type      LightType
	Colour    mgl32.Vec4
	Intensity float32
	/** @brief Attenuation distance for point and spot lights. */
	Range float32
	/** @brief Cone angle in radians for spot lights. */
	Angle float32
}

/**
 * @brief Anything the render data manager can queue. Exactly one of Mesh and
 * Light is used, selected by Kind.
 */
type RenderObject struct {
	Kind     RenderObjectKind
	Name     string
	Mesh     *Mesh
	Light    *Light
	Material *Material
	/** @brief Whether shadow cameras draw the object. */
	CastShadow bool
	/** @brief Bounds in world space, kept up to date by the scene. */
	Bounds math.AABB
	/** @brief The world matrix, kept up to date by the scene. */
	World    mgl32.Mat4
	Listener RenderListener
}

// NewMeshObject creates a shadow casting mesh object.
func NewMeshObject(name string, mesh *Mesh, material *Material) *RenderObject {
	o := &RenderObject{
		Kind:       RenderObjectMesh,
		Name:       name,
		Mesh:       mesh,
		Material:   material,
		CastShadow: true,
		World:      mgl32.Ident4(),
	}
	if mesh != nil {
		o.Bounds = mesh.Bounds
	}
	return o
}

// NewLightObject creates a light object. Lights do not cast shadows themselves.
func NewLightObject(name string, light *Light, material *Material) *RenderObject {
	return &RenderObject{
		Kind:     RenderObjectLight,
		Name:     name,
		Light:    light,
		Material: material,
		World:    mgl32.Ident4(),
	}
}

// LocalBounds is the bounds the object has before the world transform.
func (o *RenderObject) LocalBounds() math.AABB {
	switch o.Kind {
	case RenderObjectMesh:
		if o.Mesh != nil {
			return o.Mesh.Bounds
		}
	case RenderObjectLight:
		if o.Light != nil && o.Light.Type != LightDirectional {
			r := o.Light.Range
			return math.AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{r, r, r})
		}
		// directional lights affect everything
		return math.NewAABB(mgl32.Vec3{-1e30, -1e30, -1e30}, mgl32.Vec3{1e30, 1e30, 1e30})
	}
	return math.EmptyAABB()
}
