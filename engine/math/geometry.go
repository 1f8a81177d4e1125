package math

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

/** @brief Represents a single vertex in 3D space. */
type Vertex3D struct {
	/** @brief The position of the vertex */
	Position mgl32.Vec3
	/** @brief The normal of the vertex. */
	Normal mgl32.Vec3
	/** @brief The texture coordinate of the vertex. */
	Texcoord mgl32.Vec2
	/** @brief The colour of the vertex. */
	Colour mgl32.Vec4
	/** @brief The tangent of the vertex, w holds the handedness. */
	Tangent mgl32.Vec4
}

// Vertex3DSize is the byte stride of Vertex3D in a vertex buffer.
const Vertex3DSize = uint32(unsafe.Sizeof(Vertex3D{}))

// VertexBytes reinterprets the vertex slice as raw bytes for upload.
func VertexBytes(vertices []Vertex3D) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(Vertex3DSize))
}

// IndexBytes reinterprets the index slice as raw bytes for upload.
func IndexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}

func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		normal := edge1.Cross(edge2).Normalize()
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

func GeometryGenerateTangents(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		deltaU1 := vertices[i1].Texcoord.X() - vertices[i0].Texcoord.X()
		deltaV1 := vertices[i1].Texcoord.Y() - vertices[i0].Texcoord.Y()
		deltaU2 := vertices[i2].Texcoord.X() - vertices[i0].Texcoord.X()
		deltaV2 := vertices[i2].Texcoord.Y() - vertices[i0].Texcoord.Y()

		dividend := deltaU1*deltaV2 - deltaU2*deltaV1
		if dividend == 0 {
			continue
		}
		fc := 1.0 / dividend

		tangent := mgl32.Vec3{
			fc * (deltaV2*edge1.X() - deltaV1*edge2.X()),
			fc * (deltaV2*edge1.Y() - deltaV1*edge2.Y()),
			fc * (deltaV2*edge1.Z() - deltaV1*edge2.Z()),
		}.Normalize()

		var handedness float32 = 1.0
		if deltaV1*deltaU2-deltaV2*deltaU1 < 0.0 {
			handedness = -1.0
		}

		t4 := tangent.Vec4(handedness)
		vertices[i0].Tangent = t4
		vertices[i1].Tangent = t4
		vertices[i2].Tangent = t4
	}
}

// GeometryBounds returns the box enclosing all vertex positions.
func GeometryBounds(vertices []Vertex3D) AABB {
	b := EmptyAABB()
	for i := range vertices {
		b.Encapsulate(vertices[i].Position)
	}
	return b
}

// GenerateCube builds a cube centered at the origin with per-face normals,
// uvs tiled tileX/tileY times and tangents.
func GenerateCube(width, height, depth, tileX, tileY float32) ([]Vertex3D, []uint32) {
	hw, hh, hd := width*0.5, height*0.5, depth*0.5
	white := mgl32.Vec4{1, 1, 1, 1}

	faces := [6][4]mgl32.Vec3{
		// front
		{{-hw, -hh, hd}, {hw, -hh, hd}, {hw, hh, hd}, {-hw, hh, hd}},
		// back
		{{hw, -hh, -hd}, {-hw, -hh, -hd}, {-hw, hh, -hd}, {hw, hh, -hd}},
		// left
		{{-hw, -hh, -hd}, {-hw, -hh, hd}, {-hw, hh, hd}, {-hw, hh, -hd}},
		// right
		{{hw, -hh, hd}, {hw, -hh, -hd}, {hw, hh, -hd}, {hw, hh, hd}},
		// bottom
		{{-hw, -hh, -hd}, {hw, -hh, -hd}, {hw, -hh, hd}, {-hw, -hh, hd}},
		// top
		{{-hw, hh, hd}, {hw, hh, hd}, {hw, hh, -hd}, {-hw, hh, -hd}},
	}
	uvs := [4]mgl32.Vec2{{0, 0}, {tileX, 0}, {tileX, tileY}, {0, tileY}}

	vertices := make([]Vertex3D, 0, 24)
	indices := make([]uint32, 0, 36)
	for f := range faces {
		base := uint32(len(vertices))
		for c := 0; c < 4; c++ {
			vertices = append(vertices, Vertex3D{Position: faces[f][c], Texcoord: uvs[c], Colour: white})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	GeometryGenerateNormals(vertices, indices)
	GeometryGenerateTangents(vertices, indices)
	return vertices, indices
}

// GenerateScreenQuad builds a two triangle quad covering clip space.
func GenerateScreenQuad() ([]Vertex3D, []uint32) {
	white := mgl32.Vec4{1, 1, 1, 1}
	vertices := []Vertex3D{
		{Position: mgl32.Vec3{-1, -1, 0}, Texcoord: mgl32.Vec2{0, 0}, Colour: white},
		{Position: mgl32.Vec3{1, -1, 0}, Texcoord: mgl32.Vec2{1, 0}, Colour: white},
		{Position: mgl32.Vec3{1, 1, 0}, Texcoord: mgl32.Vec2{1, 1}, Colour: white},
		{Position: mgl32.Vec3{-1, 1, 0}, Texcoord: mgl32.Vec2{0, 1}, Colour: white},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	GeometryGenerateNormals(vertices, indices)
	return vertices, indices
}
