package kernel

// Mesh is a triangle mesh of view-aligned slices suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z), texCoords
// has 3 floats per vertex (u,v,w) into the unit volume, indices has 3
// uint32s per triangle.
type Mesh struct {
	Vertices  []float32 `json:"vertices"`  // [x0,y0,z0, x1,y1,z1, ...]
	TexCoords []float32 `json:"texCoords"` // [u0,v0,w0, ...]
	Indices   []uint32  `json:"indices"`   // [i0,i1,i2, ...] triangles
	Slices    int       `json:"slices"`    // number of slice polygons
	PartName  string    `json:"partName"`  // which scene volume this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	c := *m
	c.Vertices = append([]float32(nil), m.Vertices...)
	c.TexCoords = append([]float32(nil), m.TexCoords...)
	c.Indices = append([]uint32(nil), m.Indices...)
	return &c
}
