package math

// FaceNormal returns the unit normal of the counter-clockwise triangle a, b, c.
// Degenerate triangles yield the zero vector.
func FaceNormal(a, b, c Vec3) Vec3 {
	edge1 := b.Sub(a)
	edge2 := c.Sub(a)
	return edge1.Cross(edge2).Normalized()
}

// GeometryDeduplicateVertices welds bit-identical vertices and rewrites the indices to
// point into the returned unique vertex slice. indices is modified in place.
func GeometryDeduplicateVertices(vertices []Vertex3D, indices []uint32) []Vertex3D {
	unique := make([]Vertex3D, 0, len(vertices))
	seen := make(map[Vertex3D]uint32, len(vertices))
	remap := make([]uint32, len(vertices))

	for v, vert := range vertices {
		if idx, ok := seen[vert]; ok {
			remap[v] = idx
			continue
		}
		idx := uint32(len(unique))
		seen[vert] = idx
		remap[v] = idx
		unique = append(unique, vert)
	}
	for i, idx := range indices {
		indices[i] = remap[idx]
	}
	return unique
}

// ExtentsFromVertices returns the axis aligned bounds of the vertices. The zero
// Extents3D is returned for an empty slice.
func ExtentsFromVertices(vertices []Vertex3D) Extents3D {
	if len(vertices) == 0 {
		return Extents3D{}
	}
	ext := Extents3D{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		ext.Min = ext.Min.Min(v.Position)
		ext.Max = ext.Max.Max(v.Position)
	}
	return ext
}

func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}

func (e Extents3D) Size() Vec3 {
	return e.Max.Sub(e.Min)
}

// Transform returns the bounds of the eight transformed corners.
func (e Extents3D) Transform(mt Mat4) Extents3D {
	corners := [8]Vec3{
		{e.Min.X, e.Min.Y, e.Min.Z}, {e.Max.X, e.Min.Y, e.Min.Z},
		{e.Min.X, e.Max.Y, e.Min.Z}, {e.Max.X, e.Max.Y, e.Min.Z},
		{e.Min.X, e.Min.Y, e.Max.Z}, {e.Max.X, e.Min.Y, e.Max.Z},
		{e.Min.X, e.Max.Y, e.Max.Z}, {e.Max.X, e.Max.Y, e.Max.Z},
	}
	first := corners[0].Transform(mt)
	out := Extents3D{Min: first, Max: first}
	for _, c := range corners[1:] {
		p := c.Transform(mt)
		out.Min = out.Min.Min(p)
		out.Max = out.Max.Max(p)
	}
	return out
}
