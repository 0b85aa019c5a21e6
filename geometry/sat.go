package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABBToTriangle runs the separating-axis test between a box and a triangle: 3 box axes,
// the triangle normal and the 9 cross products of triangle edges with box axes. A vertex
// inside the box accepts immediately.
func AABBToTriangle(box AABB, t Triangle) bool {
	if box.ContainsPoint(t.A) || box.ContainsPoint(t.B) || box.ContainsPoint(t.C) {
		return true
	}

	center := box.Center()
	h := box.HalfExtents()

	v0 := t.A.Sub(center)
	v1 := t.B.Sub(center)
	v2 := t.C.Sub(center)

	edges := [3]mgl64.Vec3{v1.Sub(v0), v2.Sub(v1), v0.Sub(v2)}
	axes := [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	for _, e := range edges {
		for _, u := range axes {
			axis := u.Cross(e)
			if separatedOnAxis(axis, v0, v1, v2, h) {
				return false
			}
		}
	}

	for i := 0; i < 3; i++ {
		lo := math.Min(v0[i], math.Min(v1[i], v2[i]))
		hi := math.Max(v0[i], math.Max(v1[i], v2[i]))
		if lo > h[i] || hi < -h[i] {
			return false
		}
	}

	normal := edges[0].Cross(edges[1])
	return !separatedOnAxis(normal, v0, v1, v2, h)
}

// separatedOnAxis projects the triangle (relative to the box center) and the box of half
// extents h on axis. A zero axis never separates.
func separatedOnAxis(axis, v0, v1, v2, h mgl64.Vec3) bool {
	p0 := v0.Dot(axis)
	p1 := v1.Dot(axis)
	p2 := v2.Dot(axis)
	r := h[0]*math.Abs(axis[0]) + h[1]*math.Abs(axis[1]) + h[2]*math.Abs(axis[2])

	lo := math.Min(p0, math.Min(p1, p2))
	hi := math.Max(p0, math.Max(p1, p2))

	return lo > r || hi < -r
}
