package geometry

import "github.com/go-gl/mathgl/mgl64"

// FloatsPerTriangle is the stride of a flat world-space triangle buffer.
const FloatsPerTriangle = 9

// Triangle is three world-space points.
type Triangle struct {
	A, B, C mgl64.Vec3
}

// TriangleAt reads the i-th triangle out of a flat buffer of 9 floats per triangle.
func TriangleAt(buf []float64, i int) Triangle {
	o := i * FloatsPerTriangle
	return Triangle{
		A: mgl64.Vec3{buf[o], buf[o+1], buf[o+2]},
		B: mgl64.Vec3{buf[o+3], buf[o+4], buf[o+5]},
		C: mgl64.Vec3{buf[o+6], buf[o+7], buf[o+8]},
	}
}

// AppendTriangle writes t at the end of buf.
func AppendTriangle(buf []float64, t Triangle) []float64 {
	return append(buf,
		t.A[0], t.A[1], t.A[2],
		t.B[0], t.B[1], t.B[2],
		t.C[0], t.C[1], t.C[2],
	)
}

// Normal returns the unit face normal following the A, B, C winding. It is the zero
// vector for degenerate triangles.
func (t Triangle) Normal() mgl64.Vec3 {
	n := t.B.Sub(t.A).Cross(t.C.Sub(t.A))
	l := n.Len()
	if l < Epsilon {
		return mgl64.Vec3{}
	}
	return n.Mul(1 / l)
}

func (t Triangle) Bounds() AABB {
	return Bounds(t.A, t.B, t.C)
}

func (t Triangle) Centroid() mgl64.Vec3 {
	return t.A.Add(t.B).Add(t.C).Mul(1.0 / 3.0)
}
