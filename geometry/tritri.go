package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Segment is an intersection segment. Start equals End for a single touching point.
type Segment struct {
	Start, End mgl64.Vec3
	// Coplanar is set when both triangles lie in the same plane; the segment then holds a
	// representative point of the overlap.
	Coplanar bool
}

// TriangleTriangle reports whether two triangles intersect, using the interval overlap
// method (Möller 1997): each triangle must straddle the plane of the other, and the two
// chords cut on the common line must overlap. Coplanar triangles fall back to a 2D test.
func TriangleTriangle(t1, t2 Triangle) (Segment, bool) {
	n1 := t1.Normal()
	n2 := t2.Normal()
	if n1 == (mgl64.Vec3{}) || n2 == (mgl64.Vec3{}) {
		return Segment{}, false
	}

	d1 := planeDistances(t1, n2, t2.A)
	if sameSide(d1) {
		return Segment{}, false
	}
	d2 := planeDistances(t2, n1, t1.A)
	if sameSide(d2) {
		return Segment{}, false
	}

	if d1 == ([3]float64{}) {
		return coplanarTriangles(t1, t2, n1)
	}

	a0, a1 := planeChord(t1, d1)
	b0, b1 := planeChord(t2, d2)

	dir := n1.Cross(n2)
	sa0, sa1 := dir.Dot(a0), dir.Dot(a1)
	if sa0 > sa1 {
		sa0, sa1 = sa1, sa0
		a0, a1 = a1, a0
	}
	sb0, sb1 := dir.Dot(b0), dir.Dot(b1)
	if sb0 > sb1 {
		sb0, sb1 = sb1, sb0
		b0, b1 = b1, b0
	}

	if sa1 < sb0-Epsilon || sb1 < sa0-Epsilon {
		return Segment{}, false
	}

	seg := Segment{Start: a0, End: a1}
	if sb0 > sa0 {
		seg.Start = b0
	}
	if sb1 < sa1 {
		seg.End = b1
	}

	return seg, true
}

// planeDistances returns the signed distances of t's vertices to the plane (n, p),
// snapping values within Epsilon to zero.
func planeDistances(t Triangle, n, p mgl64.Vec3) [3]float64 {
	d := [3]float64{
		t.A.Sub(p).Dot(n),
		t.B.Sub(p).Dot(n),
		t.C.Sub(p).Dot(n),
	}
	for i := range d {
		if math.Abs(d[i]) < Epsilon {
			d[i] = 0
		}
	}
	return d
}

func sameSide(d [3]float64) bool {
	return (d[0] > 0 && d[1] > 0 && d[2] > 0) || (d[0] < 0 && d[1] < 0 && d[2] < 0)
}

// planeChord returns the end points of the chord cut in t by a plane, given the vertex
// distances to that plane. The triangle must straddle or touch the plane.
func planeChord(t Triangle, d [3]float64) (mgl64.Vec3, mgl64.Vec3) {
	v := [3]mgl64.Vec3{t.A, t.B, t.C}
	var points [2]mgl64.Vec3
	n := 0

	for i := 0; i < 3 && n < 2; i++ {
		if d[i] == 0 {
			points[n] = v[i]
			n++
		}
	}
	for i := 0; i < 3 && n < 2; i++ {
		j := (i + 1) % 3
		if d[i]*d[j] < 0 {
			s := d[i] / (d[i] - d[j])
			points[n] = v[i].Add(v[j].Sub(v[i]).Mul(s))
			n++
		}
	}

	if n == 1 {
		points[1] = points[0]
	}
	return points[0], points[1]
}

// coplanarTriangles projects both triangles on the plane most aligned with n and looks for
// edge crossings or containment.
func coplanarTriangles(t1, t2 Triangle, n mgl64.Vec3) (Segment, bool) {
	i, j := projectionAxes(n)
	p := [3]mgl64.Vec3{t1.A, t1.B, t1.C}
	q := [3]mgl64.Vec3{t2.A, t2.B, t2.C}

	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			if s, ok := segments2D(p[a], p[(a+1)%3], q[b], q[(b+1)%3], i, j); ok {
				return Segment{Start: s, End: s, Coplanar: true}, true
			}
		}
	}

	if pointInTriangle2D(t1.A, q, i, j) {
		return Segment{Start: t1.A, End: t1.A, Coplanar: true}, true
	}
	if pointInTriangle2D(t2.A, p, i, j) {
		return Segment{Start: t2.A, End: t2.A, Coplanar: true}, true
	}

	return Segment{}, false
}

func projectionAxes(n mgl64.Vec3) (int, int) {
	ax, ay, az := math.Abs(n[0]), math.Abs(n[1]), math.Abs(n[2])
	switch {
	case ax >= ay && ax >= az:
		return 1, 2
	case ay >= az:
		return 0, 2
	default:
		return 0, 1
	}
}

func cross2D(ox, oy, ax, ay, bx, by float64) float64 {
	return (ax-ox)*(by-oy) - (ay-oy)*(bx-ox)
}

// segments2D intersects segments p0p1 and q0q1 projected on axes i, j and returns the
// crossing point in 3D.
func segments2D(p0, p1, q0, q1 mgl64.Vec3, i, j int) (mgl64.Vec3, bool) {
	rx, ry := p1[i]-p0[i], p1[j]-p0[j]
	sx, sy := q1[i]-q0[i], q1[j]-q0[j]
	denom := rx*sy - ry*sx
	if math.Abs(denom) < Epsilon {
		return mgl64.Vec3{}, false
	}

	qpx, qpy := q0[i]-p0[i], q0[j]-p0[j]
	t := (qpx*sy - qpy*sx) / denom
	u := (qpx*ry - qpy*rx) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return mgl64.Vec3{}, false
	}

	return p0.Add(p1.Sub(p0).Mul(t)), true
}

func pointInTriangle2D(p mgl64.Vec3, tri [3]mgl64.Vec3, i, j int) bool {
	c0 := cross2D(tri[0][i], tri[0][j], tri[1][i], tri[1][j], p[i], p[j])
	c1 := cross2D(tri[1][i], tri[1][j], tri[2][i], tri[2][j], p[i], p[j])
	c2 := cross2D(tri[2][i], tri[2][j], tri[0][i], tri[0][j], p[i], p[j])

	return (c0 >= 0 && c1 >= 0 && c2 >= 0) || (c0 <= 0 && c1 <= 0 && c2 <= 0)
}
