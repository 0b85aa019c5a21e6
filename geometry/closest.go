package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ClosestPointOnSegment returns the point of segment ab closest to p.
func ClosestPointOnSegment(p, a, b mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < Epsilon {
		return a
	}
	t := mgl64.Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return a.Add(ab.Mul(t))
}

// ClosestPointsSegmentSegment returns the closest pair of points between segments p1q1
// and p2q2 (Ericson, Real-Time Collision Detection 5.1.9).
func ClosestPointsSegmentSegment(p1, q1, p2, q2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a <= Epsilon && e <= Epsilon:
		return p1, p2
	case a <= Epsilon:
		t = mgl64.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= Epsilon {
			s = mgl64.Clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom != 0 {
				s = mgl64.Clamp((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = mgl64.Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = mgl64.Clamp((b-c)/a, 0, 1)
			}
		}
	}

	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}

// ClosestPointOnTriangle projects p onto the plane of abc and returns the projection when
// it falls inside the triangle. It returns false outside the triangle or when the
// barycentric system is singular.
func ClosestPointOnTriangle(p, a, b, c mgl64.Vec3) (mgl64.Vec3, bool) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	n := v0.Cross(v1)
	nn := n.Dot(n)
	if nn < Epsilon*Epsilon {
		return mgl64.Vec3{}, false
	}

	q := p.Sub(n.Mul(p.Sub(a).Dot(n) / nn))

	v2 := q.Sub(a)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if math.Abs(denom) < Epsilon {
		return mgl64.Vec3{}, false
	}

	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	u := 1 - v - w
	if u < 0 || v < 0 || w < 0 {
		return mgl64.Vec3{}, false
	}

	return q, true
}

// nearestEdgePoint returns the closest point to p on the edges ab, bc and ca, in that
// order; the first edge wins ties.
func nearestEdgePoint(p, a, b, c mgl64.Vec3) (mgl64.Vec3, float64) {
	best := ClosestPointOnSegment(p, a, b)
	bestDist := p.Sub(best).LenSqr()

	if q := ClosestPointOnSegment(p, b, c); p.Sub(q).LenSqr() < bestDist {
		best, bestDist = q, p.Sub(q).LenSqr()
	}
	if q := ClosestPointOnSegment(p, c, a); p.Sub(q).LenSqr() < bestDist {
		best, bestDist = q, p.Sub(q).LenSqr()
	}

	return best, bestDist
}

// ClosestPointToTriangle returns the point of triangle abc closest to p: the plane
// projection when it lands inside, the nearest edge point otherwise.
func ClosestPointToTriangle(p, a, b, c mgl64.Vec3) mgl64.Vec3 {
	if q, ok := ClosestPointOnTriangle(p, a, b, c); ok {
		return q
	}
	q, _ := nearestEdgePoint(p, a, b, c)
	return q
}
