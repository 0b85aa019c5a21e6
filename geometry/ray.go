// Package geometry holds the narrow-phase primitives: ray casts, closest points,
// sphere and capsule penetration against triangles, and separating-axis tests.
//
// Every function is pure and returns values. Degenerate configurations (parallel rays,
// zero-area triangles, singular barycentric systems) are reported through the boolean
// result and never as errors: they happen for most candidates on every tick.
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// Epsilon is the tolerance used for parallelism and degeneracy tests.
	Epsilon = 1e-9

	// ParallelEpsilon bounds |N·axis| under which a capsule axis is considered parallel to
	// a triangle plane.
	ParallelEpsilon = 1e-5
)

// Hit is a ray intersection.
type Hit struct {
	Distance float64
	Point    mgl64.Vec3
	// Normal faces the ray origin.
	Normal mgl64.Vec3
	// Triangle is the index of the triangle hit, when the hit comes from a mesh.
	Triangle int
}

// RayToTriangle intersects a ray with triangle abc (Möller–Trumbore). Hits behind or at
// the origin (t ≤ Epsilon) are excluded.
func RayToTriangle(origin, direction, a, b, c mgl64.Vec3) (Hit, bool) {
	edge1 := b.Sub(a)
	edge2 := c.Sub(a)
	pvec := direction.Cross(edge2)
	det := edge1.Dot(pvec)
	if math.Abs(det) < Epsilon {
		return Hit{}, false
	}
	invDet := 1 / det

	tvec := origin.Sub(a)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return Hit{}, false
	}

	qvec := tvec.Cross(edge1)
	v := direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return Hit{}, false
	}

	t := edge2.Dot(qvec) * invDet
	if t <= Epsilon {
		return Hit{}, false
	}

	point := origin.Add(direction.Mul(t))
	normal := edge1.Cross(edge2).Normalize()
	if normal.Dot(direction) > 0 {
		normal = normal.Mul(-1)
	}

	return Hit{
		Distance: point.Sub(origin).Len(),
		Point:    point,
		Normal:   normal,
	}, true
}

// RayToPlane intersects a ray with the plane through planePoint with the given normal.
// It returns the ray parameter and the point. With line set, negative parameters are
// accepted and the ray behaves as an infinite line.
func RayToPlane(origin, direction, planePoint, normal mgl64.Vec3, line bool) (float64, mgl64.Vec3, bool) {
	denom := normal.Dot(direction)
	if math.Abs(denom) < Epsilon {
		return 0, mgl64.Vec3{}, false
	}

	t := normal.Dot(planePoint.Sub(origin)) / denom
	if t < 0 && !line {
		return 0, mgl64.Vec3{}, false
	}

	return t, origin.Add(direction.Mul(t)), true
}

// RayToAABB clips a ray against a box with the slab method and returns the entry and exit
// parameters. tmin is negative when the origin is inside the box.
func RayToAABB(origin, direction mgl64.Vec3, box AABB) (tmin, tmax float64, ok bool) {
	tmin = math.Inf(-1)
	tmax = math.Inf(1)

	for i := 0; i < 3; i++ {
		if math.Abs(direction[i]) < Epsilon {
			if origin[i] < box.Min[i] || origin[i] > box.Max[i] {
				return 0, 0, false
			}
			continue
		}

		inv := 1 / direction[i]
		t1 := (box.Min[i] - origin[i]) * inv
		t2 := (box.Max[i] - origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, 0, false
		}
	}

	if tmax < 0 {
		return 0, 0, false
	}

	return tmin, tmax, true
}
