package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Contact is a penetration result against a triangle.
type Contact struct {
	// Normal points from the triangle toward the shape.
	Normal mgl64.Vec3
	// Depth is positive when penetrating.
	Depth float64
	// Point lies on the triangle.
	Point mgl64.Vec3
}

// SphereToTriangle tests a sphere against triangle abc. A single-sided test ignores spheres
// whose center lies behind the face (following the a, b, c winding).
func SphereToTriangle(center mgl64.Vec3, radius float64, a, b, c mgl64.Vec3, doubleSided bool) (Contact, bool) {
	face := b.Sub(a).Cross(c.Sub(a))
	l := face.Len()
	if l < Epsilon {
		return Contact{}, false
	}
	face = face.Mul(1 / l)

	dist := center.Sub(a).Dot(face)
	if dist < 0 && !doubleSided {
		return Contact{}, false
	}
	if math.Abs(dist) > radius {
		return Contact{}, false
	}

	normal := face
	planeDist := dist
	if dist < 0 {
		normal = face.Mul(-1)
		planeDist = -dist
	}

	projected := center.Sub(face.Mul(dist))
	inside := b.Sub(a).Cross(projected.Sub(a)).Dot(face) >= 0 &&
		c.Sub(b).Cross(projected.Sub(b)).Dot(face) >= 0 &&
		a.Sub(c).Cross(projected.Sub(c)).Dot(face) >= 0

	if inside {
		return Contact{
			Normal: normal,
			Depth:  radius - planeDist,
			Point:  projected,
		}, true
	}

	closest, distSq := nearestEdgePoint(center, a, b, c)
	if distSq > radius*radius {
		return Contact{}, false
	}

	d := math.Sqrt(distSq)
	if d > Epsilon {
		normal = center.Sub(closest).Mul(1 / d)
	}

	return Contact{
		Normal: normal,
		Depth:  radius - d,
		Point:  closest,
	}, true
}

// CapsuleToTriangle tests the capsule of segment [capA, capB] and radius against triangle
// abc. There is no closed form, so the test reduces to a sphere: the capsule axis meets the
// triangle plane (capA when the axis is parallel to it), that point is moved onto the
// triangle surface, then back onto the segment to find the sphere center closest to the
// triangle.
func CapsuleToTriangle(capA, capB mgl64.Vec3, radius float64, a, b, c mgl64.Vec3, doubleSided bool) (Contact, bool) {
	face := b.Sub(a).Cross(c.Sub(a))
	l := face.Len()
	if l < Epsilon {
		return Contact{}, false
	}
	face = face.Mul(1 / l)

	reference := capA
	axis := capB.Sub(capA)
	if axisLen := axis.Len(); axisLen > Epsilon {
		if math.Abs(face.Dot(axis)/axisLen) >= ParallelEpsilon {
			t := face.Dot(a.Sub(capA)) / face.Dot(axis)
			reference = capA.Add(axis.Mul(t))
		}
	}

	surface := ClosestPointToTriangle(reference, a, b, c)
	center := ClosestPointOnSegment(surface, capA, capB)

	return SphereToTriangle(center, radius, a, b, c, doubleSided)
}
