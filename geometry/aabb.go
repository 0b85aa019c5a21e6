package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyAABB returns an inverted box that any Extend call turns into a valid one.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// Bounds returns the smallest box containing all the points.
func Bounds(points ...mgl64.Vec3) AABB {
	box := EmptyAABB()
	for _, p := range points {
		box.Extend(p)
	}
	return box
}

// Extend grows the box so that it contains point.
func (a *AABB) Extend(point mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		a.Min[i] = math.Min(a.Min[i], point[i])
		a.Max[i] = math.Max(a.Max[i], point[i])
	}
}

// Union grows the box so that it contains other.
func (a *AABB) Union(other AABB) {
	a.Extend(other.Min)
	a.Extend(other.Max)
}

// IsEmpty reports whether the box was never extended.
func (a AABB) IsEmpty() bool {
	return a.Min.X() > a.Max.X() || a.Min.Y() > a.Max.Y() || a.Min.Z() > a.Max.Z()
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// PointInsideAABB checks the point against the box grown by epsilon on every side.
func PointInsideAABB(point mgl64.Vec3, box AABB, epsilon float64) bool {
	return box.Inflate(epsilon).ContainsPoint(point)
}

// ContainsAABB reports whether other lies entirely inside a (touching faces included).
func (a AABB) ContainsAABB(other AABB) bool {
	return other.Min.X() >= a.Min.X() && other.Max.X() <= a.Max.X() &&
		other.Min.Y() >= a.Min.Y() && other.Max.Y() <= a.Max.Y() &&
		other.Min.Z() >= a.Min.Z() && other.Max.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Inflate returns a copy grown by margin on every side.
func (a AABB) Inflate(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) HalfExtents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Octant returns one of the 8 equal sub-boxes. Bit 0 of i selects the upper half on X,
// bit 1 on Y and bit 2 on Z.
func (a AABB) Octant(i int) AABB {
	c := a.Center()
	o := AABB{Min: a.Min, Max: c}
	if i&1 != 0 {
		o.Min[0], o.Max[0] = c[0], a.Max[0]
	}
	if i&2 != 0 {
		o.Min[1], o.Max[1] = c[1], a.Max[1]
	}
	if i&4 != 0 {
		o.Min[2], o.Max[2] = c[2], a.Max[2]
	}
	return o
}
