package actor

import (
	"math"

	"github.com/akmonengine/strata/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// ColliderType represents the type of collision shape
type ColliderType int

const (
	ColliderTypeSphere ColliderType = iota
	ColliderTypeCapsule
)

const (
	// SphereMargin and CapsuleMargin inflate the query boxes used against the static mesh,
	// so that contacts appear slightly before the shapes touch.
	SphereMargin  = 0.05
	CapsuleMargin = 0.1

	DefaultFriction = 0.5
)

// Collider is a collision shape attached to exactly one rigid body.
type Collider interface {
	Type() ColliderType
	// ComputeAABB returns the world-space box of the shape at the given transform
	ComputeAABB(transform Transform) geometry.AABB
	// Margin is the broad-phase inflation used for this shape type
	Margin() float64
	ComputeInertia(mass float64) mgl64.Mat3
	Base() *ColliderBase
}

// ColliderBase holds the settings shared by every collider type.
type ColliderBase struct {
	// Friction is multiplied with the other side's friction to get the contact coefficient
	Friction float64
	// DisableRotationImpulse keeps contacts on this collider from spinning the body
	DisableRotationImpulse bool
	// IsTrigger colliders report events but are never solved
	IsTrigger bool

	body *RigidBody
}

func (b *ColliderBase) Base() *ColliderBase {
	return b
}

// Body returns the rigid body the collider is attached to, or nil.
func (b *ColliderBase) Body() *RigidBody {
	return b.body
}

// Sphere represents a spherical collision shape, centered at Offset in body space
type Sphere struct {
	ColliderBase
	Radius float64
	Offset mgl64.Vec3
}

// NewSphere creates a sphere collider with the default friction.
func NewSphere(radius float64, offset mgl64.Vec3) *Sphere {
	return &Sphere{ColliderBase: ColliderBase{Friction: DefaultFriction}, Radius: radius, Offset: offset}
}

func (s *Sphere) Type() ColliderType {
	return ColliderTypeSphere
}

// WorldCenter returns the sphere center in world space
func (s *Sphere) WorldCenter(transform Transform) mgl64.Vec3 {
	return transform.ToWorld(s.Offset)
}

// ComputeAABB calculates the axis-aligned bounding box for the sphere
func (s *Sphere) ComputeAABB(transform Transform) geometry.AABB {
	// Sphere AABB is not affected by rotation, only by position
	center := s.WorldCenter(transform)
	radiusVec := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	return geometry.AABB{
		Min: center.Sub(radiusVec),
		Max: center.Add(radiusVec),
	}
}

func (s *Sphere) Margin() float64 {
	return SphereMargin
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	// Pour une sphère : I = (2/5) * m * r²
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	// Une sphère a la même inertie sur tous les axes
	return mgl64.Mat3{
		i, 0, 0,
		0, i, 0,
		0, 0, i,
	}
}

// Capsule is the set of points within Radius of the segment [A, B], both in body space
type Capsule struct {
	ColliderBase
	Radius float64
	A      mgl64.Vec3
	B      mgl64.Vec3
}

// NewCapsule creates a vertical capsule of the given total height centered on offset.
func NewCapsule(radius, height float64, offset mgl64.Vec3) *Capsule {
	half := math.Max(height/2-radius, 0)
	return &Capsule{
		ColliderBase: ColliderBase{Friction: DefaultFriction},
		Radius:       radius,
		A:            offset.Sub(mgl64.Vec3{0, half, 0}),
		B:            offset.Add(mgl64.Vec3{0, half, 0}),
	}
}

func (c *Capsule) Type() ColliderType {
	return ColliderTypeCapsule
}

// WorldSegment returns the capsule axis end points in world space
func (c *Capsule) WorldSegment(transform Transform) (mgl64.Vec3, mgl64.Vec3) {
	return transform.ToWorld(c.A), transform.ToWorld(c.B)
}

func (c *Capsule) ComputeAABB(transform Transform) geometry.AABB {
	a, b := c.WorldSegment(transform)
	r := mgl64.Vec3{c.Radius, c.Radius, c.Radius}

	box := geometry.Bounds(a, b)
	box.Min = box.Min.Sub(r)
	box.Max = box.Max.Add(r)

	return box
}

func (c *Capsule) Margin() float64 {
	return CapsuleMargin
}

// ComputeInertia splits the mass between the cylinder and the two hemispheres by volume.
// The tensor is kept diagonal, with the axis mapped on the dominant component of B-A.
func (c *Capsule) ComputeInertia(mass float64) mgl64.Mat3 {
	r := c.Radius
	axis := c.B.Sub(c.A)
	l := axis.Len()

	cylinderVolume := math.Pi * r * r * l
	sphereVolume := (4.0 / 3.0) * math.Pi * r * r * r
	total := cylinderVolume + sphereVolume
	if total <= 0 {
		return mgl64.Mat3{}
	}

	mc := mass * cylinderVolume / total
	ms := mass - mc

	along := mc*r*r/2 + ms*2*r*r/5
	across := mc*(l*l/12+r*r/4) + ms*(2*r*r/5+l*l/4+3*l*r/8)

	diag := mgl64.Vec3{across, across, across}
	ax, ay, az := math.Abs(axis.X()), math.Abs(axis.Y()), math.Abs(axis.Z())
	switch {
	case l == 0:
		diag = mgl64.Vec3{along, along, along}
	case ax >= ay && ax >= az:
		diag[0] = along
	case ay >= az:
		diag[1] = along
	default:
		diag[2] = along
	}

	return mgl64.Diag3(diag)
}
