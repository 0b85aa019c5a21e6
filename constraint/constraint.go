package constraint

import (
	"math"

	"github.com/akmonengine/strata/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultIterations = 20
	// DefaultBiasFactor is the Baumgarte factor: the share of the residual penetration
	// turned into separating velocity per tick
	DefaultBiasFactor = 0.4
	// DefaultSlop is the penetration tolerated without bias, negative = overlapping
	DefaultSlop = -0.01

	// rows with a smaller inverse effective mass cannot move anything
	minInverseEffectiveMass = 1e-12
)

// Contact is a single contact point between a body collider and either another body
// collider or the static mesh (BodyB == nil).
type Contact struct {
	BodyA     *actor.RigidBody
	ColliderA actor.Collider
	BodyB     *actor.RigidBody
	ColliderB actor.Collider
	// Triangle is the mesh triangle index, -1 for body pairs
	Triangle int

	// Normal points from B (or the mesh) toward A
	Normal mgl64.Vec3
	Point  mgl64.Vec3
	// C is the signed separation, negative when overlapping
	C        float64
	Friction float64

	// accumulated for the current tick only, no warm starting
	NormalImpulse    float64
	TangentImpulse   float64
	BitangentImpulse float64
}

// ComputeFriction combines the coefficients of both sides.
func ComputeFriction(frictionA, frictionB float64) float64 {
	return frictionA * frictionB
}

// IsSolvable reports whether the contact takes part in the impulse solve.
// Trigger colliders and pairs of immovable bodies only produce events.
func (c *Contact) IsSolvable() bool {
	if c.ColliderA != nil && c.ColliderA.Base().IsTrigger {
		return false
	}
	if c.ColliderB != nil && c.ColliderB.Base().IsTrigger {
		return false
	}
	return c.C <= 0
}

// Reset clears the accumulated impulses.
func (c *Contact) Reset() {
	c.NormalImpulse = 0
	c.TangentImpulse = 0
	c.BitangentImpulse = 0
}

func getTangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
