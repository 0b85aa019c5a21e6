package actor

import (
	"fmt"
	"math"

	"github.com/akmonengine/strata/geometry"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// ID identifies the body across ticks and hosts; it orders contact pairs.
	ID uuid.UUID

	// Spatial properties
	Transform Transform

	// Linear motion
	Velocity mgl64.Vec3 // Linear velocity (m/s)

	// Angular motion
	AngularVelocity mgl64.Vec3 // Vitesse de rotation (rad/s)

	// Inertia, diagonal in body space
	InertiaLocal        mgl64.Mat3
	InverseInertiaLocal mgl64.Mat3

	mass float64

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	// Frozen bodies neither move nor respond to contacts; they act as infinite mass.
	Frozen bool
	// LockRotation keeps the orientation fixed; angular impulses are ignored.
	LockRotation bool

	Gravity      mgl64.Vec3
	GravityScale float64

	LinearDamping  float64 // 0.0 - 1.0, typique : 0.01
	AngularDamping float64 // 0.0 - 1.0, typique : 0.05

	Colliders []Collider

	// UserData links the body back to the host object.
	UserData any
}

// NewRigidBody creates a new rigid body with the given mass. The inertia is derived from
// the first collider; a body without collider gets the inertia of a unit sphere.
// Attaching a nil collider, or one already attached to another body, panics.
func NewRigidBody(transform Transform, mass float64, colliders ...Collider) *RigidBody {
	rb := &RigidBody{
		ID:           uuid.New(),
		Transform:    transform.normalized(),
		mass:         mass,
		GravityScale: 1.0,
	}

	for _, c := range colliders {
		if err := rb.AddCollider(c); err != nil {
			panic(err)
		}
	}
	rb.ComputeInertia()

	return rb
}

// AddCollider attaches c to the body.
func (rb *RigidBody) AddCollider(c Collider) error {
	if c == nil {
		return fmt.Errorf("actor: nil collider")
	}
	base := c.Base()
	if base.body != nil && base.body != rb {
		return fmt.Errorf("actor: collider already attached to body %s", base.body.ID)
	}
	base.body = rb
	rb.Colliders = append(rb.Colliders, c)

	return nil
}

// ComputeInertia refreshes the local inertia tensor from the first collider.
func (rb *RigidBody) ComputeInertia() {
	if len(rb.Colliders) > 0 {
		rb.InertiaLocal = rb.Colliders[0].ComputeInertia(rb.mass)
	} else {
		i := (2.0 / 5.0) * rb.mass
		rb.InertiaLocal = mgl64.Diag3(mgl64.Vec3{i, i, i})
	}

	// the tensor is diagonal, invert it per axis so zero entries stay locked
	for k := 0; k < 3; k++ {
		v := rb.InertiaLocal.At(k, k)
		if v > 0 && !math.IsInf(v, 1) {
			rb.InverseInertiaLocal.Set(k, k, 1/v)
		} else {
			rb.InverseInertiaLocal.Set(k, k, 0)
		}
	}
}

func (rb *RigidBody) GetMass() float64 {
	return rb.mass
}

// SetMass changes the mass and rescales the inertia.
func (rb *RigidBody) SetMass(mass float64) {
	rb.mass = mass
	rb.ComputeInertia()
}

// InverseMass is zero for frozen bodies.
func (rb *RigidBody) InverseMass() float64 {
	if rb.Frozen || rb.mass <= 0 || math.IsInf(rb.mass, 1) {
		return 0
	}
	return 1.0 / rb.mass
}

// ApplyForces integrates gravity and the accumulated force and torque into the velocities.
func (rb *RigidBody) ApplyForces(dt float64) {
	if rb.Frozen {
		return
	}

	// ========== LINEAR ==========
	accel := rb.Gravity.Mul(rb.GravityScale).Add(rb.accumulatedForce.Mul(rb.InverseMass()))
	rb.Velocity = rb.Velocity.Add(accel.Mul(dt))
	rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.LinearDamping * dt))

	// ========== ANGULAR ==========
	if rb.LockRotation {
		rb.AngularVelocity = mgl64.Vec3{}
		return
	}
	angularAccel := rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAccel.Mul(dt))
	rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.AngularDamping * dt))
}

// Integrate advances position and orientation with the current velocities
// (semi-implicit Euler: velocities were updated first) and clears the accumulators.
func (rb *RigidBody) Integrate(dt float64) {
	defer rb.ClearForces()
	if rb.Frozen {
		return
	}

	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	if rb.LockRotation || rb.AngularVelocity.LenSqr() == 0 {
		return
	}

	// ========== UPDATE QUATERNION ==========
	omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	qDot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
	rb.Transform.SetRotation(rb.Transform.Rotation.Add(qDot.Scale(dt)))
}

// AddForce accumulates a force (N) applied at the center of mass for the next tick
func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if !rb.Frozen {
		rb.accumulatedForce = rb.accumulatedForce.Add(force)
	}
}

// AddTorque accumulates a torque (N⋅m) for the next tick
func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if !rb.Frozen {
		rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	}
}

// AddForceAtPoint accumulates a force applied at a world-space point.
func (rb *RigidBody) AddForceAtPoint(force, point mgl64.Vec3) {
	rb.AddForce(force)
	rb.AddTorque(point.Sub(rb.Transform.Position).Cross(force))
}

// ApplyImpulse changes the velocities immediately, as if impulse was applied at a
// world-space point.
func (rb *RigidBody) ApplyImpulse(impulse, point mgl64.Vec3) {
	if rb.Frozen {
		return
	}
	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.InverseMass()))
	if !rb.LockRotation {
		r := point.Sub(rb.Transform.Position)
		rb.AngularVelocity = rb.AngularVelocity.Add(rb.GetInverseInertiaWorld().Mul3x1(r.Cross(impulse)))
	}
}

// ClearForces resets the per-tick accumulators
func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// AccumulatedForce returns the force gathered for the next tick.
func (rb *RigidBody) AccumulatedForce() mgl64.Vec3 {
	return rb.accumulatedForce
}

// Inertie en espace monde
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	// I_world = R * I_local * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// Inverse de l'inertie en espace monde, nulle si le corps est figé ou sa rotation bloquée
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.Frozen || rb.LockRotation {
		return mgl64.Mat3{}
	}

	// I_world^(-1) = R * I_local^(-1) * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}

// WorldAABB returns the union of the collider boxes, or an empty box without colliders.
func (rb *RigidBody) WorldAABB() geometry.AABB {
	box := geometry.EmptyAABB()
	for _, c := range rb.Colliders {
		box.Union(c.ComputeAABB(rb.Transform))
	}
	return box
}
