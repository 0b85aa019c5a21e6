package constraint

import (
	"github.com/akmonengine/strata/actor"
	"github.com/akmonengine/strata/logging"
	"github.com/go-gl/mathgl/mgl64"
)

// Solver resolves contacts with sequential impulses (projected Gauss-Seidel).
type Solver struct {
	Iterations int
	BiasFactor float64
	Slop       float64
	Logger     logging.Logger
}

// Stats summarizes one Solve call.
type Stats struct {
	Contacts int
	// SkippedAxes counts axes dropped for the tick because their impulse was not finite
	SkippedAxes int
}

func DefaultSolver() Solver {
	return Solver{
		Iterations: DefaultIterations,
		BiasFactor: DefaultBiasFactor,
		Slop:       DefaultSlop,
	}
}

const (
	axisNormal = iota
	axisTangent
	axisBitangent
)

// bodyRow is the part of a 6-component Jacobian row belonging to one body.
type bodyRow struct {
	body    *actor.RigidBody
	linear  mgl64.Vec3
	angular mgl64.Vec3
	invMass float64
	// diagonal of the world inverse inertia, zero when rotation impulses are disabled
	invInertia mgl64.Vec3
}

func (r *bodyRow) velocity() float64 {
	if r.body == nil {
		return 0
	}
	return r.linear.Dot(r.body.Velocity) + r.angular.Dot(r.body.AngularVelocity)
}

func (r *bodyRow) inverseEffectiveMass() float64 {
	if r.body == nil {
		return 0
	}
	a := r.angular
	return r.linear.LenSqr()*r.invMass +
		a[0]*a[0]*r.invInertia[0] + a[1]*a[1]*r.invInertia[1] + a[2]*a[2]*r.invInertia[2]
}

func (r *bodyRow) apply(lambda float64) {
	if r.body == nil {
		return
	}
	r.body.Velocity = r.body.Velocity.Add(r.linear.Mul(lambda * r.invMass))
	r.body.AngularVelocity = r.body.AngularVelocity.Add(mgl64.Vec3{
		r.angular[0] * lambda * r.invInertia[0],
		r.angular[1] * lambda * r.invInertia[1],
		r.angular[2] * lambda * r.invInertia[2],
	})
}

// row is one axis of a contact.
type row struct {
	a, b          bodyRow
	effectiveMass float64
	bias          float64
	skip          bool
}

type contactRows struct {
	contact *Contact
	rows    [3]row
}

// Solve runs the configured number of sweeps over the solvable contacts.
// Accumulated impulses are reset first; nothing carries over between ticks.
func (s Solver) Solve(contacts []*Contact, dt float64) Stats {
	logger := logging.OrNop(s.Logger)
	var stats Stats
	if dt <= 0 {
		return stats
	}

	prepared := make([]contactRows, 0, len(contacts))
	for _, c := range contacts {
		if !c.IsSolvable() {
			continue
		}
		c.Reset()
		prepared = append(prepared, s.prepare(c, dt))
	}
	stats.Contacts = len(prepared)

	for it := 0; it < s.Iterations; it++ {
		for i := range prepared {
			stats.SkippedAxes += solveContact(&prepared[i])
		}
	}

	if stats.SkippedAxes > 0 {
		logger.Warnf("constraint: dropped %d non-finite impulse axes over %d contacts", stats.SkippedAxes, stats.Contacts)
	}

	return stats
}

func (s Solver) prepare(c *Contact, dt float64) contactRows {
	tangent, bitangent := getTangentBasis(c.Normal)
	axes := [3]mgl64.Vec3{c.Normal, tangent, bitangent}

	cr := contactRows{contact: c}
	for k, axis := range axes {
		r := &cr.rows[k]
		r.a = makeBodyRow(c.BodyA, c.ColliderA, c.Point, axis)
		r.b = makeBodyRow(c.BodyB, c.ColliderB, c.Point, axis.Mul(-1))

		inv := r.a.inverseEffectiveMass() + r.b.inverseEffectiveMass()
		if !isFinite(inv) {
			// computing lambda from here would only produce NaN
			r.effectiveMass = inv
			continue
		}
		if inv < minInverseEffectiveMass {
			r.skip = true
			continue
		}
		r.effectiveMass = 1 / inv
	}

	if c.C < s.Slop {
		cr.rows[axisNormal].bias = s.BiasFactor / dt * (c.C - s.Slop)
	}

	return cr
}

func makeBodyRow(body *actor.RigidBody, collider actor.Collider, point, axis mgl64.Vec3) bodyRow {
	if body == nil {
		return bodyRow{}
	}

	r := bodyRow{
		body:    body,
		linear:  axis,
		angular: point.Sub(body.Transform.Position).Cross(axis),
		invMass: body.InverseMass(),
	}
	if collider == nil || !collider.Base().DisableRotationImpulse {
		inv := body.GetInverseInertiaWorld()
		r.invInertia = mgl64.Vec3{inv.At(0, 0), inv.At(1, 1), inv.At(2, 2)}
	}

	return r
}

// drop removes an axis from the tick, taking back the impulse it already applied in
// earlier sweeps.
func (r *row) drop(accumulated *float64) {
	if *accumulated != 0 {
		r.a.apply(-*accumulated)
		r.b.apply(-*accumulated)
		*accumulated = 0
	}
	r.skip = true
}

// solveContact runs one sweep over the three axes of a contact, normal first so that
// the friction bounds use this sweep's normal impulse. It returns the number of axes
// newly dropped.
func solveContact(cr *contactRows) int {
	c := cr.contact
	skipped := 0

	// ========== NORMAL ==========
	n := &cr.rows[axisNormal]
	if !n.skip {
		lambda := -n.effectiveMass * (n.a.velocity() + n.b.velocity() + n.bias)
		if isFinite(lambda) {
			previous := c.NormalImpulse
			c.NormalImpulse = max(previous+lambda, 0)
			delta := c.NormalImpulse - previous
			n.a.apply(delta)
			n.b.apply(delta)
		} else {
			n.drop(&c.NormalImpulse)
			skipped++
		}
	}

	// ========== FRICTION ==========
	limit := c.Friction * c.NormalImpulse
	accumulators := [3]*float64{nil, &c.TangentImpulse, &c.BitangentImpulse}
	for k := axisTangent; k <= axisBitangent; k++ {
		r := &cr.rows[k]
		if r.skip {
			continue
		}
		acc := accumulators[k]
		lambda := -r.effectiveMass * (r.a.velocity() + r.b.velocity())
		if !isFinite(lambda) {
			r.drop(acc)
			skipped++
			continue
		}
		previous := *acc
		*acc = mgl64.Clamp(previous+lambda, -limit, limit)
		delta := *acc - previous
		r.a.apply(delta)
		r.b.apply(delta)
	}

	return skipped
}
