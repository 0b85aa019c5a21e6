package strata

import (
	"github.com/akmonengine/strata/actor"
	"github.com/akmonengine/strata/constraint"
	"github.com/akmonengine/strata/geometry"
	"github.com/akmonengine/strata/octree"
	"github.com/go-gl/mathgl/mgl64"
)

// minNormalLengthSq filters contacts whose normal could not be resolved, such as a
// sphere center lying exactly on a triangle edge
const minNormalLengthSq = 1e-12

// BroadPhase returns the body pairs whose boxes overlap, through the grid when one is
// configured and by testing all pairs otherwise.
func BroadPhase(spatialGrid *SpatialGrid, bodies []*actor.RigidBody) []Pair {
	if spatialGrid == nil {
		return bruteForcePairs(bodies)
	}

	spatialGrid.Clear()
	for i, body := range bodies {
		spatialGrid.Insert(i, body)
	}
	spatialGrid.SortCells()

	return spatialGrid.FindPairs(bodies)
}

// meshSlot holds the narrow phase output of one body, so that workers never share a slice.
type meshSlot struct {
	body     *actor.RigidBody
	contacts []*constraint.Contact
	scratch  []int
}

// NarrowPhase builds the contact list of a tick: body against static mesh first, in body
// order, then body pairs in pair order. The mesh part runs on workersCount goroutines;
// the result does not depend on the worker count.
func NarrowPhase(mesh *octree.Octree, meshFriction float64, bodies []*actor.RigidBody, pairs []Pair, workersCount int) []*constraint.Contact {
	var contacts []*constraint.Contact

	if mesh != nil {
		slots := make([]*meshSlot, 0, len(bodies))
		for _, body := range bodies {
			if body.Frozen || len(body.Colliders) == 0 {
				continue
			}
			slots = append(slots, &meshSlot{body: body})
		}

		task(workersCount, slots, func(slot *meshSlot) {
			for _, c := range slot.body.Colliders {
				slot.contacts = collideMesh(mesh, meshFriction, slot.body, c, slot.contacts, &slot.scratch)
			}
		})

		for _, slot := range slots {
			contacts = append(contacts, slot.contacts...)
		}
	}

	for _, pair := range pairs {
		contacts = collidePair(pair, contacts)
	}

	return contacts
}

// collideMesh appends one contact per mesh triangle touching the collider.
func collideMesh(mesh *octree.Octree, meshFriction float64, body *actor.RigidBody, collider actor.Collider, contacts []*constraint.Contact, scratch *[]int) []*constraint.Contact {
	box := collider.ComputeAABB(body.Transform).Inflate(collider.Margin())
	*scratch = mesh.QueryAABB(box, (*scratch)[:0])

	for _, i := range *scratch {
		tri := mesh.Triangle(i)
		if !geometry.AABBToTriangle(box, tri) {
			continue
		}

		var result geometry.Contact
		var ok bool
		switch shape := collider.(type) {
		case *actor.Sphere:
			result, ok = geometry.SphereToTriangle(shape.WorldCenter(body.Transform), shape.Radius, tri.A, tri.B, tri.C, true)
		case *actor.Capsule:
			a, b := shape.WorldSegment(body.Transform)
			result, ok = geometry.CapsuleToTriangle(a, b, shape.Radius, tri.A, tri.B, tri.C, true)
		}
		if !ok || result.Normal.LenSqr() < minNormalLengthSq {
			continue
		}

		contacts = append(contacts, &constraint.Contact{
			BodyA:     body,
			ColliderA: collider,
			Triangle:  i,
			Normal:    result.Normal,
			Point:     result.Point,
			C:         -result.Depth,
			Friction:  constraint.ComputeFriction(collider.Base().Friction, meshFriction),
		})
	}

	return contacts
}

// collidePair appends the contacts between every collider of both bodies.
func collidePair(pair Pair, contacts []*constraint.Contact) []*constraint.Contact {
	for _, ca := range pair.BodyA.Colliders {
		for _, cb := range pair.BodyB.Colliders {
			if contact, ok := collideColliders(pair.BodyA, ca, pair.BodyB, cb); ok {
				contacts = append(contacts, contact)
			}
		}
	}
	return contacts
}

// collideColliders treats both shapes as swept spheres: a sphere is a capsule whose
// segment has zero length.
func collideColliders(bodyA *actor.RigidBody, ca actor.Collider, bodyB *actor.RigidBody, cb actor.Collider) (*constraint.Contact, bool) {
	a0, a1, ra := colliderSegment(bodyA, ca)
	b0, b1, rb := colliderSegment(bodyB, cb)

	pa, pb := geometry.ClosestPointsSegmentSegment(a0, a1, b0, b1)
	delta := pa.Sub(pb)
	distSq := delta.LenSqr()
	radii := ra + rb
	if distSq > radii*radii {
		return nil, false
	}

	var normal mgl64.Vec3
	dist := 0.0
	if distSq > minNormalLengthSq {
		dist = delta.Len()
		normal = delta.Mul(1 / dist)
	} else {
		// concentric shapes: separate along the body centers, or up as a last resort
		normal = bodyA.Transform.Position.Sub(bodyB.Transform.Position)
		if normal.LenSqr() < minNormalLengthSq {
			normal = mgl64.Vec3{0, 1, 0}
		}
		normal = normal.Normalize()
	}

	depth := radii - dist
	return &constraint.Contact{
		BodyA:     bodyA,
		ColliderA: ca,
		BodyB:     bodyB,
		ColliderB: cb,
		Triangle:  -1,
		Normal:    normal,
		Point:     pb.Add(normal.Mul(rb - depth/2)),
		C:         -depth,
		Friction:  constraint.ComputeFriction(ca.Base().Friction, cb.Base().Friction),
	}, true
}

func colliderSegment(body *actor.RigidBody, c actor.Collider) (mgl64.Vec3, mgl64.Vec3, float64) {
	switch shape := c.(type) {
	case *actor.Sphere:
		center := shape.WorldCenter(body.Transform)
		return center, center, shape.Radius
	case *actor.Capsule:
		a, b := shape.WorldSegment(body.Transform)
		return a, b, shape.Radius
	}
	p := body.Transform.Position
	return p, p, 0
}
