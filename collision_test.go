package strata

import (
	"math"
	"math/rand"
	"testing"

	"github.com/akmonengine/strata/actor"
	"github.com/akmonengine/strata/geometry"
	"github.com/akmonengine/strata/octree"
	"github.com/go-gl/mathgl/mgl64"
)

// floorMesh returns n*n quads of the given size at y = 0, centered on the origin.
func floorMesh(n int, size float64) []float64 {
	var buf []float64
	half := float64(n) * size / 2
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x0, z0 := float64(i)*size-half, float64(j)*size-half
			x1, z1 := x0+size, z0+size
			buf = geometry.AppendTriangle(buf, geometry.Triangle{
				A: mgl64.Vec3{x0, 0, z0}, B: mgl64.Vec3{x0, 0, z1}, C: mgl64.Vec3{x1, 0, z0},
			})
			buf = geometry.AppendTriangle(buf, geometry.Triangle{
				A: mgl64.Vec3{x1, 0, z0}, B: mgl64.Vec3{x0, 0, z1}, C: mgl64.Vec3{x1, 0, z1},
			})
		}
	}
	return buf
}

func buildOctree(t testing.TB, buf []float64) *octree.Octree {
	t.Helper()
	tree, err := octree.New(buf)
	if err != nil {
		t.Fatalf("octree.New() error = %v", err)
	}
	return tree
}

func createCapsule(position mgl64.Vec3, radius, height float64) *actor.RigidBody {
	transform := actor.NewTransform()
	transform.Position = position
	return actor.NewRigidBody(transform, 1.0, actor.NewCapsule(radius, height, mgl64.Vec3{}))
}

// =============================================================================
// Mesh contacts
// =============================================================================

func TestNarrowPhase_SphereOnFloor(t *testing.T) {
	mesh := buildOctree(t, floorMesh(4, 2))
	body := createTestSphere(mgl64.Vec3{0.3, 0.45, 0.4}, 0.5)

	contacts := NarrowPhase(mesh, 1.0, []*actor.RigidBody{body}, nil, 1)
	if len(contacts) != 1 {
		t.Fatalf("len(contacts) = %d, want 1", len(contacts))
	}

	c := contacts[0]
	if c.BodyA != body || c.BodyB != nil || c.Triangle < 0 {
		t.Errorf("contact refs = (%p, %p, %d), want body against mesh", c.BodyA, c.BodyB, c.Triangle)
	}
	if !c.Normal.ApproxEqual(mgl64.Vec3{0, 1, 0}) {
		t.Errorf("Normal = %v, want up", c.Normal)
	}
	if math.Abs(c.C+0.05) > 1e-9 {
		t.Errorf("C = %v, want -0.05", c.C)
	}
	if !c.Point.ApproxEqualThreshold(mgl64.Vec3{0.3, 0, 0.4}, 1e-9) {
		t.Errorf("Point = %v, want (0.3, 0, 0.4)", c.Point)
	}
	if math.Abs(c.Friction-actor.DefaultFriction) > 1e-12 {
		t.Errorf("Friction = %v, want %v", c.Friction, actor.DefaultFriction)
	}
}

func TestNarrowPhase_SphereUnderFloor(t *testing.T) {
	mesh := buildOctree(t, floorMesh(4, 2))
	body := createTestSphere(mgl64.Vec3{0.6, -0.4, 0.7}, 0.5)

	// meshes are double sided: the normal faces the sphere
	contacts := NarrowPhase(mesh, 1.0, []*actor.RigidBody{body}, nil, 1)
	if len(contacts) != 1 {
		t.Fatalf("len(contacts) = %d, want 1", len(contacts))
	}
	if !contacts[0].Normal.ApproxEqual(mgl64.Vec3{0, -1, 0}) {
		t.Errorf("Normal = %v, want down", contacts[0].Normal)
	}
}

func TestNarrowPhase_CapsuleOnFloor(t *testing.T) {
	mesh := buildOctree(t, floorMesh(4, 2))
	body := createCapsule(mgl64.Vec3{0.3, 0.98, 0.4}, 0.5, 2)

	contacts := NarrowPhase(mesh, 0.5, []*actor.RigidBody{body}, nil, 1)
	if len(contacts) != 1 {
		t.Fatalf("len(contacts) = %d, want 1", len(contacts))
	}
	if math.Abs(contacts[0].C+0.02) > 1e-9 {
		t.Errorf("C = %v, want -0.02", contacts[0].C)
	}
	if math.Abs(contacts[0].Friction-0.25) > 1e-12 {
		t.Errorf("Friction = %v, want 0.25", contacts[0].Friction)
	}
}

func TestNarrowPhase_SkipsFrozenAndFarBodies(t *testing.T) {
	mesh := buildOctree(t, floorMesh(4, 2))
	frozen := createTestSphere(mgl64.Vec3{0.3, 0.2, 0.3}, 0.5)
	frozen.Frozen = true
	far := createTestSphere(mgl64.Vec3{0.3, 3, 0.3}, 0.5)
	bare := actor.NewRigidBody(actor.NewTransform(), 1.0)

	contacts := NarrowPhase(mesh, 1.0, []*actor.RigidBody{frozen, far, bare}, nil, 1)
	if len(contacts) != 0 {
		t.Errorf("len(contacts) = %d, want 0", len(contacts))
	}
}

func TestNarrowPhase_SameResultForAnyWorkerCount(t *testing.T) {
	mesh := buildOctree(t, floorMesh(16, 1))
	r := rand.New(rand.NewSource(5))

	bodies := make([]*actor.RigidBody, 64)
	for i := range bodies {
		p := mgl64.Vec3{r.Float64()*14 - 7, 0.2 + r.Float64()*0.4, r.Float64()*14 - 7}
		if i%2 == 0 {
			bodies[i] = createTestSphere(p, 0.5)
		} else {
			bodies[i] = createCapsule(p.Add(mgl64.Vec3{0, 0.5, 0}), 0.4, 1.8)
		}
	}
	pairs := BroadPhase(nil, bodies)

	reference := NarrowPhase(mesh, 1.0, bodies, pairs, 1)
	if len(reference) == 0 {
		t.Fatal("expected contacts")
	}
	for _, workers := range []int{2, 3, 8} {
		got := NarrowPhase(mesh, 1.0, bodies, pairs, workers)
		if len(got) != len(reference) {
			t.Fatalf("workers=%d: %d contacts, want %d", workers, len(got), len(reference))
		}
		for i := range got {
			if *got[i] != *reference[i] {
				t.Errorf("workers=%d: contact %d = %+v, want %+v", workers, i, *got[i], *reference[i])
			}
		}
	}
}

// =============================================================================
// Body pairs
// =============================================================================

func TestCollideColliders(t *testing.T) {
	tests := []struct {
		name       string
		bodyA      *actor.RigidBody
		bodyB      *actor.RigidBody
		wantHit    bool
		wantNormal mgl64.Vec3
		wantC      float64
	}{
		{
			name:       "overlapping spheres",
			bodyA:      createTestSphere(mgl64.Vec3{0.8, 0, 0}, 0.5),
			bodyB:      createTestSphere(mgl64.Vec3{0, 0, 0}, 0.5),
			wantHit:    true,
			wantNormal: mgl64.Vec3{1, 0, 0},
			wantC:      -0.2,
		},
		{
			name:    "separated spheres",
			bodyA:   createTestSphere(mgl64.Vec3{1.1, 0, 0}, 0.5),
			bodyB:   createTestSphere(mgl64.Vec3{0, 0, 0}, 0.5),
			wantHit: false,
		},
		{
			name:       "sphere on capsule side",
			bodyA:      createTestSphere(mgl64.Vec3{0, 0.3, 0.8}, 0.5),
			bodyB:      createCapsule(mgl64.Vec3{0, 0, 0}, 0.5, 2),
			wantHit:    true,
			wantNormal: mgl64.Vec3{0, 0, 1},
			wantC:      -0.2,
		},
		{
			name:       "stacked capsules",
			bodyA:      createCapsule(mgl64.Vec3{0, 1.9, 0}, 0.5, 2),
			bodyB:      createCapsule(mgl64.Vec3{0, 0, 0}, 0.5, 2),
			wantHit:    true,
			wantNormal: mgl64.Vec3{0, 1, 0},
			wantC:      -0.1,
		},
		{
			name:       "concentric spheres",
			bodyA:      createTestSphere(mgl64.Vec3{0, 0, 0}, 0.5),
			bodyB:      createTestSphere(mgl64.Vec3{0, 0, 0}, 0.5),
			wantHit:    true,
			wantNormal: mgl64.Vec3{0, 1, 0},
			wantC:      -1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contact, ok := collideColliders(tt.bodyA, tt.bodyA.Colliders[0], tt.bodyB, tt.bodyB.Colliders[0])
			if ok != tt.wantHit {
				t.Fatalf("hit = %v, want %v", ok, tt.wantHit)
			}
			if !ok {
				return
			}
			if !contact.Normal.ApproxEqualThreshold(tt.wantNormal, 1e-9) {
				t.Errorf("Normal = %v, want %v", contact.Normal, tt.wantNormal)
			}
			if math.Abs(contact.C-tt.wantC) > 1e-9 {
				t.Errorf("C = %v, want %v", contact.C, tt.wantC)
			}
			if contact.Triangle != -1 || contact.BodyB != tt.bodyB {
				t.Errorf("contact refs = (%d, %p), want a body pair", contact.Triangle, contact.BodyB)
			}
		})
	}
}

func TestCollideColliders_PointBetweenSurfaces(t *testing.T) {
	a := createTestSphere(mgl64.Vec3{0.8, 0, 0}, 0.5)
	b := createTestSphere(mgl64.Vec3{0, 0, 0}, 0.5)

	contact, ok := collideColliders(a, a.Colliders[0], b, b.Colliders[0])
	if !ok {
		t.Fatal("expected a contact")
	}
	// surfaces at x=0.3 (A) and x=0.5 (B)
	if !contact.Point.ApproxEqualThreshold(mgl64.Vec3{0.4, 0, 0}, 1e-9) {
		t.Errorf("Point = %v, want (0.4, 0, 0)", contact.Point)
	}
}

func TestNarrowPhase_TriggerContactsKept(t *testing.T) {
	a := createTestSphere(mgl64.Vec3{0.8, 0, 0}, 0.5)
	b := createTestSphere(mgl64.Vec3{0, 0, 0}, 0.5)
	b.Colliders[0].Base().IsTrigger = true

	contacts := NarrowPhase(nil, 1.0, []*actor.RigidBody{a, b}, BroadPhase(nil, []*actor.RigidBody{a, b}), 1)
	if len(contacts) != 1 {
		t.Fatalf("len(contacts) = %d, want 1", len(contacts))
	}
	if contacts[0].IsSolvable() {
		t.Error("trigger contact should not be solvable")
	}
}

func BenchmarkNarrowPhase(b *testing.B) {
	mesh := buildOctree(b, floorMesh(64, 1))
	r := rand.New(rand.NewSource(1))
	bodies := make([]*actor.RigidBody, 500)
	for i := range bodies {
		p := mgl64.Vec3{r.Float64()*60 - 30, 0.45, r.Float64()*60 - 30}
		bodies[i] = createTestSphere(p, 0.5)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NarrowPhase(mesh, 1.0, bodies, nil, 4)
	}
}
