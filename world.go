package strata

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/strata/actor"
	"github.com/akmonengine/strata/constraint"
	"github.com/akmonengine/strata/logging"
	"github.com/akmonengine/strata/octree"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrNilBody          = errors.New("strata: nil body")
	ErrInvalidMass      = errors.New("strata: dynamic body needs a finite positive mass")
	ErrMeshAlreadyBaked = errors.New("strata: static mesh already set")
)

type World struct {
	// List of all rigid bodies in the world, in registration order
	Bodies []*actor.RigidBody
	// Gravity acceleration (m/s², or N/kg), given to bodies added without their own
	Gravity     mgl64.Vec3
	SpatialGrid *SpatialGrid
	Workers     int
	// MeshFriction is the static mesh side of the friction product
	MeshFriction float64
	// Bodies whose center goes below WorldFloor are moved back to where they were added
	WorldFloor float64

	Solver constraint.Solver
	Events Events
	Logger logging.Logger

	mesh             *octree.Octree
	trianglesPerLeaf int
	spawns           map[*actor.RigidBody]mgl64.Vec3
	contacts         []*constraint.Contact
	stats            StepStats
}

// StepStats describes the last Step.
type StepStats struct {
	Pairs       int
	Contacts    int
	Solved      int
	SkippedAxes int
}

// NewWorld creates an empty world from cfg. A nil logger discards everything.
func NewWorld(cfg Config, logger logging.Logger) *World {
	logger = logging.OrNop(logger)

	w := &World{
		Gravity:      cfg.Gravity,
		Workers:      max(DEFAULT_WORKERS, cfg.Workers),
		MeshFriction: cfg.MeshFriction,
		WorldFloor:   cfg.WorldFloor,
		Solver: constraint.Solver{
			Iterations: cfg.ConstraintIterations,
			BiasFactor: cfg.BiasFactor,
			Slop:       cfg.Slop,
			Logger:     logger,
		},
		Events:           NewEvents(),
		Logger:           logger,
		trianglesPerLeaf: cfg.TrianglesPerLeaf,
		spawns:           make(map[*actor.RigidBody]mgl64.Vec3),
	}
	if cfg.Grid.Enabled {
		w.SpatialGrid = NewSpatialGrid(cfg.Grid.CellSize, cfg.Grid.Cells)
	}

	return w
}

// AddBody adds a rigid body to the world. A body with a zero gravity vector gets the
// world gravity; set GravityScale to 0 for a floating body.
func (w *World) AddBody(body *actor.RigidBody) error {
	if body == nil {
		return ErrNilBody
	}
	mass := body.GetMass()
	if !body.Frozen && (mass <= 0 || math.IsNaN(mass) || math.IsInf(mass, 0)) {
		return fmt.Errorf("%w: body %s has mass %v", ErrInvalidMass, body.ID, mass)
	}
	for _, b := range w.Bodies {
		if b == body {
			return nil
		}
	}

	if body.Gravity == (mgl64.Vec3{}) {
		body.Gravity = w.Gravity
	}
	w.Bodies = append(w.Bodies, body)
	if w.spawns != nil {
		w.spawns[body] = body.Transform.Position
	}

	return nil
}

// RemoveBody removes a rigid body from the world
func (w *World) RemoveBody(body *actor.RigidBody) {
	k := -1
	for i, b := range w.Bodies {
		if b == body {
			k = i
			break
		}
	}

	if k != -1 {
		w.Bodies = append(w.Bodies[:k], w.Bodies[k+1:]...)
	}

	delete(w.spawns, body)
	w.Events.forget(body)
}

// SetStaticMesh builds the octree over a world-space buffer of 9 floats per triangle.
// The mesh can be set once; the buffer must not be modified afterwards.
func (w *World) SetStaticMesh(triangles []float64) error {
	if w.mesh != nil {
		return ErrMeshAlreadyBaked
	}

	perLeaf := w.trianglesPerLeaf
	if perLeaf <= 0 {
		perLeaf = octree.DefaultTrianglesPerLeaf
	}
	tree, err := octree.New(triangles, octree.WithTrianglesPerLeaf(perLeaf))
	if err != nil {
		return fmt.Errorf("strata: baking static mesh: %w", err)
	}
	w.mesh = tree

	stats := tree.Stats()
	w.logger().Infof("static mesh: %d triangles, %d nodes, %d leaves, max depth %d", tree.Len(), stats.Nodes, stats.Leaves, stats.MaxDepth)
	if w.logger().Enabled(logging.LevelDebug) {
		w.logger().Debugf("static mesh: triangles stored per depth %v", stats.ItemsPerDepth)
	}

	return nil
}

// Mesh returns the static mesh octree, nil until SetStaticMesh succeeded.
func (w *World) Mesh() *octree.Octree {
	return w.mesh
}

// Raycast intersects a ray with the static mesh.
func (w *World) Raycast(origin, direction mgl64.Vec3) (octree.Result, bool) {
	if w.mesh == nil {
		return octree.Result{}, false
	}
	return w.mesh.Raycast(origin, direction)
}

// Contacts returns the contacts gathered during the last Step, triggers included.
func (w *World) Contacts() []*constraint.Contact {
	return w.contacts
}

func (w *World) Stats() StepStats {
	return w.stats
}

// Step advances the simulation by dt: forces, contact gathering, impulses, integration.
func (w *World) Step(dt float64) {
	w.Workers = max(DEFAULT_WORKERS, w.Workers)

	// Phase 1: gravity and accumulated forces into velocities
	w.applyForces(dt)

	// Phase 2.0: Collision pair finding - Broad phase
	// Phase 2.1: Collision pair finding - narrow phase
	pairs := BroadPhase(w.SpatialGrid, w.Bodies)
	w.contacts = NarrowPhase(w.mesh, w.MeshFriction, w.Bodies, pairs, w.Workers)

	// the solver only sees non-trigger contacts; w.contacts keeps them all
	solvable := w.Events.recordCollisions(append([]*constraint.Contact(nil), w.contacts...))

	// Phase 3: sequential impulses
	solverStats := w.Solver.Solve(solvable, dt)

	// Phase 4: positions from the corrected velocities
	w.integrate(dt)
	w.resetFallenBodies()

	w.stats = StepStats{
		Pairs:       len(pairs),
		Contacts:    len(w.contacts),
		Solved:      solverStats.Contacts,
		SkippedAxes: solverStats.SkippedAxes,
	}

	w.Events.flush()
}

func (w *World) applyForces(dt float64) {
	task(w.Workers, w.Bodies, func(body *actor.RigidBody) {
		body.ApplyForces(dt)
	})
}

func (w *World) integrate(dt float64) {
	task(w.Workers, w.Bodies, func(body *actor.RigidBody) {
		body.Integrate(dt)
	})
}

// resetFallenBodies is too simple to use a task. Worlds not built by NewWorld have no
// floor.
func (w *World) resetFallenBodies() {
	if w.spawns == nil {
		return
	}
	for _, body := range w.Bodies {
		if body.Frozen || body.Transform.Position.Y() >= w.WorldFloor {
			continue
		}
		spawn := w.spawns[body]
		w.logger().Debugf("body %s fell below %v, back to %v", body.ID, w.WorldFloor, spawn)

		body.Transform.Position = spawn
		body.Velocity = mgl64.Vec3{}
		body.AngularVelocity = mgl64.Vec3{}
		w.Events.emitFloorReset(body)
	}
}

func (w *World) logger() logging.Logger {
	if w.Logger == nil {
		w.Logger = logging.NewNopLogger()
	}
	return w.Logger
}
