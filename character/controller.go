// Package character moves a capsule over the static mesh with direct push-out, without
// going through the rigid body solver. Stepping is a pure function of the state, the
// input and dt, so a server can replay the inputs of a client and land on the same state.
package character

import (
	"math"

	"github.com/akmonengine/strata/geometry"
	"github.com/akmonengine/strata/logging"
	"github.com/go-gl/mathgl/mgl64"
)

// overlapTolerance is the penetration ignored when checking room to stand up.
const overlapTolerance = 1e-3

var up = mgl64.Vec3{0, 1, 0}

// MeshQuerier is the part of the octree the controller needs.
type MeshQuerier interface {
	QueryAABB(box geometry.AABB, out []int) []int
	Triangle(i int) geometry.Triangle
}

// Input is the player intent for one tick.
type Input struct {
	Seq uint64
	// Move is the wished direction on the XZ plane, its length clamped to 1
	Move mgl64.Vec2
	// Jump is true on the tick the button is pressed
	Jump   bool
	Crouch bool
}

// State is everything Step reads and writes. Restoring a State and replaying the same
// inputs reproduces the same states.
type State struct {
	Tick uint64
	// Position is the capsule center
	Position mgl64.Vec3
	Velocity mgl64.Vec3

	Grounded bool
	// GroundNormal is the unsnapped normal of the last walkable contact
	GroundNormal mgl64.Vec3
	Crouching    bool

	SinceGrounded    float64
	SinceJumpPressed float64
}

type Controller struct {
	Config Config
	Mesh   MeshQuerier
	Logger logging.Logger

	state   State
	scratch []int
}

// NewController places a standing character with its feet on cfg.Spawn.
func NewController(cfg Config, mesh MeshQuerier, logger logging.Logger) *Controller {
	c := &Controller{
		Config: cfg,
		Mesh:   mesh,
		Logger: logging.OrNop(logger),
	}
	c.state = c.spawnState()
	return c
}

func (c *Controller) spawnState() State {
	return State{
		Position:         c.Config.Spawn.Add(up.Mul(c.Config.Height / 2)),
		SinceGrounded:    math.Inf(1),
		SinceJumpPressed: math.Inf(1),
	}
}

func (c *Controller) State() State {
	return c.state
}

// Restore overwrites the current state, typically with an authoritative snapshot.
func (c *Controller) Restore(state State) {
	c.state = state
}

// Height is the current capsule height, crouched or standing.
func (c *Controller) Height() float64 {
	if c.state.Crouching {
		return c.Config.CrouchHeight
	}
	return c.Config.Height
}

// Feet returns the lowest point of the capsule.
func (c *Controller) Feet() mgl64.Vec3 {
	return c.state.Position.Sub(up.Mul(c.Height() / 2))
}

// Step advances the character by dt.
func (c *Controller) Step(input Input, dt float64) State {
	s := &c.state
	cfg := c.Config

	// ========== TIMERS ==========
	if input.Jump {
		s.SinceJumpPressed = 0
	} else {
		s.SinceJumpPressed += dt
	}
	if s.Grounded {
		s.SinceGrounded = 0
	} else {
		s.SinceGrounded += dt
	}

	c.crouch(input.Crouch)

	// ========== FORCES ==========
	s.Velocity = s.Velocity.Sub(up.Mul(cfg.Gravity * dt))

	accel := cfg.MoveAcceleration * cfg.AirControl
	if s.Grounded {
		accel = cfg.MoveAcceleration
		n := s.GroundNormal
		if n.LenSqr() == 0 {
			n = up
		}
		planar := s.Velocity.Sub(n.Mul(s.Velocity.Dot(n)))
		// clamped so a large friction*dt stops the character instead of reversing it
		s.Velocity = s.Velocity.Sub(planar.Mul(math.Min(cfg.Friction*dt, 1)))
	}
	if wish := c.wishDirection(input.Move); wish.LenSqr() > 0 {
		s.Velocity = s.Velocity.Add(wish.Mul(accel * dt))
	}

	// ========== JUMP ==========
	if s.SinceGrounded <= cfg.CoyoteTime && s.SinceJumpPressed <= cfg.JumpBuffer {
		s.Velocity[1] = cfg.JumpVelocity
		s.Position[1] += cfg.JumpLift
		s.Grounded = false
		s.SinceGrounded = math.Inf(1)
		s.SinceJumpPressed = math.Inf(1)
	}

	// ========== INTEGRATE & RESOLVE ==========
	s.Position = s.Position.Add(s.Velocity.Mul(dt))
	c.resolve()

	if c.Feet().Y() < cfg.WorldFloor {
		c.Logger.Debugf("character: fell below %v at %v, back to spawn", cfg.WorldFloor, s.Position)
		tick := s.Tick
		*s = c.spawnState()
		s.Tick = tick
	}

	s.Tick++
	return *s
}

// wishDirection maps the 2D input on the ground, following the real ground normal so
// that walking up or down a slope keeps the requested speed along it.
func (c *Controller) wishDirection(move mgl64.Vec2) mgl64.Vec3 {
	l := move.Len()
	if l == 0 {
		return mgl64.Vec3{}
	}
	strength := math.Min(l, 1)
	dir := mgl64.Vec3{move.X() / l, 0, move.Y() / l}

	if c.state.Grounded {
		n := c.state.GroundNormal
		projected := dir.Sub(n.Mul(dir.Dot(n)))
		if pl := projected.Len(); pl > geometry.Epsilon {
			dir = projected.Mul(1 / pl)
		}
	}

	return dir.Mul(strength)
}

// crouch switches the capsule height, keeping the feet in place. Standing up waits
// until the standing capsule fits.
func (c *Controller) crouch(wanted bool) {
	s := &c.state
	if wanted == s.Crouching {
		return
	}

	delta := (c.Config.Height - c.Config.CrouchHeight) / 2
	if wanted {
		s.Crouching = true
		s.Position[1] -= delta
		return
	}

	standing := s.Position.Add(up.Mul(delta))
	if c.overlaps(standing, c.Config.Height) {
		return
	}
	s.Crouching = false
	s.Position = standing
}

func (c *Controller) segment(center mgl64.Vec3, height float64) (mgl64.Vec3, mgl64.Vec3) {
	half := math.Max(height/2-c.Config.Radius, 0)
	return center.Sub(up.Mul(half)), center.Add(up.Mul(half))
}

func (c *Controller) queryBox(a, b mgl64.Vec3) geometry.AABB {
	return geometry.Bounds(a, b).Inflate(c.Config.Radius + c.Config.QueryMargin)
}

// resolve pushes the capsule out of the mesh, one contact at a time.
func (c *Controller) resolve() {
	s := &c.state
	s.Grounded = false
	s.GroundNormal = mgl64.Vec3{}
	if c.Mesh == nil {
		return
	}

	for pass := 0; pass < c.Config.CollisionIterations; pass++ {
		a, b := c.segment(s.Position, c.Height())
		box := c.queryBox(a, b)
		c.scratch = c.Mesh.QueryAABB(box, c.scratch[:0])

		touched := false
		for _, i := range c.scratch {
			tri := c.Mesh.Triangle(i)
			if !geometry.AABBToTriangle(box, tri) {
				continue
			}

			a, b := c.segment(s.Position, c.Height())
			contact, ok := geometry.CapsuleToTriangle(a, b, c.Config.Radius, tri.A, tri.B, tri.C, true)
			if !ok || contact.Depth <= 0 || contact.Normal.LenSqr() < geometry.Epsilon {
				continue
			}
			touched = true

			push := contact.Normal
			if contact.Normal.Y() > c.Config.GroundThreshold {
				push = up
				s.Grounded = true
				s.GroundNormal = contact.Normal
			}

			// the snap only applies to the push; velocity is cleared along the real normal
			s.Position = s.Position.Add(push.Mul(contact.Depth))
			if into := s.Velocity.Dot(contact.Normal); into < 0 {
				s.Velocity = s.Velocity.Sub(contact.Normal.Mul(into))
			}
		}

		if !touched {
			return
		}
	}
}

// overlaps reports whether a capsule of the given height centered on center penetrates
// the mesh.
func (c *Controller) overlaps(center mgl64.Vec3, height float64) bool {
	if c.Mesh == nil {
		return false
	}

	a, b := c.segment(center, height)
	box := c.queryBox(a, b)
	c.scratch = c.Mesh.QueryAABB(box, c.scratch[:0])
	for _, i := range c.scratch {
		tri := c.Mesh.Triangle(i)
		if contact, ok := geometry.CapsuleToTriangle(a, b, c.Config.Radius, tri.A, tri.B, tri.C, true); ok && contact.Depth > overlapTolerance {
			return true
		}
	}
	return false
}
