package character

import (
	"math"
	"math/rand"
	"testing"

	"github.com/akmonengine/strata/geometry"
	"github.com/akmonengine/strata/octree"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60.0

// flatFloor returns n*n quads of the given size at height y, centered on the origin.
func flatFloor(n int, size, y float64) []float64 {
	var buf []float64
	half := float64(n) * size / 2
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x0, z0 := float64(i)*size-half, float64(j)*size-half
			x1, z1 := x0+size, z0+size
			buf = geometry.AppendTriangle(buf, geometry.Triangle{
				A: mgl64.Vec3{x0, y, z0}, B: mgl64.Vec3{x0, y, z1}, C: mgl64.Vec3{x1, y, z0},
			})
			buf = geometry.AppendTriangle(buf, geometry.Triangle{
				A: mgl64.Vec3{x1, y, z0}, B: mgl64.Vec3{x0, y, z1}, C: mgl64.Vec3{x1, y, z1},
			})
		}
	}
	return buf
}

func buildMesh(t *testing.T, buf []float64) *octree.Octree {
	t.Helper()
	tree, err := octree.New(buf)
	require.NoError(t, err)
	return tree
}

// settle drops a controller on the floor and waits until it rests.
func settle(t *testing.T, c *Controller) {
	t.Helper()
	for i := 0; i < 120; i++ {
		c.Step(Input{}, dt)
	}
	require.True(t, c.State().Grounded, "controller did not land")
}

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Height = 0.5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.CrouchHeight = 3
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.CollisionIterations = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestNewController_FeetOnSpawn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{1, 2, 3}
	c := NewController(cfg, nil, nil)

	assert.True(t, c.Feet().ApproxEqual(cfg.Spawn))
	assert.InDelta(t, 3.0, c.State().Position.Y(), 1e-12)
	assert.False(t, c.State().Grounded)
}

// =============================================================================
// Landing
// =============================================================================

func TestStep_LandsOnFlatFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{0.3, 10, 0.3}
	c := NewController(cfg, buildMesh(t, flatFloor(8, 4, 0)), nil)

	for i := 0; i < 150; i++ {
		c.Step(Input{}, dt)
	}

	state := c.State()
	assert.InDelta(t, 0.0, c.Feet().Y(), 0.05)
	assert.True(t, state.Grounded)
	assert.Less(t, math.Abs(state.Velocity.Y()), 0.1)
	assert.InDelta(t, 1.0, state.GroundNormal.Y(), 1e-9)
	assert.Equal(t, uint64(150), state.Tick)
}

func TestStep_WalksOnFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{0.3, 0, 0.3}
	c := NewController(cfg, buildMesh(t, flatFloor(8, 4, 0)), nil)
	settle(t, c)

	start := c.State().Position
	for i := 0; i < 30; i++ {
		c.Step(Input{Move: mgl64.Vec2{1, 0}}, dt)
	}

	state := c.State()
	assert.Greater(t, state.Position.X()-start.X(), 1.0)
	assert.InDelta(t, start.Z(), state.Position.Z(), 1e-9)
	assert.InDelta(t, 0.0, c.Feet().Y(), 0.05)
	assert.True(t, state.Grounded)

	// ground drag stops the character once the input is released
	for i := 0; i < 120; i++ {
		c.Step(Input{}, dt)
	}
	assert.Less(t, c.State().Velocity.Len(), 0.05)
}

func TestStep_LargeFrictionStopsWithoutReversing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{0.3, 0, 0.3}
	cfg.Friction = 1000
	c := NewController(cfg, buildMesh(t, flatFloor(8, 4, 0)), nil)
	settle(t, c)

	state := c.State()
	state.Velocity = mgl64.Vec3{3, 0, -2}
	c.Restore(state)

	state = c.Step(Input{}, dt)
	assert.True(t, state.Grounded)
	assert.InDelta(t, 0.0, state.Velocity.X(), 1e-12)
	assert.InDelta(t, 0.0, state.Velocity.Z(), 1e-12)
}

// =============================================================================
// Slopes
// =============================================================================

// slope returns a quad through the origin whose normal leans toward +X by angle radians.
func slope(angle, size float64) ([]float64, mgl64.Vec3) {
	normal := mgl64.Vec3{math.Sin(angle), math.Cos(angle), 0}
	at := func(x, z float64) mgl64.Vec3 {
		return mgl64.Vec3{x, -x * math.Tan(angle), z}
	}

	var buf []float64
	buf = geometry.AppendTriangle(buf, geometry.Triangle{A: at(-size, -size), B: at(-size, size), C: at(size, -size)})
	buf = geometry.AppendTriangle(buf, geometry.Triangle{A: at(size, -size), B: at(-size, size), C: at(size, size)})
	return buf, normal
}

func TestStep_SteepSlopeSlides(t *testing.T) {
	buf, normal := slope(50*math.Pi/180, 20)
	require.Less(t, normal.Y(), DefaultConfig().GroundThreshold)

	c := NewController(DefaultConfig(), buildMesh(t, buf), nil)

	// bottom sphere resting on the slope at x = -5
	surface := mgl64.Vec3{-5, 5 * math.Tan(50*math.Pi/180), -10}
	bottom := surface.Add(normal.Mul(c.Config.Radius))
	state := c.State()
	state.Position = bottom.Add(up.Mul(c.Config.Height/2 - c.Config.Radius))
	c.Restore(state)

	previousSpeed := 0.0
	for i := 0; i < 40; i++ {
		state = c.Step(Input{}, dt)
		require.False(t, state.Grounded, "tick %d reported grounded on a 50 degree slope", i)

		speed := state.Velocity.X()
		if i > 2 {
			assert.Greater(t, speed, previousSpeed, "tick %d: not accelerating downhill", i)
		}
		previousSpeed = speed
	}
	assert.Greater(t, state.Position.X(), -5.0)
}

func TestStep_GentleSlopeStaysGrounded(t *testing.T) {
	buf, normal := slope(20*math.Pi/180, 20)
	require.Greater(t, normal.Y(), DefaultConfig().GroundThreshold)

	cfg := DefaultConfig()
	// away from the diagonal shared by both triangles
	cfg.Spawn = mgl64.Vec3{2, 1, -8}
	c := NewController(cfg, buildMesh(t, buf), nil)
	settle(t, c)

	// ground drag balances the downhill pull: the slide settles at a bounded speed
	angle := 20 * math.Pi / 180
	terminal := cfg.Gravity * math.Sin(angle) * (1 - cfg.Friction*dt) / cfg.Friction

	var state State
	for i := 0; i < 60; i++ {
		state = c.Step(Input{}, dt)
		require.True(t, state.Grounded, "tick %d left a walkable slope", i)
	}

	assert.InDelta(t, normal.Y(), state.GroundNormal.Y(), 1e-9)
	assert.InDelta(t, 0.0, state.Velocity.Dot(normal), 1e-9)
	assert.Greater(t, state.Velocity.X(), 0.0, "slide is not downhill")
	assert.InDelta(t, terminal, state.Velocity.Len(), 0.05)
	assert.Less(t, state.Velocity.Len(), cfg.Gravity*math.Sin(angle)/cfg.Friction)
}

func TestStep_WalkableSlopeClearsVelocityIntoRealNormal(t *testing.T) {
	buf, normal := slope(30*math.Pi/180, 20)
	require.Greater(t, normal.Y(), DefaultConfig().GroundThreshold)

	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{2, 1, -8}
	c := NewController(cfg, buildMesh(t, buf), nil)
	settle(t, c)

	// drive uphill, straight into the slope
	state := c.State()
	state.Velocity = mgl64.Vec3{-4, 0, 0}
	c.Restore(state)

	state = c.Step(Input{}, dt)
	require.True(t, state.Grounded)
	assert.InDelta(t, normal.Y(), state.GroundNormal.Y(), 1e-9)
	assert.GreaterOrEqual(t, state.Velocity.Dot(normal), -1e-9)
}

// =============================================================================
// Jump
// =============================================================================

func TestStep_JumpFromGround(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{0.3, 0, 0.3}
	c := NewController(cfg, buildMesh(t, flatFloor(8, 4, 0)), nil)
	settle(t, c)

	state := c.Step(Input{Jump: true}, dt)
	assert.False(t, state.Grounded)
	assert.InDelta(t, cfg.JumpVelocity, state.Velocity.Y(), 1e-9)
	assert.Greater(t, c.Feet().Y(), 0.1)

	// the jump is consumed: holding the flag in the air does not jump again
	state = c.Step(Input{Jump: true}, dt)
	assert.Less(t, state.Velocity.Y(), cfg.JumpVelocity)
}

func TestStep_CoyoteTime(t *testing.T) {
	tests := []struct {
		name       string
		ticksInAir int
		expectJump bool
	}{
		{"just walked off", 3, true},
		{"too late", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Spawn = mgl64.Vec3{0.3, 0, 0.3}
			c := NewController(cfg, buildMesh(t, flatFloor(8, 4, 0)), nil)
			settle(t, c)

			// the ground disappears, as when walking off a ledge
			c.Mesh = nil
			for i := 0; i < tt.ticksInAir; i++ {
				c.Step(Input{}, dt)
			}

			state := c.Step(Input{Jump: true}, dt)
			if tt.expectJump {
				assert.InDelta(t, cfg.JumpVelocity, state.Velocity.Y(), 1e-9)
			} else {
				assert.Less(t, state.Velocity.Y(), 0.0)
			}
		})
	}
}

func TestStep_JumpBuffer(t *testing.T) {
	tests := []struct {
		name         string
		sincePressed float64
		pressNow     bool
		expectJump   bool
	}{
		// 3 ticks of fall, then the landing tick: 0.05s after the press
		{"pressed just before landing", 0, true, true},
		{"pressed long before landing", 0.1, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			c := NewController(cfg, buildMesh(t, flatFloor(8, 4, 0)), nil)

			state := c.State()
			state.Position = mgl64.Vec3{0.3, cfg.Height/2 + 0.02, 0.3}
			state.SinceJumpPressed = tt.sincePressed
			c.Restore(state)

			state = c.Step(Input{Jump: tt.pressNow}, dt)
			require.False(t, state.Grounded)
			state = c.Step(Input{}, dt)
			require.False(t, state.Grounded)
			state = c.Step(Input{}, dt)
			require.True(t, state.Grounded, "did not land on the third tick")

			state = c.Step(Input{}, dt)
			if tt.expectJump {
				assert.InDelta(t, cfg.JumpVelocity, state.Velocity.Y(), 1e-9)
			} else {
				assert.True(t, state.Grounded)
			}
		})
	}
}

// =============================================================================
// Crouch
// =============================================================================

func TestStep_CrouchKeepsFeetPlanted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{0.3, 0, 0.3}
	c := NewController(cfg, buildMesh(t, flatFloor(8, 4, 0)), nil)
	settle(t, c)
	feet := c.Feet()

	state := c.Step(Input{Crouch: true}, dt)
	assert.True(t, state.Crouching)
	assert.Equal(t, cfg.CrouchHeight, c.Height())
	assert.InDelta(t, feet.Y(), c.Feet().Y(), 1e-3)

	state = c.Step(Input{}, dt)
	assert.False(t, state.Crouching)
	assert.Equal(t, cfg.Height, c.Height())
	assert.InDelta(t, feet.Y(), c.Feet().Y(), 1e-3)
}

func TestStep_CrouchBlockedByCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{0.3, 0, 0.3}
	buf := append(flatFloor(8, 4, 0), flatFloor(2, 4, 1.5)...)
	c := NewController(cfg, buildMesh(t, buf), nil)

	state := c.Step(Input{Crouch: true}, dt)
	require.True(t, state.Crouching)
	for i := 0; i < 30; i++ {
		state = c.Step(Input{Crouch: true}, dt)
	}
	require.True(t, state.Grounded)

	state = c.Step(Input{}, dt)
	assert.True(t, state.Crouching, "stood up under a 1.5m ceiling")
	assert.Less(t, c.Feet().Y()+c.Height(), 1.5)
}

// =============================================================================
// World floor
// =============================================================================

func TestStep_WorldFloorResetsToSpawn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{4, 2, -1}
	c := NewController(cfg, nil, nil)

	state := c.State()
	state.Position = mgl64.Vec3{10, cfg.WorldFloor + cfg.Height/2 + 0.01, 10}
	state.Velocity = mgl64.Vec3{3, -5, 0}
	state.Tick = 41
	c.Restore(state)

	state = c.Step(Input{}, dt)
	assert.True(t, c.Feet().ApproxEqual(cfg.Spawn))
	assert.Equal(t, mgl64.Vec3{}, state.Velocity)
	assert.Equal(t, uint64(42), state.Tick)
}

// =============================================================================
// Determinism
// =============================================================================

func randomInputs(seed int64, n int) []Input {
	r := rand.New(rand.NewSource(seed))
	inputs := make([]Input, n)
	for i := range inputs {
		inputs[i] = Input{
			Seq:    uint64(i + 1),
			Move:   mgl64.Vec2{r.Float64()*2 - 1, r.Float64()*2 - 1},
			Jump:   r.Intn(20) == 0,
			Crouch: r.Intn(10) == 0,
		}
	}
	return inputs
}

func TestStep_Deterministic(t *testing.T) {
	mesh := buildMesh(t, flatFloor(8, 4, 0))
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{0.3, 3, 0.3}

	a := NewController(cfg, mesh, nil)
	b := NewController(cfg, mesh, nil)
	for _, input := range randomInputs(7, 300) {
		sa := a.Step(input, dt)
		sb := b.Step(input, dt)
		require.Equal(t, sa, sb)
	}
}
