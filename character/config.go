package character

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrInvalidConfig = errors.New("character: invalid config")

// Config tunes a Controller. Distances are in meters, times in seconds.
type Config struct {
	Radius       float64 `yaml:"radius"`
	Height       float64 `yaml:"height"`
	CrouchHeight float64 `yaml:"crouch_height"`

	// Gravity is the downward acceleration magnitude
	Gravity float64 `yaml:"gravity"`
	// Friction is the decay rate of the ground-plane velocity while grounded
	Friction         float64 `yaml:"friction"`
	MoveAcceleration float64 `yaml:"move_acceleration"`
	// AirControl scales MoveAcceleration while airborne
	AirControl float64 `yaml:"air_control"`

	JumpVelocity float64 `yaml:"jump_velocity"`
	// JumpLift nudges the capsule up on take-off so the ground is not hit again
	JumpLift   float64 `yaml:"jump_lift"`
	CoyoteTime float64 `yaml:"coyote_time"`
	JumpBuffer float64 `yaml:"jump_buffer"`

	// GroundThreshold is the minimal up component of a contact normal snapped to up
	GroundThreshold     float64 `yaml:"ground_threshold"`
	CollisionIterations int     `yaml:"collision_iterations"`
	QueryMargin         float64 `yaml:"query_margin"`

	WorldFloor float64    `yaml:"world_floor"`
	Spawn      mgl64.Vec3 `yaml:"spawn"`
}

func DefaultConfig() Config {
	return Config{
		Radius:              0.5,
		Height:              2.0,
		CrouchHeight:        1.2,
		Gravity:             20.0,
		Friction:            8.0,
		MoveAcceleration:    60.0,
		AirControl:          0.3,
		JumpVelocity:        7.0,
		JumpLift:            0.01,
		CoyoteTime:          0.11,
		JumpBuffer:          0.08,
		GroundThreshold:     0.75,
		CollisionIterations: 3,
		QueryMargin:         0.1,
		WorldFloor:          -30,
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch {
	case c.Radius <= 0:
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidConfig, c.Radius)
	case c.Height < 2*c.Radius:
		return fmt.Errorf("%w: height %v is shorter than the diameter", ErrInvalidConfig, c.Height)
	case c.CrouchHeight < 2*c.Radius || c.CrouchHeight > c.Height:
		return fmt.Errorf("%w: crouch height %v must lie in [%v, %v]", ErrInvalidConfig, c.CrouchHeight, 2*c.Radius, c.Height)
	case c.CollisionIterations < 1:
		return fmt.Errorf("%w: collision iterations must be at least 1", ErrInvalidConfig)
	case c.GroundThreshold <= 0 || c.GroundThreshold > 1:
		return fmt.Errorf("%w: ground threshold %v out of (0, 1]", ErrInvalidConfig, c.GroundThreshold)
	case c.CoyoteTime < 0 || c.JumpBuffer < 0:
		return fmt.Errorf("%w: jump windows must not be negative", ErrInvalidConfig)
	}
	return nil
}
