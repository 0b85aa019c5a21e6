package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and an orientation in 3D space
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// SetRotation normalizes q and keeps the cached inverse in sync.
func (t *Transform) SetRotation(q mgl64.Quat) {
	t.Rotation = q.Normalize()
	t.InverseRotation = t.Rotation.Inverse()
}

// ToWorld maps a point from local to world space.
func (t Transform) ToWorld(local mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(local).Add(t.Position)
}

// normalized replaces a zero quaternion, as left by a Transform literal, with identity.
func (t Transform) normalized() Transform {
	if t.Rotation == (mgl64.Quat{}) {
		t.Rotation = mgl64.QuatIdent()
	}
	t.SetRotation(t.Rotation)
	return t
}
