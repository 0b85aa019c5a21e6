package character

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictor_ReconcileWithMatchingServer(t *testing.T) {
	mesh := buildMesh(t, flatFloor(8, 4, 0))
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{0.3, 1, 0.3}

	client := NewPredictor(NewController(cfg, mesh, nil), dt)
	server := NewController(cfg, mesh, nil)

	inputs := randomInputs(3, 120)
	var acked State
	for i, input := range inputs {
		client.Apply(input)
		if i < 80 {
			acked = server.Step(input, dt)
		}
	}
	require.Equal(t, 120, client.Pending())

	before := client.Controller.State()
	after := client.Reconcile(inputs[79].Seq, acked)

	assert.Equal(t, 40, client.Pending())
	assert.Equal(t, before, after)
}

func TestPredictor_ReconcileCorrectsDivergence(t *testing.T) {
	mesh := buildMesh(t, flatFloor(8, 4, 0))
	cfg := DefaultConfig()
	cfg.Spawn = mgl64.Vec3{0.3, 0, 0.3}

	client := NewPredictor(NewController(cfg, mesh, nil), dt)
	server := NewController(cfg, mesh, nil)

	inputs := make([]Input, 20)
	for i := range inputs {
		inputs[i] = Input{Seq: uint64(i + 1), Move: mgl64.Vec2{1, 0}}
	}
	for _, input := range inputs {
		client.Apply(input)
	}

	// the server was pushed 2m along Z before processing the first 10 inputs
	shifted := server.State()
	shifted.Position[2] += 2
	server.Restore(shifted)
	var acked State
	for _, input := range inputs[:10] {
		acked = server.Step(input, dt)
	}

	expected := Replay(NewController(cfg, mesh, nil), acked, inputs[10:], dt)
	got := client.Reconcile(10, acked)

	assert.Equal(t, expected, got)
	assert.InDelta(t, 2.3, got.Position.Z(), 1e-6)
	assert.Equal(t, 10, client.Pending())
}

func TestReplay_NoInputs(t *testing.T) {
	c := NewController(DefaultConfig(), nil, nil)
	state := State{Position: mgl64.Vec3{1, 2, 3}, Tick: 9}

	got := Replay(c, state, nil, dt)
	assert.Equal(t, state, got)
	assert.Equal(t, state, c.State())
}
