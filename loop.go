package strata

import "time"

// Loop drives a World at a fixed rate from variable frame times. It never reads the
// clock: the host passes the elapsed time of each frame.
type Loop struct {
	World *World
	Dt    float64
	// MaxFrameTime caps the time a single Update may add, so that a long pause does not
	// trigger a burst of catch-up steps
	MaxFrameTime float64
	// OnTick runs before each World.Step, the place for inputs and character controllers
	OnTick func(dt float64)

	accumulator float64
	ticks       uint64
}

func NewLoop(world *World, cfg Config) *Loop {
	return &Loop{
		World:        world,
		Dt:           cfg.Dt,
		MaxFrameTime: cfg.MaxFrameTime,
	}
}

// Update accumulates elapsed and runs as many fixed steps as it covers. It returns the
// number of steps run.
func (l *Loop) Update(elapsed time.Duration) int {
	if l.Dt <= 0 {
		return 0
	}

	frame := elapsed.Seconds()
	if frame < 0 {
		frame = 0
	}
	if l.MaxFrameTime > 0 && frame > l.MaxFrameTime {
		frame = l.MaxFrameTime
	}
	l.accumulator += frame

	steps := 0
	for l.accumulator >= l.Dt {
		if l.OnTick != nil {
			l.OnTick(l.Dt)
		}
		if l.World != nil {
			l.World.Step(l.Dt)
		}
		l.accumulator -= l.Dt
		l.ticks++
		steps++
	}

	return steps
}

// Alpha is the fraction of a step left in the accumulator, for render interpolation.
func (l *Loop) Alpha() float64 {
	if l.Dt <= 0 {
		return 0
	}
	return l.accumulator / l.Dt
}

// Ticks returns the number of fixed steps run so far.
func (l *Loop) Ticks() uint64 {
	return l.ticks
}
