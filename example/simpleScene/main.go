package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/akmonengine/strata"
	"github.com/akmonengine/strata/actor"
	"github.com/akmonengine/strata/character"
	"github.com/akmonengine/strata/geometry"
	"github.com/akmonengine/strata/logging"
	"github.com/akmonengine/strata/navigation"
	"github.com/go-gl/mathgl/mgl64"
)

// buildLevel crée un sol de 20x20m et une rampe de 20° vers +X
func buildLevel() []float64 {
	var buf []float64
	quad := func(a, b, c, d mgl64.Vec3) {
		buf = geometry.AppendTriangle(buf, geometry.Triangle{A: a, B: b, C: c})
		buf = geometry.AppendTriangle(buf, geometry.Triangle{A: a, B: c, C: d})
	}

	for x := -10.0; x < 10; x += 2 {
		for z := -10.0; z < 10; z += 2 {
			quad(mgl64.Vec3{x, 0, z}, mgl64.Vec3{x, 0, z + 2}, mgl64.Vec3{x + 2, 0, z + 2}, mgl64.Vec3{x + 2, 0, z})
		}
	}

	// rampe: 4m de long, 1.45m de haut
	quad(mgl64.Vec3{4, 0, -6}, mgl64.Vec3{4, 0, -2}, mgl64.Vec3{8, 1.45, -2}, mgl64.Vec3{8, 1.45, -6})

	return buf
}

// SetupScene crée le monde, quelques corps et le personnage
func SetupScene(cfg strata.Config, logger logging.Logger) (*strata.World, *character.Predictor, error) {
	world := strata.NewWorld(cfg, logger)
	if err := world.SetStaticMesh(buildLevel()); err != nil {
		return nil, nil, err
	}

	for i := 0; i < 5; i++ {
		transform := actor.NewTransform()
		transform.Position = mgl64.Vec3{float64(i) - 2, 3 + float64(i), 2}

		var body *actor.RigidBody
		if i%2 == 0 {
			body = actor.NewRigidBody(transform, 1.0, actor.NewSphere(0.5, mgl64.Vec3{}))
		} else {
			body = actor.NewRigidBody(transform, 2.0, actor.NewCapsule(0.4, 1.6, mgl64.Vec3{}))
		}
		if err := world.AddBody(body); err != nil {
			return nil, nil, err
		}
	}

	// zone de déclenchement posée au sol
	sensor := actor.NewSphere(1.5, mgl64.Vec3{})
	sensor.IsTrigger = true
	transform := actor.NewTransform()
	transform.Position = mgl64.Vec3{0, 0.5, 2}
	sensorBody := actor.NewRigidBody(transform, 0, sensor)
	sensorBody.Frozen = true
	if err := world.AddBody(sensorBody); err != nil {
		return nil, nil, err
	}

	controller := character.NewController(cfg.Character, world.Mesh(), logger)
	return world, character.NewPredictor(controller, cfg.Dt), nil
}

func horizontal(v mgl64.Vec3) mgl64.Vec2 {
	return mgl64.Vec2{v.X(), v.Z()}
}

func subscribe(world *strata.World) {
	world.Events.Subscribe(strata.COLLISION_ENTER, func(event strata.Event) {
		e := event.(strata.CollisionEnterEvent)
		if e.BodyB == nil {
			fmt.Printf("🎯 %s touche le sol\n", e.BodyA.ID)
			return
		}
		fmt.Printf("💥 %s touche %s\n", e.BodyA.ID, e.BodyB.ID)
	})
	world.Events.Subscribe(strata.TRIGGER_ENTER, func(event strata.Event) {
		e := event.(strata.TriggerEnterEvent)
		fmt.Printf("🔔 %s entre dans une zone\n", e.BodyA.ID)
	})
	world.Events.Subscribe(strata.ON_FLOOR_RESET, func(event strata.Event) {
		fmt.Printf("⬆️  %s replacé au spawn\n", event.(strata.FloorResetEvent).Body.ID)
	})
}

func main() {
	configPath := flag.String("config", "", "YAML config file, defaults when empty")
	frames := flag.Int("frames", 240, "number of rendered frames to simulate")
	flag.Parse()

	cfg := strata.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = strata.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	logger := logging.New(os.Stderr, "simpleScene", cfg.LogLevel())

	world, predictor, err := SetupScene(cfg, logger)
	if err != nil {
		logger.Errorf("setup: %v", err)
		os.Exit(1)
	}
	subscribe(world)

	grid, err := navigation.Build(world.Mesh(), 0.5, cfg.Character.Height)
	if err != nil {
		logger.Errorf("navigation: %v", err)
		os.Exit(1)
	}
	path, err := grid.FindPath(predictor.Controller.Feet(), mgl64.Vec3{6, 0.725, -4})
	if err != nil {
		// le personnage reste sur place
		logger.Warnf("navigation: %v", err)
	}
	fmt.Printf("🧭 chemin de %d points vers la rampe\n", len(path))

	// le personnage suit le chemin, une entrée par tick
	var seq uint64
	next := 1
	loop := strata.NewLoop(world, cfg)
	loop.OnTick = func(dt float64) {
		feet := predictor.Controller.Feet()
		input := character.Input{Seq: seq}
		seq++

		for next < len(path) && horizontal(path[next].Sub(feet)).Len() < 0.3 {
			next++
		}
		if next < len(path) {
			input.Move = horizontal(path[next].Sub(feet))
		}

		state := predictor.Apply(input)
		// le serveur acquitte tout de suite dans cette démo
		predictor.Reconcile(input.Seq, state)
	}

	// frames de rendu irrégulières, entre 10 et 25ms
	for frame := 0; frame < *frames; frame++ {
		elapsed := time.Duration(10+frame%16) * time.Millisecond
		if steps := loop.Update(elapsed); steps > 0 && loop.Ticks()%60 == 0 {
			state := predictor.Controller.State()
			stats := world.Stats()
			fmt.Printf("--- TICK %d ---\n", loop.Ticks())
			fmt.Printf("  Personnage: %v (au sol: %v)\n", predictor.Controller.Feet(), state.Grounded)
			fmt.Printf("  Contacts: %d, résolus: %d, paires: %d\n", stats.Contacts, stats.Solved, stats.Pairs)
			for _, body := range world.Bodies {
				if !body.Frozen {
					fmt.Printf("  %s: %v\n", body.ID, body.Transform.Position)
				}
			}
		}
	}

	fmt.Println("Simulation terminée!")
}
