package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/scenecore/internal/core/events"
	"github.com/zeusync/scenecore/internal/core/handle"
	"github.com/zeusync/scenecore/internal/core/observability/log"
	"github.com/zeusync/scenecore/internal/core/scene"
	"github.com/zeusync/scenecore/internal/core/transform"
	"github.com/zeusync/scenecore/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to a .yaml or .toml config file")
	frames := flag.Int("frames", 0, "stop after this many frames (0 runs until interrupted)")
	flag.Parse()

	if err := run(*configPath, *frames); err != nil {
		fmt.Fprintln(os.Stderr, "scenedemo:", err)
		os.Exit(1)
	}
}

func run(configPath string, frames int) error {
	engine, err := injector.InitializeEngine(configPath)
	if err != nil {
		return err
	}
	logger := engine.Logger
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err = engine.Dispatcher.Subscribe(scene.EventEntityDestroyed, func(e events.Event) error {
		if d, ok := e.Data().(scene.EntityDestroyed); ok {
			logger.Info("entity destroyed", log.Stringer("entity", d.Handle), log.Stringer("parent", d.Parent))
		}
		return nil
	}); err != nil {
		return err
	}

	s := newSolarSystem(engine.Runner.Defer)
	engine.Runner.AddReader("positions", func(ctx context.Context, r *scene.Registry[transform.Affine]) error {
		return engine.Runner.ForEachParallel(ctx, func(_ context.Context, h handle.Handle) error {
			e, ok := r.Get(h)
			if !ok || !e.Capabilities.Has(scene.CapRenderable) {
				return nil
			}
			w, err := r.Scene().WorldTransform(h)
			if err != nil {
				return err
			}
			x, y := w.Position2()
			logger.Debug("world position",
				log.String("name", e.Name),
				log.Float64("x", x),
				log.Float64("y", y),
			)
			return nil
		})
	})

	tick := engine.Config.Frame.TickRate
	logger.Info("scene demo started",
		log.String("policy", engine.Registry.Policy().String()),
		log.Int("workers", engine.Runner.Workers()),
		log.Duration("tick", tick),
	)

	update := func(ctx context.Context, r *scene.Registry[transform.Affine]) error {
		frame := engine.Runner.Frame() + 1
		if err := s.advance(r, frame); err != nil {
			return err
		}
		if frames > 0 && frame >= uint64(frames) {
			stop()
		}
		return nil
	}
	if err := engine.Runner.Run(ctx, tick, update); err != nil {
		return err
	}

	st := engine.Registry.Stats()
	logger.Info("scene demo stopped",
		log.Uint64("frames", engine.Runner.Frame()),
		log.Int("live", st.Live),
		log.Uint64("created", st.Created),
		log.Uint64("destroyed", st.Destroyed),
		log.Uint64("recomputed", st.Recomputed),
	)
	return nil
}

// solarSystem is a sun with orbiting planets, each with a moon. A comet is
// spawned every few frames and queued for destruction a few frames later.
type solarSystem struct {
	sun     handle.Handle
	planets []handle.Handle
	comets  []handle.Handle
	destroy func(handle.Handle)
}

func newSolarSystem(destroy func(handle.Handle)) *solarSystem {
	return &solarSystem{sun: handle.Root, destroy: destroy}
}

func (s *solarSystem) build(r *scene.Registry[transform.Affine]) error {
	g := r.Scene()
	sun, err := r.Create(handle.Root, scene.WithName("sun"), scene.WithCapabilities(scene.CapSpatial|scene.CapRenderable|scene.CapLight))
	if err != nil {
		return err
	}
	s.sun = sun
	for i := 0; i < 3; i++ {
		planet, err := r.Create(sun, scene.WithName(fmt.Sprintf("planet-%d", i)), scene.WithCapabilities(scene.CapSpatial|scene.CapRenderable))
		if err != nil {
			return err
		}
		if err := g.SetLocalTransform(planet, transform.Translate(float64(10*(i+1)), 0)); err != nil {
			return err
		}
		moon, err := r.Create(planet, scene.WithName(fmt.Sprintf("moon-%d", i)), scene.WithCapabilities(scene.CapSpatial|scene.CapRenderable))
		if err != nil {
			return err
		}
		if err := g.SetLocalTransform(moon, transform.Translate(2, 0)); err != nil {
			return err
		}
		s.planets = append(s.planets, planet)
	}
	return nil
}

func (s *solarSystem) advance(r *scene.Registry[transform.Affine], frame uint64) error {
	if s.sun.IsRoot() {
		return s.build(r)
	}
	g := r.Scene()
	for i, p := range s.planets {
		angle := float64(frame) * 0.05 / float64(i+1)
		orbit := transform.Rotate(angle).Mul(transform.Translate(float64(10*(i+1)), 0))
		if err := g.SetLocalTransform(p, orbit); err != nil {
			return err
		}
	}
	if frame%10 == 0 {
		comet, err := r.Create(s.sun, scene.WithName("comet"), scene.WithCapabilities(scene.CapSpatial|scene.CapRenderable))
		if err != nil {
			return err
		}
		if err := g.SetLocalTransform(comet, transform.Translate(50, 50*math.Sin(float64(frame)))); err != nil {
			return err
		}
		s.comets = append(s.comets, comet)
	}
	if len(s.comets) > 2 {
		s.destroy(s.comets[0])
		s.comets = s.comets[1:]
	}
	return nil
}
