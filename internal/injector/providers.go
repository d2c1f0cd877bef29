// Package injector wires configuration, logging, the event dispatcher, the
// scene registry and the frame runner into one Engine.
package injector

import (
	"fmt"

	"github.com/google/wire"

	"github.com/zeusync/scenecore/internal/config"
	"github.com/zeusync/scenecore/internal/core/events"
	"github.com/zeusync/scenecore/internal/core/frame"
	"github.com/zeusync/scenecore/internal/core/observability/log"
	"github.com/zeusync/scenecore/internal/core/scene"
	"github.com/zeusync/scenecore/internal/core/transform"
)

// Engine is everything a scene host needs, fully wired.
type Engine struct {
	Config     *config.Config
	Logger     *log.Logger
	Dispatcher *events.Dispatcher
	Registry   *scene.Registry[transform.Affine]
	Runner     *frame.Runner[transform.Affine]
}

var ProviderSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideDispatcher,
	ProvideRegistry,
	ProvideRunner,
	wire.Struct(new(Engine), "*"),
)

// ProvideConfig loads path, or returns the defaults when path is empty.
func ProvideConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func ProvideLogger(cfg *config.Config) (*log.Logger, error) {
	return log.NewWithConfig(log.Config{
		Level:    cfg.Logging.Level,
		Encoding: cfg.Logging.Encoding,
	})
}

func ProvideDispatcher() *events.Dispatcher {
	return events.New()
}

func ProvideRegistry(cfg *config.Config, logger *log.Logger, d *events.Dispatcher) (*scene.Registry[transform.Affine], error) {
	policy, err := scene.ParsePolicy(cfg.Scene.DestroyPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return scene.NewRegistry[transform.Affine](transform.AffineComposer{},
		scene.WithPolicy(policy),
		scene.WithLogger(logger),
		scene.WithPublisher(d),
		scene.WithCapacity(cfg.Scene.InitialCapacity),
		scene.WithMaxEntities(cfg.Scene.MaxEntities),
		scene.WithMaxGeneration(cfg.Scene.MaxGeneration),
	), nil
}

func ProvideRunner(cfg *config.Config, r *scene.Registry[transform.Affine], logger *log.Logger) *frame.Runner[transform.Affine] {
	return frame.NewRunner(r,
		frame.WithWorkers(cfg.Frame.Workers),
		frame.WithLogger(logger),
	)
}
