//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"
)

// InitializeEngine builds an Engine from the config file at path.
func InitializeEngine(path string) (*Engine, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
