// Package modkit wires API modules: shared deps, build options and the module contract
package modkit

import (
	"context"

	phttp "github.com/ditsyandrea22/celo-identity/internal/platform/net/http"
)

// Module is what the API root mounts and cross wires
type Module interface {
	// MountRoutes mounts HTTP routes; modules without an HTTP surface mount nothing
	MountRoutes(r phttp.Router)
	// Ports returns the module's port set for other modules to consume
	Ports() any
	Name() string
}

// Initializer is implemented by modules that own tables; Init must be repeatable
type Initializer interface {
	Init(ctx context.Context) error
}

// InitAll runs Init on every module that has one, stopping at the first failure
func InitAll(ctx context.Context, mods ...Module) error {
	for _, m := range mods {
		if in, ok := m.(Initializer); ok {
			if err := in.Init(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
