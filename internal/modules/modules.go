// Package modules lists the modules compiled into vmesh.
package modules

import (
	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/mesh"
	"github.com/roach88/vmesh/internal/mesher"
	"github.com/roach88/vmesh/internal/meshio"
)

// Builtin returns the built-in modules in load order. Data type modules come
// before the algorithm modules that use them.
func Builtin() []engine.Module {
	return []engine.Module{mesh.Module, mesher.Module, meshio.Module}
}

// LoadBuiltin loads every built-in module into c.
func LoadBuiltin(c *engine.Context) error {
	for _, m := range Builtin() {
		if err := c.LoadModule(m); err != nil {
			return err
		}
	}
	return nil
}
