// Package integrators provides fixed-step and adaptive ODE solvers used to
// advance plants between buffer samples.
package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/delaynet/internal/dynamo"
)

var constructors = map[string]func(cfg dynamo.Config) dynamo.Integrator{
	"euler":    func(dynamo.Config) dynamo.Integrator { return NewEuler() },
	"rk4":      func(dynamo.Config) dynamo.Integrator { return NewRK4() },
	"rk45":     func(cfg dynamo.Config) dynamo.Integrator { return NewRK45WithTolerance(cfg.RTol, cfg.ATol) },
	"verlet":   func(dynamo.Config) dynamo.Integrator { return NewVerlet() },
	"leapfrog": func(dynamo.Config) dynamo.Integrator { return NewLeapfrog() },
}

// New returns the integrator registered under name. rk45 takes its
// tolerances from cfg.
func New(name string, cfg dynamo.Config) (dynamo.Integrator, error) {
	fn, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(cfg), nil
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
