package network

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/delaynet/internal/dynamo"
	"github.com/san-kum/delaynet/internal/integrators"
	"github.com/san-kum/delaynet/internal/model"
)

// kernel advances a unit through one step of MinBuffSize sub-steps starting
// from state x0 at time t. inp[k] holds the port sums for sub-step k and
// out[k] receives the state after it.
type kernel func(x0 []float64, inp [][]float64, t float64, out [][]float64) error

// Methods that flat mode replaces with forward Euler.
var eulerSubstitutes = map[string]string{
	"rk4":       "rk4",
	"odeint":    "rk45",
	"solve_ivp": "rk45",
}

// bind chooses the integration kernel of every unit. In flat mode only the
// sub-step methods are available; higher-order solvers fall back to Euler.
// No unit is modified unless every unit can be bound.
func (n *Network) bind(flat bool) error {
	kernels := make([]kernel, len(n.units))
	substituted := make(map[string]int)

	for i, u := range n.units {
		if u.source != nil {
			continue
		}
		method := u.Integ
		if solver, ok := eulerSubstitutes[method]; ok {
			if flat {
				substituted[method]++
				method = "euler"
			} else {
				integ, err := integrators.New(solver, n.cfg)
				if err != nil {
					return fmt.Errorf("%w: unit %d: %v", dynamo.ErrIntegration, u.ID, err)
				}
				kernels[i] = n.solverKernel(u, integ)
				continue
			}
		}
		k, err := n.subStepKernel(u, method)
		if err != nil {
			return err
		}
		kernels[i] = k
	}

	for method, count := range substituted {
		n.log.Info("flat mode integrates with euler",
			slog.String("requested", method),
			slog.Int("units", count),
		)
	}
	for i, u := range n.units {
		u.kernel = kernels[i]
	}
	n.bound = true
	return nil
}

func (n *Network) subStepKernel(u *Unit, method string) (kernel, error) {
	switch method {
	case "euler":
		return n.eulerKernel(u, nil), nil
	case "euler_maru":
		st, ok := u.Model.(model.Stochastic)
		if !ok {
			return nil, fmt.Errorf("%w: %s units have no noise model for euler_maru", dynamo.ErrIntegration, u.Type)
		}
		return n.eulerKernel(u, st), nil
	case "exp_euler":
		ed, ok := u.Model.(model.ExpDecay)
		if !ok || u.Dim() != 1 {
			return nil, fmt.Errorf("%w: %s units do not support exp_euler", dynamo.ErrIntegration, u.Type)
		}
		st, _ := u.Model.(model.Stochastic)
		return n.expEulerKernel(ed, st), nil
	}
	return nil, fmt.Errorf("%w: %q for unit %d", dynamo.ErrIntegration, method, u.ID)
}

// eulerKernel integrates with forward Euler. With a noise model it becomes
// Euler-Maruyama; drift and diffusion act on the activity only.
func (n *Network) eulerKernel(u *Unit, st model.Stochastic) kernel {
	bit := n.bit
	drift, diffusion := noiseScale(st, bit)
	return func(x0 []float64, inp [][]float64, t float64, out [][]float64) error {
		x := dynamo.State(x0)
		for k := range out {
			dx := u.Model.Derive(x, inp[k], t+float64(k)*bit)
			for v := range out[k] {
				out[k][v] = x[v] + bit*dx[v]
			}
			if st != nil {
				out[k][0] += drift + diffusion*n.rng.NormFloat64()
			}
			x = out[k]
		}
		return nil
	}
}

// expEulerKernel solves dx/dt = rate*(drive - x) exactly over each sub-step
// with the drive held constant.
func (n *Network) expEulerKernel(ed model.ExpDecay, st model.Stochastic) kernel {
	bit := n.bit
	drift, diffusion := noiseScale(st, bit)
	return func(x0 []float64, inp [][]float64, t float64, out [][]float64) error {
		eA := math.Exp(-ed.Rate() * bit)
		x := x0[0]
		for k := range out {
			drive := ed.Drive(x, inp[k], t+float64(k)*bit)
			x = drive + (x-drive)*eA
			if st != nil {
				x += drift + diffusion*n.rng.NormFloat64()
			}
			out[k][0] = x
		}
		return nil
	}
}

// noiseScale returns the per-sub-step drift mu*bit and diffusion
// sigma*sqrt(bit) of a noise model, fixed when the unit is bound.
func noiseScale(st model.Stochastic, bit float64) (drift, diffusion float64) {
	if st == nil {
		return 0, 0
	}
	mu, sigma := st.Noise()
	return mu * bit, sigma * math.Sqrt(bit)
}

type advancer interface {
	Advance(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, span float64) (dynamo.State, error)
}

// solverKernel runs a general ODE solver over each sub-step with that
// sub-step's inputs held constant.
func (n *Network) solverKernel(u *Unit, integ dynamo.Integrator) kernel {
	bit := n.bit
	sys := &unitSystem{m: u.Model}
	return func(x0 []float64, inp [][]float64, t float64, out [][]float64) error {
		x := dynamo.State(x0)
		for k := range out {
			sys.inp = inp[k]
			next, err := step(integ, sys, x, nil, t+float64(k)*bit, bit)
			if err != nil {
				return err
			}
			copy(out[k], next)
			x = out[k]
		}
		return nil
	}
}

func step(integ dynamo.Integrator, sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (dynamo.State, error) {
	if a, ok := integ.(advancer); ok {
		return a.Advance(sys, x, u, t, dt)
	}
	return integ.Step(sys, x, u, t, dt), nil
}

// unitSystem presents a unit with fixed inputs as a dynamo.System.
type unitSystem struct {
	m   model.Unit
	inp []float64
}

func (s *unitSystem) Derive(x dynamo.State, _ dynamo.Control, t float64) dynamo.State {
	return s.m.Derive(x, s.inp, t)
}

func (s *unitSystem) StateDim() int   { return s.m.Dim() }
func (s *unitSystem) ControlDim() int { return 0 }

// advancePlant integrates a plant through one step. inp[k] is its control
// vector during sub-step k.
func (n *Network) advancePlant(p *Plant, x0 []float64, inp [][]float64, t float64, out [][]float64) error {
	x := dynamo.State(x0)
	for k := range out {
		next, err := step(p.integ, p.Model, x, inp[k], t+float64(k)*n.bit, n.bit)
		if err != nil {
			return fmt.Errorf("plant %d: %w", p.ID, err)
		}
		copy(out[k], next)
		x = out[k]
	}
	return nil
}

// scratch holds per-step work arrays sized for the current structure.
type scratch struct {
	unitInp  [][][]float64
	unitOut  [][][]float64
	unitX    [][]float64
	plantInp [][][]float64
	plantOut [][][]float64
	plantX   [][]float64
}

func grid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}

func (n *Network) newScratch() *scratch {
	mbs := n.cfg.MinBuffSize
	s := &scratch{
		unitInp:  make([][][]float64, len(n.units)),
		unitOut:  make([][][]float64, len(n.units)),
		unitX:    make([][]float64, len(n.units)),
		plantInp: make([][][]float64, len(n.plants)),
		plantOut: make([][][]float64, len(n.plants)),
		plantX:   make([][]float64, len(n.plants)),
	}
	for i, u := range n.units {
		if u.source != nil {
			continue
		}
		s.unitInp[i] = grid(mbs, u.Ports)
		s.unitOut[i] = grid(mbs, u.Dim())
		s.unitX[i] = make([]float64, u.Dim())
	}
	for i, p := range n.plants {
		s.plantInp[i] = grid(mbs, len(p.inputs))
		s.plantOut[i] = grid(mbs, p.Model.StateDim())
		s.plantX[i] = make([]float64, p.Model.StateDim())
	}
	return s
}

func zero(g [][]float64) {
	for _, r := range g {
		for i := range r {
			r[i] = 0
		}
	}
}

// updateFilters moves every low-pass filter one step toward the newest
// activity of its unit.
func (n *Network) updateFilters() {
	for _, u := range n.units {
		if len(u.filters) == 0 {
			continue
		}
		act := n.Act(u.ID)
		for _, f := range u.filters {
			f.value = act + (f.value-act)*n.decay(f.tau)
		}
	}
}

func (n *Network) updateSynapses(t float64) {
	for _, s := range n.plastic {
		s.Update(t)
	}
}
