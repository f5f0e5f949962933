package network

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/delaynet/internal/dynamo"
	"github.com/san-kum/delaynet/internal/history"
	"github.com/san-kum/delaynet/internal/integrators"
	"github.com/san-kum/delaynet/internal/model"
)

// Param is either one value shared by every created object or one value per
// object.
type Param []float64

func (p Param) at(i int) float64 {
	if len(p) == 1 {
		return p[0]
	}
	return p[i]
}

func (p Param) check(name string, n int) error {
	if len(p) > 1 && len(p) != n {
		return fmt.Errorf("%w: %s has %d values for %d units", dynamo.ErrConstruction, name, len(p), n)
	}
	return nil
}

// UnitSpec describes a population of identical units.
type UnitSpec struct {
	Type string

	// InitVal is the initial activity of single-variable units.
	InitVal Param

	// InitState is the initial state of units with more than one variable:
	// a single vector for all of them or one vector per unit.
	InitState [][]float64

	// Delay is the unit's buffer length; it defaults to two minimum delays
	// and grows as outgoing connections need it.
	Delay Param

	IntegMeth []string
	Ports     int
	Params    map[string]Param

	// Function drives source units. Nil keeps the constant InitVal.
	Function func(t float64) float64
}

// PlantSpec describes a single plant.
type PlantSpec struct {
	Type      string
	InitState []float64
	Delay     float64
	IntegMeth string
	Params    map[string]float64
}

// CreateUnits adds count units and returns their IDs, which are consecutive.
// Nothing is added when an error is returned.
func (n *Network) CreateUnits(count int, spec UnitSpec) ([]int, error) {
	if err := n.checkMutable(); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: cannot create %d units", dynamo.ErrConstruction, count)
	}
	if err := spec.InitVal.check("init_val", count); err != nil {
		return nil, err
	}
	if err := spec.Delay.check("delay", count); err != nil {
		return nil, err
	}
	for name, p := range spec.Params {
		if len(p) == 0 {
			return nil, fmt.Errorf("%w: %s has no values", dynamo.ErrConstruction, name)
		}
		if err := p.check(name, count); err != nil {
			return nil, err
		}
	}
	if len(spec.IntegMeth) > 1 && len(spec.IntegMeth) != count {
		return nil, fmt.Errorf("%w: integ_meth has %d values for %d units", dynamo.ErrConstruction, len(spec.IntegMeth), count)
	}
	if len(spec.InitState) > 1 && len(spec.InitState) != count {
		return nil, fmt.Errorf("%w: init_state has %d vectors for %d units", dynamo.ErrConstruction, len(spec.InitState), count)
	}
	ports := spec.Ports
	if ports == 0 {
		ports = 1
	}
	if ports < 0 {
		return nil, fmt.Errorf("%w: %d ports", dynamo.ErrConstruction, ports)
	}

	first := len(n.units)
	created := make([]*Unit, count)
	for i := range created {
		uid := first + i
		values := make(map[string]float64, len(spec.Params)+1)
		for name, p := range spec.Params {
			values[name] = p.at(i)
		}
		if len(spec.InitVal) > 0 {
			values["init_val"] = spec.InitVal.at(i)
		}
		m, err := n.registry.NewUnit(spec.Type, model.UnitParams{ID: uid, Ports: ports, Values: values, Host: n})
		if err != nil {
			return nil, err
		}

		u := &Unit{ID: uid, Type: spec.Type, Ports: ports, Model: m, Integ: "euler"}
		if len(spec.IntegMeth) > 0 {
			u.Integ = spec.IntegMeth[0]
			if len(spec.IntegMeth) > 1 {
				u.Integ = spec.IntegMeth[i]
			}
		}
		if u.InitVal, err = initVector(m.Dim(), spec, i); err != nil {
			return nil, err
		}

		u.Delay = 2 * n.cfg.MinDelay
		if len(spec.Delay) > 0 {
			if u.Delay, err = n.snapDelay(spec.Delay.at(i)); err != nil {
				return nil, fmt.Errorf("unit %d: %w", uid, err)
			}
		}

		if src, ok := m.(model.Source); ok {
			u.source = src
			if spec.Function != nil {
				src.SetFunction(spec.Function)
			}
		} else {
			if spec.Function != nil {
				return nil, fmt.Errorf("%w: %s units do not take a function", dynamo.ErrConstruction, spec.Type)
			}
			u.buf = history.New(n.bufferSize(u.Delay), n.bit, n.simTime, u.InitVal)
		}
		created[i] = u
	}

	ids := make([]int, count)
	for i, u := range created {
		n.units = append(n.units, u)
		n.delays = append(n.delays, nil)
		n.act = append(n.act, nil)
		n.syns = append(n.syns, nil)
		ids[i] = u.ID
	}
	n.bound = false
	n.metrics.setSize(len(n.units), n.NumConnections())
	n.log.Debug("created units",
		slog.String("type", spec.Type),
		slog.Int("count", count),
		slog.Int("first", first),
	)
	return ids, nil
}

func initVector(dim int, spec UnitSpec, i int) ([]float64, error) {
	if dim == 1 {
		if len(spec.InitState) > 0 {
			return nil, fmt.Errorf("%w: init_state given for single-variable units", dynamo.ErrConstruction)
		}
		if len(spec.InitVal) == 0 {
			return []float64{0}, nil
		}
		return []float64{spec.InitVal.at(i)}, nil
	}
	if len(spec.InitVal) > 0 {
		return nil, fmt.Errorf("%w: units of type %s have %d variables, use init_state", dynamo.ErrConstruction, spec.Type, dim)
	}
	if len(spec.InitState) == 0 {
		return make([]float64, dim), nil
	}
	v := spec.InitState[0]
	if len(spec.InitState) > 1 {
		v = spec.InitState[i]
	}
	if len(v) != dim {
		return nil, fmt.Errorf("%w: init_state has %d values, want %d", dynamo.ErrConstruction, len(v), dim)
	}
	return append([]float64(nil), v...), nil
}

// CreatePlant adds a plant and returns its ID.
func (n *Network) CreatePlant(spec PlantSpec) (int, error) {
	if err := n.checkMutable(); err != nil {
		return 0, err
	}
	pid := len(n.plants)
	m, err := n.registry.NewPlant(spec.Type, model.PlantParams{ID: pid, Values: spec.Params})
	if err != nil {
		return 0, err
	}

	state := spec.InitState
	if len(state) == 0 {
		state = make([]float64, m.StateDim())
	}
	if len(state) != m.StateDim() {
		return 0, fmt.Errorf("%w: plant %s has %d variables, init_state has %d",
			dynamo.ErrConstruction, spec.Type, m.StateDim(), len(state))
	}

	method := spec.IntegMeth
	if method == "" {
		method = "rk4"
	}
	integ, err := integrators.New(method, n.cfg)
	if err != nil {
		return 0, fmt.Errorf("%w: plant %d: %v", dynamo.ErrIntegration, pid, err)
	}

	delay := 2 * n.cfg.MinDelay
	if spec.Delay != 0 {
		if delay, err = n.snapDelay(spec.Delay); err != nil {
			return 0, fmt.Errorf("plant %d: %w", pid, err)
		}
	}

	p := &Plant{
		ID:        pid,
		Type:      spec.Type,
		Integ:     method,
		Delay:     delay,
		InitState: append([]float64(nil), state...),
		Model:     m,
		integ:     integ,
		inputs:    make([][]*plantInput, m.ControlDim()),
	}
	p.buf = history.New(n.bufferSize(delay), n.bit, n.simTime, p.InitState)
	n.plants = append(n.plants, p)
	n.bound = false

	n.log.Debug("created plant",
		slog.String("type", spec.Type),
		slog.Int("id", pid),
		slog.String("integ", method),
	)
	return pid, nil
}
