package network

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/delaynet/internal/dynamo"
)

// Trace records a run. Entry s of every series is the state at Times[s],
// taken before step s was simulated.
type Trace struct {
	Times  []float64
	Units  [][]float64
	Plants [][][]float64
}

func (n *Network) newTrace(steps int) *Trace {
	tr := &Trace{
		Times:  make([]float64, steps),
		Units:  make([][]float64, len(n.units)),
		Plants: make([][][]float64, len(n.plants)),
	}
	for i := range tr.Units {
		tr.Units[i] = make([]float64, steps)
	}
	for i := range tr.Plants {
		tr.Plants[i] = make([][]float64, steps)
	}
	return tr
}

func (tr *Trace) truncate(steps int) *Trace {
	tr.Times = tr.Times[:steps]
	for i := range tr.Units {
		tr.Units[i] = tr.Units[i][:steps]
	}
	for i := range tr.Plants {
		tr.Plants[i] = tr.Plants[i][:steps]
	}
	return tr
}

func (n *Network) record(tr *Trace, s int) error {
	tr.Times[s] = n.simTime
	for uid := range n.units {
		v := n.Act(uid)
		if !(dynamo.State{v}).IsValid() {
			return fmt.Errorf("%w: unit %d", dynamo.ErrInvalidState, uid)
		}
		tr.Units[uid][s] = v
	}
	for pid := range n.plants {
		x := n.PlantState(pid)
		if !dynamo.State(x).IsValid() {
			return fmt.Errorf("%w: plant %d", dynamo.ErrInvalidState, pid)
		}
		tr.Plants[pid][s] = x
	}
	return nil
}

// Observer is called after every step of RunContext. Returning false stops
// the run early.
type Observer func(n *Network, step int) bool

// Run simulates total time units with per-object buffers and returns the
// trace. The trace is returned up to the failing step on error.
func (n *Network) Run(total float64) (*Trace, error) {
	return n.RunContext(context.Background(), total, false, nil)
}

// RunContext runs in per-object or flat mode, checking ctx between steps.
// Flat mode flattens the network first if needed.
func (n *Network) RunContext(ctx context.Context, total float64, flat bool, obs Observer) (*Trace, error) {
	update, mode := n.Update, "object"
	if flat {
		if n.flat == nil {
			if err := n.Flatten(); err != nil {
				return nil, err
			}
		}
		update, mode = n.FlatUpdate, "flat"
	} else if n.flat != nil {
		return nil, fmt.Errorf("%w: use FlatRun", dynamo.ErrFrozen)
	}

	steps := n.cfg.StepCount(total)
	tr := n.newTrace(steps)
	for s := 0; s < steps; s++ {
		select {
		case <-ctx.Done():
			return tr.truncate(s), ctx.Err()
		default:
		}
		if err := n.record(tr, s); err != nil {
			return tr.truncate(s), &dynamo.SimulationError{Step: s, Time: n.simTime, Wrapped: err}
		}
		start := time.Now()
		if err := update(); err != nil {
			return tr.truncate(s + 1), &dynamo.SimulationError{Step: s, Time: n.simTime, Wrapped: err}
		}
		n.metrics.observeStep(mode, time.Since(start))
		if obs != nil && !obs(n, s) {
			return tr.truncate(s + 1), nil
		}
	}
	return tr, nil
}

// Update advances the unflattened network by one MinDelay: units integrate
// their delayed inputs, then plants, then filters and plastic synapses are
// updated.
func (n *Network) Update() error {
	if n.flat != nil {
		return dynamo.ErrFrozen
	}
	if !n.bound {
		if err := n.bind(false); err != nil {
			return err
		}
		n.work = n.newScratch()
	}
	n.stepped = true
	t := n.simTime
	bit := n.bit

	for i, u := range n.units {
		if u.source != nil {
			continue
		}
		inp := n.work.unitInp[i]
		zero(inp)
		for j, c := range n.syns[i] {
			w := c.Syn.Weight()
			d := n.delays[i][j]
			read := n.act[i][j]
			for k := range inp {
				inp[k][c.Port] += w * read(t-d+float64(k)*bit)
			}
		}
		out := n.work.unitOut[i]
		if err := u.kernel(u.buf.Latest(), inp, t, out); err != nil {
			return fmt.Errorf("unit %d: %w", u.ID, err)
		}
		u.buf.Advance(out)
	}

	for i, p := range n.plants {
		inp := n.work.plantInp[i]
		zero(inp)
		for port, ins := range p.inputs {
			for _, in := range ins {
				w := in.Syn.Weight()
				for k := range inp {
					inp[k][port] += w * in.read(t-in.Delay+float64(k)*bit)
				}
			}
		}
		out := n.work.plantOut[i]
		if err := n.advancePlant(p, p.buf.Latest(), inp, t, out); err != nil {
			return err
		}
		p.buf.Advance(out)
	}

	n.simTime = t + n.cfg.MinDelay
	n.updateFilters()
	n.updateSynapses(t)
	return nil
}
