package network

import (
	"context"
	"fmt"

	"github.com/san-kum/delaynet/internal/dynamo"
)

// FlatRun simulates total time units on the flattened network, flattening it
// first if needed.
func (n *Network) FlatRun(total float64) (*Trace, error) {
	return n.RunContext(context.Background(), total, true, nil)
}

// FlatUpdate advances the flattened network by one MinDelay. Every input sum
// is gathered from the matrix before it is shifted, so all reads see the
// state at the start of the step.
func (n *Network) FlatUpdate() error {
	f := n.flat
	if f == nil {
		return dynamo.ErrNotFlat
	}
	t := n.simTime
	md := n.cfg.MinDelay
	mbs := n.cfg.MinBuffSize
	w := n.work
	n.stepped = true

	for j := range f.ts {
		f.ts[j] += md
	}

	for i, u := range n.units {
		if u.source != nil {
			continue
		}
		inp := w.unitInp[i]
		zero(inp)
		for j, c := range n.syns[i] {
			wt := c.Syn.Weight()
			row := f.acts.RawRowView(f.inRows[i][j])
			col := f.inCols[i][j]
			for k := range inp {
				inp[k][c.Port] += wt * row[col+k]
			}
		}
	}
	for i, p := range n.plants {
		inp := w.plantInp[i]
		zero(inp)
		for port, ins := range p.inputs {
			for j, in := range ins {
				wt := in.Syn.Weight()
				row := f.acts.RawRowView(f.plantInRows[i][port][j])
				col := f.plantInCols[i][port][j]
				for k := range inp {
					inp[k][port] += wt * row[col+k]
				}
			}
		}
	}

	rows, _ := f.acts.Dims()
	for r := 0; r < rows; r++ {
		row := f.acts.RawRowView(r)
		copy(row, row[mbs:])
	}
	base := f.width - mbs

	for i, u := range n.units {
		if u.source != nil {
			continue
		}
		x0 := w.unitX[i]
		first := f.firstIdx[i]
		for v := range x0 {
			x0[v] = f.acts.At(first+v, base-1)
		}
		out := w.unitOut[i]
		if err := u.kernel(x0, w.unitInp[i], t, out); err != nil {
			return fmt.Errorf("unit %d: %w", u.ID, err)
		}
		for v := range x0 {
			row := f.acts.RawRowView(first + v)
			for k := range out {
				row[base+k] = out[k][v]
			}
		}
	}

	for i, p := range n.plants {
		x0 := w.plantX[i]
		for v, r := range f.plantIdx[i] {
			x0[v] = f.acts.At(r, base-1)
		}
		out := w.plantOut[i]
		if err := n.advancePlant(p, x0, w.plantInp[i], t, out); err != nil {
			return err
		}
		for v, r := range f.plantIdx[i] {
			row := f.acts.RawRowView(r)
			for k := range out {
				row[base+k] = out[k][v]
			}
		}
	}

	for i, u := range n.units {
		if u.source == nil {
			continue
		}
		row := f.acts.RawRowView(f.firstIdx[i])
		for j := base; j < f.width; j++ {
			row[j] = u.source.Act(f.ts[j])
		}
	}

	n.simTime = t + md
	n.updateFilters()
	n.updateSynapses(t)
	return nil
}
