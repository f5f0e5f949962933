package network

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/delaynet/internal/dynamo"
	"github.com/san-kum/delaynet/internal/history"
	"gonum.org/v1/gonum/mat"
)

// flatState is the flattened form of a network: one matrix row per unit
// variable and per plant variable, all sharing the time axis ts. Column
// width-1 is the present.
type flatState struct {
	acts   *mat.Dense
	ts     []float64
	width  int
	bit    float64
	maxDel float64

	firstIdx []int
	plantIdx [][]int

	// Gather tables, parallel to the connection table: the row and the
	// column of the first sub-step read by every input.
	inRows [][]int
	inCols [][]int

	plantInRows [][][]int
	plantInCols [][][]int
}

func (f *flatState) rowReader(r int) reader {
	return func(t float64) float64 {
		return history.Interp(f.acts.RawRowView(r), f.ts[0], f.bit, t)
	}
}

// Flatten packs every buffer into a single matrix and precomputes the gather
// indices used by FlatUpdate. The network can no longer change structure
// afterwards. Flattening twice is a no-op.
func (n *Network) Flatten() error {
	if n.flat != nil {
		n.log.Warn("network is already flattened")
		return nil
	}
	if n.simTime != 0 {
		return fmt.Errorf("%w: flatten needs t=0, got t=%g", dynamo.ErrNotCold, n.simTime)
	}
	if err := n.bind(true); err != nil {
		return err
	}

	md := n.cfg.MinDelay
	mbs := n.cfg.MinBuffSize

	maxDel := 0.0
	for i, u := range n.units {
		maxDel = math.Max(maxDel, u.Delay)
		for _, d := range n.delays[i] {
			maxDel = math.Max(maxDel, d)
		}
	}
	for _, p := range n.plants {
		maxDel = math.Max(maxDel, p.Delay)
		for _, ins := range p.inputs {
			for _, in := range ins {
				maxDel = math.Max(maxDel, in.Delay)
			}
		}
	}
	maxDel += md
	width := int(math.Round(maxDel/md)) * mbs

	f := &flatState{
		ts:       make([]float64, width),
		width:    width,
		bit:      n.bit,
		maxDel:   maxDel,
		firstIdx: make([]int, len(n.units)),
		plantIdx: make([][]int, len(n.plants)),
	}
	for j := range f.ts {
		f.ts[j] = n.simTime - float64(width-1-j)*n.bit
	}

	rows := 0
	for i, u := range n.units {
		f.firstIdx[i] = rows
		rows += u.Dim()
	}
	for i, p := range n.plants {
		f.plantIdx[i] = make([]int, p.Model.StateDim())
		for v := range f.plantIdx[i] {
			f.plantIdx[i][v] = rows
			rows++
		}
	}

	if rows == 0 {
		return fmt.Errorf("%w: nothing to flatten", dynamo.ErrConstruction)
	}
	f.acts = mat.NewDense(rows, width, nil)
	for i, u := range n.units {
		r := f.firstIdx[i]
		if u.source != nil {
			row := f.acts.RawRowView(r)
			for j, t := range f.ts {
				row[j] = u.source.Act(t)
			}
			continue
		}
		for v := 0; v < u.Dim(); v++ {
			fillTail(f.acts.RawRowView(r+v), u.buf.Row(v))
		}
	}
	for i, p := range n.plants {
		for v, r := range f.plantIdx[i] {
			fillTail(f.acts.RawRowView(r), p.buf.Row(v))
		}
	}

	col := func(d float64) int {
		steps, _ := n.cfg.Steps(d)
		return width - steps*mbs - 1
	}
	f.inRows = make([][]int, len(n.units))
	f.inCols = make([][]int, len(n.units))
	for i := range n.units {
		f.inRows[i] = make([]int, len(n.syns[i]))
		f.inCols[i] = make([]int, len(n.syns[i]))
		for j, c := range n.syns[i] {
			if c.FromPlant {
				f.inRows[i][j] = f.plantIdx[c.Source][c.PlantOut]
			} else {
				f.inRows[i][j] = f.firstIdx[c.Source]
			}
			f.inCols[i][j] = col(n.delays[i][j])
		}
	}
	f.plantInRows = make([][][]int, len(n.plants))
	f.plantInCols = make([][][]int, len(n.plants))
	for i, p := range n.plants {
		f.plantInRows[i] = make([][]int, len(p.inputs))
		f.plantInCols[i] = make([][]int, len(p.inputs))
		for port, ins := range p.inputs {
			for _, in := range ins {
				f.plantInRows[i][port] = append(f.plantInRows[i][port], f.firstIdx[in.Source])
				f.plantInCols[i][port] = append(f.plantInCols[i][port], col(in.Delay))
			}
		}
	}

	n.flat = f
	for i := range n.units {
		for j := range n.act[i] {
			n.act[i][j] = f.rowReader(f.inRows[i][j])
		}
	}
	for _, p := range n.plants {
		for _, ins := range p.inputs {
			for _, in := range ins {
				in.read = f.rowReader(f.firstIdx[in.Source])
			}
		}
		p.buf = nil
	}
	for _, u := range n.units {
		u.buf = nil
	}
	n.work = n.newScratch()

	n.metrics.flattened()
	n.log.Info("flattened network",
		slog.Int("rows", rows),
		slog.Int("width", width),
		slog.Float64("max_delay", maxDel),
	)
	return nil
}

// fillTail copies src into the end of dst, padding the front with src's
// oldest value.
func fillTail(dst, src []float64) {
	if len(src) >= len(dst) {
		copy(dst, src[len(src)-len(dst):])
		return
	}
	pad := len(dst) - len(src)
	for i := 0; i < pad; i++ {
		dst[i] = src[0]
	}
	copy(dst[pad:], src)
}
