package network

import (
	"fmt"
	"slices"

	"github.com/san-kum/delaynet/internal/dynamo"
	"github.com/san-kum/delaynet/internal/history"
)

// State is a snapshot of everything that changes while a network runs,
// plus enough of its structure to refuse restoring into a different one.
// The random number generator and adaptive solver step sizes are not part
// of it.
type State struct {
	SimTime float64 `json:"sim_time"`
	Flat    bool    `json:"flat"`

	UnitTypes   []string  `json:"unit_types"`
	UnitDelays  []float64 `json:"unit_delays"`
	PlantTypes  []string  `json:"plant_types"`
	PlantDelays []float64 `json:"plant_delays"`

	Inputs      [][]SynState    `json:"inputs"`
	PlantInputs [][][]SynState  `json:"plant_inputs"`
	Filters     [][]FilterState `json:"filters"`

	// Per-object mode: one buffer per unit (nil for sources) and per plant.
	Buffers      []*BufferState `json:"buffers,omitempty"`
	PlantBuffers []*BufferState `json:"plant_buffers,omitempty"`

	// Flat mode.
	Acts [][]float64 `json:"acts,omitempty"`
	Ts   []float64   `json:"ts,omitempty"`
}

type SynState struct {
	Source    int     `json:"source"`
	FromPlant bool    `json:"from_plant,omitempty"`
	PlantOut  int     `json:"plant_out,omitempty"`
	Port      int     `json:"port"`
	Type      string  `json:"type"`
	Delay     float64 `json:"delay"`
	Weight    float64 `json:"weight"`
}

// sameWiring compares everything but the weight.
func (s SynState) sameWiring(o SynState) bool {
	s.Weight, o.Weight = 0, 0
	return s == o
}

type FilterState struct {
	Name  string  `json:"name"`
	Tau   float64 `json:"tau"`
	Value float64 `json:"value"`
}

type BufferState struct {
	Start float64     `json:"start"`
	Data  [][]float64 `json:"data"`
}

// SaveState returns a deep copy of the network's dynamic state.
func (n *Network) SaveState() *State {
	s := &State{
		SimTime:     n.simTime,
		Flat:        n.flat != nil,
		UnitTypes:   make([]string, len(n.units)),
		UnitDelays:  make([]float64, len(n.units)),
		PlantTypes:  make([]string, len(n.plants)),
		PlantDelays: make([]float64, len(n.plants)),
		Inputs:      make([][]SynState, len(n.units)),
		PlantInputs: make([][][]SynState, len(n.plants)),
		Filters:     make([][]FilterState, len(n.units)),
	}
	for i, u := range n.units {
		s.UnitTypes[i] = u.Type
		s.UnitDelays[i] = u.Delay
		s.Inputs[i] = make([]SynState, len(n.syns[i]))
		for j, c := range n.syns[i] {
			s.Inputs[i][j] = SynState{
				Source:    c.Source,
				FromPlant: c.FromPlant,
				PlantOut:  c.PlantOut,
				Port:      c.Port,
				Type:      c.Syn.Type(),
				Delay:     n.delays[i][j],
				Weight:    c.Syn.Weight(),
			}
		}
		s.Filters[i] = make([]FilterState, len(u.filters))
		for j, f := range u.filters {
			s.Filters[i][j] = FilterState{Name: f.name, Tau: f.tau, Value: f.value}
		}
	}
	for i, p := range n.plants {
		s.PlantTypes[i] = p.Type
		s.PlantDelays[i] = p.Delay
		s.PlantInputs[i] = make([][]SynState, len(p.inputs))
		for port, ins := range p.inputs {
			s.PlantInputs[i][port] = make([]SynState, len(ins))
			for j, in := range ins {
				s.PlantInputs[i][port][j] = SynState{
					Source: in.Source,
					Port:   port,
					Type:   in.Syn.Type(),
					Delay:  in.Delay,
					Weight: in.Syn.Weight(),
				}
			}
		}
	}

	if f := n.flat; f != nil {
		rows, _ := f.acts.Dims()
		s.Acts = make([][]float64, rows)
		for r := range s.Acts {
			s.Acts[r] = slices.Clone(f.acts.RawRowView(r))
		}
		s.Ts = slices.Clone(f.ts)
		return s
	}
	s.Buffers = make([]*BufferState, len(n.units))
	for i, u := range n.units {
		if u.buf != nil {
			s.Buffers[i] = &BufferState{Start: u.buf.Start(), Data: u.buf.Rows()}
		}
	}
	s.PlantBuffers = make([]*BufferState, len(n.plants))
	for i, p := range n.plants {
		s.PlantBuffers[i] = &BufferState{Start: p.buf.Start(), Data: p.buf.Rows()}
	}
	return s
}

// SetState restores a snapshot taken with SaveState from a network of the
// same structure. On ErrStateMismatch the network is left untouched.
func (n *Network) SetState(s *State) error {
	if err := n.checkState(s); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrStateMismatch, err)
	}

	n.simTime = s.SimTime
	n.stepped = n.stepped || s.SimTime > 0
	for i, u := range n.units {
		for j, c := range n.syns[i] {
			c.Syn.SetWeight(s.Inputs[i][j].Weight)
		}
		for j, f := range u.filters {
			f.value = s.Filters[i][j].Value
		}
	}
	for i, p := range n.plants {
		for port, ins := range p.inputs {
			for j, in := range ins {
				in.Syn.SetWeight(s.PlantInputs[i][port][j].Weight)
			}
		}
	}

	if f := n.flat; f != nil {
		for r, row := range s.Acts {
			copy(f.acts.RawRowView(r), row)
		}
		copy(f.ts, s.Ts)
		return nil
	}
	for i, u := range n.units {
		if u.buf != nil {
			b := s.Buffers[i]
			u.buf = history.Restore(b.Start, n.bit, b.Data)
		}
	}
	for i, p := range n.plants {
		b := s.PlantBuffers[i]
		p.buf = history.Restore(b.Start, n.bit, b.Data)
	}
	return nil
}

func (n *Network) checkState(s *State) error {
	if s == nil {
		return fmt.Errorf("nil state")
	}
	if s.Flat != (n.flat != nil) {
		return fmt.Errorf("flat=%v, network flat=%v", s.Flat, n.flat != nil)
	}
	if len(s.UnitTypes) != len(n.units) || len(s.UnitDelays) != len(n.units) ||
		len(s.Inputs) != len(n.units) || len(s.Filters) != len(n.units) {
		return fmt.Errorf("snapshot has %d units, network has %d", len(s.UnitTypes), len(n.units))
	}
	if len(s.PlantTypes) != len(n.plants) || len(s.PlantDelays) != len(n.plants) ||
		len(s.PlantInputs) != len(n.plants) {
		return fmt.Errorf("snapshot has %d plants, network has %d", len(s.PlantTypes), len(n.plants))
	}

	current := n.SaveState()
	for i := range n.units {
		if s.UnitTypes[i] != current.UnitTypes[i] || s.UnitDelays[i] != current.UnitDelays[i] {
			return fmt.Errorf("unit %d differs", i)
		}
		if !sameInputs(s.Inputs[i], current.Inputs[i]) {
			return fmt.Errorf("inputs of unit %d differ", i)
		}
		if len(s.Filters[i]) != len(current.Filters[i]) {
			return fmt.Errorf("filters of unit %d differ", i)
		}
		for j, f := range s.Filters[i] {
			if f.Name != current.Filters[i][j].Name || f.Tau != current.Filters[i][j].Tau {
				return fmt.Errorf("filter %s of unit %d differs", f.Name, i)
			}
		}
	}
	for i := range n.plants {
		if s.PlantTypes[i] != current.PlantTypes[i] || s.PlantDelays[i] != current.PlantDelays[i] {
			return fmt.Errorf("plant %d differs", i)
		}
		if len(s.PlantInputs[i]) != len(current.PlantInputs[i]) {
			return fmt.Errorf("plant %d has a different number of ports", i)
		}
		for port := range s.PlantInputs[i] {
			if !sameInputs(s.PlantInputs[i][port], current.PlantInputs[i][port]) {
				return fmt.Errorf("inputs of plant %d port %d differ", i, port)
			}
		}
	}

	if s.Flat {
		if !sameShape(s.Acts, current.Acts) || len(s.Ts) != len(current.Ts) {
			return fmt.Errorf("flat buffer shape differs")
		}
		return nil
	}
	if len(s.Buffers) != len(current.Buffers) || len(s.PlantBuffers) != len(current.PlantBuffers) {
		return fmt.Errorf("buffer count differs")
	}
	for i, b := range current.Buffers {
		if (b == nil) != (s.Buffers[i] == nil) || (b != nil && !sameShape(b.Data, s.Buffers[i].Data)) {
			return fmt.Errorf("buffer of unit %d differs", i)
		}
	}
	for i, b := range current.PlantBuffers {
		if s.PlantBuffers[i] == nil || !sameShape(b.Data, s.PlantBuffers[i].Data) {
			return fmt.Errorf("buffer of plant %d differs", i)
		}
	}
	return nil
}

func sameInputs(a, b []SynState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].sameWiring(b[i]) {
			return false
		}
	}
	return true
}

func sameShape(a, b [][]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
	}
	return true
}
