package network

import (
	"github.com/san-kum/delaynet/internal/dynamo"
	"github.com/san-kum/delaynet/internal/history"
	"github.com/san-kum/delaynet/internal/model"
)

// Unit is one node of the network. Source units have no buffer; their
// activity is computed from their function whenever it is read.
type Unit struct {
	ID      int
	Type    string
	Ports   int
	Delay   float64
	Integ   string
	InitVal []float64
	Model   model.Unit

	source  model.Source
	buf     *history.Buffer
	filters []*filter
	kernel  kernel
}

func (u *Unit) Dim() int { return u.Model.Dim() }

// IsSource reports whether the unit is driven by a function of time.
func (u *Unit) IsSource() bool { return u.source != nil }

// SetFunction replaces the function of a source unit. It must be called
// before the network is flattened.
func (u *Unit) SetFunction(fn func(t float64) float64) bool {
	if u.source == nil {
		return false
	}
	u.source.SetFunction(fn)
	return true
}

// Conn is one input of a unit. When FromPlant is set, Source is a plant ID
// and PlantOut the plant variable read.
type Conn struct {
	Source    int
	FromPlant bool
	PlantOut  int
	Target    int
	Port      int
	Syn       model.Synapse
}

// Plant is a multi-variable system driven by unit activities through its
// input ports and read back by units through its state variables.
type Plant struct {
	ID        int
	Type      string
	Integ     string
	Delay     float64
	InitState []float64
	Model     model.Plant

	integ  dynamo.Integrator
	buf    *history.Buffer
	inputs [][]*plantInput
}

// NumInputs returns how many synapses feed port.
func (p *Plant) NumInputs(port int) int { return len(p.inputs[port]) }

type plantInput struct {
	Source int
	Delay  float64
	Syn    model.Synapse
	read   reader
}

type filter struct {
	name  string
	tau   float64
	value float64
}

// addFilter registers a low-pass filter on u unless one with that name
// already exists.
func (u *Unit) addFilter(name string, tau, init float64) {
	for _, f := range u.filters {
		if f.name == name {
			return
		}
	}
	u.filters = append(u.filters, &filter{name: name, tau: tau, value: init})
}
