// Package model defines what the network expects from unit, synapse and
// plant models, and provides the built-in ones.
//
// A model is created by a factory looked up by its type tag in a [Registry].
// Factories receive a params record and a [Host] back-reference to the
// network, which plastic synapses use to read activities and filters.
// Optional behavior is expressed as extra interfaces that the network
// probes for with type assertions:
//
//   - [Source]: the unit is driven by a function of time and has no dynamics
//   - [Stochastic]: the unit supports Euler-Maruyama integration
//   - [ExpDecay]: the unit supports exponential Euler integration
//   - [Plastic]: the synapse changes its weight once per step
//   - [FilterUser]: the synapse needs low-pass filtered activities
package model

import (
	"math/rand"

	"github.com/san-kum/delaynet/internal/dynamo"
)

// Host is the view of the network handed to models.
type Host interface {
	Config() dynamo.Config
	// Act is the most recent activity of a unit.
	Act(uid int) float64
	// Filter is the current value of a named low-pass filter of a unit.
	Filter(uid int, name string) float64
	Rand() *rand.Rand
}

// Unit is a continuous-time model whose first state variable is its activity.
// inp holds one input sum per port.
type Unit interface {
	Type() string
	Dim() int
	Derive(x dynamo.State, inp []float64, t float64) dynamo.State
}

// Source units output fn(t) instead of integrating.
type Source interface {
	Unit
	Act(t float64) float64
	SetFunction(fn func(t float64) float64)
}

// Stochastic units add drift mu and diffusion sigma to their activity.
type Stochastic interface {
	Noise() (mu, sigma float64)
}

// ExpDecay units relax toward Drive at Rate: dx/dt = Rate*(Drive - x).
type ExpDecay interface {
	Rate() float64
	Drive(x float64, inp []float64, t float64) float64
}

type Synapse interface {
	Type() string
	Weight() float64
	SetWeight(w float64)
}

// Plastic synapses update their weight after every step.
type Plastic interface {
	Synapse
	Update(t float64)
}

// FilterNeed asks the network to maintain a low-pass filter of a unit's
// activity with time constant Tau.
type FilterNeed struct {
	Unit int
	Name string
	Tau  float64
}

type FilterUser interface {
	Filters() []FilterNeed
}

// Plant is a multi-variable system whose control vector is formed from its
// input ports.
type Plant interface {
	dynamo.System
	Type() string
	VarNames() []string
}

type UnitParams struct {
	ID     int
	Ports  int
	Values map[string]float64
	Host   Host
}

func (p UnitParams) Get(name string, def float64) float64 {
	if v, ok := p.Values[name]; ok {
		return v
	}
	return def
}

type SynapseParams struct {
	Pre, Post int
	Port      int
	InitW     float64
	// FromPlant marks a synapse whose Pre is a plant ID.
	FromPlant bool
	Values    map[string]float64
	Host      Host
}

func (p SynapseParams) Get(name string, def float64) float64 {
	if v, ok := p.Values[name]; ok {
		return v
	}
	return def
}

type PlantParams struct {
	ID     int
	Values map[string]float64
}

// Well-known filter names.
const (
	FilterFast = "fast"
	FilterMid  = "mid"
	FilterSlow = "slow"
)
