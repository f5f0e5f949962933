package model

import (
	"fmt"
	"sort"

	"github.com/san-kum/delaynet/internal/dynamo"
)

type (
	UnitFactory    func(p UnitParams) (Unit, error)
	SynapseFactory func(p SynapseParams) (Synapse, error)
	PlantFactory   func(p PlantParams) (Plant, error)
)

type Registry struct {
	units    map[string]UnitFactory
	synapses map[string]SynapseFactory
	plants   map[string]PlantFactory
}

// NewRegistry returns a registry holding every built-in model.
func NewRegistry() *Registry {
	r := &Registry{
		units:    make(map[string]UnitFactory),
		synapses: make(map[string]SynapseFactory),
		plants:   make(map[string]PlantFactory),
	}

	r.units["source"] = newSource
	r.units["linear"] = newLinear
	r.units["sigmoidal"] = newSigmoidal
	r.units["noisy_linear"] = newNoisyLinear
	r.units["noisy_sigmoidal"] = newNoisySigmoidal
	r.units["diff_linear"] = newDiffLinear
	r.units["oscillator"] = newOscillator

	r.synapses["static"] = newStatic
	r.synapses["hebbian"] = newHebbian
	r.synapses["oja"] = newOja
	r.synapses["cov"] = newCov

	r.plants["pendulum"] = newPendulumPlant
	r.plants["spring_mass"] = newSpringMassPlant
	r.plants["vanderpol"] = newVanDerPolPlant
	r.plants["cartpole"] = newCartPolePlant
	r.plants["duffing"] = newDuffingPlant

	return r
}

func (r *Registry) RegisterUnit(name string, f UnitFactory)       { r.units[name] = f }
func (r *Registry) RegisterSynapse(name string, f SynapseFactory) { r.synapses[name] = f }
func (r *Registry) RegisterPlant(name string, f PlantFactory)     { r.plants[name] = f }

func (r *Registry) NewUnit(name string, p UnitParams) (Unit, error) {
	fn, ok := r.units[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown unit type: %s", dynamo.ErrConstruction, name)
	}
	u, err := fn(p)
	if err != nil {
		return nil, fmt.Errorf("%w: unit %s: %v", dynamo.ErrConstruction, name, err)
	}
	return u, nil
}

func (r *Registry) NewSynapse(name string, p SynapseParams) (Synapse, error) {
	fn, ok := r.synapses[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown synapse type: %s", dynamo.ErrConstruction, name)
	}
	s, err := fn(p)
	if err != nil {
		return nil, fmt.Errorf("%w: synapse %s: %v", dynamo.ErrConstruction, name, err)
	}
	return s, nil
}

func (r *Registry) NewPlant(name string, p PlantParams) (Plant, error) {
	fn, ok := r.plants[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown plant type: %s", dynamo.ErrConstruction, name)
	}
	pl, err := fn(p)
	if err != nil {
		return nil, fmt.Errorf("%w: plant %s: %v", dynamo.ErrConstruction, name, err)
	}
	return pl, nil
}

func (r *Registry) UnitTypes() []string    { return sortedKeys(r.units) }
func (r *Registry) SynapseTypes() []string { return sortedKeys(r.synapses) }
func (r *Registry) PlantTypes() []string   { return sortedKeys(r.plants) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
