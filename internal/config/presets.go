package config

import (
	"sort"

	"github.com/san-kum/delaynet/internal/dynamo"
)

var Presets = map[string]func() *Config{
	"default": DefaultConfig,

	// A source step relayed through a chain of linear units.
	"relay": func() *Config {
		return &Config{
			Name:    "relay",
			Network: dynamo.Config{MinDelay: 0.01, MinBuffSize: 4, RTol: 1e-6, ATol: 1e-6},
			Populations: []Population{
				{Name: "input", N: 1, Type: "source", Function: &Function{Name: "step", Params: map[string]float64{"at": 0.5, "after": 1}}},
				{Name: "chain", N: 5, Type: "linear", Params: map[string]Floats{"tau": {0.1}}},
			},
			Connections: []Connection{
				{From: "input", To: "chain", Rule: "fixed_outdegree", Outdegree: 1, Delay: Scalar(0.1), Synapse: Synapse{InitW: Scalar(1)}},
				{From: "chain", To: "chain", Rule: "fixed_indegree", Indegree: 1, NoAutapses: true, Delay: Scalar(0.1),
					Synapse: Synapse{InitW: Scalar(0.5)}},
			},
			Run: RunConfig{Duration: 3},
		}
	},

	// Mutual inhibition with a long delay oscillates.
	"ring": func() *Config {
		return &Config{
			Name:    "ring",
			Network: dynamo.Config{MinDelay: 0.01, MinBuffSize: 4, RTol: 1e-6, ATol: 1e-6},
			Populations: []Population{
				{Name: "ring", N: 6, Type: "sigmoidal", InitVal: Floats{0.9, 0.1, 0.1, 0.1, 0.1, 0.1},
					Params: map[string]Floats{"tau": {0.02}, "slope": {8}, "thresh": {0.3}}},
			},
			Connections: []Connection{
				{From: "ring", To: "ring", Rule: "all_to_all", NoAutapses: true, Delay: Uniform(0.05, 0.2),
					Synapse: Synapse{InitW: Uniform(-1, -0.2)}},
			},
			Run: RunConfig{Duration: 10, Flat: true},
		}
	},

	// Units push a pendulum and read its angle back.
	"pendulum_loop": func() *Config {
		return &Config{
			Name:    "pendulum_loop",
			Network: dynamo.Config{MinDelay: 0.01, MinBuffSize: 5, RTol: 1e-6, ATol: 1e-6},
			Populations: []Population{
				{Name: "motor", N: 2, Type: "linear", Params: map[string]Floats{"tau": {0.05}}},
			},
			Plants: []Plant{
				{Name: "arm", Type: "pendulum", InitState: []float64{0.5, 0}, IntegMeth: "rk4"},
			},
			PlantInputs: []PlantInput{
				{From: "motor", Plant: "arm", Delay: Scalar(0.02), Synapse: Synapse{InitW: List(-4, 4)}},
			},
			PlantOutputs: []PlantOutput{
				{Plant: "arm", To: "motor", Ports: []PortMap{{Output: 0}}, Delay: Scalar(0.03),
					Synapse: Synapse{InitW: List(1, -1)}},
			},
			Run: RunConfig{Duration: 10},
		}
	},

	// Oja synapses normalise the weights from noisy inputs.
	"plastic": func() *Config {
		return &Config{
			Name:    "plastic",
			Network: dynamo.Config{MinDelay: 0.01, MinBuffSize: 4, RTol: 1e-6, ATol: 1e-6, Seed: 3},
			Populations: []Population{
				{Name: "inputs", N: 8, Type: "noisy_linear", IntegMeth: Strings{"euler_maru"},
					InitVal: Floats{0.5}, Params: map[string]Floats{"tau": {0.05}, "sigma": {0.3}, "mu": {0.5}}},
				{Name: "out", N: 1, Type: "linear", Params: map[string]Floats{"tau": {0.05}}},
			},
			Connections: []Connection{
				{From: "inputs", To: "out", Rule: "all_to_all", Delay: Scalar(0.01),
					Synapse: Synapse{Type: "oja", InitW: EqualNorm(1), Params: map[string]float64{"lrate": 0.5}}},
			},
			Run: RunConfig{Duration: 20, Flat: true},
		}
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
