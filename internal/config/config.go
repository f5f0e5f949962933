// Package config describes networks in YAML: populations of units, plants,
// and the connections between them, addressed by name.
package config

import (
	"fmt"
	"os"

	"github.com/san-kum/delaynet/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const DefaultDuration = 5.0

type Config struct {
	Name         string        `yaml:"name,omitempty"`
	Network      dynamo.Config `yaml:"network"`
	Populations  []Population  `yaml:"populations"`
	Plants       []Plant       `yaml:"plants,omitempty"`
	Connections  []Connection  `yaml:"connections,omitempty"`
	PlantInputs  []PlantInput  `yaml:"plant_inputs,omitempty"`
	PlantOutputs []PlantOutput `yaml:"plant_outputs,omitempty"`
	Run          RunConfig     `yaml:"run"`
}

// Population is a group of identical units created in one call.
type Population struct {
	Name      string            `yaml:"name"`
	N         int               `yaml:"n"`
	Type      string            `yaml:"type"`
	InitVal   Floats            `yaml:"init_val,omitempty"`
	InitState [][]float64       `yaml:"init_state,omitempty"`
	Delay     Floats            `yaml:"delay,omitempty"`
	IntegMeth Strings           `yaml:"integ_meth,omitempty"`
	Ports     int               `yaml:"n_ports,omitempty"`
	Params    map[string]Floats `yaml:"params,omitempty"`
	Function  *Function         `yaml:"function,omitempty"`
}

// Function names a time function for source units.
type Function struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

type Plant struct {
	Name      string             `yaml:"name"`
	Type      string             `yaml:"type"`
	InitState []float64          `yaml:"init_state,omitempty"`
	Delay     float64            `yaml:"delay,omitempty"`
	IntegMeth string             `yaml:"integ_meth,omitempty"`
	Params    map[string]float64 `yaml:"params,omitempty"`
}

type Synapse struct {
	Type     string             `yaml:"type,omitempty"`
	InitW    Value              `yaml:"init_w"`
	InpPorts Ints               `yaml:"inp_ports,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty"`
}

type Connection struct {
	From           string  `yaml:"from"`
	To             string  `yaml:"to"`
	Rule           string  `yaml:"rule"`
	Outdegree      int     `yaml:"outdegree,omitempty"`
	Indegree       int     `yaml:"indegree,omitempty"`
	Delay          Value   `yaml:"delay"`
	NoAutapses     bool    `yaml:"no_autapses,omitempty"`
	AllowMultapses bool    `yaml:"allow_multapses,omitempty"`
	Synapse        Synapse `yaml:"synapse"`
}

type PlantInput struct {
	From    string  `yaml:"from"`
	Plant   string  `yaml:"plant"`
	Ports   Ints    `yaml:"ports,omitempty"`
	Delay   Value   `yaml:"delay"`
	Synapse Synapse `yaml:"synapse"`
}

// PortMap routes plant variable Output into unit port Port.
type PortMap struct {
	Output int `yaml:"output"`
	Port   int `yaml:"port"`
}

type PlantOutput struct {
	Plant   string    `yaml:"plant"`
	To      string    `yaml:"to"`
	Ports   []PortMap `yaml:"ports"`
	Delay   Value     `yaml:"delay"`
	Synapse Synapse   `yaml:"synapse"`
}

type RunConfig struct {
	Duration float64 `yaml:"duration"`
	Flat     bool    `yaml:"flat,omitempty"`
}

// DefaultConfig is a sine-driven population of sigmoidal units with
// recurrent delayed connections.
func DefaultConfig() *Config {
	return &Config{
		Name:    "default",
		Network: dynamo.DefaultConfig(),
		Populations: []Population{
			{
				Name:     "drive",
				N:        1,
				Type:     "source",
				Function: &Function{Name: "sin", Params: map[string]float64{"freq": 2}},
			},
			{
				Name:    "rate",
				N:       10,
				Type:    "sigmoidal",
				InitVal: Floats{0.5},
				Params:  map[string]Floats{"tau": {0.05}, "slope": {3}, "thresh": {0.5}},
			},
		},
		Connections: []Connection{
			{
				From:    "drive",
				To:      "rate",
				Rule:    "all_to_all",
				Delay:   Scalar(0.01),
				Synapse: Synapse{InitW: Scalar(1)},
			},
			{
				From:     "rate",
				To:       "rate",
				Rule:     "fixed_indegree",
				Indegree: 3,
				Delay:    Uniform(0.01, 0.05),
				Synapse:  Synapse{InitW: EqualNorm(1)},
			},
		},
		Run: RunConfig{Duration: DefaultDuration},
	}
}

// Load reads a YAML network description. Unset network timing fields take
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := &Config{
		Network: dynamo.DefaultConfig(),
		Run:     RunConfig{Duration: DefaultDuration},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the network timing and that every name refers to a
// declared population or plant. Shapes and model parameters are checked
// when the network is built.
func (c *Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if c.Run.Duration < 0 {
		return fmt.Errorf("%w: negative run duration %v", dynamo.ErrConfig, c.Run.Duration)
	}

	pops := make(map[string]bool, len(c.Populations))
	for _, p := range c.Populations {
		if p.Name == "" {
			return fmt.Errorf("%w: population without a name", dynamo.ErrConfig)
		}
		if pops[p.Name] {
			return fmt.Errorf("%w: duplicate population %q", dynamo.ErrConfig, p.Name)
		}
		if p.N < 1 {
			return fmt.Errorf("%w: population %q needs n >= 1", dynamo.ErrConfig, p.Name)
		}
		pops[p.Name] = true
	}
	plants := make(map[string]bool, len(c.Plants))
	for _, p := range c.Plants {
		if p.Name == "" || plants[p.Name] {
			return fmt.Errorf("%w: plant name %q missing or duplicated", dynamo.ErrConfig, p.Name)
		}
		plants[p.Name] = true
	}

	need := func(kind, name string, known map[string]bool) error {
		if !known[name] {
			return fmt.Errorf("%w: unknown %s %q", dynamo.ErrConfig, kind, name)
		}
		return nil
	}
	for _, cn := range c.Connections {
		if err := need("population", cn.From, pops); err != nil {
			return err
		}
		if err := need("population", cn.To, pops); err != nil {
			return err
		}
	}
	for _, pi := range c.PlantInputs {
		if err := need("population", pi.From, pops); err != nil {
			return err
		}
		if err := need("plant", pi.Plant, plants); err != nil {
			return err
		}
	}
	for _, po := range c.PlantOutputs {
		if err := need("plant", po.Plant, plants); err != nil {
			return err
		}
		if err := need("population", po.To, pops); err != nil {
			return err
		}
	}
	return nil
}

// Population returns the population called name.
func (c *Config) Population(name string) (Population, bool) {
	for _, p := range c.Populations {
		if p.Name == name {
			return p, true
		}
	}
	return Population{}, false
}
