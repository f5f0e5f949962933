package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

// System is a continuous-time model dX/dt = f(X, u, t). Plants implement it.
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Config holds the network-wide timing parameters. MinDelay is the length of
// one simulation step; every transmission delay is a multiple of it.
// MinBuffSize is the number of sub-step samples stored per MinDelay.
type Config struct {
	MinDelay    float64 `yaml:"min_delay" json:"min_delay"`
	MinBuffSize int     `yaml:"min_buff_size" json:"min_buff_size"`
	RTol        float64 `yaml:"rtol" json:"rtol"`
	ATol        float64 `yaml:"atol" json:"atol"`
	Seed        int64   `yaml:"seed" json:"seed"`
}

func DefaultConfig() Config {
	return Config{
		MinDelay:    0.005,
		MinBuffSize: 8,
		RTol:        1e-6,
		ATol:        1e-6,
	}
}

func (c Config) Validate() error {
	if c.MinDelay <= 0 || math.IsNaN(c.MinDelay) || math.IsInf(c.MinDelay, 0) {
		return fmt.Errorf("%w: min_delay must be positive, got %v", ErrConfig, c.MinDelay)
	}
	if c.MinBuffSize < 1 {
		return fmt.Errorf("%w: min_buff_size must be at least 1, got %d", ErrConfig, c.MinBuffSize)
	}
	if c.RTol <= 0 || c.ATol <= 0 {
		return fmt.Errorf("%w: tolerances must be positive (rtol=%v, atol=%v)", ErrConfig, c.RTol, c.ATol)
	}
	return nil
}

// TimeBit is the spacing between consecutive buffer samples.
func (c Config) TimeBit() float64 {
	return c.MinDelay / float64(c.MinBuffSize)
}

// Steps converts a delay to a whole number of MinDelay steps. ok is false when
// d is not within 1e-6 steps of a multiple of MinDelay.
func (c Config) Steps(d float64) (n int, ok bool) {
	r := d / c.MinDelay
	n = int(math.Round(r))
	return n, math.Abs(r-float64(n)) < 1e-6
}

// StepCount is the number of whole MinDelay steps that fit in total.
func (c Config) StepCount(total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(total/c.MinDelay + 1e-9))
}
