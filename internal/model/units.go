package model

import (
	"fmt"
	"math"

	"github.com/san-kum/delaynet/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

type SourceUnit struct {
	fn func(t float64) float64
}

func newSource(p UnitParams) (Unit, error) {
	v := p.Get("init_val", 0)
	return &SourceUnit{fn: Constant(v)}, nil
}

func (s *SourceUnit) Type() string { return "source" }
func (s *SourceUnit) Dim() int     { return 1 }

func (s *SourceUnit) Derive(x dynamo.State, inp []float64, t float64) dynamo.State {
	return dynamo.State{0}
}

func (s *SourceUnit) Act(t float64) float64 { return s.fn(t) }

func (s *SourceUnit) SetFunction(fn func(t float64) float64) { s.fn = fn }

// Linear relaxes toward the sum of its inputs: tau dx/dt = inp - x.
type Linear struct {
	Tau float64
}

func newLinear(p UnitParams) (Unit, error) {
	tau := p.Get("tau", 1)
	if tau <= 0 {
		return nil, fmt.Errorf("tau must be positive, got %v", tau)
	}
	return &Linear{Tau: tau}, nil
}

func (l *Linear) Type() string { return "linear" }
func (l *Linear) Dim() int     { return 1 }

func (l *Linear) Derive(x dynamo.State, inp []float64, t float64) dynamo.State {
	return dynamo.State{(floats.Sum(inp) - x[0]) / l.Tau}
}

func (l *Linear) GetParams() map[string]float64 {
	return map[string]float64{"tau": l.Tau}
}

func (l *Linear) SetParam(name string, value float64) error {
	if name != "tau" {
		return fmt.Errorf("unknown param: %s", name)
	}
	l.Tau = value
	return nil
}

// Sigmoidal relaxes toward a logistic function of its input.
type Sigmoidal struct {
	Tau    float64
	Slope  float64
	Thresh float64
}

func newSigmoidal(p UnitParams) (Unit, error) {
	s := &Sigmoidal{
		Tau:    p.Get("tau", 1),
		Slope:  p.Get("slope", 1),
		Thresh: p.Get("thresh", 0),
	}
	if s.Tau <= 0 {
		return nil, fmt.Errorf("tau must be positive, got %v", s.Tau)
	}
	return s, nil
}

func (s *Sigmoidal) Type() string { return "sigmoidal" }
func (s *Sigmoidal) Dim() int     { return 1 }

func (s *Sigmoidal) f(inp []float64) float64 {
	return 1 / (1 + math.Exp(-s.Slope*(floats.Sum(inp)-s.Thresh)))
}

func (s *Sigmoidal) Derive(x dynamo.State, inp []float64, t float64) dynamo.State {
	return dynamo.State{(s.f(inp) - x[0]) / s.Tau}
}

func (s *Sigmoidal) GetParams() map[string]float64 {
	return map[string]float64{"tau": s.Tau, "slope": s.Slope, "thresh": s.Thresh}
}

func (s *Sigmoidal) SetParam(name string, value float64) error {
	switch name {
	case "tau":
		s.Tau = value
	case "slope":
		s.Slope = value
	case "thresh":
		s.Thresh = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// NoisyLinear is tau dx/dt = inp - lambda*x plus white noise.
type NoisyLinear struct {
	Tau, Lambda float64
	Mu, Sigma   float64
}

func newNoisyLinear(p UnitParams) (Unit, error) {
	u := &NoisyLinear{
		Tau:    p.Get("tau", 1),
		Lambda: p.Get("lambda", 1),
		Mu:     p.Get("mu", 0),
		Sigma:  p.Get("sigma", 0),
	}
	if u.Tau <= 0 {
		return nil, fmt.Errorf("tau must be positive, got %v", u.Tau)
	}
	if u.Sigma < 0 {
		return nil, fmt.Errorf("sigma must not be negative, got %v", u.Sigma)
	}
	return u, nil
}

func (u *NoisyLinear) Type() string { return "noisy_linear" }
func (u *NoisyLinear) Dim() int     { return 1 }

func (u *NoisyLinear) Derive(x dynamo.State, inp []float64, t float64) dynamo.State {
	return dynamo.State{(floats.Sum(inp) - u.Lambda*x[0]) / u.Tau}
}

func (u *NoisyLinear) Noise() (mu, sigma float64) { return u.Mu, u.Sigma }

// NoisySigmoidal relaxes toward a logistic function at rate lambda/tau. It
// is meant for exponential Euler integration.
type NoisySigmoidal struct {
	Sigmoidal
	Lambda    float64
	Mu, Sigma float64
}

func newNoisySigmoidal(p UnitParams) (Unit, error) {
	base, err := newSigmoidal(p)
	if err != nil {
		return nil, err
	}
	u := &NoisySigmoidal{
		Sigmoidal: *base.(*Sigmoidal),
		Lambda:    p.Get("lambda", 1),
		Mu:        p.Get("mu", 0),
		Sigma:     p.Get("sigma", 0),
	}
	if u.Lambda <= 0 {
		return nil, fmt.Errorf("lambda must be positive, got %v", u.Lambda)
	}
	return u, nil
}

func (u *NoisySigmoidal) Type() string { return "noisy_sigmoidal" }

func (u *NoisySigmoidal) Derive(x dynamo.State, inp []float64, t float64) dynamo.State {
	return dynamo.State{u.Rate() * (u.Drive(x[0], inp, t) - x[0])}
}

func (u *NoisySigmoidal) Rate() float64 { return u.Lambda / u.Tau }

func (u *NoisySigmoidal) Drive(x float64, inp []float64, t float64) float64 {
	return u.f(inp) / u.Lambda
}

func (u *NoisySigmoidal) Noise() (mu, sigma float64) { return u.Mu, u.Sigma }

// DiffLinear has two ports: port 0 excites, port 1 inhibits.
type DiffLinear struct {
	Tau float64
}

func newDiffLinear(p UnitParams) (Unit, error) {
	if p.Ports != 2 {
		return nil, fmt.Errorf("diff_linear needs 2 ports, got %d", p.Ports)
	}
	tau := p.Get("tau", 1)
	if tau <= 0 {
		return nil, fmt.Errorf("tau must be positive, got %v", tau)
	}
	return &DiffLinear{Tau: tau}, nil
}

func (d *DiffLinear) Type() string { return "diff_linear" }
func (d *DiffLinear) Dim() int     { return 1 }

func (d *DiffLinear) Derive(x dynamo.State, inp []float64, t float64) dynamo.State {
	return dynamo.State{(inp[0] - inp[1] - x[0]) / d.Tau}
}

// Oscillator is a damped second-order unit driven by its input:
// x0'' = -omega^2 x0 - 2 zeta omega x0' + inp. Its activity is x0.
type Oscillator struct {
	Omega, Zeta float64
}

func newOscillator(p UnitParams) (Unit, error) {
	o := &Oscillator{Omega: p.Get("omega", 2*math.Pi), Zeta: p.Get("zeta", 0.1)}
	if o.Omega <= 0 {
		return nil, fmt.Errorf("omega must be positive, got %v", o.Omega)
	}
	return o, nil
}

func (o *Oscillator) Type() string { return "oscillator" }
func (o *Oscillator) Dim() int     { return 2 }

func (o *Oscillator) Derive(x dynamo.State, inp []float64, t float64) dynamo.State {
	acc := -o.Omega*o.Omega*x[0] - 2*o.Zeta*o.Omega*x[1] + floats.Sum(inp)
	return dynamo.State{x[1], acc}
}
