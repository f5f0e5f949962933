package model

import (
	"fmt"
	"math"

	"github.com/san-kum/delaynet/internal/dynamo"
)

// Pendulum is a damped pendulum driven by a torque on port 0.
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{Mass: 1.0, Length: 1.0, Damping: 0.1, Gravity: 9.81}
}

func newPendulumPlant(p PlantParams) (Plant, error) {
	return configure(NewPendulum(), p.Values)
}

func (p *Pendulum) Type() string       { return "pendulum" }
func (p *Pendulum) VarNames() []string { return []string{"theta", "omega"} }
func (p *Pendulum) StateDim() int      { return 2 }
func (p *Pendulum) ControlDim() int    { return 1 }

func (p *Pendulum) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta, omega := x[0], x[1]
	torque := 0.0
	if len(u) > 0 {
		torque = u[0]
	}
	inertia := p.Mass * p.Length * p.Length
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta) + torque) / inertia
	return dynamo.State{omega, alpha}
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		p.Mass = value
	case "length":
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// SpringMass is a single damped mass on a spring; port 0 is an external force.
type SpringMass struct {
	Mass      float64
	Stiffness float64
	Damping   float64
}

func NewSpringMass() *SpringMass {
	return &SpringMass{Mass: 1.0, Stiffness: 10.0, Damping: 0.5}
}

func newSpringMassPlant(p PlantParams) (Plant, error) {
	return configure(NewSpringMass(), p.Values)
}

func (s *SpringMass) Type() string       { return "spring_mass" }
func (s *SpringMass) VarNames() []string { return []string{"pos", "vel"} }
func (s *SpringMass) StateDim() int      { return 2 }
func (s *SpringMass) ControlDim() int    { return 1 }

func (s *SpringMass) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	force := -s.Stiffness*x[0] - s.Damping*x[1]
	if len(u) > 0 {
		force += u[0]
	}
	return dynamo.State{x[1], force / s.Mass}
}

func (s *SpringMass) GetParams() map[string]float64 {
	return map[string]float64{"mass": s.Mass, "stiffness": s.Stiffness, "damping": s.Damping}
}

func (s *SpringMass) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		s.Mass = value
	case "stiffness":
		s.Stiffness = value
	case "damping":
		s.Damping = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// VanDerPol implements the Van der Pol oscillator with an additive forcing
// term on port 0.
//
//	dx/dt = y
//	dy/dt = mu(1 - x^2)y - x + u
type VanDerPol struct {
	Mu float64
}

func NewVanDerPol() *VanDerPol {
	return &VanDerPol{Mu: 1.0}
}

func newVanDerPolPlant(p PlantParams) (Plant, error) {
	return configure(NewVanDerPol(), p.Values)
}

func (v *VanDerPol) Type() string       { return "vanderpol" }
func (v *VanDerPol) VarNames() []string { return []string{"x", "y"} }
func (v *VanDerPol) StateDim() int      { return 2 }
func (v *VanDerPol) ControlDim() int    { return 1 }

func (v *VanDerPol) Derive(state dynamo.State, u dynamo.Control, _ float64) dynamo.State {
	x, y := state[0], state[1]
	dy := v.Mu*(1-x*x)*y - x
	if len(u) > 0 {
		dy += u[0]
	}
	return dynamo.State{y, dy}
}

func (v *VanDerPol) GetParams() map[string]float64 {
	return map[string]float64{"mu": v.Mu}
}

func (v *VanDerPol) SetParam(name string, value float64) error {
	if name != "mu" {
		return fmt.Errorf("unknown param: %s", name)
	}
	v.Mu = value
	return nil
}

type configurablePlant interface {
	Plant
	dynamo.Configurable
}

func configure(p configurablePlant, values map[string]float64) (Plant, error) {
	for name, v := range values {
		if err := p.SetParam(name, v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// CartPole is a pole balanced on a cart pushed by a force on port 0.
type CartPole struct {
	CartMass   float64
	PoleMass   float64
	PoleLength float64
	Gravity    float64
}

func NewCartPole() *CartPole {
	return &CartPole{CartMass: 1.0, PoleMass: 0.1, PoleLength: 1.0, Gravity: 9.81}
}

func newCartPolePlant(p PlantParams) (Plant, error) {
	return configure(NewCartPole(), p.Values)
}

func (c *CartPole) Type() string       { return "cartpole" }
func (c *CartPole) VarNames() []string { return []string{"pos", "vel", "theta", "omega"} }
func (c *CartPole) StateDim() int      { return 4 }
func (c *CartPole) ControlDim() int    { return 1 }

func (c *CartPole) Coordinates() (pos, vel []int) { return []int{0, 2}, []int{1, 3} }

func (c *CartPole) Derive(x dynamo.State, u dynamo.Control, _ float64) dynamo.State {
	vel, theta, omega := x[1], x[2], x[3]
	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}
	mc, mp, l := c.CartMass, c.PoleMass, c.PoleLength
	sin, cos := math.Sin(theta), math.Cos(theta)

	tmp := (force + mp*l*omega*omega*sin) / (mc + mp)
	alpha := (c.Gravity*sin - cos*tmp) / (l * (4.0/3.0 - mp*cos*cos/(mc+mp)))
	acc := tmp - mp*l*alpha*cos/(mc+mp)
	return dynamo.State{vel, acc, omega, alpha}
}

func (c *CartPole) GetParams() map[string]float64 {
	return map[string]float64{
		"cart_mass":   c.CartMass,
		"pole_mass":   c.PoleMass,
		"pole_length": c.PoleLength,
		"gravity":     c.Gravity,
	}
}

func (c *CartPole) SetParam(name string, value float64) error {
	switch name {
	case "cart_mass":
		c.CartMass = value
	case "pole_mass":
		c.PoleMass = value
	case "pole_length":
		c.PoleLength = value
	case "gravity":
		c.Gravity = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// Duffing is a cubic oscillator. Its periodic drive comes from port 0
// instead of an internal phase.
//
//	dx/dt = v
//	dv/dt = -delta v - alpha x - beta x^3 + u
type Duffing struct {
	Alpha, Beta, Delta float64
}

func NewDuffing() *Duffing {
	return &Duffing{Alpha: -1.0, Beta: 1.0, Delta: 0.3}
}

func newDuffingPlant(p PlantParams) (Plant, error) {
	return configure(NewDuffing(), p.Values)
}

func (d *Duffing) Type() string       { return "duffing" }
func (d *Duffing) VarNames() []string { return []string{"x", "v"} }
func (d *Duffing) StateDim() int      { return 2 }
func (d *Duffing) ControlDim() int    { return 1 }

func (d *Duffing) Derive(s dynamo.State, u dynamo.Control, _ float64) dynamo.State {
	x, v := s[0], s[1]
	dv := -d.Delta*v - d.Alpha*x - d.Beta*x*x*x
	if len(u) > 0 {
		dv += u[0]
	}
	return dynamo.State{v, dv}
}

func (d *Duffing) GetParams() map[string]float64 {
	return map[string]float64{"alpha": d.Alpha, "beta": d.Beta, "delta": d.Delta}
}

func (d *Duffing) SetParam(name string, value float64) error {
	switch name {
	case "alpha":
		d.Alpha = value
	case "beta":
		d.Beta = value
	case "delta":
		d.Delta = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
