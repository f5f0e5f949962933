package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/delaynet/internal/dynamo"
)

// pair is two uncoupled oscillators laid out as [x1, v1, x2, v2].
type pair struct{}

func (p *pair) StateDim() int   { return 4 }
func (p *pair) ControlDim() int { return 0 }

func (p *pair) Derive(x dynamo.State, _ dynamo.Control, _ float64) dynamo.State {
	return dynamo.State{x[1], -x[0], x[3], -4 * x[2]}
}

func (p *pair) Coordinates() (pos, vel []int) { return []int{0, 2}, []int{1, 3} }

func TestSymplecticIntegrators(t *testing.T) {
	tests := []struct {
		name  string
		integ dynamo.Integrator
	}{
		{"verlet", NewVerlet()},
		{"leapfrog", NewLeapfrog()},
	}
	dt := 0.001
	steps := 1000
	end := float64(steps) * dt

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := dynamo.State{1, 0}
			y := dynamo.State{1, 0, 1, 0}
			for i := 0; i < steps; i++ {
				x = tt.integ.Step(&oscillator{}, x, nil, float64(i)*dt, dt)
				y = tt.integ.Step(&pair{}, y, nil, float64(i)*dt, dt)
			}
			if math.Abs(x[0]-math.Cos(end)) > 1e-5 {
				t.Errorf("oscillator: x=%v, want %v", x[0], math.Cos(end))
			}
			if math.Abs(y[0]-math.Cos(end)) > 1e-5 {
				t.Errorf("pair: x1=%v, want %v", y[0], math.Cos(end))
			}
			if math.Abs(y[2]-math.Cos(2*end)) > 1e-5 {
				t.Errorf("pair: x2=%v, want %v", y[2], math.Cos(2*end))
			}
		})
	}
}
