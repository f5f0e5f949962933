package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/delaynet/internal/dynamo"
)

func TestRK45Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &oscillator{}

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	for i := 0; i < 1000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Error("RK45 produced invalid state")
	}
	if math.Abs(x[0]-math.Cos(10)) > 1e-5 {
		t.Errorf("expected x=%.6f, got %.6f", math.Cos(10), x[0])
	}
}

func TestRK45EnergyConservation(t *testing.T) {
	integrator := NewRK45WithTolerance(1e-9, 1e-9)
	dyn := &oscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.energy(x0)
	x := x0.Clone()
	dt := 0.01
	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	drift := math.Abs(dyn.energy(x)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &oscillator{}

	x, newDt, err := integrator.StepAdaptive(dyn, dynamo.State{1.0, 0.0}, nil, 0, 0.1, 1e-8)
	if err != nil {
		t.Errorf("StepAdaptive returned error: %v", err)
	}
	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}
}

func TestRK45AdvanceCoversSpan(t *testing.T) {
	integrator := NewRK45WithTolerance(1e-10, 1e-10)
	dyn := &oscillator{}

	// one long span forces internal substeps
	x, err := integrator.Advance(dyn, dynamo.State{1.0, 0.0}, nil, 0, 2.0)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if math.Abs(x[0]-math.Cos(2)) > 1e-7 {
		t.Errorf("expected x=%.9f, got %.9f", math.Cos(2), x[0])
	}
	if math.Abs(x[1]+math.Sin(2)) > 1e-7 {
		t.Errorf("expected v=%.9f, got %.9f", -math.Sin(2), x[1])
	}
}
