package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"zero min delay", func(c *Config) { c.MinDelay = 0 }, true},
		{"nan min delay", func(c *Config) { c.MinDelay = math.NaN() }, true},
		{"zero buff size", func(c *Config) { c.MinBuffSize = 0 }, true},
		{"negative rtol", func(c *Config) { c.RTol = -1 }, true},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(&cfg)
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: expected error=%v, got %v", tt.name, tt.wantErr, err)
		}
		if err != nil && !errors.Is(err, ErrConfig) {
			t.Errorf("%s: expected ErrConfig, got %v", tt.name, err)
		}
	}
}

func TestConfigSteps(t *testing.T) {
	cfg := Config{MinDelay: 0.1, MinBuffSize: 4, RTol: 1e-6, ATol: 1e-6}

	tests := []struct {
		delay float64
		steps int
		ok    bool
	}{
		{0.1, 1, true},
		{0.3, 3, true},
		{0.30000001, 3, true},
		{0.15, 2, false},
		{1.0, 10, true},
	}

	for _, tt := range tests {
		n, ok := cfg.Steps(tt.delay)
		if ok != tt.ok {
			t.Errorf("delay %v: expected ok=%v, got %v", tt.delay, tt.ok, ok)
		}
		if ok && n != tt.steps {
			t.Errorf("delay %v: expected %d steps, got %d", tt.delay, tt.steps, n)
		}
	}
}

func TestConfigStepCount(t *testing.T) {
	cfg := Config{MinDelay: 0.1, MinBuffSize: 4}

	if n := cfg.StepCount(0.3); n != 3 {
		t.Errorf("expected 3 steps for 0.3, got %d", n)
	}
	if n := cfg.StepCount(0.35); n != 3 {
		t.Errorf("expected 3 steps for 0.35, got %d", n)
	}
	if n := cfg.StepCount(-1); n != 0 {
		t.Errorf("expected 0 steps for negative time, got %d", n)
	}
	if bit := cfg.TimeBit(); math.Abs(bit-0.025) > 1e-15 {
		t.Errorf("expected time bit 0.025, got %v", bit)
	}
}

func TestSimulationErrorUnwrap(t *testing.T) {
	err := &SimulationError{Step: 3, Time: 0.3, Wrapped: ErrInvalidState}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("expected SimulationError to unwrap to ErrInvalidState")
	}
	if err.Error() == "" {
		t.Error("expected non-empty message")
	}
}
