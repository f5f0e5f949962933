package model

import (
	"fmt"
	"math"
	"sort"
)

// Constant returns a function that always yields v.
func Constant(v float64) func(float64) float64 {
	return func(float64) float64 { return v }
}

type functionBuilder func(p map[string]float64) (func(float64) float64, error)

var functions = map[string]functionBuilder{
	"const": func(p map[string]float64) (func(float64) float64, error) {
		return Constant(p["value"]), nil
	},
	"sin": func(p map[string]float64) (func(float64) float64, error) {
		amp, ok := p["amp"]
		if !ok {
			amp = 1
		}
		freq, phase, offset := p["freq"], p["phase"], p["offset"]
		return func(t float64) float64 {
			return offset + amp*math.Sin(2*math.Pi*freq*t+phase)
		}, nil
	},
	"step": func(p map[string]float64) (func(float64) float64, error) {
		at, before, after := p["at"], p["before"], p["after"]
		return func(t float64) float64 {
			if t < at {
				return before
			}
			return after
		}, nil
	},
	"pulse": func(p map[string]float64) (func(float64) float64, error) {
		start, width, amp, base := p["start"], p["width"], p["amp"], p["base"]
		if width <= 0 {
			return nil, fmt.Errorf("pulse width must be positive, got %v", width)
		}
		period := p["period"]
		return func(t float64) float64 {
			rel := t - start
			if period > 0 && rel >= 0 {
				rel = math.Mod(rel, period)
			}
			if rel >= 0 && rel < width {
				return amp
			}
			return base
		}, nil
	},
}

// Function builds a named time function for source units.
func Function(name string, params map[string]float64) (func(float64) float64, error) {
	b, ok := functions[name]
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", name)
	}
	return b(params)
}

func FunctionNames() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
