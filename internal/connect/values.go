package connect

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/san-kum/delaynet/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Weights resolves one weight per pair. equal_norm draws uniform values for
// the inputs of each target and rescales them to the requested L2 norm.
func Weights(v Value, pairs []Pair, rng *rand.Rand) ([]float64, error) {
	n := len(pairs)
	switch v.Kind {
	case KindScalar:
		return fill(n, v.Scalar), nil
	case KindList:
		if len(v.List) != n {
			return nil, constructionErr("got %d weights for %d connections", len(v.List), n)
		}
		return slices.Clone(v.List), nil
	case KindUniform:
		if v.High < v.Low {
			return nil, constructionErr("uniform weights need low <= high, got [%v, %v]", v.Low, v.High)
		}
		w := make([]float64, n)
		for i := range w {
			w[i] = v.Low + rng.Float64()*(v.High-v.Low)
		}
		return w, nil
	case KindEqualNorm:
		return equalNorm(v.Norm, pairs, rng), nil
	}
	return nil, constructionErr("unsupported weight specification %s", v.Kind)
}

func equalNorm(norm float64, pairs []Pair, rng *rand.Rand) []float64 {
	w := make([]float64, len(pairs))
	byTarget := make(map[int][]int)
	var order []int
	for i, p := range pairs {
		if _, ok := byTarget[p.Target]; !ok {
			order = append(order, p.Target)
		}
		byTarget[p.Target] = append(byTarget[p.Target], i)
	}

	for _, target := range order {
		idx := byTarget[target]
		vec := make([]float64, len(idx))
		for i := range vec {
			vec[i] = rng.Float64()
		}
		if l2 := floats.Norm(vec, 2); l2 > 0 {
			floats.Scale(norm/l2, vec)
		}
		for i, j := range idx {
			w[j] = vec[i]
		}
	}
	return w
}

// Delays resolves one delay per connection, snapped to an exact multiple of
// cfg.MinDelay. Every delay must be at least one MinDelay.
func Delays(v Value, n int, cfg dynamo.Config, rng *rand.Rand) ([]float64, error) {
	switch v.Kind {
	case KindScalar:
		d, err := snapDelay(v.Scalar, cfg)
		if err != nil {
			return nil, err
		}
		return fill(n, d), nil
	case KindList:
		if len(v.List) != n {
			return nil, constructionErr("got %d delays for %d connections", len(v.List), n)
		}
		out := make([]float64, n)
		for i, d := range v.List {
			s, err := snapDelay(d, cfg)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	case KindUniform:
		lo := max(1, int(math.Round(v.Low/cfg.MinDelay)))
		hi := max(1, int(math.Round(v.High/cfg.MinDelay)))
		if hi < lo {
			return nil, constructionErr("uniform delays need low <= high, got [%v, %v]", v.Low, v.High)
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(lo+rng.Intn(hi-lo+1)) * cfg.MinDelay
		}
		return out, nil
	}
	return nil, constructionErr("unsupported delay specification %s", v.Kind)
}

func snapDelay(d float64, cfg dynamo.Config) (float64, error) {
	steps, ok := cfg.Steps(d)
	if !ok || steps < 1 {
		return 0, fmt.Errorf("%w: got %v with min_delay %v", dynamo.ErrDelay, d, cfg.MinDelay)
	}
	return float64(steps) * cfg.MinDelay, nil
}

// Ports expands an input-port request: none means port 0, one entry applies
// to every connection, otherwise one entry per connection.
func Ports(ports []int, n int) ([]int, error) {
	out := make([]int, n)
	switch len(ports) {
	case 0:
	case 1:
		for i := range out {
			out[i] = ports[0]
		}
	case n:
		copy(out, ports)
	default:
		return nil, constructionErr("got %d input ports for %d connections", len(ports), n)
	}
	for _, p := range out {
		if p < 0 {
			return nil, constructionErr("negative input port %d", p)
		}
	}
	return out, nil
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
