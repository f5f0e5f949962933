package experiment

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"strings"

	"github.com/san-kum/delaynet/internal/config"
	"github.com/san-kum/delaynet/internal/network"
	"golang.org/x/sync/errgroup"
)

// Axis is one swept parameter, named "<population>.<param>".
type Axis struct {
	Name   string
	Values []float64
}

// ParseAxis reads "ring.tau=0.01,0.02,0.05".
func ParseAxis(s string) (Axis, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || !strings.Contains(name, ".") {
		return Axis{}, fmt.Errorf("sweep axis %q: want <population>.<param>=v1,v2,...", s)
	}
	a := Axis{Name: name}
	for _, f := range strings.Split(list, ",") {
		var v float64
		if _, err := fmt.Sscan(f, &v); err != nil {
			return Axis{}, fmt.Errorf("sweep axis %q: bad value %q", s, f)
		}
		a.Values = append(a.Values, v)
	}
	return a, nil
}

// SweepPoint is one grid point and the score of its run.
type SweepPoint struct {
	Params map[string]float64
	Score  float64
}

// Sweep runs one network per point of the grid spanned by axes and scores
// each trace. Points are returned in grid order, the last axis varying
// fastest.
func Sweep(ctx context.Context, base *config.Config, axes []Axis, score func(*network.Trace) float64, opts ...network.Option) ([]SweepPoint, error) {
	grid := []map[string]float64{{}}
	for _, a := range axes {
		if len(a.Values) == 0 {
			return nil, fmt.Errorf("sweep axis %s has no values", a.Name)
		}
		next := make([]map[string]float64, 0, len(grid)*len(a.Values))
		for _, p := range grid {
			for _, v := range a.Values {
				q := maps.Clone(p)
				q[a.Name] = v
				next = append(next, q)
			}
		}
		grid = next
	}

	points := make([]SweepPoint, len(grid))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, params := range grid {
		i, params := i, params
		g.Go(func() error {
			cfg, err := withParams(base, params)
			if err != nil {
				return err
			}
			e, err := New(cfg, opts...)
			if err != nil {
				return fmt.Errorf("sweep %v: %w", params, err)
			}
			tr, err := e.Run(ctx, nil)
			if err != nil {
				return fmt.Errorf("sweep %v: %w", params, err)
			}
			points[i] = SweepPoint{Params: params, Score: score(tr)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// Best returns the point with the lowest score.
func Best(points []SweepPoint) (SweepPoint, bool) {
	if len(points) == 0 {
		return SweepPoint{}, false
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.Score < best.Score {
			best = p
		}
	}
	return best, true
}

// withParams copies base with the given population parameters replaced.
func withParams(base *config.Config, params map[string]float64) (*config.Config, error) {
	cfg := *base
	cfg.Populations = make([]config.Population, len(base.Populations))
	for i, p := range base.Populations {
		p.Params = maps.Clone(p.Params)
		cfg.Populations[i] = p
	}

	for name, v := range params {
		pop, param, _ := strings.Cut(name, ".")
		found := false
		for i := range cfg.Populations {
			if cfg.Populations[i].Name != pop {
				continue
			}
			if cfg.Populations[i].Params == nil {
				cfg.Populations[i].Params = make(map[string]config.Floats)
			}
			cfg.Populations[i].Params[param] = config.Floats{v}
			found = true
		}
		if !found {
			return nil, fmt.Errorf("sweep: unknown population %q", pop)
		}
	}
	return &cfg, nil
}
