// Package experiment builds networks from configuration files and runs them.
package experiment

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/delaynet/internal/config"
	"github.com/san-kum/delaynet/internal/dynamo"
	"github.com/san-kum/delaynet/internal/network"
	"golang.org/x/sync/errgroup"
)

// Experiment is a network built from a config, with its populations and
// plants addressable by name.
type Experiment struct {
	cfg    *config.Config
	net    *network.Network
	pops   map[string][]int
	plants map[string]int
}

// New builds the network described by cfg. Populations are created first,
// then plants, then connections in file order.
func New(cfg *config.Config, opts ...network.Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	net, err := network.New(cfg.Network, opts...)
	if err != nil {
		return nil, err
	}
	e := &Experiment{
		cfg:    cfg,
		net:    net,
		pops:   make(map[string][]int, len(cfg.Populations)),
		plants: make(map[string]int, len(cfg.Plants)),
	}
	if err := e.build(); err != nil {
		return nil, fmt.Errorf("build %s: %w", cfg.Name, err)
	}
	return e, nil
}

func (e *Experiment) Config() *config.Config       { return e.cfg }
func (e *Experiment) Network() *network.Network    { return e.net }
func (e *Experiment) Population(name string) []int { return e.pops[name] }

func (e *Experiment) Plant(name string) (int, bool) {
	pid, ok := e.plants[name]
	return pid, ok
}

// Run simulates cfg.Run.Duration in the mode the config asks for.
func (e *Experiment) Run(ctx context.Context, obs network.Observer) (*network.Trace, error) {
	return e.RunFor(ctx, e.cfg.Run.Duration, obs)
}

func (e *Experiment) RunFor(ctx context.Context, duration float64, obs network.Observer) (*network.Trace, error) {
	return e.net.RunContext(ctx, duration, e.cfg.Run.Flat || e.net.IsFlat(), obs)
}

// Restore loads a snapshot taken from a network built with the same config.
// A flat snapshot flattens the network first.
func (e *Experiment) Restore(s *network.State) error {
	if s.Flat && !e.net.IsFlat() {
		if e.net.SimTime() != 0 {
			return fmt.Errorf("%w: cannot restore a flat snapshot into a running network", dynamo.ErrStateMismatch)
		}
		if err := e.net.Flatten(); err != nil {
			return err
		}
	}
	return e.net.SetState(s)
}

// Result is the outcome of one ensemble member.
type Result struct {
	Seed  int64
	Trace *network.Trace
	Final *network.State
}

// Ensemble runs one independent network per seed, in parallel, and returns
// the results in seed order. The first failure cancels the others.
func Ensemble(ctx context.Context, cfg *config.Config, seeds []int64, opts ...network.Option) ([]Result, error) {
	results := make([]Result, len(seeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			c := *cfg
			c.Network.Seed = seed
			e, err := New(&c, opts...)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			tr, err := e.Run(ctx, nil)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = Result{Seed: seed, Trace: tr, Final: e.net.SaveState()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
