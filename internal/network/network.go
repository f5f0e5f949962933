// Package network builds and simulates networks of units connected by
// delayed synapses, optionally coupled to plants.
//
// A network is built while "cold" (before any step) with [Network.CreateUnits],
// [Network.CreatePlant], [Network.Connect], [Network.SetPlantInputs] and
// [Network.SetPlantOutputs]. It can then be advanced in one of two modes:
//
//   - per-object: [Network.Run] steps every unit through its own history buffer
//   - flattened: [Network.Flatten] packs every buffer into one matrix and
//     [Network.FlatRun] steps it with precomputed gather indices
//
// Flattening is one-way; afterwards the structure is frozen.
//
// A Network is not safe for concurrent use.
package network

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/san-kum/delaynet/internal/dynamo"
	"github.com/san-kum/delaynet/internal/model"
)

type Option func(*Network)

func WithLogger(l *slog.Logger) Option {
	return func(n *Network) { n.log = l.With(slog.String("component", "network")) }
}

func WithRegistry(r *model.Registry) Option {
	return func(n *Network) { n.registry = r }
}

func WithMetrics(m *Metrics) Option {
	return func(n *Network) { n.metrics = m }
}

type reader func(t float64) float64

type Network struct {
	cfg      dynamo.Config
	bit      float64
	registry *model.Registry
	log      *slog.Logger
	metrics  *Metrics
	rng      *rand.Rand

	units  []*Unit
	plants []*Plant

	// Connection table, indexed by target unit and kept in creation order.
	delays [][]float64
	act    [][]reader
	syns   [][]*Conn

	plastic []model.Plastic

	simTime float64
	stepped bool
	bound   bool
	work    *scratch
	flat    *flatState
}

// New validates cfg and returns an empty network.
func New(cfg dynamo.Config, opts ...Option) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Network{
		cfg:      cfg,
		bit:      cfg.TimeBit(),
		registry: model.NewRegistry(),
		log:      slog.Default().With(slog.String("component", "network")),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func (n *Network) Config() dynamo.Config { return n.cfg }
func (n *Network) Rand() *rand.Rand      { return n.rng }
func (n *Network) SimTime() float64      { return n.simTime }
func (n *Network) IsFlat() bool          { return n.flat != nil }
func (n *Network) NumUnits() int         { return len(n.units) }
func (n *Network) NumPlants() int        { return len(n.plants) }

func (n *Network) Unit(uid int) *Unit     { return n.units[uid] }
func (n *Network) Plant(pid int) *Plant   { return n.plants[pid] }
func (n *Network) Inputs(uid int) []*Conn { return n.syns[uid] }

// InputDelays returns the delays of the inputs of uid, parallel to Inputs(uid).
func (n *Network) InputDelays(uid int) []float64 { return n.delays[uid] }

func (n *Network) NumConnections() int {
	total := 0
	for _, s := range n.syns {
		total += len(s)
	}
	return total
}

// Act is the newest activity of uid.
func (n *Network) Act(uid int) float64 {
	u := n.units[uid]
	if n.flat != nil {
		row := n.flat.acts.RawRowView(n.flat.firstIdx[uid])
		return row[len(row)-1]
	}
	if u.buf == nil {
		return u.source.Act(n.simTime)
	}
	return u.buf.Row(0)[u.buf.Len()-1]
}

// Filter is the current value of a low-pass filter of uid, or 0 when the
// unit has no filter with that name.
func (n *Network) Filter(uid int, name string) float64 {
	for _, f := range n.units[uid].filters {
		if f.name == name {
			return f.value
		}
	}
	return 0
}

// GetAct returns the activity of uid at time t, which must lie inside the
// unit's buffer.
func (n *Network) GetAct(uid int, t float64) (float64, error) {
	if uid < 0 || uid >= len(n.units) {
		return 0, fmt.Errorf("%w: unit %d out of range", dynamo.ErrConstruction, uid)
	}
	return n.unitReader(uid)(t), nil
}

// GetActByStep returns the activity of uid s buffer samples before the
// present. It is only available on flattened networks.
func (n *Network) GetActByStep(uid, s int) (float64, error) {
	if n.flat == nil {
		return 0, dynamo.ErrNotFlat
	}
	if uid < 0 || uid >= len(n.units) {
		return 0, fmt.Errorf("%w: unit %d out of range", dynamo.ErrConstruction, uid)
	}
	row := n.flat.acts.RawRowView(n.flat.firstIdx[uid])
	if s < 0 || s >= len(row) {
		return 0, fmt.Errorf("%w: step %d outside buffer of %d samples", dynamo.ErrConstruction, s, len(row))
	}
	return row[len(row)-1-s], nil
}

// PlantState is the newest state vector of plant pid.
func (n *Network) PlantState(pid int) []float64 {
	if n.flat != nil {
		out := make([]float64, len(n.flat.plantIdx[pid]))
		for v, r := range n.flat.plantIdx[pid] {
			row := n.flat.acts.RawRowView(r)
			out[v] = row[len(row)-1]
		}
		return out
	}
	return n.plants[pid].buf.Latest()
}

func (n *Network) checkMutable() error {
	if n.flat != nil {
		return dynamo.ErrFrozen
	}
	if n.stepped || n.simTime > 0 {
		return fmt.Errorf("%w: t=%g", dynamo.ErrNotCold, n.simTime)
	}
	return nil
}

func (n *Network) bufferSize(delay float64) int {
	steps, _ := n.cfg.Steps(delay)
	return steps*n.cfg.MinBuffSize + 1
}

// snapDelay checks that d is a positive multiple of MinDelay and returns the
// exact multiple.
func (n *Network) snapDelay(d float64) (float64, error) {
	steps, ok := n.cfg.Steps(d)
	if !ok || steps < 1 {
		return 0, fmt.Errorf("%w: got %v with min_delay %v", dynamo.ErrDelay, d, n.cfg.MinDelay)
	}
	return float64(steps) * n.cfg.MinDelay, nil
}

func (n *Network) decay(tau float64) float64 {
	return math.Exp(-n.cfg.MinDelay / tau)
}
