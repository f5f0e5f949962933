package network

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/delaynet/internal/connect"
	"github.com/san-kum/delaynet/internal/dynamo"
	"github.com/san-kum/delaynet/internal/model"
)

// SynSpec describes the synapses of one connection request.
type SynSpec struct {
	Type     string
	InitW    connect.Value
	InpPorts []int
	Params   map[string]float64
}

func (s SynSpec) typ() string {
	if s.Type == "" {
		return "static"
	}
	return s.Type
}

// PlantInputSpec says which plant port each unit drives and with what delay.
type PlantInputSpec struct {
	// Ports holds one port for every unit or one per unit.
	Ports []int
	Delay connect.Value
}

// PortMap routes plant variable Output into unit input port Port.
type PortMap struct {
	Output int
	Port   int
}

// PlantOutputSpec says which plant variables each unit reads. Exactly one of
// Shared and PerUnit must be set.
type PlantOutputSpec struct {
	Shared  []PortMap
	PerUnit [][]PortMap
	Delay   connect.Value
}

type pending struct {
	conn  *Conn
	delay float64
	read  reader
}

// Connect wires units in from to units in to. Either every requested
// connection is created or, on error, none is.
func (n *Network) Connect(from, to []int, cs connect.Spec, ss SynSpec) error {
	if err := n.checkMutable(); err != nil {
		return err
	}
	if err := n.checkUnits(from); err != nil {
		return err
	}
	if err := n.checkUnits(to); err != nil {
		return err
	}

	pairs, err := connect.Pairs(from, to, cs, n.rng)
	if err != nil {
		return err
	}
	weights, err := connect.Weights(ss.InitW, pairs, n.rng)
	if err != nil {
		return err
	}
	delays, err := connect.Delays(cs.Delay, len(pairs), n.cfg, n.rng)
	if err != nil {
		return err
	}
	ports, err := connect.Ports(ss.InpPorts, len(pairs))
	if err != nil {
		return err
	}

	taus := make(map[filterKey]float64)
	batch := make([]pending, len(pairs))
	for i, p := range pairs {
		if ports[i] >= n.units[p.Target].Ports {
			return fmt.Errorf("%w: unit %d has %d ports, got port %d",
				dynamo.ErrConstruction, p.Target, n.units[p.Target].Ports, ports[i])
		}
		syn, err := n.registry.NewSynapse(ss.typ(), model.SynapseParams{
			Pre:    p.Source,
			Post:   p.Target,
			Port:   ports[i],
			InitW:  weights[i],
			Values: ss.Params,
			Host:   n,
		})
		if err != nil {
			return err
		}
		if fu, ok := syn.(model.FilterUser); ok {
			if err := n.checkFilters(fu.Filters(), taus); err != nil {
				return err
			}
		}
		batch[i] = pending{
			conn:  &Conn{Source: p.Source, Target: p.Target, Port: ports[i], Syn: syn},
			delay: delays[i],
			read:  n.unitReader(p.Source),
		}
	}

	n.apply(batch)
	n.log.Debug("connected units",
		slog.String("rule", string(cs.Rule)),
		slog.String("synapse", ss.typ()),
		slog.Int("connections", len(batch)),
	)
	return nil
}

// SetPlantInputs connects units to input ports of a plant through static
// synapses.
func (n *Network) SetPlantInputs(units []int, pid int, ps PlantInputSpec, ss SynSpec) error {
	if err := n.checkMutable(); err != nil {
		return err
	}
	if err := n.checkUnits(units); err != nil {
		return err
	}
	if err := n.checkPlant(pid); err != nil {
		return err
	}
	if ss.typ() != "static" {
		return fmt.Errorf("%w: plant inputs take static synapses, got %s", dynamo.ErrConstruction, ss.typ())
	}
	plant := n.plants[pid]

	pairs := make([]connect.Pair, len(units))
	for i, u := range units {
		pairs[i] = connect.Pair{Source: u, Target: pid}
	}
	weights, err := connect.Weights(ss.InitW, pairs, n.rng)
	if err != nil {
		return err
	}
	delays, err := connect.Delays(ps.Delay, len(units), n.cfg, n.rng)
	if err != nil {
		return err
	}
	ports, err := connect.Ports(ps.Ports, len(units))
	if err != nil {
		return err
	}

	inputs := make([]*plantInput, len(units))
	for i, u := range units {
		if ports[i] >= len(plant.inputs) {
			return fmt.Errorf("%w: plant %d has %d input ports, got port %d",
				dynamo.ErrConstruction, pid, len(plant.inputs), ports[i])
		}
		syn, err := n.registry.NewSynapse("static", model.SynapseParams{
			Pre:    u,
			Post:   pid,
			Port:   ports[i],
			InitW:  weights[i],
			Values: ss.Params,
			Host:   n,
		})
		if err != nil {
			return err
		}
		inputs[i] = &plantInput{Source: u, Delay: delays[i], Syn: syn, read: n.unitReader(u)}
	}

	for i, in := range inputs {
		plant.inputs[ports[i]] = append(plant.inputs[ports[i]], in)
		n.growUnitDelay(in.Source, in.Delay)
	}
	n.log.Debug("set plant inputs", slog.Int("plant", pid), slog.Int("connections", len(inputs)))
	return nil
}

// SetPlantOutputs connects plant variables to input ports of units.
func (n *Network) SetPlantOutputs(pid int, units []int, ps PlantOutputSpec, ss SynSpec) error {
	if err := n.checkMutable(); err != nil {
		return err
	}
	if err := n.checkPlant(pid); err != nil {
		return err
	}
	if err := n.checkUnits(units); err != nil {
		return err
	}
	maps, err := expandPortMaps(ps, len(units))
	if err != nil {
		return err
	}
	plant := n.plants[pid]

	var pairs []connect.Pair
	var routes []PortMap
	for i, u := range units {
		for _, m := range maps[i] {
			if m.Output < 0 || m.Output >= plant.Model.StateDim() {
				return fmt.Errorf("%w: plant %d has no output %d", dynamo.ErrConstruction, pid, m.Output)
			}
			if m.Port < 0 || m.Port >= n.units[u].Ports {
				return fmt.Errorf("%w: unit %d has %d ports, got port %d",
					dynamo.ErrConstruction, u, n.units[u].Ports, m.Port)
			}
			pairs = append(pairs, connect.Pair{Source: pid, Target: u})
			routes = append(routes, m)
		}
	}
	weights, err := connect.Weights(ss.InitW, pairs, n.rng)
	if err != nil {
		return err
	}
	delays, err := connect.Delays(ps.Delay, len(pairs), n.cfg, n.rng)
	if err != nil {
		return err
	}

	batch := make([]pending, len(pairs))
	for i, p := range pairs {
		syn, err := n.registry.NewSynapse(ss.typ(), model.SynapseParams{
			Pre:       pid,
			Post:      p.Target,
			Port:      routes[i].Port,
			InitW:     weights[i],
			FromPlant: true,
			Values:    ss.Params,
			Host:      n,
		})
		if err != nil {
			return err
		}
		if _, ok := syn.(model.FilterUser); ok {
			return fmt.Errorf("%w: %s synapses need presynaptic filters, which plants lack",
				dynamo.ErrConstruction, ss.typ())
		}
		batch[i] = pending{
			conn: &Conn{
				Source:    pid,
				FromPlant: true,
				PlantOut:  routes[i].Output,
				Target:    p.Target,
				Port:      routes[i].Port,
				Syn:       syn,
			},
			delay: delays[i],
			read:  n.plantReader(pid, routes[i].Output),
		}
	}

	n.apply(batch)
	n.log.Debug("set plant outputs", slog.Int("plant", pid), slog.Int("connections", len(batch)))
	return nil
}

func expandPortMaps(ps PlantOutputSpec, count int) ([][]PortMap, error) {
	switch {
	case ps.Shared != nil && ps.PerUnit != nil:
		return nil, fmt.Errorf("%w: give either shared or per-unit port maps", dynamo.ErrConstruction)
	case ps.PerUnit != nil:
		if len(ps.PerUnit) != count {
			return nil, fmt.Errorf("%w: got %d port maps for %d units", dynamo.ErrConstruction, len(ps.PerUnit), count)
		}
		return ps.PerUnit, nil
	}
	maps := make([][]PortMap, count)
	for i := range maps {
		maps[i] = ps.Shared
	}
	return maps, nil
}

// apply commits resolved connections in order.
func (n *Network) apply(batch []pending) {
	for _, p := range batch {
		c := p.conn
		n.syns[c.Target] = append(n.syns[c.Target], c)
		n.delays[c.Target] = append(n.delays[c.Target], p.delay)
		n.act[c.Target] = append(n.act[c.Target], p.read)

		if c.FromPlant {
			n.growPlantDelay(c.Source, p.delay)
		} else {
			n.growUnitDelay(c.Source, p.delay)
		}
		if pl, ok := c.Syn.(model.Plastic); ok {
			n.plastic = append(n.plastic, pl)
		}
		if fu, ok := c.Syn.(model.FilterUser); ok {
			for _, f := range fu.Filters() {
				u := n.units[f.Unit]
				u.addFilter(f.Name, f.Tau, n.initialAct(u))
			}
		}
	}
	n.metrics.setSize(len(n.units), n.NumConnections())
}

// growUnitDelay makes the source buffer long enough to serve a connection
// with delay d, which needs one extra minimum delay of history.
func (n *Network) growUnitDelay(uid int, d float64) {
	u := n.units[uid]
	need := d + n.cfg.MinDelay
	if u.Delay >= need-delayTol*n.cfg.MinDelay {
		return
	}
	u.Delay = need
	if u.buf != nil {
		u.buf.Resize(n.bufferSize(need))
	}
}

func (n *Network) growPlantDelay(pid int, d float64) {
	p := n.plants[pid]
	need := d + n.cfg.MinDelay
	if p.Delay >= need-delayTol*n.cfg.MinDelay {
		return
	}
	p.Delay = need
	p.buf.Resize(n.bufferSize(need))
}

const delayTol = 1e-6

func (n *Network) initialAct(u *Unit) float64 {
	if u.source != nil {
		return u.source.Act(n.simTime)
	}
	return u.InitVal[0]
}

func (n *Network) checkUnits(ids []int) error {
	for _, id := range ids {
		if id < 0 || id >= len(n.units) {
			return fmt.Errorf("%w: unit %d out of range [0, %d)", dynamo.ErrConstruction, id, len(n.units))
		}
	}
	return nil
}

func (n *Network) checkPlant(pid int) error {
	if pid < 0 || pid >= len(n.plants) {
		return fmt.Errorf("%w: plant %d out of range [0, %d)", dynamo.ErrConstruction, pid, len(n.plants))
	}
	return nil
}

type filterKey struct {
	unit int
	name string
}

// checkFilters validates the filters a synapse needs. A unit keeps one
// filter per name, so every request for it must agree on the time constant,
// both with existing filters and with earlier requests in taus.
func (n *Network) checkFilters(needs []model.FilterNeed, taus map[filterKey]float64) error {
	for _, f := range needs {
		if f.Unit < 0 || f.Unit >= len(n.units) {
			return fmt.Errorf("%w: filter on missing unit %d", dynamo.ErrConstruction, f.Unit)
		}
		if f.Tau <= 0 {
			return fmt.Errorf("%w: filter %s needs a positive time constant", dynamo.ErrConstruction, f.Name)
		}
		key := filterKey{f.Unit, f.Name}
		tau, ok := taus[key]
		if !ok {
			for _, uf := range n.units[f.Unit].filters {
				if uf.name == f.Name {
					tau, ok = uf.tau, true
				}
			}
		}
		if ok && tau != f.Tau {
			return fmt.Errorf("%w: unit %d already has a %s filter with tau %v, got %v",
				dynamo.ErrConstruction, f.Unit, f.Name, tau, f.Tau)
		}
		taus[key] = f.Tau
	}
	return nil
}

// unitReader returns a function reading the activity of uid at any time
// inside its buffer, in whichever mode the network is.
func (n *Network) unitReader(uid int) reader {
	if n.flat != nil {
		return n.flat.rowReader(n.flat.firstIdx[uid])
	}
	u := n.units[uid]
	if u.source != nil {
		return u.source.Act
	}
	return func(t float64) float64 { return u.buf.At(t) }
}

func (n *Network) plantReader(pid, v int) reader {
	if n.flat != nil {
		return n.flat.rowReader(n.flat.plantIdx[pid][v])
	}
	p := n.plants[pid]
	return func(t float64) float64 { return p.buf.VarAt(v, t) }
}
