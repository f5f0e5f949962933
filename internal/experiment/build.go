package experiment

import (
	"fmt"

	"github.com/san-kum/delaynet/internal/config"
	"github.com/san-kum/delaynet/internal/connect"
	"github.com/san-kum/delaynet/internal/model"
	"github.com/san-kum/delaynet/internal/network"
)

func (e *Experiment) build() error {
	for _, p := range e.cfg.Populations {
		spec, err := unitSpec(p)
		if err != nil {
			return fmt.Errorf("population %s: %w", p.Name, err)
		}
		ids, err := e.net.CreateUnits(p.N, spec)
		if err != nil {
			return fmt.Errorf("population %s: %w", p.Name, err)
		}
		e.pops[p.Name] = ids
	}

	for _, p := range e.cfg.Plants {
		pid, err := e.net.CreatePlant(network.PlantSpec{
			Type:      p.Type,
			InitState: p.InitState,
			Delay:     p.Delay,
			IntegMeth: p.IntegMeth,
			Params:    p.Params,
		})
		if err != nil {
			return fmt.Errorf("plant %s: %w", p.Name, err)
		}
		e.plants[p.Name] = pid
	}

	for i, c := range e.cfg.Connections {
		cs := connect.Spec{
			Rule:           connect.Rule(c.Rule),
			Outdegree:      c.Outdegree,
			Indegree:       c.Indegree,
			Delay:          c.Delay.Spec(),
			NoAutapses:     c.NoAutapses,
			AllowMultapses: c.AllowMultapses,
		}
		if err := e.net.Connect(e.pops[c.From], e.pops[c.To], cs, synSpec(c.Synapse)); err != nil {
			return fmt.Errorf("connection %d (%s -> %s): %w", i, c.From, c.To, err)
		}
	}

	for i, pi := range e.cfg.PlantInputs {
		ps := network.PlantInputSpec{Ports: []int(pi.Ports), Delay: pi.Delay.Spec()}
		if err := e.net.SetPlantInputs(e.pops[pi.From], e.plants[pi.Plant], ps, synSpec(pi.Synapse)); err != nil {
			return fmt.Errorf("plant input %d (%s -> %s): %w", i, pi.From, pi.Plant, err)
		}
	}

	for i, po := range e.cfg.PlantOutputs {
		ps := network.PlantOutputSpec{Delay: po.Delay.Spec()}
		for _, m := range po.Ports {
			ps.Shared = append(ps.Shared, network.PortMap{Output: m.Output, Port: m.Port})
		}
		if err := e.net.SetPlantOutputs(e.plants[po.Plant], e.pops[po.To], ps, synSpec(po.Synapse)); err != nil {
			return fmt.Errorf("plant output %d (%s -> %s): %w", i, po.Plant, po.To, err)
		}
	}
	return nil
}

func unitSpec(p config.Population) (network.UnitSpec, error) {
	spec := network.UnitSpec{
		Type:      p.Type,
		InitVal:   network.Param(p.InitVal),
		InitState: p.InitState,
		Delay:     network.Param(p.Delay),
		IntegMeth: []string(p.IntegMeth),
		Ports:     p.Ports,
	}
	if len(p.Params) > 0 {
		spec.Params = make(map[string]network.Param, len(p.Params))
		for name, v := range p.Params {
			spec.Params[name] = network.Param(v)
		}
	}
	if p.Function != nil {
		fn, err := model.Function(p.Function.Name, p.Function.Params)
		if err != nil {
			return spec, err
		}
		spec.Function = fn
	}
	return spec, nil
}

func synSpec(s config.Synapse) network.SynSpec {
	return network.SynSpec{
		Type:     s.Type,
		InitW:    s.InitW.Spec(),
		InpPorts: []int(s.InpPorts),
		Params:   s.Params,
	}
}
