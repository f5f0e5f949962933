package model

import "fmt"

type Static struct {
	w float64
}

func newStatic(p SynapseParams) (Synapse, error) {
	return &Static{w: p.InitW}, nil
}

func (s *Static) Type() string        { return "static" }
func (s *Static) Weight() float64     { return s.w }
func (s *Static) SetWeight(w float64) { s.w = w }

// plastic holds what every learning rule shares.
type plastic struct {
	w         float64
	pre, post int
	lrate     float64
	tauFast   float64
	host      Host
}

func newPlastic(p SynapseParams) (plastic, error) {
	if p.FromPlant {
		return plastic{}, fmt.Errorf("plastic synapses need a unit as presynaptic source")
	}
	if p.Host == nil {
		return plastic{}, fmt.Errorf("plastic synapses need a host")
	}
	pl := plastic{
		w:       p.InitW,
		pre:     p.Pre,
		post:    p.Post,
		lrate:   p.Get("lrate", 0.1),
		tauFast: p.Get("tau_fast", 0.05),
		host:    p.Host,
	}
	if pl.tauFast <= 0 {
		return plastic{}, fmt.Errorf("tau_fast must be positive, got %v", pl.tauFast)
	}
	return pl, nil
}

func (s *plastic) Weight() float64     { return s.w }
func (s *plastic) SetWeight(w float64) { s.w = w }

func (s *plastic) dt() float64 { return s.host.Config().MinDelay }

func (s *plastic) fast() (pre, post float64) {
	return s.host.Filter(s.pre, FilterFast), s.host.Filter(s.post, FilterFast)
}

func (s *plastic) Filters() []FilterNeed {
	return []FilterNeed{
		{Unit: s.pre, Name: FilterFast, Tau: s.tauFast},
		{Unit: s.post, Name: FilterFast, Tau: s.tauFast},
	}
}

// Hebbian grows with the product of filtered pre and post activity.
type Hebbian struct{ plastic }

func newHebbian(p SynapseParams) (Synapse, error) {
	base, err := newPlastic(p)
	if err != nil {
		return nil, err
	}
	return &Hebbian{base}, nil
}

func (s *Hebbian) Type() string { return "hebbian" }

func (s *Hebbian) Update(t float64) {
	pre, post := s.fast()
	s.w += s.lrate * s.dt() * pre * post
}

// Oja is Hebbian learning with Oja's normalizing decay term.
type Oja struct{ plastic }

func newOja(p SynapseParams) (Synapse, error) {
	base, err := newPlastic(p)
	if err != nil {
		return nil, err
	}
	return &Oja{base}, nil
}

func (s *Oja) Type() string { return "oja" }

func (s *Oja) Update(t float64) {
	pre, post := s.fast()
	s.w += s.lrate * s.dt() * post * (pre - post*s.w)
}

// Cov correlates presynaptic activity with the deviation of postsynaptic
// activity from its slow average.
type Cov struct {
	plastic
	tauSlow float64
}

func newCov(p SynapseParams) (Synapse, error) {
	base, err := newPlastic(p)
	if err != nil {
		return nil, err
	}
	s := &Cov{plastic: base, tauSlow: p.Get("tau_slow", 1)}
	if s.tauSlow <= 0 {
		return nil, fmt.Errorf("tau_slow must be positive, got %v", s.tauSlow)
	}
	return s, nil
}

func (s *Cov) Type() string { return "cov" }

func (s *Cov) Filters() []FilterNeed {
	return append(s.plastic.Filters(), FilterNeed{Unit: s.post, Name: FilterSlow, Tau: s.tauSlow})
}

func (s *Cov) Update(t float64) {
	pre, post := s.fast()
	slow := s.host.Filter(s.post, FilterSlow)
	s.w += s.lrate * s.dt() * pre * (post - slow)
}
