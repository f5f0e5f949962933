package connect

import (
	"math/rand"
	"slices"
)

// Pairs samples the connections requested by spec. It returns an error
// without side effects when the request cannot be satisfied.
func Pairs(from, to []int, spec Spec, rng *rand.Rand) ([]Pair, error) {
	var pairs []Pair

	switch spec.Rule {
	case OneToOne:
		if len(from) != len(to) {
			return nil, constructionErr("one_to_one needs equal lengths, got %d sources and %d targets", len(from), len(to))
		}
		for i := range from {
			if spec.NoAutapses && from[i] == to[i] {
				continue
			}
			pairs = append(pairs, Pair{from[i], to[i]})
		}
	case AllToAll:
		for _, s := range from {
			for _, t := range to {
				if spec.NoAutapses && s == t {
					continue
				}
				pairs = append(pairs, Pair{s, t})
			}
		}
	case FixedOutdegree:
		if spec.Outdegree < 0 {
			return nil, constructionErr("negative outdegree %d", spec.Outdegree)
		}
		chosen, err := sampleEach(from, to, spec.Outdegree, spec, rng)
		if err != nil {
			return nil, err
		}
		for i, s := range from {
			for _, t := range chosen[i] {
				pairs = append(pairs, Pair{s, t})
			}
		}
	case FixedIndegree:
		if spec.Indegree < 0 {
			return nil, constructionErr("negative indegree %d", spec.Indegree)
		}
		chosen, err := sampleEach(to, from, spec.Indegree, spec, rng)
		if err != nil {
			return nil, err
		}
		for i, t := range to {
			for _, s := range chosen[i] {
				pairs = append(pairs, Pair{s, t})
			}
		}
	default:
		return nil, constructionErr("unknown connection rule: %q", spec.Rule)
	}

	if !spec.AllowMultapses {
		seen := make(map[Pair]struct{}, len(pairs))
		for _, p := range pairs {
			if _, dup := seen[p]; dup {
				return nil, constructionErr("duplicate connection %d->%d with multapses disallowed", p.Source, p.Target)
			}
			seen[p] = struct{}{}
		}
	}
	return pairs, nil
}

// sampleEach draws k partners from pool for every anchor. The pool sizes
// are all checked before any drawing happens.
func sampleEach(anchors, pool []int, k int, spec Spec, rng *rand.Rand) ([][]int, error) {
	base := pool
	if !spec.AllowMultapses {
		base = unique(pool)
	}

	pools := make([][]int, len(anchors))
	for i, a := range anchors {
		p := base
		if spec.NoAutapses {
			p = slices.DeleteFunc(slices.Clone(base), func(id int) bool { return id == a })
		}
		if !spec.AllowMultapses && k > len(p) {
			return nil, constructionErr("%s of %d exceeds the %d available partners of unit %d", spec.Rule, k, len(p), a)
		}
		if spec.AllowMultapses && k > 0 && len(p) == 0 {
			return nil, constructionErr("%s: unit %d has no available partners", spec.Rule, a)
		}
		pools[i] = p
	}

	chosen := make([][]int, len(anchors))
	for i, p := range pools {
		picks := make([]int, k)
		if spec.AllowMultapses {
			for j := range picks {
				picks[j] = p[rng.Intn(len(p))]
			}
		} else {
			perm := rng.Perm(len(p))
			for j := range picks {
				picks[j] = p[perm[j]]
			}
		}
		chosen[i] = picks
	}
	return chosen, nil
}

func unique(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
