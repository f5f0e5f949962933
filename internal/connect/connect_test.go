package connect_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/delaynet/internal/connect"
	"github.com/san-kum/delaynet/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

var _ = Describe("Pairs", func() {
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewSource(7))
	})

	DescribeTable("pair counts",
		func(from, to []int, spec connect.Spec, want int) {
			pairs, err := connect.Pairs(from, to, spec, rng)
			Expect(err).NotTo(HaveOccurred())
			Expect(pairs).To(HaveLen(want))
		},
		Entry("one_to_one", []int{0, 1, 2}, []int{3, 4, 5}, connect.Spec{Rule: connect.OneToOne}, 3),
		Entry("one_to_one without autapses", []int{0, 1, 2}, []int{0, 4, 2}, connect.Spec{Rule: connect.OneToOne, NoAutapses: true}, 1),
		Entry("all_to_all", []int{0, 1}, []int{2, 3, 4}, connect.Spec{Rule: connect.AllToAll}, 6),
		Entry("all_to_all with autapses", []int{0, 1, 2}, []int{0, 1, 2}, connect.Spec{Rule: connect.AllToAll}, 9),
		Entry("all_to_all without autapses", []int{0, 1, 2}, []int{0, 1, 2}, connect.Spec{Rule: connect.AllToAll, NoAutapses: true}, 6),
		Entry("fixed_outdegree", []int{0, 1}, []int{2, 3, 4, 5}, connect.Spec{Rule: connect.FixedOutdegree, Outdegree: 3}, 6),
		Entry("fixed_indegree", []int{0, 1, 2, 3}, []int{4, 5, 6}, connect.Spec{Rule: connect.FixedIndegree, Indegree: 2}, 6),
		Entry("fixed_outdegree with replacement", []int{0}, []int{1}, connect.Spec{Rule: connect.FixedOutdegree, Outdegree: 4, AllowMultapses: true}, 4),
	)

	It("keeps every target distinct for fixed_outdegree without multapses", func() {
		pairs, err := connect.Pairs([]int{0, 1, 2}, []int{0, 1, 2, 3, 4}, connect.Spec{Rule: connect.FixedOutdegree, Outdegree: 4, NoAutapses: true}, rng)
		Expect(err).NotTo(HaveOccurred())

		targets := map[int]map[int]bool{}
		for _, p := range pairs {
			Expect(p.Source).NotTo(Equal(p.Target))
			if targets[p.Source] == nil {
				targets[p.Source] = map[int]bool{}
			}
			Expect(targets[p.Source]).NotTo(HaveKey(p.Target))
			targets[p.Source][p.Target] = true
		}
		Expect(targets).To(HaveLen(3))
	})

	It("fails when the outdegree exceeds the target pool", func() {
		pairs, err := connect.Pairs([]int{0, 1}, []int{2, 3}, connect.Spec{Rule: connect.FixedOutdegree, Outdegree: 3}, rng)
		Expect(err).To(MatchError(dynamo.ErrConstruction))
		Expect(pairs).To(BeEmpty())
	})

	It("counts the source itself out of the pool without autapses", func() {
		_, err := connect.Pairs([]int{0}, []int{0, 1}, connect.Spec{Rule: connect.FixedIndegree, Indegree: 2, NoAutapses: true}, rng)
		Expect(err).To(MatchError(dynamo.ErrConstruction))
	})

	It("rejects one_to_one with mismatched lengths", func() {
		_, err := connect.Pairs([]int{0, 1}, []int{2}, connect.Spec{Rule: connect.OneToOne}, rng)
		Expect(err).To(MatchError(dynamo.ErrConstruction))
	})

	It("rejects duplicate pairs unless multapses are allowed", func() {
		spec := connect.Spec{Rule: connect.AllToAll}
		_, err := connect.Pairs([]int{0, 0}, []int{1}, spec, rng)
		Expect(err).To(MatchError(dynamo.ErrConstruction))

		spec.AllowMultapses = true
		pairs, err := connect.Pairs([]int{0, 0}, []int{1}, spec, rng)
		Expect(err).NotTo(HaveOccurred())
		Expect(pairs).To(HaveLen(2))
	})

	It("rejects unknown rules", func() {
		_, err := connect.Pairs([]int{0}, []int{1}, connect.Spec{Rule: "small_world"}, rng)
		Expect(err).To(MatchError(dynamo.ErrConstruction))
	})
})

var _ = Describe("Weights", func() {
	var rng *rand.Rand
	pairs := []connect.Pair{{0, 3}, {1, 3}, {2, 3}, {0, 4}, {1, 4}}

	BeforeEach(func() {
		rng = rand.New(rand.NewSource(11))
	})

	It("rescales equal_norm weights per target", func() {
		w, err := connect.Weights(connect.EqualNorm(2.5), pairs, rng)
		Expect(err).NotTo(HaveOccurred())
		Expect(floats.Norm(w[:3], 2)).To(BeNumerically("~", 2.5, 1e-12))
		Expect(floats.Norm(w[3:], 2)).To(BeNumerically("~", 2.5, 1e-12))
		for _, v := range w {
			Expect(v).To(BeNumerically(">=", 0))
		}
	})

	It("draws uniform weights inside the interval", func() {
		w, err := connect.Weights(connect.Uniform(-1, 1), pairs, rng)
		Expect(err).NotTo(HaveOccurred())
		for _, v := range w {
			Expect(v).To(BeNumerically(">=", -1))
			Expect(v).To(BeNumerically("<", 1))
		}
	})

	It("needs one listed weight per connection", func() {
		_, err := connect.Weights(connect.List(1, 2), pairs, rng)
		Expect(err).To(MatchError(dynamo.ErrConstruction))

		w, err := connect.Weights(connect.List(1, 2, 3, 4, 5), pairs, rng)
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal([]float64{1, 2, 3, 4, 5}))
	})
})

var _ = Describe("Delays", func() {
	cfg := dynamo.Config{MinDelay: 0.1, MinBuffSize: 4, RTol: 1e-6, ATol: 1e-6}
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewSource(3))
	})

	It("snaps near multiples to exact multiples", func() {
		d, err := connect.Delays(connect.Scalar(0.30000001), 2, cfg, rng)
		Expect(err).NotTo(HaveOccurred())
		want := float64(3) * cfg.MinDelay
		Expect(d).To(Equal([]float64{want, want}))
	})

	DescribeTable("rejects delays that are not positive multiples",
		func(v connect.Value) {
			_, err := connect.Delays(v, 2, cfg, rng)
			Expect(err).To(MatchError(dynamo.ErrDelay))
		},
		Entry("off grid", connect.Scalar(0.15)),
		Entry("zero", connect.Scalar(0)),
		Entry("negative", connect.Scalar(-0.2)),
		Entry("one bad list entry", connect.List(0.1, 0.25)),
	)

	It("draws uniform delays as whole steps in the closed range", func() {
		d, err := connect.Delays(connect.Uniform(0.2, 0.4), 200, cfg, rng)
		Expect(err).NotTo(HaveOccurred())
		seen := map[int]bool{}
		for _, v := range d {
			steps := int(math.Round(v / 0.1))
			Expect(math.Abs(v/0.1 - float64(steps))).To(BeNumerically("<", 1e-9))
			Expect(steps).To(BeNumerically(">=", 2))
			Expect(steps).To(BeNumerically("<=", 4))
			seen[steps] = true
		}
		Expect(seen).To(HaveLen(3))
	})

	It("clamps uniform delays to at least one step", func() {
		d, err := connect.Delays(connect.Uniform(0, 0.01), 5, cfg, rng)
		Expect(err).NotTo(HaveOccurred())
		for _, v := range d {
			Expect(v).To(BeNumerically("~", 0.1, 1e-12))
		}
	})

	It("does not accept equal_norm delays", func() {
		_, err := connect.Delays(connect.EqualNorm(1), 1, cfg, rng)
		Expect(err).To(MatchError(dynamo.ErrConstruction))
	})
})

var _ = Describe("Ports", func() {
	It("defaults to port 0", func() {
		Expect(connect.Ports(nil, 3)).To(Equal([]int{0, 0, 0}))
	})

	It("broadcasts a single port", func() {
		Expect(connect.Ports([]int{1}, 2)).To(Equal([]int{1, 1}))
	})

	It("rejects a list of the wrong length", func() {
		_, err := connect.Ports([]int{0, 1}, 3)
		Expect(err).To(MatchError(dynamo.ErrConstruction))
	})
})
