// Package connect turns connection requests into concrete (source, target)
// pairs with their weights, delays and input ports. It never touches a
// network; callers apply the result only once everything has resolved.
package connect

import (
	"fmt"

	"github.com/san-kum/delaynet/internal/dynamo"
)

type Rule string

const (
	OneToOne       Rule = "one_to_one"
	AllToAll       Rule = "all_to_all"
	FixedOutdegree Rule = "fixed_outdegree"
	FixedIndegree  Rule = "fixed_indegree"
)

// Spec describes how sources are paired with targets.
type Spec struct {
	Rule      Rule
	Outdegree int
	Indegree  int
	Delay     Value

	// Autapses are allowed unless NoAutapses is set.
	NoAutapses bool

	// Multapses are rejected unless AllowMultapses is set.
	AllowMultapses bool
}

type Kind int

const (
	KindScalar Kind = iota
	KindList
	KindUniform
	KindEqualNorm
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindUniform:
		return "uniform"
	case KindEqualNorm:
		return "equal_norm"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a weight or delay request: one scalar for every connection, an
// explicit list in connection order, or a distribution.
type Value struct {
	Kind      Kind
	Scalar    float64
	List      []float64
	Low, High float64
	Norm      float64
}

func Scalar(v float64) Value          { return Value{Kind: KindScalar, Scalar: v} }
func List(vs ...float64) Value        { return Value{Kind: KindList, List: vs} }
func Uniform(low, high float64) Value { return Value{Kind: KindUniform, Low: low, High: high} }
func EqualNorm(norm float64) Value    { return Value{Kind: KindEqualNorm, Norm: norm} }

type Pair struct {
	Source, Target int
}

func constructionErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", dynamo.ErrConstruction, fmt.Sprintf(format, args...))
}
