package config

import (
	"fmt"

	"github.com/san-kum/delaynet/internal/connect"
	"gopkg.in/yaml.v3"
)

// Value is a weight or delay request. In YAML it is a number, a list with
// one number per connection, or a distribution:
//
//	init_w: 0.5
//	init_w: [0.1, 0.2, 0.3]
//	init_w: {distribution: uniform, low: -1, high: 1}
//	init_w: {distribution: equal_norm, norm: 1}
type Value connect.Value

func Scalar(v float64) Value          { return Value(connect.Scalar(v)) }
func List(vs ...float64) Value        { return Value(connect.List(vs...)) }
func Uniform(low, high float64) Value { return Value(connect.Uniform(low, high)) }
func EqualNorm(norm float64) Value    { return Value(connect.EqualNorm(norm)) }

func (v Value) Spec() connect.Value { return connect.Value(v) }

type distribution struct {
	Distribution string  `yaml:"distribution"`
	Low          float64 `yaml:"low,omitempty"`
	High         float64 `yaml:"high,omitempty"`
	Norm         float64 `yaml:"norm,omitempty"`
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Scalar(f)
	case yaml.SequenceNode:
		var fs []float64
		if err := node.Decode(&fs); err != nil {
			return err
		}
		*v = List(fs...)
	case yaml.MappingNode:
		var d distribution
		if err := node.Decode(&d); err != nil {
			return err
		}
		switch d.Distribution {
		case "uniform":
			*v = Uniform(d.Low, d.High)
		case "equal_norm":
			*v = EqualNorm(d.Norm)
		default:
			return fmt.Errorf("line %d: unknown distribution %q", node.Line, d.Distribution)
		}
	default:
		return fmt.Errorf("line %d: expected a number, a list or a distribution", node.Line)
	}
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	switch v.Kind {
	case connect.KindScalar:
		return v.Scalar, nil
	case connect.KindList:
		return v.List, nil
	case connect.KindUniform:
		return distribution{Distribution: "uniform", Low: v.Low, High: v.High}, nil
	case connect.KindEqualNorm:
		return distribution{Distribution: "equal_norm", Norm: v.Norm}, nil
	}
	return nil, fmt.Errorf("unsupported value kind %s", v.Kind)
}

// Floats, Strings and Ints accept either a single item or a list.
type (
	Floats  []float64
	Strings []string
	Ints    []int
)

func scalarOrList[T any](node *yaml.Node) ([]T, error) {
	if node.Kind == yaml.ScalarNode {
		var x T
		if err := node.Decode(&x); err != nil {
			return nil, err
		}
		return []T{x}, nil
	}
	var xs []T
	if err := node.Decode(&xs); err != nil {
		return nil, err
	}
	return xs, nil
}

func oneOrMany[T any](xs []T) (any, error) {
	if len(xs) == 1 {
		return xs[0], nil
	}
	return xs, nil
}

func (f *Floats) UnmarshalYAML(node *yaml.Node) (err error) {
	*f, err = scalarOrList[float64](node)
	return err
}

func (s *Strings) UnmarshalYAML(node *yaml.Node) (err error) {
	*s, err = scalarOrList[string](node)
	return err
}

func (i *Ints) UnmarshalYAML(node *yaml.Node) (err error) {
	*i, err = scalarOrList[int](node)
	return err
}

func (f Floats) MarshalYAML() (any, error)  { return oneOrMany([]float64(f)) }
func (s Strings) MarshalYAML() (any, error) { return oneOrMany([]string(s)) }
func (i Ints) MarshalYAML() (any, error)    { return oneOrMany([]int(i)) }
