package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Kind reports which form a OneOrMany value was given in.
type Kind uint8

const (
	KindNone Kind = iota
	KindOne
	KindMany
)

func (k Kind) String() string {
	switch k {
	case KindOne:
		return "one"
	case KindMany:
		return "many"
	default:
		return "none"
	}
}

// Scalar is the set of element types a OneOrMany can carry.
type Scalar interface {
	~string | ~float64
}

// OneOrMany holds either a single value or an ordered list of values.
// The zero value is KindNone, which is how an absent field decodes.
type OneOrMany[T Scalar] struct {
	kind   Kind
	values []T
}

// One builds a singular value.
func One[T Scalar](v T) OneOrMany[T] {
	return OneOrMany[T]{kind: KindOne, values: []T{v}}
}

// Many builds a plural value. Many() with no arguments is an empty list,
// which is still a present value.
func Many[T Scalar](vs ...T) OneOrMany[T] {
	out := make([]T, len(vs))
	copy(out, vs)
	return OneOrMany[T]{kind: KindMany, values: out}
}

func (o OneOrMany[T]) Kind() Kind   { return o.kind }
func (o OneOrMany[T]) IsSet() bool  { return o.kind != KindNone }
func (o OneOrMany[T]) IsMany() bool { return o.kind == KindMany }
func (o OneOrMany[T]) Len() int     { return len(o.values) }

// Values returns a copy of the carried values: one element for KindOne,
// nil for KindNone.
func (o OneOrMany[T]) Values() []T {
	if o.kind == KindNone {
		return nil
	}
	out := make([]T, len(o.values))
	copy(out, o.values)
	return out
}

// First returns the first value, or the zero value and false if there is none.
func (o OneOrMany[T]) First() (T, bool) {
	return o.At(0)
}

// At returns the i-th value. A singular value answers every index.
func (o OneOrMany[T]) At(i int) (T, bool) {
	var zero T
	switch o.kind {
	case KindOne:
		return o.values[0], true
	case KindMany:
		if i < 0 || i >= len(o.values) {
			return zero, false
		}
		return o.values[i], true
	default:
		return zero, false
	}
}

// Match calls one or many depending on the form of the value. Neither is
// called for KindNone.
func (o OneOrMany[T]) Match(one func(T), many func([]T)) {
	switch o.kind {
	case KindOne:
		one(o.values[0])
	case KindMany:
		many(o.Values())
	}
}

// ValidationValue is the view the validator sees: nil when absent, a
// non-nil slice otherwise.
func (o OneOrMany[T]) ValidationValue() any {
	if o.kind == KindNone {
		return []T(nil)
	}
	if o.values == nil {
		return []T{}
	}
	return o.values
}

func (o OneOrMany[T]) MarshalJSON() ([]byte, error) {
	switch o.kind {
	case KindOne:
		return json.Marshal(o.values[0])
	case KindMany:
		if o.values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(o.values)
	default:
		return []byte("null"), nil
	}
}

func (o *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = OneOrMany[T]{}
		return nil
	}

	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		values := make([]T, 0, len(raw))
		for _, item := range raw {
			var v T
			if err := decodeJSONScalar(item, &v); err != nil {
				return err
			}
			values = append(values, v)
		}
		*o = OneOrMany[T]{kind: KindMany, values: values}
		return nil
	default:
		var v T
		if err := decodeJSONScalar(data, &v); err != nil {
			return err
		}
		*o = One(v)
		return nil
	}
}

// decodeJSONScalar decodes one value of a OneOrMany. null is rejected here;
// an absent or null field never reaches it.
func decodeJSONScalar[T Scalar](data []byte, v *T) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && (data[0] == '[' || data[0] == '{' || data[0] == 'n') {
		return &json.UnmarshalTypeError{
			Value: jsonKind(data[0]),
			Type:  reflect.TypeFor[T](),
		}
	}
	return json.Unmarshal(data, v)
}

func jsonKind(b byte) string {
	switch b {
	case '[':
		return "array"
	case '{':
		return "object"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func (o OneOrMany[T]) MarshalYAML() (interface{}, error) {
	switch o.kind {
	case KindOne:
		return o.values[0], nil
	case KindMany:
		if o.values == nil {
			return []T{}, nil
		}
		return o.values, nil
	default:
		return nil, nil
	}
}

func (o *OneOrMany[T]) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.AliasNode:
		return o.UnmarshalYAML(node.Alias)
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			*o = OneOrMany[T]{}
			return nil
		}
		v, err := decodeYAMLScalar[T](node)
		if err != nil {
			return err
		}
		*o = One(v)
		return nil
	case yaml.SequenceNode:
		values := make([]T, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind == yaml.AliasNode {
				item = item.Alias
			}
			if item.Kind != yaml.ScalarNode {
				return yamlShapeError(item, reflect.TypeFor[T]())
			}
			v, err := decodeYAMLScalar[T](item)
			if err != nil {
				return err
			}
			values = append(values, v)
		}
		*o = OneOrMany[T]{kind: KindMany, values: values}
		return nil
	default:
		return yamlShapeError(node, reflect.TypeFor[[]T]())
	}
}

// decodeYAMLScalar decodes one scalar node. yaml.v3 hands the raw text of
// any scalar to a string, so string kinds insist on a !!str node; null is
// never a value.
func decodeYAMLScalar[T Scalar](node *yaml.Node) (T, error) {
	var v T
	want := reflect.TypeFor[T]()
	tag := node.ShortTag()
	if tag == "!!null" || (want.Kind() == reflect.String && tag != "!!str") {
		return v, yamlShapeError(node, want)
	}
	err := node.Decode(&v)
	return v, err
}

// checkYAMLString reports a *yaml.TypeError unless node is absent, null or
// a string scalar.
func checkYAMLString(node *yaml.Node) error {
	if node == nil {
		return nil
	}
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if tag := node.ShortTag(); node.Kind == yaml.ScalarNode && (tag == "!!str" || tag == "!!null") {
		return nil
	}
	return yamlShapeError(node, reflect.TypeFor[string]())
}

func yamlShapeError(node *yaml.Node, want reflect.Type) error {
	var got string
	switch node.Kind {
	case yaml.SequenceNode:
		got = "sequence"
	case yaml.MappingNode:
		got = "mapping"
	default:
		got = node.ShortTag() + " `" + node.Value + "`"
	}
	return &yaml.TypeError{Errors: []string{
		fmt.Sprintf("line %d: cannot unmarshal %s into %s", node.Line, got, want),
	}}
}
