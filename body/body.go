package body

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mnehpets/callspec/params"
)

var ErrShape = errors.New("body: value does not fit body spec")

// Body is one of *Simple, *List or *Map.
type Body interface {
	Spec() *Spec
	isBody()
}

// Simple is a body holding a single value.
type Simple struct {
	spec  *Spec
	Value any
}

// List is a body holding a homogeneous list.
type List struct {
	spec   *Spec
	Values []any
}

// Map is a body holding declared named values.
type Map struct {
	spec   *Spec
	Values *params.Map
}

func (b *Simple) Spec() *Spec { return b.spec }
func (b *List) Spec() *Spec   { return b.spec }
func (b *Map) Spec() *Spec    { return b.spec }

func (*Simple) isBody() {}
func (*List) isBody()   {}
func (*Map) isBody()    {}

// NewSimple returns a simple body holding v.
func NewSimple(spec *Spec, v any) (*Simple, error) {
	if spec.shape != ShapeSimple {
		return nil, fmt.Errorf("%w: simple value for %v body", ErrShape, spec.shape)
	}
	if err := checkValue(spec.elem, v); err != nil {
		return nil, err
	}
	return &Simple{spec: spec, Value: v}, nil
}

// NewList returns a list body holding values.
func NewList(spec *Spec, values ...any) (*List, error) {
	if spec.shape != ShapeList {
		return nil, fmt.Errorf("%w: list value for %v body", ErrShape, spec.shape)
	}
	for _, v := range values {
		if err := checkValue(spec.elem, v); err != nil {
			return nil, err
		}
	}
	if values == nil {
		values = []any{}
	}
	return &List{spec: spec, Values: values}, nil
}

// NewMap returns a map body holding m. A nil m starts an empty map that can
// be filled through Values.
func NewMap(spec *Spec, m *params.Map) (*Map, error) {
	if spec.shape != ShapeMap {
		return nil, fmt.Errorf("%w: map value for %v body", ErrShape, spec.shape)
	}
	if m == nil {
		m = params.NewMap(spec.params)
	}
	if m.Spec() != spec.params {
		return nil, fmt.Errorf("%w: map declared by a different params spec", ErrShape)
	}
	return &Map{spec: spec, Values: m}, nil
}

// Empty returns the zero body of spec's shape.
func Empty(spec *Spec) Body {
	switch spec.shape {
	case ShapeSimple:
		return &Simple{spec: spec}
	case ShapeList:
		return &List{spec: spec, Values: []any{}}
	default:
		return &Map{spec: spec, Values: params.NewMap(spec.params)}
	}
}

func checkValue(t reflect.Type, v any) error {
	if v == nil {
		return nil
	}
	if !reflect.TypeOf(v).AssignableTo(t) {
		return fmt.Errorf("%w: got %T, want %v", ErrShape, v, t)
	}
	return nil
}
