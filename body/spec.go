// Package body models request and response content bodies. A body has exactly
// one of three shapes: a single value, a homogeneous list, or a map of
// declared named values.
package body

import (
	"fmt"
	"reflect"

	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/typed"
)

// Shape is the structural kind of a body.
type Shape int

const (
	ShapeSimple Shape = iota + 1
	ShapeList
	ShapeMap
)

func (s Shape) String() string {
	switch s {
	case ShapeSimple:
		return "SIMPLE"
	case ShapeList:
		return "LIST"
	case ShapeMap:
		return "MAP"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

var mapWireType = reflect.TypeOf(map[string]any(nil))

// Spec declares the shape of a body. It is immutable.
type Spec struct {
	shape  Shape
	elem   reflect.Type
	params *params.Spec
	wire   reflect.Type
}

// SimpleSpec declares a body holding one value of type t.
func SimpleSpec(t reflect.Type) *Spec {
	return &Spec{shape: ShapeSimple, elem: t, params: params.Empty, wire: t}
}

// ListSpec declares a body holding a list of values of type elem.
func ListSpec(elem reflect.Type) *Spec {
	return &Spec{shape: ShapeList, elem: elem, params: params.Empty, wire: reflect.SliceOf(elem)}
}

// MapSpec declares a body holding the named values declared by ps.
func MapSpec(ps *params.Spec) *Spec {
	if ps == nil {
		ps = params.Empty
	}
	return &Spec{shape: ShapeMap, params: ps, wire: mapWireType}
}

// MapSpecOf declares a map body from keys.
func MapSpecOf(keys ...typed.Keyed) (*Spec, error) {
	ps, err := params.NewSpec(keys...)
	if err != nil {
		return nil, err
	}
	return MapSpec(ps), nil
}

// EmptySpec declares a body without content.
func EmptySpec() *Spec {
	return MapSpec(params.Empty)
}

func (s *Spec) Shape() Shape { return s.shape }

// ElemType is the value type of simple bodies and the element type of list
// bodies. It is nil for map bodies.
func (s *Spec) ElemType() reflect.Type { return s.elem }

// Params declares the entries of map bodies.
func (s *Spec) Params() *params.Spec { return s.params }

// WireType is the Go type a body of this spec is carried as.
func (s *Spec) WireType() reflect.Type { return s.wire }

// IsEmpty reports whether bodies of this spec carry no content.
func (s *Spec) IsEmpty() bool {
	return s.shape == ShapeMap && s.params.Len() == 0
}

func (s *Spec) String() string {
	switch s.shape {
	case ShapeMap:
		return "MAP" + s.params.String()
	default:
		return s.shape.String() + "<" + s.elem.String() + ">"
	}
}
