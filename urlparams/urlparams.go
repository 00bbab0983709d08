// Package urlparams declares the URL query parameters of a call and converts
// them to and from query strings.
//
// Parameters are either individual named values, the declared fields of a
// structured params object, or both. Values whose declared type has a
// registered object descriptor are flattened: each field travels as its own
// top-level parameter.
package urlparams

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/typed"
)

var (
	ErrArrayParam     = errors.New("urlparams: arrays are not supported as URL parameters")
	ErrMultipleValues = errors.New("urlparams: parameter has more than one value")
	ErrNoObject       = errors.New("urlparams: spec declares no params object")
)

// Spec is the immutable declaration of a call's URL parameters.
type Spec struct {
	params *params.Spec
	object *typed.Object
}

// Empty declares no parameters.
var Empty = &Spec{params: params.Empty}

// Params declares every parameter name, including the fields of the params
// object.
func (s *Spec) Params() *params.Spec { return s.params }

// Object is the structured params object descriptor, or nil.
func (s *Spec) Object() *typed.Object { return s.object }

// SpecBuilder builds a Spec.
type SpecBuilder struct {
	params *params.SpecBuilder
	object *typed.Object
	err    error
}

func NewSpecBuilder() *SpecBuilder {
	return &SpecBuilder{params: params.NewSpecBuilder()}
}

// Add declares individual parameters.
func (b *SpecBuilder) Add(keys ...typed.Keyed) *SpecBuilder {
	b.params.Add(keys...)
	return b
}

// Object declares obj as the structured params object; its fields become
// parameters. At most one params object may be declared.
func (b *SpecBuilder) Object(obj *typed.Object) *SpecBuilder {
	if b.object != nil && b.object != obj {
		b.err = fmt.Errorf("urlparams: params object already declared as %v", b.object.Type)
		return b
	}
	b.object = obj
	for _, f := range obj.Fields {
		b.params.Put(f.Name, f.Type)
	}
	return b
}

// Merge declares everything s declares, including its params object.
func (b *SpecBuilder) Merge(s *Spec) *SpecBuilder {
	if s.object != nil {
		b.Object(s.object)
	}
	b.params.Merge(s.params)
	return b
}

func (b *SpecBuilder) Build() (*Spec, error) {
	if b.err != nil {
		return nil, b.err
	}
	ps, err := b.params.Build()
	if err != nil {
		return nil, err
	}
	return &Spec{params: ps, object: b.object}, nil
}

// NewSpec is a convenience for NewSpecBuilder().Add(keys...).Build().
func NewSpec(keys ...typed.Keyed) (*Spec, error) {
	return NewSpecBuilder().Add(keys...).Build()
}

// Params holds the URL parameters of one call: an optional params object and
// a map of individually set values.
type Params struct {
	spec   *Spec
	object any
	values *params.Map
}

// New returns empty Params for spec.
func New(spec *Spec) *Params {
	if spec == nil {
		spec = Empty
	}
	return &Params{spec: spec, values: params.NewMap(spec.params)}
}

// NewWithObject returns Params carrying obj as the params object.
func NewWithObject(spec *Spec, obj any) (*Params, error) {
	if spec.object == nil {
		return nil, ErrNoObject
	}
	if obj != nil && !reflect.TypeOf(obj).AssignableTo(spec.object.Type) {
		return nil, fmt.Errorf("urlparams: params object %T, want %v", obj, spec.object.Type)
	}
	p := New(spec)
	p.object = obj
	return p, nil
}

func (p *Params) Spec() *Spec { return p.spec }

func (p *Params) HasObject() bool { return p.object != nil }

func (p *Params) HasMap() bool { return p.values.Len() > 0 }

func (p *Params) Object() any { return p.object }

// Values is the map of individually set parameters.
func (p *Params) Values() *params.Map { return p.values }

// Put sets an individual parameter.
func (p *Params) Put(name string, v any) error {
	return p.values.Put(name, v)
}

// Get returns the value of name, from the params object's fields first and
// then from the map.
func (p *Params) Get(name string) (any, bool) {
	if p.object != nil {
		if f, ok := p.spec.object.Field(name); ok {
			return f.Get(p.object), true
		}
	}
	return p.values.Get(name)
}

// ObjectOf returns the params object as a T.
func ObjectOf[T any](p *Params) (T, bool) {
	t, ok := p.object.(T)
	return t, ok
}
