// Package params implements the typed parameter container shared by request
// and response headers, URL parameter maps and map-shaped bodies.
//
// A Spec declares the allowed names and their wire types; a Map holds the
// values of one call and is checked against its Spec on every Put.
package params

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mnehpets/callspec/typed"
)

var (
	ErrUnknownName   = errors.New("params: name not declared in spec")
	ErrTypeMismatch  = errors.New("params: value does not match declared type")
	ErrDuplicateName = errors.New("params: name declared twice with different types")
)

// Spec is an immutable, ordered declaration of name -> type.
type Spec struct {
	names []string
	types map[string]reflect.Type
}

// Empty is the Spec without entries.
var Empty = &Spec{types: map[string]reflect.Type{}}

// Names returns the declared names in declaration order.
func (s *Spec) Names() []string {
	return append([]string(nil), s.names...)
}

// Type returns the declared type of name, or nil.
func (s *Spec) Type(name string) reflect.Type {
	return s.types[name]
}

// Contains reports whether name is declared.
func (s *Spec) Contains(name string) bool {
	_, ok := s.types[name]
	return ok
}

func (s *Spec) Len() int { return len(s.names) }

// Keys returns the declared entries as untyped keys, in declaration order.
func (s *Spec) Keys() []typed.UntypedKey {
	keys := make([]typed.UntypedKey, 0, len(s.names))
	for _, n := range s.names {
		keys = append(keys, typed.UntypedKey{Name: n, Type: s.types[n]})
	}
	return keys
}

func (s *Spec) String() string {
	return fmt.Sprint(s.Keys())
}

// SpecBuilder accumulates declarations for a Spec. The first error is kept
// and returned by Build.
type SpecBuilder struct {
	names []string
	types map[string]reflect.Type
	err   error
}

// NewSpecBuilder returns an empty builder.
func NewSpecBuilder() *SpecBuilder {
	return &SpecBuilder{types: make(map[string]reflect.Type)}
}

// Put declares name with type t. Redeclaring a name with the same type is a
// no-op.
func (b *SpecBuilder) Put(name string, t reflect.Type) *SpecBuilder {
	if b.err != nil {
		return b
	}
	if t == nil {
		b.err = fmt.Errorf("params: %q: nil type", name)
		return b
	}
	if prev, ok := b.types[name]; ok {
		if prev != t {
			b.err = fmt.Errorf("%w: %q (%v, %v)", ErrDuplicateName, name, prev, t)
		}
		return b
	}
	b.names = append(b.names, name)
	b.types[name] = t
	return b
}

// Add declares each key.
func (b *SpecBuilder) Add(keys ...typed.Keyed) *SpecBuilder {
	for _, k := range keys {
		u := k.Untyped()
		b.Put(u.Name, u.Type)
	}
	return b
}

// Merge declares every entry of s.
func (b *SpecBuilder) Merge(s *Spec) *SpecBuilder {
	for _, n := range s.names {
		b.Put(n, s.types[n])
	}
	return b
}

// Build returns an immutable Spec. The builder may be reused afterwards.
func (b *SpecBuilder) Build() (*Spec, error) {
	if b.err != nil {
		return nil, b.err
	}
	s := &Spec{
		names: append([]string(nil), b.names...),
		types: make(map[string]reflect.Type, len(b.types)),
	}
	for n, t := range b.types {
		s.types[n] = t
	}
	return s, nil
}

// NewSpec is a convenience for NewSpecBuilder().Add(keys...).Build().
func NewSpec(keys ...typed.Keyed) (*Spec, error) {
	return NewSpecBuilder().Add(keys...).Build()
}
