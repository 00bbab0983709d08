package params

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/mnehpets/callspec/typed"
)

// Map is an insertion-ordered name -> value container whose entries are
// typed by its Spec.
//
// A Map is owned by the call being built or parsed and is not safe for
// concurrent mutation.
type Map struct {
	spec   *Spec
	order  []string
	values map[string]any
}

// NewMap returns an empty Map for spec. A nil spec means Empty.
func NewMap(spec *Spec) *Map {
	if spec == nil {
		spec = Empty
	}
	return &Map{spec: spec, values: make(map[string]any)}
}

func (m *Map) Spec() *Spec { return m.spec }

// Put stores v under name, typed by the spec.
func (m *Map) Put(name string, v any) error {
	t := m.spec.Type(name)
	if t == nil {
		return fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return m.put(name, v, t)
}

// PutTyped stores v under name after checking that t is the declared type.
func (m *Map) PutTyped(name string, v any, t reflect.Type) error {
	declared := m.spec.Type(name)
	if declared == nil {
		return fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	if declared != t {
		return fmt.Errorf("%w: %q declared %v, got %v", ErrTypeMismatch, name, declared, t)
	}
	return m.put(name, v, t)
}

func (m *Map) put(name string, v any, t reflect.Type) error {
	if v != nil && !reflect.TypeOf(v).AssignableTo(t) {
		return fmt.Errorf("%w: %q declared %v, got %T", ErrTypeMismatch, name, t, v)
	}
	if _, ok := m.values[name]; !ok {
		m.order = append(m.order, name)
	}
	m.values[name] = v
	return nil
}

// Get returns the value stored under name.
func (m *Map) Get(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Type returns the declared type of name.
func (m *Map) Type(name string) reflect.Type {
	return m.spec.Type(name)
}

func (m *Map) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

func (m *Map) Len() int { return len(m.order) }

// Names returns the stored names in insertion order.
func (m *Map) Names() []string {
	return append([]string(nil), m.order...)
}

// All iterates the stored entries in insertion order.
func (m *Map) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, n := range m.order {
			if !yield(n, m.values[n]) {
				return
			}
		}
	}
}

// Set stores v under k.
func Set[T any](m *Map, k typed.Key[T], v T) error {
	return m.PutTyped(k.Name(), v, k.Type())
}

// Value returns the value stored under k.
func Value[T any](m *Map, k typed.Key[T]) (T, bool) {
	var zero T
	if m == nil {
		return zero, false
	}
	v, ok := m.values[k.Name()]
	if !ok || m.spec.Type(k.Name()) != k.Type() {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
