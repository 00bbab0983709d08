package typed

import (
	"fmt"
	"reflect"
)

// Field declares one member of an object type: its wire name, its declared
// type and accessors. Get receives the object value; Set receives a pointer
// to it.
type Field struct {
	Name string
	Type reflect.Type
	Get  func(obj any) any
	Set  func(ptr any, v any)
}

// FieldOf declares a field of T with value type F.
func FieldOf[T, F any](name string, get func(T) F, set func(*T, F)) Field {
	return Field{
		Name: name,
		Type: TypeOf[F](),
		Get: func(obj any) any {
			switch o := obj.(type) {
			case T:
				return get(o)
			case *T:
				return get(*o)
			}
			panic(fmt.Sprintf("typed: field %q: got %T, want %v", name, obj, TypeOf[T]()))
		},
		Set: func(ptr any, v any) {
			f, _ := v.(F)
			set(ptr.(*T), f)
		},
	}
}

// Object describes a structured value whose declared fields are transmitted
// as individual parameters.
type Object struct {
	Type   reflect.Type
	Fields []Field
	// New returns a pointer to a fresh zero value.
	New func() any
	// Deref converts the pointer returned by New into the object value.
	Deref func(ptr any) any
}

// ObjectOf builds the descriptor of T from its declared fields.
func ObjectOf[T any](fields ...Field) *Object {
	return &Object{
		Type:   TypeOf[T](),
		Fields: fields,
		New:    func() any { return new(T) },
		Deref:  func(ptr any) any { return *ptr.(*T) },
	}
}

// Field returns the declared field called name.
func (o *Object) Field(name string) (Field, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
