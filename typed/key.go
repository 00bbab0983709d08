// Package typed declares named, typed slots: the keys used by parameter
// containers and bodies, and the explicit object descriptors used to flatten
// structured values into flat name/value pairs.
package typed

import "reflect"

// TypeOf returns the declared type of T. Interface types are preserved.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Keyed is implemented by keys that can describe themselves untyped.
type Keyed interface {
	Untyped() UntypedKey
}

// UntypedKey names a slot and its declared wire type.
type UntypedKey struct {
	Name string
	Type reflect.Type
}

// Untyped implements Keyed.
func (k UntypedKey) Untyped() UntypedKey { return k }

func (k UntypedKey) String() string {
	if k.Type == nil {
		return k.Name + ":<nil>"
	}
	return k.Name + ":" + k.Type.String()
}

// Key is a statically typed UntypedKey. Keys are comparable; two keys are
// equal when both name and declared type are equal.
type Key[T any] struct {
	name string
	typ  reflect.Type
}

// NewKey declares a slot named name holding values of type T.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name, typ: TypeOf[T]()}
}

func (k Key[T]) Name() string       { return k.name }
func (k Key[T]) Type() reflect.Type { return k.typ }

// Untyped implements Keyed.
func (k Key[T]) Untyped() UntypedKey {
	return UntypedKey{Name: k.name, Type: k.typ}
}

func (k Key[T]) String() string { return k.Untyped().String() }
