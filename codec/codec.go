// Package codec defines the serializer the marshalling layer is built on.
//
// A Codec is always told the declared type of the value it encodes or
// decodes. Bodies are assembled from individually encoded members and list
// items, so a Codec also knows how to join and split those.
package codec

import (
	"errors"
	"mime"
	"reflect"
)

var ErrNilType = errors.New("codec: nil declared type")

// Member is one encoded entry of an object.
type Member struct {
	Name  string
	Value []byte
}

// Codec encodes and decodes values by declared type.
type Codec interface {
	// ContentType is the Content-Type header value of encoded bodies.
	ContentType() string
	Marshal(v any, t reflect.Type) ([]byte, error)
	// Unmarshal decodes data into a new value of type t.
	Unmarshal(data []byte, t reflect.Type) (any, error)
	MarshalObject(members []Member) ([]byte, error)
	// UnmarshalObject splits an encoded object into its members.
	UnmarshalObject(data []byte) ([]Member, error)
	MarshalList(items [][]byte) ([]byte, error)
	UnmarshalList(data []byte) ([][]byte, error)
}

// SameMediaType reports whether two Content-Type values name the same media
// type, ignoring parameters such as charset.
func SameMediaType(a, b string) bool {
	ma, _, errA := mime.ParseMediaType(a)
	mb, _, errB := mime.ParseMediaType(b)
	return errA == nil && errB == nil && ma == mb
}

func checkAssignable(v any, t reflect.Type) error {
	if t == nil {
		return ErrNilType
	}
	if v != nil && !reflect.TypeOf(v).AssignableTo(t) {
		return &TypeError{Declared: t, Actual: reflect.TypeOf(v)}
	}
	return nil
}

// TypeError reports a value that does not fit its declared type.
type TypeError struct {
	Declared reflect.Type
	Actual   reflect.Type
}

func (e *TypeError) Error() string {
	return "codec: value of type " + e.Actual.String() + " declared as " + e.Declared.String()
}
