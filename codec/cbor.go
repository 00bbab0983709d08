package codec

import (
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// CBORContentType is the Content-Type of CBOR bodies.
const CBORContentType = "application/cbor"

// CBOR is the Codec for application/cbor bodies. Object members are decoded
// in sorted name order.
type CBOR struct{}

var _ Codec = CBOR{}

func (CBOR) ContentType() string { return CBORContentType }

func (CBOR) Marshal(v any, t reflect.Type) ([]byte, error) {
	if err := checkAssignable(v, t); err != nil {
		return nil, err
	}
	return cbor.Marshal(v)
}

func (CBOR) Unmarshal(data []byte, t reflect.Type) (any, error) {
	if t == nil {
		return nil, ErrNilType
	}
	p := reflect.New(t)
	if err := cbor.Unmarshal(data, p.Interface()); err != nil {
		return nil, err
	}
	return p.Elem().Interface(), nil
}

func (CBOR) MarshalObject(members []Member) ([]byte, error) {
	m := make(map[string]cbor.RawMessage, len(members))
	for _, mem := range members {
		m[mem.Name] = rawOrNull(mem.Value)
	}
	return cbor.Marshal(m)
}

func (CBOR) UnmarshalObject(data []byte) ([]Member, error) {
	var m map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	members := make([]Member, 0, len(names))
	for _, n := range names {
		members = append(members, Member{Name: n, Value: m[n]})
	}
	return members, nil
}

func (CBOR) MarshalList(items [][]byte) ([]byte, error) {
	raw := make([]cbor.RawMessage, len(items))
	for i, item := range items {
		raw[i] = rawOrNull(item)
	}
	return cbor.Marshal(raw)
}

func (CBOR) UnmarshalList(data []byte) ([][]byte, error) {
	var raw []cbor.RawMessage
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	items := make([][]byte, len(raw))
	for i, r := range raw {
		items[i] = r
	}
	return items, nil
}

// cborNull is the CBOR encoding of null (major type 7, value 22).
var cborNull = cbor.RawMessage{0xf6}

func rawOrNull(b []byte) cbor.RawMessage {
	if len(b) == 0 {
		return cborNull
	}
	return b
}
