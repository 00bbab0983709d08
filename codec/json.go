package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// JSONContentType is the Content-Type of JSON bodies.
const JSONContentType = "application/json; charset=utf-8"

// JSON is the Codec for application/json bodies.
type JSON struct{}

var _ Codec = JSON{}

func (JSON) ContentType() string { return JSONContentType }

func (JSON) Marshal(v any, t reflect.Type) ([]byte, error) {
	if err := checkAssignable(v, t); err != nil {
		return nil, err
	}
	return marshalJSON(v)
}

func (JSON) Unmarshal(data []byte, t reflect.Type) (any, error) {
	if t == nil {
		return nil, ErrNilType
	}
	p := reflect.New(t)
	if err := json.Unmarshal(data, p.Interface()); err != nil {
		return nil, err
	}
	return p.Elem().Interface(), nil
}

func (JSON) MarshalObject(members []Member) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := marshalJSON(m.Name)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		if len(m.Value) == 0 {
			b.WriteString("null")
		} else {
			b.Write(m.Value)
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalObject returns the members in document order.
func (JSON) UnmarshalObject(data []byte) ([]Member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("codec: expected JSON object, got %v", tok)
	}
	var members []Member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		members = append(members, Member{Name: name, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

func (JSON) MarshalList(items [][]byte) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		if len(item) == 0 {
			b.WriteString("null")
		} else {
			b.Write(item)
		}
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

func (JSON) UnmarshalList(data []byte) ([][]byte, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	items := make([][]byte, len(raw))
	for i, r := range raw {
		items[i] = r
	}
	return items, nil
}

// marshalJSON encodes v without HTML escaping and without the encoder's
// trailing newline.
func marshalJSON(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte{'\n'}), nil
}
