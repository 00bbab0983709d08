package envelope

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/mnehpets/callspec/body"
	"github.com/mnehpets/callspec/codec"
	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/urlparams"
)

// IsEmpty reports whether b carries nothing to put on the wire.
func IsEmpty(b body.Body) bool {
	switch b := b.(type) {
	case nil:
		return true
	case *body.Simple:
		return b.Value == nil
	case *body.List:
		return false
	case *body.Map:
		return b.Values.Len() == 0 && b.Spec().IsEmpty()
	}
	return true
}

// EncodeBody encodes b according to its shape. Empty bodies encode to nil.
func EncodeBody(c codec.Codec, b body.Body) ([]byte, error) {
	if IsEmpty(b) {
		return nil, nil
	}
	switch b := b.(type) {
	case *body.Simple:
		return c.Marshal(b.Value, b.Spec().ElemType())
	case *body.List:
		items := make([][]byte, 0, len(b.Values))
		for _, v := range b.Values {
			item, err := c.Marshal(v, b.Spec().ElemType())
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return c.MarshalList(items)
	case *body.Map:
		members := make([]codec.Member, 0, b.Values.Len())
		for name, v := range b.Values.All() {
			data, err := c.Marshal(v, b.Values.Type(name))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			members = append(members, codec.Member{Name: name, Value: data})
		}
		return c.MarshalObject(members)
	}
	return nil, fmt.Errorf("%w: unknown body %T", body.ErrShape, b)
}

// DecodeBody decodes data into a body of spec's shape. Empty data yields the
// empty body.
func DecodeBody(c codec.Codec, spec *body.Spec, data []byte) (body.Body, error) {
	if len(data) == 0 {
		return body.Empty(spec), nil
	}
	switch spec.Shape() {
	case body.ShapeSimple:
		v, err := c.Unmarshal(data, spec.ElemType())
		if err != nil {
			return nil, err
		}
		return body.NewSimple(spec, v)
	case body.ShapeList:
		items, err := c.UnmarshalList(data)
		if err != nil {
			return nil, err
		}
		values := make([]any, 0, len(items))
		for _, item := range items {
			v, err := c.Unmarshal(item, spec.ElemType())
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return body.NewList(spec, values...)
	default:
		members, err := c.UnmarshalObject(data)
		if err != nil {
			return nil, err
		}
		m := params.NewMap(spec.Params())
		for _, mem := range members {
			t := spec.Params().Type(mem.Name)
			if t == nil {
				return nil, fmt.Errorf("%w: %q", params.ErrUnknownName, mem.Name)
			}
			v, err := c.Unmarshal(mem.Value, t)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", mem.Name, err)
			}
			if err := m.Put(mem.Name, v); err != nil {
				return nil, err
			}
		}
		return body.NewMap(spec, m)
	}
}

// writeHeaders sets every present header of m on h, in spec order.
func writeHeaders(h http.Header, m *params.Map) error {
	for _, name := range m.Spec().Names() {
		v, ok := m.Get(name)
		if !ok || v == nil {
			continue
		}
		text, err := codec.MarshalText(v)
		if err != nil {
			return fmt.Errorf("header %s: %w", name, err)
		}
		h.Set(name, text)
	}
	return nil
}

// readHeaders parses the headers declared by spec from h. Absent headers are
// skipped.
func readHeaders(h http.Header, spec *params.Spec) (*params.Map, error) {
	m := params.NewMap(spec)
	for _, name := range spec.Names() {
		values := h.Values(name)
		if len(values) == 0 {
			continue
		}
		if len(values) > 1 {
			return nil, fmt.Errorf("header %s: %d values", name, len(values))
		}
		v, err := codec.UnmarshalText(values[0], spec.Type(name))
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", name, err)
		}
		if err := m.Put(name, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

var stringType = reflect.TypeOf("")

const (
	inlineHeaders   = "headers"
	inlineURLParams = "urlParams"
	inlineBody      = "body"
)

// inlined is the decoded form of an inline request body.
type inlined struct {
	headers   []codec.Member
	urlParams []codec.Member
	body      []byte
}

// encodeInline wraps the encoded body with the text forms of the headers
// and URL parameters.
func encodeInline(c codec.Codec, headers, urlParams []urlparams.Pair, data []byte) ([]byte, error) {
	hs, err := textObject(c, headers)
	if err != nil {
		return nil, err
	}
	ups, err := textObject(c, urlParams)
	if err != nil {
		return nil, err
	}
	members := []codec.Member{
		{Name: inlineHeaders, Value: hs},
		{Name: inlineURLParams, Value: ups},
	}
	if len(data) > 0 {
		members = append(members, codec.Member{Name: inlineBody, Value: data})
	}
	return c.MarshalObject(members)
}

func textObject(c codec.Codec, pairs []urlparams.Pair) ([]byte, error) {
	members := make([]codec.Member, 0, len(pairs))
	for _, p := range pairs {
		v, err := c.Marshal(p.Value, stringType)
		if err != nil {
			return nil, err
		}
		members = append(members, codec.Member{Name: p.Name, Value: v})
	}
	return c.MarshalObject(members)
}

func decodeInline(c codec.Codec, data []byte) (*inlined, error) {
	members, err := c.UnmarshalObject(data)
	if err != nil {
		return nil, err
	}
	in := &inlined{}
	for _, m := range members {
		switch m.Name {
		case inlineHeaders:
			in.headers, err = c.UnmarshalObject(m.Value)
		case inlineURLParams:
			in.urlParams, err = c.UnmarshalObject(m.Value)
		case inlineBody:
			in.body = m.Value
		default:
			err = fmt.Errorf("unknown inline member %q", m.Name)
		}
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}

// text decodes an inline member holding a string.
func text(c codec.Codec, m codec.Member) (string, error) {
	v, err := c.Unmarshal(m.Value, stringType)
	if err != nil {
		return "", fmt.Errorf("inline %s: %w", m.Name, err)
	}
	return v.(string), nil
}
