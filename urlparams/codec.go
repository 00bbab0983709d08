package urlparams

import (
	"encoding"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/mnehpets/callspec/codec"
	"github.com/mnehpets/callspec/typed"
)

// Pair is one flat name/value parameter in its text form.
type Pair struct {
	Name  string
	Value string
}

// Codec converts Params to and from query strings. Object descriptors are
// looked up in Registry; it may be nil.
type Codec struct {
	Registry *typed.Registry
}

// NewCodec returns a Codec using reg for object descriptors.
func NewCodec(reg *typed.Registry) *Codec {
	return &Codec{Registry: reg}
}

// Encode returns the query string of p, including the leading "?", or "" when
// there are no parameters.
func (c *Codec) Encode(p *Params) (string, error) {
	pairs, err := c.Pairs(p)
	if err != nil {
		return "", err
	}
	return EncodePairs(pairs), nil
}

// EncodePairs joins pairs into a query string with a leading "?".
func EncodePairs(pairs []Pair) string {
	if len(pairs) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, pr := range pairs {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(pr.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(pr.Value))
	}
	return sb.String()
}

// Pairs flattens p into text pairs in declaration order. Absent and nil
// values are skipped.
func (c *Codec) Pairs(p *Params) ([]Pair, error) {
	if p == nil {
		return nil, nil
	}
	var pairs []Pair
	ps := p.spec.params
	for _, name := range ps.Names() {
		v, ok := p.Get(name)
		if !ok || v == nil {
			continue
		}
		flat, err := c.flatten(name, v, ps.Type(name))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, flat...)
	}
	return pairs, nil
}

func (c *Codec) flatten(name string, v any, t reflect.Type) ([]Pair, error) {
	if obj, ok := c.Registry.Object(t); ok {
		var pairs []Pair
		for _, f := range obj.Fields {
			fv := f.Get(v)
			if fv == nil {
				continue
			}
			text, err := scalarText(f.Name, fv)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, Pair{Name: f.Name, Value: text})
		}
		return pairs, nil
	}

	text, err := codec.MarshalText(v)
	if err != nil {
		return nil, fmt.Errorf("urlparams: %q: %w", name, err)
	}
	switch {
	case strings.HasPrefix(text, "["):
		return nil, fmt.Errorf("%w: %q", ErrArrayParam, name)
	case strings.HasPrefix(text, "{"):
		return flattenJSONObject(name, text)
	}
	return []Pair{{Name: name, Value: text}}, nil
}

// flattenJSONObject emits one pair per member of an encoded object, for
// composite values without a registered descriptor.
func flattenJSONObject(name, text string) ([]Pair, error) {
	members, err := codec.JSON{}.UnmarshalObject([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("urlparams: %q: %w", name, err)
	}
	var pairs []Pair
	for _, m := range members {
		raw := string(m.Value)
		switch {
		case raw == "null":
			continue
		case strings.HasPrefix(raw, "["):
			return nil, fmt.Errorf("%w: %q.%q", ErrArrayParam, name, m.Name)
		case strings.HasPrefix(raw, `"`):
			s, err := codec.JSON{}.Unmarshal(m.Value, reflect.TypeOf(""))
			if err != nil {
				return nil, err
			}
			raw = s.(string)
		}
		pairs = append(pairs, Pair{Name: m.Name, Value: raw})
	}
	return pairs, nil
}

func scalarText(name string, v any) (string, error) {
	text, err := codec.MarshalText(v)
	if err != nil {
		return "", fmt.Errorf("urlparams: %q: %w", name, err)
	}
	if strings.HasPrefix(text, "[") {
		return "", fmt.Errorf("%w: %q", ErrArrayParam, name)
	}
	return text, nil
}

// Decode parses a query string, with or without its leading "?", into Params
// declared by spec.
func (c *Codec) Decode(rawQuery string, spec *Spec) (*Params, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return nil, fmt.Errorf("urlparams: %w", err)
	}
	return c.DecodeValues(values, spec)
}

// DecodeValues converts already split query values into Params declared by
// spec. Undeclared names are ignored. A declared name with more than one
// value is rejected.
func (c *Codec) DecodeValues(values url.Values, spec *Spec) (*Params, error) {
	if spec == nil {
		spec = Empty
	}
	p := New(spec)

	if obj := spec.object; obj != nil {
		v, found, err := buildObject(obj, values)
		if err != nil {
			return nil, err
		}
		if found {
			p.object = v
		}
	}

	for _, name := range spec.params.Names() {
		if p.object != nil {
			if _, ok := spec.object.Field(name); ok {
				continue
			}
		}
		t := spec.params.Type(name)
		if obj, ok := c.Registry.Object(t); ok {
			v, found, err := buildObject(obj, values)
			if err != nil {
				return nil, err
			}
			if found {
				if err := p.values.Put(name, v); err != nil {
					return nil, err
				}
			}
			continue
		}
		if st, ok := serializedObject(t); ok {
			v, found, err := buildSerialized(st, t, values)
			if err != nil {
				return nil, fmt.Errorf("urlparams: %q: %w", name, err)
			}
			if found {
				if err := p.values.Put(name, v); err != nil {
					return nil, err
				}
			}
			continue
		}
		raw, ok, err := single(values, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		v, err := codec.UnmarshalText(raw, t)
		if err != nil {
			return nil, fmt.Errorf("urlparams: %q: %w", name, err)
		}
		if err := p.values.Put(name, v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// buildObject assembles a value of obj's type from the parameters named like
// its fields. found is false when none of the fields is present.
func buildObject(obj *typed.Object, values url.Values) (v any, found bool, err error) {
	ptr := obj.New()
	for _, f := range obj.Fields {
		raw, ok, err := single(values, f.Name)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		fv, err := codec.UnmarshalText(raw, f.Type)
		if err != nil {
			return nil, false, fmt.Errorf("urlparams: %q: %w", f.Name, err)
		}
		f.Set(ptr, fv)
		found = true
	}
	if !found {
		return nil, false, nil
	}
	return obj.Deref(ptr), true, nil
}

var (
	jsonUnmarshalerType = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// serializedObject reports whether t, or the type t points to, is a struct
// that Encode flattens through its JSON members. Structs with their own
// JSON or text form are scalars.
func serializedObject(t reflect.Type) (reflect.Type, bool) {
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, false
	}
	pt := reflect.PointerTo(st)
	if pt.Implements(jsonUnmarshalerType) || pt.Implements(textUnmarshalerType) {
		return nil, false
	}
	return st, true
}

// jsonMembers lists the member names and types encoding/json uses for st.
// Untagged embedded structs contribute their own members.
func jsonMembers(st reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for i := range st.NumField() {
		f := st.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				out = append(out, jsonMembers(ft)...)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		f.Name = name
		out = append(out, f)
	}
	return out
}

// buildSerialized rebuilds a value of type t from the parameters named like
// the JSON members of st. The members are decoded one by one with the text
// rules, then the assembled JSON object is decoded into t as a unit.
func buildSerialized(st, t reflect.Type, values url.Values) (v any, found bool, err error) {
	var members []codec.Member
	for _, f := range jsonMembers(st) {
		raw, ok, err := single(values, f.Name)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		fv, err := codec.UnmarshalText(raw, f.Type)
		if err != nil {
			return nil, false, fmt.Errorf("%q: %w", f.Name, err)
		}
		data, err := codec.JSON{}.Marshal(fv, f.Type)
		if err != nil {
			return nil, false, err
		}
		members = append(members, codec.Member{Name: f.Name, Value: data})
	}
	if len(members) == 0 {
		return nil, false, nil
	}
	data, err := codec.JSON{}.MarshalObject(members)
	if err != nil {
		return nil, false, err
	}
	v, err = codec.JSON{}.Unmarshal(data, t)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func single(values url.Values, name string) (string, bool, error) {
	vs, ok := values[name]
	if !ok || len(vs) == 0 {
		return "", false, nil
	}
	if len(vs) > 1 {
		return "", false, fmt.Errorf("%w: %q", ErrMultipleValues, name)
	}
	return vs[0], true, nil
}
