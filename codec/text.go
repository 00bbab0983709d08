package codec

import (
	"encoding/json"
	"reflect"
)

// MarshalText returns the text form of v used for header values and URL
// parameters: the JSON encoding of v, except that strings are returned
// without their quotes.
func MarshalText(v any) (string, error) {
	b, err := marshalJSON(v)
	if err != nil {
		return "", err
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(b), nil
}

// UnmarshalText converts the text form s into a value of type t. String kinds
// pass through; other kinds are parsed as JSON. A bare word that does not
// parse is retried as a JSON string, which covers types that unmarshal from
// JSON strings such as time.Time.
func UnmarshalText(s string, t reflect.Type) (any, error) {
	if t == nil {
		return nil, ErrNilType
	}
	if t.Kind() == reflect.String {
		return reflect.ValueOf(s).Convert(t).Interface(), nil
	}
	v, err := JSON{}.Unmarshal([]byte(s), t)
	if err == nil {
		return v, nil
	}
	if isNumberKind(t.Kind()) {
		return nil, err
	}
	quotedText, qerr := marshalJSON(s)
	if qerr != nil {
		return nil, err
	}
	if quoted, qerr := (JSON{}).Unmarshal(quotedText, t); qerr == nil {
		return quoted, nil
	}
	return nil, err
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
