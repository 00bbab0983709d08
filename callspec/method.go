package callspec

import (
	"fmt"
	"strings"
)

// Method is an HTTP method a call may support.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
	MethodHead   Method = "HEAD"
)

var methods = [...]Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead}

// ParseMethod returns the Method named s, case-insensitively.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if methodBit(m) == 0 {
		return "", fmt.Errorf("callspec: unknown method %q", s)
	}
	return m, nil
}

func (m Method) String() string { return string(m) }

// MethodSet is an immutable set of methods.
type MethodSet uint8

// AllMethods contains every defined method.
const AllMethods MethodSet = 1<<len(methods) - 1

func methodBit(m Method) MethodSet {
	for i, x := range methods {
		if x == m {
			return 1 << i
		}
	}
	return 0
}

// NewMethodSet returns the set of ms. Unknown methods are ignored.
func NewMethodSet(ms ...Method) MethodSet {
	var s MethodSet
	for _, m := range ms {
		s |= methodBit(m)
	}
	return s
}

func (s MethodSet) Contains(m Method) bool {
	b := methodBit(m)
	return b != 0 && s&b != 0
}

func (s MethodSet) IsEmpty() bool { return s == 0 }

// Without returns s minus ms.
func (s MethodSet) Without(ms ...Method) MethodSet {
	return s &^ NewMethodSet(ms...)
}

// Methods returns the members of s in definition order.
func (s MethodSet) Methods() []Method {
	var out []Method
	for i, m := range methods {
		if s&(1<<i) != 0 {
			out = append(out, m)
		}
	}
	return out
}

func (s MethodSet) String() string {
	names := make([]string, 0, len(methods))
	for _, m := range s.Methods() {
		names = append(names, string(m))
	}
	return "[" + strings.Join(names, " ") + "]"
}
