package typed

import (
	"reflect"
	"strings"
	"sync"
)

// Registry interns canonical type names and holds object descriptors.
//
// A Registry is passed explicitly to the components that need it. It is safe
// for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	names   map[reflect.Type]string
	objects map[reflect.Type]*Object
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		names:   make(map[reflect.Type]string),
		objects: make(map[reflect.Type]*Object),
	}
}

// Register sets the canonical name of t, replacing any interned name.
func (r *Registry) Register(t reflect.Type, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[t] = name
}

// Name returns the canonical name of t. Unregistered named types are interned
// under their lower-cased Go name; unnamed types under their type string.
func (r *Registry) Name(t reflect.Type) string {
	if t == nil {
		return ""
	}
	r.mu.RLock()
	name, ok := r.names[t]
	r.mu.RUnlock()
	if ok {
		return name
	}

	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	name = strings.ToLower(base.Name())
	if name == "" {
		name = t.String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.names[t]; ok {
		return existing
	}
	r.names[t] = name
	return name
}

// Describe registers obj as the descriptor of obj.Type.
func (r *Registry) Describe(obj *Object) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[obj.Type] = obj
}

// Object returns the descriptor registered for t.
func (r *Registry) Object(t reflect.Type) (*Object, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[t]
	return obj, ok
}
