package callspec

import (
	"reflect"

	"github.com/mnehpets/callspec/callpath"
)

// RestCallSpec declares the CRUD calls of one resource type. Requests and
// responses carry a single resource as their body.
type RestCallSpec struct {
	*WebServiceCallSpec
	resourceType reflect.Type
	resourceName string
}

func (s *RestCallSpec) ResourceType() reflect.Type { return s.resourceType }

// ResourceName is the canonical name of the resource type.
func (s *RestCallSpec) ResourceName() string { return s.resourceName }

// CreateCopy returns a structurally identical spec bound to path.
func (s *RestCallSpec) CreateCopy(path callpath.CallPath) *RestCallSpec {
	c := *s
	c.WebServiceCallSpec = s.WebServiceCallSpec.CreateCopy(path)
	return &c
}

// ForResource returns a copy bound to the resource id.
func (s *RestCallSpec) ForResource(id string) *RestCallSpec {
	return s.CreateCopy(s.Path().WithResourceID(id))
}

// QuerySpec declares a named query over a resource type. Its response body
// is a list of resources.
type QuerySpec struct {
	*WebServiceCallSpec
	queryName    string
	resourceType reflect.Type
}

func (s *QuerySpec) QueryName() string { return s.queryName }

func (s *QuerySpec) ResourceType() reflect.Type { return s.resourceType }
