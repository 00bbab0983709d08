package callspec

import (
	"github.com/mnehpets/callspec/callpath"
)

// WebServiceCallSpec is the immutable declaration of one call.
type WebServiceCallSpec struct {
	path       callpath.CallPath
	methods    MethodSet
	request    *RequestSpec
	response   *ResponseSpec
	webContext *WebContextSpec
}

func (s *WebServiceCallSpec) Path() callpath.CallPath { return s.path }

// Version is the version declared by the call path.
func (s *WebServiceCallSpec) Version() float64 { return s.path.Version() }

func (s *WebServiceCallSpec) SupportedMethods() MethodSet { return s.methods }

func (s *WebServiceCallSpec) Supports(m Method) bool { return s.methods.Contains(m) }

func (s *WebServiceCallSpec) RequestSpec() *RequestSpec { return s.request }

func (s *WebServiceCallSpec) ResponseSpec() *ResponseSpec { return s.response }

// WebContext is the web context declaration, or nil.
func (s *WebServiceCallSpec) WebContext() *WebContextSpec { return s.webContext }

// Parser returns a call path parser for paths of this call.
func (s *WebServiceCallSpec) Parser() *callpath.Parser {
	return callpath.NewParser(s.path.BasePath(), s.path.HasVersion(), s.path.ServicePath())
}

// CreateCopy returns a structurally identical spec bound to path.
func (s *WebServiceCallSpec) CreateCopy(path callpath.CallPath) *WebServiceCallSpec {
	c := *s
	c.path = path
	return &c
}

func (s *WebServiceCallSpec) String() string {
	return s.path.PathPrefix() + " " + s.methods.String()
}
