// Package dispatch routes inbound calls to handlers.
//
// A call is classified from its path and query name as an RPC, an access to
// a single resource, or a query over resources. The Dispatcher holds the
// registered call specs, receives the request through the envelope layer,
// invokes the handler shaped for the call's kind, and sends the result back.
package dispatch

import (
	"fmt"
	"strings"
)

// Kind is the classification of an inbound call.
type Kind int

const (
	RPC Kind = iota + 1
	ResourceAccess
	ResourceQuery
)

func (k Kind) String() string {
	switch k {
	case RPC:
		return "RPC"
	case ResourceAccess:
		return "RESOURCE_ACCESS"
	case ResourceQuery:
		return "RESOURCE_QUERY"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Classify returns the kind of a call to path. Paths outside resourcePrefix
// are RPCs. Inside it, a call naming a query is a ResourceQuery and any
// other call is a ResourceAccess. An empty resourcePrefix declares no
// resources.
func Classify(path, queryName, resourcePrefix string) Kind {
	if resourcePrefix == "" || !hasPathPrefix(path, resourcePrefix) {
		return RPC
	}
	if queryName == "" {
		return ResourceAccess
	}
	return ResourceQuery
}

func hasPathPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/'
}
