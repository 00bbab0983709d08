// Package callpath parses and builds the structural parts of a call path:
//
//	[basePath]["/" version][servicePath]["/" resourceId]
//
// The version segment is a floating point token and is only present when the
// call specification declares one.
package callpath

import (
	"strconv"
	"strings"
)

// NoVersion is the version sentinel of paths without a version segment.
const NoVersion = -1.0

// CallPath is an immutable parsed call path.
type CallPath struct {
	basePath    string
	version     float64
	servicePath string
	resourceID  string
}

// NullPath is returned when parsing empty or blank input.
var NullPath = CallPath{version: NoVersion}

// New builds a CallPath from already known parts. Pass NoVersion for
// unversioned paths.
func New(basePath string, version float64, servicePath, resourceID string) CallPath {
	return CallPath{
		basePath:    basePath,
		version:     version,
		servicePath: servicePath,
		resourceID:  resourceID,
	}
}

func (p CallPath) BasePath() string    { return p.basePath }
func (p CallPath) Version() float64    { return p.version }
func (p CallPath) ServicePath() string { return p.servicePath }
func (p CallPath) ResourceID() string  { return p.resourceID }

// HasVersion reports whether the path carries a version segment.
func (p CallPath) HasVersion() bool { return p.version != NoVersion }

// HasResourceID reports whether the path addresses a single resource.
func (p CallPath) HasResourceID() bool { return p.resourceID != "" }

// IsNull reports whether p is NullPath.
func (p CallPath) IsNull() bool { return p == NullPath }

// WithResourceID returns a copy of p bound to id. An empty id clears it.
func (p CallPath) WithResourceID(id string) CallPath {
	p.resourceID = id
	return p
}

// PathPrefix returns the path without the resource id.
func (p CallPath) PathPrefix() string {
	var sb strings.Builder
	sb.WriteString(p.basePath)
	if p.HasVersion() {
		sb.WriteByte('/')
		sb.WriteString(FormatVersion(p.version))
	}
	sb.WriteString(p.servicePath)
	return sb.String()
}

// FullPath returns the path including the resource id, if any.
func (p CallPath) FullPath() string {
	if p.resourceID == "" {
		return p.PathPrefix()
	}
	return p.PathPrefix() + "/" + p.resourceID
}

// Matches reports whether other is routed to the call declared at p: the
// versions and base paths must be equal, and other's service path must start
// with p's service path.
func (p CallPath) Matches(other CallPath) bool {
	return p.version == other.version &&
		p.basePath == other.basePath &&
		strings.HasPrefix(other.servicePath, p.servicePath)
}

func (p CallPath) String() string {
	return p.FullPath()
}

// FormatVersion renders a version with the shortest representation that
// parses back to the same value ("3.1", "1").
func FormatVersion(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
