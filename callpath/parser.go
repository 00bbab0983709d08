package callpath

import (
	"math"
	"strconv"
	"strings"
)

// ParseFailureType classifies structural call path errors.
type ParseFailureType int

const (
	InvalidPath ParseFailureType = iota + 1
	InvalidBasePath
	InvalidVersion
	InvalidServiceName
)

func (t ParseFailureType) String() string {
	switch t {
	case InvalidPath:
		return "INVALID_PATH"
	case InvalidBasePath:
		return "INVALID_BASE_PATH"
	case InvalidVersion:
		return "INVALID_VERSION"
	case InvalidServiceName:
		return "INVALID_SERVICE_NAME"
	}
	return "UNKNOWN"
}

// ParseError is returned by Parser.Parse for paths that do not fit the
// parser's declaration.
type ParseError struct {
	Kind ParseFailureType
	Path string
}

func (e *ParseError) Error() string {
	if e == nil {
		return "callpath: error: <nil>"
	}
	return "callpath: " + e.Kind.String() + ": " + strconv.Quote(e.Path)
}

// Parser strips the declared parts off raw call paths.
//
// A Parser is immutable and safe for concurrent use.
type Parser struct {
	basePath    string
	hasVersion  bool
	serviceName string
}

// NewParser returns a Parser for paths under basePath, optionally followed by
// a version segment, and then serviceName.
func NewParser(basePath string, hasVersion bool, serviceName string) *Parser {
	return &Parser{
		basePath:    strings.TrimSuffix(basePath, "/"),
		hasVersion:  hasVersion,
		serviceName: strings.TrimSuffix(serviceName, "/"),
	}
}

// Parse parses raw. Empty and whitespace-only input returns NullPath and a
// nil error.
func (p *Parser) Parse(raw string) (CallPath, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return NullPath, nil
	}
	if !strings.HasPrefix(path, "/") {
		return NullPath, &ParseError{Kind: InvalidPath, Path: raw}
	}
	rest := path

	if !strings.HasPrefix(rest, p.basePath) || !atBoundary(rest[len(p.basePath):]) {
		return NullPath, &ParseError{Kind: InvalidBasePath, Path: raw}
	}
	rest = rest[len(p.basePath):]

	version := NoVersion
	if p.hasVersion {
		token, remaining := nextSegment(rest)
		v, err := strconv.ParseFloat(token, 64)
		if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return NullPath, &ParseError{Kind: InvalidVersion, Path: raw}
		}
		version = v
		rest = remaining
	}

	if !strings.HasPrefix(rest, p.serviceName) || !atBoundary(rest[len(p.serviceName):]) {
		return NullPath, &ParseError{Kind: InvalidServiceName, Path: raw}
	}
	rest = rest[len(p.serviceName):]

	return New(p.basePath, version, p.serviceName, resourceID(rest)), nil
}

// nextSegment consumes "/" token from s, stopping at the next "/" or "?".
func nextSegment(s string) (token, rest string) {
	s, ok := strings.CutPrefix(s, "/")
	if !ok {
		return "", s
	}
	end := strings.IndexAny(s, "/?")
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}

func atBoundary(s string) bool {
	return s == "" || s[0] == '/' || s[0] == '?'
}

// resourceID extracts the trailing id: one leading "/" is stripped and the id
// ends at the next "/" or "?".
func resourceID(s string) string {
	if strings.HasPrefix(s, "?") {
		return ""
	}
	id, _ := nextSegment(s)
	return id
}
