// Package ldattr defines the attribute reference syntax used in flag and segment rules.
//
// An attribute reference is either a plain attribute name, or a slash-delimited path
// such as "/address/city" pointing into nested JSON object attributes. Within a path
// component, "~1" is an escaped "/" and "~0" is an escaped "~".
package ldattr

import (
	"errors"
	"strings"
)

// Names of context attributes that are addressable by reference but are not stored in the
// general attribute map.
const (
	KindAttr      = "kind"
	KeyAttr       = "key"
	NameAttr      = "name"
	AnonymousAttr = "anonymous"
)

var (
	errAttributeEmpty        = errors.New("attribute reference cannot be empty")
	errAttributeExtraSlash   = errors.New("attribute reference contained a double slash or a trailing slash")
	errAttributeInvalidTilde = errors.New("attribute reference contained an escape character (~) that was not followed by 0 or 1")
)

// Ref is a parsed reference to a context attribute. The zero value is an undefined
// reference; use NewRef or NewLiteralRef to create one.
//
// A Ref is immutable once created. An invalid Ref retains the parsing error, which is
// reported during evaluation rather than at construction.
type Ref struct {
	rawPath         string
	singleComponent string
	components      []string
	err             error
}

// NewRef creates a Ref from a path string.
//
// If the string does not start with a slash, it is interpreted as a literal attribute
// name. Otherwise it is a slash-delimited path, with "~0" and "~1" escapes allowed in
// each component.
func NewRef(path string) Ref {
	if path == "" || path == "/" {
		return Ref{rawPath: path, err: errAttributeEmpty}
	}
	if path[0] != '/' {
		return Ref{rawPath: path, singleComponent: path}
	}
	components := strings.Split(path[1:], "/")
	if len(components) == 1 {
		unescaped, ok := unescapePath(components[0])
		if !ok {
			return Ref{rawPath: path, err: errAttributeInvalidTilde}
		}
		if unescaped == "" {
			return Ref{rawPath: path, err: errAttributeExtraSlash}
		}
		return Ref{rawPath: path, singleComponent: unescaped}
	}
	for i, c := range components {
		if c == "" {
			return Ref{rawPath: path, err: errAttributeExtraSlash}
		}
		unescaped, ok := unescapePath(c)
		if !ok {
			return Ref{rawPath: path, err: errAttributeInvalidTilde}
		}
		components[i] = unescaped
	}
	return Ref{rawPath: path, components: components}
}

// NewLiteralRef creates a Ref that names a single attribute, with no path interpretation.
// A name beginning with "/" is escaped so that it is still treated as a literal name.
func NewLiteralRef(name string) Ref {
	if name == "" {
		return Ref{rawPath: name, err: errAttributeEmpty}
	}
	if name[0] != '/' {
		return NewRef(name)
	}
	escaped := "/" + strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return Ref{rawPath: escaped, singleComponent: name}
}

// IsDefined returns true unless the Ref is the zero value.
func (a Ref) IsDefined() bool {
	return a.rawPath != "" || a.err != nil
}

// Err returns nil for a valid Ref, or the parsing error for an invalid one.
func (a Ref) Err() error {
	if a.err == nil && !a.IsDefined() {
		return errAttributeEmpty
	}
	return a.err
}

// String returns the original path string.
func (a Ref) String() string {
	return a.rawPath
}

// Depth returns the number of path components: 1 for a plain attribute name, more for a
// slash path, 0 for an invalid Ref.
func (a Ref) Depth() int {
	if a.err != nil || !a.IsDefined() {
		return 0
	}
	if a.components == nil {
		return 1
	}
	return len(a.components)
}

// Component returns the path component at the given index, or "" if out of range.
func (a Ref) Component(index int) string {
	if a.components == nil {
		if index == 0 {
			return a.singleComponent
		}
		return ""
	}
	if index < 0 || index >= len(a.components) {
		return ""
	}
	return a.components[index]
}

func unescapePath(s string) (string, bool) {
	if !strings.Contains(s, "~") {
		return s, true
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '~' {
			out = append(out, ch)
			continue
		}
		i++
		if i >= len(s) {
			return "", false
		}
		switch s[i] {
		case '0':
			out = append(out, '~')
		case '1':
			out = append(out, '/')
		default:
			return "", false
		}
	}
	return string(out), true
}
