// Package ldcontext defines the evaluation context model.
//
// A Context is a collection of attributes that can be referenced in flag evaluations and
// analytics events. A Context may be a single context of one kind, such as a user, or a
// multi-context combining several kinds. Contexts are immutable once created; use
// NewBuilder or NewMultiBuilder to construct them.
package ldcontext

import (
	"sort"
	"strings"

	"github.com/flagmill/go-server-sdk/ldattr"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// Context is an evaluation context.
//
// The zero value is an invalid (uninitialized) Context. A Context may also be invalid
// because it was built with invalid properties; see Err.
type Context struct {
	defined           bool
	err               error
	kind              Kind
	multiContexts     []Context
	key               string
	fullyQualifiedKey string
	name              string
	attributes        map[string]ldvalue.Value
	anonymous         bool
	privateAttrs      []ldattr.Ref
}

// New creates a Context with a key and the default kind of "user".
func New(key string) Context {
	return NewWithKind(DefaultKind, key)
}

// NewWithKind creates a Context with only the kind and key specified.
func NewWithKind(kind Kind, key string) Context {
	return NewBuilder(key).Kind(kind).Build()
}

// NewMulti creates a multi-context out of the specified single contexts.
//
// If only one context is given, the result is that same context. Nested multi-contexts
// are flattened into their individual kinds.
func NewMulti(contexts ...Context) Context {
	var b MultiBuilder
	for _, c := range contexts {
		b.Add(c)
	}
	return b.Build()
}

// IsDefined returns true if this is a Context that was created with a constructor or
// builder, as opposed to the zero value.
func (c Context) IsDefined() bool {
	return c.defined
}

// Err returns nil for a valid Context, or an error describing why it is invalid.
// Evaluating flags against an invalid Context always yields the default value.
func (c Context) Err() error {
	if !c.defined && c.err == nil {
		return errContextUninitialized
	}
	return c.err
}

// Kind returns the context's kind, or "" for an invalid Context.
func (c Context) Kind() Kind {
	if c.err != nil {
		return ""
	}
	return c.kind
}

// Multiple returns true for a multi-context.
func (c Context) Multiple() bool {
	return len(c.multiContexts) != 0
}

// Key returns the context's key. For a multi-context this is "", since it has no key of
// its own; see FullyQualifiedKey.
func (c Context) Key() string {
	return c.key
}

// FullyQualifiedKey returns a string that uniquely identifies the context.
//
// For a single context of the default "user" kind, this is the key itself. For any other
// single kind it is "kind:key", and for a multi-context it is each "kind:key" pair
// joined by colons in kind order. Keys are escaped ("%" as "%25", ":" as "%3A") so the
// format is unambiguous.
func (c Context) FullyQualifiedKey() string {
	return c.fullyQualifiedKey
}

// Name returns the context's name attribute, or "" if it has none.
func (c Context) Name() string {
	return c.name
}

// Anonymous returns the context's anonymous attribute.
func (c Context) Anonymous() bool {
	return c.anonymous
}

// IndividualContextCount returns the number of individual contexts: 1 for a valid single
// context, the number of kinds for a multi-context.
func (c Context) IndividualContextCount() int {
	if c.err != nil {
		return 0
	}
	if len(c.multiContexts) != 0 {
		return len(c.multiContexts)
	}
	return 1
}

// IndividualContextByIndex returns one of the individual contexts, in kind order. For a
// valid single context, index 0 returns the context itself.
func (c Context) IndividualContextByIndex(index int) (Context, bool) {
	if c.err != nil {
		return Context{}, false
	}
	if len(c.multiContexts) != 0 {
		if index < 0 || index >= len(c.multiContexts) {
			return Context{}, false
		}
		return c.multiContexts[index], true
	}
	if index != 0 {
		return Context{}, false
	}
	return c, true
}

// IndividualContextByKind returns the individual context of the given kind, if any. An
// empty kind is treated as the default kind.
func (c Context) IndividualContextByKind(kind Kind) (Context, bool) {
	if c.err != nil {
		return Context{}, false
	}
	if kind == "" {
		kind = DefaultKind
	}
	if len(c.multiContexts) != 0 {
		for _, mc := range c.multiContexts {
			if mc.kind == kind {
				return mc, true
			}
		}
		return Context{}, false
	}
	if c.kind == kind {
		return c, true
	}
	return Context{}, false
}

// GetValue looks up an attribute by name. The names "kind", "key", "name", and
// "anonymous" return those special properties; any other name is looked up in the
// optional attributes. For a multi-context, only "kind" is addressable.
func (c Context) GetValue(attrName string) ldvalue.Value {
	return c.GetValueForRef(ldattr.NewLiteralRef(attrName))
}

// GetValueForRef looks up an attribute by a parsed reference, descending into nested
// object values for multi-component paths.
func (c Context) GetValueForRef(ref ldattr.Ref) ldvalue.Value {
	if ref.Err() != nil || c.err != nil {
		return ldvalue.Null()
	}
	firstPathComponent := ref.Component(0)
	if c.Multiple() {
		if ref.Depth() == 1 && firstPathComponent == ldattr.KindAttr {
			return ldvalue.String(string(c.kind))
		}
		return ldvalue.Null() // other attributes are not addressable on a multi-context
	}
	value, ok := c.getTopLevelAttribute(firstPathComponent)
	if !ok {
		return ldvalue.Null()
	}
	for i := 1; i < ref.Depth(); i++ {
		value, ok = value.TryGetByKey(ref.Component(i))
		if !ok {
			return ldvalue.Null()
		}
	}
	return value
}

func (c Context) getTopLevelAttribute(name string) (ldvalue.Value, bool) {
	switch name {
	case ldattr.KindAttr:
		return ldvalue.String(string(c.kind)), true
	case ldattr.KeyAttr:
		return ldvalue.String(c.key), true
	case ldattr.NameAttr:
		if c.name == "" {
			return ldvalue.Null(), false
		}
		return ldvalue.String(c.name), true
	case ldattr.AnonymousAttr:
		return ldvalue.Bool(c.anonymous), true
	default:
		value, ok := c.attributes[name]
		return value, ok
	}
}

// GetOptionalAttributeNames returns the names of the context's optional attributes (not
// including kind, key, name, or anonymous), sorted for determinacy.
func (c Context) GetOptionalAttributeNames() []string {
	if c.err != nil || len(c.attributes) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.attributes))
	for name := range c.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PrivateAttributeCount returns the number of private attribute references set on this
// context.
func (c Context) PrivateAttributeCount() int {
	return len(c.privateAttrs)
}

// PrivateAttributeByIndex returns one of the context's private attribute references.
func (c Context) PrivateAttributeByIndex(index int) (ldattr.Ref, bool) {
	if index < 0 || index >= len(c.privateAttrs) {
		return ldattr.Ref{}, false
	}
	return c.privateAttrs[index], true
}

func escapeKeyForFullyQualifiedKey(key string) string {
	// ":" and "%" are percent-escaped; we do not use a full URL-encoding function because
	// implementations of that are inconsistent across platforms.
	return strings.ReplaceAll(strings.ReplaceAll(key, "%", "%25"), ":", "%3A")
}

func makeFullyQualifiedKeySingleKind(kind Kind, key string) string {
	if kind == DefaultKind {
		return key
	}
	return string(kind) + ":" + escapeKeyForFullyQualifiedKey(key)
}
