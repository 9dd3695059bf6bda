package ldcontext

import (
	"errors"
	"sort"
	"strings"

	"github.com/flagmill/go-server-sdk/ldattr"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

var errContextUninitialized = errors.New("tried to use uninitialized Context")

// Builder is a mutable object for building a single-kind Context.
type Builder struct {
	kind         Kind
	key          string
	allowEmpty   bool
	name         string
	attributes   map[string]ldvalue.Value
	anonymous    bool
	privateAttrs []ldattr.Ref
}

// NewBuilder creates a Builder for a Context with the given key and a default kind of
// "user".
func NewBuilder(key string) *Builder {
	return &Builder{kind: DefaultKind, key: key}
}

// NewBuilderFromContext creates a Builder whose properties are copied from an existing
// single-kind Context.
func NewBuilderFromContext(c Context) *Builder {
	b := &Builder{kind: c.kind, key: c.key, name: c.name, anonymous: c.anonymous}
	if len(c.attributes) != 0 {
		b.attributes = make(map[string]ldvalue.Value, len(c.attributes))
		for k, v := range c.attributes {
			b.attributes[k] = v
		}
	}
	b.privateAttrs = append(b.privateAttrs, c.privateAttrs...)
	return b
}

// Kind sets the context kind. The default is "user".
func (b *Builder) Kind(kind Kind) *Builder {
	if kind == "" {
		kind = DefaultKind
	}
	b.kind = kind
	return b
}

// Key changes the context key set in the constructor.
func (b *Builder) Key(key string) *Builder {
	b.key = key
	return b
}

// Name sets the context's name attribute.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Anonymous sets whether the context is anonymous. Anonymous contexts are excluded from
// index and identify event context data unless debugging.
func (b *Builder) Anonymous(anonymous bool) *Builder {
	b.anonymous = anonymous
	return b
}

// SetValue sets an attribute to any JSON value.
//
// Setting "kind", "key", "name", or "anonymous" routes to the corresponding typed setter
// and is ignored if the value has the wrong type. Use TrySetValue to detect that case.
func (b *Builder) SetValue(name string, value ldvalue.Value) *Builder {
	_ = b.TrySetValue(name, value)
	return b
}

// TrySetValue sets an attribute to any JSON value.
//
// Setting "kind", "key", "name", or "anonymous" routes to the corresponding typed setter
// and is ignored if the value has the wrong type, returning false in that case.
func (b *Builder) TrySetValue(name string, value ldvalue.Value) bool {
	switch name {
	case ldattr.KindAttr:
		if !value.IsString() {
			return false
		}
		b.Kind(Kind(value.StringValue()))
	case ldattr.KeyAttr:
		if !value.IsString() {
			return false
		}
		b.Key(value.StringValue())
	case ldattr.NameAttr:
		if !value.IsString() && !value.IsNull() {
			return false
		}
		b.Name(value.StringValue())
	case ldattr.AnonymousAttr:
		if !value.IsBool() {
			return false
		}
		b.Anonymous(value.BoolValue())
	default:
		if value.IsNull() {
			delete(b.attributes, name)
			return true
		}
		if b.attributes == nil {
			b.attributes = make(map[string]ldvalue.Value)
		}
		b.attributes[name] = value
	}
	return true
}

// SetString sets an attribute to a string value.
func (b *Builder) SetString(name string, value string) *Builder {
	b.SetValue(name, ldvalue.String(value))
	return b
}

// SetBool sets an attribute to a boolean value.
func (b *Builder) SetBool(name string, value bool) *Builder {
	b.SetValue(name, ldvalue.Bool(value))
	return b
}

// SetInt sets an attribute to an integer numeric value.
func (b *Builder) SetInt(name string, value int) *Builder {
	b.SetValue(name, ldvalue.Int(value))
	return b
}

// SetFloat64 sets an attribute to a numeric value.
func (b *Builder) SetFloat64(name string, value float64) *Builder {
	b.SetValue(name, ldvalue.Float64(value))
	return b
}

// Private designates attributes as private: they will be redacted from analytics event
// data. Each parameter is an attribute reference path, as in ldattr.NewRef.
func (b *Builder) Private(attrRefStrings ...string) *Builder {
	for _, s := range attrRefStrings {
		b.PrivateRef(ldattr.NewRef(s))
	}
	return b
}

// PrivateRef is the same as Private but takes already-parsed references.
func (b *Builder) PrivateRef(refs ...ldattr.Ref) *Builder {
	b.privateAttrs = append(b.privateAttrs, refs...)
	return b
}

// Build creates the Context. The builder remains usable afterward.
//
// If any properties were invalid, the returned Context has a non-nil Err and evaluations
// against it return default values.
func (b *Builder) Build() Context {
	if err := validateKind(b.kind); err != nil {
		return Context{defined: true, err: err}
	}
	if b.key == "" && !b.allowEmpty {
		return Context{defined: true, err: errKeyEmpty}
	}
	c := Context{
		defined:           true,
		kind:              b.kind,
		key:               b.key,
		fullyQualifiedKey: makeFullyQualifiedKeySingleKind(b.kind, b.key),
		name:              b.name,
		anonymous:         b.anonymous,
	}
	if len(b.attributes) != 0 {
		c.attributes = make(map[string]ldvalue.Value, len(b.attributes))
		for k, v := range b.attributes {
			c.attributes[k] = v
		}
	}
	if len(b.privateAttrs) != 0 {
		c.privateAttrs = make([]ldattr.Ref, len(b.privateAttrs))
		copy(c.privateAttrs, b.privateAttrs)
	}
	return c
}

// MultiBuilder is a mutable object for building a multi-context. The zero value is ready
// to use.
type MultiBuilder struct {
	contexts []Context
}

// NewMultiBuilder creates a MultiBuilder.
func NewMultiBuilder() *MultiBuilder {
	return &MultiBuilder{}
}

// Add adds an individual context. Adding a multi-context is equivalent to adding each of
// its individual kinds separately.
func (m *MultiBuilder) Add(c Context) *MultiBuilder {
	if c.Multiple() {
		m.contexts = append(m.contexts, c.multiContexts...)
	} else {
		m.contexts = append(m.contexts, c)
	}
	return m
}

// Build creates the multi-context. If only one context was added, that context itself is
// returned.
//
// For the result to be valid, at least one context must have been added, every context
// must be valid, and no two contexts may have the same kind.
func (m *MultiBuilder) Build() Context {
	if len(m.contexts) == 0 {
		return Context{defined: true, err: errMultiEmpty}
	}
	if len(m.contexts) == 1 {
		return m.contexts[0]
	}
	sorted := make([]Context, len(m.contexts))
	copy(sorted, m.contexts)
	// Sorting by kind gives a deterministic fully-qualified key.
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].kind < sorted[j].kind })

	var errs []string
	for i, c := range sorted {
		if err := c.Err(); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if i > 0 && sorted[i-1].kind == c.kind {
			return Context{defined: true, err: errMultiDuplicates}
		}
	}
	if len(errs) != 0 {
		return Context{defined: true, err: errors.New(strings.Join(errs, ", "))}
	}

	var fullKey strings.Builder
	for i, c := range sorted {
		if i > 0 {
			fullKey.WriteByte(':')
		}
		fullKey.WriteString(string(c.kind))
		fullKey.WriteByte(':')
		fullKey.WriteString(escapeKeyForFullyQualifiedKey(c.key))
	}
	return Context{
		defined:           true,
		kind:              MultiKind,
		multiContexts:     sorted,
		fullyQualifiedKey: fullKey.String(),
	}
}
