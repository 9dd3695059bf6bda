package ldevents

import (
	"github.com/flagmill/go-server-sdk/ldattr"
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// contextFilter transforms an evaluation context into the JSON representation used in events,
// redacting any attributes that are configured as private.
type contextFilter struct {
	allAttributesPrivate    bool
	globalPrivateAttributes []ldattr.Ref
}

func newContextFilter(config EventsConfiguration) contextFilter {
	return contextFilter{
		allAttributesPrivate:    config.AllAttributesPrivate,
		globalPrivateAttributes: config.PrivateAttributes,
	}
}

// filterContextOutput produces the context JSON for an event, with private attributes replaced
// by entries in _meta.redactedAttributes.
func (cf *contextFilter) filterContextOutput(c ldcontext.Context) ldvalue.Value {
	if c.Multiple() {
		builder := ldvalue.ObjectBuildWithCapacity(c.IndividualContextCount() + 1)
		builder.Set(ldattr.KindAttr, ldvalue.String("multi"))
		for i := 0; i < c.IndividualContextCount(); i++ {
			if individual, ok := c.IndividualContextByIndex(i); ok {
				builder.Set(string(individual.Kind()), cf.filterSingleKind(individual, false))
			}
		}
		return builder.Build()
	}
	return cf.filterSingleKind(c, true)
}

func (cf *contextFilter) filterSingleKind(c ldcontext.Context, includeKind bool) ldvalue.Value {
	builder := ldvalue.ObjectBuild()
	if includeKind {
		builder.Set(ldattr.KindAttr, ldvalue.String(string(c.Kind())))
	}
	builder.Set(ldattr.KeyAttr, ldvalue.String(c.Key()))
	if c.Anonymous() {
		builder.Set(ldattr.AnonymousAttr, ldvalue.Bool(true))
	}

	var redacted []string
	if c.Name() != "" {
		if cf.isAttributeEntirelyPrivate(c, ldattr.NameAttr) {
			redacted = append(redacted, ldattr.NameAttr)
		} else {
			builder.Set(ldattr.NameAttr, ldvalue.String(c.Name()))
		}
	}
	for _, attrName := range c.GetOptionalAttributeNames() {
		if cf.isAttributeEntirelyPrivate(c, attrName) {
			redacted = append(redacted, attrName)
			continue
		}
		value := c.GetValue(attrName)
		if value.Type() == ldvalue.ObjectType {
			value = cf.redactNestedProperties(c, value, []string{attrName}, &redacted)
		}
		builder.Set(attrName, value)
	}

	if len(redacted) > 0 {
		redactedJSON := ldvalue.ArrayBuildWithCapacity(len(redacted))
		for _, attrRef := range redacted {
			redactedJSON.Add(ldvalue.String(attrRef))
		}
		builder.Set("_meta", ldvalue.ObjectBuild().Set("redactedAttributes", redactedJSON.Build()).Build())
	}
	return builder.Build()
}

func (cf *contextFilter) isAttributeEntirelyPrivate(c ldcontext.Context, attrName string) bool {
	if cf.allAttributesPrivate {
		return true
	}
	found := false
	cf.forEachPrivateRef(c, func(ref ldattr.Ref) {
		if ref.Depth() == 1 && ref.Component(0) == attrName {
			found = true
		}
	})
	return found
}

// redactNestedProperties rewrites an object value with any private nested properties removed,
// appending the corresponding attribute reference strings to the redacted list. The parentPath
// is the component path leading to this value.
func (cf *contextFilter) redactNestedProperties(
	c ldcontext.Context,
	value ldvalue.Value,
	parentPath []string,
	redacted *[]string,
) ldvalue.Value {
	haveRedactions := false
	builder := ldvalue.ObjectBuildWithCapacity(value.Count())
	for _, key := range value.Keys() {
		propValue := value.GetByKey(key)
		path := append(append([]string(nil), parentPath...), key)
		if cf.isPathPrivate(c, path) {
			*redacted = append(*redacted, pathToRefString(path))
			haveRedactions = true
			continue
		}
		if propValue.Type() == ldvalue.ObjectType {
			rewritten := cf.redactNestedProperties(c, propValue, path, redacted)
			if !rewritten.Equal(propValue) {
				haveRedactions = true
			}
			builder.Set(key, rewritten)
		} else {
			builder.Set(key, propValue)
		}
	}
	if !haveRedactions {
		return value
	}
	return builder.Build()
}

func (cf *contextFilter) isPathPrivate(c ldcontext.Context, path []string) bool {
	found := false
	cf.forEachPrivateRef(c, func(ref ldattr.Ref) {
		if ref.Depth() != len(path) {
			return
		}
		for i, component := range path {
			if ref.Component(i) != component {
				return
			}
		}
		found = true
	})
	return found
}

func (cf *contextFilter) forEachPrivateRef(c ldcontext.Context, fn func(ldattr.Ref)) {
	for _, ref := range cf.globalPrivateAttributes {
		fn(ref)
	}
	for i := 0; i < c.PrivateAttributeCount(); i++ {
		if ref, ok := c.PrivateAttributeByIndex(i); ok {
			fn(ref)
		}
	}
}

func pathToRefString(path []string) string {
	if len(path) == 1 {
		return ldattr.NewLiteralRef(path[0]).String()
	}
	ret := ""
	for _, component := range path {
		ret += "/" + escapeRefComponent(component)
	}
	return ret
}

func escapeRefComponent(component string) string {
	ret := ""
	for _, ch := range component {
		switch ch {
		case '~':
			ret += "~0"
		case '/':
			ret += "~1"
		default:
			ret += string(ch)
		}
	}
	return ret
}
