package ldcontext

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flagmill/go-server-sdk/ldvalue"
)

type contextMeta struct {
	PrivateAttributes []string `json:"privateAttributes,omitempty"`
}

// MarshalJSON serializes a Context in its standard JSON representation. Invalid contexts
// cannot be serialized.
func (c Context) MarshalJSON() ([]byte, error) {
	if err := c.Err(); err != nil {
		return nil, err
	}
	if c.Multiple() {
		out := make(map[string]json.RawMessage, len(c.multiContexts)+1)
		out["kind"] = json.RawMessage(`"multi"`)
		for _, mc := range c.multiContexts {
			data, err := mc.marshalSingleKind(false)
			if err != nil {
				return nil, err
			}
			out[string(mc.kind)] = data
		}
		return json.Marshal(out)
	}
	return c.marshalSingleKind(true)
}

func (c Context) marshalSingleKind(includeKind bool) (json.RawMessage, error) {
	out := make(map[string]interface{}, len(c.attributes)+4)
	if includeKind {
		out["kind"] = string(c.kind)
	}
	out["key"] = c.key
	if c.name != "" {
		out["name"] = c.name
	}
	if c.anonymous {
		out["anonymous"] = true
	}
	for k, v := range c.attributes {
		out[k] = v
	}
	if len(c.privateAttrs) != 0 {
		refs := make([]string, 0, len(c.privateAttrs))
		for _, ref := range c.privateAttrs {
			refs = append(refs, ref.String())
		}
		out["_meta"] = contextMeta{PrivateAttributes: refs}
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses a Context from its standard JSON representation. If the properties
// describe an invalid Context, an error is returned rather than an invalid Context.
func (c *Context) UnmarshalJSON(data []byte) error {
	var props map[string]ldvalue.Value
	if err := json.Unmarshal(data, &props); err != nil {
		return err
	}
	kindValue, ok := props["kind"]
	if !ok || !kindValue.IsString() {
		return errors.New(`context is missing a string "kind" property`)
	}
	if Kind(kindValue.StringValue()) == MultiKind {
		var mb MultiBuilder
		for _, name := range sortedKeys(props) {
			if name == "kind" {
				continue
			}
			single, err := unmarshalSingleKind(props[name].AsRaw(), Kind(name))
			if err != nil {
				return err
			}
			mb.Add(single)
		}
		built := mb.Build()
		if err := built.Err(); err != nil {
			return err
		}
		*c = built
		return nil
	}
	single, err := unmarshalSingleKind(json.RawMessage(data), "")
	if err != nil {
		return err
	}
	*c = single
	return nil
}

func unmarshalSingleKind(data json.RawMessage, knownKind Kind) (Context, error) {
	var props map[string]ldvalue.Value
	if err := json.Unmarshal(data, &props); err != nil {
		return Context{}, err
	}
	keyValue, ok := props["key"]
	if !ok || !keyValue.IsString() {
		return Context{}, errors.New(`context is missing a string "key" property`)
	}
	b := NewBuilder(keyValue.StringValue())
	if knownKind != "" {
		b.Kind(knownKind)
	}
	for name, value := range props {
		switch name {
		case "key":
		case "kind":
			if knownKind == "" {
				if !value.IsString() {
					return Context{}, errors.New(`context "kind" property must be a string`)
				}
				b.Kind(Kind(value.StringValue()))
			}
		case "_meta":
			var meta contextMeta
			if err := json.Unmarshal(value.AsRaw(), &meta); err != nil {
				return Context{}, err
			}
			b.Private(meta.PrivateAttributes...)
		default:
			if !b.TrySetValue(name, value) {
				return Context{}, fmt.Errorf("invalid value for context property %q", name)
			}
		}
	}
	built := b.Build()
	if err := built.Err(); err != nil {
		return Context{}, err
	}
	return built, nil
}

func sortedKeys(props map[string]ldvalue.Value) []string {
	return ldvalue.CopyObject(props).Keys()
}
