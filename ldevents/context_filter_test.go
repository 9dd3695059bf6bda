package ldevents

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagmill/go-server-sdk/ldattr"
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

func assertFilteredJSONEquals(t *testing.T, expectedJSON string, cf contextFilter, c ldcontext.Context) {
	actual := cf.filterContextOutput(c)
	bytes, err := json.Marshal(actual)
	require.NoError(t, err)
	assert.JSONEq(t, expectedJSON, string(bytes))
}

func TestFilterSimpleContext(t *testing.T) {
	cf := newContextFilter(epDefaultConfig())
	c := ldcontext.NewBuilder("my-key").Name("my-name").SetString("email", "x@y.com").Build()
	assertFilteredJSONEquals(t,
		`{"kind": "user", "key": "my-key", "name": "my-name", "email": "x@y.com"}`, cf, c)
}

func TestFilterIncludesAnonymousOnlyWhenTrue(t *testing.T) {
	cf := newContextFilter(epDefaultConfig())
	assertFilteredJSONEquals(t, `{"kind": "user", "key": "k", "anonymous": true}`, cf,
		ldcontext.NewBuilder("k").Anonymous(true).Build())
	assertFilteredJSONEquals(t, `{"kind": "user", "key": "k"}`, cf,
		ldcontext.NewBuilder("k").Anonymous(false).Build())
}

func TestFilterAllAttributesPrivate(t *testing.T) {
	config := epDefaultConfig()
	config.AllAttributesPrivate = true
	cf := newContextFilter(config)
	c := ldcontext.NewBuilder("my-key").Name("my-name").SetString("email", "x@y.com").Build()
	assertFilteredJSONEquals(t,
		`{"kind": "user", "key": "my-key",
			"_meta": {"redactedAttributes": ["name", "email"]}}`, cf, c)
}

func TestFilterGlobalPrivateAttributes(t *testing.T) {
	config := epDefaultConfig()
	config.PrivateAttributes = []ldattr.Ref{ldattr.NewRef("email")}
	cf := newContextFilter(config)
	c := ldcontext.NewBuilder("my-key").Name("my-name").SetString("email", "x@y.com").Build()
	assertFilteredJSONEquals(t,
		`{"kind": "user", "key": "my-key", "name": "my-name",
			"_meta": {"redactedAttributes": ["email"]}}`, cf, c)
}

func TestFilterPerContextPrivateAttributes(t *testing.T) {
	cf := newContextFilter(epDefaultConfig())
	c := ldcontext.NewBuilder("my-key").
		SetString("email", "x@y.com").
		SetString("team", "sdk").
		Private("email").
		Build()
	assertFilteredJSONEquals(t,
		`{"kind": "user", "key": "my-key", "team": "sdk",
			"_meta": {"redactedAttributes": ["email"]}}`, cf, c)
}

func TestFilterNestedPrivateAttribute(t *testing.T) {
	cf := newContextFilter(epDefaultConfig())
	address := ldvalue.ObjectBuild().
		Set("street", ldvalue.String("123 Main St")).
		Set("city", ldvalue.String("Oakland")).
		Build()
	c := ldcontext.NewBuilder("my-key").
		SetValue("address", address).
		Private("/address/street").
		Build()
	assertFilteredJSONEquals(t,
		`{"kind": "user", "key": "my-key", "address": {"city": "Oakland"},
			"_meta": {"redactedAttributes": ["/address/street"]}}`, cf, c)
}

func TestFilterNestedPrivateAttributeTwoLevelsDeep(t *testing.T) {
	cf := newContextFilter(epDefaultConfig())
	attrValue := ldvalue.ObjectBuild().
		Set("b", ldvalue.ObjectBuild().
			Set("c", ldvalue.String("hide me")).
			Set("d", ldvalue.String("keep me")).
			Build()).
		Build()
	c := ldcontext.NewBuilder("my-key").
		SetValue("a", attrValue).
		Private("/a/b/c").
		Build()
	assertFilteredJSONEquals(t,
		`{"kind": "user", "key": "my-key", "a": {"b": {"d": "keep me"}},
			"_meta": {"redactedAttributes": ["/a/b/c"]}}`, cf, c)
}

func TestFilterPrivateRefThatDoesNotMatchIsIgnored(t *testing.T) {
	cf := newContextFilter(epDefaultConfig())
	c := ldcontext.NewBuilder("my-key").
		SetString("email", "x@y.com").
		Private("other", "/email/nested").
		Build()
	assertFilteredJSONEquals(t, `{"kind": "user", "key": "my-key", "email": "x@y.com"}`, cf, c)
}

func TestFilterKeyAndKindAreNeverPrivate(t *testing.T) {
	config := epDefaultConfig()
	config.AllAttributesPrivate = true
	cf := newContextFilter(config)
	c := ldcontext.NewWithKind("org", "org-key")
	assertFilteredJSONEquals(t, `{"kind": "org", "key": "org-key"}`, cf, c)
}

func TestFilterMultiKindContext(t *testing.T) {
	cf := newContextFilter(epDefaultConfig())
	c := ldcontext.NewMulti(
		ldcontext.NewBuilder("user-key").Name("user-name").Build(),
		ldcontext.NewWithKind("org", "org-key"),
	)
	assertFilteredJSONEquals(t,
		`{"kind": "multi",
			"user": {"key": "user-key", "name": "user-name"},
			"org": {"key": "org-key"}}`, cf, c)
}

func TestFilterMultiKindContextAppliesPrivacyPerKind(t *testing.T) {
	cf := newContextFilter(epDefaultConfig())
	c := ldcontext.NewMulti(
		ldcontext.NewBuilder("user-key").SetString("email", "x@y.com").Private("email").Build(),
		ldcontext.NewBuilder("org-key").Kind("org").SetString("email", "org@y.com").Build(),
	)
	assertFilteredJSONEquals(t,
		`{"kind": "multi",
			"user": {"key": "user-key", "_meta": {"redactedAttributes": ["email"]}},
			"org": {"key": "org-key", "email": "org@y.com"}}`, cf, c)
}
