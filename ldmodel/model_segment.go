package ldmodel

import (
	"github.com/flagmill/go-server-sdk/ldattr"
	"github.com/flagmill/go-server-sdk/ldcontext"
)

// Segment describes a context segment that can be referenced in feature flag rules.
type Segment struct {
	// Key is the unique key of the segment.
	Key string `json:"key"`
	// Included is a list of context keys of the default "user" kind that are always
	// considered to be in the segment.
	Included []string `json:"included,omitempty"`
	// Excluded is a list of context keys of the default "user" kind that are never in the
	// segment, regardless of Included or Rules.
	Excluded []string `json:"excluded,omitempty"`
	// IncludedContexts contains additional inclusion lists for other context kinds.
	IncludedContexts []SegmentTarget `json:"includedContexts,omitempty"`
	// ExcludedContexts contains additional exclusion lists for other context kinds.
	ExcludedContexts []SegmentTarget `json:"excludedContexts,omitempty"`
	// Salt is a randomized value assigned to the segment, used in weighted segment rule
	// hashing.
	Salt string `json:"salt"`
	// Rules is a list of rules that may match a context that was not matched by the
	// include and exclude lists.
	Rules []SegmentRule `json:"rules,omitempty"`
	// Unbounded is true if this is a Big Segment: its membership is stored in a separate
	// Big Segment store rather than carried in Included/Excluded, because the member list
	// is too large to replicate. Rules still apply to contexts not found in the store.
	Unbounded bool `json:"unbounded,omitempty"`
	// UnboundedContextKind is the context kind associated with membership of a Big
	// Segment. If empty, it is the default kind of "user". Ignored unless Unbounded.
	UnboundedContextKind ldcontext.Kind `json:"unboundedContextKind,omitempty"`
	// Version is an integer that is incremented by the service every time the segment's
	// configuration changes.
	Version int `json:"version"`
	// Generation is an integer that is incremented whenever a Big Segment's membership
	// data is re-synchronized. Membership queries reference "<key>.g<generation>". If nil
	// for an unbounded segment, the data is from a source that does not support Big
	// Segments and the segment cannot be evaluated.
	Generation *int `json:"generation,omitempty"`
	// Deleted is true if this is a placeholder (tombstone) for a deleted segment.
	Deleted bool `json:"deleted,omitempty"`
}

// SegmentTarget describes a target list for a specific context kind within a segment.
type SegmentTarget struct {
	// ContextKind is the context kind that the keys apply to. If empty, it is the default
	// kind of "user".
	ContextKind ldcontext.Kind `json:"contextKind,omitempty"`
	// Values is the set of context keys included or excluded.
	Values []string `json:"values"`
}

// SegmentRule describes a single rule within a segment.
type SegmentRule struct {
	// ID is a randomized identifier assigned to each rule when it is created.
	ID string `json:"id,omitempty"`
	// Clauses is a list of test conditions that make up the rule. These are ANDed: every
	// Clause must match in order for the rule to match.
	Clauses []Clause `json:"clauses,omitempty"`
	// Weight, if non-nil, defines a percentage rollout for which contexts are included in
	// the segment, as an integer from 0 to 100000. The rollout is hashed from the segment
	// key and salt, so it is independent of any flag rollouts.
	Weight *int `json:"weight,omitempty"`
	// BucketBy specifies which attribute should be used to distinguish between contexts in
	// the weighted rollout. The default (when BucketBy is undefined) is the key attribute.
	BucketBy ldattr.Ref `json:"bucketBy,omitempty"`
	// RolloutContextKind is the context kind to use for the weighted rollout. If empty, it
	// is the default kind of "user".
	RolloutContextKind ldcontext.Kind `json:"rolloutContextKind,omitempty"`
}
