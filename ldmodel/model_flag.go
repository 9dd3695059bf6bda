// Package ldmodel contains the SDK's internal representation of feature flag and segment
// data, as deserialized from the flag delivery services.
//
// Application code normally does not use this package; the data model is an
// implementation detail shared by the evaluation engine and the data sources.
package ldmodel

import (
	"github.com/flagmill/go-server-sdk/ldattr"
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldtime"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// FeatureFlag describes an individual feature flag.
type FeatureFlag struct {
	// Key is the unique string key of the feature flag.
	Key string `json:"key"`
	// On is true if targeting is turned on for this flag.
	//
	// If On is false, the evaluator returns OffVariation for all contexts.
	On bool `json:"on"`
	// Prerequisites is a list of feature flag conditions that are prerequisites for this flag.
	//
	// If any prerequisite is not met, the flag behaves as if targeting is turned off.
	Prerequisites []Prerequisite `json:"prerequisites,omitempty"`
	// Targets contains sets of individually targeted context keys for the default "user"
	// kind. Targets take precedence over Rules: if a context key is matched by a target,
	// the rules are not considered.
	Targets []Target `json:"targets,omitempty"`
	// ContextTargets contains sets of individually targeted context keys for any context
	// kind. For the default kind, the key list is in Targets and the ContextTargets entry
	// carries only the variation, to avoid duplicating the keys.
	ContextTargets []Target `json:"contextTargets,omitempty"`
	// Rules is a list of rules that may match a context.
	//
	// If a context is matched by a rule, all subsequent rules in the list are skipped.
	// Rules take precedence over Fallthrough, but not over Targets.
	Rules []FlagRule `json:"rules,omitempty"`
	// Fallthrough defines the flag's behavior for a context that is not matched by any
	// targets or rules.
	Fallthrough VariationOrRollout `json:"fallthrough"`
	// OffVariation specifies the variation index to use when the flag is off or a
	// prerequisite has failed. If nil, the result value is the application default.
	OffVariation *int `json:"offVariation,omitempty"`
	// Variations is the list of all allowable variation values for the flag. A variation
	// is referenced elsewhere in the flag by its index in this list.
	Variations []ldvalue.Value `json:"variations"`
	// ClientSideAvailability indicates whether the flag is available to client-side SDKs.
	ClientSideAvailability ClientSideAvailability `json:"clientSideAvailability"`
	// Salt is a randomized value assigned to the flag, used in percentage rollout hashing.
	Salt string `json:"salt"`
	// TrackEvents is true if the current LaunchDarkly-style configuration requires a full
	// analytics event to be sent on every evaluation of this flag.
	TrackEvents bool `json:"trackEvents,omitempty"`
	// TrackEventsFallthrough is true if a full analytics event must be sent whenever a
	// fallthrough evaluation of this flag occurs.
	TrackEventsFallthrough bool `json:"trackEventsFallthrough,omitempty"`
	// DebugEventsUntilDate is non-zero if debugging for this flag has been turned on
	// temporarily: full analytics events are sent until this timestamp.
	DebugEventsUntilDate ldtime.UnixMillisecondTime `json:"debugEventsUntilDate,omitempty"`
	// Version is an integer that is incremented by the service every time the flag's
	// configuration changes.
	Version int `json:"version"`
	// Deleted is true if this is a placeholder (tombstone) for a deleted flag.
	Deleted bool `json:"deleted,omitempty"`
	// Migration holds optional configuration for migration-assisted flags.
	Migration *MigrationFlagParameters `json:"migration,omitempty"`
	// SamplingRatio controls one-in-N downsampling of analytics events for this flag. If
	// nil, every event is sent.
	SamplingRatio *int `json:"samplingRatio,omitempty"`
	// ExcludeFromSummaries is true if evaluations of this flag should be left out of
	// summary event counts.
	ExcludeFromSummaries bool `json:"excludeFromSummaries,omitempty"`
}

// MigrationFlagParameters are optional configuration values for migration-assisted flags.
type MigrationFlagParameters struct {
	// CheckRatio controls one-in-N sampling of migration consistency checks. If nil, every
	// check is performed.
	CheckRatio *int `json:"checkRatio,omitempty"`
}

// FlagRule describes a single rule within a feature flag.
//
// A rule consists of a set of ANDed matching conditions (Clauses) for a context, along
// with either a fixed variation or a percentage rollout to serve if the conditions match.
type FlagRule struct {
	// VariationOrRollout properties for the rule.
	VariationOrRollout
	// ID is a randomized identifier assigned to each rule when it is created, used in
	// evaluation reasons.
	ID string `json:"id,omitempty"`
	// Clauses is a list of test conditions that make up the rule. These are ANDed: every
	// Clause must match in order for the rule to match.
	Clauses []Clause `json:"clauses,omitempty"`
	// TrackEvents is true if a full analytics event must be sent whenever this rule matches.
	TrackEvents bool `json:"trackEvents,omitempty"`
}

// RolloutKind describes whether a rollout is a simple percentage rollout or represents an
// experiment. Experiments have different behavior for tracking and variation bucketing.
type RolloutKind string

const (
	// RolloutKindRollout represents a simple percentage rollout. This is the default.
	RolloutKindRollout RolloutKind = "rollout"
	// RolloutKindExperiment represents an experiment. Experiments have different behavior
	// for tracking and variation bucketing.
	RolloutKindExperiment RolloutKind = "experiment"
)

// VariationOrRollout desscribes either a fixed variation or a percentage rollout.
//
// There is a VariationOrRollout for every FlagRule, and also one in Fallthrough which is
// used if no rules match. Invariant: one of the Variation or Rollout properties is set.
type VariationOrRollout struct {
	// Variation specifies the index of the variation to return. It is nil if no specific
	// variation is defined.
	Variation *int `json:"variation,omitempty"`
	// Rollout specifies a percentage rollout to be used instead of a specific variation.
	Rollout *Rollout `json:"rollout,omitempty"`
}

// Rollout describes how contexts will be bucketed into variations during a percentage rollout.
type Rollout struct {
	// Kind specifies whether this rollout is a simple percentage rollout or represents an
	// experiment.
	Kind RolloutKind `json:"kind,omitempty"`
	// ContextKind is the context kind that this rollout applies to. If empty, it is the
	// default kind of "user".
	ContextKind ldcontext.Kind `json:"contextKind,omitempty"`
	// Variations is a list of the variations in the rollout and the percentage of contexts
	// to include in each.
	//
	// The Weight values of all elements in this list should add up to 100000 (100%). If
	// they do not, the last element absorbs the remainder; this is not an error condition.
	Variations []WeightedVariation `json:"variations,omitempty"`
	// BucketBy specifies which attribute should be used to distinguish between contexts in
	// a rollout. The default (when BucketBy is undefined) is the key attribute.
	//
	// This property is ignored for experiments, which always bucket by key.
	BucketBy ldattr.Ref `json:"bucketBy,omitempty"`
	// Seed, if present, specifies a seed for the hashing that assigns contexts to buckets.
	// The seed replaces the flag key and salt as the hash prefix, so that correlated
	// experiments bucket the same contexts identically.
	Seed *int `json:"seed,omitempty"`
}

// IsExperiment returns true if this rollout represents an experiment.
func (r Rollout) IsExperiment() bool {
	return r.Kind == RolloutKindExperiment
}

// Clause describes an individual clause within a FlagRule or SegmentRule.
type Clause struct {
	// ContextKind is the context kind that this clause applies to. If empty, it is the
	// default kind of "user".
	//
	// If the clause's Attribute is "kind", ContextKind is ignored: the operator is instead
	// tested against every kind in the context.
	ContextKind ldcontext.Kind `json:"contextKind,omitempty"`
	// Attribute specifies the context attribute that is being tested.
	//
	// If the parsed attribute reference is invalid, the flag is treated as malformed
	// during evaluation rather than simply non-matching.
	Attribute ldattr.Ref `json:"attribute"`
	// Op specifies the type of test to perform.
	Op Operator `json:"op"`
	// Values is a list of values to be compared to the context attribute. A clause matches
	// if any of the values matches; the clause values themselves are never treated as
	// lists.
	Values []ldvalue.Value `json:"values"`
	// Negate is true if the clause match should be inverted. Negation applies after the
	// match test, but a missing attribute is a non-match regardless of Negate.
	Negate bool `json:"negate,omitempty"`
}

// WeightedVariation describes a fraction of contexts which will receive a specific variation.
type WeightedVariation struct {
	// Variation is the index of the variation to be returned if the context is in this bucket.
	Variation int `json:"variation"`
	// Weight is the proportion of contexts that should go into this bucket, as an integer
	// from 0 to 100000.
	Weight int `json:"weight"`
	// Untracked means that contexts allocated to this variation should not have tracking
	// events sent (that is, they are not part of the experiment).
	Untracked bool `json:"untracked,omitempty"`
}

// Target describes a set of context keys that will receive a specific variation.
type Target struct {
	// ContextKind is the context kind that this target list applies to. If empty, it is
	// the default kind of "user".
	ContextKind ldcontext.Kind `json:"contextKind,omitempty"`
	// Values is the set of context keys included in this Target.
	Values []string `json:"values"`
	// Variation is the index of the variation to be returned if the context key is found
	// in Values.
	Variation int `json:"variation"`
}

// Prerequisite describes a requirement that another feature flag return a specific variation.
//
// A prerequisite condition is met if the specified prerequisite flag has targeting turned
// on and returns the specified variation.
type Prerequisite struct {
	// Key is the unique key of the feature flag to be evaluated as a prerequisite.
	Key string `json:"key"`
	// Variation is the index of the variation that the prerequisite flag must return in
	// order for the prerequisite condition to be met.
	Variation int `json:"variation"`
}

// ClientSideAvailability describes to which client-side SDKs a flag is available.
type ClientSideAvailability struct {
	// UsingMobileKey indicates that this flag is available to clients using a mobile key.
	UsingMobileKey bool `json:"usingMobileKey"`
	// UsingEnvironmentID indicates that this flag is available to clients using the
	// environment ID (JavaScript SDKs).
	UsingEnvironmentID bool `json:"usingEnvironmentId"`
	// Explicit is true if the flag data contained a clientSideAvailability object, rather
	// than the older clientSide boolean. It controls which form is re-serialized.
	Explicit bool `json:"-"`
}
