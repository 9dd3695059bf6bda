// Package evaluation contains the feature flag evaluation engine.
//
// Normal use of the SDK does not require referencing this package directly; it is used
// internally by the client, and exists separately so that flag evaluation logic has no
// knowledge of the rest of the SDK environment.
package evaluation

import (
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldmodel"
	"github.com/flagmill/go-server-sdk/ldreason"
)

// Evaluator is the engine for evaluating feature flags.
type Evaluator interface {
	// Evaluate evaluates a feature flag for the specified context.
	//
	// The flag is passed by reference only for efficiency; the evaluator will never
	// modify any flag data. Evaluation of prerequisites and segments is done via the
	// DataProvider that was specified when the Evaluator was created.
	//
	// If prerequisiteFlagEventRecorder is non-nil, it will be called for each
	// prerequisite flag that is evaluated along the way.
	Evaluate(
		flag *ldmodel.FeatureFlag,
		context ldcontext.Context,
		prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
	) ldreason.EvaluationDetail
}

// DataProvider is an abstraction for querying feature flags and segments from a data
// store. The caller provides the key; the provider returns nil if the item does not
// exist. The evaluator does not cache these items.
type DataProvider interface {
	// GetFeatureFlag attempts to retrieve a feature flag from the data store.
	GetFeatureFlag(key string) *ldmodel.FeatureFlag
	// GetSegment attempts to retrieve a segment from the data store.
	GetSegment(key string) *ldmodel.Segment
}

// BigSegmentProvider is an abstraction for querying Big Segment membership.
type BigSegmentProvider interface {
	// GetBigSegmentMembership queries a snapshot of the Big Segment state for a specific
	// context key. The second return value describes whether the snapshot should be
	// considered reliable.
	//
	// The membership may be nil if the context has no Big Segment memberships.
	GetBigSegmentMembership(contextKey string) (BigSegmentMembership, ldreason.BigSegmentsStatus)
}

// BigSegmentMembership is a snapshot of which Big Segments a specific context is included
// in or excluded from.
type BigSegmentMembership interface {
	// CheckMembership tests whether the context is explicitly included or excluded in the
	// segment identified by segmentRef (in "<key>.g<generation>" format). The second
	// return value is false if the store has no explicit answer, in which case the
	// segment's rules are consulted instead.
	CheckMembership(segmentRef string) (included bool, found bool)
}

// PrerequisiteFlagEvent is the parameter data passed to PrerequisiteFlagEventRecorder.
type PrerequisiteFlagEvent struct {
	// TargetFlagKey is the key of the feature flag that had a prerequisite.
	TargetFlagKey string
	// Context is the context that the flag was evaluated for.
	Context ldcontext.Context
	// PrerequisiteFlag is the full configuration of the prerequisite flag.
	PrerequisiteFlag *ldmodel.FeatureFlag
	// PrerequisiteResult is the result of evaluating the prerequisite flag.
	PrerequisiteResult ldreason.EvaluationDetail
}

// PrerequisiteFlagEventRecorder is a function that Evaluate calls to record the result of
// a prerequisite flag evaluation.
type PrerequisiteFlagEventRecorder func(PrerequisiteFlagEvent)
