package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagmill/go-server-sdk/ldattr"
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldmodel"
	"github.com/flagmill/go-server-sdk/ldreason"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

type simpleDataProvider struct {
	flags    map[string]*ldmodel.FeatureFlag
	segments map[string]*ldmodel.Segment
}

func (s *simpleDataProvider) GetFeatureFlag(key string) *ldmodel.FeatureFlag {
	return s.flags[key]
}

func (s *simpleDataProvider) GetSegment(key string) *ldmodel.Segment {
	return s.segments[key]
}

func (s *simpleDataProvider) withFlag(flag *ldmodel.FeatureFlag) *simpleDataProvider {
	if s.flags == nil {
		s.flags = make(map[string]*ldmodel.FeatureFlag)
	}
	s.flags[flag.Key] = flag
	return s
}

func (s *simpleDataProvider) withSegment(segment *ldmodel.Segment) *simpleDataProvider {
	if s.segments == nil {
		s.segments = make(map[string]*ldmodel.Segment)
	}
	s.segments[segment.Key] = segment
	return s
}

type mockBigSegmentMembership map[string]bool

func (m mockBigSegmentMembership) CheckMembership(segmentRef string) (bool, bool) {
	included, found := m[segmentRef]
	return included, found
}

type mockBigSegmentProvider struct {
	membership BigSegmentMembership
	status     ldreason.BigSegmentsStatus
	queryCount int
}

func (m *mockBigSegmentProvider) GetBigSegmentMembership(
	contextKey string,
) (BigSegmentMembership, ldreason.BigSegmentsStatus) {
	m.queryCount++
	return m.membership, m.status
}

func intPtr(n int) *int { return &n }

func twoValueFlag(key string) *ldmodel.FeatureFlag {
	return &ldmodel.FeatureFlag{
		Key:          key,
		Version:      1,
		On:           true,
		OffVariation: intPtr(0),
		Fallthrough:  ldmodel.VariationOrRollout{Variation: intPtr(1)},
		Variations:   []ldvalue.Value{ldvalue.Bool(false), ldvalue.Bool(true)},
		Salt:         "salty",
	}
}

func clauseMatchingKey(key string) ldmodel.Clause {
	return ldmodel.Clause{
		Attribute: ldattr.NewRef(ldattr.KeyAttr),
		Op:        ldmodel.OperatorIn,
		Values:    []ldvalue.Value{ldvalue.String(key)},
	}
}

func TestFlagReturnsOffVariationIfFlagIsOff(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.On = false

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldvalue.Bool(false), result.Value)
	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonOff(), result.Reason)
}

func TestFlagReturnsNilIfFlagIsOffAndOffVariationIsUnspecified(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.On = false
	flag.OffVariation = nil

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldvalue.Null(), result.Value)
	assert.Equal(t, ldreason.NoVariation, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonOff(), result.Reason)
}

func TestFlagReturnsErrorIfOffVariationIsTooHigh(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.On = false
	flag.OffVariation = intPtr(999)

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestFlagReturnsFallthroughIfFlagIsOnAndThereAreNoRules(t *testing.T) {
	flag := twoValueFlag("feature")

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldvalue.Bool(true), result.Value)
	assert.Equal(t, 1, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestFlagReturnsErrorIfFallthroughHasNeitherVariationNorRollout(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Fallthrough = ldmodel.VariationOrRollout{}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestFlagReturnsErrorIfFallthroughHasRolloutWithNoVariations(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Fallthrough = ldmodel.VariationOrRollout{Rollout: &ldmodel.Rollout{}}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestFlagReturnsErrorForInvalidContext(t *testing.T) {
	flag := twoValueFlag("feature")

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New(""), nil)

	assert.Equal(t, ldreason.NewEvaluationDetailForError(ldreason.EvalErrorUserNotSpecified, ldvalue.Null()), result)
}

func TestFlagMatchesContextFromTargets(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Targets = []ldmodel.Target{
		{Values: []string{"whoever", "userkey"}, Variation: 0},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldvalue.Bool(false), result.Value)
	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonTargetMatch(), result.Reason)
}

func TestFlagMatchesContextFromContextTargetsByKind(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.ContextTargets = []ldmodel.Target{
		{ContextKind: "org", Values: []string{"orgkey"}, Variation: 0},
	}

	context := ldcontext.NewWithKind("org", "orgkey")
	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, context, nil)

	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonTargetMatch(), result.Reason)

	// A user context with the same key does not match a target for the org kind.
	result = NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("orgkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestFlagContextTargetForDefaultKindDefersToTargetsListForKeys(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Targets = []ldmodel.Target{
		{Values: []string{"userkey"}, Variation: 0},
	}
	flag.ContextTargets = []ldmodel.Target{
		{ContextKind: "org", Values: []string{"orgkey"}, Variation: 1},
		{Variation: 0},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonTargetMatch(), result.Reason)
}

func TestFlagMatchesContextFromRules(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule-id",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses:            []ldmodel.Clause{clauseMatchingKey("userkey")},
		},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldvalue.Bool(false), result.Value)
	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonRuleMatch(0, "rule-id"), result.Reason)
}

func TestRuleWithNonMatchingClauseFallsThrough(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule-id",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses:            []ldmodel.Clause{clauseMatchingKey("someone-else")},
		},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestLaterRuleIsUsedWhenEarlierRuleDoesNotMatch(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule0",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(1)},
			Clauses:            []ldmodel.Clause{clauseMatchingKey("someone-else")},
		},
		{
			ID:                 "rule1",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses:            []ldmodel.Clause{clauseMatchingKey("userkey")},
		},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.NewEvalReasonRuleMatch(1, "rule1"), result.Reason)
}

func TestFlagReturnsErrorIfRuleHasInvalidAttributeReference(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule-id",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses: []ldmodel.Clause{
				{Attribute: ldattr.NewRef("//"), Op: ldmodel.OperatorIn, Values: []ldvalue.Value{ldvalue.String("x")}},
			},
		},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestClauseCanMatchCustomAttribute(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule-id",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses: []ldmodel.Clause{
				{
					Attribute: ldattr.NewRef("legs"),
					Op:        ldmodel.OperatorIn,
					Values:    []ldvalue.Value{ldvalue.Int(4)},
				},
			},
		},
	}

	context := ldcontext.NewBuilder("userkey").SetInt("legs", 4).Build()
	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, context, nil)
	assert.Equal(t, ldreason.NewEvalReasonRuleMatch(0, "rule-id"), result.Reason)
}

func TestClauseWithMissingAttributeDoesNotMatchEvenWithNegate(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule-id",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses: []ldmodel.Clause{
				{
					Attribute: ldattr.NewRef("legs"),
					Op:        ldmodel.OperatorIn,
					Values:    []ldvalue.Value{ldvalue.Int(4)},
					Negate:    true,
				},
			},
		},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestClauseMatchesArrayAttributeIfAnyElementMatches(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule-id",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses: []ldmodel.Clause{
				{
					Attribute: ldattr.NewRef("pets"),
					Op:        ldmodel.OperatorIn,
					Values:    []ldvalue.Value{ldvalue.String("cat")},
				},
			},
		},
	}

	context := ldcontext.NewBuilder("userkey").
		SetValue("pets", ldvalue.ArrayBuild().Add(ldvalue.String("dog")).Add(ldvalue.String("cat")).Build()).
		Build()
	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, context, nil)
	assert.Equal(t, ldreason.NewEvalReasonRuleMatch(0, "rule-id"), result.Reason)
}

func TestClauseOnKindAttributeMatchesAnyKindInContext(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule-id",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses: []ldmodel.Clause{
				{
					Attribute: ldattr.NewRef(ldattr.KindAttr),
					Op:        ldmodel.OperatorIn,
					Values:    []ldvalue.Value{ldvalue.String("org")},
				},
			},
		},
	}

	multi := ldcontext.NewMulti(ldcontext.New("userkey"), ldcontext.NewWithKind("org", "orgkey"))
	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, multi, nil)
	assert.Equal(t, ldreason.NewEvalReasonRuleMatch(0, "rule-id"), result.Reason)

	result = NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestClauseForSpecificContextKindOnlySeesThatKind(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule-id",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses: []ldmodel.Clause{
				{
					ContextKind: "org",
					Attribute:   ldattr.NewRef(ldattr.KeyAttr),
					Op:          ldmodel.OperatorIn,
					Values:      []ldvalue.Value{ldvalue.String("orgkey")},
				},
			},
		},
	}

	// A user context whose key happens to equal the org key does not match.
	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("orgkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)

	result = NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.NewWithKind("org", "orgkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonRuleMatch(0, "rule-id"), result.Reason)
}

func TestPrerequisiteFailedReasonIfPrerequisiteIsNotFound(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Prerequisites = []ldmodel.Prerequisite{{Key: "prereq", Variation: 1}}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldvalue.Bool(false), result.Value)
	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonPrerequisiteFailed("prereq"), result.Reason)
}

func TestPrerequisiteFailedReasonIfPrerequisiteIsOff(t *testing.T) {
	prereq := twoValueFlag("prereq")
	prereq.On = false
	prereq.OffVariation = intPtr(1)
	flag := twoValueFlag("feature")
	flag.Prerequisites = []ldmodel.Prerequisite{{Key: "prereq", Variation: 1}}

	// Even though the prerequisite's off variation is the desired variation, an off
	// prerequisite always fails.
	var events []PrerequisiteFlagEvent
	recorder := func(e PrerequisiteFlagEvent) { events = append(events, e) }
	provider := (&simpleDataProvider{}).withFlag(prereq)

	result := NewEvaluator(provider).Evaluate(flag, ldcontext.New("userkey"), recorder)

	assert.Equal(t, ldreason.NewEvalReasonPrerequisiteFailed("prereq"), result.Reason)

	require.Len(t, events, 1)
	assert.Equal(t, "feature", events[0].TargetFlagKey)
	assert.Equal(t, prereq, events[0].PrerequisiteFlag)
	assert.Equal(t, 1, events[0].PrerequisiteResult.VariationIndex)
}

func TestPrerequisiteFailedReasonIfPrerequisiteReturnsWrongVariation(t *testing.T) {
	prereq := twoValueFlag("prereq")
	prereq.Fallthrough = ldmodel.VariationOrRollout{Variation: intPtr(0)}
	flag := twoValueFlag("feature")
	flag.Prerequisites = []ldmodel.Prerequisite{{Key: "prereq", Variation: 1}}
	provider := (&simpleDataProvider{}).withFlag(prereq)

	result := NewEvaluator(provider).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.NewEvalReasonPrerequisiteFailed("prereq"), result.Reason)
}

func TestFlagProceedsIfPrerequisiteIsMet(t *testing.T) {
	prereq := twoValueFlag("prereq")
	flag := twoValueFlag("feature")
	flag.Prerequisites = []ldmodel.Prerequisite{{Key: "prereq", Variation: 1}}
	provider := (&simpleDataProvider{}).withFlag(prereq)

	var events []PrerequisiteFlagEvent
	recorder := func(e PrerequisiteFlagEvent) { events = append(events, e) }

	result := NewEvaluator(provider).Evaluate(flag, ldcontext.New("userkey"), recorder)

	assert.Equal(t, ldvalue.Bool(true), result.Value)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)

	require.Len(t, events, 1)
	assert.Equal(t, "feature", events[0].TargetFlagKey)
	assert.Equal(t, ldvalue.Bool(true), events[0].PrerequisiteResult.Value)
}

func TestPrerequisitesAreEvaluatedTransitively(t *testing.T) {
	flag2 := twoValueFlag("flag2")
	flag1 := twoValueFlag("flag1")
	flag1.Prerequisites = []ldmodel.Prerequisite{{Key: "flag2", Variation: 1}}
	flag0 := twoValueFlag("flag0")
	flag0.Prerequisites = []ldmodel.Prerequisite{{Key: "flag1", Variation: 1}}
	provider := (&simpleDataProvider{}).withFlag(flag1).withFlag(flag2)

	var eventKeys []string
	recorder := func(e PrerequisiteFlagEvent) { eventKeys = append(eventKeys, e.PrerequisiteFlag.Key) }

	result := NewEvaluator(provider).Evaluate(flag0, ldcontext.New("userkey"), recorder)

	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
	assert.Equal(t, []string{"flag2", "flag1"}, eventKeys)
}

func TestPrerequisiteCycleProducesMalformedFlagError(t *testing.T) {
	flag0 := twoValueFlag("flag0")
	flag0.Prerequisites = []ldmodel.Prerequisite{{Key: "flag1", Variation: 1}}
	flag1 := twoValueFlag("flag1")
	flag1.Prerequisites = []ldmodel.Prerequisite{{Key: "flag0", Variation: 1}}
	provider := (&simpleDataProvider{}).withFlag(flag0).withFlag(flag1)

	result := NewEvaluator(provider).Evaluate(flag0, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null()), result)
}

func TestRolloutSelectsVariationDeterministically(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Fallthrough = ldmodel.VariationOrRollout{
		Rollout: &ldmodel.Rollout{
			Variations: []ldmodel.WeightedVariation{
				{Variation: 0, Weight: 50000},
				{Variation: 1, Weight: 50000},
			},
		},
	}

	evaluator := NewEvaluator(&simpleDataProvider{})
	first := evaluator.Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), first.Reason)
	assert.Contains(t, []int{0, 1}, first.VariationIndex)
	for i := 0; i < 10; i++ {
		again := evaluator.Evaluate(flag, ldcontext.New("userkey"), nil)
		assert.Equal(t, first.VariationIndex, again.VariationIndex)
	}
}

func TestRolloutWithSingleFullWeightBucketSelectsThatVariation(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Fallthrough = ldmodel.VariationOrRollout{
		Rollout: &ldmodel.Rollout{
			Variations: []ldmodel.WeightedVariation{
				{Variation: 0, Weight: 0},
				{Variation: 1, Weight: 100000},
			},
		},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, 1, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestRolloutUsesLastBucketIfWeightsDoNotAddUp(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Fallthrough = ldmodel.VariationOrRollout{
		Rollout: &ldmodel.Rollout{
			Variations: []ldmodel.WeightedVariation{
				{Variation: 0, Weight: 0},
				{Variation: 1, Weight: 0},
			},
		},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, 1, result.VariationIndex)
}

func TestExperimentRolloutSetsInExperiment(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Fallthrough = ldmodel.VariationOrRollout{
		Rollout: &ldmodel.Rollout{
			Kind: ldmodel.RolloutKindExperiment,
			Variations: []ldmodel.WeightedVariation{
				{Variation: 1, Weight: 100000},
			},
		},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, 1, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonFallthroughExperiment(true), result.Reason)
	assert.True(t, result.Reason.IsInExperiment())
}

func TestExperimentRolloutUntrackedVariationIsNotInExperiment(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Fallthrough = ldmodel.VariationOrRollout{
		Rollout: &ldmodel.Rollout{
			Kind: ldmodel.RolloutKindExperiment,
			Variations: []ldmodel.WeightedVariation{
				{Variation: 1, Weight: 100000, Untracked: true},
			},
		},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, 1, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestRolloutForMissingContextKindUsesFirstBucket(t *testing.T) {
	flag := twoValueFlag("feature")
	flag.Fallthrough = ldmodel.VariationOrRollout{
		Rollout: &ldmodel.Rollout{
			Kind:        ldmodel.RolloutKindExperiment,
			ContextKind: "org",
			Variations: []ldmodel.WeightedVariation{
				{Variation: 0, Weight: 1},
				{Variation: 1, Weight: 99999},
			},
		},
	}

	result := NewEvaluator(&simpleDataProvider{}).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func segmentMatchFlag(segmentKey string) *ldmodel.FeatureFlag {
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule-id",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses: []ldmodel.Clause{
				{Op: ldmodel.OperatorSegmentMatch, Values: []ldvalue.Value{ldvalue.String(segmentKey)}},
			},
		},
	}
	return flag
}

func TestSegmentMatchClauseMatchesIncludedKey(t *testing.T) {
	segment := &ldmodel.Segment{Key: "segkey", Included: []string{"userkey"}, Salt: "salty"}
	provider := (&simpleDataProvider{}).withSegment(segment)

	result := NewEvaluator(provider).Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonRuleMatch(0, "rule-id"), result.Reason)

	result = NewEvaluator(provider).Evaluate(segmentMatchFlag("segkey"), ldcontext.New("other"), nil)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestSegmentMatchClauseMatchesIncludedContextsByKind(t *testing.T) {
	segment := &ldmodel.Segment{
		Key:              "segkey",
		IncludedContexts: []ldmodel.SegmentTarget{{ContextKind: "org", Values: []string{"orgkey"}}},
		Salt:             "salty",
	}
	provider := (&simpleDataProvider{}).withSegment(segment)

	result := NewEvaluator(provider).Evaluate(segmentMatchFlag("segkey"), ldcontext.NewWithKind("org", "orgkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonRuleMatch(0, "rule-id"), result.Reason)

	result = NewEvaluator(provider).Evaluate(segmentMatchFlag("segkey"), ldcontext.New("orgkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestSegmentExcludedKeyOverridesRules(t *testing.T) {
	segment := &ldmodel.Segment{
		Key:      "segkey",
		Excluded: []string{"userkey"},
		Rules: []ldmodel.SegmentRule{
			{Clauses: []ldmodel.Clause{clauseMatchingKey("userkey")}},
		},
		Salt: "salty",
	}
	provider := (&simpleDataProvider{}).withSegment(segment)

	result := NewEvaluator(provider).Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestSegmentRuleWithNoWeightMatchesByClauses(t *testing.T) {
	segment := &ldmodel.Segment{
		Key: "segkey",
		Rules: []ldmodel.SegmentRule{
			{Clauses: []ldmodel.Clause{clauseMatchingKey("userkey")}},
		},
		Salt: "salty",
	}
	provider := (&simpleDataProvider{}).withSegment(segment)

	result := NewEvaluator(provider).Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonRuleMatch(0, "rule-id"), result.Reason)
}

func TestSegmentRuleWithZeroWeightNeverMatches(t *testing.T) {
	segment := &ldmodel.Segment{
		Key: "segkey",
		Rules: []ldmodel.SegmentRule{
			{Clauses: []ldmodel.Clause{clauseMatchingKey("userkey")}, Weight: intPtr(0)},
		},
		Salt: "salty",
	}
	provider := (&simpleDataProvider{}).withSegment(segment)

	result := NewEvaluator(provider).Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func TestSegmentRuleWithFullWeightMatches(t *testing.T) {
	segment := &ldmodel.Segment{
		Key: "segkey",
		Rules: []ldmodel.SegmentRule{
			{Clauses: []ldmodel.Clause{clauseMatchingKey("userkey")}, Weight: intPtr(100000)},
		},
		Salt: "salty",
	}
	provider := (&simpleDataProvider{}).withSegment(segment)

	result := NewEvaluator(provider).Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonRuleMatch(0, "rule-id"), result.Reason)
}

func TestSegmentMatchClauseIgnoresUnknownSegment(t *testing.T) {
	result := NewEvaluator(&simpleDataProvider{}).Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)
	assert.Equal(t, ldreason.NewEvalReasonFallthrough(), result.Reason)
}

func bigSegment(key string, generation *int) *ldmodel.Segment {
	return &ldmodel.Segment{Key: key, Unbounded: true, Generation: generation, Salt: "salty"}
}

func TestBigSegmentMatchWithHealthyStatus(t *testing.T) {
	segment := bigSegment("segkey", intPtr(2))
	provider := (&simpleDataProvider{}).withSegment(segment)
	bigSegments := &mockBigSegmentProvider{
		membership: mockBigSegmentMembership{"segkey.g2": true},
		status:     ldreason.BigSegmentsHealthy,
	}

	result := NewEvaluatorWithBigSegments(provider, bigSegments).
		Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)

	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, ldreason.BigSegmentsHealthy, result.Reason.GetBigSegmentsStatus())
	assert.Equal(t, 1, bigSegments.queryCount)
}

func TestBigSegmentStaleStatusIsReportedEvenOnMatch(t *testing.T) {
	segment := bigSegment("segkey", intPtr(2))
	provider := (&simpleDataProvider{}).withSegment(segment)
	bigSegments := &mockBigSegmentProvider{
		membership: mockBigSegmentMembership{"segkey.g2": true},
		status:     ldreason.BigSegmentsStale,
	}

	result := NewEvaluatorWithBigSegments(provider, bigSegments).
		Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)

	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, ldreason.BigSegmentsStale, result.Reason.GetBigSegmentsStatus())
}

func TestBigSegmentExplicitExclusionWins(t *testing.T) {
	segment := bigSegment("segkey", intPtr(2))
	segment.Rules = []ldmodel.SegmentRule{
		{Clauses: []ldmodel.Clause{clauseMatchingKey("userkey")}},
	}
	provider := (&simpleDataProvider{}).withSegment(segment)
	bigSegments := &mockBigSegmentProvider{
		membership: mockBigSegmentMembership{"segkey.g2": false},
		status:     ldreason.BigSegmentsHealthy,
	}

	result := NewEvaluatorWithBigSegments(provider, bigSegments).
		Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.EvalReasonFallthrough, result.Reason.GetKind())
	assert.Equal(t, ldreason.BigSegmentsHealthy, result.Reason.GetBigSegmentsStatus())
}

func TestBigSegmentFallsBackToRulesWhenStoreHasNoAnswer(t *testing.T) {
	segment := bigSegment("segkey", intPtr(2))
	segment.Rules = []ldmodel.SegmentRule{
		{Clauses: []ldmodel.Clause{clauseMatchingKey("userkey")}},
	}
	provider := (&simpleDataProvider{}).withSegment(segment)
	bigSegments := &mockBigSegmentProvider{
		membership: mockBigSegmentMembership{},
		status:     ldreason.BigSegmentsHealthy,
	}

	result := NewEvaluatorWithBigSegments(provider, bigSegments).
		Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)

	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, ldreason.BigSegmentsHealthy, result.Reason.GetBigSegmentsStatus())
}

func TestBigSegmentWithoutGenerationIsNotConfigured(t *testing.T) {
	segment := bigSegment("segkey", nil)
	provider := (&simpleDataProvider{}).withSegment(segment)
	bigSegments := &mockBigSegmentProvider{
		membership: mockBigSegmentMembership{"segkey.g0": true},
		status:     ldreason.BigSegmentsHealthy,
	}

	result := NewEvaluatorWithBigSegments(provider, bigSegments).
		Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.BigSegmentsNotConfigured, result.Reason.GetBigSegmentsStatus())
	assert.Equal(t, 0, bigSegments.queryCount)
}

func TestBigSegmentWithoutProviderIsNotConfigured(t *testing.T) {
	segment := bigSegment("segkey", intPtr(2))
	provider := (&simpleDataProvider{}).withSegment(segment)

	result := NewEvaluator(provider).Evaluate(segmentMatchFlag("segkey"), ldcontext.New("userkey"), nil)

	assert.Equal(t, ldreason.BigSegmentsNotConfigured, result.Reason.GetBigSegmentsStatus())
}

func TestBigSegmentMembershipIsQueriedOnlyOncePerContextKey(t *testing.T) {
	segment1 := bigSegment("seg1", intPtr(1))
	segment2 := bigSegment("seg2", intPtr(1))
	flag := twoValueFlag("feature")
	flag.Rules = []ldmodel.FlagRule{
		{
			ID:                 "rule-id",
			VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			Clauses: []ldmodel.Clause{
				{Op: ldmodel.OperatorSegmentMatch, Values: []ldvalue.Value{ldvalue.String("seg1")}},
				{Op: ldmodel.OperatorSegmentMatch, Values: []ldvalue.Value{ldvalue.String("seg2")}},
			},
		},
	}
	provider := (&simpleDataProvider{}).withSegment(segment1).withSegment(segment2)
	bigSegments := &mockBigSegmentProvider{
		membership: mockBigSegmentMembership{"seg1.g1": true, "seg2.g1": true},
		status:     ldreason.BigSegmentsHealthy,
	}

	result := NewEvaluatorWithBigSegments(provider, bigSegments).Evaluate(flag, ldcontext.New("userkey"), nil)

	assert.Equal(t, 0, result.VariationIndex)
	assert.Equal(t, 1, bigSegments.queryCount)
}

func TestMakeBigSegmentRef(t *testing.T) {
	assert.Equal(t, "segkey.g0", MakeBigSegmentRef(&ldmodel.Segment{Key: "segkey"}))
	assert.Equal(t, "segkey.g3", MakeBigSegmentRef(&ldmodel.Segment{Key: "segkey", Generation: intPtr(3)}))
}
