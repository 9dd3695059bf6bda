package evaluation

import (
	"github.com/flagmill/go-server-sdk/ldattr"
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldmodel"
	"github.com/flagmill/go-server-sdk/ldreason"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// maxSegmentRuleDepth is the limit on how many levels of segmentMatch clauses inside
// segment rules may be nested before evaluation fails. Segment data is not supposed to be
// self-referential at all, but the limit keeps a broken configuration from recursing
// forever.
const maxSegmentRuleDepth = 20

type evaluator struct {
	dataProvider       DataProvider
	bigSegmentProvider BigSegmentProvider
}

// NewEvaluator creates an Evaluator, specifying a DataProvider that it will use if it
// needs to query additional feature flags or segments during an evaluation.
func NewEvaluator(dataProvider DataProvider) Evaluator {
	return &evaluator{dataProvider: dataProvider}
}

// NewEvaluatorWithBigSegments creates an Evaluator that can also query Big Segment
// membership. Without a BigSegmentProvider, any flag that references a Big Segment
// evaluates with a bigSegmentsStatus of NOT_CONFIGURED.
func NewEvaluatorWithBigSegments(
	dataProvider DataProvider,
	bigSegmentProvider BigSegmentProvider,
) Evaluator {
	return &evaluator{dataProvider: dataProvider, bigSegmentProvider: bigSegmentProvider}
}

// Used internally to hold the parameters and accumulated side effects of an evaluation,
// to avoid repetitive parameter passing. Its methods use a pointer receiver for
// efficiency, even though it is allocated on the stack.
type evaluationScope struct {
	owner                         *evaluator
	context                       ldcontext.Context
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder
	prereqFlagChain               []string
	segmentDepth                  int
	bigSegmentsReferenced         bool
	bigSegmentsStatus             ldreason.BigSegmentsStatus
	bigSegmentsMemberships        map[string]BigSegmentMembership
}

func (e *evaluator) Evaluate(
	flag *ldmodel.FeatureFlag,
	context ldcontext.Context,
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
) ldreason.EvaluationDetail {
	if context.Err() != nil {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorUserNotSpecified, ldvalue.Null())
	}
	es := evaluationScope{
		owner:                         e,
		context:                       context,
		prerequisiteFlagEventRecorder: prerequisiteFlagEventRecorder,
	}
	detail, ok := es.evaluateFlag(flag)
	if !ok {
		detail = ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())
	}
	if es.bigSegmentsReferenced {
		detail.Reason = ldreason.NewEvalReasonFromReasonWithBigSegmentsStatus(detail.Reason, es.bigSegmentsStatus)
	}
	return detail
}

// evaluateFlag applies the evaluation algorithm to one flag. The second return value is
// false if the flag data was malformed, in which case the result is discarded and the
// whole evaluation produces a MALFORMED_FLAG error.
func (es *evaluationScope) evaluateFlag(flag *ldmodel.FeatureFlag) (ldreason.EvaluationDetail, bool) {
	if !flag.On {
		return es.getOffValue(flag, ldreason.NewEvalReasonOff()), true
	}

	prereqErrorReason, ok := es.checkPrerequisites(flag)
	if !ok {
		return ldreason.EvaluationDetail{}, false
	}
	if prereqErrorReason.IsDefined() {
		return es.getOffValue(flag, prereqErrorReason), true
	}

	if detail, found := es.checkTargets(flag); found {
		return detail, true
	}

	for ruleIndex, rule := range flag.Rules {
		matched, ok := es.ruleMatchesContext(&rule) //nolint:gosec // rule ptr does not escape the loop
		if !ok {
			return ldreason.EvaluationDetail{}, false
		}
		if matched {
			reason := ldreason.NewEvalReasonRuleMatch(ruleIndex, rule.ID)
			return es.getValueForVariationOrRollout(flag, rule.VariationOrRollout, reason)
		}
	}

	return es.getValueForVariationOrRollout(flag, flag.Fallthrough, ldreason.NewEvalReasonFallthrough())
}

// checkPrerequisites returns an empty reason if all prerequisites are met; otherwise it
// constructs an error reason that describes the failure. The second return value is false
// for a malformed flag (a prerequisite cycle).
func (es *evaluationScope) checkPrerequisites(flag *ldmodel.FeatureFlag) (ldreason.EvaluationReason, bool) {
	if len(flag.Prerequisites) == 0 {
		return ldreason.EvaluationReason{}, true
	}

	for _, key := range es.prereqFlagChain {
		if key == flag.Key {
			// A cycle in prerequisite data; it can only come from a badly malformed
			// environment, and continuing would recurse until the stack overflowed.
			return ldreason.EvaluationReason{}, false
		}
	}
	es.prereqFlagChain = append(es.prereqFlagChain, flag.Key)
	defer func() {
		es.prereqFlagChain = es.prereqFlagChain[:len(es.prereqFlagChain)-1]
	}()

	for _, prereq := range flag.Prerequisites {
		prereqFeatureFlag := es.owner.dataProvider.GetFeatureFlag(prereq.Key)
		if prereqFeatureFlag == nil {
			return ldreason.NewEvalReasonPrerequisiteFailed(prereq.Key), true
		}

		prereqResult, ok := es.evaluateFlag(prereqFeatureFlag)
		if !ok {
			return ldreason.EvaluationReason{}, false
		}
		// Note that if the prerequisite flag is off, we don't consider it a match no
		// matter what its off variation was. But we still evaluated it, in order to
		// generate an event.
		prereqOK := prereqFeatureFlag.On && !prereqResult.IsDefaultValue() &&
			prereqResult.VariationIndex == prereq.Variation

		if es.prerequisiteFlagEventRecorder != nil {
			event := PrerequisiteFlagEvent{flag.Key, es.context, prereqFeatureFlag, prereqResult}
			es.prerequisiteFlagEventRecorder(event)
		}

		if !prereqOK {
			return ldreason.NewEvalReasonPrerequisiteFailed(prereq.Key), true
		}
	}
	return ldreason.EvaluationReason{}, true
}

// checkTargets looks for an individual targeting match. The old-schema Targets lists
// apply to the default context kind; ContextTargets entries for the default kind carry
// only a variation and defer to the corresponding Targets list for the keys.
func (es *evaluationScope) checkTargets(flag *ldmodel.FeatureFlag) (ldreason.EvaluationDetail, bool) {
	if len(flag.ContextTargets) == 0 {
		if len(flag.Targets) != 0 {
			if userContext, ok := es.context.IndividualContextByKind(ldcontext.DefaultKind); ok {
				for _, t := range flag.Targets {
					if targetContainsKey(&t, userContext.Key()) { //nolint:gosec
						return es.getVariation(flag, t.Variation, ldreason.NewEvalReasonTargetMatch()), true
					}
				}
			}
		}
		return ldreason.EvaluationDetail{}, false
	}
	for _, t := range flag.ContextTargets {
		kind := t.ContextKind
		if kind == "" {
			kind = ldcontext.DefaultKind
		}
		actualContext, ok := es.context.IndividualContextByKind(kind)
		if !ok {
			continue
		}
		if kind == ldcontext.DefaultKind {
			for _, ut := range flag.Targets {
				if ut.Variation == t.Variation {
					if targetContainsKey(&ut, actualContext.Key()) { //nolint:gosec
						return es.getVariation(flag, t.Variation, ldreason.NewEvalReasonTargetMatch()), true
					}
					break
				}
			}
			continue
		}
		if targetContainsKey(&t, actualContext.Key()) { //nolint:gosec
			return es.getVariation(flag, t.Variation, ldreason.NewEvalReasonTargetMatch()), true
		}
	}
	return ldreason.EvaluationDetail{}, false
}

func targetContainsKey(t *ldmodel.Target, key string) bool {
	for _, value := range t.Values {
		if value == key {
			return true
		}
	}
	return false
}

func (es *evaluationScope) getVariation(
	flag *ldmodel.FeatureFlag,
	index int,
	reason ldreason.EvaluationReason,
) ldreason.EvaluationDetail {
	if index < 0 || index >= len(flag.Variations) {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())
	}
	return ldreason.NewEvaluationDetail(flag.Variations[index], index, reason)
}

func (es *evaluationScope) getOffValue(
	flag *ldmodel.FeatureFlag,
	reason ldreason.EvaluationReason,
) ldreason.EvaluationDetail {
	if flag.OffVariation == nil {
		return ldreason.NewEvaluationDetail(ldvalue.Null(), ldreason.NoVariation, reason)
	}
	return es.getVariation(flag, *flag.OffVariation, reason)
}

func (es *evaluationScope) getValueForVariationOrRollout(
	flag *ldmodel.FeatureFlag,
	vr ldmodel.VariationOrRollout,
	reason ldreason.EvaluationReason,
) (ldreason.EvaluationDetail, bool) {
	index, inExperiment, ok := es.variationIndexForContext(vr, flag.Key, flag.Salt)
	if !ok {
		return ldreason.EvaluationDetail{}, false
	}
	if inExperiment {
		reason = reasonWithInExperiment(reason)
	}
	return es.getVariation(flag, index, reason), true
}

func reasonWithInExperiment(reason ldreason.EvaluationReason) ldreason.EvaluationReason {
	switch reason.GetKind() {
	case ldreason.EvalReasonFallthrough:
		return ldreason.NewEvalReasonFallthroughExperiment(true)
	case ldreason.EvalReasonRuleMatch:
		return ldreason.NewEvalReasonRuleMatchExperiment(reason.GetRuleIndex(), reason.GetRuleID(), true)
	default:
		return reason
	}
}

func (es *evaluationScope) ruleMatchesContext(rule *ldmodel.FlagRule) (bool, bool) {
	for _, clause := range rule.Clauses {
		matched, ok := es.clauseMatchesContext(&clause) //nolint:gosec // clause ptr does not escape the loop
		if !ok {
			return false, false
		}
		if !matched {
			return false, true
		}
	}
	return true, true
}

// clauseMatchesContext tests one clause. The second return value is false for malformed
// data (an invalid attribute reference).
func (es *evaluationScope) clauseMatchesContext(clause *ldmodel.Clause) (bool, bool) {
	if clause.Op == ldmodel.OperatorSegmentMatch {
		for _, value := range clause.Values {
			if value.Type() != ldvalue.StringType {
				continue
			}
			segment := es.owner.dataProvider.GetSegment(value.StringValue())
			if segment == nil {
				continue
			}
			matched, ok := es.segmentContainsContext(segment)
			if !ok {
				return false, false
			}
			if matched {
				return maybeNegate(clause, true), true
			}
		}
		return maybeNegate(clause, false), true
	}

	if err := clause.Attribute.Err(); err != nil {
		return false, false
	}
	if clause.Attribute.Depth() == 1 && clause.Attribute.Component(0) == ldattr.KindAttr {
		// A clause on the "kind" attribute is tested against every kind in the context.
		return maybeNegate(clause, es.clauseMatchesAnyContextKind(clause)), true
	}
	actualContext, ok := es.context.IndividualContextByKind(clause.ContextKind)
	if !ok {
		return false, true
	}
	contextValue := actualContext.GetValueForRef(clause.Attribute)
	if contextValue.IsNull() {
		// A missing attribute is a non-match regardless of Negate.
		return false, true
	}

	if contextValue.Type() == ldvalue.ArrayType {
		for i := 0; i < contextValue.Count(); i++ {
			if ldmodel.ClauseMatchesValue(clause, contextValue.GetByIndex(i)) {
				return maybeNegate(clause, true), true
			}
		}
		return maybeNegate(clause, false), true
	}
	return maybeNegate(clause, ldmodel.ClauseMatchesValue(clause, contextValue)), true
}

func (es *evaluationScope) clauseMatchesAnyContextKind(clause *ldmodel.Clause) bool {
	for i := 0; i < es.context.IndividualContextCount(); i++ {
		if c, ok := es.context.IndividualContextByIndex(i); ok {
			if ldmodel.ClauseMatchesValue(clause, ldvalue.String(string(c.Kind()))) {
				return true
			}
		}
	}
	return false
}

func maybeNegate(clause *ldmodel.Clause, value bool) bool {
	if clause.Negate {
		return !value
	}
	return value
}
