package evaluation

import (
	"strconv"

	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldmodel"
	"github.com/flagmill/go-server-sdk/ldreason"
)

// segmentContainsContext tests whether the context is in the segment. The second return
// value is false for malformed data (attribute reference errors or excessive recursion).
func (es *evaluationScope) segmentContainsContext(segment *ldmodel.Segment) (bool, bool) {
	if es.segmentDepth >= maxSegmentRuleDepth {
		return false, false
	}
	es.segmentDepth++
	defer func() { es.segmentDepth-- }()

	if segment.Unbounded {
		return es.bigSegmentContainsContext(segment)
	}
	return es.simpleSegmentContainsContext(segment, true)
}

func (es *evaluationScope) simpleSegmentContainsContext(
	segment *ldmodel.Segment,
	useIncludesAndExcludes bool,
) (bool, bool) {
	if useIncludesAndExcludes {
		if es.contextKeyIsInTargetList("", segment.Included) {
			return true, true
		}
		for _, t := range segment.IncludedContexts {
			if es.contextKeyIsInTargetList(t.ContextKind, t.Values) {
				return true, true
			}
		}
		if es.contextKeyIsInTargetList("", segment.Excluded) {
			return false, true
		}
		for _, t := range segment.ExcludedContexts {
			if es.contextKeyIsInTargetList(t.ContextKind, t.Values) {
				return false, true
			}
		}
	}
	for _, rule := range segment.Rules {
		matched, ok := es.segmentRuleMatchesContext(&rule, segment.Key, segment.Salt) //nolint:gosec
		if !ok {
			return false, false
		}
		if matched {
			return true, true
		}
	}
	return false, true
}

func (es *evaluationScope) contextKeyIsInTargetList(kind ldcontext.Kind, keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	matchContext, ok := es.context.IndividualContextByKind(kind)
	if !ok {
		return false
	}
	for _, key := range keys {
		if key == matchContext.Key() {
			return true
		}
	}
	return false
}

func (es *evaluationScope) segmentRuleMatchesContext(
	rule *ldmodel.SegmentRule,
	key, salt string,
) (bool, bool) {
	for _, clause := range rule.Clauses {
		matched, ok := es.clauseMatchesContext(&clause) //nolint:gosec
		if !ok || !matched {
			return false, ok
		}
	}

	// If the Weight is absent, this rule matches.
	if rule.Weight == nil {
		return true, true
	}

	// All of the clauses are met. Check to see if the context buckets in.
	bucket, _ := es.computeBucketValue(nil, rule.RolloutContextKind, key, rule.BucketBy, salt)
	weight := float32(*rule.Weight) / 100000.0
	return bucket < weight, true
}

// bigSegmentContainsContext handles segments whose membership is kept in a Big Segment
// store. The result of the store query is memoized per context key for the duration of
// the evaluation, and its status is surfaced in the evaluation reason.
func (es *evaluationScope) bigSegmentContainsContext(segment *ldmodel.Segment) (bool, bool) {
	if segment.Generation == nil {
		// Big Segment queries can only be done if the generation is known. If it's unset,
		// the store was populated by a data source that doesn't support Big Segments and
		// dropped the property; we treat that as a "not configured" condition.
		es.recordBigSegmentsStatus(ldreason.BigSegmentsNotConfigured)
		return false, true
	}

	// A Big Segment can only apply to one context kind, so if the context has no key for
	// that kind, there is no need to query the store at all.
	matchContext, ok := es.context.IndividualContextByKind(segment.UnboundedContextKind)
	if !ok {
		return false, true
	}
	key := matchContext.Key()

	membership, haveMembership := es.bigSegmentsMemberships[key]
	if !haveMembership {
		if es.owner.bigSegmentProvider == nil {
			es.recordBigSegmentsStatus(ldreason.BigSegmentsNotConfigured)
			return false, true
		}
		var status ldreason.BigSegmentsStatus
		membership, status = es.owner.bigSegmentProvider.GetBigSegmentMembership(key)
		// Note that this query is only by key; the context kind does not matter, because
		// any given Big Segment can only reference one context kind, so there is no
		// ambiguity in storing memberships for different kinds under the same key.
		if es.bigSegmentsMemberships == nil {
			es.bigSegmentsMemberships = make(map[string]BigSegmentMembership)
		}
		es.bigSegmentsMemberships[key] = membership
		es.recordBigSegmentsStatus(status)
	}
	if membership != nil {
		if included, found := membership.CheckMembership(MakeBigSegmentRef(segment)); found {
			return included, true
		}
	}
	return es.simpleSegmentContainsContext(segment, false)
}

// recordBigSegmentsStatus merges a status into the evaluation state, keeping the worst
// status seen so far (errors take precedence over staleness, staleness over health).
func (es *evaluationScope) recordBigSegmentsStatus(status ldreason.BigSegmentsStatus) {
	if !es.bigSegmentsReferenced || statusPrecedence(status) > statusPrecedence(es.bigSegmentsStatus) {
		es.bigSegmentsStatus = status
	}
	es.bigSegmentsReferenced = true
}

func statusPrecedence(status ldreason.BigSegmentsStatus) int {
	switch status {
	case ldreason.BigSegmentsHealthy:
		return 1
	case ldreason.BigSegmentsStale:
		return 2
	case ldreason.BigSegmentsNotConfigured:
		return 3
	case ldreason.BigSegmentsStoreError:
		return 4
	default:
		return 0
	}
}

// MakeBigSegmentRef produces the key that Big Segment memberships are listed under in a
// Big Segment store. The format is independent of the store implementation; whatever
// populates the store uses the same format.
func MakeBigSegmentRef(segment *ldmodel.Segment) string {
	generation := 0
	if segment.Generation != nil {
		generation = *segment.Generation
	}
	return segment.Key + ".g" + strconv.Itoa(generation)
}
