// Package ldreason provides types that describe the outcome of a flag evaluation.
package ldreason

import (
	"encoding/json"
	"fmt"
)

// EvalReasonKind defines the possible values of the Kind property of EvaluationReason.
type EvalReasonKind string

const (
	// EvalReasonOff indicates that the flag was off and therefore returned its configured
	// off value.
	EvalReasonOff EvalReasonKind = "OFF"
	// EvalReasonFallthrough indicates that the flag was on but the context did not match
	// any targets or rules.
	EvalReasonFallthrough EvalReasonKind = "FALLTHROUGH"
	// EvalReasonTargetMatch indicates that the context key was specifically targeted for
	// this flag.
	EvalReasonTargetMatch EvalReasonKind = "TARGET_MATCH"
	// EvalReasonRuleMatch indicates that the context matched one of the flag's rules.
	EvalReasonRuleMatch EvalReasonKind = "RULE_MATCH"
	// EvalReasonPrerequisiteFailed indicates that the flag was considered off because it
	// had at least one prerequisite flag that either was off or did not return the desired
	// variation.
	EvalReasonPrerequisiteFailed EvalReasonKind = "PREREQUISITE_FAILED"
	// EvalReasonError indicates that the flag could not be evaluated, e.g. because it does
	// not exist or due to an unexpected error. In this case the result value will be the
	// default value that the caller passed to the client.
	EvalReasonError EvalReasonKind = "ERROR"
)

// EvalErrorKind defines the possible values of the ErrorKind property of an
// EvaluationReason of kind EvalReasonError.
type EvalErrorKind string

const (
	// EvalErrorClientNotReady indicates that the caller tried to evaluate a flag before
	// the client had successfully initialized.
	EvalErrorClientNotReady EvalErrorKind = "CLIENT_NOT_READY"
	// EvalErrorFlagNotFound indicates that the caller provided a flag key that did not
	// match any known flag.
	EvalErrorFlagNotFound EvalErrorKind = "FLAG_NOT_FOUND"
	// EvalErrorMalformedFlag indicates that there was an internal inconsistency in the
	// flag data, e.g. a rule specified a nonexistent variation.
	EvalErrorMalformedFlag EvalErrorKind = "MALFORMED_FLAG"
	// EvalErrorUserNotSpecified indicates that the caller passed an invalid or
	// uninitialized evaluation context.
	EvalErrorUserNotSpecified EvalErrorKind = "USER_NOT_SPECIFIED"
	// EvalErrorWrongType indicates that the result value was not of the requested type,
	// e.g. you called BoolVariation but the flag value was a string.
	EvalErrorWrongType EvalErrorKind = "WRONG_TYPE"
	// EvalErrorException indicates that an unexpected error stopped flag evaluation.
	EvalErrorException EvalErrorKind = "EXCEPTION"
)

// BigSegmentsStatus defines the possible values of GetBigSegmentsStatus. "Big Segments"
// are a specific kind of segment whose membership data is queried from an external store
// rather than carried in the streamed flag data.
type BigSegmentsStatus string

const (
	// BigSegmentsHealthy indicates that the Big Segment query involved in the flag
	// evaluation was successful, and the segment state is considered up to date.
	BigSegmentsHealthy BigSegmentsStatus = "HEALTHY"
	// BigSegmentsStale indicates that the Big Segment query involved in the flag
	// evaluation was successful, but the segment state may not be up to date.
	BigSegmentsStale BigSegmentsStatus = "STALE"
	// BigSegmentsNotConfigured indicates that Big Segments could not be queried for the
	// flag evaluation because the SDK configuration did not include a Big Segment store.
	BigSegmentsNotConfigured BigSegmentsStatus = "NOT_CONFIGURED"
	// BigSegmentsStoreError indicates that the Big Segment query involved in the flag
	// evaluation failed, for instance due to a database error.
	BigSegmentsStoreError BigSegmentsStatus = "STORE_ERROR"
)

// EvaluationReason describes the reason that a flag evaluation produced a particular
// value. The zero value is an empty reason with no Kind.
type EvaluationReason struct {
	kind              EvalReasonKind
	ruleIndex         int
	ruleID            string
	prerequisiteKey   string
	errorKind         EvalErrorKind
	inExperiment      bool
	bigSegmentsStatus BigSegmentsStatus
}

// IsDefined returns true if the reason has a non-empty Kind.
func (r EvaluationReason) IsDefined() bool {
	return r.kind != ""
}

// GetKind describes the general category of the reason.
func (r EvaluationReason) GetKind() EvalReasonKind {
	return r.kind
}

// GetRuleIndex provides the index of the rule that was matched (0 for the first), if
// the Kind is EvalReasonRuleMatch. Otherwise it returns -1.
func (r EvaluationReason) GetRuleIndex() int {
	if r.kind == EvalReasonRuleMatch {
		return r.ruleIndex
	}
	return -1
}

// GetRuleID provides the unique identifier of the rule that was matched, if the Kind is
// EvalReasonRuleMatch.
func (r EvaluationReason) GetRuleID() string {
	return r.ruleID
}

// GetPrerequisiteKey provides the flag key of the prerequisite that failed, if the Kind
// is EvalReasonPrerequisiteFailed.
func (r EvaluationReason) GetPrerequisiteKey() string {
	return r.prerequisiteKey
}

// GetErrorKind describes the type of error, if the Kind is EvalReasonError.
func (r EvaluationReason) GetErrorKind() EvalErrorKind {
	return r.errorKind
}

// IsInExperiment returns true if the flag variation was determined by an experiment
// rollout for which events should always be tracked.
func (r EvaluationReason) IsInExperiment() bool {
	return r.inExperiment
}

// GetBigSegmentsStatus describes the validity of Big Segment information, if and only if
// the evaluation involved a Big Segment.
func (r EvaluationReason) GetBigSegmentsStatus() BigSegmentsStatus {
	return r.bigSegmentsStatus
}

// String returns a concise string representation of the reason. This is the fmt.Stringer
// method.
func (r EvaluationReason) String() string {
	switch r.kind {
	case EvalReasonRuleMatch:
		return fmt.Sprintf("%s(%d,%s)", r.kind, r.ruleIndex, r.ruleID)
	case EvalReasonPrerequisiteFailed:
		return fmt.Sprintf("%s(%s)", r.kind, r.prerequisiteKey)
	case EvalReasonError:
		return fmt.Sprintf("%s(%s)", r.kind, r.errorKind)
	default:
		return string(r.GetKind())
	}
}

// NewEvalReasonOff returns an EvaluationReason whose Kind is EvalReasonOff.
func NewEvalReasonOff() EvaluationReason {
	return EvaluationReason{kind: EvalReasonOff}
}

// NewEvalReasonFallthrough returns an EvaluationReason whose Kind is EvalReasonFallthrough.
func NewEvalReasonFallthrough() EvaluationReason {
	return EvaluationReason{kind: EvalReasonFallthrough}
}

// NewEvalReasonFallthroughExperiment returns an EvaluationReason whose Kind is
// EvalReasonFallthrough, with the inExperiment flag set as specified.
func NewEvalReasonFallthroughExperiment(inExperiment bool) EvaluationReason {
	return EvaluationReason{kind: EvalReasonFallthrough, inExperiment: inExperiment}
}

// NewEvalReasonTargetMatch returns an EvaluationReason whose Kind is EvalReasonTargetMatch.
func NewEvalReasonTargetMatch() EvaluationReason {
	return EvaluationReason{kind: EvalReasonTargetMatch}
}

// NewEvalReasonRuleMatch returns an EvaluationReason whose Kind is EvalReasonRuleMatch.
func NewEvalReasonRuleMatch(ruleIndex int, ruleID string) EvaluationReason {
	return EvaluationReason{kind: EvalReasonRuleMatch, ruleIndex: ruleIndex, ruleID: ruleID}
}

// NewEvalReasonRuleMatchExperiment returns an EvaluationReason whose Kind is
// EvalReasonRuleMatch, with the inExperiment flag set as specified.
func NewEvalReasonRuleMatchExperiment(ruleIndex int, ruleID string, inExperiment bool) EvaluationReason {
	return EvaluationReason{kind: EvalReasonRuleMatch, ruleIndex: ruleIndex, ruleID: ruleID,
		inExperiment: inExperiment}
}

// NewEvalReasonPrerequisiteFailed returns an EvaluationReason whose Kind is
// EvalReasonPrerequisiteFailed.
func NewEvalReasonPrerequisiteFailed(prereqKey string) EvaluationReason {
	return EvaluationReason{kind: EvalReasonPrerequisiteFailed, prerequisiteKey: prereqKey}
}

// NewEvalReasonError returns an EvaluationReason whose Kind is EvalReasonError.
func NewEvalReasonError(errorKind EvalErrorKind) EvaluationReason {
	return EvaluationReason{kind: EvalReasonError, errorKind: errorKind}
}

// NewEvalReasonFromReasonWithBigSegmentsStatus returns a copy of a reason with the
// bigSegmentsStatus property set.
func NewEvalReasonFromReasonWithBigSegmentsStatus(
	reason EvaluationReason,
	status BigSegmentsStatus,
) EvaluationReason {
	reason.bigSegmentsStatus = status
	return reason
}

type evaluationReasonJSON struct {
	Kind              EvalReasonKind    `json:"kind"`
	RuleIndex         *int              `json:"ruleIndex,omitempty"`
	RuleID            string            `json:"ruleId,omitempty"`
	PrerequisiteKey   string            `json:"prerequisiteKey,omitempty"`
	ErrorKind         EvalErrorKind     `json:"errorKind,omitempty"`
	InExperiment      bool              `json:"inExperiment,omitempty"`
	BigSegmentsStatus BigSegmentsStatus `json:"bigSegmentsStatus,omitempty"`
}

// MarshalJSON implements custom JSON serialization for EvaluationReason.
func (r EvaluationReason) MarshalJSON() ([]byte, error) {
	if !r.IsDefined() {
		return []byte("null"), nil
	}
	out := evaluationReasonJSON{
		Kind:              r.kind,
		RuleID:            r.ruleID,
		PrerequisiteKey:   r.prerequisiteKey,
		ErrorKind:         r.errorKind,
		InExperiment:      r.inExperiment,
		BigSegmentsStatus: r.bigSegmentsStatus,
	}
	if r.kind == EvalReasonRuleMatch {
		index := r.ruleIndex
		out.RuleIndex = &index
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements custom JSON deserialization for EvaluationReason.
func (r *EvaluationReason) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = EvaluationReason{}
		return nil
	}
	var in evaluationReasonJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = EvaluationReason{
		kind:              in.Kind,
		ruleID:            in.RuleID,
		prerequisiteKey:   in.PrerequisiteKey,
		errorKind:         in.ErrorKind,
		inExperiment:      in.InExperiment,
		bigSegmentsStatus: in.BigSegmentsStatus,
	}
	if in.RuleIndex != nil {
		r.ruleIndex = *in.RuleIndex
	}
	return nil
}
