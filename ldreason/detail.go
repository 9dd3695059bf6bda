package ldreason

import "github.com/flagmill/go-server-sdk/ldvalue"

// NoVariation is the VariationIndex value used when the evaluation did not select any of
// the flag's variations, such as when an error occurred or the flag had no off variation.
const NoVariation = -1

// EvaluationDetail is an object returned by the "detail" evaluation methods, combining
// the result of a flag evaluation with an explanation of how it was calculated.
type EvaluationDetail struct {
	// Value is the result of the flag evaluation. This will be either one of the flag's
	// variations or the default value that was passed to the evaluation method.
	Value ldvalue.Value
	// VariationIndex is the index of the returned value within the flag's list of
	// variations, or NoVariation if the default value was returned.
	VariationIndex int
	// Reason describes the main factor that influenced the flag evaluation value.
	Reason EvaluationReason
}

// NewEvaluationDetail constructs an EvaluationDetail, specifying all fields.
func NewEvaluationDetail(
	value ldvalue.Value,
	variationIndex int,
	reason EvaluationReason,
) EvaluationDetail {
	return EvaluationDetail{Value: value, VariationIndex: variationIndex, Reason: reason}
}

// NewEvaluationDetailForError constructs an EvaluationDetail for an error condition.
func NewEvaluationDetailForError(errorKind EvalErrorKind, defaultValue ldvalue.Value) EvaluationDetail {
	return EvaluationDetail{
		Value:          defaultValue,
		VariationIndex: NoVariation,
		Reason:         NewEvalReasonError(errorKind),
	}
}

// IsDefaultValue returns true if the result of the evaluation was the default value,
// rather than one of the flag's variations.
func (d EvaluationDetail) IsDefaultValue() bool {
	return d.VariationIndex == NoVariation
}
