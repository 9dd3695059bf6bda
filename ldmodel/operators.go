package ldmodel

// Operator describes an operator for a clause in a flag rule or segment rule.
type Operator string

const (
	// OperatorIn matches a context attribute that is exactly equal to any clause value.
	OperatorIn Operator = "in"
	// OperatorEndsWith matches a string attribute that ends with any clause value.
	OperatorEndsWith Operator = "endsWith"
	// OperatorStartsWith matches a string attribute that starts with any clause value.
	OperatorStartsWith Operator = "startsWith"
	// OperatorMatches matches a string attribute against any clause value treated as a
	// regular expression.
	OperatorMatches Operator = "matches"
	// OperatorContains matches a string attribute that contains any clause value.
	OperatorContains Operator = "contains"
	// OperatorLessThan matches a numeric attribute that is less than any clause value.
	OperatorLessThan Operator = "lessThan"
	// OperatorLessThanOrEqual matches a numeric attribute that is less than or equal to
	// any clause value.
	OperatorLessThanOrEqual Operator = "lessThanOrEqual"
	// OperatorGreaterThan matches a numeric attribute that is greater than any clause value.
	OperatorGreaterThan Operator = "greaterThan"
	// OperatorGreaterThanOrEqual matches a numeric attribute that is greater than or equal
	// to any clause value.
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	// OperatorBefore matches an attribute that is a timestamp earlier than any clause value.
	OperatorBefore Operator = "before"
	// OperatorAfter matches an attribute that is a timestamp later than any clause value.
	OperatorAfter Operator = "after"
	// OperatorSegmentMatch matches a context that is a member of any segment named by the
	// clause values. This operator is handled by the evaluator, not by the value-level
	// matching in this package.
	OperatorSegmentMatch Operator = "segmentMatch"
	// OperatorSemVerEqual matches an attribute that is a semantic version equal to any
	// clause value.
	OperatorSemVerEqual Operator = "semVerEqual"
	// OperatorSemVerLessThan matches an attribute that is a semantic version lower than
	// any clause value.
	OperatorSemVerLessThan Operator = "semVerLessThan"
	// OperatorSemVerGreaterThan matches an attribute that is a semantic version higher
	// than any clause value.
	OperatorSemVerGreaterThan Operator = "semVerGreaterThan"
)

// Name returns the string value of the operator.
func (op Operator) Name() string {
	return string(op)
}
