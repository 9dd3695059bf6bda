package ldmodel

import (
	"regexp"
	"strings"
	"time"

	"github.com/flagmill/go-server-sdk/ldvalue"
)

type opFn func(contextValue, clauseValue ldvalue.Value) bool

var allOperatorFns = map[Operator]opFn{
	OperatorIn:                 operatorInFn,
	OperatorEndsWith:           stringOperator(strings.HasSuffix),
	OperatorStartsWith:         stringOperator(strings.HasPrefix),
	OperatorMatches:            operatorMatchesFn,
	OperatorContains:           stringOperator(strings.Contains),
	OperatorLessThan:           numericOperator(func(a, b float64) bool { return a < b }),
	OperatorLessThanOrEqual:    numericOperator(func(a, b float64) bool { return a <= b }),
	OperatorGreaterThan:        numericOperator(func(a, b float64) bool { return a > b }),
	OperatorGreaterThanOrEqual: numericOperator(func(a, b float64) bool { return a >= b }),
	OperatorBefore:             dateOperator(time.Time.Before),
	OperatorAfter:              dateOperator(time.Time.After),
	OperatorSemVerEqual:        semVerOperator(func(c int) bool { return c == 0 }),
	OperatorSemVerLessThan:     semVerOperator(func(c int) bool { return c < 0 }),
	OperatorSemVerGreaterThan:  semVerOperator(func(c int) bool { return c > 0 }),
}

// ClauseMatchesValue tests a single context attribute value against the clause's operator
// and value list. A clause matches if the operator matches any one of the clause values.
//
// Negation and missing-attribute rules are applied by the evaluator, not here. The
// OperatorSegmentMatch operator is also outside this function's scope.
func ClauseMatchesValue(c *Clause, contextValue ldvalue.Value) bool {
	matchFn := allOperatorFns[c.Op]
	if matchFn == nil {
		return false
	}
	for _, clauseValue := range c.Values {
		if matchFn(contextValue, clauseValue) {
			return true
		}
	}
	return false
}

func operatorInFn(contextValue, clauseValue ldvalue.Value) bool {
	return contextValue.Equal(clauseValue)
}

func stringOperator(stringTestFn func(string, string) bool) opFn {
	return func(contextValue, clauseValue ldvalue.Value) bool {
		if contextValue.IsString() && clauseValue.IsString() {
			return stringTestFn(contextValue.StringValue(), clauseValue.StringValue())
		}
		return false
	}
}

func operatorMatchesFn(contextValue, clauseValue ldvalue.Value) bool {
	if contextValue.IsString() && clauseValue.IsString() {
		if matchPattern, err := regexp.Compile(clauseValue.StringValue()); err == nil {
			return matchPattern.MatchString(contextValue.StringValue())
		}
	}
	return false
}

func numericOperator(numericTestFn func(float64, float64) bool) opFn {
	return func(contextValue, clauseValue ldvalue.Value) bool {
		if contextValue.IsNumber() && clauseValue.IsNumber() {
			return numericTestFn(contextValue.Float64Value(), clauseValue.Float64Value())
		}
		return false
	}
}

func dateOperator(dateTestFn func(time.Time, time.Time) bool) opFn {
	return func(contextValue, clauseValue ldvalue.Value) bool {
		if contextTime, ok := parseDateTime(contextValue); ok {
			if clauseTime, ok := parseDateTime(clauseValue); ok {
				return dateTestFn(contextTime, clauseTime)
			}
		}
		return false
	}
}

func semVerOperator(compareTestFn func(int) bool) opFn {
	return func(contextValue, clauseValue ldvalue.Value) bool {
		if contextVersion, ok := parseSemVer(contextValue); ok {
			if clauseVersion, ok := parseSemVer(clauseValue); ok {
				return compareTestFn(contextVersion.Compare(clauseVersion))
			}
		}
		return false
	}
}
