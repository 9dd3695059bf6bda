package interfaces

import (
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// DiagnosticDescription is an optional interface for components to describe their own
// configuration properties in diagnostic events.
type DiagnosticDescription interface {
	// DescribeConfiguration returns a JSON value with any relevant configuration properties.
	DescribeConfiguration() ldvalue.Value
}
