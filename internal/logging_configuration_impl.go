package internal

import (
	"time"

	"github.com/flagmill/go-server-sdk/ldlog"
)

// LoggingConfigurationImpl is the internal implementation of LoggingConfiguration.
type LoggingConfigurationImpl struct {
	LogDataSourceOutageAsErrorAfter time.Duration
	LogEvaluationErrors             bool
	LogContextKeyInErrors           bool
	Loggers                         ldlog.Loggers
}

// GetLogDataSourceOutageAsErrorAfter is a standard method of LoggingConfiguration.
func (c LoggingConfigurationImpl) GetLogDataSourceOutageAsErrorAfter() time.Duration {
	return c.LogDataSourceOutageAsErrorAfter
}

// IsLogEvaluationErrors is a standard method of LoggingConfiguration.
func (c LoggingConfigurationImpl) IsLogEvaluationErrors() bool {
	return c.LogEvaluationErrors
}

// IsLogContextKeyInErrors returns true if evaluation errors may include the context key.
func (c LoggingConfigurationImpl) IsLogContextKeyInErrors() bool {
	return c.LogContextKeyInErrors
}

// GetLoggers is a standard method of LoggingConfiguration.
func (c LoggingConfigurationImpl) GetLoggers() ldlog.Loggers {
	return c.Loggers
}
