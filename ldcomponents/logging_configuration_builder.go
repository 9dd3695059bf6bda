package ldcomponents

import (
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/internal"
	"github.com/flagmill/go-server-sdk/ldlog"
)

// DefaultLogDataSourceOutageAsErrorAfter is the default value for
// LoggingConfigurationBuilder.LogDataSourceOutageAsErrorAfter: one minute.
const DefaultLogDataSourceOutageAsErrorAfter = time.Minute

// LoggingConfigurationBuilder contains methods for configuring the SDK's logging behavior.
//
// If you want to set non-default values for any of these properties, create a builder with
// ldcomponents.Logging(), change its properties with the LoggingConfigurationBuilder methods,
// and store it in the Logging field of your SDK configuration:
//
//	config := ld.Config{
//	    Logging: ldcomponents.Logging().MinLevel(ldlog.Warn),
//	}
type LoggingConfigurationBuilder struct {
	config internal.LoggingConfigurationImpl
}

// Logging returns a configuration builder for the SDK's logging configuration.
//
// The default configuration has logging enabled with default settings. If you want to set
// non-default values for any of these properties, you can change them with the
// LoggingConfigurationBuilder methods.
func Logging() *LoggingConfigurationBuilder {
	return &LoggingConfigurationBuilder{
		config: internal.LoggingConfigurationImpl{
			LogDataSourceOutageAsErrorAfter: DefaultLogDataSourceOutageAsErrorAfter,
			LogEvaluationErrors:             false,
			Loggers:                         ldlog.NewDefaultLoggers(),
		},
	}
}

// LogDataSourceOutageAsErrorAfter sets the time threshold, if any, after which the SDK will
// log a data source outage at Error level instead of Warn level.
//
// A data source outage means that an error condition, such as a network interruption or an
// error from the service, is preventing the SDK from receiving feature flag updates. Many
// outages are brief and the SDK can recover from them quickly; in that case it may be
// undesirable to log an Error line, which might trigger an unwanted automated alert depending
// on your monitoring tools. Therefore, by default, the SDK logs such errors at Warn level.
// However, if the amount of time specified by this method elapses before the data source
// starts working again, the SDK will log an additional line at Error level to indicate that
// this is a sustained problem.
//
// Setting the value to zero disables this feature.
func (b *LoggingConfigurationBuilder) LogDataSourceOutageAsErrorAfter(
	logDataSourceOutageAsErrorAfter time.Duration,
) *LoggingConfigurationBuilder {
	b.config.LogDataSourceOutageAsErrorAfter = logDataSourceOutageAsErrorAfter
	return b
}

// LogEvaluationErrors sets whether the client should log a warning message whenever a flag
// cannot be evaluated due to an error (for instance, if the flag key does not match any
// existing flag). By default, these messages are not logged, since they can happen frequently
// for errors that the application may have no control over, and the error information is
// available programmatically in the evaluation detail.
func (b *LoggingConfigurationBuilder) LogEvaluationErrors(logEvaluationErrors bool) *LoggingConfigurationBuilder {
	b.config.LogEvaluationErrors = logEvaluationErrors
	return b
}

// LogContextKeyInErrors sets whether log messages for errors related to a specific evaluation
// context can include the context key. By default they cannot, since the key might be
// considered privileged information.
func (b *LoggingConfigurationBuilder) LogContextKeyInErrors(logContextKeyInErrors bool) *LoggingConfigurationBuilder {
	b.config.LogContextKeyInErrors = logContextKeyInErrors
	return b
}

// Loggers specifies an instance of ldlog.Loggers to use for SDK logging.
func (b *LoggingConfigurationBuilder) Loggers(loggers ldlog.Loggers) *LoggingConfigurationBuilder {
	b.config.Loggers = loggers
	return b
}

// MinLevel specifies the minimum level for log output, where ldlog.Debug is the lowest and
// ldlog.Error is the highest. Log messages at a level lower than this will be suppressed. The
// default is ldlog.Info.
func (b *LoggingConfigurationBuilder) MinLevel(level ldlog.LogLevel) *LoggingConfigurationBuilder {
	b.config.Loggers.SetMinLevel(level)
	return b
}

// CreateLoggingConfiguration is called by the SDK to create the logging configuration.
func (b *LoggingConfigurationBuilder) CreateLoggingConfiguration(
	basic interfaces.BasicConfiguration,
) (interfaces.LoggingConfiguration, error) {
	return b.config, nil
}

// NoLogging returns a configuration object that disables logging.
//
//	config := ld.Config{
//	    Logging: ldcomponents.NoLogging(),
//	}
func NoLogging() interfaces.LoggingConfigurationFactory {
	return noLoggingConfigurationFactory{}
}

type noLoggingConfigurationFactory struct{}

func (f noLoggingConfigurationFactory) CreateLoggingConfiguration(
	basic interfaces.BasicConfiguration,
) (interfaces.LoggingConfiguration, error) {
	return internal.LoggingConfigurationImpl{Loggers: ldlog.NewDisabledLoggers()}, nil
}
