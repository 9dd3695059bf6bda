package interfaces

import (
	"net/http"
	"time"

	"github.com/flagmill/go-server-sdk/ldlog"
)

// BasicConfiguration contains the basic properties that all SDK components may need.
type BasicConfiguration struct {
	// SDKKey is the configured SDK key.
	SDKKey string
	// Offline is true if the SDK was configured to make no network connections.
	Offline bool
}

// HTTPConfiguration encapsulates top-level HTTP settings shared by all components that
// make HTTP requests.
type HTTPConfiguration interface {
	// GetDefaultHeaders returns the headers that should be included in all requests,
	// including Authorization and User-Agent. The caller may modify the returned map.
	GetDefaultHeaders() http.Header
	// CreateHTTPClient returns a new HTTP client instance with the configured connection
	// and TLS settings.
	CreateHTTPClient() *http.Client
}

// LoggingConfiguration encapsulates top-level logging settings shared by all components.
type LoggingConfiguration interface {
	// GetLoggers returns the configured logger destinations.
	GetLoggers() ldlog.Loggers
	// GetLogDataSourceOutageAsErrorAfter returns how long a data source outage may last
	// before it is logged at Error level with a summary of the errors, rather than only
	// at Warn level. Zero means never.
	GetLogDataSourceOutageAsErrorAfter() time.Duration
	// IsLogEvaluationErrors returns true if evaluation failures such as unknown flag keys
	// should be logged.
	IsLogEvaluationErrors() bool
}

// HTTPConfigurationFactory is a factory that creates an HTTPConfiguration.
type HTTPConfigurationFactory interface {
	CreateHTTPConfiguration(basicConfig BasicConfiguration) (HTTPConfiguration, error)
}

// LoggingConfigurationFactory is a factory that creates a LoggingConfiguration.
type LoggingConfigurationFactory interface {
	CreateLoggingConfiguration(basicConfig BasicConfiguration) (LoggingConfiguration, error)
}

// ClientContext provides SDK configuration information to components created from
// factories. It is passed, not stored globally, so that multiple client instances can
// coexist with different configurations.
type ClientContext interface {
	// GetBasic returns the basic properties, such as the SDK key.
	GetBasic() BasicConfiguration
	// GetHTTP returns the HTTP configuration.
	GetHTTP() HTTPConfiguration
	// GetLogging returns the logging configuration.
	GetLogging() LoggingConfiguration
}
