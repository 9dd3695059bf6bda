package ldclient

import (
	"github.com/flagmill/go-server-sdk/interfaces"
)

// Config exposes advanced configuration options for LDClient.
//
// All of these settings are optional, so an empty Config struct is always valid. See the
// description of each field for the default behavior if it is not set.
//
// Some of the Config fields are builders for subcomponents of the SDK. The standard builders
// are in the ldcomponents package; they all have the same usage pattern of setting optional
// properties with chained methods:
//
//	config := ld.Config{
//	    DataSource: ldcomponents.StreamingDataSource().InitialReconnectDelay(time.Second),
//	    Events:     ldcomponents.SendEvents().Capacity(5000),
//	}
type Config struct {
	// Provides configuration of the SDK's Big Segments feature.
	//
	// By default, there is no implementation and Big Segments cannot be evaluated. In this
	// case, any flag evaluation that references a Big Segment will behave as if no contexts
	// are included in any Big Segments, and the evaluation reason will report an error of
	// kind BIG_SEGMENTS_NOT_CONFIGURED.
	//
	//	config := ld.Config{
	//	    BigSegments: ldcomponents.BigSegments(someDatabaseIntegration.BigSegmentStore()),
	//	}
	BigSegments interfaces.BigSegmentsConfigurationFactory

	// Sets the implementation of DataSource for receiving feature flag updates.
	//
	// If nil, the default is ldcomponents.StreamingDataSource(); see that method for an
	// explanation of how to further configure streaming behavior. Other options include
	// ldcomponents.PollingDataSource() or a custom implementation, such as a test fixture.
	DataSource interfaces.DataSourceFactory

	// Sets the implementation of DataStore for holding feature flags and related data
	// received from the data source.
	//
	// If nil, the default is ldcomponents.InMemoryDataStore(). Database integrations are
	// configured with ldcomponents.PersistentDataStore().
	DataStore interfaces.DataStoreFactory

	// Set to true to opt out of sending diagnostic events.
	//
	// Unless DiagnosticOptOut is set to true, the client will send some diagnostics data to
	// the events service in order to assist in the development of future SDK improvements.
	// These diagnostics consist of an initial payload containing some details of the SDK in
	// use, the SDK's configuration, and the platform the SDK is being run on, as well as
	// periodic information on irregular occurrences such as dropped events.
	DiagnosticOptOut bool

	// Sets the SDK's behavior regarding analytics events.
	//
	// If nil, the default is ldcomponents.SendEvents(); to disable events, use
	// ldcomponents.NoEvents(). If Offline is true, then event delivery is always disabled
	// and this setting is ignored.
	Events interfaces.EventProcessorFactory

	// Provides configuration of the SDK's network connection behavior.
	//
	// If nil, the default is ldcomponents.HTTPConfiguration().
	HTTP interfaces.HTTPConfigurationFactory

	// Provides configuration of the SDK's logging behavior.
	//
	// If nil, the default is ldcomponents.Logging(); to disable logging, use
	// ldcomponents.NoLogging().
	Logging interfaces.LoggingConfigurationFactory

	// Sets whether this client is offline. An offline client will not make any network
	// connections to the streaming, polling, or events services, and will return application-
	// defined default values for all feature flags.
	Offline bool
}
