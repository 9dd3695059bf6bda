// Package ldcomponents provides the standard implementations and configuration builders for
// the pluggable components of the SDK: the data source, the data store, the event processor,
// logging, and networking.
//
// Some of the types in this package are builders. Each builder's methods are factory methods
// for setting optional configuration properties; the builder is then assigned to the
// corresponding field of the client Config.
package ldcomponents

const (
	// DefaultStreamURI is the default base URI of the streaming service.
	DefaultStreamURI = "https://stream.flagmill.com"
	// DefaultPollingBaseURI is the default base URI of the polling service.
	DefaultPollingBaseURI = "https://sdk.flagmill.com"
	// DefaultEventsBaseURI is the default base URI of the events service.
	DefaultEventsBaseURI = "https://events.flagmill.com"
)
