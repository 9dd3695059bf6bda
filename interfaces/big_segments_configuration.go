package interfaces

import (
	"time"
)

// BigSegmentsConfiguration encapsulates the SDK's configuration with regard to Big Segments.
//
// This struct implementation is normally produced by the configuration builder in the
// ldcomponents package; applications do not need to implement it.
type BigSegmentsConfiguration interface {
	// GetStore returns the data store instance that is used for Big Segments data.
	GetStore() BigSegmentStore

	// GetContextCacheSize returns the maximum number of contexts whose Big Segment state
	// will be cached by the SDK at any given time.
	GetContextCacheSize() int

	// GetContextCacheTime returns the maximum length of time that the Big Segment state
	// for a context will be cached by the SDK.
	GetContextCacheTime() time.Duration

	// GetStatusPollInterval returns the interval at which the SDK will poll the Big
	// Segment store to make sure it is available and to determine how long ago it was
	// updated.
	GetStatusPollInterval() time.Duration

	// GetStaleAfter returns the maximum length of time between updates of the Big Segments
	// data before the data is considered out of date.
	GetStaleAfter() time.Duration
}

// BigSegmentsConfigurationFactory is a factory that creates a BigSegmentsConfiguration,
// combining a store factory with the SDK's Big Segments options.
type BigSegmentsConfigurationFactory interface {
	// CreateBigSegmentsConfiguration is called by the SDK to create the configuration.
	CreateBigSegmentsConfiguration(context ClientContext) (BigSegmentsConfiguration, error)
}
