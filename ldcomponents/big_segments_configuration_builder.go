package ldcomponents

import (
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
)

const (
	// DefaultBigSegmentsContextCacheSize is the default value for
	// BigSegmentsConfigurationBuilder.ContextCacheSize.
	DefaultBigSegmentsContextCacheSize = 1000
	// DefaultBigSegmentsContextCacheTime is the default value for
	// BigSegmentsConfigurationBuilder.ContextCacheTime.
	DefaultBigSegmentsContextCacheTime = 5 * time.Second
	// DefaultBigSegmentsStatusPollInterval is the default value for
	// BigSegmentsConfigurationBuilder.StatusPollInterval.
	DefaultBigSegmentsStatusPollInterval = 5 * time.Second
	// DefaultBigSegmentsStaleAfter is the default value for
	// BigSegmentsConfigurationBuilder.StaleAfter.
	DefaultBigSegmentsStaleAfter = 2 * time.Minute
)

// BigSegmentsConfigurationBuilder contains methods for configuring the SDK's Big Segments
// behavior.
//
// Big Segments are a specific type of segments. For more information, read the Big Segments
// documentation.
//
// To use Big Segments, obtain a builder by calling BigSegments with the store implementation
// from one of the database integration packages, change its properties if desired with the
// builder methods, and store it in the BigSegments field of your SDK configuration:
//
//	config := ld.Config{
//	    BigSegments: ldcomponents.BigSegments(someDatabaseIntegration.BigSegmentStore()).
//	        ContextCacheSize(2000).
//	        StaleAfter(5 * time.Minute),
//	}
//
// You only need to use this builder if you are using Big Segments.
type BigSegmentsConfigurationBuilder struct {
	storeFactory interfaces.BigSegmentStoreFactory
	config       bigSegmentsConfigurationImpl
}

type bigSegmentsConfigurationImpl struct {
	store              interfaces.BigSegmentStore
	contextCacheSize   int
	contextCacheTime   time.Duration
	statusPollInterval time.Duration
	staleAfter         time.Duration
}

// BigSegments returns a configuration builder for the SDK's Big Segments feature.
func BigSegments(storeFactory interfaces.BigSegmentStoreFactory) *BigSegmentsConfigurationBuilder {
	return &BigSegmentsConfigurationBuilder{
		storeFactory: storeFactory,
		config: bigSegmentsConfigurationImpl{
			contextCacheSize:   DefaultBigSegmentsContextCacheSize,
			contextCacheTime:   DefaultBigSegmentsContextCacheTime,
			statusPollInterval: DefaultBigSegmentsStatusPollInterval,
			staleAfter:         DefaultBigSegmentsStaleAfter,
		},
	}
}

// ContextCacheSize sets the maximum number of contexts whose Big Segment state will be cached
// by the SDK at any given time.
func (b *BigSegmentsConfigurationBuilder) ContextCacheSize(
	contextCacheSize int,
) *BigSegmentsConfigurationBuilder {
	b.config.contextCacheSize = contextCacheSize
	return b
}

// ContextCacheTime sets the maximum length of time that the Big Segment state for a context
// will be cached by the SDK.
func (b *BigSegmentsConfigurationBuilder) ContextCacheTime(
	contextCacheTime time.Duration,
) *BigSegmentsConfigurationBuilder {
	b.config.contextCacheTime = contextCacheTime
	return b
}

// StatusPollInterval sets the interval at which the SDK will poll the Big Segment store to
// make sure it is available and to determine how long ago it was updated. A zero or negative
// value selects the default.
func (b *BigSegmentsConfigurationBuilder) StatusPollInterval(
	statusPollInterval time.Duration,
) *BigSegmentsConfigurationBuilder {
	if statusPollInterval <= 0 {
		statusPollInterval = DefaultBigSegmentsStatusPollInterval
	}
	b.config.statusPollInterval = statusPollInterval
	return b
}

// StaleAfter sets the maximum length of time between updates of the Big Segments data before
// the data is considered out of date. If the store has not been updated within this interval,
// evaluations of Big Segments will report a STALE status.
func (b *BigSegmentsConfigurationBuilder) StaleAfter(
	staleAfter time.Duration,
) *BigSegmentsConfigurationBuilder {
	b.config.staleAfter = staleAfter
	return b
}

// CreateBigSegmentsConfiguration is called by the SDK to create the configuration instance.
func (b *BigSegmentsConfigurationBuilder) CreateBigSegmentsConfiguration(
	context interfaces.ClientContext,
) (interfaces.BigSegmentsConfiguration, error) {
	config := b.config
	if b.storeFactory != nil {
		store, err := b.storeFactory.CreateBigSegmentStore(context)
		if err != nil {
			return nil, err
		}
		config.store = store
	}
	return config, nil
}

func (c bigSegmentsConfigurationImpl) GetStore() interfaces.BigSegmentStore { return c.store }

func (c bigSegmentsConfigurationImpl) GetContextCacheSize() int { return c.contextCacheSize }

func (c bigSegmentsConfigurationImpl) GetContextCacheTime() time.Duration { return c.contextCacheTime }

func (c bigSegmentsConfigurationImpl) GetStatusPollInterval() time.Duration {
	return c.statusPollInterval
}

func (c bigSegmentsConfigurationImpl) GetStaleAfter() time.Duration { return c.staleAfter }
