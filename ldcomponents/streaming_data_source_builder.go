package ldcomponents

import (
	"strings"
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/internal"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// DefaultInitialReconnectDelay is the default value for
// StreamingDataSourceBuilder.InitialReconnectDelay.
const DefaultInitialReconnectDelay = time.Second

// StreamingDataSourceBuilder provides methods for configuring the streaming data source.
//
// See StreamingDataSource for usage.
type StreamingDataSourceBuilder struct {
	baseURI               string
	initialReconnectDelay time.Duration
	payloadFilter         string
}

// StreamingDataSource returns a configurable factory for using streaming mode to get feature
// flag data.
//
// By default, the SDK uses a streaming connection to receive feature flag data. To use the
// default behavior, you do not need to call this method. However, if you want to customize the
// behavior of the connection, call this method to obtain a builder, set its properties with the
// StreamingDataSourceBuilder methods, and store it in the DataSource field of your SDK
// configuration:
//
//	config := ld.Config{
//	    DataSource: ldcomponents.StreamingDataSource().InitialReconnectDelay(500 * time.Millisecond),
//	}
func StreamingDataSource() *StreamingDataSourceBuilder {
	return &StreamingDataSourceBuilder{
		baseURI:               DefaultStreamURI,
		initialReconnectDelay: DefaultInitialReconnectDelay,
	}
}

// BaseURI sets a custom base URI for the streaming service.
//
// You will only need to change this value in the following cases:
//
// 1. You are using a relay proxy. Set BaseURI to the base URI of the relay proxy instance.
//
// 2. You are connecting to a test server or anything else other than the standard streaming
// service.
func (b *StreamingDataSourceBuilder) BaseURI(baseURI string) *StreamingDataSourceBuilder {
	if baseURI == "" {
		b.baseURI = DefaultStreamURI
	} else {
		b.baseURI = strings.TrimRight(baseURI, "/")
	}
	return b
}

// InitialReconnectDelay sets the initial reconnect delay for the streaming connection.
//
// The streaming service uses a backoff algorithm (with jitter) for reconnects, so that if a
// server-side error occurs during reconnections, the retries do not overwhelm the service.
// This parameter sets the initial delay before reconnection, and subsequent retries will be
// progressively longer. A value of zero or a negative number selects the default.
func (b *StreamingDataSourceBuilder) InitialReconnectDelay(
	initialReconnectDelay time.Duration,
) *StreamingDataSourceBuilder {
	if initialReconnectDelay <= 0 {
		b.initialReconnectDelay = DefaultInitialReconnectDelay
	} else {
		b.initialReconnectDelay = initialReconnectDelay
	}
	return b
}

// PayloadFilter sets the filter key for the environment's payload filter, so that the
// stream serves only the subset of the environment's data that the filter selects. An
// empty string, the default, means the full data set.
func (b *StreamingDataSourceBuilder) PayloadFilter(filterKey string) *StreamingDataSourceBuilder {
	b.payloadFilter = filterKey
	return b
}

// CreateDataSource is called by the SDK to create the data source instance.
func (b *StreamingDataSourceBuilder) CreateDataSource(
	context interfaces.ClientContext,
	dataSourceUpdates interfaces.DataSourceUpdates,
) (interfaces.DataSource, error) {
	return internal.NewStreamProcessor(
		context,
		dataSourceUpdates,
		internal.StreamConfig{
			URI:                   b.baseURI,
			InitialReconnectDelay: b.initialReconnectDelay,
			PayloadFilter:         b.payloadFilter,
		},
	), nil
}

// DescribeConfiguration is used internally by the SDK to inspect the configuration.
func (b *StreamingDataSourceBuilder) DescribeConfiguration() ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("streamingDisabled", ldvalue.Bool(false)).
		Set("customStreamURI", ldvalue.Bool(b.baseURI != DefaultStreamURI)).
		Set("reconnectTimeMillis", durationToMillisValue(b.initialReconnectDelay)).
		Set("usingRelayDaemon", ldvalue.Bool(false)).
		Build()
}

func durationToMillisValue(d time.Duration) ldvalue.Value {
	return ldvalue.Float64(float64(uint64(d / time.Millisecond)))
}
