package ldcomponents

import (
	"strings"
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/internal"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// DefaultPollInterval is the default and minimum value for PollingDataSourceBuilder.PollInterval.
const DefaultPollInterval = 30 * time.Second

// PollingDataSourceBuilder provides methods for configuring the polling data source.
//
// See PollingDataSource for usage.
type PollingDataSourceBuilder struct {
	baseURI       string
	pollInterval  time.Duration
	payloadFilter string
}

// PollingDataSource returns a configurable factory for using polling mode to get feature flag
// data.
//
// Polling is not the default behavior; by default, the SDK uses a streaming connection to
// receive feature flag data. In polling mode, the SDK instead makes a new HTTP request at
// regular intervals. HTTP caching allows it to avoid redundantly downloading data if there
// have been no changes, but polling is still less efficient than streaming and should only be
// used on the advice of support personnel.
//
//	config := ld.Config{
//	    DataSource: ldcomponents.PollingDataSource().PollInterval(45 * time.Second),
//	}
func PollingDataSource() *PollingDataSourceBuilder {
	return &PollingDataSourceBuilder{
		baseURI:      DefaultPollingBaseURI,
		pollInterval: DefaultPollInterval,
	}
}

// BaseURI sets a custom base URI for the polling service.
func (b *PollingDataSourceBuilder) BaseURI(baseURI string) *PollingDataSourceBuilder {
	if baseURI == "" {
		b.baseURI = DefaultPollingBaseURI
	} else {
		b.baseURI = strings.TrimRight(baseURI, "/")
	}
	return b
}

// PollInterval sets the interval at which the SDK will poll for feature flag updates.
//
// Values less than the default of 30 seconds are changed to the default.
func (b *PollingDataSourceBuilder) PollInterval(pollInterval time.Duration) *PollingDataSourceBuilder {
	if pollInterval < DefaultPollInterval {
		b.pollInterval = DefaultPollInterval
	} else {
		b.pollInterval = pollInterval
	}
	return b
}

// Used in tests to skip the minimum poll interval.
func (b *PollingDataSourceBuilder) forcePollInterval(
	pollInterval time.Duration,
) *PollingDataSourceBuilder {
	b.pollInterval = pollInterval
	return b
}

// PayloadFilter sets the filter key for the environment's payload filter, so that polling
// requests return only the subset of the environment's data that the filter selects. An
// empty string, the default, means the full data set.
func (b *PollingDataSourceBuilder) PayloadFilter(filterKey string) *PollingDataSourceBuilder {
	b.payloadFilter = filterKey
	return b
}

// CreateDataSource is called by the SDK to create the data source instance.
func (b *PollingDataSourceBuilder) CreateDataSource(
	context interfaces.ClientContext,
	dataSourceUpdates interfaces.DataSourceUpdates,
) (interfaces.DataSource, error) {
	context.GetLogging().GetLoggers().Warn(
		"You should only disable the streaming API if instructed to do so by support personnel")
	return internal.NewPollingProcessor(context, dataSourceUpdates, internal.PollConfig{
		BaseURI:       b.baseURI,
		PollInterval:  b.pollInterval,
		PayloadFilter: b.payloadFilter,
	}), nil
}

// DescribeConfiguration is used internally by the SDK to inspect the configuration.
func (b *PollingDataSourceBuilder) DescribeConfiguration() ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("streamingDisabled", ldvalue.Bool(true)).
		Set("customBaseURI", ldvalue.Bool(b.baseURI != DefaultPollingBaseURI)).
		Set("pollingIntervalMillis", durationToMillisValue(b.pollInterval)).
		Set("usingRelayDaemon", ldvalue.Bool(false)).
		Build()
}
