package ldcomponents

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/internal"
	"github.com/flagmill/go-server-sdk/ldlog"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

func testClientContext() interfaces.ClientContext {
	return internal.NewClientContextImpl(
		"sdk-key",
		internal.HTTPConfigurationImpl{},
		internal.LoggingConfigurationImpl{Loggers: ldlog.NewDisabledLoggers()},
		false,
		nil,
	)
}

func TestStreamingDataSourceBuilderDefaults(t *testing.T) {
	b := StreamingDataSource()
	assert.Equal(t, DefaultStreamURI, b.baseURI)
	assert.Equal(t, DefaultInitialReconnectDelay, b.initialReconnectDelay)
}

func TestStreamingDataSourceBuilderBaseURI(t *testing.T) {
	b := StreamingDataSource().BaseURI("http://other/")
	assert.Equal(t, "http://other", b.baseURI)

	b.BaseURI("")
	assert.Equal(t, DefaultStreamURI, b.baseURI)
}

func TestStreamingDataSourceBuilderInitialReconnectDelay(t *testing.T) {
	b := StreamingDataSource().InitialReconnectDelay(200 * time.Millisecond)
	assert.Equal(t, 200*time.Millisecond, b.initialReconnectDelay)

	b.InitialReconnectDelay(0)
	assert.Equal(t, DefaultInitialReconnectDelay, b.initialReconnectDelay)

	b.InitialReconnectDelay(-time.Second)
	assert.Equal(t, DefaultInitialReconnectDelay, b.initialReconnectDelay)
}

func TestStreamingDataSourceBuilderPayloadFilter(t *testing.T) {
	b := StreamingDataSource()
	assert.Equal(t, "", b.payloadFilter)

	b.PayloadFilter("mobile-flags")
	assert.Equal(t, "mobile-flags", b.payloadFilter)
}

func TestStreamingDataSourceBuilderDescribeConfiguration(t *testing.T) {
	config := StreamingDataSource().BaseURI("http://other").DescribeConfiguration()
	assert.Equal(t, ldvalue.Bool(false), config.GetByKey("streamingDisabled"))
	assert.Equal(t, ldvalue.Bool(true), config.GetByKey("customStreamURI"))
	assert.Equal(t, ldvalue.Float64(1000), config.GetByKey("reconnectTimeMillis"))
}

func TestPollingDataSourceBuilderDefaults(t *testing.T) {
	b := PollingDataSource()
	assert.Equal(t, DefaultPollingBaseURI, b.baseURI)
	assert.Equal(t, DefaultPollInterval, b.pollInterval)
}

func TestPollingDataSourceBuilderPollIntervalEnforcesMinimum(t *testing.T) {
	b := PollingDataSource().PollInterval(time.Second)
	assert.Equal(t, DefaultPollInterval, b.pollInterval)

	b.PollInterval(time.Minute)
	assert.Equal(t, time.Minute, b.pollInterval)

	b.forcePollInterval(time.Second)
	assert.Equal(t, time.Second, b.pollInterval)
}

func TestPollingDataSourceBuilderPayloadFilter(t *testing.T) {
	b := PollingDataSource()
	assert.Equal(t, "", b.payloadFilter)

	b.PayloadFilter("mobile-flags")
	assert.Equal(t, "mobile-flags", b.payloadFilter)
}

func TestPollingDataSourceBuilderDescribeConfiguration(t *testing.T) {
	config := PollingDataSource().DescribeConfiguration()
	assert.Equal(t, ldvalue.Bool(true), config.GetByKey("streamingDisabled"))
	assert.Equal(t, ldvalue.Bool(false), config.GetByKey("customBaseURI"))
	assert.Equal(t, ldvalue.Float64(30000), config.GetByKey("pollingIntervalMillis"))
}

func TestEventProcessorBuilderDefaults(t *testing.T) {
	b := SendEvents()
	assert.Equal(t, DefaultEventsBaseURI, b.baseURI)
	assert.Equal(t, DefaultEventsCapacity, b.capacity)
	assert.Equal(t, DefaultFlushInterval, b.flushInterval)
	assert.Equal(t, DefaultDiagnosticRecordingInterval, b.diagnosticRecordingInterval)
	assert.Equal(t, DefaultContextKeysCapacity, b.contextKeysCapacity)
	assert.Equal(t, DefaultContextKeysFlushInterval, b.contextKeysFlushInterval)
	assert.False(t, b.allAttributesPrivate)
}

func TestEventProcessorBuilderProperties(t *testing.T) {
	b := SendEvents().
		AllAttributesPrivate(true).
		Capacity(500).
		FlushInterval(2 * time.Second).
		PrivateAttributes("email", "/address/street").
		OmitAnonymousContexts(true)
	assert.True(t, b.allAttributesPrivate)
	assert.True(t, b.omitAnonymousContexts)
	assert.Equal(t, 500, b.capacity)
	assert.Equal(t, 2*time.Second, b.flushInterval)
	require.Len(t, b.privateAttributes, 2)
	assert.Equal(t, "email", b.privateAttributes[0].String())
}

func TestEventProcessorBuilderDiagnosticRecordingIntervalEnforcesMinimum(t *testing.T) {
	b := SendEvents().DiagnosticRecordingInterval(time.Second)
	assert.Equal(t, MinimumDiagnosticRecordingInterval, b.diagnosticRecordingInterval)

	b.DiagnosticRecordingInterval(time.Hour)
	assert.Equal(t, time.Hour, b.diagnosticRecordingInterval)
}

func TestNoEventsFactoryIsRecognized(t *testing.T) {
	assert.True(t, IsNullEventProcessorFactory(NoEvents()))
	assert.False(t, IsNullEventProcessorFactory(SendEvents()))
}

func TestNoEventsCreatesProcessorThatDoesNothing(t *testing.T) {
	ep, err := NoEvents().CreateEventProcessor(testClientContext())
	require.NoError(t, err)
	require.NotNil(t, ep)
	assert.NoError(t, ep.Close())
}

func TestInMemoryDataStoreFactory(t *testing.T) {
	store, err := InMemoryDataStore().CreateDataStore(testClientContext(), nil)
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.False(t, store.IsInitialized())
	assert.NoError(t, store.Close())
}

func TestLoggingBuilderDefaults(t *testing.T) {
	config, err := Logging().CreateLoggingConfiguration(interfaces.BasicConfiguration{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLogDataSourceOutageAsErrorAfter, config.GetLogDataSourceOutageAsErrorAfter())
	assert.False(t, config.IsLogEvaluationErrors())
}

func TestLoggingBuilderProperties(t *testing.T) {
	config, err := Logging().
		LogDataSourceOutageAsErrorAfter(2 * time.Minute).
		LogEvaluationErrors(true).
		LogContextKeyInErrors(true).
		CreateLoggingConfiguration(interfaces.BasicConfiguration{})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, config.GetLogDataSourceOutageAsErrorAfter())
	assert.True(t, config.IsLogEvaluationErrors())
	impl, ok := config.(internal.LoggingConfigurationImpl)
	require.True(t, ok)
	assert.True(t, impl.IsLogContextKeyInErrors())
}

func TestNoLoggingDisablesAllLevels(t *testing.T) {
	config, err := NoLogging().CreateLoggingConfiguration(interfaces.BasicConfiguration{})
	require.NoError(t, err)
	loggers := config.GetLoggers()
	assert.Equal(t, ldlog.None, loggers.GetMinLevel())
}

type fakeBigSegmentStoreFactory struct {
	store interfaces.BigSegmentStore
	err   error
}

func (f fakeBigSegmentStoreFactory) CreateBigSegmentStore(
	context interfaces.ClientContext,
) (interfaces.BigSegmentStore, error) {
	return f.store, f.err
}

type fakeBigSegmentStore struct{}

func (f fakeBigSegmentStore) GetMetadata() (interfaces.BigSegmentStoreMetadata, error) {
	return interfaces.BigSegmentStoreMetadata{}, nil
}

func (f fakeBigSegmentStore) GetMembership(contextHash string) (interfaces.BigSegmentMembership, error) {
	return nil, nil
}

func (f fakeBigSegmentStore) Close() error { return nil }

func TestBigSegmentsBuilderDefaults(t *testing.T) {
	store := fakeBigSegmentStore{}
	config, err := BigSegments(fakeBigSegmentStoreFactory{store: store}).
		CreateBigSegmentsConfiguration(testClientContext())
	require.NoError(t, err)
	assert.Equal(t, store, config.GetStore())
	assert.Equal(t, DefaultBigSegmentsContextCacheSize, config.GetContextCacheSize())
	assert.Equal(t, DefaultBigSegmentsContextCacheTime, config.GetContextCacheTime())
	assert.Equal(t, DefaultBigSegmentsStatusPollInterval, config.GetStatusPollInterval())
	assert.Equal(t, DefaultBigSegmentsStaleAfter, config.GetStaleAfter())
}

func TestBigSegmentsBuilderProperties(t *testing.T) {
	config, err := BigSegments(fakeBigSegmentStoreFactory{store: fakeBigSegmentStore{}}).
		ContextCacheSize(2000).
		ContextCacheTime(time.Minute).
		StatusPollInterval(10 * time.Second).
		StaleAfter(5 * time.Minute).
		CreateBigSegmentsConfiguration(testClientContext())
	require.NoError(t, err)
	assert.Equal(t, 2000, config.GetContextCacheSize())
	assert.Equal(t, time.Minute, config.GetContextCacheTime())
	assert.Equal(t, 10*time.Second, config.GetStatusPollInterval())
	assert.Equal(t, 5*time.Minute, config.GetStaleAfter())
}

func TestBigSegmentsBuilderStatusPollIntervalIgnoresNonPositiveValues(t *testing.T) {
	b := BigSegments(fakeBigSegmentStoreFactory{store: fakeBigSegmentStore{}}).StatusPollInterval(0)
	assert.Equal(t, DefaultBigSegmentsStatusPollInterval, b.config.statusPollInterval)
}

func TestBigSegmentsBuilderReportsStoreCreationError(t *testing.T) {
	_, err := BigSegments(fakeBigSegmentStoreFactory{err: errors.New("no store")}).
		CreateBigSegmentsConfiguration(testClientContext())
	assert.Error(t, err)
}

type fakePersistentStoreFactory struct {
	store interfaces.PersistentDataStore
	err   error
}

func (f fakePersistentStoreFactory) CreatePersistentDataStore(
	context interfaces.ClientContext,
) (interfaces.PersistentDataStore, error) {
	return f.store, f.err
}

func TestPersistentDataStoreBuilderCacheModes(t *testing.T) {
	b := PersistentDataStore(fakePersistentStoreFactory{})
	assert.Equal(t, DefaultCacheTTL, b.cacheTTL)

	b.CacheSeconds(30)
	assert.Equal(t, 30*time.Second, b.cacheTTL)

	b.CacheForever()
	assert.Equal(t, time.Duration(-1), b.cacheTTL)

	b.NoCaching()
	assert.Equal(t, time.Duration(0), b.cacheTTL)
}

func TestPersistentDataStoreBuilderReportsStoreCreationError(t *testing.T) {
	_, err := PersistentDataStore(fakePersistentStoreFactory{err: errors.New("no store")}).
		CreateDataStore(testClientContext(), nil)
	assert.Error(t, err)
}

func TestHTTPConfigurationBuilderDefaultHeaders(t *testing.T) {
	config, err := HTTPConfiguration().CreateHTTPConfiguration(interfaces.BasicConfiguration{SDKKey: "sdk-key"})
	require.NoError(t, err)
	headers := config.GetDefaultHeaders()
	assert.Equal(t, "sdk-key", headers.Get("Authorization"))
	assert.Contains(t, headers.Get("User-Agent"), "GoServerSDK/")
	assert.Equal(t, "", headers.Get("X-LaunchDarkly-Tags"))
}

func TestHTTPConfigurationBuilderTagsHeader(t *testing.T) {
	config, err := HTTPConfiguration().
		ApplicationInfo(interfaces.ApplicationInfo{ApplicationID: "authentication-service", ApplicationVersion: "1.0.0"}).
		CreateHTTPConfiguration(interfaces.BasicConfiguration{SDKKey: "sdk-key"})
	require.NoError(t, err)
	assert.Equal(t, "application.id/authentication-service application.version/1.0.0",
		config.GetDefaultHeaders().Get("X-LaunchDarkly-Tags"))
}

func TestHTTPConfigurationBuilderTagsHeaderOmitsEmptyValues(t *testing.T) {
	config, err := HTTPConfiguration().
		ApplicationInfo(interfaces.ApplicationInfo{ApplicationVersion: "1.0.0"}).
		CreateHTTPConfiguration(interfaces.BasicConfiguration{SDKKey: "sdk-key"})
	require.NoError(t, err)
	assert.Equal(t, "application.version/1.0.0", config.GetDefaultHeaders().Get("X-LaunchDarkly-Tags"))
}

func TestHTTPConfigurationBuilderTagsHeaderDiscardsInvalidValues(t *testing.T) {
	config, err := HTTPConfiguration().
		ApplicationInfo(interfaces.ApplicationInfo{
			ApplicationID:      "has spaces",
			ApplicationVersion: strings.Repeat("x", 65),
		}).
		CreateHTTPConfiguration(interfaces.BasicConfiguration{SDKKey: "sdk-key"})
	require.NoError(t, err)
	assert.Equal(t, "", config.GetDefaultHeaders().Get("X-LaunchDarkly-Tags"))
}
