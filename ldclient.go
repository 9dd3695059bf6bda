// Package ldclient is the main package for the server-side feature flag SDK.
//
// The client (LDClient) evaluates feature flags against evaluation contexts, keeps the flag
// data up to date through a streaming or polling connection, and delivers analytics events
// describing flag usage.
package ldclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/flagmill/go-server-sdk/evaluation"
	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/interfaces/flagstate"
	"github.com/flagmill/go-server-sdk/internal"
	"github.com/flagmill/go-server-sdk/ldcomponents"
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldevents"
	"github.com/flagmill/go-server-sdk/ldlog"
	"github.com/flagmill/go-server-sdk/ldmigration"
	"github.com/flagmill/go-server-sdk/ldmodel"
	"github.com/flagmill/go-server-sdk/ldreason"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// Version is the SDK version.
const Version = internal.SDKVersion

// Initialization errors
var (
	// ErrInitializationTimeout is returned by MakeClient or MakeCustomClient if the
	// specified timeout elapsed before the client received its initial flag data.
	ErrInitializationTimeout = errors.New("timeout encountered waiting for client initialization")
	// ErrInitializationFailed is returned by MakeClient or MakeCustomClient if the data
	// source reported a permanent failure before the timeout elapsed.
	ErrInitializationFailed = errors.New("client initialization failed")
	// ErrClientNotInitialized is returned by evaluation methods if they are called before
	// the client has received its initial flag data.
	ErrClientNotInitialized = errors.New("feature flag evaluation called before client initialized")
)

// LDClient is the client object for the SDK. Applications should instantiate a single
// instance for the lifetime of their application and share it wherever feature flags need to
// be evaluated; all of its methods are safe for concurrent use.
type LDClient struct {
	sdkKey                        string
	loggers                       ldlog.Loggers
	eventProcessor                ldevents.EventProcessor
	dataSource                    interfaces.DataSource
	store                         interfaces.DataStore
	evaluator                     evaluation.Evaluator
	dataSourceStatusBroadcaster   *internal.DataSourceStatusBroadcaster
	dataSourceStatusProvider      interfaces.DataSourceStatusProvider
	dataStoreStatusBroadcaster    *internal.DataStoreStatusBroadcaster
	dataStoreStatusProvider       interfaces.DataStoreStatusProvider
	flagChangeEventBroadcaster    *internal.FlagChangeEventBroadcaster
	flagTracker                   interfaces.FlagTracker
	bigSegmentStoreManager        *internal.BigSegmentStoreManager
	bigSegmentStoreStatusProvider interfaces.BigSegmentStoreStatusProvider
	eventsDefault                 eventsScope
	eventsWithReasons             eventsScope
	logEvaluationErrors           bool
	offline                       bool
}

// MakeClient creates a new client instance that connects to the flag delivery services with
// the default configuration.
//
// For advanced configuration options, use MakeCustomClient. Calling MakeClient is exactly
// equivalent to calling MakeCustomClient with the config parameter set to an empty value,
// ld.Config{}.
//
// The client will begin attempting to connect to the streaming service as soon as it is
// created. If it has not successfully received its initial flag data by the time waitFor has
// elapsed, the constructor returns the client along with ErrInitializationTimeout; the client
// will continue trying to connect in the background, and evaluations will return application
// default values in the meantime. Setting waitFor to zero returns immediately without
// waiting.
func MakeClient(sdkKey string, waitFor time.Duration) (*LDClient, error) {
	// COVERAGE: this constructor cannot be called in unit tests because it uses the default
	// production service URIs.
	return MakeCustomClient(sdkKey, Config{}, waitFor)
}

// MakeCustomClient creates a new client instance with a custom configuration.
//
//	config := ld.Config{
//	    Events: ldcomponents.SendEvents().FlushInterval(10 * time.Second),
//	}
//	client, err := ld.MakeCustomClient("sdk-key", config, 5*time.Second)
//
// See MakeClient for the meaning of the waitFor parameter.
func MakeCustomClient(sdkKey string, config Config, waitFor time.Duration) (*LDClient, error) {
	// Ensure that any intermediate components we create for client construction are
	// disposed of if we return an error.
	closeWhenReady := make(chan struct{})

	eventProcessorFactory := getEventProcessorFactory(config)

	// Do not create a diagnostics manager if diagnostics are disabled, or if we know that
	// the standard event processor is not being used (since in that case there is nothing
	// to send diagnostic data).
	var diagnosticsManager *ldevents.DiagnosticsManager
	if !config.DiagnosticOptOut {
		if _, ok := eventProcessorFactory.(*ldcomponents.EventProcessorBuilder); ok {
			diagnosticsManager = createDiagnosticsManager(sdkKey, config, waitFor)
		}
	}

	clientContext, err := newClientContextFromConfig(sdkKey, config, diagnosticsManager)
	if err != nil {
		return nil, err
	}
	loggers := clientContext.GetLogging().GetLoggers()
	loggers.Info("Starting client")

	client := &LDClient{
		sdkKey:              sdkKey,
		loggers:             loggers,
		logEvaluationErrors: clientContext.GetLogging().IsLogEvaluationErrors(),
		offline:             config.Offline,
	}

	client.dataStoreStatusBroadcaster = internal.NewDataStoreStatusBroadcaster()
	dataStoreUpdates := internal.NewDataStoreUpdatesImpl(client.dataStoreStatusBroadcaster)
	dataStoreFactory := config.DataStore
	if dataStoreFactory == nil {
		dataStoreFactory = ldcomponents.InMemoryDataStore()
	}
	store, err := dataStoreFactory.CreateDataStore(clientContext, dataStoreUpdates)
	if err != nil {
		return nil, err
	}
	client.store = store
	client.dataStoreStatusProvider = internal.NewDataStoreStatusProviderImpl(store, dataStoreUpdates)

	bigSegments := config.BigSegments
	if bigSegments != nil {
		bsConfig, err := bigSegments.CreateBigSegmentsConfiguration(clientContext)
		if err != nil {
			return nil, err
		}
		client.bigSegmentStoreManager = internal.NewBigSegmentStoreManager(
			bsConfig.GetStore(),
			bsConfig.GetStatusPollInterval(),
			bsConfig.GetStaleAfter(),
			bsConfig.GetContextCacheSize(),
			bsConfig.GetContextCacheTime(),
			loggers,
		)
	}
	client.bigSegmentStoreStatusProvider = internal.NewBigSegmentStoreStatusProviderImpl(
		client.bigSegmentStoreManager)

	dataProvider := internal.NewDataStoreEvaluatorDataProvider(store, loggers)
	if client.bigSegmentStoreManager == nil {
		client.evaluator = evaluation.NewEvaluator(dataProvider)
	} else {
		client.evaluator = evaluation.NewEvaluatorWithBigSegments(
			dataProvider, client.bigSegmentStoreManager)
	}

	client.dataSourceStatusBroadcaster = internal.NewDataSourceStatusBroadcaster()
	client.flagChangeEventBroadcaster = internal.NewFlagChangeEventBroadcaster()
	dataSourceUpdates := internal.NewDataSourceUpdatesImpl(
		store,
		client.dataStoreStatusProvider,
		client.dataSourceStatusBroadcaster,
		client.flagChangeEventBroadcaster,
		clientContext.GetLogging().GetLogDataSourceOutageAsErrorAfter(),
		loggers,
	)

	eventProcessor, err := eventProcessorFactory.CreateEventProcessor(clientContext)
	if err != nil {
		return nil, err
	}
	client.eventProcessor = eventProcessor
	if isNullEventProcessorFactory(eventProcessorFactory) {
		client.eventsDefault = newDisabledEventsScope()
		client.eventsWithReasons = newDisabledEventsScope()
	} else {
		client.eventsDefault = newEventsScope(client, false)
		client.eventsWithReasons = newEventsScope(client, true)
	}

	dataSource, err := createDataSource(config, clientContext, dataSourceUpdates)
	if err != nil {
		return nil, err
	}
	client.dataSource = dataSource
	client.dataSourceStatusProvider = internal.NewDataSourceStatusProviderImpl(
		client.dataSourceStatusBroadcaster,
		dataSourceUpdates,
	)

	client.flagTracker = internal.NewFlagTrackerImpl(
		client.flagChangeEventBroadcaster,
		func(flagKey string, context ldcontext.Context, defaultValue ldvalue.Value) ldvalue.Value {
			value, _ := client.JSONVariation(flagKey, context, defaultValue)
			return value
		},
	)

	client.dataSource.Start(closeWhenReady)
	if waitFor > 0 {
		loggers.Infof("Waiting up to %d milliseconds for client to initialize...",
			waitFor/time.Millisecond)

		timeout := time.After(waitFor)
		for {
			select {
			case <-closeWhenReady:
				if !client.dataSource.IsInitialized() {
					loggers.Warn("Client initialization failed")
					return client, ErrInitializationFailed
				}
				loggers.Info("Initialized client")
				return client, nil
			case <-timeout:
				loggers.Warn("Timeout exceeded when initializing client")
				go func() { <-closeWhenReady }() // Don't block the data source when it signals readiness
				return client, ErrInitializationTimeout
			}
		}
	}
	go func() { <-closeWhenReady }()
	return client, nil
}

func createDataSource(
	config Config,
	context interfaces.ClientContext,
	dataSourceUpdates interfaces.DataSourceUpdates,
) (interfaces.DataSource, error) {
	if config.Offline {
		context.GetLogging().GetLoggers().Info("Starting in offline mode")
		dataSourceUpdates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{})
		return internal.NewNullDataSource(), nil
	}
	factory := config.DataSource
	if factory == nil {
		// streaming mode is the default
		factory = ldcomponents.StreamingDataSource()
	}
	return factory.CreateDataSource(context, dataSourceUpdates)
}

func getEventProcessorFactory(config Config) interfaces.EventProcessorFactory {
	if config.Offline {
		return ldcomponents.NoEvents()
	}
	if config.Events == nil {
		return ldcomponents.SendEvents()
	}
	return config.Events
}

func isNullEventProcessorFactory(f interfaces.EventProcessorFactory) bool {
	return ldcomponents.IsNullEventProcessorFactory(f)
}

// Initialized returns whether the client has received its initial flag data and is ready to
// evaluate flags.
func (client *LDClient) Initialized() bool {
	return client.dataSource.IsInitialized()
}

// IsOffline returns whether the client was configured to be permanently offline.
func (client *LDClient) IsOffline() bool {
	return client.offline
}

// Close shuts down the client. After calling this, the client should no longer be used. The
// method will block until all pending analytics events (if events are enabled) have been sent.
func (client *LDClient) Close() error {
	client.loggers.Info("Closing client")
	_ = client.eventProcessor.Close()
	_ = client.dataSource.Close()
	_ = client.store.Close()
	if client.bigSegmentStoreManager != nil {
		client.bigSegmentStoreManager.Close()
	}
	client.dataSourceStatusBroadcaster.Close()
	client.dataStoreStatusBroadcaster.Close()
	client.flagChangeEventBroadcaster.Close()
	return nil
}

// Flush tells the client that all pending analytics events (if any) should be delivered as
// soon as possible. Flushing is asynchronous, so this method will return before the events
// are actually sent.
func (client *LDClient) Flush() {
	client.eventProcessor.Flush()
}

// SecureModeHash generates the secure mode hash value for an evaluation context, for use with
// client-side SDKs that have secure mode enabled.
func (client *LDClient) SecureModeHash(context ldcontext.Context) string {
	key := []byte(client.sdkKey)
	h := hmac.New(sha256.New, key)
	_, _ = h.Write([]byte(context.FullyQualifiedKey()))
	return hex.EncodeToString(h.Sum(nil))
}

// Identify reports details about an evaluation context. This adds the context to the analytics
// events that the SDK periodically delivers; it is not related to flag evaluation.
func (client *LDClient) Identify(context ldcontext.Context) error {
	if client.eventsDefault.disabled {
		return nil
	}
	if err := context.Err(); err != nil {
		client.loggers.Warnf("Identify called with invalid context: %s", err)
		return nil // Don't return an error value because we didn't in the past and it might confuse users
	}
	evt := client.eventsDefault.factory.NewIdentifyEvent(context)
	client.eventProcessor.SendEvent(evt)
	return nil
}

// TrackEvent reports an event associated with an evaluation context, with no custom data.
//
// The eventName normally corresponds to a goal or metric that the application wants to
// measure.
func (client *LDClient) TrackEvent(eventName string, context ldcontext.Context) error {
	return client.TrackData(eventName, context, ldvalue.Null())
}

// TrackData reports an event associated with an evaluation context, with custom data.
func (client *LDClient) TrackData(eventName string, context ldcontext.Context, data ldvalue.Value) error {
	if client.eventsDefault.disabled {
		return nil
	}
	if err := context.Err(); err != nil {
		client.loggers.Warnf("Track called with invalid context: %s", err)
		return nil // Don't return an error value because we didn't in the past and it might confuse users
	}
	client.eventProcessor.SendEvent(
		client.eventsDefault.factory.NewCustomEvent(eventName, context, data, false, 0))
	return nil
}

// TrackMetric reports a numeric metric value associated with an evaluation context, with
// optional custom data.
func (client *LDClient) TrackMetric(
	eventName string,
	context ldcontext.Context,
	metricValue float64,
	data ldvalue.Value,
) error {
	if client.eventsDefault.disabled {
		return nil
	}
	if err := context.Err(); err != nil {
		client.loggers.Warnf("TrackMetric called with invalid context: %s", err)
		return nil // Don't return an error value because we didn't in the past and it might confuse users
	}
	client.eventProcessor.SendEvent(
		client.eventsDefault.factory.NewCustomEvent(eventName, context, data, true, metricValue))
	return nil
}

// TrackMigrationOp reports the measurements collected by a migration operation tracker. The
// tracker is obtained from MigrationVariation.
func (client *LDClient) TrackMigrationOp(tracker *ldmigration.OpTracker) error {
	if tracker == nil {
		return errors.New("tracker was nil")
	}
	event, err := tracker.Build()
	if err != nil {
		return fmt.Errorf("tracker was in an inconsistent state: %w", err)
	}
	if !client.eventsDefault.disabled {
		client.eventProcessor.SendEvent(event)
	}
	return nil
}

// MigrationVariation evaluates a migration flag for the given context and returns the stage
// to use for a migration operation, along with a tracker for recording the operation's
// measurements. After executing the operation, pass the tracker to TrackMigrationOp.
//
// If the flag is missing or does not evaluate to a valid stage, the default stage is
// returned.
func (client *LDClient) MigrationVariation(
	key string,
	context ldcontext.Context,
	defaultStage ldmigration.Stage,
) (ldmigration.Stage, *ldmigration.OpTracker, error) {
	detail, flag, err := client.evaluateInternal(
		key, context, ldvalue.String(string(defaultStage)), client.eventsDefault)
	stage := defaultStage
	if err == nil {
		if parsed, parseErr := ldmigration.ParseStage(detail.Value.StringValue()); parseErr == nil {
			stage = parsed
		} else {
			err = fmt.Errorf("%q is not a valid stage; continuing with default stage %q",
				detail.Value.StringValue(), defaultStage)
			detail = ldreason.NewEvaluationDetailForError(
				ldreason.EvalErrorWrongType, ldvalue.String(string(defaultStage)))
		}
	}
	tracker := ldmigration.NewOpTracker(key, flag, context, detail, defaultStage)
	return stage, tracker, err
}

// BoolVariation returns the value of a boolean feature flag for a given evaluation context.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or if the flag's value
// is not a boolean.
func (client *LDClient) BoolVariation(key string, context ldcontext.Context, defaultVal bool) (bool, error) {
	detail, err := client.variationWithType(
		key, context, ldvalue.Bool(defaultVal), ldvalue.BoolType, client.eventsDefault)
	return detail.Value.BoolValue(), err
}

// BoolVariationDetail is the same as BoolVariation, but also returns further information
// about how the value was calculated. The "reason" data will also be included in analytics
// events.
func (client *LDClient) BoolVariationDetail(
	key string,
	context ldcontext.Context,
	defaultVal bool,
) (bool, ldreason.EvaluationDetail, error) {
	detail, err := client.variationWithType(
		key, context, ldvalue.Bool(defaultVal), ldvalue.BoolType, client.eventsWithReasons)
	return detail.Value.BoolValue(), detail, err
}

// IntVariation returns the value of a feature flag (whose variations are integers) for the
// given evaluation context.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or if the flag's value
// is not numeric. If the flag variation has a numeric value that is not an integer, it is
// rounded toward zero.
func (client *LDClient) IntVariation(key string, context ldcontext.Context, defaultVal int) (int, error) {
	detail, err := client.variationWithType(
		key, context, ldvalue.Int(defaultVal), ldvalue.NumberType, client.eventsDefault)
	return detail.Value.IntValue(), err
}

// IntVariationDetail is the same as IntVariation, but also returns further information about
// how the value was calculated.
func (client *LDClient) IntVariationDetail(
	key string,
	context ldcontext.Context,
	defaultVal int,
) (int, ldreason.EvaluationDetail, error) {
	detail, err := client.variationWithType(
		key, context, ldvalue.Int(defaultVal), ldvalue.NumberType, client.eventsWithReasons)
	return detail.Value.IntValue(), detail, err
}

// Float64Variation returns the value of a feature flag (whose variations are numbers) for
// the given evaluation context.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or if the flag's value
// is not numeric.
func (client *LDClient) Float64Variation(
	key string,
	context ldcontext.Context,
	defaultVal float64,
) (float64, error) {
	detail, err := client.variationWithType(
		key, context, ldvalue.Float64(defaultVal), ldvalue.NumberType, client.eventsDefault)
	return detail.Value.Float64Value(), err
}

// Float64VariationDetail is the same as Float64Variation, but also returns further
// information about how the value was calculated.
func (client *LDClient) Float64VariationDetail(
	key string,
	context ldcontext.Context,
	defaultVal float64,
) (float64, ldreason.EvaluationDetail, error) {
	detail, err := client.variationWithType(
		key, context, ldvalue.Float64(defaultVal), ldvalue.NumberType, client.eventsWithReasons)
	return detail.Value.Float64Value(), detail, err
}

// StringVariation returns the value of a feature flag (whose variations are strings) for the
// given evaluation context.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or if the flag's value
// is not a string.
func (client *LDClient) StringVariation(
	key string,
	context ldcontext.Context,
	defaultVal string,
) (string, error) {
	detail, err := client.variationWithType(
		key, context, ldvalue.String(defaultVal), ldvalue.StringType, client.eventsDefault)
	return detail.Value.StringValue(), err
}

// StringVariationDetail is the same as StringVariation, but also returns further information
// about how the value was calculated.
func (client *LDClient) StringVariationDetail(
	key string,
	context ldcontext.Context,
	defaultVal string,
) (string, ldreason.EvaluationDetail, error) {
	detail, err := client.variationWithType(
		key, context, ldvalue.String(defaultVal), ldvalue.StringType, client.eventsWithReasons)
	return detail.Value.StringValue(), detail, err
}

// JSONVariation returns the value of a feature flag for the given evaluation context,
// allowing the value to be of any JSON type.
//
// The value is returned as an ldvalue.Value, which can be inspected or converted to other
// types with methods such as BoolValue() and AsOptionalString().
func (client *LDClient) JSONVariation(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
) (ldvalue.Value, error) {
	detail, _, err := client.evaluateInternal(key, context, defaultVal, client.eventsDefault)
	return detail.Value, err
}

// JSONVariationDetail is the same as JSONVariation, but also returns further information
// about how the value was calculated.
func (client *LDClient) JSONVariationDetail(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
) (ldvalue.Value, ldreason.EvaluationDetail, error) {
	detail, _, err := client.evaluateInternal(key, context, defaultVal, client.eventsWithReasons)
	return detail.Value, detail, err
}

// AllFlagsState returns an object that encapsulates the state of all feature flags for a
// given evaluation context. This includes the flag values, and also metadata that can be
// used on the front end.
//
// The most common use case for this method is to bootstrap a set of client-side feature
// flags from a back-end service.
//
// You may pass any combination of flagstate.OptionClientSideOnly,
// flagstate.OptionWithReasons, and flagstate.OptionDetailsOnlyForTrackedFlags to control
// what data is included.
func (client *LDClient) AllFlagsState(
	context ldcontext.Context,
	options ...flagstate.Option,
) flagstate.AllFlags {
	valid := true
	if client.IsOffline() {
		client.loggers.Warn("Called AllFlagsState in offline mode. Returning empty state")
		valid = false
	} else if !client.Initialized() {
		if client.store.IsInitialized() {
			client.loggers.Warn("Called AllFlagsState before client initialization; using last known values from data store")
		} else {
			client.loggers.Warn("Called AllFlagsState before client initialization. Data store not available; returning empty state")
			valid = false
		}
	}
	if err := context.Err(); err != nil {
		client.loggers.Warnf("Called AllFlagsState with invalid context: %s", err)
		valid = false
	}
	if !valid {
		return flagstate.NewAllFlagsBuilder().Valid(false).Build()
	}

	items, err := client.store.GetAll(interfaces.DataKindFeatures())
	if err != nil {
		client.loggers.Warn("Unable to fetch flags from data store. Returning empty state. Error: " + err.Error())
		return flagstate.NewAllFlagsBuilder().Valid(false).Build()
	}

	clientSideOnly := flagstate.HasOptionClientSideOnly(options)
	builder := flagstate.NewAllFlagsBuilder(options...)
	for _, item := range items {
		if item.Item.Item == nil {
			continue
		}
		if flag, ok := item.Item.Item.(*ldmodel.FeatureFlag); ok {
			if clientSideOnly && !flag.ClientSideAvailability.UsingEnvironmentID {
				continue
			}
			detail := client.evaluator.Evaluate(flag, context, nil)
			requireExperimentData := flag.IsExperimentationEnabled(detail.Reason)
			builder.AddFlag(flag.Key, flagstate.FlagState{
				Value:                detail.Value,
				Variation:            detail.VariationIndex,
				Version:              flag.Version,
				Reason:               detail.Reason,
				TrackEvents:          flag.TrackEvents || requireExperimentData,
				TrackReason:          requireExperimentData,
				DebugEventsUntilDate: flag.DebugEventsUntilDate,
			})
		}
	}
	return builder.Build()
}

// GetDataSourceStatusProvider returns an interface for tracking the status of the data
// source, which receives feature flag data from the streaming or polling service.
func (client *LDClient) GetDataSourceStatusProvider() interfaces.DataSourceStatusProvider {
	return client.dataSourceStatusProvider
}

// GetDataStoreStatusProvider returns an interface for tracking the status of a persistent
// data store, if one is in use.
func (client *LDClient) GetDataStoreStatusProvider() interfaces.DataStoreStatusProvider {
	return client.dataStoreStatusProvider
}

// GetBigSegmentStoreStatusProvider returns an interface for tracking the status of the Big
// Segment store, if one is in use.
func (client *LDClient) GetBigSegmentStoreStatusProvider() interfaces.BigSegmentStoreStatusProvider {
	return client.bigSegmentStoreStatusProvider
}

// GetFlagTracker returns an interface for subscribing to feature flag configuration or value
// changes.
func (client *LDClient) GetFlagTracker() interfaces.FlagTracker {
	return client.flagTracker
}

func (client *LDClient) variationWithType(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
	expectedType ldvalue.ValueType,
	eventsScope eventsScope,
) (ldreason.EvaluationDetail, error) {
	result, _, err := client.evaluateInternal(key, context, defaultVal, eventsScope)
	if err == nil && result.Value.Type() != expectedType && !result.Value.IsNull() {
		result = ldreason.NewEvaluationDetailForError(ldreason.EvalErrorWrongType, defaultVal)
		err = fmt.Errorf("flag %q did not have expected type %s", key, expectedType)
	}
	return result, err
}

// Performs all the steps of evaluation except for converting the result to the desired type.
func (client *LDClient) evaluateInternal(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
	eventsScope eventsScope,
) (ldreason.EvaluationDetail, *ldmodel.FeatureFlag, error) {
	if err := context.Err(); err != nil {
		client.loggers.Warnf("Context was invalid and evaluation of flag %q could not proceed: %s", key, err)
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorUserNotSpecified, defaultVal), nil, err
	}

	if client.IsOffline() {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorClientNotReady, defaultVal), nil, nil
	}

	if !client.Initialized() {
		if client.store.IsInitialized() {
			client.loggers.Warn("Feature flag evaluation called before client initialized; using last known values from data store")
		} else {
			client.loggers.Warn("Feature flag evaluation called before client initialized; data store unavailable, returning default value")
			return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorClientNotReady, defaultVal),
				nil, ErrClientNotInitialized
		}
	}

	itemDesc, storeErr := client.store.Get(interfaces.DataKindFeatures(), key)
	if storeErr != nil {
		client.loggers.Errorf("Encountered error fetching feature from store: %+v", storeErr)
		detail := ldreason.NewEvaluationDetailForError(ldreason.EvalErrorException, defaultVal)
		client.sendUnknownFlagEvent(key, context, defaultVal, detail.Reason, eventsScope)
		return detail, nil, storeErr
	}

	if itemDesc.Item == nil {
		err := fmt.Errorf("unknown feature key: %s; verify that this feature key exists", key)
		if client.logEvaluationErrors {
			client.loggers.Warnf("%s", err)
		}
		detail := ldreason.NewEvaluationDetailForError(ldreason.EvalErrorFlagNotFound, defaultVal)
		client.sendUnknownFlagEvent(key, context, defaultVal, detail.Reason, eventsScope)
		return detail, nil, err
	}

	feature, ok := itemDesc.Item.(*ldmodel.FeatureFlag)
	if !ok {
		err := fmt.Errorf("unexpected data type (%T) found in store for feature key: %s", itemDesc.Item, key)
		client.loggers.Error(err)
		detail := ldreason.NewEvaluationDetailForError(ldreason.EvalErrorException, defaultVal)
		client.sendUnknownFlagEvent(key, context, defaultVal, detail.Reason, eventsScope)
		return detail, nil, err
	}

	detail := client.evaluator.Evaluate(feature, context, eventsScope.prerequisiteEventRecorder)
	if detail.Reason.GetKind() == ldreason.EvalReasonError && client.logEvaluationErrors {
		client.loggers.Warnf("Flag evaluation for %s failed with error %s, default value was returned",
			key, detail.Reason.GetErrorKind())
	}
	if detail.IsDefaultValue() {
		detail.Value = defaultVal
	}
	if !eventsScope.disabled {
		client.eventProcessor.SendEvent(
			eventsScope.factory.NewEvalEvent(feature, context, detail, defaultVal, ""))
	}
	return detail, feature, nil
}

func (client *LDClient) sendUnknownFlagEvent(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
	eventsScope eventsScope,
) {
	if eventsScope.disabled {
		return
	}
	client.eventProcessor.SendEvent(
		eventsScope.factory.NewUnknownFlagEvent(key, context, defaultVal, reason))
}
