package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	es "github.com/launchdarkly/eventsource"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldevents"
	"github.com/flagmill/go-server-sdk/ldlog"
	"github.com/flagmill/go-server-sdk/ldtime"
)

// The streaming data source, built on the eventsource SSE client.
//
// Failure handling:
//   - A malformed event means updates may have been missed, so the state becomes
//     INTERRUPTED with an INVALID_DATA error and the stream is restarted.
//   - A data store write failure is reported (and logged) by DataSourceUpdatesImpl. If the
//     store supports status monitoring, we wait for its recovery notification, which tells
//     us whether the missed updates were cached or the stream must be restarted. If it
//     doesn't, we must assume updates were lost and restart the stream.
//   - HTTP errors that cannot succeed on retry (401 and the like) close the stream for good
//     and set the state to OFF. Every other HTTP or network error retries with backoff in
//     the INTERRUPTED state.
//   - closeWhenReady is closed on the first definitive outcome, success or permanent
//     failure, so that client initialization stops waiting. Retrying continues in the
//     background either way.

const (
	eventTypePut    = "put"
	eventTypePatch  = "patch"
	eventTypeDelete = "delete"

	streamReadTimeout        = 5 * time.Minute // comfortably above the service's heartbeat interval
	streamMaxRetryDelay      = 30 * time.Second
	streamRetryResetInterval = 60 * time.Second
	streamJitterRatio        = 0.5
	defaultStreamRetryDelay  = 1 * time.Second

	streamingErrorContext     = "in stream connection"
	streamingWillRetryMessage = "will retry"
)

// StreamConfig holds the parameters of the streaming data source.
type StreamConfig struct {
	// URI is the base URI of the streaming service.
	URI string
	// InitialReconnectDelay is the delay before the first reconnection attempt; later
	// attempts back off from there.
	InitialReconnectDelay time.Duration
	// PayloadFilter is an optional filter key limiting the data set served by the stream.
	PayloadFilter string
}

// StreamProcessor is the internal implementation of the streaming data source.
//
// It is exported so that the StreamingDataSourceBuilder tests can inspect its
// configuration; everything else should use it only through the DataSource interface.
type StreamProcessor struct {
	config             StreamConfig
	updates            interfaces.DataSourceUpdates
	client             *http.Client
	headers            http.Header
	diagnosticsManager *ldevents.DiagnosticsManager
	loggers            ldlog.Loggers
	initializedOnce    sync.Once
	isInitialized      bool
	stopCh             chan struct{}
	storeStatusCh      <-chan interfaces.DataStoreStatus
	attemptStartTime   ldtime.UnixMillisecondTime
	attemptLock        sync.Mutex
	readyOnce          sync.Once
	closeOnce          sync.Once
}

type putMessage struct {
	Path string  `json:"path"`
	Data allData `json:"data"`
}

type patchMessage struct {
	Path string `json:"path"`
	// A flag or a segment, depending on the path.
	Data json.RawMessage `json:"data"`
}

type deleteMessage struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

// NewStreamProcessor creates the internal implementation of the streaming data source.
func NewStreamProcessor(
	context interfaces.ClientContext,
	dataSourceUpdates interfaces.DataSourceUpdates,
	config StreamConfig,
) *StreamProcessor {
	sp := &StreamProcessor{
		config:  config,
		updates: dataSourceUpdates,
		headers: context.GetHTTP().GetDefaultHeaders(),
		loggers: context.GetLogging().GetLoggers(),
		stopCh:  make(chan struct{}),
	}
	if hdm, ok := context.(HasDiagnosticsManager); ok {
		sp.diagnosticsManager = hdm.GetDiagnosticsManager()
	}

	sp.client = context.GetHTTP().CreateHTTPClient()
	// Client.Timeout would cut off the response body after that much time, and a stream
	// response never ends. The connection timeout lives on the Dialer instead.
	sp.client.Timeout = 0

	return sp
}

// IsInitialized returns true once the stream has stored an initial data set.
func (sp *StreamProcessor) IsInitialized() bool {
	return sp.isInitialized
}

// Start begins the streaming connection in the background.
func (sp *StreamProcessor) Start(closeWhenReady chan<- struct{}) {
	sp.loggers.Info("Starting streaming connection")
	if sp.updates.GetDataStoreStatusProvider().IsStatusMonitoringEnabled() {
		sp.storeStatusCh = sp.updates.GetDataStoreStatusProvider().AddStatusListener()
	}
	go sp.subscribe(closeWhenReady)
}

type parsedPath struct {
	key  string
	kind interfaces.StoreDataKind
}

func parsePath(path string) (parsedPath, error) {
	switch {
	case strings.HasPrefix(path, "/segments/"):
		return parsedPath{kind: interfaces.DataKindSegments(), key: strings.TrimPrefix(path, "/segments/")}, nil
	case strings.HasPrefix(path, "/flags/"):
		return parsedPath{kind: interfaces.DataKindFeatures(), key: strings.TrimPrefix(path, "/flags/")}, nil
	default:
		return parsedPath{}, fmt.Errorf("unrecognized path %s", path)
	}
}

// eventOutcome describes what consumeStream should do after one stream event.
type eventOutcome struct {
	valid   bool // the event was processed and the data source is in a good state
	restart bool // the stream must be restarted
}

func (sp *StreamProcessor) consumeStream(stream *es.Stream, closeWhenReady chan<- struct{}) {
	// Drain the stream's channels on the way out so its goroutines can finish.
	defer func() {
		for range stream.Events {
		}
		if stream.Errors != nil {
			for range stream.Errors {
			}
		}
	}()

	for {
		select {
		case event, ok := <-stream.Events:
			if !ok {
				// Only an external shutdown closes the channel without an error first.
				sp.loggers.Info("Event stream closed")
				return
			}
			sp.noteConnectionOutcome(true)

			outcome := sp.applyEvent(event, closeWhenReady)
			if outcome.valid {
				sp.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{})
			}
			if outcome.restart {
				stream.Restart()
			}

		case storeStatus := <-sp.storeStatusCh:
			if sp.loggers.IsDebugEnabled() {
				sp.loggers.Debugf("StreamProcessor received store status update: %+v", storeStatus)
			}
			if storeStatus.Available {
				if storeStatus.NeedsRefresh {
					// The store cannot guarantee that it has all the updates we received
					// while it was down, so only a full stream refresh makes it current.
					sp.loggers.Warn("Restarting stream to refresh data after data store outage")
					stream.Restart()
				}
				// Whether or not a restart was needed, the client can be considered
				// initialized now, in case storing the initial "put" was what failed.
				sp.markReady(true, closeWhenReady)
			}

		case <-sp.stopCh:
			stream.Close()
			return
		}
	}
}

func (sp *StreamProcessor) applyEvent(event es.Event, closeWhenReady chan<- struct{}) eventOutcome {
	badEvent := func(err error) eventOutcome {
		sp.loggers.Errorf(
			"Received streaming \"%s\" event with malformed JSON data (%s); will restart stream",
			event.Event(),
			err,
		)
		sp.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
			Kind:    interfaces.DataSourceErrorKindInvalidData,
			Message: err.Error(),
			Time:    time.Now(),
		})
		return eventOutcome{}
	}

	// When a store write fails and the store reports status changes, its recovery
	// notification will tell us what to do; otherwise the only safe move is a restart.
	storeFailed := func(updateDesc string) eventOutcome {
		if sp.storeStatusCh != nil {
			sp.loggers.Errorf("Failed to store %s in data store; will try again once data store is working", updateDesc)
			return eventOutcome{valid: true}
		}
		sp.loggers.Errorf("Failed to store %s in data store; will restart stream until successful", updateDesc)
		return eventOutcome{restart: true}
	}

	switch event.Event() {
	case eventTypePut:
		var put putMessage
		if err := json.Unmarshal([]byte(event.Data()), &put); err != nil {
			return badEvent(err)
		}
		if !sp.updates.Init(makeAllStoreData(put.Data.Flags, put.Data.Segments)) {
			return storeFailed("initial streaming data")
		}
		sp.markReady(true, closeWhenReady)
		return eventOutcome{valid: true}

	case eventTypePatch:
		var patch patchMessage
		if err := json.Unmarshal([]byte(event.Data()), &patch); err != nil {
			return badEvent(err)
		}
		path, err := parsePath(patch.Path)
		if err != nil {
			return badEvent(err)
		}
		item, err := path.kind.Deserialize(patch.Data)
		if err != nil {
			return badEvent(err)
		}
		if !sp.updates.Upsert(path.kind, path.key, item) {
			return storeFailed("streaming update of " + path.key)
		}
		return eventOutcome{valid: true}

	case eventTypeDelete:
		var del deleteMessage
		if err := json.Unmarshal([]byte(event.Data()), &del); err != nil {
			return badEvent(err)
		}
		path, err := parsePath(del.Path)
		if err != nil {
			return badEvent(err)
		}
		tombstone := interfaces.StoreItemDescriptor{Version: del.Version, Item: nil}
		if !sp.updates.Upsert(path.kind, path.key, tombstone) {
			return storeFailed("streaming deletion of " + path.key)
		}
		return eventOutcome{valid: true}

	default:
		sp.loggers.Infof("Ignoring unknown stream event type %q", event.Event())
		return eventOutcome{valid: true}
	}
}

func (sp *StreamProcessor) subscribe(closeWhenReady chan<- struct{}) {
	req, _ := http.NewRequest("GET", endpointURI(sp.config.URI, "all", sp.config.PayloadFilter), nil)
	for k, vv := range sp.headers {
		req.Header[k] = vv
	}
	sp.loggers.Info("Connecting to data stream")

	sp.noteConnectionStart()

	initialRetryDelay := sp.config.InitialReconnectDelay
	if initialRetryDelay <= 0 {
		initialRetryDelay = defaultStreamRetryDelay
	}

	errorHandler := func(err error) es.StreamErrorHandlerResult {
		sp.noteConnectionOutcome(false)

		if se, ok := err.(es.SubscriptionError); ok {
			errorInfo := interfaces.DataSourceErrorInfo{
				Kind:       interfaces.DataSourceErrorKindErrorResponse,
				StatusCode: se.Code,
				Time:       time.Now(),
			}
			recoverable := checkIfErrorIsRecoverableAndLog(
				sp.loggers,
				httpErrorDescription(se.Code),
				streamingErrorContext,
				se.Code,
				streamingWillRetryMessage,
			)
			if recoverable {
				sp.noteConnectionStart()
				sp.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, errorInfo)
				return es.StreamErrorHandlerResult{CloseNow: false}
			}
			sp.updates.UpdateStatus(interfaces.DataSourceStateOff, errorInfo)
			return es.StreamErrorHandlerResult{CloseNow: true}
		}

		checkIfErrorIsRecoverableAndLog(
			sp.loggers,
			err.Error(),
			streamingErrorContext,
			0,
			streamingWillRetryMessage,
		)
		sp.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
			Kind:    interfaces.DataSourceErrorKindNetworkError,
			Message: err.Error(),
			Time:    time.Now(),
		})
		sp.noteConnectionStart()
		return es.StreamErrorHandlerResult{CloseNow: false}
	}

	stream, err := es.SubscribeWithRequestAndOptions(req,
		es.StreamOptionHTTPClient(sp.client),
		es.StreamOptionReadTimeout(streamReadTimeout),
		es.StreamOptionInitialRetry(initialRetryDelay),
		es.StreamOptionUseBackoff(streamMaxRetryDelay),
		es.StreamOptionUseJitter(streamJitterRatio),
		es.StreamOptionRetryResetInterval(streamRetryResetInterval),
		es.StreamOptionErrorHandler(errorHandler),
		es.StreamOptionCanRetryFirstConnection(-1),
		es.StreamOptionLogger(sp.loggers.ForLevel(ldlog.Info)),
	)

	if err != nil {
		sp.noteConnectionOutcome(false)
		close(closeWhenReady)
		return
	}

	sp.consumeStream(stream, closeWhenReady)
}

func (sp *StreamProcessor) markReady(success bool, closeWhenReady chan<- struct{}) {
	if success {
		sp.initializedOnce.Do(func() {
			sp.loggers.Info("Streaming connection is active")
			sp.isInitialized = true
		})
	}
	sp.readyOnce.Do(func() {
		close(closeWhenReady)
	})
}

func (sp *StreamProcessor) noteConnectionStart() {
	sp.attemptLock.Lock()
	defer sp.attemptLock.Unlock()
	sp.attemptStartTime = ldtime.UnixMillisNow()
}

func (sp *StreamProcessor) noteConnectionOutcome(success bool) {
	sp.attemptLock.Lock()
	startTimeWas := sp.attemptStartTime
	sp.attemptStartTime = 0
	sp.attemptLock.Unlock()

	if startTimeWas > 0 && sp.diagnosticsManager != nil {
		timestamp := ldtime.UnixMillisNow()
		sp.diagnosticsManager.RecordStreamInit(timestamp, !success, uint64(timestamp-startTimeWas))
	}
}

// Close shuts down the stream.
func (sp *StreamProcessor) Close() error {
	sp.closeOnce.Do(func() {
		sp.loggers.Info("Closing event stream")
		close(sp.stopCh)
		if sp.storeStatusCh != nil {
			sp.updates.GetDataStoreStatusProvider().RemoveStatusListener(sp.storeStatusCh)
		}
		sp.updates.UpdateStatus(interfaces.DataSourceStateOff, interfaces.DataSourceErrorInfo{})
	})
	return nil
}

// GetConfig returns the stream parameters, for testing.
func (sp *StreamProcessor) GetConfig() StreamConfig {
	return sp.config
}

// endpointURI joins a base URI and a path, appending a filter query parameter when a
// payload filter key is configured.
func endpointURI(base string, path string, payloadFilter string) string {
	uri := strings.TrimRight(base, "/")
	if path != "" {
		uri += "/" + strings.TrimLeft(path, "/")
	}
	if payloadFilter != "" {
		uri += "?filter=" + url.QueryEscape(payloadFilter)
	}
	return uri
}
