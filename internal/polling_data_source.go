package internal

import (
	"sync"
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldlog"
)

const (
	pollingErrorContext     = "on polling request"
	pollingWillRetryMessage = "will retry at next scheduled poll interval"
)

// PollConfig holds the parameters of the polling data source.
type PollConfig struct {
	// BaseURI is the base URI of the polling service.
	BaseURI string
	// PollInterval is the time between polling requests.
	PollInterval time.Duration
	// PayloadFilter is an optional filter key limiting the data set served by the service.
	PayloadFilter string
}

// PollingProcessor is the internal implementation of the polling data source.
//
// It is exported so that the PollingDataSourceBuilder tests can inspect its configuration;
// everything else should use it only through the DataSource interface.
type PollingProcessor struct {
	updates         interfaces.DataSourceUpdates
	source          dataRequester
	config          PollConfig
	loggers         ldlog.Loggers
	initializedOnce sync.Once
	isInitialized   bool
	stopCh          chan struct{}
	closeOnce       sync.Once
}

// NewPollingProcessor creates the internal implementation of the polling data source.
func NewPollingProcessor(
	context interfaces.ClientContext,
	dataSourceUpdates interfaces.DataSourceUpdates,
	config PollConfig,
) *PollingProcessor {
	source := newPollingRequester(context, context.GetHTTP().CreateHTTPClient(), config.BaseURI, config.PayloadFilter)
	return newPollingProcessor(context, dataSourceUpdates, source, config)
}

func newPollingProcessor(
	context interfaces.ClientContext,
	dataSourceUpdates interfaces.DataSourceUpdates,
	source dataRequester,
	config PollConfig,
) *PollingProcessor {
	return &PollingProcessor{
		updates: dataSourceUpdates,
		source:  source,
		config:  config,
		loggers: context.GetLogging().GetLoggers(),
		stopCh:  make(chan struct{}),
	}
}

// Start begins polling in the background.
func (pp *PollingProcessor) Start(closeWhenReady chan<- struct{}) {
	pp.loggers.Infof("Starting polling with interval: %+v", pp.config.PollInterval)

	ticker := newImmediateTicker(pp.config.PollInterval)

	go func() {
		defer ticker.Stop()

		var readyOnce sync.Once
		notifyReady := func() {
			readyOnce.Do(func() {
				close(closeWhenReady)
			})
		}
		// Client initialization must stop waiting even if the loop exits on a failure.
		defer notifyReady()

		for {
			select {
			case <-pp.stopCh:
				pp.loggers.Info("Polling has been shut down")
				return
			case <-ticker.C:
				err := pp.poll()
				if err == nil {
					pp.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{})
					pp.initializedOnce.Do(func() {
						pp.isInitialized = true
						pp.loggers.Info("First polling request successful")
						notifyReady()
					})
					continue
				}
				if !pp.handlePollError(err) {
					notifyReady()
					return
				}
			}
		}
	}()
}

// handlePollError reports a failed poll through the status mechanism. The return value is
// false if the error is permanent and polling must stop.
func (pp *PollingProcessor) handlePollError(err error) bool {
	if hse, ok := err.(httpStatusError); ok {
		errorInfo := interfaces.DataSourceErrorInfo{
			Kind:       interfaces.DataSourceErrorKindErrorResponse,
			StatusCode: hse.Code,
			Time:       time.Now(),
		}
		recoverable := checkIfErrorIsRecoverableAndLog(
			pp.loggers,
			httpErrorDescription(hse.Code),
			pollingErrorContext,
			hse.Code,
			pollingWillRetryMessage,
		)
		if !recoverable {
			pp.updates.UpdateStatus(interfaces.DataSourceStateOff, errorInfo)
			return false
		}
		pp.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, errorInfo)
		return true
	}

	errorInfo := interfaces.DataSourceErrorInfo{
		Kind:    interfaces.DataSourceErrorKindNetworkError,
		Message: err.Error(),
		Time:    time.Now(),
	}
	if _, ok := err.(malformedJSONError); ok {
		errorInfo.Kind = interfaces.DataSourceErrorKindInvalidData
	}
	checkIfErrorIsRecoverableAndLog(pp.loggers, err.Error(), pollingErrorContext, 0, pollingWillRetryMessage)
	pp.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, errorInfo)
	return true
}

func (pp *PollingProcessor) poll() error {
	data, cached, err := pp.source.fetchAll()
	if err != nil {
		return err
	}
	// A cached response means nothing has changed since the last poll, so the store is
	// already current.
	if !cached {
		pp.updates.Init(makeAllStoreData(data.Flags, data.Segments))
	}
	return nil
}

// Close shuts down the poller.
func (pp *PollingProcessor) Close() error {
	pp.closeOnce.Do(func() {
		close(pp.stopCh)
	})
	return nil
}

// IsInitialized returns true once the poller has successfully retrieved data.
func (pp *PollingProcessor) IsInitialized() bool {
	return pp.isInitialized
}

// GetConfig returns the polling parameters, for testing.
func (pp *PollingProcessor) GetConfig() PollConfig {
	return pp.config
}

// immediateTicker behaves like time.Ticker but also fires once as soon as it is created,
// so the first poll does not wait a full interval.
type immediateTicker struct {
	*time.Ticker
	C <-chan time.Time
}

func newImmediateTicker(interval time.Duration) *immediateTicker {
	c := make(chan time.Time)
	ticker := time.NewTicker(interval)
	go func() {
		c <- time.Now()
		for tt := range ticker.C {
			c <- tt
		}
	}()
	return &immediateTicker{
		C:      c,
		Ticker: ticker,
	}
}
