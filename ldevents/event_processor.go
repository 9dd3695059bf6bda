package ldevents

import (
	"sync"
	"time"

	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldlog"
	"github.com/flagmill/go-server-sdk/ldtime"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// Payload of the inbox channel.
type eventDispatcherMessage interface{}

type sendEventMessage struct {
	event Event
}

type flushEventsMessage struct {
	replyCh chan struct{}
}

type shutdownEventsMessage struct {
	replyCh chan struct{}
}

type syncEventsMessage struct {
	replyCh chan struct{}
}

const maxFlushWorkers = 5

type defaultEventProcessor struct {
	inboxCh       chan eventDispatcherMessage
	inboxFullOnce sync.Once
	closeOnce     sync.Once
	loggers       ldlog.Loggers
}

type eventDispatcher struct {
	config               EventsConfiguration
	lastKnownPastTime    ldtime.UnixMillisecondTime
	deduplicatedContexts int
	eventsInLastBatch    int
	disabled             bool
	currentTimestampFn   func() ldtime.UnixMillisecondTime
	stateLock            sync.Mutex
}

type flushPayload struct {
	events  []Event
	summary eventSummary
}

// NewDefaultEventProcessor creates an instance of the default implementation of analytics
// event processing.
func NewDefaultEventProcessor(config EventsConfiguration) EventProcessor {
	if config.Capacity <= 0 {
		config.Capacity = DefaultEventCapacity
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.ContextKeysCapacity <= 0 {
		config.ContextKeysCapacity = DefaultContextKeysCapacity
	}
	if config.ContextKeysFlushInterval <= 0 {
		config.ContextKeysFlushInterval = DefaultContextKeysFlushInterval
	}
	if config.DiagnosticRecordingInterval <= 0 {
		config.DiagnosticRecordingInterval = DefaultDiagnosticRecordingInterval
	} else if config.DiagnosticRecordingInterval < MinimumDiagnosticRecordingInterval &&
		!config.forceDiagnosticRecordingInterval {
		config.DiagnosticRecordingInterval = MinimumDiagnosticRecordingInterval
	}
	inboxCh := make(chan eventDispatcherMessage, config.Capacity)
	startEventDispatcher(config, inboxCh)
	return &defaultEventProcessor{
		inboxCh: inboxCh,
		loggers: config.Loggers,
	}
}

func (ep *defaultEventProcessor) SendEvent(e Event) {
	ep.postNonBlockingMessageToInbox(sendEventMessage{event: e})
}

func (ep *defaultEventProcessor) Flush() {
	ep.postNonBlockingMessageToInbox(flushEventsMessage{})
}

func (ep *defaultEventProcessor) postNonBlockingMessageToInbox(message eventDispatcherMessage) {
	select {
	case ep.inboxCh <- message:
		return
	default: // COVERAGE: no way to simulate this condition in unit tests
	}
	// If the inbox is full, it means the dispatcher is seriously backed up with not-yet-processed
	// events. This is unlikely, but if it happens, it means the application is probably doing a ton
	// of flag evaluations across many goroutines, so that even all of our dispatcher's work is just
	// pulling events off of this channel. Log a warning the first time this happens.
	ep.inboxFullOnce.Do(func() { // COVERAGE: no way to simulate this condition in unit tests
		ep.loggers.Warn("Events are being produced faster than they can be processed; some events will be dropped")
	})
}

func (ep *defaultEventProcessor) Close() error {
	ep.closeOnce.Do(func() {
		// We put the flush and shutdown messages directly into the channel instead of calling
		// postNonBlockingMessageToInbox, because we *do* want to block to make sure the messages
		// are received.
		ep.inboxCh <- flushEventsMessage{}
		m := shutdownEventsMessage{replyCh: make(chan struct{})}
		ep.inboxCh <- m
		<-m.replyCh
	})
	return nil
}

func startEventDispatcher(
	config EventsConfiguration,
	inboxCh <-chan eventDispatcherMessage,
) {
	d := &eventDispatcher{
		config:             config,
		currentTimestampFn: config.currentTimeProvider,
	}
	if d.currentTimestampFn == nil {
		d.currentTimestampFn = ldtime.UnixMillisNow
	}

	// Start a fixed-size pool of workers that wait on flushTriggerCh. This is the
	// maximum number of flushes we can do concurrently.
	flushCh := make(chan *flushPayload, 1)
	var workersGroup sync.WaitGroup
	for i := 0; i < maxFlushWorkers; i++ {
		go runFlushTask(config, flushCh, &workersGroup, d.handleResult)
	}
	if config.DiagnosticsManager != nil {
		event := config.DiagnosticsManager.CreateInitEvent()
		d.sendDiagnosticsEvent(event)
	}
	go d.runMainLoop(inboxCh, flushCh, &workersGroup)
}

func (d *eventDispatcher) runMainLoop(
	inboxCh <-chan eventDispatcherMessage,
	flushCh chan<- *flushPayload,
	workersGroup *sync.WaitGroup,
) {
	if err := recover(); err != nil { // COVERAGE: no way to simulate this condition in unit tests
		d.config.Loggers.Errorf("Unexpected panic in event processing thread: %+v", err)
	}

	outbox := newEventsOutbox(d.config.Capacity, d.config.Loggers)
	contextKeys := newLruCache(d.config.ContextKeysCapacity)

	flushInterval := d.config.FlushInterval
	contextKeysFlushInterval := d.config.ContextKeysFlushInterval
	flushTicker := time.NewTicker(flushInterval)
	contextKeysFlushTicker := time.NewTicker(contextKeysFlushInterval)

	var diagnosticsTicker *time.Ticker
	var diagnosticsTickerCh <-chan time.Time
	diagnosticsManager := d.config.DiagnosticsManager
	if diagnosticsManager != nil {
		diagnosticsTicker = time.NewTicker(d.config.DiagnosticRecordingInterval)
		diagnosticsTickerCh = diagnosticsTicker.C
	}

	for {
		// Drain the response channel with higher priority than anything else
		// to ensure that the flush workers are never blocked.
		select {
		case message := <-inboxCh:
			switch m := message.(type) {
			case sendEventMessage:
				d.processEvent(m.event, outbox, &contextKeys)
			case flushEventsMessage:
				d.triggerFlush(outbox, flushCh, workersGroup)
				if m.replyCh != nil {
					workersGroup.Wait() // Used in testing to ensure that the flush has completed
					m.replyCh <- struct{}{}
				}
			case syncEventsMessage:
				workersGroup.Wait()
				m.replyCh <- struct{}{}
			case shutdownEventsMessage:
				flushTicker.Stop()
				contextKeysFlushTicker.Stop()
				if diagnosticsTicker != nil {
					diagnosticsTicker.Stop()
				}
				workersGroup.Wait() // Wait for all in-progress flushes to complete
				close(flushCh)      // Causes all idle flush workers to terminate
				m.replyCh <- struct{}{}
				return
			}
		case <-flushTicker.C:
			d.triggerFlush(outbox, flushCh, workersGroup)
		case <-contextKeysFlushTicker.C:
			contextKeys.clear()
		case <-diagnosticsTickerCh:
			if diagnosticsManager == nil || !diagnosticsManager.CanSendStatsEvent() {
				// COVERAGE: no way to simulate this condition in unit tests
				break
			}
			event := diagnosticsManager.CreateStatsEventAndReset(
				outbox.getAndClearDroppedCount(),
				d.deduplicatedContexts,
				d.eventsInLastBatch,
			)
			d.deduplicatedContexts = 0
			d.eventsInLastBatch = 0
			d.sendDiagnosticsEvent(event)
		}
	}
}

func (d *eventDispatcher) processEvent(
	event Event,
	outbox *eventsOutbox,
	contextKeys *lruCache,
) {
	// Decide whether to add the event to the payload. Feature events may be added twice, once for
	// the event (if tracked) and once for debugging.
	willAddFullEvent := true
	var debugEvent Event
	switch evt := event.(type) {
	case FeatureRequestEvent:
		if !evt.ExcludeFromSummaries {
			outbox.addToSummary(evt) // add to summary counters, not downsampled
		}
		willAddFullEvent = evt.TrackEvents && shouldSample(evt.SamplingRatio)
		if d.shouldDebugEvent(&evt) && shouldSample(evt.SamplingRatio) {
			de := evt
			de.Debug = true
			debugEvent = de
		}
	case IdentifyEvent:
	case CustomEvent:
	case MigrationOpEvent:
		// Migration events are neither summarized nor preceded by index events.
		if shouldSample(evt.SamplingRatio) {
			outbox.addEvent(evt)
		}
		return
	default:
		willAddFullEvent = false
	}

	// For each context we haven't seen before, we add an index event before the event that
	// referenced the context - unless the original event will contain an inline context (i.e.
	// an identify event).
	base := event.GetBase()
	if !base.Context.IsDefined() {
		return
	}
	if identifyEvt, isIdentify := event.(IdentifyEvent); isIdentify && d.config.OmitAnonymousContexts {
		remaining, any := withoutAnonymousContexts(base.Context)
		if !any {
			return
		}
		identifyEvt.Context = remaining
		event = identifyEvt
		base = identifyEvt.BaseEvent
	}
	alreadySeen := contextKeys.add(base.Context.FullyQualifiedKey())
	if _, isIdentify := event.(IdentifyEvent); isIdentify {
		if alreadySeen {
			d.deduplicatedContexts++
		}
	} else if !alreadySeen {
		indexContext, emitIndex := base.Context, true
		if d.config.OmitAnonymousContexts {
			indexContext, emitIndex = withoutAnonymousContexts(indexContext)
		}
		if emitIndex {
			indexEvt := indexEvent{BaseEvent{CreationDate: base.CreationDate, Context: indexContext}}
			outbox.addEvent(indexEvt)
		}
	}
	if willAddFullEvent {
		outbox.addEvent(event)
	}
	if debugEvent != nil {
		outbox.addEvent(debugEvent)
	}
}

// withoutAnonymousContexts removes the anonymous parts of a context. The second return value
// is false if nothing is left, meaning no index or identify event should be generated at all.
func withoutAnonymousContexts(c ldcontext.Context) (ldcontext.Context, bool) {
	if !c.Multiple() {
		return c, !c.Anonymous()
	}
	remaining := make([]ldcontext.Context, 0, c.IndividualContextCount())
	for i := 0; i < c.IndividualContextCount(); i++ {
		if part, ok := c.IndividualContextByIndex(i); ok && !part.Anonymous() {
			remaining = append(remaining, part)
		}
	}
	switch len(remaining) {
	case 0:
		return ldcontext.Context{}, false
	case 1:
		return remaining[0], true
	default:
		return ldcontext.NewMulti(remaining...), true
	}
}

func (d *eventDispatcher) shouldDebugEvent(evt *FeatureRequestEvent) bool {
	if evt.DebugEventsUntilDate == 0 {
		return false
	}
	// The "last known past time" comes from the last HTTP response we got from the server.
	// In case the client's time is set wrong, at least we know that any expiration date
	// earlier than that point is definitely in the past. If there's any discrepancy, we
	// want to err on the side of cutting off event debugging sooner.
	d.stateLock.Lock()
	lastPast := d.lastKnownPastTime
	d.stateLock.Unlock()
	return evt.DebugEventsUntilDate > lastPast &&
		evt.DebugEventsUntilDate > d.currentTimestampFn()
}

// Signal that we would like to do a flush as soon as possible.
func (d *eventDispatcher) triggerFlush(
	outbox *eventsOutbox,
	flushCh chan<- *flushPayload,
	workersGroup *sync.WaitGroup,
) {
	if d.isDisabled() || outbox.isEmpty() {
		return
	}
	events, summary := outbox.getPayload()
	payload := flushPayload{events: events, summary: summary}
	workersGroup.Add(1) // Increment the count of active flushes
	select {
	case flushCh <- &payload:
		d.eventsInLastBatch = len(events)
	default:
		// If the channel is full, it means all the workers are busy, so we can't start a new
		// flush right now; keep the events in the outbox for the next flush opportunity.
		workersGroup.Done()
		outbox.restorePayload(events, summary)
	}
}

func (d *eventDispatcher) isDisabled() bool {
	d.stateLock.Lock()
	defer d.stateLock.Unlock()
	return d.disabled
}

func (d *eventDispatcher) handleResult(result EventSenderResult) {
	d.stateLock.Lock()
	defer d.stateLock.Unlock()
	if result.MustShutDown {
		d.disabled = true
	}
	if result.TimeFromServer > 0 {
		d.lastKnownPastTime = result.TimeFromServer
	}
}

func (d *eventDispatcher) sendDiagnosticsEvent(event ldvalue.Value) {
	// Diagnostic events don't count toward the flush payload, so they are posted on their
	// own goroutine rather than going through the worker pool.
	go func() {
		bytes, err := event.MarshalJSON()
		if err != nil { // COVERAGE: should not be possible
			return
		}
		d.config.EventSender.SendEventData(DiagnosticEventDataKind, bytes, 1)
	}()
}

func runFlushTask(
	config EventsConfiguration,
	flushCh <-chan *flushPayload,
	workersGroup *sync.WaitGroup,
	resultFn func(EventSenderResult),
) {
	formatter := eventOutputFormatter{
		contextFilter: newContextFilter(config),
		config:        config,
	}
	for {
		payload, more := <-flushCh
		if !more {
			// Channel has been closed - we're shutting down
			break
		}
		data, count := formatter.makeOutputEvents(payload.events, payload.summary)
		if count > 0 {
			result := config.EventSender.SendEventData(AnalyticsEventDataKind, data, count)
			resultFn(result)
		}
		workersGroup.Done() // Decrement the count of in-progress flushes
	}
}
