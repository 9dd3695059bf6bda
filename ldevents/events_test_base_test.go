package ldevents

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldlog"
	"github.com/flagmill/go-server-sdk/ldreason"
	"github.com/flagmill/go-server-sdk/ldtime"
)

const fakeEventTime = ldtime.UnixMillisecondTime(100000)

func fakeTimeFn() ldtime.UnixMillisecondTime { return fakeEventTime }

func basicContext() ldcontext.Context {
	return ldcontext.NewBuilder("userKey").Name("Red").Build()
}

func epDefaultConfig() EventsConfiguration {
	return EventsConfiguration{
		Capacity:                 1000,
		FlushInterval:            time.Hour,
		ContextKeysCapacity:      1000,
		ContextKeysFlushInterval: time.Hour,
		Loggers:                  ldlog.NewDisabledLoggers(),
		currentTimeProvider:      fakeTimeFn,
	}
}

// flagEventPropertiesImpl is a stand-in for the data model's flag type, since this package
// only sees flags through the FlagEventProperties interface.
type flagEventPropertiesImpl struct {
	Key                  string
	Version              int
	TrackEvents          bool
	DebugEventsUntilDate ldtime.UnixMillisecondTime
	IsExperiment         bool
	SamplingRatio        *int
	ExcludeFromSummaries bool
}

func (f flagEventPropertiesImpl) GetKey() string     { return f.Key }
func (f flagEventPropertiesImpl) GetVersion() int    { return f.Version }
func (f flagEventPropertiesImpl) IsFullEventTrackingEnabled() bool {
	return f.TrackEvents
}
func (f flagEventPropertiesImpl) GetDebugEventsUntilDate() ldtime.UnixMillisecondTime {
	return f.DebugEventsUntilDate
}
func (f flagEventPropertiesImpl) IsExperimentationEnabled(reason ldreason.EvaluationReason) bool {
	return f.IsExperiment
}
func (f flagEventPropertiesImpl) GetSamplingRatio() (int, bool) {
	if f.SamplingRatio == nil {
		return 1, false
	}
	return *f.SamplingRatio, true
}
func (f flagEventPropertiesImpl) IsExcludeFromSummaries() bool { return f.ExcludeFromSummaries }

type mockSentPayload struct {
	data       []byte
	eventCount int
}

// mockEventSender accumulates the payloads that the event processor delivers, so tests can
// make assertions about the JSON output without any HTTP activity.
type mockEventSender struct {
	analyticsCh  chan mockSentPayload
	diagnosticCh chan mockSentPayload
	result       EventSenderResult
	lock         sync.Mutex
}

func newMockEventSender() *mockEventSender {
	return &mockEventSender{
		analyticsCh:  make(chan mockSentPayload, 100),
		diagnosticCh: make(chan mockSentPayload, 100),
		result:       EventSenderResult{Success: true},
	}
}

func (s *mockEventSender) SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult {
	payload := mockSentPayload{data: data, eventCount: eventCount}
	if kind == DiagnosticEventDataKind {
		s.diagnosticCh <- payload
	} else {
		s.analyticsCh <- payload
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.result
}

func (s *mockEventSender) setResult(result EventSenderResult) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.result = result
}

// awaitAnalyticsPayload waits for the next analytics payload and returns the parsed output
// events as generic JSON maps.
func (s *mockEventSender) awaitAnalyticsPayload(t *testing.T) []map[string]interface{} {
	select {
	case payload := <-s.analyticsCh:
		var events []map[string]interface{}
		require.NoError(t, json.Unmarshal(payload.data, &events))
		return events
	case <-time.After(time.Second * 3):
		require.Fail(t, "timed out waiting for analytics event payload")
		return nil
	}
}

func (s *mockEventSender) awaitDiagnosticPayload(t *testing.T) map[string]interface{} {
	select {
	case payload := <-s.diagnosticCh:
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal(payload.data, &event))
		return event
	case <-time.After(time.Second * 3):
		require.Fail(t, "timed out waiting for diagnostic event payload")
		return nil
	}
}

func (s *mockEventSender) assertNoMoreAnalyticsPayloads(t *testing.T) {
	select {
	case payload := <-s.analyticsCh:
		require.Fail(t, "received unexpected analytics payload", "payload: %s", string(payload.data))
	case <-time.After(time.Millisecond * 100):
	}
}

// withProcessorAndSender sets up an event processor with a mock sender, runs the test
// action, and shuts the processor down afterward.
func withProcessorAndSender(
	t *testing.T,
	config EventsConfiguration,
	action func(EventProcessor, *mockEventSender),
) {
	sender := newMockEventSender()
	config.EventSender = sender
	ep := NewDefaultEventProcessor(config)
	defer ep.Close()
	action(ep, sender)
}

// waitUntilFlushWorkersIdle blocks until any in-progress flush tasks have completed and
// their results have been recorded, so tests can depend on state changes from a previous
// flush (such as the last known server time).
func waitUntilFlushWorkersIdle(ep EventProcessor) {
	if impl, ok := ep.(*defaultEventProcessor); ok {
		m := syncEventsMessage{replyCh: make(chan struct{})}
		impl.inboxCh <- m
		<-m.replyCh
	}
}

func kindsOf(events []map[string]interface{}) []string {
	kinds := make([]string, 0, len(events))
	for _, e := range events {
		kind, _ := e["kind"].(string)
		kinds = append(kinds, kind)
	}
	return kinds
}

func findEventOfKind(events []map[string]interface{}, kind string) map[string]interface{} {
	for _, e := range events {
		if e["kind"] == kind {
			return e
		}
	}
	return nil
}
