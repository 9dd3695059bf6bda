package ldevents

import (
	"github.com/flagmill/go-server-sdk/ldlog"
)

// eventsOutbox contains the events that have been generated since the last flush, plus the
// summary counters. Like eventSummarizer, it is accessed only from the event-processing
// goroutine so it does not need its own synchronization.
type eventsOutbox struct {
	events           []Event
	summarizer       eventSummarizer
	capacity         int
	capacityExceeded bool
	droppedEvents    int
	loggers          ldlog.Loggers
}

func newEventsOutbox(capacity int, loggers ldlog.Loggers) *eventsOutbox {
	return &eventsOutbox{
		events:     make([]Event, 0, capacity),
		summarizer: newEventSummarizer(),
		capacity:   capacity,
		loggers:    loggers,
	}
}

// Adds an individual event to the outbox, dropping it if the buffer is full.
func (b *eventsOutbox) addEvent(event Event) {
	if len(b.events) >= b.capacity {
		if !b.capacityExceeded {
			b.capacityExceeded = true
			b.loggers.Warn("Exceeded event queue capacity. Increase capacity to avoid dropping events.")
		}
		b.droppedEvents++
		return
	}
	b.capacityExceeded = false
	b.events = append(b.events, event)
}

// Adds an event to the summary counters. The summary data structure has a fixed size per
// flag, so this cannot overflow the outbox.
func (b *eventsOutbox) addToSummary(event FeatureRequestEvent) {
	b.summarizer.summarizeEvent(event)
}

// Returns the number of events that have been dropped due to the buffer being full, and
// resets that counter.
func (b *eventsOutbox) getAndClearDroppedCount() int {
	ret := b.droppedEvents
	b.droppedEvents = 0
	return ret
}

func (b *eventsOutbox) isEmpty() bool {
	return len(b.events) == 0 && !b.summarizer.eventsState.hasCounters()
}

// Puts a previously extracted payload back into the outbox, when a flush could not be
// started after all. This is only ever called immediately after getPayload, on the same
// goroutine, so the outbox is still empty at this point.
func (b *eventsOutbox) restorePayload(events []Event, summary eventSummary) {
	b.events = events
	b.summarizer.eventsState = summary
}

// Returns the current contents of the outbox and resets its state.
func (b *eventsOutbox) getPayload() ([]Event, eventSummary) {
	events := b.events
	summary := b.summarizer.snapshot()
	b.events = make([]Event, 0, b.capacity)
	b.capacityExceeded = false
	return events, summary
}
