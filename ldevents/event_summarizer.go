package ldevents

import (
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldtime"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// Manages the state of summarizable information for the EventProcessor, including the
// event counters and context deduplication. Note that the methods of this type are
// deliberately not thread-safe, because they should always be called from EventProcessor's
// single event-processing goroutine.
type eventSummarizer struct {
	eventsState eventSummary
}

type eventSummary struct {
	flags     map[string]*flagSummary
	startDate ldtime.UnixMillisecondTime
	endDate   ldtime.UnixMillisecondTime
}

// flagSummary accumulates the evaluation results for a single flag key within a summary
// window, across all variations and flag versions that were seen.
type flagSummary struct {
	defaultValue ldvalue.Value
	contextKinds map[ldcontext.Kind]struct{}
	counters     map[counterKey]*counterValue
}

type counterKey struct {
	variation int
	version   int
}

type counterValue struct {
	count     int
	flagValue ldvalue.Value
}

func newEventSummarizer() eventSummarizer {
	return eventSummarizer{eventsState: newEventSummary()}
}

func newEventSummary() eventSummary {
	return eventSummary{flags: make(map[string]*flagSummary)}
}

func (s eventSummary) hasCounters() bool {
	return len(s.flags) != 0
}

// Adds this event to our counters.
func (s *eventSummarizer) summarizeEvent(evt FeatureRequestEvent) {
	flag := s.eventsState.flags[evt.Key]
	if flag == nil {
		flag = &flagSummary{
			defaultValue: evt.Default,
			contextKinds: make(map[ldcontext.Kind]struct{}),
			counters:     make(map[counterKey]*counterValue),
		}
		s.eventsState.flags[evt.Key] = flag
	}
	for i := 0; i < evt.Context.IndividualContextCount(); i++ {
		if individual, ok := evt.Context.IndividualContextByIndex(i); ok {
			flag.contextKinds[individual.Kind()] = struct{}{}
		}
	}

	key := counterKey{variation: evt.Variation, version: evt.Version}
	if value, ok := flag.counters[key]; ok {
		value.count++
	} else {
		flag.counters[key] = &counterValue{count: 1, flagValue: evt.Value}
	}

	creationDate := evt.CreationDate
	if s.eventsState.startDate == 0 || creationDate < s.eventsState.startDate {
		s.eventsState.startDate = creationDate
	}
	if creationDate > s.eventsState.endDate {
		s.eventsState.endDate = creationDate
	}
}

// Returns a snapshot of the current summarized event data, and resets this state.
func (s *eventSummarizer) snapshot() eventSummary {
	state := s.eventsState
	s.eventsState = newEventSummary()
	return state
}
