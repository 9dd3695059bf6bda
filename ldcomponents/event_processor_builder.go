package ldcomponents

import (
	"strings"
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/internal"
	"github.com/flagmill/go-server-sdk/ldattr"
	"github.com/flagmill/go-server-sdk/ldevents"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

const (
	// DefaultEventsCapacity is the default value for EventProcessorBuilder.Capacity.
	DefaultEventsCapacity = 10000
	// DefaultFlushInterval is the default value for EventProcessorBuilder.FlushInterval.
	DefaultFlushInterval = 5 * time.Second
	// DefaultDiagnosticRecordingInterval is the default value for
	// EventProcessorBuilder.DiagnosticRecordingInterval.
	DefaultDiagnosticRecordingInterval = 15 * time.Minute
	// MinimumDiagnosticRecordingInterval is the minimum value for
	// EventProcessorBuilder.DiagnosticRecordingInterval.
	MinimumDiagnosticRecordingInterval = time.Minute
	// DefaultContextKeysCapacity is the default value for EventProcessorBuilder.ContextKeysCapacity.
	DefaultContextKeysCapacity = 1000
	// DefaultContextKeysFlushInterval is the default value for
	// EventProcessorBuilder.ContextKeysFlushInterval.
	DefaultContextKeysFlushInterval = 5 * time.Minute
)

// EventProcessorBuilder provides methods for configuring analytics event behavior.
//
// See SendEvents for usage.
type EventProcessorBuilder struct {
	allAttributesPrivate        bool
	baseURI                     string
	capacity                    int
	diagnosticRecordingInterval time.Duration
	flushInterval               time.Duration
	privateAttributes           []ldattr.Ref
	contextKeysCapacity         int
	contextKeysFlushInterval    time.Duration
	omitAnonymousContexts       bool
}

// SendEvents returns a configuration builder for analytics event delivery.
//
// The default configuration has events enabled with default settings. If you want to
// customize this behavior, call this method to obtain a builder, set its properties with the
// EventProcessorBuilder methods, and store it in the Events field of your SDK configuration:
//
//	config := ld.Config{
//	    Events: ldcomponents.SendEvents().Capacity(5000).FlushInterval(2 * time.Second),
//	}
//
// To disable analytics events, use NoEvents instead of SendEvents.
func SendEvents() *EventProcessorBuilder {
	return &EventProcessorBuilder{
		baseURI:                     DefaultEventsBaseURI,
		capacity:                    DefaultEventsCapacity,
		diagnosticRecordingInterval: DefaultDiagnosticRecordingInterval,
		flushInterval:               DefaultFlushInterval,
		contextKeysCapacity:         DefaultContextKeysCapacity,
		contextKeysFlushInterval:    DefaultContextKeysFlushInterval,
	}
}

// AllAttributesPrivate sets whether or not all optional context attributes should be hidden
// from the events service.
//
// If this is true, all context attribute values (other than the key) will be private, not just
// the attributes specified with PrivateAttributes or on a per-context basis. By default, it is
// false.
func (b *EventProcessorBuilder) AllAttributesPrivate(value bool) *EventProcessorBuilder {
	b.allAttributesPrivate = value
	return b
}

// BaseURI sets a custom base URI for the events service.
func (b *EventProcessorBuilder) BaseURI(baseURI string) *EventProcessorBuilder {
	if baseURI == "" {
		b.baseURI = DefaultEventsBaseURI
	} else {
		b.baseURI = strings.TrimRight(baseURI, "/")
	}
	return b
}

// Capacity sets the capacity of the events buffer.
//
// The client buffers up to this many events in memory before flushing. If the capacity is
// exceeded before the buffer is flushed, events will be discarded. Increasing the capacity
// means that events are less likely to be discarded, at the cost of consuming more memory.
func (b *EventProcessorBuilder) Capacity(capacity int) *EventProcessorBuilder {
	b.capacity = capacity
	return b
}

// DiagnosticRecordingInterval sets the interval at which periodic diagnostic data is sent.
//
// The default is every 15 minutes and the minimum is every minute.
func (b *EventProcessorBuilder) DiagnosticRecordingInterval(
	interval time.Duration,
) *EventProcessorBuilder {
	if interval < MinimumDiagnosticRecordingInterval {
		b.diagnosticRecordingInterval = MinimumDiagnosticRecordingInterval
	} else {
		b.diagnosticRecordingInterval = interval
	}
	return b
}

// FlushInterval sets the interval between flushes of the event buffer.
//
// Decreasing the flush interval means that the event buffer is less likely to reach capacity.
func (b *EventProcessorBuilder) FlushInterval(interval time.Duration) *EventProcessorBuilder {
	b.flushInterval = interval
	return b
}

// PrivateAttributes marks a set of attribute names or paths as private.
//
// Any contexts sent to the events service will have attributes with these names removed, even
// if they did not mark the attributes as private themselves. This is in addition to any
// attributes that were marked private for an individual context.
//
// Each value can be a simple attribute name (like "email"), or a slash-delimited path (like
// "/address/street") referring to a property within a JSON object value.
func (b *EventProcessorBuilder) PrivateAttributes(attributes ...string) *EventProcessorBuilder {
	for _, a := range attributes {
		b.privateAttributes = append(b.privateAttributes, ldattr.NewRef(a))
	}
	return b
}

// ContextKeysCapacity sets the number of context keys that the event processor can remember at
// any one time.
//
// To avoid sending duplicate context details in analytics events, the SDK maintains a cache of
// recently seen context keys.
func (b *EventProcessorBuilder) ContextKeysCapacity(capacity int) *EventProcessorBuilder {
	b.contextKeysCapacity = capacity
	return b
}

// ContextKeysFlushInterval sets the interval at which the event processor will reset its cache
// of known context keys.
func (b *EventProcessorBuilder) ContextKeysFlushInterval(interval time.Duration) *EventProcessorBuilder {
	b.contextKeysFlushInterval = interval
	return b
}

// OmitAnonymousContexts sets whether anonymous contexts should be left out of index and
// identify events. An identify or index event for a context that is entirely anonymous is
// dropped; for a multi-kind context, only the anonymous parts are removed. The default is
// false.
func (b *EventProcessorBuilder) OmitAnonymousContexts(value bool) *EventProcessorBuilder {
	b.omitAnonymousContexts = value
	return b
}

// CreateEventProcessor is called by the SDK to create the event processor instance.
func (b *EventProcessorBuilder) CreateEventProcessor(
	context interfaces.ClientContext,
) (ldevents.EventProcessor, error) {
	loggers := context.GetLogging().GetLoggers()

	var diagnosticsManager *ldevents.DiagnosticsManager
	if hdm, ok := context.(internal.HasDiagnosticsManager); ok {
		diagnosticsManager = hdm.GetDiagnosticsManager()
	}

	eventSender := ldevents.NewDefaultEventSender(
		context.GetHTTP().CreateHTTPClient(),
		b.baseURI+"/bulk",
		b.baseURI+"/diagnostic",
		context.GetHTTP().GetDefaultHeaders(),
		loggers,
	)
	return ldevents.NewDefaultEventProcessor(ldevents.EventsConfiguration{
		AllAttributesPrivate:        b.allAttributesPrivate,
		Capacity:                    b.capacity,
		DiagnosticRecordingInterval: b.diagnosticRecordingInterval,
		DiagnosticsManager:          diagnosticsManager,
		EventSender:                 eventSender,
		FlushInterval:               b.flushInterval,
		Loggers:                     loggers,
		PrivateAttributes:           b.privateAttributes,
		ContextKeysCapacity:         b.contextKeysCapacity,
		ContextKeysFlushInterval:    b.contextKeysFlushInterval,
		OmitAnonymousContexts:       b.omitAnonymousContexts,
	}), nil
}

// DescribeConfiguration is used internally by the SDK to inspect the configuration.
func (b *EventProcessorBuilder) DescribeConfiguration() ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("allAttributesPrivate", ldvalue.Bool(b.allAttributesPrivate)).
		Set("customEventsURI", ldvalue.Bool(b.baseURI != DefaultEventsBaseURI)).
		Set("diagnosticRecordingIntervalMillis", durationToMillisValue(b.diagnosticRecordingInterval)).
		Set("eventsCapacity", ldvalue.Int(b.capacity)).
		Set("eventsFlushIntervalMillis", durationToMillisValue(b.flushInterval)).
		Set("userKeysCapacity", ldvalue.Int(b.contextKeysCapacity)).
		Set("userKeysFlushIntervalMillis", durationToMillisValue(b.contextKeysFlushInterval)).
		Build()
}
