package ldevents

import (
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldreason"
	"github.com/flagmill/go-server-sdk/ldtime"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// NoVariation is a value for the Variation field of FeatureRequestEvent indicating that no variation
// index is applicable, such as when evaluation failed.
const NoVariation = -1

// Event is a conversion type allowing dispatch to be streamlined.
type Event interface {
	GetBase() BaseEvent
}

// BaseEvent provides properties common to all events.
type BaseEvent struct {
	CreationDate ldtime.UnixMillisecondTime
	Context      ldcontext.Context
}

// FeatureRequestEvent is generated by evaluating a feature flag or one of a flag's prerequisites.
type FeatureRequestEvent struct {
	BaseEvent
	Key       string
	Variation int
	Value     ldvalue.Value
	Default   ldvalue.Value
	Version   int
	// PrereqOf is normally "". In a feature request event generated for a prerequisite evaluation
	// done while evaluating some other flag, it is the key of the flag that required this one.
	PrereqOf             string
	Reason               ldreason.EvaluationReason
	TrackEvents          bool
	Debug                bool
	DebugEventsUntilDate ldtime.UnixMillisecondTime
	// ExcludeFromSummaries is true if this evaluation should not be counted in summary events.
	ExcludeFromSummaries bool
	// SamplingRatio, if non-nil, is a one-in-N downsampling ratio for the individual feature event.
	// Summary counters are never downsampled.
	SamplingRatio *int
}

// HasVersion returns true if the flag existed at the time of the evaluation.
func (e FeatureRequestEvent) HasVersion() bool {
	return e.Version != NoVersion
}

// NoVersion is a value for the Version field of FeatureRequestEvent indicating that the flag did
// not exist.
const NoVersion = -1

// CustomEvent is generated by calling the client's Track methods.
type CustomEvent struct {
	BaseEvent
	Key         string
	Data        ldvalue.Value
	HasMetric   bool
	MetricValue float64
}

// IdentifyEvent is generated by calling the client's Identify method.
type IdentifyEvent struct {
	BaseEvent
}

// IndexEvent is generated internally to capture context details from other events. It is an
// implementation detail of the event processor, so it is not exported.
type indexEvent struct {
	BaseEvent
}

// MigrationOpEvent is generated by a migration operation tracker, reporting the consistency and
// performance measurements collected during a single migration read or write.
type MigrationOpEvent struct {
	BaseEvent
	// Op is the operation that was performed, "read" or "write".
	Op string
	// FlagKey is the key of the migration flag that chose the stage.
	FlagKey string
	// Version is the version of the migration flag, or NoVersion if the flag was not found.
	Version int
	// Default is the default stage that would have applied if the flag was not found.
	Default string
	// Evaluation is the result of evaluating the migration flag.
	Evaluation ldreason.EvaluationDetail
	// SamplingRatio, if non-nil, is a one-in-N downsampling ratio for this event.
	SamplingRatio *int
	// ConsistencyCheck is nil if no consistency check was performed; otherwise it is the result.
	ConsistencyCheck *bool
	// ConsistencyCheckRatio, if non-nil, is the one-in-N sampling ratio that was configured for
	// consistency checks.
	ConsistencyCheckRatio *int
	// Invoked reports which origins ("old", "new") were invoked during the operation.
	Invoked map[string]bool
	// Errors reports which origins returned an error.
	Errors map[string]bool
	// Latencies reports the elapsed time of each origin's invocation, in milliseconds.
	Latencies map[string]float64
}

// GetBase returns the BaseEvent
func (e FeatureRequestEvent) GetBase() BaseEvent {
	return e.BaseEvent
}

// GetBase returns the BaseEvent
func (e CustomEvent) GetBase() BaseEvent {
	return e.BaseEvent
}

// GetBase returns the BaseEvent
func (e IdentifyEvent) GetBase() BaseEvent {
	return e.BaseEvent
}

func (e indexEvent) GetBase() BaseEvent {
	return e.BaseEvent
}

// GetBase returns the BaseEvent
func (e MigrationOpEvent) GetBase() BaseEvent {
	return e.BaseEvent
}

// EventFactory is a configurable factory for event objects.
type EventFactory struct {
	includeReasons bool
	timeFn         func() ldtime.UnixMillisecondTime
}

// NewEventFactory creates an EventFactory.
//
// The includeReasons parameter is true if evaluation events should always include the EvaluationReason (this is
// used by the SDK when one of the "VariationDetail" methods is called). The timeFn parameter is normally nil but
// can be used to instrument the EventFactory with a source of time data other than the standard clock.
func NewEventFactory(includeReasons bool, timeFn func() ldtime.UnixMillisecondTime) EventFactory {
	if timeFn == nil {
		timeFn = ldtime.UnixMillisNow
	}
	return EventFactory{includeReasons, timeFn}
}

// NewUnknownFlagEvent creates an evaluation event for a missing flag.
func (f EventFactory) NewUnknownFlagEvent(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
) FeatureRequestEvent {
	fre := FeatureRequestEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			Context:      context,
		},
		Key:       key,
		Variation: NoVariation,
		Value:     defaultVal,
		Default:   defaultVal,
		Version:   NoVersion,
	}
	if f.includeReasons {
		fre.Reason = reason
	}
	return fre
}

// NewEvalEvent creates an evaluation event for an existing flag.
func (f EventFactory) NewEvalEvent(
	flagProps FlagEventProperties,
	context ldcontext.Context,
	detail ldreason.EvaluationDetail,
	defaultVal ldvalue.Value,
	prereqOf string,
) FeatureRequestEvent {
	requireExperimentData := flagProps.IsExperimentationEnabled(detail.Reason)
	fre := FeatureRequestEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			Context:      context,
		},
		Key:                  flagProps.GetKey(),
		Version:              flagProps.GetVersion(),
		Variation:            detail.VariationIndex,
		Value:                detail.Value,
		Default:              defaultVal,
		PrereqOf:             prereqOf,
		TrackEvents:          requireExperimentData || flagProps.IsFullEventTrackingEnabled(),
		DebugEventsUntilDate: flagProps.GetDebugEventsUntilDate(),
		ExcludeFromSummaries: flagProps.IsExcludeFromSummaries(),
	}
	if ratio, ok := flagProps.GetSamplingRatio(); ok {
		fre.SamplingRatio = &ratio
	}
	if requireExperimentData || f.includeReasons {
		fre.Reason = detail.Reason
	}
	return fre
}

// NewCustomEvent creates a new custom event.
func (f EventFactory) NewCustomEvent(
	key string,
	context ldcontext.Context,
	data ldvalue.Value,
	withMetric bool,
	metricValue float64,
) CustomEvent {
	return CustomEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			Context:      context,
		},
		Key:         key,
		Data:        data,
		HasMetric:   withMetric,
		MetricValue: metricValue,
	}
}

// NewIdentifyEvent constructs a new identify event.
func (f EventFactory) NewIdentifyEvent(context ldcontext.Context) IdentifyEvent {
	return IdentifyEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			Context:      context,
		},
	}
}
