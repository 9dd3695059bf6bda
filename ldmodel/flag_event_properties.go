package ldmodel

import (
	"github.com/flagmill/go-server-sdk/ldreason"
	"github.com/flagmill/go-server-sdk/ldtime"
)

// These methods are defined with pointer receivers so that a *FeatureFlag can be used
// wherever the event pipeline expects a description of a flag's event behavior, without
// copying the flag struct.

// GetKey returns the feature flag key.
func (f *FeatureFlag) GetKey() string {
	return f.Key
}

// GetVersion returns the feature flag version.
func (f *FeatureFlag) GetVersion() int {
	return f.Version
}

// IsFullEventTrackingEnabled returns true if the flag has been configured to always
// generate detailed event data.
func (f *FeatureFlag) IsFullEventTrackingEnabled() bool {
	return f.TrackEvents
}

// GetDebugEventsUntilDate returns zero normally, but if event debugging has been
// temporarily enabled for the flag, it returns the time at which debugging mode should
// expire.
func (f *FeatureFlag) GetDebugEventsUntilDate() ldtime.UnixMillisecondTime {
	return f.DebugEventsUntilDate
}

// IsExperimentationEnabled returns true if, based on the EvaluationReason returned by the
// flag evaluation, an event for that evaluation should have full tracking enabled and
// always report the reason even if the application did not explicitly request a reason.
func (f *FeatureFlag) IsExperimentationEnabled(reason ldreason.EvaluationReason) bool {
	if reason.IsInExperiment() {
		return true
	}
	switch reason.GetKind() {
	case ldreason.EvalReasonFallthrough:
		return f.TrackEventsFallthrough
	case ldreason.EvalReasonRuleMatch:
		i := reason.GetRuleIndex()
		if i >= 0 && i < len(f.Rules) {
			return f.Rules[i].TrackEvents
		}
	}
	return false
}

// GetSamplingRatio returns the flag's event sampling ratio, if one was specified.
func (f *FeatureFlag) GetSamplingRatio() (int, bool) {
	if f.SamplingRatio == nil {
		return 1, false
	}
	return *f.SamplingRatio, true
}

// IsExcludeFromSummaries returns true if evaluations of this flag should be left out of
// summary events.
func (f *FeatureFlag) IsExcludeFromSummaries() bool {
	return f.ExcludeFromSummaries
}
