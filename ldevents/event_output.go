package ldevents

import (
	"encoding/json"
	"sort"

	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldreason"
	"github.com/flagmill/go-server-sdk/ldtime"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// eventOutputFormatter produces the JSON representation of an event payload, in the format
// expected by the events service (event schema version 4).
type eventOutputFormatter struct {
	contextFilter contextFilter
	config        EventsConfiguration
}

type featureEventOutput struct {
	Kind          string                     `json:"kind"`
	CreationDate  ldtime.UnixMillisecondTime `json:"creationDate"`
	Key           string                     `json:"key"`
	Version       *int                       `json:"version,omitempty"`
	Variation     *int                       `json:"variation,omitempty"`
	Value         ldvalue.Value              `json:"value"`
	Default       ldvalue.Value              `json:"default"`
	PrereqOf      string                     `json:"prereqOf,omitempty"`
	Reason        *ldreason.EvaluationReason `json:"reason,omitempty"`
	ContextKeys   map[string]string          `json:"contextKeys,omitempty"`
	Context       *ldvalue.Value             `json:"context,omitempty"`
	SamplingRatio *int                       `json:"samplingRatio,omitempty"`
}

type identifyOrIndexEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Context      ldvalue.Value              `json:"context"`
}

type customEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	ContextKeys  map[string]string          `json:"contextKeys"`
	Data         *ldvalue.Value             `json:"data,omitempty"`
	MetricValue  *float64                   `json:"metricValue,omitempty"`
}

type migrationOpEventOutput struct {
	Kind          string                     `json:"kind"`
	CreationDate  ldtime.UnixMillisecondTime `json:"creationDate"`
	ContextKeys   map[string]string          `json:"contextKeys"`
	Operation     string                     `json:"operation"`
	Evaluation    migrationOpEvaluation      `json:"evaluation"`
	SamplingRatio *int                       `json:"samplingRatio,omitempty"`
	Measurements  []migrationOpMeasurement   `json:"measurements,omitempty"`
}

type migrationOpEvaluation struct {
	Key       string                     `json:"key"`
	Value     ldvalue.Value              `json:"value"`
	Default   string                     `json:"default"`
	Version   *int                       `json:"version,omitempty"`
	Variation *int                       `json:"variation,omitempty"`
	Reason    *ldreason.EvaluationReason `json:"reason,omitempty"`
}

type migrationOpMeasurement struct {
	Key           string      `json:"key"`
	Values        interface{} `json:"values,omitempty"`
	Value         *bool       `json:"value,omitempty"`
	SamplingRatio *int        `json:"samplingRatio,omitempty"`
}

type summaryEventOutput struct {
	Kind      string                       `json:"kind"`
	StartDate ldtime.UnixMillisecondTime   `json:"startDate"`
	EndDate   ldtime.UnixMillisecondTime   `json:"endDate"`
	Features  map[string]flagSummaryOutput `json:"features"`
}

type flagSummaryOutput struct {
	Default      ldvalue.Value   `json:"default"`
	ContextKinds []string        `json:"contextKinds"`
	Counters     []counterOutput `json:"counters"`
}

type counterOutput struct {
	Value     ldvalue.Value `json:"value"`
	Variation *int          `json:"variation,omitempty"`
	Version   *int          `json:"version,omitempty"`
	Unknown   bool          `json:"unknown,omitempty"`
	Count     int           `json:"count"`
}

// makeOutputEvents serializes a list of events and the summary data into the JSON array that
// will be posted to the events service, returning the data and the number of output events.
// The number of output events may differ from len(events) because the summary, if non-empty,
// counts as one event.
func (ef eventOutputFormatter) makeOutputEvents(events []Event, summary eventSummary) ([]byte, int) {
	out := make([]interface{}, 0, len(events)+1)
	for _, e := range events {
		out = append(out, ef.makeOutputEvent(e))
	}
	if summary.hasCounters() {
		out = append(out, ef.makeSummaryEvent(summary))
	}
	if len(out) == 0 {
		return nil, 0
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, 0
	}
	return data, len(out)
}

func (ef eventOutputFormatter) makeOutputEvent(event Event) interface{} {
	switch evt := event.(type) {
	case FeatureRequestEvent:
		out := featureEventOutput{
			Kind:          "feature",
			CreationDate:  evt.CreationDate,
			Key:           evt.Key,
			Value:         evt.Value,
			Default:       evt.Default,
			PrereqOf:      evt.PrereqOf,
			SamplingRatio: nonDefaultSamplingRatio(evt.SamplingRatio),
		}
		if evt.HasVersion() {
			out.Version = optInt(evt.Version)
		}
		if evt.Variation != NoVariation {
			out.Variation = optInt(evt.Variation)
		}
		if evt.Reason.IsDefined() {
			reason := evt.Reason
			out.Reason = &reason
		}
		if evt.Debug {
			out.Kind = "debug"
			context := ef.contextFilter.filterContextOutput(evt.Context)
			out.Context = &context
		} else {
			out.ContextKeys = makeContextKeys(evt.Context)
		}
		return out
	case IdentifyEvent:
		return identifyOrIndexEventOutput{
			Kind:         "identify",
			CreationDate: evt.CreationDate,
			Context:      ef.contextFilter.filterContextOutput(evt.Context),
		}
	case indexEvent:
		return identifyOrIndexEventOutput{
			Kind:         "index",
			CreationDate: evt.CreationDate,
			Context:      ef.contextFilter.filterContextOutput(evt.Context),
		}
	case CustomEvent:
		out := customEventOutput{
			Kind:         "custom",
			CreationDate: evt.CreationDate,
			Key:          evt.Key,
			ContextKeys:  makeContextKeys(evt.Context),
		}
		if !evt.Data.IsNull() {
			data := evt.Data
			out.Data = &data
		}
		if evt.HasMetric {
			metric := evt.MetricValue
			out.MetricValue = &metric
		}
		return out
	case MigrationOpEvent:
		return ef.makeMigrationOpEvent(evt)
	}
	return nil
}

func (ef eventOutputFormatter) makeMigrationOpEvent(evt MigrationOpEvent) migrationOpEventOutput {
	out := migrationOpEventOutput{
		Kind:         "migration_op",
		CreationDate: evt.CreationDate,
		ContextKeys:  makeContextKeys(evt.Context),
		Operation:    evt.Op,
		Evaluation: migrationOpEvaluation{
			Key:     evt.FlagKey,
			Value:   evt.Evaluation.Value,
			Default: evt.Default,
		},
		SamplingRatio: nonDefaultSamplingRatio(evt.SamplingRatio),
	}
	if evt.Version != NoVersion {
		out.Evaluation.Version = optInt(evt.Version)
	}
	if evt.Evaluation.VariationIndex != NoVariation {
		out.Evaluation.Variation = optInt(evt.Evaluation.VariationIndex)
	}
	if evt.Evaluation.Reason.IsDefined() {
		reason := evt.Evaluation.Reason
		out.Evaluation.Reason = &reason
	}
	if len(evt.Invoked) > 0 {
		out.Measurements = append(out.Measurements,
			migrationOpMeasurement{Key: "invoked", Values: evt.Invoked})
	}
	if evt.ConsistencyCheck != nil {
		out.Measurements = append(out.Measurements, migrationOpMeasurement{
			Key:           "consistent",
			Value:         evt.ConsistencyCheck,
			SamplingRatio: nonDefaultSamplingRatio(evt.ConsistencyCheckRatio),
		})
	}
	if len(evt.Latencies) > 0 {
		out.Measurements = append(out.Measurements,
			migrationOpMeasurement{Key: "latency_ms", Values: evt.Latencies})
	}
	if len(evt.Errors) > 0 {
		out.Measurements = append(out.Measurements,
			migrationOpMeasurement{Key: "error", Values: evt.Errors})
	}
	return out
}

func (ef eventOutputFormatter) makeSummaryEvent(summary eventSummary) summaryEventOutput {
	out := summaryEventOutput{
		Kind:      "summary",
		StartDate: summary.startDate,
		EndDate:   summary.endDate,
		Features:  make(map[string]flagSummaryOutput, len(summary.flags)),
	}
	for key, flag := range summary.flags {
		kinds := make([]string, 0, len(flag.contextKinds))
		for kind := range flag.contextKinds {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		counters := make([]counterOutput, 0, len(flag.counters))
		for counterKey, counter := range flag.counters {
			c := counterOutput{Value: counter.flagValue, Count: counter.count}
			if counterKey.variation != NoVariation {
				c.Variation = optInt(counterKey.variation)
			}
			if counterKey.version == NoVersion {
				c.Unknown = true
			} else {
				c.Version = optInt(counterKey.version)
			}
			counters = append(counters, c)
		}
		out.Features[key] = flagSummaryOutput{
			Default:      flag.defaultValue,
			ContextKinds: kinds,
			Counters:     counters,
		}
	}
	return out
}

func makeContextKeys(c ldcontext.Context) map[string]string {
	ret := make(map[string]string, c.IndividualContextCount())
	for i := 0; i < c.IndividualContextCount(); i++ {
		if individual, ok := c.IndividualContextByIndex(i); ok {
			ret[string(individual.Kind())] = individual.Key()
		}
	}
	return ret
}

func optInt(n int) *int {
	return &n
}

// The samplingRatio property is only transmitted when it differs from the default of 1.
func nonDefaultSamplingRatio(ratio *int) *int {
	if ratio == nil || *ratio == 1 {
		return nil
	}
	return ratio
}
