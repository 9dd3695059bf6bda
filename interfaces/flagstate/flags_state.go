// Package flagstate contains the data types returned by the client's AllFlagsState
// method, used for bootstrapping client-side SDKs.
package flagstate

import (
	"encoding/json"

	"github.com/flagmill/go-server-sdk/ldreason"
	"github.com/flagmill/go-server-sdk/ldtime"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// AllFlags is a snapshot of the state of multiple feature flags with regard to a specific
// evaluation context.
//
// Serializing this object to JSON (with json.Marshal or ToJSON) produces the format used
// to bootstrap client-side SDKs.
type AllFlags struct {
	flags map[string]FlagState
	valid bool
}

// FlagState represents the state of an individual feature flag, with regard to a specific
// evaluation context, at one point in time.
type FlagState struct {
	// Value is the result of evaluating the flag for the specified evaluation context.
	Value ldvalue.Value
	// Variation is the variation index that was selected, or ldreason.NoVariation.
	Variation int
	// Version is the flag's version number when it was evaluated.
	Version int
	// Reason is the evaluation reason, if reasons were requested.
	Reason ldreason.EvaluationReason
	// TrackEvents is true if a full feature event must be sent when evaluating this flag.
	TrackEvents bool
	// TrackReason is true if the evaluation reason must be included in feature events for
	// this flag even if the application did not request reasons.
	TrackReason bool
	// DebugEventsUntilDate is non-zero if event debugging is enabled for this flag until
	// the specified time.
	DebugEventsUntilDate ldtime.UnixMillisecondTime
	// OmitDetails is true if, because of the options used in the query, some metadata was
	// left out of the flag state to reduce the size of the data.
	OmitDetails bool
}

// IsValid returns true if the call that produced the AllFlags state was able to compute
// results. It is false if there was an error such that the flag data was unavailable.
func (a AllFlags) IsValid() bool {
	return a.valid
}

// GetFlag looks up information for a specific flag by key.
func (a AllFlags) GetFlag(flagKey string) (FlagState, bool) {
	f, ok := a.flags[flagKey]
	return f, ok
}

// GetValue returns the value of a specific flag, or Null() if the flag is not in the state.
func (a AllFlags) GetValue(flagKey string) ldvalue.Value {
	return a.flags[flagKey].Value
}

// ToValuesMap returns a map of flag keys to flag values, with no metadata.
func (a AllFlags) ToValuesMap() map[string]ldvalue.Value {
	ret := make(map[string]ldvalue.Value, len(a.flags))
	for k, f := range a.flags {
		ret[k] = f.Value
	}
	return ret
}

type flagMetadataJSON struct {
	Variation            *int                       `json:"variation,omitempty"`
	Version              *int                       `json:"version,omitempty"`
	Reason               json.RawMessage            `json:"reason,omitempty"`
	TrackEvents          bool                       `json:"trackEvents,omitempty"`
	TrackReason          bool                       `json:"trackReason,omitempty"`
	DebugEventsUntilDate ldtime.UnixMillisecondTime `json:"debugEventsUntilDate,omitempty"`
}

// MarshalJSON produces the client-side bootstrap format: each flag key maps to its value,
// with evaluation metadata under "$flagsState" and validity under "$valid".
func (a AllFlags) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(a.flags)+2)
	metadata := make(map[string]flagMetadataJSON, len(a.flags))
	for key, flag := range a.flags {
		out[key] = flag.Value
		m := flagMetadataJSON{
			TrackEvents:          flag.TrackEvents,
			TrackReason:          flag.TrackReason,
			DebugEventsUntilDate: flag.DebugEventsUntilDate,
		}
		if flag.Variation != ldreason.NoVariation {
			variation := flag.Variation
			m.Variation = &variation
		}
		if !flag.OmitDetails {
			version := flag.Version
			m.Version = &version
			if flag.Reason.IsDefined() {
				reasonJSON, err := json.Marshal(flag.Reason)
				if err != nil {
					return nil, err
				}
				m.Reason = reasonJSON
			}
		}
		metadata[key] = m
	}
	out["$flagsState"] = metadata
	out["$valid"] = a.valid
	return json.Marshal(out)
}

// ToJSON is a shortcut for serializing the state with json.Marshal.
func (a AllFlags) ToJSON() []byte {
	data, _ := json.Marshal(a)
	return data
}

// AllFlagsBuilder is a builder that creates AllFlags instances. This is normally done
// only by the SDK, but it may be useful in test code.
type AllFlagsBuilder struct {
	state   AllFlags
	options allFlagsOptions
}

type allFlagsOptions struct {
	withReasons                bool
	detailsOnlyForTrackedFlags bool
	clientSideOnly             bool
}

// Option is an optional parameter for AllFlagsState.
type Option interface {
	fmt() string
	apply(*allFlagsOptions)
}

type clientSideOnlyOption struct{}
type withReasonsOption struct{}
type detailsOnlyOption struct{}

// OptionClientSideOnly specifies that only flags marked for use with the client-side SDK
// should be included in the state object.
func OptionClientSideOnly() Option { return clientSideOnlyOption{} }

// OptionWithReasons specifies that evaluation reasons should be included in the flag
// metadata. By default, they are not.
func OptionWithReasons() Option { return withReasonsOption{} }

// OptionDetailsOnlyForTrackedFlags specifies that any flag metadata that is normally only
// used for event generation (such as reasons and versions) should be omitted for any flag
// that does not have event tracking or debugging turned on, to reduce the size of the
// JSON data.
func OptionDetailsOnlyForTrackedFlags() Option { return detailsOnlyOption{} }

func (o clientSideOnlyOption) fmt() string { return "ClientSideOnly" }
func (o withReasonsOption) fmt() string    { return "WithReasons" }
func (o detailsOnlyOption) fmt() string    { return "DetailsOnlyForTrackedFlags" }

func (o clientSideOnlyOption) apply(opts *allFlagsOptions) { opts.clientSideOnly = true }
func (o withReasonsOption) apply(opts *allFlagsOptions)    { opts.withReasons = true }
func (o detailsOnlyOption) apply(opts *allFlagsOptions)    { opts.detailsOnlyForTrackedFlags = true }

// HasOptionClientSideOnly tests whether OptionClientSideOnly is among the options.
func HasOptionClientSideOnly(options []Option) bool {
	for _, o := range options {
		if _, ok := o.(clientSideOnlyOption); ok {
			return true
		}
	}
	return false
}

// NewAllFlagsBuilder creates a builder for constructing an AllFlags instance.
func NewAllFlagsBuilder(options ...Option) *AllFlagsBuilder {
	b := &AllFlagsBuilder{
		state: AllFlags{flags: make(map[string]FlagState), valid: true},
	}
	for _, o := range options {
		o.apply(&b.options)
	}
	return b
}

// Valid sets whether the resulting state should be considered valid.
func (b *AllFlagsBuilder) Valid(valid bool) *AllFlagsBuilder {
	b.state.valid = valid
	return b
}

// AddFlag adds information about a flag, applying the builder options regarding reasons
// and detail omission.
func (b *AllFlagsBuilder) AddFlag(flagKey string, flag FlagState) *AllFlagsBuilder {
	// To save bandwidth, the reason is omitted unless reasons were requested, and for
	// flags with no event tracking the details can be dropped entirely.
	if b.options.detailsOnlyForTrackedFlags &&
		!flag.TrackEvents && !flag.TrackReason && !flag.DebugEventsUntilDate.IsDefined() {
		flag.OmitDetails = true
	}
	if !b.options.withReasons && !flag.TrackReason {
		flag.Reason = ldreason.EvaluationReason{}
	}
	b.state.flags[flagKey] = flag
	return b
}

// Build returns a copy of the current state.
func (b *AllFlagsBuilder) Build() AllFlags {
	flags := make(map[string]FlagState, len(b.state.flags))
	for k, v := range b.state.flags {
		flags[k] = v
	}
	return AllFlags{flags: flags, valid: b.state.valid}
}
