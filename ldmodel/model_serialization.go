package ldmodel

import (
	"encoding/json"

	"github.com/flagmill/go-server-sdk/ldattr"
)

// MarshalFeatureFlag converts a feature flag into its JSON representation.
func MarshalFeatureFlag(flag FeatureFlag) ([]byte, error) {
	return json.Marshal(flag)
}

// UnmarshalFeatureFlag parses a feature flag from its JSON representation.
func UnmarshalFeatureFlag(data []byte) (FeatureFlag, error) {
	var flag FeatureFlag
	err := json.Unmarshal(data, &flag)
	return flag, err
}

// MarshalSegment converts a segment into its JSON representation.
func MarshalSegment(segment Segment) ([]byte, error) {
	return json.Marshal(segment)
}

// UnmarshalSegment parses a segment from its JSON representation.
func UnmarshalSegment(data []byte) (Segment, error) {
	var segment Segment
	err := json.Unmarshal(data, &segment)
	return segment, err
}

// The older flag schema represented client-side availability as a single boolean,
// "clientSide". Data from a current source carries a "clientSideAvailability" object
// instead; we accept either and re-serialize in the same form we received, so that
// round-tripping does not change the schema version of the data.

// MarshalJSON implements custom JSON serialization for FeatureFlag.
func (f FeatureFlag) MarshalJSON() ([]byte, error) {
	type featureFlagDefaults FeatureFlag
	if f.ClientSideAvailability.Explicit {
		return json.Marshal(struct {
			featureFlagDefaults
			ClientSideAvailability clientSideAvailabilityJSON `json:"clientSideAvailability"`
		}{
			featureFlagDefaults: featureFlagDefaults(f),
			ClientSideAvailability: clientSideAvailabilityJSON{
				UsingMobileKey:     f.ClientSideAvailability.UsingMobileKey,
				UsingEnvironmentID: f.ClientSideAvailability.UsingEnvironmentID,
			},
		})
	}
	return json.Marshal(struct {
		featureFlagDefaults
		ClientSideAvailability *clientSideAvailabilityJSON `json:"clientSideAvailability,omitempty"`
		ClientSide             bool                        `json:"clientSide,omitempty"`
	}{
		featureFlagDefaults: featureFlagDefaults(f),
		ClientSide:          f.ClientSideAvailability.UsingEnvironmentID,
	})
}

// UnmarshalJSON implements custom JSON deserialization for FeatureFlag.
func (f *FeatureFlag) UnmarshalJSON(data []byte) error {
	type featureFlagDefaults FeatureFlag
	var parsed struct {
		featureFlagDefaults
		ClientSideAvailability *clientSideAvailabilityJSON `json:"clientSideAvailability"`
		ClientSide             bool                        `json:"clientSide"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*f = FeatureFlag(parsed.featureFlagDefaults)
	if parsed.ClientSideAvailability != nil {
		f.ClientSideAvailability = ClientSideAvailability{
			UsingMobileKey:     parsed.ClientSideAvailability.UsingMobileKey,
			UsingEnvironmentID: parsed.ClientSideAvailability.UsingEnvironmentID,
			Explicit:           true,
		}
	} else {
		f.ClientSideAvailability = ClientSideAvailability{
			// Mobile evaluation is not controllable in the old schema, so it is on.
			UsingMobileKey:     true,
			UsingEnvironmentID: parsed.ClientSide,
			Explicit:           false,
		}
	}
	return nil
}

// UnmarshalJSON implements custom JSON deserialization for Clause.
//
// If the clause has no context kind, its attribute string is an attribute name from the
// old schema with no path syntax, so it is parsed as a literal.
func (c *Clause) UnmarshalJSON(data []byte) error {
	type clauseDefaults Clause
	var parsed struct {
		clauseDefaults
		Attribute string `json:"attribute"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*c = Clause(parsed.clauseDefaults)
	c.Attribute = attrRefOrLiteral(parsed.Attribute, string(c.ContextKind))
	return nil
}

// UnmarshalJSON implements custom JSON deserialization for Rollout, applying the same
// old-schema rule to BucketBy as Clause does to Attribute.
func (r *Rollout) UnmarshalJSON(data []byte) error {
	type rolloutDefaults Rollout
	var parsed struct {
		rolloutDefaults
		BucketBy string `json:"bucketBy"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*r = Rollout(parsed.rolloutDefaults)
	r.BucketBy = attrRefOrLiteral(parsed.BucketBy, string(r.ContextKind))
	return nil
}

// UnmarshalJSON implements custom JSON deserialization for SegmentRule, applying the same
// old-schema rule to BucketBy as Clause does to Attribute.
func (r *SegmentRule) UnmarshalJSON(data []byte) error {
	type segmentRuleDefaults SegmentRule
	var parsed struct {
		segmentRuleDefaults
		BucketBy string `json:"bucketBy"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*r = SegmentRule(parsed.segmentRuleDefaults)
	r.BucketBy = attrRefOrLiteral(parsed.BucketBy, string(r.RolloutContextKind))
	return nil
}

func attrRefOrLiteral(raw string, contextKind string) ldattr.Ref {
	if raw == "" {
		return ldattr.Ref{}
	}
	if contextKind == "" {
		return ldattr.NewLiteralRef(raw)
	}
	return ldattr.NewRef(raw)
}

type clientSideAvailabilityJSON struct {
	UsingMobileKey     bool `json:"usingMobileKey"`
	UsingEnvironmentID bool `json:"usingEnvironmentId"`
}
