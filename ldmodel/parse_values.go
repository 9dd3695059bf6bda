package ldmodel

import (
	"regexp"
	"time"

	"github.com/blang/semver"

	"github.com/flagmill/go-server-sdk/ldvalue"
)

// A string that can be parsed with this pattern, but not as a full semantic version, is
// zero-padded ("2" becomes "2.0.0") before parsing again, since flag data commonly
// contains partial versions.
var versionNumericComponentsRegex = regexp.MustCompile(`^\d+(\.\d+)?(\.\d+)?`)

func parseDateTime(value ldvalue.Value) (time.Time, bool) {
	switch value.Type() {
	case ldvalue.StringType:
		t, err := time.Parse(time.RFC3339Nano, value.StringValue())
		if err == nil {
			return t, true
		}
	case ldvalue.NumberType:
		return unixMillisToUTCTime(value.Float64Value()), true
	}
	return time.Time{}, false
}

func unixMillisToUTCTime(unixMillis float64) time.Time {
	return time.Unix(0, int64(unixMillis)*int64(time.Millisecond)).UTC()
}

func parseSemVer(value ldvalue.Value) (semver.Version, bool) {
	if !value.IsString() {
		return semver.Version{}, false
	}
	versionStr := value.StringValue()
	if sv, err := semver.Parse(versionStr); err == nil {
		return sv, true
	}
	// Failed to parse as-is; see if we can fix it by zero-padding
	matchParts := versionNumericComponentsRegex.FindStringSubmatch(versionStr)
	if matchParts != nil {
		transformedVersionStr := matchParts[0]
		for i := 1; i < len(matchParts); i++ {
			if matchParts[i] == "" {
				transformedVersionStr += ".0"
			}
		}
		transformedVersionStr += versionStr[len(matchParts[0]):]
		if sv, err := semver.Parse(transformedVersionStr); err == nil {
			return sv, true
		}
	}
	return semver.Version{}, false
}
