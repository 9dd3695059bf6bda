package evaluation

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is used here only for well-distributed bucketing, not cryptography
	"encoding/hex"
	"strconv"

	"github.com/flagmill/go-server-sdk/ldattr"
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldmodel"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// The bucket value is a 60-bit integer scaled into [0,1). Using 15 hex digits rather than
// the full SHA-1 keeps the value inside the exactly-representable integer range.
const longScale = float32(0xFFFFFFFFFFFFFFF)

// variationIndexForContext returns the variation a VariationOrRollout resolves to, and
// whether the context is participating in an experiment. The last return value is false
// if the data was malformed (neither a variation nor a non-empty rollout).
func (es *evaluationScope) variationIndexForContext(
	vr ldmodel.VariationOrRollout,
	key, salt string,
) (int, bool, bool) {
	if vr.Variation != nil {
		return *vr.Variation, false, true
	}
	if vr.Rollout == nil || len(vr.Rollout.Variations) == 0 {
		return 0, false, false
	}

	isExperiment := vr.Rollout.IsExperiment()
	bucketBy := ldattr.Ref{}
	if !isExperiment {
		// Experiments can only bucket by key.
		bucketBy = vr.Rollout.BucketBy
	}

	bucket, contextFound := es.computeBucketValue(vr.Rollout.Seed, vr.Rollout.ContextKind, key, bucketBy, salt)
	// If the context kind the rollout applies to is not present in the context, we still
	// return the first bucket, but the "in experiment" state is forced off.
	isExperiment = isExperiment && contextFound

	var sum float32
	for _, wv := range vr.Rollout.Variations {
		sum += float32(wv.Weight) / 100000.0
		if bucket < sum {
			return wv.Variation, isExperiment && !wv.Untracked, true
		}
	}

	// The context's bucket value was greater than or equal to the end of the last bucket.
	// This could happen due to a rounding error, or weights that don't add up to 100000.
	// Rather than returning an error (or changing the scaling, which would change the
	// results for all contexts), we simply put the context in the last bucket.
	lastVariation := vr.Rollout.Variations[len(vr.Rollout.Variations)-1]
	return lastVariation.Variation, isExperiment && !lastVariation.Untracked, true
}

// computeBucketValue hashes the relevant context attribute into a value in [0,1). The
// second return value is false if the context has no individual context of the kind the
// rollout applies to, in which case the bucket value is zero.
func (es *evaluationScope) computeBucketValue(
	seed *int,
	contextKind ldcontext.Kind,
	key string,
	attr ldattr.Ref,
	salt string,
) (float32, bool) {
	matchContext, ok := es.context.IndividualContextByKind(contextKind)
	if !ok {
		return 0, false
	}
	var attrValue ldvalue.Value
	if attr.IsDefined() {
		attrValue = matchContext.GetValueForRef(attr)
	} else {
		attrValue = ldvalue.String(matchContext.Key())
	}
	idHash, ok := bucketableStringValue(attrValue)
	if !ok {
		return 0, true
	}

	var prefix string
	if seed != nil {
		prefix = strconv.Itoa(*seed)
	} else {
		prefix = key + "." + salt
	}

	h := sha1.New() //nolint:gosec // see comment on import
	_, _ = h.Write([]byte(prefix + "." + idHash))
	hash := hex.EncodeToString(h.Sum(nil))[:15]

	intVal, _ := strconv.ParseInt(hash, 16, 64)
	return float32(intVal) / longScale, true
}

// Strings are bucketable as-is; integers are bucketable via their decimal representation,
// for compatibility with older SDKs that allowed numeric keys. Anything else buckets to zero.
func bucketableStringValue(value ldvalue.Value) (string, bool) {
	if value.IsString() {
		return value.StringValue(), true
	}
	if value.IsInt() {
		return strconv.Itoa(value.IntValue()), true
	}
	return "", false
}
