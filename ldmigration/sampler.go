package ldmigration

import (
	"math/rand"
	"sync"
)

var samplerLock sync.Mutex
var samplerRandFn = rand.Float64 //nolint:gochecknoglobals // replaced in tests

// sampleRatio decides whether a one-in-N sampled action should be taken. A nil ratio means
// sampling was not configured, so the action is always taken.
func sampleRatio(ratio *int) bool {
	if ratio == nil {
		return true
	}
	r := *ratio
	if r <= 0 {
		return false
	}
	if r == 1 {
		return true
	}
	samplerLock.Lock()
	n := samplerRandFn()
	samplerLock.Unlock()
	return n < 1/float64(r)
}
