package ldevents

import (
	"math/rand"
	"sync"
)

var samplerLock sync.Mutex
var samplerRandFn = rand.Float64 //nolint:gochecknoglobals // replaced in tests

// shouldSample decides whether an event with the given one-in-N sampling ratio should be sent.
// A nil ratio means sampling was not configured, so the event is always sent. A ratio of 1 also
// always sends; zero or a negative value never sends.
func shouldSample(ratio *int) bool {
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
