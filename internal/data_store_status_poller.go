package internal

import (
	"sync"
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldlog"
)

// Interval between recovery checks of an unavailable persistent store.
const storeRecoveryPollInterval = 500 * time.Millisecond

// availabilityTracker keeps the last known reachability of a persistent store. Whenever the
// store goes down it starts a background polling loop to notice recovery, and every
// transition is reported through statusFn. Only the persistent store facade uses this.
type availabilityTracker struct {
	checkFn           func() bool
	statusFn          func(interfaces.DataStoreStatus)
	refreshOnRecovery bool
	loggers           ldlog.Loggers
	available         bool
	stopPolling       chan struct{}
	closeOnce         sync.Once
	lock              sync.Mutex
}

// newAvailabilityTracker creates an availabilityTracker; checkFn returns whether the store
// is currently reachable.
func newAvailabilityTracker(
	availableNow bool,
	checkFn func() bool,
	statusFn func(interfaces.DataStoreStatus),
	refreshOnRecovery bool,
	loggers ldlog.Loggers,
) *availabilityTracker {
	return &availabilityTracker{
		available:         availableNow,
		checkFn:           checkFn,
		statusFn:          statusFn,
		refreshOnRecovery: refreshOnRecovery,
		loggers:           loggers,
	}
}

// setAvailable records the store's reachability. A transition is reported to statusFn; a
// transition to unavailable also starts the recovery polling loop.
func (t *availabilityTracker) setAvailable(available bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if available == t.available {
		return
	}
	t.available = available

	status := interfaces.DataStoreStatus{Available: available}
	if available {
		t.loggers.Warn("Persistent store is available again")
		status.NeedsRefresh = t.refreshOnRecovery
	} else {
		t.loggers.Warn("Detected persistent store unavailability; updates will be cached until it recovers")
	}
	t.statusFn(status)

	if !available {
		t.stopPolling = make(chan struct{})
		go t.pollUntilRecovered(t.stopPolling)
	}
}

func (t *availabilityTracker) pollUntilRecovered(stop <-chan struct{}) {
	ticker := time.NewTicker(storeRecoveryPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if t.checkFn() {
				t.setAvailable(true)
				return
			}
		case <-stop:
			return
		}
	}
}

// Close stops any running recovery loop.
func (t *availabilityTracker) Close() {
	t.closeOnce.Do(func() {
		t.lock.Lock()
		defer t.lock.Unlock()
		if t.stopPolling != nil {
			close(t.stopPolling)
			t.stopPolling = nil
		}
	})
}
