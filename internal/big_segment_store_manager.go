package internal

import (
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"time"

	"github.com/launchdarkly/ccache"
	"golang.org/x/sync/singleflight"

	"github.com/flagmill/go-server-sdk/evaluation"
	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldlog"
	"github.com/flagmill/go-server-sdk/ldreason"
	"github.com/flagmill/go-server-sdk/ldtime"
)

// BigSegmentStoreManager polls the Big Segment store's metadata to track availability and
// staleness, and caches membership queries. It implements the BigSegmentProvider interface
// that the evaluator uses, so a configured Big Segment store is the only way evaluations
// can see Big Segment data.
type BigSegmentStoreManager struct {
	store          interfaces.BigSegmentStore
	broadcaster    *BigSegmentStoreStatusBroadcaster
	staleAfter     time.Duration
	contextCache   *ccache.Cache
	cacheTTL       time.Duration
	pollInterval   time.Duration
	haveStatus     bool
	lastStatus     interfaces.BigSegmentStoreStatus
	requests       singleflight.Group
	pollCloser     chan struct{}
	closeOnce      sync.Once
	loggers        ldlog.Loggers
	lock           sync.RWMutex
}

// The wrapper type is necessary because a nil membership (a context with no memberships at
// all) is still a valid cacheable result.
type membershipCacheValue struct {
	membership interfaces.BigSegmentMembership
}

// NewBigSegmentStoreManager creates the BigSegmentStoreManager. The store must not be nil.
// This is only called through ldcomponents.BigSegments().
func NewBigSegmentStoreManager(
	store interfaces.BigSegmentStore,
	pollInterval time.Duration,
	staleAfter time.Duration,
	cacheSize int,
	cacheTTL time.Duration,
	loggers ldlog.Loggers,
) *BigSegmentStoreManager {
	m := &BigSegmentStoreManager{
		store:        store,
		broadcaster:  NewBigSegmentStoreStatusBroadcaster(),
		staleAfter:   staleAfter,
		contextCache: ccache.New(ccache.Configure().MaxSize(int64(cacheSize))),
		cacheTTL:     cacheTTL,
		pollInterval: pollInterval,
		pollCloser:   make(chan struct{}),
		loggers:      loggers,
	}
	go m.runPollTask()
	return m
}

// Close shuts down the polling task and the underlying store.
func (m *BigSegmentStoreManager) Close() {
	m.closeOnce.Do(func() {
		close(m.pollCloser)
		m.contextCache.Stop()
		m.broadcaster.Close()
		_ = m.store.Close()
	})
}

// GetBroadcaster returns the status broadcaster, for use by the status provider.
func (m *BigSegmentStoreManager) GetBroadcaster() *BigSegmentStoreStatusBroadcaster {
	return m.broadcaster
}

// GetStatus returns the current status of the store, querying the store metadata
// synchronously if no poll has happened yet.
func (m *BigSegmentStoreManager) GetStatus() interfaces.BigSegmentStoreStatus {
	m.lock.RLock()
	status := m.lastStatus
	haveStatus := m.haveStatus
	m.lock.RUnlock()

	if haveStatus {
		return status
	}
	return m.pollStoreAndUpdateStatus()
}

// GetBigSegmentMembership queries a context's Big Segment membership, using cached values
// when available. The returned status reflects whether the store was reachable and fresh
// at the time the membership data was obtained.
func (m *BigSegmentStoreManager) GetBigSegmentMembership(
	contextKey string,
) (evaluation.BigSegmentMembership, ldreason.BigSegmentsStatus) {
	entry := m.contextCache.Get(contextKey)
	var membership interfaces.BigSegmentMembership
	if entry != nil && !entry.Expired() {
		if cached, ok := entry.Value().(membershipCacheValue); ok {
			membership = cached.membership
		}
	} else {
		// Use singleflight so concurrent evaluations of the same context do only one query
		value, err, _ := m.requests.Do(contextKey, func() (interface{}, error) {
			hash := HashForContextKey(contextKey)
			queried, err := m.store.GetMembership(hash)
			if err != nil {
				return nil, err
			}
			cached := membershipCacheValue{membership: queried}
			m.contextCache.Set(contextKey, cached, m.cacheTTL)
			return cached, nil
		})
		if err != nil {
			m.loggers.Errorf("Big Segment store returned error: %s", err)
			return nil, ldreason.BigSegmentsStoreError
		}
		membership = value.(membershipCacheValue).membership
	}

	status := m.GetStatus()
	switch {
	case !status.Available:
		return membership, ldreason.BigSegmentsStoreError
	case status.Stale:
		return membership, ldreason.BigSegmentsStale
	default:
		return membership, ldreason.BigSegmentsHealthy
	}
}

func (m *BigSegmentStoreManager) pollStoreAndUpdateStatus() interfaces.BigSegmentStoreStatus {
	var newStatus interfaces.BigSegmentStoreStatus
	metadata, err := m.store.GetMetadata()
	if err == nil {
		newStatus.Available = true
		newStatus.Stale = m.isStale(metadata.LastUpToDate)
	} else {
		m.loggers.Errorf("Big Segment store status query returned error: %s", err)
		newStatus.Available = false
	}

	m.lock.Lock()
	oldStatus := m.lastStatus
	hadStatus := m.haveStatus
	m.lastStatus = newStatus
	m.haveStatus = true
	m.lock.Unlock()

	if !hadStatus || newStatus != oldStatus {
		m.loggers.Debugf(
			"Big Segment store status changed from %+v to %+v",
			oldStatus,
			newStatus,
		)
		m.broadcaster.Broadcast(newStatus)
	}
	return newStatus
}

func (m *BigSegmentStoreManager) isStale(updateTime ldtime.UnixMillisecondTime) bool {
	age := time.Duration(uint64(ldtime.UnixMillisNow())-uint64(updateTime)) * time.Millisecond
	return !updateTime.IsDefined() || age >= m.staleAfter
}

func (m *BigSegmentStoreManager) runPollTask() {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.pollCloser:
			return
		case <-ticker.C:
			_ = m.pollStoreAndUpdateStatus()
		}
	}
}

// HashForContextKey computes the hash that Big Segment stores use in place of a raw
// context key: the base64 encoding of a SHA-256 digest of the key.
func HashForContextKey(key string) string {
	hashBytes := sha256.Sum256([]byte(key))
	return base64.StdEncoding.EncodeToString(hashBytes[:])
}
