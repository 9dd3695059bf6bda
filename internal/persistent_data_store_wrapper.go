package internal

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	intf "github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldlog"
)

// cachedPersistentStore implements DataStore on top of a PersistentDataStore, adding the
// read-through cache layer that every database integration shares. Three cache modes exist,
// selected by the TTL: positive (entries expire), zero (no cache), negative (entries never
// expire, and the cache rather than the database is treated as the source of truth while
// the database is down).
type cachedPersistentStore struct {
	core     intf.PersistentDataStore
	updates  intf.DataStoreUpdates
	monitor  *availabilityTracker
	cache    *storeCache
	inFlight singleflight.Group
	loggers  ldlog.Loggers
	inited   bool
	initLock sync.RWMutex
}

// NewPersistentDataStoreWrapper wraps a PersistentDataStore in the standard caching layer.
// Not part of the public API; reached through ldcomponents.PersistentDataStore().
func NewPersistentDataStoreWrapper(
	core intf.PersistentDataStore,
	dataStoreUpdates intf.DataStoreUpdates,
	cacheTTL time.Duration,
	loggers ldlog.Loggers,
) intf.DataStore {
	s := &cachedPersistentStore{
		core:    core,
		updates: dataStoreUpdates,
		cache:   newStoreCache(cacheTTL),
		loggers: loggers,
	}
	s.monitor = newAvailabilityTracker(
		true,
		s.checkAndRepopulate,
		dataStoreUpdates.UpdateStatus,
		!s.cacheIsAuthoritative(), // with an infinite cache, consumers need no refresh on recovery
		loggers,
	)
	return s
}

// cacheIsAuthoritative is true in infinite-TTL mode, where cached data outlives any
// database outage and may be written back to the database on recovery.
func (s *cachedPersistentStore) cacheIsAuthoritative() bool {
	return s.cache != nil && s.cache.neverExpires
}

func (s *cachedPersistentStore) Init(allData []intf.StoreCollection) error {
	err := s.initCore(allData)
	s.cache.flush()
	if err != nil && !s.cacheIsAuthoritative() {
		// A failed write leaves the cache empty: stale-but-consistent data from the
		// database is preferable to fresh data that would vanish when the cache expires.
		return err
	}
	for _, coll := range allData {
		s.cache.putCollection(coll.Kind, coll.Items)
	}
	if err == nil || s.cacheIsAuthoritative() {
		s.initLock.Lock()
		s.inited = true
		s.initLock.Unlock()
	}
	return err
}

func (s *cachedPersistentStore) Get(kind intf.StoreDataKind, key string) (intf.StoreItemDescriptor, error) {
	if item, found := s.cache.item(kind, key); found {
		return item, nil
	}
	// Coalesce concurrent reads of the same key into one database query.
	value, err, _ := s.inFlight.Do("item/"+kind.GetName()+"/"+key, func() (interface{}, error) {
		item, err := s.readItem(kind, key)
		s.noteResult(err)
		if err != nil {
			return intf.StoreItemDescriptor{}.NotFound(), err
		}
		s.cache.putItem(kind, key, item)
		return item, nil
	})
	if err != nil {
		return intf.StoreItemDescriptor{}.NotFound(), err
	}
	return value.(intf.StoreItemDescriptor), nil
}

func (s *cachedPersistentStore) GetAll(kind intf.StoreDataKind) ([]intf.StoreKeyedItemDescriptor, error) {
	if items, found := s.cache.collection(kind); found {
		return items, nil
	}
	value, err, _ := s.inFlight.Do("all/"+kind.GetName(), func() (interface{}, error) {
		items, err := s.readCollection(kind)
		s.noteResult(err)
		if err != nil {
			return nil, err
		}
		s.cache.putCollection(kind, items)
		return items, nil
	})
	if err != nil || value == nil {
		return nil, err
	}
	return value.([]intf.StoreKeyedItemDescriptor), nil
}

func (s *cachedPersistentStore) Upsert(
	kind intf.StoreDataKind,
	key string,
	newItem intf.StoreItemDescriptor,
) (bool, error) {
	updated, err := s.core.Upsert(kind, key, serializeItem(kind, newItem))
	s.noteResult(err)

	switch {
	case err != nil:
		// With an infinite cache the write is kept anyway; the cached data can be pushed
		// back to the database once it recovers. Otherwise the failed write must not be
		// served from the cache.
		if s.cacheIsAuthoritative() {
			s.cache.putItem(kind, key, newItem)
			s.cache.patchCollection(kind, key, newItem)
		}
	case updated:
		s.cache.putItem(kind, key, newItem)
		if s.cacheIsAuthoritative() {
			// The full-collection entry never expires, so it must be patched in place.
			s.cache.patchCollection(kind, key, newItem)
		} else {
			s.cache.dropCollection(kind)
		}
	default:
		// The database had a newer version, written by someone else. Drop what we have and
		// re-read so the cache reflects that state.
		s.cache.dropItem(kind, key)
		s.cache.dropCollection(kind)
		_, _ = s.Get(kind, key)
	}
	return updated, err
}

func (s *cachedPersistentStore) IsInitialized() bool {
	s.initLock.RLock()
	known := s.inited
	s.initLock.RUnlock()
	if known {
		return true
	}
	// A negative answer from the database is remembered for one cache interval, so that
	// polling this method does not hammer the database before initialization.
	if s.cache.checkedInitRecently() {
		return false
	}
	if !s.core.IsInitialized() {
		s.cache.rememberInitCheck()
		return false
	}
	s.initLock.Lock()
	s.inited = true
	s.initLock.Unlock()
	return true
}

func (s *cachedPersistentStore) IsStatusMonitoringEnabled() bool {
	return true
}

func (s *cachedPersistentStore) Close() error {
	s.monitor.Close()
	return s.core.Close()
}

// checkAndRepopulate is called by the availability tracker while the database is down. When
// the database answers again and the cache is authoritative, the cached data set is written
// back so the database catches up with everything that changed during the outage.
func (s *cachedPersistentStore) checkAndRepopulate() bool {
	if !s.core.IsStoreAvailable() {
		return false
	}
	if s.cacheIsAuthoritative() {
		allData := make([]intf.StoreCollection, 0, 2)
		for _, kind := range intf.AllStoreDataKinds() {
			if items, found := s.cache.collection(kind); found {
				allData = append(allData, intf.StoreCollection{Kind: kind, Items: items})
			}
		}
		if err := s.initCore(allData); err != nil {
			// initCore has already flagged the store as unavailable again.
			s.loggers.Errorf("Tried to write cached data to persistent store after a store outage, but failed: %s", err)
		} else {
			s.loggers.Warn("Successfully updated persistent store from cached data")
		}
	}
	return true
}

func (s *cachedPersistentStore) initCore(allData []intf.StoreCollection) error {
	serialized := make([]intf.StoreSerializedCollection, 0, len(allData))
	for _, coll := range allData {
		items := make([]intf.StoreKeyedSerializedItemDescriptor, 0, len(coll.Items))
		for _, item := range coll.Items {
			items = append(items, intf.StoreKeyedSerializedItemDescriptor{
				Key:  item.Key,
				Item: serializeItem(coll.Kind, item.Item),
			})
		}
		serialized = append(serialized, intf.StoreSerializedCollection{Kind: coll.Kind, Items: items})
	}
	err := s.core.Init(serialized)
	s.noteResult(err)
	return err
}

func (s *cachedPersistentStore) readItem(
	kind intf.StoreDataKind,
	key string,
) (intf.StoreItemDescriptor, error) {
	serialized, err := s.core.Get(kind, key)
	if err != nil {
		return intf.StoreItemDescriptor{}.NotFound(), err
	}
	return deserializeItem(kind, serialized)
}

func (s *cachedPersistentStore) readCollection(
	kind intf.StoreDataKind,
) ([]intf.StoreKeyedItemDescriptor, error) {
	serialized, err := s.core.GetAll(kind)
	if err != nil {
		return nil, err
	}
	items := make([]intf.StoreKeyedItemDescriptor, 0, len(serialized))
	for _, si := range serialized {
		item, err := deserializeItem(kind, si.Item)
		if err != nil {
			return nil, err
		}
		items = append(items, intf.StoreKeyedItemDescriptor{Key: si.Key, Item: item})
	}
	return items, nil
}

// noteResult feeds operation outcomes to the availability tracker. Successes are not
// reported: recovery detection belongs to the tracker's polling loop alone.
func (s *cachedPersistentStore) noteResult(err error) {
	if err != nil {
		s.monitor.setAvailable(false)
	}
}

func serializeItem(kind intf.StoreDataKind, item intf.StoreItemDescriptor) intf.StoreSerializedItemDescriptor {
	return intf.StoreSerializedItemDescriptor{
		Version:        item.Version,
		Deleted:        item.Item == nil,
		SerializedItem: kind.Serialize(item),
	}
}

func deserializeItem(
	kind intf.StoreDataKind,
	serialized intf.StoreSerializedItemDescriptor,
) (intf.StoreItemDescriptor, error) {
	if serialized.Deleted || serialized.SerializedItem == nil {
		return intf.StoreItemDescriptor{Version: serialized.Version}, nil
	}
	item, err := kind.Deserialize(serialized.SerializedItem)
	if err != nil {
		return intf.StoreItemDescriptor{}.NotFound(), err
	}
	if serialized.Version != 0 && serialized.Version != item.Version {
		// The database's version column wins over whatever is encoded in the payload.
		return intf.StoreItemDescriptor{Version: serialized.Version, Item: item.Item}, nil
	}
	return item, nil
}

// storeCache wraps the TTL cache used by cachedPersistentStore, giving each kind of entry
// (single item, full collection, init-check memo) a typed accessor. A nil *storeCache is
// valid and caches nothing, which is how the no-cache mode is expressed.
type storeCache struct {
	entries      *cache.Cache
	neverExpires bool
}

const initCheckMemoKey = "$initChecked"

func newStoreCache(ttl time.Duration) *storeCache {
	if ttl == 0 {
		return nil
	}
	// A negative TTL is go-cache's "never expire", matching our infinite mode.
	return &storeCache{
		entries:      cache.New(ttl, 5*time.Minute),
		neverExpires: ttl < 0,
	}
}

func itemCacheKey(kind intf.StoreDataKind, key string) string {
	return kind.GetName() + ":" + key
}

func collectionCacheKey(kind intf.StoreDataKind) string {
	return "all:" + kind.GetName()
}

func (c *storeCache) flush() {
	if c != nil {
		c.entries.Flush()
	}
}

func (c *storeCache) item(kind intf.StoreDataKind, key string) (intf.StoreItemDescriptor, bool) {
	if c != nil {
		if data, present := c.entries.Get(itemCacheKey(kind, key)); present {
			if item, ok := data.(intf.StoreItemDescriptor); ok {
				return item, true
			}
		}
	}
	return intf.StoreItemDescriptor{}, false
}

func (c *storeCache) putItem(kind intf.StoreDataKind, key string, item intf.StoreItemDescriptor) {
	if c != nil {
		c.entries.Set(itemCacheKey(kind, key), item, cache.DefaultExpiration)
	}
}

func (c *storeCache) dropItem(kind intf.StoreDataKind, key string) {
	if c != nil {
		c.entries.Delete(itemCacheKey(kind, key))
	}
}

func (c *storeCache) collection(kind intf.StoreDataKind) ([]intf.StoreKeyedItemDescriptor, bool) {
	if c != nil {
		if data, present := c.entries.Get(collectionCacheKey(kind)); present {
			if items, ok := data.([]intf.StoreKeyedItemDescriptor); ok {
				return items, true
			}
		}
	}
	return nil, false
}

func (c *storeCache) putCollection(kind intf.StoreDataKind, items []intf.StoreKeyedItemDescriptor) {
	if c == nil {
		return
	}
	stored := make([]intf.StoreKeyedItemDescriptor, len(items))
	copy(stored, items)
	c.entries.Set(collectionCacheKey(kind), stored, cache.DefaultExpiration)
	for _, item := range items {
		c.putItem(kind, item.Key, item.Item)
	}
}

func (c *storeCache) dropCollection(kind intf.StoreDataKind) {
	if c != nil {
		c.entries.Delete(collectionCacheKey(kind))
	}
}

// patchCollection replaces or appends one item within the cached full collection.
func (c *storeCache) patchCollection(kind intf.StoreDataKind, key string, item intf.StoreItemDescriptor) {
	if c == nil {
		return
	}
	existing, _ := c.collection(kind)
	patched := make([]intf.StoreKeyedItemDescriptor, 0, len(existing)+1)
	replaced := false
	for _, entry := range existing {
		if entry.Key == key {
			patched = append(patched, intf.StoreKeyedItemDescriptor{Key: key, Item: item})
			replaced = true
		} else {
			patched = append(patched, entry)
		}
	}
	if !replaced {
		patched = append(patched, intf.StoreKeyedItemDescriptor{Key: key, Item: item})
	}
	c.entries.Set(collectionCacheKey(kind), patched, cache.DefaultExpiration)
}

func (c *storeCache) rememberInitCheck() {
	if c != nil {
		c.entries.Set(initCheckMemoKey, "", cache.DefaultExpiration)
	}
}

func (c *storeCache) checkedInitRecently() bool {
	if c == nil {
		return false
	}
	_, found := c.entries.Get(initCheckMemoKey)
	return found
}
