package ldcomponents

import (
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/internal"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// DefaultCacheTTL is the default amount of time that recently read or updated items will be
// cached in memory, if you use PersistentDataStore. You can specify otherwise with the
// PersistentDataStoreBuilder.CacheTime option.
const DefaultCacheTTL = 15 * time.Second

// PersistentDataStoreBuilder provides configuration of a persistent data store (such as a
// database integration) together with the SDK's caching behavior on top of it.
//
// The database integration itself is provided by a separate package or module; what this
// builder adds is the standard read-through caching layer that all persistent stores share.
//
//	config := ld.Config{
//	    DataStore: ldcomponents.PersistentDataStore(
//	        someDatabaseIntegration.DataStore().URL(myDatabaseURL),
//	    ).CacheSeconds(30),
//	}
type PersistentDataStoreBuilder struct {
	persistentDataStoreFactory interfaces.PersistentDataStoreFactory
	cacheTTL                   time.Duration
}

// PersistentDataStore returns a configuration builder for a persistent data store.
func PersistentDataStore(
	persistentDataStoreFactory interfaces.PersistentDataStoreFactory,
) *PersistentDataStoreBuilder {
	return &PersistentDataStoreBuilder{
		persistentDataStoreFactory: persistentDataStoreFactory,
		cacheTTL:                   DefaultCacheTTL,
	}
}

// CacheTime specifies the cache TTL. Items will be evicted from the cache after this amount
// of time from the time when they were originally cached.
//
// If the value is zero, caching is disabled (equivalent to NoCaching); if it is negative,
// data is cached forever (equivalent to CacheForever).
func (b *PersistentDataStoreBuilder) CacheTime(cacheTime time.Duration) *PersistentDataStoreBuilder {
	b.cacheTTL = cacheTime
	return b
}

// CacheSeconds is a shortcut for calling CacheTime with a duration in seconds.
func (b *PersistentDataStoreBuilder) CacheSeconds(cacheSeconds int) *PersistentDataStoreBuilder {
	return b.CacheTime(time.Duration(cacheSeconds) * time.Second)
}

// CacheForever specifies that the in-memory cache should never expire. In this mode, data will
// be written to both the underlying persistent store and the cache, but will only ever be
// read from the persistent store if the SDK is restarted.
//
// Use this mode with caution: it means that in a scenario where multiple processes are sharing
// the database, and the current process loses connectivity to the streaming service while
// other processes are still receiving updates and writing them to the database, the current
// process will have stale data.
func (b *PersistentDataStoreBuilder) CacheForever() *PersistentDataStoreBuilder {
	return b.CacheTime(-1)
}

// NoCaching specifies that the SDK should not use an in-memory cache for the persistent data
// store. This means that every feature flag evaluation will trigger a data store query.
func (b *PersistentDataStoreBuilder) NoCaching() *PersistentDataStoreBuilder {
	return b.CacheTime(0)
}

// CreateDataStore is called by the SDK to create the data store instance.
func (b *PersistentDataStoreBuilder) CreateDataStore(
	context interfaces.ClientContext,
	dataStoreUpdates interfaces.DataStoreUpdates,
) (interfaces.DataStore, error) {
	core, err := b.persistentDataStoreFactory.CreatePersistentDataStore(context)
	if err != nil {
		return nil, err
	}
	loggers := context.GetLogging().GetLoggers()
	loggers.SetPrefix("DataStore:")
	return internal.NewPersistentDataStoreWrapper(core, dataStoreUpdates, b.cacheTTL, loggers), nil
}

// DescribeConfiguration is used internally by the SDK to inspect the configuration. The
// description of the database integration is delegated to the store factory, if it provides
// one.
func (b *PersistentDataStoreBuilder) DescribeConfiguration() ldvalue.Value {
	if dd, ok := b.persistentDataStoreFactory.(interfaces.DiagnosticDescription); ok {
		return dd.DescribeConfiguration()
	}
	return ldvalue.String("custom")
}
