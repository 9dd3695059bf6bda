package interfaces

import "io"

// DataStore is an interface for a data store that holds feature flags and related data
// received by the SDK.
//
// Ordinarily, the only implementations of this interface are the default in-memory
// implementation, which holds references to actual SDK data model objects, and the
// caching wrapper that is placed in front of a PersistentDataStore.
type DataStore interface {
	io.Closer

	// Init overwrites the store's contents with a set of items for each collection.
	//
	// All previous data is discarded, regardless of versioning. The store should make the
	// update atomically: a reader should never see a mix of old and new data.
	Init(allData []StoreCollection) error

	// Get retrieves an item from the specified collection, if available.
	//
	// If the key is unknown, or the item has been deleted, it returns
	// StoreItemDescriptor{}.NotFound() with a nil error.
	Get(kind StoreDataKind, key string) (StoreItemDescriptor, error)

	// GetAll retrieves all items from the specified collection, excluding deleted items.
	GetAll(kind StoreDataKind) ([]StoreKeyedItemDescriptor, error)

	// Upsert updates or inserts an item in the specified collection. For updates, the
	// object will only be updated if the existing version is less than the new version;
	// the return value is true if the store was modified.
	//
	// To mark an item as deleted, pass a StoreItemDescriptor with a nil Item and the
	// deletion version.
	Upsert(kind StoreDataKind, key string, item StoreItemDescriptor) (bool, error)

	// IsInitialized returns true if the store has been initialized at some point, either
	// by this SDK instance or, for a persistent store, by another SDK sharing the database.
	IsInitialized() bool

	// IsStatusMonitoringEnabled returns true if the store can report status via a
	// DataStoreUpdates sink. The in-memory store returns false since it cannot fail.
	IsStatusMonitoringEnabled() bool
}

// PersistentDataStore is an interface for a database implementation that holds feature
// flags and related data in a serialized form.
//
// The SDK never uses a PersistentDataStore directly; it is always wrapped in the standard
// caching layer, which converts between the serialized form and the data model, caches
// results, and tracks store availability. Implementations do not need to worry about
// caching or versioned-data semantics beyond what is described on each method.
type PersistentDataStore interface {
	io.Closer

	// Init overwrites the store's contents with a set of serialized items for each
	// collection, and marks the store as initialized.
	Init(allData []StoreSerializedCollection) error

	// Get retrieves a serialized item from the specified collection, if available. Deleted
	// item placeholders are returned as stored; the caching layer interprets them.
	Get(kind StoreDataKind, key string) (StoreSerializedItemDescriptor, error)

	// GetAll retrieves all serialized items from the specified collection, including
	// deleted item placeholders.
	GetAll(kind StoreDataKind) ([]StoreKeyedSerializedItemDescriptor, error)

	// Upsert updates or inserts a serialized item if the existing version is less than the
	// new version, returning true if the store was modified. The version must be
	// determinable from the stored data alone (both flags and segments carry it in their
	// JSON), since the comparison may be done within a database transaction.
	Upsert(kind StoreDataKind, key string, item StoreSerializedItemDescriptor) (bool, error)

	// IsInitialized returns true if the store contains a data set, meaning that Init has
	// been called by this or another SDK instance sharing the database.
	IsInitialized() bool

	// IsStoreAvailable tests whether the store seems to be functioning normally. It is
	// used for status polling after an operation has failed.
	IsStoreAvailable() bool
}

// DataStoreFactory is a factory that creates some implementation of DataStore.
type DataStoreFactory interface {
	// CreateDataStore is called by the SDK to create the implementation instance. The
	// dataStoreUpdates sink is how a store that supports status monitoring reports
	// status changes.
	CreateDataStore(context ClientContext, dataStoreUpdates DataStoreUpdates) (DataStore, error)
}

// PersistentDataStoreFactory is a factory that creates some implementation of
// PersistentDataStore, to be used with ldcomponents.PersistentDataStore.
type PersistentDataStoreFactory interface {
	// CreatePersistentDataStore is called by the SDK to create the implementation instance.
	CreatePersistentDataStore(context ClientContext) (PersistentDataStore, error)
}

// DataStoreUpdates is the interface the SDK provides to a DataStore so that the store can
// report changes in its own status.
type DataStoreUpdates interface {
	// UpdateStatus informs the SDK of a change in the data store's operational status.
	UpdateStatus(newStatus DataStoreStatus)
}
