package interfaces

import "io"

// DataSource describes the component that obtains feature flag data and puts it in the
// data store, such as the default streaming connection or the polling fallback.
type DataSource interface {
	io.Closer

	// IsInitialized returns true if the data source has successfully received a complete
	// data set at least once.
	IsInitialized() bool

	// Start tells the data source to begin initializing. It returns immediately; the data
	// source closes closeWhenReady once it has either received a complete data set or
	// determined permanently that it cannot (in which case IsInitialized stays false).
	Start(closeWhenReady chan<- struct{})
}

// DataSourceFactory is a factory that creates some implementation of DataSource.
type DataSourceFactory interface {
	// CreateDataSource is called by the SDK to create the implementation instance. The
	// dataSourceUpdates sink is how the data source delivers data and status updates.
	CreateDataSource(context ClientContext, dataSourceUpdates DataSourceUpdates) (DataSource, error)
}

// DataSourceUpdates is the interface the SDK provides to a DataSource, as the sole means
// by which the data source writes data and reports its status.
type DataSourceUpdates interface {
	// Init overwrites the current contents of the data store with a complete data set.
	// The return value is false if a data store error occurred (in which case the error
	// has already been reported via UpdateStatus).
	Init(allData []StoreCollection) bool

	// Upsert updates or inserts an item, respecting versioning. Deletions are upserts of
	// a StoreItemDescriptor with a nil Item. The return value is false only for data
	// store errors, not for discarded stale versions.
	Upsert(kind StoreDataKind, key string, item StoreItemDescriptor) bool

	// UpdateStatus informs the SDK of a change in the data source's status. A new state of
	// DataSourceStateInterrupted, when the current state is still
	// DataSourceStateInitializing, is treated as remaining in the initializing state.
	UpdateStatus(newState DataSourceState, newError DataSourceErrorInfo)

	// GetDataStoreStatusProvider returns an object that tracks the status of the
	// underlying data store, so that the data source can refresh the store's data after
	// an outage if the store requires it.
	GetDataStoreStatusProvider() DataStoreStatusProvider
}
