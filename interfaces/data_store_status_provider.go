package interfaces

// DataStoreStatus contains information about the status of a data store, provided by
// DataStoreStatusProvider.
type DataStoreStatus struct {
	// Available is true if the SDK believes the data store is now operational, or false if
	// it recently encountered an error and has not yet seen it recover.
	Available bool
	// NeedsRefresh is true if the store may be in an inconsistent state due to the outage
	// (writes may have been lost) and the SDK should rewrite its last known data to the
	// store.
	NeedsRefresh bool
}

// DataStoreStatusProvider is an interface for querying the status of a persistent data
// store and subscribing to status changes.
type DataStoreStatusProvider interface {
	// GetStatus returns the current status of the store.
	GetStatus() DataStoreStatus

	// IsStatusMonitoringEnabled indicates whether the current data store implementation
	// supports status monitoring. This is true for the caching wrapper used with
	// persistent stores, false for the default in-memory store.
	IsStatusMonitoringEnabled() bool

	// AddStatusListener subscribes for notifications of status changes. The return value
	// is always a channel, but it will never receive anything if
	// IsStatusMonitoringEnabled is false.
	AddStatusListener() <-chan DataStoreStatus

	// RemoveStatusListener unsubscribes from notifications of status changes and closes
	// the channel.
	RemoveStatusListener(listener <-chan DataStoreStatus)
}
