package internal

import "github.com/flagmill/go-server-sdk/interfaces"

// dataStoreStatusProvider is the public read-only view of the data store's availability.
// Status monitoring is a property of the store itself, so that question is passed through.
type dataStoreStatusProvider struct {
	store   interfaces.DataStore
	updates *DataStoreUpdatesImpl
}

// NewDataStoreStatusProviderImpl creates the internal implementation of DataStoreStatusProvider.
func NewDataStoreStatusProviderImpl(
	store interfaces.DataStore,
	updates *DataStoreUpdatesImpl,
) interfaces.DataStoreStatusProvider {
	return &dataStoreStatusProvider{store: store, updates: updates}
}

func (d *dataStoreStatusProvider) GetStatus() interfaces.DataStoreStatus {
	return d.updates.getStatus()
}

func (d *dataStoreStatusProvider) IsStatusMonitoringEnabled() bool {
	return d.store.IsStatusMonitoringEnabled()
}

func (d *dataStoreStatusProvider) AddStatusListener() <-chan interfaces.DataStoreStatus {
	return d.updates.getBroadcaster().AddListener()
}

func (d *dataStoreStatusProvider) RemoveStatusListener(ch <-chan interfaces.DataStoreStatus) {
	d.updates.getBroadcaster().RemoveListener(ch)
}
