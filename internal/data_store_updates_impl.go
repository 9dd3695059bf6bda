package internal

import (
	"sync"

	"github.com/flagmill/go-server-sdk/interfaces"
)

// DataStoreUpdatesImpl receives availability reports from the data store and fans out the
// transitions. It is exported because other SDK components take the concrete type rather
// than the interface.
type DataStoreUpdatesImpl struct {
	status      interfaces.DataStoreStatus
	broadcaster *DataStoreStatusBroadcaster
	lock        sync.Mutex
}

// NewDataStoreUpdatesImpl creates the internal implementation of DataStoreUpdates.
func NewDataStoreUpdatesImpl(broadcaster *DataStoreStatusBroadcaster) *DataStoreUpdatesImpl {
	return &DataStoreUpdatesImpl{
		status:      interfaces.DataStoreStatus{Available: true},
		broadcaster: broadcaster,
	}
}

func (d *DataStoreUpdatesImpl) getStatus() interfaces.DataStoreStatus {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.status
}

func (d *DataStoreUpdatesImpl) getBroadcaster() *DataStoreStatusBroadcaster {
	return d.broadcaster
}

// UpdateStatus is called by the data store; only an actual change is broadcast.
func (d *DataStoreUpdatesImpl) UpdateStatus(newStatus interfaces.DataStoreStatus) {
	d.lock.Lock()
	changed := newStatus != d.status
	if changed {
		d.status = newStatus
	}
	d.lock.Unlock()
	if changed {
		d.broadcaster.Broadcast(newStatus)
	}
}
