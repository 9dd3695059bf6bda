package internal

import (
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
)

// dataSourceStatusProvider is the public read-only view of the data source's state. It
// defers to DataSourceUpdatesImpl, which owns the state, and to the shared broadcaster
// for listener registration.
type dataSourceStatusProvider struct {
	broadcaster *DataSourceStatusBroadcaster
	updates     *DataSourceUpdatesImpl
}

// NewDataSourceStatusProviderImpl creates the internal implementation of DataSourceStatusProvider.
func NewDataSourceStatusProviderImpl(
	broadcaster *DataSourceStatusBroadcaster,
	updates *DataSourceUpdatesImpl,
) interfaces.DataSourceStatusProvider {
	return &dataSourceStatusProvider{broadcaster: broadcaster, updates: updates}
}

func (d *dataSourceStatusProvider) GetStatus() interfaces.DataSourceStatus {
	return d.updates.GetLastStatus()
}

func (d *dataSourceStatusProvider) AddStatusListener() <-chan interfaces.DataSourceStatus {
	return d.broadcaster.AddListener()
}

func (d *dataSourceStatusProvider) RemoveStatusListener(listener <-chan interfaces.DataSourceStatus) {
	d.broadcaster.RemoveListener(listener)
}

func (d *dataSourceStatusProvider) WaitFor(desiredState interfaces.DataSourceState, timeout time.Duration) bool {
	return d.updates.waitFor(desiredState, timeout)
}
