package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldlog"
)

const testSDKKey = "fake-sdk-key"

func basicClientContext() interfaces.ClientContext {
	headers := make(map[string][]string)
	headers["Authorization"] = []string{testSDKKey}
	return NewClientContextImpl(
		testSDKKey,
		HTTPConfigurationImpl{DefaultHeaders: headers},
		LoggingConfigurationImpl{Loggers: ldlog.NewDisabledLoggers()},
		false,
		nil,
	)
}

type dataSourceStatusRecord struct {
	state interfaces.DataSourceState
	err   interfaces.DataSourceErrorInfo
}

// mockDataSourceUpdates accumulates the data and status updates that a data source under
// test delivers, backed by a real in-memory store.
type mockDataSourceUpdates struct {
	store               interfaces.DataStore
	statusCh            chan dataSourceStatusRecord
	storeStatusProvider *mockDataStoreStatusProvider
}

func newMockDataSourceUpdates() *mockDataSourceUpdates {
	return &mockDataSourceUpdates{
		store:    NewInMemoryDataStore(ldlog.NewDisabledLoggers()),
		statusCh: make(chan dataSourceStatusRecord, 100),
		storeStatusProvider: &mockDataStoreStatusProvider{
			broadcaster: NewDataStoreStatusBroadcaster(),
		},
	}
}

func (u *mockDataSourceUpdates) Init(allData []interfaces.StoreCollection) bool {
	return u.store.Init(allData) == nil
}

func (u *mockDataSourceUpdates) Upsert(
	kind interfaces.StoreDataKind,
	key string,
	item interfaces.StoreItemDescriptor,
) bool {
	_, err := u.store.Upsert(kind, key, item)
	return err == nil
}

func (u *mockDataSourceUpdates) UpdateStatus(
	newState interfaces.DataSourceState,
	newError interfaces.DataSourceErrorInfo,
) {
	u.statusCh <- dataSourceStatusRecord{state: newState, err: newError}
}

func (u *mockDataSourceUpdates) GetDataStoreStatusProvider() interfaces.DataStoreStatusProvider {
	return u.storeStatusProvider
}

func (u *mockDataSourceUpdates) requireState(
	t *testing.T,
	expected interfaces.DataSourceState,
) dataSourceStatusRecord {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case rec := <-u.statusCh:
			if rec.state == expected {
				return rec
			}
		case <-deadline:
			require.FailNowf(t, "timed out", "waiting for data source state %s", expected)
			return dataSourceStatusRecord{}
		}
	}
}

type mockDataStoreStatusProvider struct {
	monitoringEnabled bool
	broadcaster       *DataStoreStatusBroadcaster
}

func (m *mockDataStoreStatusProvider) GetStatus() interfaces.DataStoreStatus {
	return interfaces.DataStoreStatus{Available: true}
}

func (m *mockDataStoreStatusProvider) IsStatusMonitoringEnabled() bool {
	return m.monitoringEnabled
}

func (m *mockDataStoreStatusProvider) AddStatusListener() <-chan interfaces.DataStoreStatus {
	return m.broadcaster.AddListener()
}

func (m *mockDataStoreStatusProvider) RemoveStatusListener(ch <-chan interfaces.DataStoreStatus) {
	m.broadcaster.RemoveListener(ch)
}

func waitForReady(t *testing.T, closeWhenReady <-chan struct{}) {
	t.Helper()
	select {
	case <-closeWhenReady:
	case <-time.After(3 * time.Second):
		require.FailNow(t, "timed out waiting for data source to signal readiness")
	}
}
