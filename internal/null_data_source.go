package internal

import "github.com/flagmill/go-server-sdk/interfaces"

// NewNullDataSource returns a DataSource that never connects to anything and reports
// itself as initialized immediately. It is used when the client is offline.
func NewNullDataSource() interfaces.DataSource {
	return disabledDataSource{}
}

type disabledDataSource struct{}

func (d disabledDataSource) Start(closeWhenReady chan<- struct{}) {
	close(closeWhenReady)
}

func (d disabledDataSource) IsInitialized() bool {
	return true
}

func (d disabledDataSource) Close() error {
	return nil
}
