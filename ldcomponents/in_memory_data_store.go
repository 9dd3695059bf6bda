package ldcomponents

import (
	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/internal"
)

type inMemoryDataStoreFactory struct{}

// InMemoryDataStore returns the default in-memory data store implementation.
//
// This is the default behavior, so you do not normally need to call this method unless you
// want to set the DataStore field explicitly:
//
//	config := ld.Config{
//	    DataStore: ldcomponents.InMemoryDataStore(),
//	}
func InMemoryDataStore() interfaces.DataStoreFactory {
	return inMemoryDataStoreFactory{}
}

func (f inMemoryDataStoreFactory) CreateDataStore(
	context interfaces.ClientContext,
	dataStoreUpdates interfaces.DataStoreUpdates,
) (interfaces.DataStore, error) {
	loggers := context.GetLogging().GetLoggers()
	loggers.SetPrefix("InMemoryDataStore:")
	return internal.NewInMemoryDataStore(loggers), nil
}
