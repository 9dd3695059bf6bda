package internal

import (
	"sync"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldlog"
)

// memoryStore is the default DataStore: a map of maps guarded by a reader-writer lock.
type memoryStore struct {
	items   map[interfaces.StoreDataKind]map[string]interfaces.StoreItemDescriptor
	inited  bool
	lock    sync.RWMutex
	loggers ldlog.Loggers
}

// NewInMemoryDataStore creates an instance of the in-memory data store. Not part of the
// public API; reached through ldcomponents.InMemoryDataStore().
func NewInMemoryDataStore(loggers ldlog.Loggers) interfaces.DataStore {
	return &memoryStore{
		items:   make(map[interfaces.StoreDataKind]map[string]interfaces.StoreItemDescriptor),
		loggers: loggers,
	}
}

func (s *memoryStore) Init(allData []interfaces.StoreCollection) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.items = make(map[interfaces.StoreDataKind]map[string]interfaces.StoreItemDescriptor, len(allData))
	for _, coll := range allData {
		byKey := make(map[string]interfaces.StoreItemDescriptor, len(coll.Items))
		for _, item := range coll.Items {
			byKey[item.Key] = item.Item
		}
		s.items[coll.Kind] = byKey
	}
	s.inited = true
	return nil
}

func (s *memoryStore) Get(kind interfaces.StoreDataKind, key string) (interfaces.StoreItemDescriptor, error) {
	s.lock.RLock()
	item, found := s.items[kind][key]
	s.lock.RUnlock()

	if !found {
		if s.loggers.IsDebugEnabled() {
			s.loggers.Debugf(`Key %s not found in "%s"`, key, kind)
		}
		return interfaces.StoreItemDescriptor{}.NotFound(), nil
	}
	return item, nil
}

func (s *memoryStore) GetAll(kind interfaces.StoreDataKind) ([]interfaces.StoreKeyedItemDescriptor, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	byKey, found := s.items[kind]
	if !found {
		return nil, nil
	}
	all := make([]interfaces.StoreKeyedItemDescriptor, 0, len(byKey))
	for key, item := range byKey {
		all = append(all, interfaces.StoreKeyedItemDescriptor{Key: key, Item: item})
	}
	return all, nil
}

func (s *memoryStore) Upsert(
	kind interfaces.StoreDataKind,
	key string,
	newItem interfaces.StoreItemDescriptor,
) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	byKey, found := s.items[kind]
	if !found {
		s.items[kind] = map[string]interfaces.StoreItemDescriptor{key: newItem}
		return true, nil
	}
	if existing, found := byKey[key]; found && existing.Version >= newItem.Version {
		return false, nil
	}
	byKey[key] = newItem
	return true, nil
}

func (s *memoryStore) IsInitialized() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.inited
}

// IsStatusMonitoringEnabled returns false: the in-memory store cannot fail, so there is
// nothing to monitor.
func (s *memoryStore) IsStatusMonitoringEnabled() bool {
	return false
}

func (s *memoryStore) Close() error {
	return nil
}
