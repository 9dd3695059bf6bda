// Package interfaces contains the types that define the pluggable components of the SDK
// and the status information they expose.
package interfaces

// StoreDataKind represents a separately namespaced collection of storable data items.
//
// The SDK passes instances of this type to the data store to specify whether it is
// referring to a feature flag, a segment, etc. The data store implementation should not
// look for a specific data kind (such as feature flags), but should treat all data kinds
// generically.
type StoreDataKind interface {
	// GetName returns a short string that uniquely identifies the data kind.
	GetName() string
	// Serialize translates an item into a serialized byte form, which for both flags and
	// segments is JSON. Deleted item placeholders have a serialized form as well, so that
	// persistent stores can store them.
	Serialize(item StoreItemDescriptor) []byte
	// Deserialize translates a serialized byte form back into an item. A payload that
	// describes a deleted item produces a StoreItemDescriptor with a nil Item.
	Deserialize(data []byte) (StoreItemDescriptor, error)
}

// StoreItemDescriptor is a versioned item (or placeholder) storable in a DataStore.
type StoreItemDescriptor struct {
	// Version is the version number of this data, provided by the feature flag service.
	Version int
	// Item is the data item, or nil if this is a placeholder for a deleted item
	// (tombstone). Tombstones keep their version so that stale updates arriving later can
	// be recognized and discarded.
	Item interface{}
}

// NotFound is a convenience method for constructing the descriptor that Get returns when
// an item does not exist or is deleted.
func (d StoreItemDescriptor) NotFound() StoreItemDescriptor {
	return StoreItemDescriptor{Version: -1, Item: nil}
}

// StoreSerializedItemDescriptor is a versioned item (or placeholder) in a serialized form,
// as used by PersistentDataStore implementations.
type StoreSerializedItemDescriptor struct {
	// Version is the version number of this data, provided by the feature flag service.
	Version int
	// Deleted is true if this is a placeholder for a deleted item. SerializedItem will
	// still contain a byte string representing the deleted state in that case.
	Deleted bool
	// SerializedItem is the data item's serialized representation.
	SerializedItem []byte
}

// NotFound is a convenience method for constructing the descriptor that Get returns when
// an item does not exist.
func (d StoreSerializedItemDescriptor) NotFound() StoreSerializedItemDescriptor {
	return StoreSerializedItemDescriptor{Version: -1, SerializedItem: nil}
}

// StoreKeyedItemDescriptor is a key-value pair containing a StoreItemDescriptor.
type StoreKeyedItemDescriptor struct {
	// Key is the unique key of this item within its data kind.
	Key string
	// Item is the versioned item.
	Item StoreItemDescriptor
}

// StoreKeyedSerializedItemDescriptor is a key-value pair containing a
// StoreSerializedItemDescriptor.
type StoreKeyedSerializedItemDescriptor struct {
	// Key is the unique key of this item within its data kind.
	Key string
	// Item is the versioned serialized item.
	Item StoreSerializedItemDescriptor
}

// StoreCollection is a list of StoreKeyedItemDescriptors for a single data kind.
type StoreCollection struct {
	// Kind is the data kind of all the items.
	Kind StoreDataKind
	// Items is the list of items.
	Items []StoreKeyedItemDescriptor
}

// StoreSerializedCollection is a list of StoreKeyedSerializedItemDescriptors for a single
// data kind.
type StoreSerializedCollection struct {
	// Kind is the data kind of all the items.
	Kind StoreDataKind
	// Items is the list of serialized items.
	Items []StoreKeyedSerializedItemDescriptor
}
