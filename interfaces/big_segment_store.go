package interfaces

import (
	"io"

	"github.com/flagmill/go-server-sdk/evaluation"
	"github.com/flagmill/go-server-sdk/ldtime"
)

// BigSegmentMembership is a snapshot of a context's Big Segment memberships, as returned
// by a BigSegmentStore. It is the same interface consumed by the evaluation engine.
type BigSegmentMembership = evaluation.BigSegmentMembership

// BigSegmentStoreMetadata contains values returned by BigSegmentStore.GetMetadata.
type BigSegmentStoreMetadata struct {
	// LastUpToDate is the timestamp of the last update to the store, if known. The SDK
	// uses it to decide whether the store data is stale.
	LastUpToDate ldtime.UnixMillisecondTime
}

// BigSegmentStore is an interface for a read-only data store that allows querying of
// context membership in Big Segments.
//
// "Big Segments" are a specific kind of segment whose membership lists are too large to
// be replicated through the regular flag data stream, so they are kept in a separate
// store written by an external process and queried on demand.
type BigSegmentStore interface {
	io.Closer

	// GetMetadata returns information about the overall state of the store. This method
	// is called periodically to determine availability and staleness.
	GetMetadata() (BigSegmentStoreMetadata, error)

	// GetMembership queries the store for a snapshot of the current segment state for a
	// specific context. The contextHash is a base64-encoded SHA-256 of the context key;
	// contexts are hashed before being stored so that the store does not hold raw keys.
	//
	// A nil membership, with no error, means the context has no memberships at all.
	GetMembership(contextHash string) (BigSegmentMembership, error)
}

// BigSegmentStoreFactory is a factory that creates some implementation of BigSegmentStore.
type BigSegmentStoreFactory interface {
	// CreateBigSegmentStore is called by the SDK to create the implementation instance.
	CreateBigSegmentStore(context ClientContext) (BigSegmentStore, error)
}

// BigSegmentStoreStatus contains information about the status of a Big Segment store,
// provided by BigSegmentStoreStatusProvider.
type BigSegmentStoreStatus struct {
	// Available is true if the Big Segment store is able to respond to queries.
	Available bool
	// Stale is true if the store has not been updated within the configured staleness
	// threshold, which may mean the external process that writes it is not running.
	Stale bool
}

// BigSegmentStoreStatusProvider is an interface for querying the status of a Big Segment
// store and subscribing to status changes.
type BigSegmentStoreStatusProvider interface {
	// GetStatus returns the current status of the store. If no Big Segment store is
	// configured, both fields are false.
	GetStatus() BigSegmentStoreStatus

	// AddStatusListener subscribes for notifications of status changes.
	AddStatusListener() <-chan BigSegmentStoreStatus

	// RemoveStatusListener unsubscribes from notifications of status changes and closes
	// the channel.
	RemoveStatusListener(listener <-chan BigSegmentStoreStatus)
}
