package internal

import (
	"github.com/flagmill/go-server-sdk/interfaces"
)

// bigSegmentStatusProvider is the public read-only view of the big segment store's state.
// When big segments are not configured there is no manager, and the provider reports an
// empty status and hands out channels that never receive.
type bigSegmentStatusProvider struct {
	manager *BigSegmentStoreManager
}

// NewBigSegmentStoreStatusProviderImpl creates the internal implementation of
// BigSegmentStoreStatusProvider. The manager may be nil.
func NewBigSegmentStoreStatusProviderImpl(
	manager *BigSegmentStoreManager,
) interfaces.BigSegmentStoreStatusProvider {
	return &bigSegmentStatusProvider{manager: manager}
}

func (b *bigSegmentStatusProvider) GetStatus() interfaces.BigSegmentStoreStatus {
	if b.manager == nil {
		return interfaces.BigSegmentStoreStatus{}
	}
	return b.manager.GetStatus()
}

func (b *bigSegmentStatusProvider) AddStatusListener() <-chan interfaces.BigSegmentStoreStatus {
	if b.manager == nil {
		return make(chan interfaces.BigSegmentStoreStatus)
	}
	return b.manager.GetBroadcaster().AddListener()
}

func (b *bigSegmentStatusProvider) RemoveStatusListener(ch <-chan interfaces.BigSegmentStoreStatus) {
	if b.manager != nil {
		b.manager.GetBroadcaster().RemoveListener(ch)
	}
}
