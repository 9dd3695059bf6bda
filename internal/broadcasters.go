package internal

import (
	"sync"

	"github.com/flagmill/go-server-sdk/interfaces"
)

// This file defines the publish-subscribe mechanisms used for status notifications.
// Each broadcaster maintains a copy-on-write list of subscriber channels, so that
// Broadcast can iterate without holding the lock while sending.

// Arbitrary buffer size to make it less likely that we'll discard broadcast values if
// a subscriber is slow to consume them.
const subscriberChannelBufferLength = 10

// DataStoreStatusBroadcaster manages broadcasting of interfaces.DataStoreStatus values.
type DataStoreStatusBroadcaster struct {
	subscribers []channelPair[interfaces.DataStoreStatus]
	lock        sync.Mutex
}

// DataSourceStatusBroadcaster manages broadcasting of interfaces.DataSourceStatus values.
type DataSourceStatusBroadcaster struct {
	subscribers []channelPair[interfaces.DataSourceStatus]
	lock        sync.Mutex
}

// FlagChangeEventBroadcaster manages broadcasting of interfaces.FlagChangeEvent values.
type FlagChangeEventBroadcaster struct {
	subscribers []channelPair[interfaces.FlagChangeEvent]
	lock        sync.Mutex
}

// BigSegmentStoreStatusBroadcaster manages broadcasting of
// interfaces.BigSegmentStoreStatus values.
type BigSegmentStoreStatusBroadcaster struct {
	subscribers []channelPair[interfaces.BigSegmentStoreStatus]
	lock        sync.Mutex
}

// We need to keep track of both the sending and receiving ends of each subscription,
// because the receiving end is what the subscriber gives back to us to unsubscribe.
type channelPair[V any] struct {
	sendCh    chan<- V
	receiveCh <-chan V
}

func addListener[V any](lock *sync.Mutex, subscribers *[]channelPair[V]) <-chan V {
	ch := make(chan V, subscriberChannelBufferLength)
	pair := channelPair[V]{sendCh: ch, receiveCh: ch}
	lock.Lock()
	defer lock.Unlock()
	*subscribers = append(*subscribers, pair)
	return ch
}

func removeListener[V any](lock *sync.Mutex, subscribers *[]channelPair[V], ch <-chan V) {
	lock.Lock()
	defer lock.Unlock()
	ss := *subscribers
	for i, pair := range ss {
		if pair.receiveCh == ch {
			copied := make([]channelPair[V], 0, len(ss)-1)
			copied = append(copied, ss[:i]...)
			copied = append(copied, ss[i+1:]...)
			close(pair.sendCh)
			*subscribers = copied
			return
		}
	}
}

func broadcast[V any](lock *sync.Mutex, subscribers *[]channelPair[V], value V) {
	var sendChs []chan<- V
	lock.Lock()
	if len(*subscribers) > 0 {
		sendChs = make([]chan<- V, 0, len(*subscribers))
		for _, pair := range *subscribers {
			sendChs = append(sendChs, pair.sendCh)
		}
	}
	lock.Unlock()
	for _, ch := range sendChs {
		ch <- value
	}
}

func hasListeners[V any](lock *sync.Mutex, subscribers *[]channelPair[V]) bool {
	lock.Lock()
	defer lock.Unlock()
	return len(*subscribers) > 0
}

// NewDataStoreStatusBroadcaster creates an instance of DataStoreStatusBroadcaster.
func NewDataStoreStatusBroadcaster() *DataStoreStatusBroadcaster {
	return &DataStoreStatusBroadcaster{}
}

// AddListener creates a new channel for listening to broadcast values.
func (b *DataStoreStatusBroadcaster) AddListener() <-chan interfaces.DataStoreStatus {
	return addListener(&b.lock, &b.subscribers)
}

// RemoveListener stops broadcasting to a channel that was created with AddListener.
func (b *DataStoreStatusBroadcaster) RemoveListener(ch <-chan interfaces.DataStoreStatus) {
	removeListener(&b.lock, &b.subscribers, ch)
}

// Broadcast broadcasts a value to all current subscribers.
func (b *DataStoreStatusBroadcaster) Broadcast(value interfaces.DataStoreStatus) {
	broadcast(&b.lock, &b.subscribers, value)
}

// HasListeners returns true if there are any current subscribers.
func (b *DataStoreStatusBroadcaster) HasListeners() bool {
	return hasListeners(&b.lock, &b.subscribers)
}

// Close closes all currently open subscriber channels.
func (b *DataStoreStatusBroadcaster) Close() {
	closeAll(&b.lock, &b.subscribers)
}

// NewDataSourceStatusBroadcaster creates an instance of DataSourceStatusBroadcaster.
func NewDataSourceStatusBroadcaster() *DataSourceStatusBroadcaster {
	return &DataSourceStatusBroadcaster{}
}

// AddListener creates a new channel for listening to broadcast values.
func (b *DataSourceStatusBroadcaster) AddListener() <-chan interfaces.DataSourceStatus {
	return addListener(&b.lock, &b.subscribers)
}

// RemoveListener stops broadcasting to a channel that was created with AddListener.
func (b *DataSourceStatusBroadcaster) RemoveListener(ch <-chan interfaces.DataSourceStatus) {
	removeListener(&b.lock, &b.subscribers, ch)
}

// Broadcast broadcasts a value to all current subscribers.
func (b *DataSourceStatusBroadcaster) Broadcast(value interfaces.DataSourceStatus) {
	broadcast(&b.lock, &b.subscribers, value)
}

// HasListeners returns true if there are any current subscribers.
func (b *DataSourceStatusBroadcaster) HasListeners() bool {
	return hasListeners(&b.lock, &b.subscribers)
}

// Close closes all currently open subscriber channels.
func (b *DataSourceStatusBroadcaster) Close() {
	closeAll(&b.lock, &b.subscribers)
}

// NewFlagChangeEventBroadcaster creates an instance of FlagChangeEventBroadcaster.
func NewFlagChangeEventBroadcaster() *FlagChangeEventBroadcaster {
	return &FlagChangeEventBroadcaster{}
}

// AddListener creates a new channel for listening to broadcast values.
func (b *FlagChangeEventBroadcaster) AddListener() <-chan interfaces.FlagChangeEvent {
	return addListener(&b.lock, &b.subscribers)
}

// RemoveListener stops broadcasting to a channel that was created with AddListener.
func (b *FlagChangeEventBroadcaster) RemoveListener(ch <-chan interfaces.FlagChangeEvent) {
	removeListener(&b.lock, &b.subscribers, ch)
}

// Broadcast broadcasts a value to all current subscribers.
func (b *FlagChangeEventBroadcaster) Broadcast(value interfaces.FlagChangeEvent) {
	broadcast(&b.lock, &b.subscribers, value)
}

// HasListeners returns true if there are any current subscribers.
func (b *FlagChangeEventBroadcaster) HasListeners() bool {
	return hasListeners(&b.lock, &b.subscribers)
}

// Close closes all currently open subscriber channels.
func (b *FlagChangeEventBroadcaster) Close() {
	closeAll(&b.lock, &b.subscribers)
}

// NewBigSegmentStoreStatusBroadcaster creates an instance of
// BigSegmentStoreStatusBroadcaster.
func NewBigSegmentStoreStatusBroadcaster() *BigSegmentStoreStatusBroadcaster {
	return &BigSegmentStoreStatusBroadcaster{}
}

// AddListener creates a new channel for listening to broadcast values.
func (b *BigSegmentStoreStatusBroadcaster) AddListener() <-chan interfaces.BigSegmentStoreStatus {
	return addListener(&b.lock, &b.subscribers)
}

// RemoveListener stops broadcasting to a channel that was created with AddListener.
func (b *BigSegmentStoreStatusBroadcaster) RemoveListener(ch <-chan interfaces.BigSegmentStoreStatus) {
	removeListener(&b.lock, &b.subscribers, ch)
}

// Broadcast broadcasts a value to all current subscribers.
func (b *BigSegmentStoreStatusBroadcaster) Broadcast(value interfaces.BigSegmentStoreStatus) {
	broadcast(&b.lock, &b.subscribers, value)
}

// HasListeners returns true if there are any current subscribers.
func (b *BigSegmentStoreStatusBroadcaster) HasListeners() bool {
	return hasListeners(&b.lock, &b.subscribers)
}

// Close closes all currently open subscriber channels.
func (b *BigSegmentStoreStatusBroadcaster) Close() {
	closeAll(&b.lock, &b.subscribers)
}

func closeAll[V any](lock *sync.Mutex, subscribers *[]channelPair[V]) {
	lock.Lock()
	defer lock.Unlock()
	for _, pair := range *subscribers {
		close(pair.sendCh)
	}
	*subscribers = nil
}
