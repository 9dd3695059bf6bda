package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagmill/go-server-sdk/interfaces"
)

func requireFlagChangeEvent(t *testing.T, ch <-chan interfaces.FlagChangeEvent) interfaces.FlagChangeEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for broadcast value")
		return interfaces.FlagChangeEvent{}
	}
}

func TestBroadcasterHasNoListenersInitially(t *testing.T) {
	b := NewFlagChangeEventBroadcaster()
	defer b.Close()
	assert.False(t, b.HasListeners())
}

func TestBroadcasterBroadcastWithNoListenersDoesNotBlock(t *testing.T) {
	b := NewFlagChangeEventBroadcaster()
	defer b.Close()
	b.Broadcast(interfaces.FlagChangeEvent{Key: "flag"})
}

func TestBroadcasterSendsValueToAllListeners(t *testing.T) {
	b := NewFlagChangeEventBroadcaster()
	defer b.Close()

	ch1 := b.AddListener()
	ch2 := b.AddListener()
	assert.True(t, b.HasListeners())

	b.Broadcast(interfaces.FlagChangeEvent{Key: "flag"})

	assert.Equal(t, "flag", requireFlagChangeEvent(t, ch1).Key)
	assert.Equal(t, "flag", requireFlagChangeEvent(t, ch2).Key)
}

func TestBroadcasterPreservesOrderPerListener(t *testing.T) {
	b := NewFlagChangeEventBroadcaster()
	defer b.Close()

	ch := b.AddListener()
	b.Broadcast(interfaces.FlagChangeEvent{Key: "first"})
	b.Broadcast(interfaces.FlagChangeEvent{Key: "second"})

	assert.Equal(t, "first", requireFlagChangeEvent(t, ch).Key)
	assert.Equal(t, "second", requireFlagChangeEvent(t, ch).Key)
}

func TestBroadcasterRemoveListenerClosesChannel(t *testing.T) {
	b := NewFlagChangeEventBroadcaster()
	defer b.Close()

	ch1 := b.AddListener()
	ch2 := b.AddListener()

	b.RemoveListener(ch1)
	_, ok := <-ch1
	assert.False(t, ok)
	assert.True(t, b.HasListeners())

	b.Broadcast(interfaces.FlagChangeEvent{Key: "flag"})
	assert.Equal(t, "flag", requireFlagChangeEvent(t, ch2).Key)

	b.RemoveListener(ch2)
	assert.False(t, b.HasListeners())
}

func TestBroadcasterCloseClosesAllListenerChannels(t *testing.T) {
	b := NewFlagChangeEventBroadcaster()
	ch1 := b.AddListener()
	ch2 := b.AddListener()

	b.Close()

	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)
	assert.False(t, b.HasListeners())
}

func TestDataSourceStatusBroadcaster(t *testing.T) {
	b := NewDataSourceStatusBroadcaster()
	defer b.Close()

	ch := b.AddListener()
	status := interfaces.DataSourceStatus{State: interfaces.DataSourceStateValid}
	b.Broadcast(status)

	select {
	case received := <-ch:
		assert.Equal(t, interfaces.DataSourceStateValid, received.State)
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for broadcast value")
	}
}

func TestDataStoreStatusBroadcaster(t *testing.T) {
	b := NewDataStoreStatusBroadcaster()
	defer b.Close()

	ch := b.AddListener()
	b.Broadcast(interfaces.DataStoreStatus{Available: true})

	select {
	case received := <-ch:
		assert.True(t, received.Available)
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for broadcast value")
	}
}

func TestBigSegmentStoreStatusBroadcaster(t *testing.T) {
	b := NewBigSegmentStoreStatusBroadcaster()
	defer b.Close()

	ch := b.AddListener()
	b.Broadcast(interfaces.BigSegmentStoreStatus{Available: true, Stale: true})

	select {
	case received := <-ch:
		assert.True(t, received.Available)
		assert.True(t, received.Stale)
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for broadcast value")
	}
}
