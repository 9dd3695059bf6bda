package internal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// fakeEvaluations returns a configurable value per flag key, for value change listener tests.
type fakeEvaluations struct {
	lock   sync.Mutex
	values map[string]ldvalue.Value
	calls  int
}

func newFakeEvaluations() *fakeEvaluations {
	return &fakeEvaluations{values: make(map[string]ldvalue.Value)}
}

func (f *fakeEvaluations) set(flagKey string, value ldvalue.Value) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.values[flagKey] = value
}

func (f *fakeEvaluations) evaluate(
	flagKey string,
	context ldcontext.Context,
	defaultValue ldvalue.Value,
) ldvalue.Value {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls++
	if value, ok := f.values[flagKey]; ok {
		return value
	}
	return defaultValue
}

func (f *fakeEvaluations) callCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls
}

// awaitInitialEvaluation waits until the value change listener goroutine has captured its
// starting value, so that a subsequent set() is seen as a change.
func awaitInitialEvaluation(t *testing.T, evals *fakeEvaluations, minCalls int) {
	t.Helper()
	require.Eventually(t, func() bool { return evals.callCount() >= minCalls },
		time.Second, time.Millisecond)
}

func requireValueChangeEvent(
	t *testing.T,
	ch <-chan interfaces.FlagValueChangeEvent,
) interfaces.FlagValueChangeEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for flag value change event")
		return interfaces.FlagValueChangeEvent{}
	}
}

func TestFlagTrackerChangeListenerReceivesBroadcastEvents(t *testing.T) {
	broadcaster := NewFlagChangeEventBroadcaster()
	defer broadcaster.Close()
	tracker := NewFlagTrackerImpl(broadcaster, nil)

	ch := tracker.AddFlagChangeListener()
	broadcaster.Broadcast(interfaces.FlagChangeEvent{Key: "flag1"})

	select {
	case e := <-ch:
		assert.Equal(t, "flag1", e.Key)
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for flag change event")
	}

	tracker.RemoveFlagChangeListener(ch)
	assert.False(t, broadcaster.HasListeners())
}

func TestFlagTrackerValueChangeListenerNotifiesOnValueChange(t *testing.T) {
	broadcaster := NewFlagChangeEventBroadcaster()
	defer broadcaster.Close()
	evals := newFakeEvaluations()
	evals.set("flag1", ldvalue.String("a"))
	tracker := NewFlagTrackerImpl(broadcaster, evals.evaluate)

	ch := tracker.AddFlagValueChangeListener("flag1", ldcontext.New("userkey"), ldvalue.Null())
	awaitInitialEvaluation(t, evals, 1)

	evals.set("flag1", ldvalue.String("b"))
	broadcaster.Broadcast(interfaces.FlagChangeEvent{Key: "flag1"})

	event := requireValueChangeEvent(t, ch)
	assert.Equal(t, "flag1", event.Key)
	assert.Equal(t, ldvalue.String("a"), event.OldValue)
	assert.Equal(t, ldvalue.String("b"), event.NewValue)
}

func TestFlagTrackerValueChangeListenerIgnoresOtherFlags(t *testing.T) {
	broadcaster := NewFlagChangeEventBroadcaster()
	defer broadcaster.Close()
	evals := newFakeEvaluations()
	evals.set("flag1", ldvalue.String("a"))
	tracker := NewFlagTrackerImpl(broadcaster, evals.evaluate)

	ch := tracker.AddFlagValueChangeListener("flag1", ldcontext.New("userkey"), ldvalue.Null())
	awaitInitialEvaluation(t, evals, 1)

	evals.set("flag1", ldvalue.String("b"))
	broadcaster.Broadcast(interfaces.FlagChangeEvent{Key: "other-flag"})

	select {
	case e := <-ch:
		require.FailNowf(t, "unexpected event", "%+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFlagTrackerValueChangeListenerIgnoresChangeWithSameValue(t *testing.T) {
	broadcaster := NewFlagChangeEventBroadcaster()
	defer broadcaster.Close()
	evals := newFakeEvaluations()
	evals.set("flag1", ldvalue.String("a"))
	tracker := NewFlagTrackerImpl(broadcaster, evals.evaluate)

	ch := tracker.AddFlagValueChangeListener("flag1", ldcontext.New("userkey"), ldvalue.Null())
	awaitInitialEvaluation(t, evals, 1)

	broadcaster.Broadcast(interfaces.FlagChangeEvent{Key: "flag1"})

	select {
	case e := <-ch:
		require.FailNowf(t, "unexpected event", "%+v", e)
	case <-time.After(100 * time.Millisecond):
	}

	// A later real change is still reported, with the original value as the old value.
	evals.set("flag1", ldvalue.String("b"))
	broadcaster.Broadcast(interfaces.FlagChangeEvent{Key: "flag1"})
	event := requireValueChangeEvent(t, ch)
	assert.Equal(t, ldvalue.String("a"), event.OldValue)
	assert.Equal(t, ldvalue.String("b"), event.NewValue)
}

func TestFlagTrackerRemoveValueChangeListenerClosesChannel(t *testing.T) {
	broadcaster := NewFlagChangeEventBroadcaster()
	defer broadcaster.Close()
	evals := newFakeEvaluations()
	tracker := NewFlagTrackerImpl(broadcaster, evals.evaluate)

	ch := tracker.AddFlagValueChangeListener("flag1", ldcontext.New("userkey"), ldvalue.Null())
	tracker.RemoveFlagValueChangeListener(ch)

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for channel to close")
	}
	assert.False(t, broadcaster.HasListeners())
}
