package internal

import (
	"sync"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

type evaluateFlagFn func(flagKey string, context ldcontext.Context, defaultValue ldvalue.Value) ldvalue.Value

// flagTracker is the internal implementation of FlagTracker.
//
// Plain change listeners map directly onto the FlagChangeEventBroadcaster. A value change
// listener is a goroutine that subscribes to the broadcaster, re-evaluates the flag for
// its context on every matching change event, and forwards the result only when the value
// actually differs. The tracker remembers which broadcaster channel backs each value
// channel so that the subscription can be removed later.
type flagTracker struct {
	broadcaster   *FlagChangeEventBroadcaster
	evaluate      evaluateFlagFn
	valueWatchers map[<-chan interfaces.FlagValueChangeEvent]<-chan interfaces.FlagChangeEvent
	lock          sync.Mutex
}

// NewFlagTrackerImpl creates the internal implementation of FlagTracker.
func NewFlagTrackerImpl(
	broadcaster *FlagChangeEventBroadcaster,
	evaluate evaluateFlagFn,
) interfaces.FlagTracker {
	return &flagTracker{
		broadcaster:   broadcaster,
		evaluate:      evaluate,
		valueWatchers: make(map[<-chan interfaces.FlagValueChangeEvent]<-chan interfaces.FlagChangeEvent),
	}
}

func (f *flagTracker) AddFlagChangeListener() <-chan interfaces.FlagChangeEvent {
	return f.broadcaster.AddListener()
}

func (f *flagTracker) RemoveFlagChangeListener(listener <-chan interfaces.FlagChangeEvent) {
	f.broadcaster.RemoveListener(listener)
}

func (f *flagTracker) AddFlagValueChangeListener(
	flagKey string,
	context ldcontext.Context,
	defaultValue ldvalue.Value,
) <-chan interfaces.FlagValueChangeEvent {
	valueCh := make(chan interfaces.FlagValueChangeEvent, subscriberChannelBufferLength)
	changeCh := f.broadcaster.AddListener()
	go watchFlagValue(changeCh, valueCh, f.evaluate, flagKey, context, defaultValue)

	f.lock.Lock()
	f.valueWatchers[valueCh] = changeCh
	f.lock.Unlock()

	return valueCh
}

func (f *flagTracker) RemoveFlagValueChangeListener(listener <-chan interfaces.FlagValueChangeEvent) {
	f.lock.Lock()
	changeCh, found := f.valueWatchers[listener]
	delete(f.valueWatchers, listener)
	f.lock.Unlock()

	if found {
		f.broadcaster.RemoveListener(changeCh)
	}
}

func watchFlagValue(
	changeCh <-chan interfaces.FlagChangeEvent,
	valueCh chan<- interfaces.FlagValueChangeEvent,
	evaluate evaluateFlagFn,
	flagKey string,
	context ldcontext.Context,
	defaultValue ldvalue.Value,
) {
	currentValue := evaluate(flagKey, context, defaultValue)
	for change := range changeCh {
		if change.Key != flagKey {
			continue
		}
		newValue := evaluate(flagKey, context, defaultValue)
		if newValue.Equal(currentValue) {
			continue
		}
		event := interfaces.FlagValueChangeEvent{Key: flagKey, OldValue: currentValue, NewValue: newValue}
		currentValue = newValue
		valueCh <- event
	}
	// The broadcaster channel is closed when the watcher is unsubscribed.
	close(valueCh)
}
