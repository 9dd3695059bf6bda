package interfaces

import (
	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// FlagChangeEvent is a notification that a feature flag's configuration has changed, or
// that something it depends on (a prerequisite flag or a segment) has changed.
type FlagChangeEvent struct {
	// Key is the key of the feature flag whose configuration (or dependencies) changed.
	Key string
}

// FlagValueChangeEvent is a notification that the value of a feature flag has changed for
// a specific evaluation context.
type FlagValueChangeEvent struct {
	// Key is the key of the feature flag whose value changed.
	Key string
	// OldValue is the last known value of the flag for the specified context prior to the
	// change.
	OldValue ldvalue.Value
	// NewValue is the new value of the flag for the specified context.
	NewValue ldvalue.Value
}

// FlagTracker is an interface for tracking changes in feature flag configurations.
type FlagTracker interface {
	// AddFlagChangeListener subscribes for notifications of flag configuration changes.
	AddFlagChangeListener() <-chan FlagChangeEvent

	// RemoveFlagChangeListener unsubscribes from notifications of flag configuration
	// changes and closes the channel.
	RemoveFlagChangeListener(listener <-chan FlagChangeEvent)

	// AddFlagValueChangeListener subscribes for notifications of changes in a specific
	// flag's value for a specific context. This is equivalent to re-evaluating the flag
	// whenever a change event mentions it, and notifying only if the value is different.
	AddFlagValueChangeListener(
		flagKey string,
		context ldcontext.Context,
		defaultValue ldvalue.Value,
	) <-chan FlagValueChangeEvent

	// RemoveFlagValueChangeListener unsubscribes from notifications of flag value changes
	// and closes the channel.
	RemoveFlagValueChangeListener(listener <-chan FlagValueChangeEvent)
}
