package ldcomponents

import (
	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldevents"
)

type nullEventProcessorFactory struct{}

// NoEvents returns a configuration object that disables analytics events.
//
// Storing this in the Events field of the SDK configuration causes the SDK to discard all
// analytics events and not send them to the events service, regardless of any other
// configuration:
//
//	config := ld.Config{
//	    Events: ldcomponents.NoEvents(),
//	}
func NoEvents() interfaces.EventProcessorFactory {
	return nullEventProcessorFactory{}
}

func (f nullEventProcessorFactory) CreateEventProcessor(
	context interfaces.ClientContext,
) (ldevents.EventProcessor, error) {
	return ldevents.NewNullEventProcessor(), nil
}

// IsNullEventProcessorFactory returns true if the given factory is the one returned by
// NoEvents(). The client uses this to determine whether it should bother generating events
// at all.
func IsNullEventProcessorFactory(f interfaces.EventProcessorFactory) bool {
	_, ok := f.(nullEventProcessorFactory)
	return ok
}
