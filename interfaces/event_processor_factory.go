package interfaces

import (
	"github.com/flagmill/go-server-sdk/ldevents"
)

// EventProcessorFactory is a factory that creates some implementation of EventProcessor.
type EventProcessorFactory interface {
	// CreateEventProcessor is called by the SDK to create the implementation instance.
	CreateEventProcessor(context ClientContext) (ldevents.EventProcessor, error)
}
