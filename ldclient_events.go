package ldclient

import (
	"github.com/flagmill/go-server-sdk/evaluation"
	"github.com/flagmill/go-server-sdk/ldevents"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// This struct is used during evaluations to keep track of the event generation strategy we are
// using (with or without evaluation reasons). It captures all of the relevant state so that we
// do not need to create any more stateful objects, such as closures, to generate events during
// an evaluation.
type eventsScope struct {
	disabled                  bool
	factory                   ldevents.EventFactory
	prerequisiteEventRecorder evaluation.PrerequisiteFlagEventRecorder
}

func newDisabledEventsScope() eventsScope {
	return eventsScope{disabled: true}
}

func newEventsScope(client *LDClient, withReasons bool) eventsScope {
	factory := ldevents.NewEventFactory(withReasons, nil)
	return eventsScope{
		factory: factory,
		prerequisiteEventRecorder: func(params evaluation.PrerequisiteFlagEvent) {
			client.eventProcessor.SendEvent(factory.NewEvalEvent(
				params.PrerequisiteFlag,
				params.Context,
				params.PrerequisiteResult,
				ldvalue.Null(),
				params.TargetFlagKey,
			))
		},
	}
}
