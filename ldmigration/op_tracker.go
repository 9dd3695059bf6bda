package ldmigration

import (
	"errors"
	"sync"
	"time"

	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldevents"
	"github.com/flagmill/go-server-sdk/ldmodel"
	"github.com/flagmill/go-server-sdk/ldreason"
	"github.com/flagmill/go-server-sdk/ldtime"
)

// OpTracker accumulates measurements for a single migration operation, and builds the
// analytics event that reports them. An OpTracker is obtained from the client's
// MigrationVariation method; the application records measurements as it executes the
// operation against one or both origins, then passes the tracker to TrackMigrationOp.
//
// All OpTracker methods are safe for concurrent use.
type OpTracker struct {
	flagKey          string
	flag             *ldmodel.FeatureFlag
	context          ldcontext.Context
	detail           ldreason.EvaluationDetail
	defaultStage     Stage
	operation        Operation
	invoked          map[string]bool
	consistent       *bool
	consistencyCheck consistencyChecker
	errors           map[string]bool
	latencies        map[string]float64
	lock             sync.Mutex
}

type consistencyChecker interface {
	checkRatio() *int
	sample(*int) bool
}

type defaultConsistencyChecker struct {
	ratio *int
}

func (c defaultConsistencyChecker) checkRatio() *int { return c.ratio }

func (c defaultConsistencyChecker) sample(ratio *int) bool { return sampleRatio(ratio) }

// NewOpTracker creates a tracker for a migration operation. The flag may be nil if the flag
// was not found during evaluation.
func NewOpTracker(
	flagKey string,
	flag *ldmodel.FeatureFlag,
	context ldcontext.Context,
	detail ldreason.EvaluationDetail,
	defaultStage Stage,
) *OpTracker {
	var ratio *int
	if flag != nil && flag.Migration != nil {
		ratio = flag.Migration.CheckRatio
	}
	return &OpTracker{
		flagKey:          flagKey,
		flag:             flag,
		context:          context,
		detail:           detail,
		defaultStage:     defaultStage,
		invoked:          make(map[string]bool, 2),
		consistencyCheck: defaultConsistencyChecker{ratio: ratio},
		errors:           make(map[string]bool, 2),
		latencies:        make(map[string]float64, 2),
	}
}

// Operation records whether this was a read or a write. An operation must be set before the
// tracker can build an event.
func (t *OpTracker) Operation(op Operation) *OpTracker {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.operation = op
	return t
}

// TrackInvoked records that the operation was executed against the given origin.
func (t *OpTracker) TrackInvoked(origin Origin) *OpTracker {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.invoked[string(origin)] = true
	return t
}

// TrackConsistency compares the results from the two origins. The comparison function is
// only called if the flag's consistency check ratio permits it; one out of every N calls is
// checked, where N is the configured ratio.
func (t *OpTracker) TrackConsistency(isEqual func() bool) *OpTracker {
	t.lock.Lock()
	defer t.lock.Unlock()
	if !t.consistencyCheck.sample(t.consistencyCheck.checkRatio()) {
		return t
	}
	result := isEqual()
	t.consistent = &result
	return t
}

// TrackError records that the operation against the given origin failed.
func (t *OpTracker) TrackError(origin Origin) *OpTracker {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.errors[string(origin)] = true
	return t
}

// TrackLatency records the elapsed time of the operation against the given origin.
func (t *OpTracker) TrackLatency(origin Origin, duration time.Duration) *OpTracker {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.latencies[string(origin)] = float64(duration.Milliseconds())
	return t
}

// Build creates the analytics event reporting this operation's measurements. It returns an
// error if the tracker is in an incomplete or inconsistent state, in which case no event
// should be sent.
func (t *OpTracker) Build() (ldevents.MigrationOpEvent, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.operation == "" {
		return ldevents.MigrationOpEvent{}, errors.New("operation not provided")
	}
	if t.flagKey == "" {
		return ldevents.MigrationOpEvent{}, errors.New("migration operation cannot contain an empty flag key")
	}
	if err := t.context.Err(); err != nil {
		return ldevents.MigrationOpEvent{}, errors.New("migration operation context was invalid")
	}
	if len(t.invoked) == 0 {
		return ldevents.MigrationOpEvent{}, errors.New("no origins were recorded as invoked")
	}
	for origin := range t.latencies {
		if !t.invoked[origin] {
			return ldevents.MigrationOpEvent{}, errors.New("latency was recorded for an origin that was not invoked")
		}
	}
	for origin := range t.errors {
		if !t.invoked[origin] {
			return ldevents.MigrationOpEvent{}, errors.New("error was recorded for an origin that was not invoked")
		}
	}

	event := ldevents.MigrationOpEvent{
		BaseEvent: ldevents.BaseEvent{
			CreationDate: ldtime.UnixMillisNow(),
			Context:      t.context,
		},
		Op:         string(t.operation),
		FlagKey:    t.flagKey,
		Version:    ldevents.NoVersion,
		Default:    string(t.defaultStage),
		Evaluation: t.detail,
		Invoked:    copyBoolMap(t.invoked),
		Errors:     copyBoolMap(t.errors),
		Latencies:  copyFloatMap(t.latencies),
	}
	if t.flag != nil {
		event.Version = t.flag.Version
		event.SamplingRatio = t.flag.SamplingRatio
	}
	if t.consistent != nil {
		consistent := *t.consistent
		event.ConsistencyCheck = &consistent
		event.ConsistencyCheckRatio = t.consistencyCheck.checkRatio()
	}
	return event, nil
}

func copyBoolMap(m map[string]bool) map[string]bool {
	if len(m) == 0 {
		return nil
	}
	ret := make(map[string]bool, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	ret := make(map[string]float64, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}
