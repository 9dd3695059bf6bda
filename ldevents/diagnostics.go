package ldevents

import (
	"runtime"
	"sync"
	"time"

	"github.com/flagmill/go-server-sdk/ldtime"
	"github.com/flagmill/go-server-sdk/ldvalue"

	"github.com/google/uuid"
)

// DiagnosticsManager is an object that maintains state for diagnostic events and produces
// JSON data for them.
//
// The event processor asks it for the initial event data when starting up, and for periodic
// data at the configured diagnostic recording interval; components that open streaming
// connections report their connection attempts to it with RecordStreamInit.
type DiagnosticsManager struct {
	id            ldvalue.Value
	configData    ldvalue.Value
	sdkData       ldvalue.Value
	startTime     ldtime.UnixMillisecondTime
	dataSinceTime ldtime.UnixMillisecondTime
	streamInits   []ldvalue.Value
	// Test instrumentation: if non-nil, CanSendStatsEvent returns true only after this
	// channel has produced a value.
	periodicEventGate <-chan struct{}
	lock              sync.Mutex
}

// NewDiagnosticID creates a unique identifier for this SDK instance.
func NewDiagnosticID(sdkKey string) ldvalue.Value {
	uniqueID := uuid.New().String()
	builder := ldvalue.ObjectBuild().Set("diagnosticId", ldvalue.String(uniqueID))
	if len(sdkKey) > 0 {
		suffixStart := len(sdkKey) - 6
		if suffixStart < 0 {
			suffixStart = 0
		}
		builder.Set("sdkKeySuffix", ldvalue.String(sdkKey[suffixStart:]))
	}
	return builder.Build()
}

// NewDiagnosticsManager creates an instance of DiagnosticsManager.
func NewDiagnosticsManager(
	id ldvalue.Value,
	configData ldvalue.Value,
	sdkData ldvalue.Value,
	startTime time.Time,
	periodicEventGate <-chan struct{},
) *DiagnosticsManager {
	timestamp := ldtime.UnixMillisFromTime(startTime)
	return &DiagnosticsManager{
		id:                id,
		configData:        configData,
		sdkData:           sdkData,
		startTime:         timestamp,
		dataSinceTime:     timestamp,
		periodicEventGate: periodicEventGate,
	}
}

// RecordStreamInit is called by the stream processor when a streaming connection attempt
// either succeeds or permanently fails.
func (d *DiagnosticsManager) RecordStreamInit(
	timestamp ldtime.UnixMillisecondTime,
	failed bool,
	durationMillis uint64,
) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.streamInits = append(d.streamInits, ldvalue.ObjectBuild().
		Set("timestamp", ldvalue.Float64(float64(timestamp))).
		Set("failed", ldvalue.Bool(failed)).
		Set("durationMillis", ldvalue.Float64(float64(durationMillis))).
		Build())
}

// CreateInitEvent is called by the event processor when the SDK starts up.
func (d *DiagnosticsManager) CreateInitEvent() ldvalue.Value {
	// Notes on platform data
	// - osArch: in Go, GOARCH is set at compile time, not at runtime (a 32-bit build could
	//   be running on a 64-bit host).
	// - osVersion: not available in Go without platform-specific system calls, so it is
	//   deliberately omitted.
	platformData := ldvalue.ObjectBuild().
		Set("name", ldvalue.String("Go")).
		Set("goVersion", ldvalue.String(runtime.Version())).
		Set("osName", ldvalue.String(normalizeOSName(runtime.GOOS))).
		Set("osArch", ldvalue.String(runtime.GOARCH)).
		Build()
	return ldvalue.ObjectBuild().
		Set("kind", ldvalue.String("diagnostic-init")).
		Set("id", d.id).
		Set("creationDate", ldvalue.Float64(float64(d.startTime))).
		Set("sdk", d.sdkData).
		Set("configuration", d.configData).
		Set("platform", platformData).
		Build()
}

// CanSendStatsEvent is called by the event processor when the diagnostic recording interval
// has elapsed. It is normally always true, but can be blocked in tests.
func (d *DiagnosticsManager) CanSendStatsEvent() bool {
	if d.periodicEventGate != nil {
		select {
		case <-d.periodicEventGate:
			return true
		default:
			return false
		}
	}
	return true
}

// CreateStatsEventAndReset creates a periodic event containing usage statistics, and resets
// the counters for the next interval.
func (d *DiagnosticsManager) CreateStatsEventAndReset(
	droppedEvents int,
	deduplicatedContexts int,
	eventsInLastBatch int,
) ldvalue.Value {
	d.lock.Lock()
	defer d.lock.Unlock()
	timestamp := ldtime.UnixMillisNow()
	streamInits := ldvalue.ArrayBuildWithCapacity(len(d.streamInits))
	for _, si := range d.streamInits {
		streamInits.Add(si)
	}
	event := ldvalue.ObjectBuild().
		Set("kind", ldvalue.String("diagnostic")).
		Set("id", d.id).
		Set("creationDate", ldvalue.Float64(float64(timestamp))).
		Set("dataSinceDate", ldvalue.Float64(float64(d.dataSinceTime))).
		Set("droppedEvents", ldvalue.Int(droppedEvents)).
		Set("deduplicatedUsers", ldvalue.Int(deduplicatedContexts)).
		Set("eventsInLastBatch", ldvalue.Int(eventsInLastBatch)).
		Set("streamInits", streamInits.Build()).
		Build()
	d.streamInits = nil
	d.dataSinceTime = timestamp
	return event
}

func normalizeOSName(osName string) string {
	switch osName {
	case "darwin":
		return "MacOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	}
	return osName
}
