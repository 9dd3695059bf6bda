package ldevents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flagmill/go-server-sdk/ldvalue"
)

func TestDiagnosticIDHasRandomID(t *testing.T) {
	id0 := NewDiagnosticID("sdkkey")
	value0 := id0.GetByKey("diagnosticId").StringValue()
	assert.NotEqual(t, "", value0)
	id1 := NewDiagnosticID("sdkkey")
	value1 := id1.GetByKey("diagnosticId").StringValue()
	assert.NotEqual(t, value0, value1)
}

func TestDiagnosticIDUsesLastSixCharsOfSDKKey(t *testing.T) {
	id := NewDiagnosticID("1234567890")
	assert.Equal(t, "567890", id.GetByKey("sdkKeySuffix").StringValue())

	short := NewDiagnosticID("key")
	assert.Equal(t, "key", short.GetByKey("sdkKeySuffix").StringValue())
}

func TestDiagnosticInitEventBasicProperties(t *testing.T) {
	id := NewDiagnosticID("sdkkey")
	startTime := time.Now()
	m := NewDiagnosticsManager(id, ldvalue.Null(), ldvalue.Null(), startTime, nil)
	event := m.CreateInitEvent()
	assert.Equal(t, "diagnostic-init", event.GetByKey("kind").StringValue())
	assert.Equal(t, id, event.GetByKey("id"))
	assert.Equal(t, float64(startTime.UnixNano()/int64(time.Millisecond)),
		event.GetByKey("creationDate").Float64Value())
	platform := event.GetByKey("platform")
	assert.Equal(t, "Go", platform.GetByKey("name").StringValue())
}

func TestDiagnosticStatsEventProperties(t *testing.T) {
	id := NewDiagnosticID("sdkkey")
	m := NewDiagnosticsManager(id, ldvalue.Null(), ldvalue.Null(), time.Now(), nil)
	event := m.CreateStatsEventAndReset(2, 3, 4)
	assert.Equal(t, "diagnostic", event.GetByKey("kind").StringValue())
	assert.Equal(t, id, event.GetByKey("id"))
	assert.Equal(t, 2, event.GetByKey("droppedEvents").IntValue())
	assert.Equal(t, 3, event.GetByKey("deduplicatedUsers").IntValue())
	assert.Equal(t, 4, event.GetByKey("eventsInLastBatch").IntValue())
}

func TestDiagnosticStatsEventIncludesAndResetsStreamInits(t *testing.T) {
	id := NewDiagnosticID("sdkkey")
	m := NewDiagnosticsManager(id, ldvalue.Null(), ldvalue.Null(), time.Now(), nil)
	m.RecordStreamInit(10000, true, 100)
	event := m.CreateStatsEventAndReset(0, 0, 0)
	streamInits := event.GetByKey("streamInits")
	assert.Equal(t, 1, streamInits.Count())
	si := streamInits.GetByIndex(0)
	assert.Equal(t, float64(10000), si.GetByKey("timestamp").Float64Value())
	assert.True(t, si.GetByKey("failed").BoolValue())
	assert.Equal(t, float64(100), si.GetByKey("durationMillis").Float64Value())

	event2 := m.CreateStatsEventAndReset(0, 0, 0)
	assert.Equal(t, 0, event2.GetByKey("streamInits").Count())
}
