package ldevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagmill/go-server-sdk/ldcontext"
	"github.com/flagmill/go-server-sdk/ldtime"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

func makeEvalEventForSummary(
	key string,
	version, variation int,
	value, defaultValue ldvalue.Value,
	context ldcontext.Context,
	creationDate ldtime.UnixMillisecondTime,
) FeatureRequestEvent {
	return FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: creationDate, Context: context},
		Key:       key,
		Version:   version,
		Variation: variation,
		Value:     value,
		Default:   defaultValue,
	}
}

func TestSummarizeEventSetsStartAndEndDates(t *testing.T) {
	es := newEventSummarizer()
	context := ldcontext.New("key")
	es.summarizeEvent(makeEvalEventForSummary("flag", 1, 0, ldvalue.Null(), ldvalue.Null(), context, 2000))
	es.summarizeEvent(makeEvalEventForSummary("flag", 1, 0, ldvalue.Null(), ldvalue.Null(), context, 1000))
	es.summarizeEvent(makeEvalEventForSummary("flag", 1, 0, ldvalue.Null(), ldvalue.Null(), context, 1500))
	data := es.snapshot()

	assert.Equal(t, ldtime.UnixMillisecondTime(1000), data.startDate)
	assert.Equal(t, ldtime.UnixMillisecondTime(2000), data.endDate)
}

func TestSummarizeEventIncrementsCounters(t *testing.T) {
	es := newEventSummarizer()
	context := ldcontext.New("key")
	es.summarizeEvent(makeEvalEventForSummary(
		"flag1", 11, 1, ldvalue.String("value1"), ldvalue.String("default1"), context, 1000))
	es.summarizeEvent(makeEvalEventForSummary(
		"flag1", 11, 2, ldvalue.String("value2"), ldvalue.String("default1"), context, 1000))
	es.summarizeEvent(makeEvalEventForSummary(
		"flag1", 11, 1, ldvalue.String("value1"), ldvalue.String("default1"), context, 1000))
	es.summarizeEvent(makeEvalEventForSummary(
		"flag2", 22, 3, ldvalue.String("value99"), ldvalue.String("default2"), context, 1000))
	data := es.snapshot()

	require.Len(t, data.flags, 2)
	flag1 := data.flags["flag1"]
	require.NotNil(t, flag1)
	assert.Equal(t, ldvalue.String("default1"), flag1.defaultValue)
	assert.Equal(t, 2, flag1.counters[counterKey{variation: 1, version: 11}].count)
	assert.Equal(t, ldvalue.String("value1"), flag1.counters[counterKey{variation: 1, version: 11}].flagValue)
	assert.Equal(t, 1, flag1.counters[counterKey{variation: 2, version: 11}].count)

	flag2 := data.flags["flag2"]
	require.NotNil(t, flag2)
	assert.Equal(t, 1, flag2.counters[counterKey{variation: 3, version: 22}].count)
}

func TestSummarizeEventCountsSeparatelyPerVersion(t *testing.T) {
	es := newEventSummarizer()
	context := ldcontext.New("key")
	es.summarizeEvent(makeEvalEventForSummary("flag", 1, 0, ldvalue.String("a"), ldvalue.Null(), context, 1000))
	es.summarizeEvent(makeEvalEventForSummary("flag", 2, 0, ldvalue.String("a"), ldvalue.Null(), context, 1000))
	data := es.snapshot()

	flag := data.flags["flag"]
	require.NotNil(t, flag)
	assert.Len(t, flag.counters, 2)
}

func TestSummarizeEventRecordsContextKinds(t *testing.T) {
	es := newEventSummarizer()
	user := ldcontext.New("u")
	multi := ldcontext.NewMulti(ldcontext.New("u"), ldcontext.NewWithKind("org", "o"))
	es.summarizeEvent(makeEvalEventForSummary("flag", 1, 0, ldvalue.Null(), ldvalue.Null(), user, 1000))
	es.summarizeEvent(makeEvalEventForSummary("flag", 1, 0, ldvalue.Null(), ldvalue.Null(), multi, 1000))
	data := es.snapshot()

	flag := data.flags["flag"]
	require.NotNil(t, flag)
	assert.Len(t, flag.contextKinds, 2)
	assert.Contains(t, flag.contextKinds, ldcontext.Kind("user"))
	assert.Contains(t, flag.contextKinds, ldcontext.Kind("org"))
}

func TestSnapshotResetsState(t *testing.T) {
	es := newEventSummarizer()
	context := ldcontext.New("key")
	es.summarizeEvent(makeEvalEventForSummary("flag", 1, 0, ldvalue.Null(), ldvalue.Null(), context, 1000))
	first := es.snapshot()
	assert.True(t, first.hasCounters())

	second := es.snapshot()
	assert.False(t, second.hasCounters())
	assert.Equal(t, ldtime.UnixMillisecondTime(0), second.startDate)
}
