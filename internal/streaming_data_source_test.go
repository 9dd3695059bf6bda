package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/go-test-helpers/v3/httphelpers"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldmodel"
)

const initialPutData = `{"path": "/", "data": {"flags": {"my-flag": {"key": "my-flag", "version": 2}}, "segments": {"my-segment": {"key": "my-segment", "version": 3}}}}`

func makeInitialPutEvent() httphelpers.SSEEvent {
	return httphelpers.SSEEvent{Event: "put", Data: initialPutData}
}

func withStreamProcessor(
	t *testing.T,
	handler http.Handler,
	updates *mockDataSourceUpdates,
	action func(sp *StreamProcessor, requests <-chan httphelpers.HTTPRequestInfo),
) {
	recordingHandler, requests := httphelpers.RecordingHandler(handler)
	httphelpers.WithServer(recordingHandler, func(server *httptest.Server) {
		sp := NewStreamProcessor(basicClientContext(), updates, StreamConfig{
			URI:                   server.URL,
			InitialReconnectDelay: 10 * time.Millisecond,
		})
		defer sp.Close()
		action(sp, requests)
	})
}

func TestStreamProcessorRequestHasPathAndHeaders(t *testing.T) {
	initialEvent := makeInitialPutEvent()
	streamHandler, stream := httphelpers.SSEHandler(&initialEvent)
	defer stream.Close()
	updates := newMockDataSourceUpdates()

	withStreamProcessor(t, streamHandler, updates, func(sp *StreamProcessor, requests <-chan httphelpers.HTTPRequestInfo) {
		closeWhenReady := make(chan struct{})
		sp.Start(closeWhenReady)
		waitForReady(t, closeWhenReady)

		r := <-requests
		assert.Equal(t, "/all", r.Request.URL.Path)
		assert.Equal(t, testSDKKey, r.Request.Header.Get("Authorization"))
	})
}

func TestStreamProcessorRequestIncludesPayloadFilter(t *testing.T) {
	initialEvent := makeInitialPutEvent()
	streamHandler, stream := httphelpers.SSEHandler(&initialEvent)
	defer stream.Close()
	updates := newMockDataSourceUpdates()

	recordingHandler, requests := httphelpers.RecordingHandler(streamHandler)
	httphelpers.WithServer(recordingHandler, func(server *httptest.Server) {
		sp := NewStreamProcessor(basicClientContext(), updates, StreamConfig{
			URI:                   server.URL,
			InitialReconnectDelay: 10 * time.Millisecond,
			PayloadFilter:         "europe west",
		})
		defer sp.Close()

		closeWhenReady := make(chan struct{})
		sp.Start(closeWhenReady)
		waitForReady(t, closeWhenReady)

		r := <-requests
		assert.Equal(t, "/all", r.Request.URL.Path)
		assert.Equal(t, "europe west", r.Request.URL.Query().Get("filter"))
	})
}

func TestStreamProcessorInitialPutStoresDataAndInitializes(t *testing.T) {
	initialEvent := makeInitialPutEvent()
	streamHandler, stream := httphelpers.SSEHandler(&initialEvent)
	defer stream.Close()
	updates := newMockDataSourceUpdates()

	withStreamProcessor(t, streamHandler, updates, func(sp *StreamProcessor, requests <-chan httphelpers.HTTPRequestInfo) {
		closeWhenReady := make(chan struct{})
		sp.Start(closeWhenReady)
		waitForReady(t, closeWhenReady)

		assert.True(t, sp.IsInitialized())
		updates.requireState(t, interfaces.DataSourceStateValid)

		flagItem, err := updates.store.Get(interfaces.DataKindFeatures(), "my-flag")
		require.NoError(t, err)
		require.IsType(t, &ldmodel.FeatureFlag{}, flagItem.Item)
		assert.Equal(t, 2, flagItem.Version)

		segmentItem, err := updates.store.Get(interfaces.DataKindSegments(), "my-segment")
		require.NoError(t, err)
		require.IsType(t, &ldmodel.Segment{}, segmentItem.Item)
		assert.Equal(t, 3, segmentItem.Version)
	})
}

func TestStreamProcessorPatchUpdatesFlagAndSegment(t *testing.T) {
	initialEvent := makeInitialPutEvent()
	streamHandler, stream := httphelpers.SSEHandler(&initialEvent)
	defer stream.Close()
	updates := newMockDataSourceUpdates()

	withStreamProcessor(t, streamHandler, updates, func(sp *StreamProcessor, requests <-chan httphelpers.HTTPRequestInfo) {
		closeWhenReady := make(chan struct{})
		sp.Start(closeWhenReady)
		waitForReady(t, closeWhenReady)

		stream.Enqueue(httphelpers.SSEEvent{
			Event: "patch",
			Data:  `{"path": "/flags/my-flag", "data": {"key": "my-flag", "version": 10}}`,
		})
		require.Eventually(t, func() bool {
			item, _ := updates.store.Get(interfaces.DataKindFeatures(), "my-flag")
			return item.Version == 10
		}, 2*time.Second, 10*time.Millisecond)

		stream.Enqueue(httphelpers.SSEEvent{
			Event: "patch",
			Data:  `{"path": "/segments/my-segment", "data": {"key": "my-segment", "version": 11}}`,
		})
		require.Eventually(t, func() bool {
			item, _ := updates.store.Get(interfaces.DataKindSegments(), "my-segment")
			return item.Version == 11
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestStreamProcessorDeleteStoresTombstone(t *testing.T) {
	initialEvent := makeInitialPutEvent()
	streamHandler, stream := httphelpers.SSEHandler(&initialEvent)
	defer stream.Close()
	updates := newMockDataSourceUpdates()

	withStreamProcessor(t, streamHandler, updates, func(sp *StreamProcessor, requests <-chan httphelpers.HTTPRequestInfo) {
		closeWhenReady := make(chan struct{})
		sp.Start(closeWhenReady)
		waitForReady(t, closeWhenReady)

		stream.Enqueue(httphelpers.SSEEvent{
			Event: "delete",
			Data:  `{"path": "/flags/my-flag", "version": 12}`,
		})
		require.Eventually(t, func() bool {
			item, _ := updates.store.Get(interfaces.DataKindFeatures(), "my-flag")
			return item.Version == 12 && item.Item == nil
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestStreamProcessorUnrecoverableHTTPErrorStopsPermanently(t *testing.T) {
	for _, status := range []int{401, 403, 404} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			updates := newMockDataSourceUpdates()
			withStreamProcessor(t, httphelpers.HandlerWithStatus(status), updates,
				func(sp *StreamProcessor, requests <-chan httphelpers.HTTPRequestInfo) {
					closeWhenReady := make(chan struct{})
					sp.Start(closeWhenReady)
					waitForReady(t, closeWhenReady)

					assert.False(t, sp.IsInitialized())
					rec := updates.requireState(t, interfaces.DataSourceStateOff)
					assert.Equal(t, interfaces.DataSourceErrorKindErrorResponse, rec.err.Kind)
					assert.Equal(t, status, rec.err.StatusCode)
				})
		})
	}
}

func TestStreamProcessorRecoverableHTTPErrorIsRetried(t *testing.T) {
	initialEvent := makeInitialPutEvent()
	streamHandler, stream := httphelpers.SSEHandler(&initialEvent)
	defer stream.Close()
	handler := httphelpers.SequentialHandler(httphelpers.HandlerWithStatus(503), streamHandler)
	updates := newMockDataSourceUpdates()

	withStreamProcessor(t, handler, updates, func(sp *StreamProcessor, requests <-chan httphelpers.HTTPRequestInfo) {
		closeWhenReady := make(chan struct{})
		sp.Start(closeWhenReady)
		waitForReady(t, closeWhenReady)

		updates.requireState(t, interfaces.DataSourceStateInterrupted)
		updates.requireState(t, interfaces.DataSourceStateValid)
		assert.True(t, sp.IsInitialized())
	})
}

func TestStreamProcessorMalformedEventRestartsStream(t *testing.T) {
	initialEvent := makeInitialPutEvent()
	streamHandler, stream := httphelpers.SSEHandler(&initialEvent)
	defer stream.Close()
	updates := newMockDataSourceUpdates()

	withStreamProcessor(t, streamHandler, updates, func(sp *StreamProcessor, requests <-chan httphelpers.HTTPRequestInfo) {
		closeWhenReady := make(chan struct{})
		sp.Start(closeWhenReady)
		waitForReady(t, closeWhenReady)
		<-requests

		stream.Enqueue(httphelpers.SSEEvent{Event: "patch", Data: `{sorry`})

		rec := updates.requireState(t, interfaces.DataSourceStateInterrupted)
		assert.Equal(t, interfaces.DataSourceErrorKindInvalidData, rec.err.Kind)

		// The stream should reconnect after detecting the bad event.
		select {
		case <-requests:
		case <-time.After(3 * time.Second):
			require.FailNow(t, "timed out waiting for stream to reconnect")
		}
	})
}

func TestStreamProcessorRestartsStreamWhenStoreNeedsRefresh(t *testing.T) {
	initialEvent := makeInitialPutEvent()
	streamHandler, stream := httphelpers.SSEHandler(&initialEvent)
	defer stream.Close()
	updates := newMockDataSourceUpdates()
	updates.storeStatusProvider.monitoringEnabled = true

	withStreamProcessor(t, streamHandler, updates, func(sp *StreamProcessor, requests <-chan httphelpers.HTTPRequestInfo) {
		closeWhenReady := make(chan struct{})
		sp.Start(closeWhenReady)
		waitForReady(t, closeWhenReady)
		<-requests

		updates.storeStatusProvider.broadcaster.Broadcast(
			interfaces.DataStoreStatus{Available: true, NeedsRefresh: true})

		select {
		case <-requests:
		case <-time.After(3 * time.Second):
			require.FailNow(t, "timed out waiting for stream to reconnect")
		}
	})
}

func TestStreamProcessorCloseSetsStateToOff(t *testing.T) {
	initialEvent := makeInitialPutEvent()
	streamHandler, stream := httphelpers.SSEHandler(&initialEvent)
	defer stream.Close()
	updates := newMockDataSourceUpdates()

	withStreamProcessor(t, streamHandler, updates, func(sp *StreamProcessor, requests <-chan httphelpers.HTTPRequestInfo) {
		closeWhenReady := make(chan struct{})
		sp.Start(closeWhenReady)
		waitForReady(t, closeWhenReady)

		require.NoError(t, sp.Close())
		updates.requireState(t, interfaces.DataSourceStateOff)
	})
}

func TestParseStreamPath(t *testing.T) {
	p, err := parsePath("/flags/my-flag")
	require.NoError(t, err)
	assert.Equal(t, interfaces.DataKindFeatures(), p.kind)
	assert.Equal(t, "my-flag", p.key)

	p, err = parsePath("/segments/my-segment")
	require.NoError(t, err)
	assert.Equal(t, interfaces.DataKindSegments(), p.kind)
	assert.Equal(t, "my-segment", p.key)

	_, err = parsePath("/other/thing")
	assert.Error(t, err)
}
