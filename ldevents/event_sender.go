package ldevents

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/flagmill/go-server-sdk/ldlog"
	"github.com/flagmill/go-server-sdk/ldtime"

	"github.com/google/uuid"
)

const (
	currentEventSchema = "4"
	eventSchemaHeader  = "X-LaunchDarkly-Event-Schema"
	payloadIDHeader    = "X-LaunchDarkly-Payload-ID"
	defaultRetryDelay  = time.Second
)

type defaultEventSender struct {
	httpClient    *http.Client
	eventsURI     string
	diagnosticURI string
	headers       http.Header
	loggers       ldlog.Loggers
	retryDelay    time.Duration
}

// NewDefaultEventSender creates the default implementation of EventSender, which posts JSON
// event payloads to the /bulk and /diagnostic endpoints of the events service.
func NewDefaultEventSender(
	httpClient *http.Client,
	eventsURI string,
	diagnosticURI string,
	headers http.Header,
	loggers ldlog.Loggers,
) EventSender {
	if httpClient == nil {
		client := *http.DefaultClient
		httpClient = &client
	}
	return &defaultEventSender{
		httpClient:    httpClient,
		eventsURI:     eventsURI,
		diagnosticURI: diagnosticURI,
		headers:       headers,
		loggers:       loggers,
		retryDelay:    defaultRetryDelay,
	}
}

func (s *defaultEventSender) SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult {
	var result EventSenderResult

	uri := s.eventsURI
	description := "diagnostic event"
	var payloadID string
	if kind == AnalyticsEventDataKind {
		description = "analytics events"
		// The payload ID stays the same across a retry, so the events service can
		// deduplicate the payload if the first attempt was received but the response
		// was lost.
		payloadID = uuid.New().String()
	} else {
		uri = s.diagnosticURI
	}

	delay := s.retryDelay
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			s.loggers.Warnf("Will retry posting events after %s", delay)
			time.Sleep(delay)
		}
		req, reqErr := http.NewRequest("POST", uri, bytes.NewReader(data))
		if reqErr != nil {
			s.loggers.Errorf("Unexpected error while creating event request: %+v", reqErr)
			return result
		}
		for k, vv := range s.headers {
			req.Header[k] = vv
		}
		req.Header.Set("Content-Type", "application/json")
		if kind == AnalyticsEventDataKind {
			req.Header.Set(eventSchemaHeader, currentEventSchema)
			req.Header.Set(payloadIDHeader, payloadID)
		}

		s.loggers.Debugf("Sending %d %s: %s", eventCount, description, data)

		resp, respErr := s.httpClient.Do(req)
		if respErr != nil {
			s.loggers.Warnf("Unexpected error while sending events: %+v", respErr)
			continue
		}
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			result.Success = true
			if dateStr := resp.Header.Get("Date"); dateStr != "" {
				if serverTime, err := http.ParseTime(dateStr); err == nil {
					result.TimeFromServer = ldtime.UnixMillisFromTime(serverTime)
				}
			}
			return result
		}

		if isHTTPErrorRecoverable(resp.StatusCode) {
			if resp.StatusCode == http.StatusTooManyRequests {
				// The service may tell us how long to back off before retrying.
				if wait, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
					delay = wait
				}
			}
			s.loggers.Warnf(
				"Unexpected response status %d when sending events; will retry",
				resp.StatusCode,
			)
			continue
		}
		s.loggers.Errorf(
			"Error sending events: HTTP error %d%s. Events will no longer be sent.",
			resp.StatusCode,
			httpErrorAddendum(resp.StatusCode),
		)
		result.MustShutDown = true
		return result
	}
	return result
}

// parseRetryAfter interprets a Retry-After response header, which may be either a number
// of seconds or an HTTP date. A delay in the past counts as zero.
func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if date, err := http.ParseTime(value); err == nil {
		wait := time.Until(date)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}
	return 0, false
}

func httpErrorAddendum(statusCode int) string {
	if statusCode == 401 || statusCode == 403 {
		return " (invalid SDK key)"
	}
	return ""
}

// isHTTPErrorRecoverable is the standard rule for deciding whether an HTTP error status from
// the service is worth retrying.
func isHTTPErrorRecoverable(statusCode int) bool {
	if statusCode >= 400 && statusCode < 500 {
		switch statusCode {
		case 400, 408, 429:
			return true
		}
		return false
	}
	return true
}
