package interfaces

import (
	"fmt"
	"time"
)

// DataSourceState is any of the allowable values for DataSourceStatus.State.
type DataSourceState string

const (
	// DataSourceStateInitializing is the initial state of the data source when the SDK is
	// being initialized. It remains in this state until it either successfully receives a
	// first data set or permanently fails.
	DataSourceStateInitializing DataSourceState = "INITIALIZING"
	// DataSourceStateValid indicates that the data source is currently operational and has
	// not had any problems since the last time it received data.
	DataSourceStateValid DataSourceState = "VALID"
	// DataSourceStateInterrupted indicates that the data source encountered an error that
	// it will attempt to recover from.
	DataSourceStateInterrupted DataSourceState = "INTERRUPTED"
	// DataSourceStateOff indicates that the data source has been permanently shut down,
	// either because the SDK was closed or because an unrecoverable error (such as an
	// invalid SDK key) made further attempts pointless.
	DataSourceStateOff DataSourceState = "OFF"
)

// DataSourceErrorKind is any of the allowable values for DataSourceErrorInfo.Kind.
type DataSourceErrorKind string

const (
	// DataSourceErrorKindUnknown indicates an unexpected error such as an uncaught
	// exception.
	DataSourceErrorKindUnknown DataSourceErrorKind = "UNKNOWN"
	// DataSourceErrorKindNetworkError represents an I/O error such as a dropped connection.
	DataSourceErrorKindNetworkError DataSourceErrorKind = "NETWORK_ERROR"
	// DataSourceErrorKindErrorResponse means the service returned an HTTP error status.
	DataSourceErrorKindErrorResponse DataSourceErrorKind = "ERROR_RESPONSE"
	// DataSourceErrorKindInvalidData means the service returned malformed data.
	DataSourceErrorKindInvalidData DataSourceErrorKind = "INVALID_DATA"
	// DataSourceErrorKindStoreError means the data source itself was fine but a data store
	// operation failed.
	DataSourceErrorKindStoreError DataSourceErrorKind = "STORE_ERROR"
)

// DataSourceStatus is information about the data source's status and the last error it
// encountered, available from DataSourceStatusProvider.
type DataSourceStatus struct {
	// State is the basic state of the data source.
	State DataSourceState
	// StateSince is the time that the current State began.
	StateSince time.Time
	// LastError describes the last error encountered, if any. It is not cleared when the
	// data source recovers.
	LastError DataSourceErrorInfo
}

// String returns a simple string representation of the status.
func (e DataSourceStatus) String() string {
	return fmt.Sprintf("Status(%s,%s,%s)", e.State, e.StateSince.Format(time.RFC3339), e.LastError)
}

// DataSourceErrorInfo describes an error condition that the data source encountered.
type DataSourceErrorInfo struct {
	// Kind is the general category of the error.
	Kind DataSourceErrorKind
	// StatusCode is the HTTP status, if Kind is DataSourceErrorKindErrorResponse.
	StatusCode int
	// Message is any additional human-readable information relevant to the error.
	Message string
	// Time is the time the error occurred.
	Time time.Time
}

// String returns a simple string representation of the error info.
func (e DataSourceErrorInfo) String() string {
	ret := string(e.Kind)
	if e.StatusCode > 0 || e.Message != "" {
		ret += "("
		if e.StatusCode > 0 {
			ret += fmt.Sprintf("%d", e.StatusCode)
		}
		if e.Message != "" {
			if e.StatusCode > 0 {
				ret += ","
			}
			ret += e.Message
		}
		ret += ")"
	}
	if !e.Time.IsZero() {
		ret += "@" + e.Time.Format(time.RFC3339)
	}
	return ret
}

// DataSourceStatusProvider is an interface for querying the status of the SDK's data
// source and subscribing to status changes.
type DataSourceStatusProvider interface {
	// GetStatus returns the current status of the data source.
	GetStatus() DataSourceStatus

	// AddStatusListener subscribes for notifications of status changes. The returned
	// channel will receive a new DataSourceStatus value for any change; it always has
	// room to buffer several updates, but if the caller stops consuming them, updates are
	// eventually dropped.
	AddStatusListener() <-chan DataSourceStatus

	// RemoveStatusListener unsubscribes from notifications of status changes and closes
	// the channel.
	RemoveStatusListener(listener <-chan DataSourceStatus)

	// WaitFor blocks until the data source reaches the specified state, with a timeout. It
	// returns false if the timeout elapsed first or the state became DataSourceStateOff
	// (unless that was the requested state).
	WaitFor(desiredState DataSourceState, timeout time.Duration) bool
}
