package internal

import (
	"fmt"
	"net/http"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldlog"
	"github.com/flagmill/go-server-sdk/ldmodel"
)

// allData is the wire format of a full data set, as served by both the polling endpoint
// and the stream's "put" event.
type allData struct {
	Flags    map[string]*ldmodel.FeatureFlag `json:"flags"`
	Segments map[string]*ldmodel.Segment     `json:"segments"`
}

type httpStatusError struct {
	Message string
	Code    int
}

func (e httpStatusError) Error() string {
	return e.Message
}

// isHTTPErrorRecoverable reports whether a request that failed with this status is worth
// retrying. A 4xx response reflects something wrong with the request itself, which will
// not change on retry, except for the handful of statuses that are transient.
func isHTTPErrorRecoverable(statusCode int) bool {
	if statusCode >= 400 && statusCode < 500 {
		switch statusCode {
		case http.StatusBadRequest, http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}
	return true
}

func httpErrorDescription(statusCode int) string {
	message := ""
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		message = " (invalid SDK key)"
	}
	return fmt.Sprintf("HTTP error %d%s", statusCode, message)
}

// checkIfErrorIsRecoverableAndLog logs an HTTP or network error at a level matching its
// severity and reports whether the operation should be retried.
func checkIfErrorIsRecoverableAndLog(
	loggers ldlog.Loggers,
	errorDesc, errorContext string,
	statusCode int,
	recoverableMessage string,
) bool {
	if statusCode > 0 && !isHTTPErrorRecoverable(statusCode) {
		loggers.Errorf("Error %s (giving up permanently): %s", errorContext, errorDesc)
		return false
	}
	loggers.Warnf("Error %s (%s): %s", errorContext, recoverableMessage, errorDesc)
	return true
}

func checkForHTTPError(statusCode int, url string) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return httpStatusError{
			Message: fmt.Sprintf("Invalid SDK key when accessing URL: %s. Verify that your SDK key is correct.", url),
			Code:    statusCode,
		}
	case statusCode == http.StatusNotFound:
		return httpStatusError{
			Message: fmt.Sprintf("Resource not found when accessing URL: %s. Verify that this resource exists.", url),
			Code:    statusCode,
		}
	case statusCode/100 != 2:
		return httpStatusError{
			Message: fmt.Sprintf("Unexpected response code: %d when accessing URL: %s", statusCode, url),
			Code:    statusCode,
		}
	}
	return nil
}

// makeAllStoreData converts the wire format into the collections that initialize a data
// store.
func makeAllStoreData(
	flags map[string]*ldmodel.FeatureFlag,
	segments map[string]*ldmodel.Segment,
) []interfaces.StoreCollection {
	flagItems := make([]interfaces.StoreKeyedItemDescriptor, 0, len(flags))
	for key, flag := range flags {
		f := flag
		flagItems = append(flagItems, interfaces.StoreKeyedItemDescriptor{
			Key:  key,
			Item: interfaces.StoreItemDescriptor{Version: f.Version, Item: f},
		})
	}
	segmentItems := make([]interfaces.StoreKeyedItemDescriptor, 0, len(segments))
	for key, segment := range segments {
		s := segment
		segmentItems = append(segmentItems, interfaces.StoreKeyedItemDescriptor{
			Key:  key,
			Item: interfaces.StoreItemDescriptor{Version: s.Version, Item: s},
		})
	}
	return []interfaces.StoreCollection{
		{Kind: interfaces.DataKindFeatures(), Items: flagItems},
		{Kind: interfaces.DataKindSegments(), Items: segmentItems},
	}
}
