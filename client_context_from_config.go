package ldclient

import (
	"errors"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/internal"
	"github.com/flagmill/go-server-sdk/ldcomponents"
	"github.com/flagmill/go-server-sdk/ldevents"
)

func newClientContextFromConfig(
	sdkKey string,
	config Config,
	diagnosticsManager *ldevents.DiagnosticsManager,
) (interfaces.ClientContext, error) {
	if !stringIsValidHTTPHeaderValue(sdkKey) {
		// We want to fail fast in this case, because if we got as far as trying to make an HTTP
		// request with a malformed header, the Go HTTP framework would dump the actual header
		// value in its error message, and we don't want to log SDK keys.
		return nil, errors.New("SDK key contains invalid characters")
	}

	basicConfig := interfaces.BasicConfiguration{SDKKey: sdkKey, Offline: config.Offline}

	httpFactory := config.HTTP
	if httpFactory == nil {
		httpFactory = ldcomponents.HTTPConfiguration()
	}
	http, err := httpFactory.CreateHTTPConfiguration(basicConfig)
	if err != nil {
		return nil, err
	}

	loggingFactory := config.Logging
	if loggingFactory == nil {
		loggingFactory = ldcomponents.Logging()
	}
	logging, err := loggingFactory.CreateLoggingConfiguration(basicConfig)
	if err != nil {
		return nil, err
	}

	return internal.NewClientContextImpl(
		sdkKey,
		http,
		logging,
		config.Offline,
		diagnosticsManager,
	), nil
}

func stringIsValidHTTPHeaderValue(s string) bool {
	for _, ch := range s {
		if ch < 32 || ch > 127 {
			return false
		}
	}
	return true
}
