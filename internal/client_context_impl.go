package internal

import (
	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldevents"
)

// HasDiagnosticsManager is implemented only by the SDK's own ClientContext, letting
// component factories pick up the shared DiagnosticsManager when diagnostics are enabled.
type HasDiagnosticsManager interface {
	GetDiagnosticsManager() *ldevents.DiagnosticsManager
}

// sdkContext is the SDK's standard implementation of interfaces.ClientContext. Component
// factories receive it when the client is constructed.
type sdkContext struct {
	basic              interfaces.BasicConfiguration
	http               interfaces.HTTPConfiguration
	logging            interfaces.LoggingConfiguration
	diagnosticsManager *ldevents.DiagnosticsManager
}

// NewClientContextImpl creates the SDK's standard implementation of interfaces.ClientContext.
func NewClientContextImpl(
	sdkKey string,
	http interfaces.HTTPConfiguration,
	logging interfaces.LoggingConfiguration,
	offline bool,
	diagnosticsManager *ldevents.DiagnosticsManager,
) interfaces.ClientContext {
	return &sdkContext{
		basic:              interfaces.BasicConfiguration{SDKKey: sdkKey, Offline: offline},
		http:               http,
		logging:            logging,
		diagnosticsManager: diagnosticsManager,
	}
}

func (c *sdkContext) GetBasic() interfaces.BasicConfiguration {
	return c.basic
}

func (c *sdkContext) GetHTTP() interfaces.HTTPConfiguration {
	return c.http
}

func (c *sdkContext) GetLogging() interfaces.LoggingConfiguration {
	return c.logging
}

func (c *sdkContext) GetDiagnosticsManager() *ldevents.DiagnosticsManager {
	return c.diagnosticsManager
}
