package internal

import (
	"net/http"
)

// HTTPConfigurationImpl is the internal implementation of HTTPConfiguration.
type HTTPConfigurationImpl struct {
	DefaultHeaders    http.Header
	HTTPClientFactory func() *http.Client
}

// GetDefaultHeaders returns a copy of the configured default headers.
func (c HTTPConfigurationImpl) GetDefaultHeaders() http.Header {
	// maps are mutable, so return a copy
	ret := make(http.Header, len(c.DefaultHeaders))
	for k, v := range c.DefaultHeaders {
		ret[k] = v
	}
	return ret
}

// CreateHTTPClient returns a new HTTP client with the configured settings.
func (c HTTPConfigurationImpl) CreateHTTPClient() *http.Client {
	if c.HTTPClientFactory == nil { // should not happen except possibly in tests
		client := *http.DefaultClient
		return &client
	}
	return c.HTTPClientFactory()
}
