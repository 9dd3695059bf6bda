package ldcomponents

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/internal"
)

// DefaultConnectTimeout is the default value for HTTPConfigurationBuilder.ConnectTimeout.
const DefaultConnectTimeout = 3 * time.Second

// The User-Agent header identifies the SDK to the services it connects to.
const defaultUserAgent = "GoServerSDK/" + internal.SDKVersion

// HTTPConfigurationBuilder contains methods for configuring the SDK's networking behavior.
//
// If you want to set non-default values for any of these properties, create a builder with
// ldcomponents.HTTPConfiguration(), change its properties with the HTTPConfigurationBuilder
// methods, and store it in the HTTP field of your SDK configuration:
//
//	config := ld.Config{
//	    HTTP: ldcomponents.HTTPConfiguration().ConnectTimeout(3 * time.Second),
//	}
type HTTPConfigurationBuilder struct {
	applicationInfo   interfaces.ApplicationInfo
	connectTimeout    time.Duration
	customHeaders     http.Header
	httpClientFactory func() *http.Client
	proxyURL          string
	userAgentSuffix   string
}

// HTTPConfiguration returns a configuration builder for the SDK's HTTP configuration.
func HTTPConfiguration() *HTTPConfigurationBuilder {
	return &HTTPConfigurationBuilder{
		connectTimeout: DefaultConnectTimeout,
	}
}

// ApplicationInfo sets the application metadata that is reported to the services in the
// X-LaunchDarkly-Tags header. Values that do not meet the constraints described on
// interfaces.ApplicationInfo are discarded.
func (b *HTTPConfigurationBuilder) ApplicationInfo(info interfaces.ApplicationInfo) *HTTPConfigurationBuilder {
	b.applicationInfo = info
	return b
}

// ConnectTimeout sets the connection timeout.
//
// This is the maximum amount of time to wait for each HTTP connection to be established,
// including the TLS handshake. It is not a timeout for the entire request-response cycle.
func (b *HTTPConfigurationBuilder) ConnectTimeout(connectTimeout time.Duration) *HTTPConfigurationBuilder {
	if connectTimeout <= 0 {
		b.connectTimeout = DefaultConnectTimeout
	} else {
		b.connectTimeout = connectTimeout
	}
	return b
}

// Header specifies a custom HTTP header that should be added to all SDK requests. This may be
// helpful if you are using a gateway or proxy server that requires a specific header in
// requests.
func (b *HTTPConfigurationBuilder) Header(name string, value string) *HTTPConfigurationBuilder {
	if b.customHeaders == nil {
		b.customHeaders = make(http.Header)
	}
	b.customHeaders.Set(name, value)
	return b
}

// HTTPClientFactory specifies a function for creating each HTTP client instance that is used
// by the SDK. If you use this option, the other methods of this builder that affect the HTTP
// client properties are ignored.
func (b *HTTPConfigurationBuilder) HTTPClientFactory(factory func() *http.Client) *HTTPConfigurationBuilder {
	b.httpClientFactory = factory
	return b
}

// ProxyURL specifies a proxy URL to be used for all requests. This overrides any setting of
// the HTTP_PROXY, HTTPS_PROXY, or NO_PROXY environment variables.
func (b *HTTPConfigurationBuilder) ProxyURL(proxyURL string) *HTTPConfigurationBuilder {
	b.proxyURL = proxyURL
	return b
}

// UserAgentSuffix specifies an additional string to append to the User-Agent header of SDK
// requests, to identify a wrapper library or framework.
func (b *HTTPConfigurationBuilder) UserAgentSuffix(suffix string) *HTTPConfigurationBuilder {
	b.userAgentSuffix = suffix
	return b
}

// CreateHTTPConfiguration is called by the SDK to create the HTTP configuration.
func (b *HTTPConfigurationBuilder) CreateHTTPConfiguration(
	basicConfiguration interfaces.BasicConfiguration,
) (interfaces.HTTPConfiguration, error) {
	headers := make(http.Header)
	headers.Set("Authorization", basicConfiguration.SDKKey)
	userAgent := defaultUserAgent
	if b.userAgentSuffix != "" {
		userAgent = userAgent + " " + b.userAgentSuffix
	}
	headers.Set("User-Agent", userAgent)
	if tags := buildTagsHeader(b.applicationInfo); tags != "" {
		headers.Set("X-LaunchDarkly-Tags", tags)
	}
	for k, vv := range b.customHeaders {
		headers[k] = vv
	}

	clientFactory := b.httpClientFactory
	if clientFactory == nil {
		dialer := &net.Dialer{
			Timeout:   b.connectTimeout,
			KeepAlive: 1 * time.Minute, // keeps the streaming connection from being dropped by NAT timeouts
		}
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: b.connectTimeout,
		}
		if b.proxyURL != "" {
			parsed, err := url.Parse(b.proxyURL)
			if err != nil {
				return nil, fmt.Errorf("invalid proxy URL %q: %w", b.proxyURL, err)
			}
			transport.Proxy = http.ProxyURL(parsed)
		}
		clientFactory = func() *http.Client {
			return &http.Client{
				Transport: transport,
			}
		}
	}

	return internal.HTTPConfigurationImpl{
		DefaultHeaders:    headers,
		HTTPClientFactory: clientFactory,
	}, nil
}

func buildTagsHeader(info interfaces.ApplicationInfo) string {
	header := ""
	for _, tag := range []struct{ name, value string }{
		{"application.id", info.ApplicationID},
		{"application.version", info.ApplicationVersion},
	} {
		if tag.value == "" || !isValidTagValue(tag.value) {
			continue
		}
		if header != "" {
			header += " "
		}
		header += tag.name + "/" + tag.value
	}
	return header
}

func isValidTagValue(value string) bool {
	if len(value) > 64 {
		return false
	}
	for _, ch := range value {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9',
			ch == '.', ch == '_', ch == '-':
		default:
			return false
		}
	}
	return true
}
