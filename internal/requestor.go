package internal

import (
	"encoding/json"
	"io/ioutil"
	"net/http"

	"github.com/gregjones/httpcache"

	"github.com/flagmill/go-server-sdk/ldlog"

	"github.com/flagmill/go-server-sdk/interfaces"
)

const latestAllPath = "/sdk/latest-all"

// dataRequester fetches the full flag and segment data set; pollingRequester is the real
// implementation and tests substitute their own.
type dataRequester interface {
	fetchAll() (data allData, cached bool, err error)
}

// pollingRequester fetches data from the polling endpoint, with HTTP response caching so
// that an unchanged data set answers 304 and costs nothing to parse.
type pollingRequester struct {
	httpClient *http.Client
	uri        string
	headers    http.Header
	loggers    ldlog.Loggers
}

type malformedJSONError struct {
	innerError error
}

func (e malformedJSONError) Error() string {
	return e.innerError.Error()
}

func newPollingRequester(
	context interfaces.ClientContext,
	httpClient *http.Client,
	baseURI string,
	payloadFilter string,
) dataRequester {
	if httpClient == nil {
		httpClient = context.GetHTTP().CreateHTTPClient()
	}
	cachingClient := *httpClient
	cachingClient.Transport = &httpcache.Transport{
		Cache:               httpcache.NewMemoryCache(),
		MarkCachedResponses: true,
		Transport:           httpClient.Transport,
	}

	return &pollingRequester{
		httpClient: &cachingClient,
		uri:        endpointURI(baseURI, latestAllPath, payloadFilter),
		headers:    context.GetHTTP().GetDefaultHeaders(),
		loggers:    context.GetLogging().GetLoggers(),
	}
}

func (r *pollingRequester) fetchAll() (allData, bool, error) {
	if r.loggers.IsDebugEnabled() {
		r.loggers.Debug("Polling for feature flag updates")
	}

	body, cached, err := r.fetch()
	if err != nil {
		return allData{}, false, err
	}
	if cached {
		return allData{}, true, nil
	}

	var data allData
	if err := json.Unmarshal(body, &data); err != nil {
		return allData{}, false, malformedJSONError{err}
	}
	return data, false, nil
}

func (r *pollingRequester) fetch() ([]byte, bool, error) {
	req, err := http.NewRequest("GET", r.uri, nil)
	if err != nil {
		return nil, false, err
	}
	for k, vv := range r.headers {
		req.Header[k] = vv
	}

	res, err := r.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_, _ = ioutil.ReadAll(res.Body)
		_ = res.Body.Close()
	}()

	if err := checkForHTTPError(res.StatusCode, req.URL.String()); err != nil {
		return nil, false, err
	}

	cached := res.Header.Get(httpcache.XFromCache) != ""

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, false, err
	}
	return body, cached, nil
}
