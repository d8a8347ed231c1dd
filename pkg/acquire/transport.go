package acquire

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFetcher abstracts HTTP calls for testability
type HTTPFetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// RealHTTPFetcher wraps http.Client for production use
type RealHTTPFetcher struct {
	client *http.Client
}

// NewRealHTTPFetcher creates a production HTTP fetcher with sane timeouts
// and TLS verification.
func NewRealHTTPFetcher() HTTPFetcher {
	return &RealHTTPFetcher{client: &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}}
}

func (f *RealHTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	return f.client.Do(req)
}

// MockHTTPFetcher simulates HTTP responses for testing
type MockHTTPFetcher struct {
	responses map[string]mockResponse
	errors    map[string]error

	// Requests records every URL fetched, in order.
	Requests []string
}

type mockResponse struct {
	status int
	body   []byte
}

// NewMockHTTPFetcher creates a mock HTTP fetcher
func NewMockHTTPFetcher() *MockHTTPFetcher {
	return &MockHTTPFetcher{
		responses: make(map[string]mockResponse),
		errors:    make(map[string]error),
	}
}

// AddResponse registers a mock response for a URL
func (m *MockHTTPFetcher) AddResponse(urlStr string, statusCode int, body []byte) {
	m.responses[urlStr] = mockResponse{status: statusCode, body: body}
}

// AddError registers a mock error for a URL
func (m *MockHTTPFetcher) AddError(urlStr string, err error) {
	m.errors[urlStr] = err
}

func (m *MockHTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	urlStr := req.URL.String()
	m.Requests = append(m.Requests, urlStr)

	if err, ok := m.errors[urlStr]; ok {
		return nil, err
	}
	if resp, ok := m.responses[urlStr]; ok {
		parsedURL, _ := url.Parse(urlStr)
		return &http.Response{
			StatusCode: resp.status,
			Body:       io.NopCloser(strings.NewReader(string(resp.body))),
			Header:     make(http.Header),
			Request:    &http.Request{URL: parsedURL},
		}, nil
	}
	// Return 404 for unknown URLs
	return &http.Response{
		StatusCode: 404,
		Body:       io.NopCloser(strings.NewReader("Not Found")),
		Header:     make(http.Header),
	}, nil
}
