package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// RoundTripFunc allows inlining http.RoundTripper implementations.
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls the underlying function.
func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// DefaultTokenJSON is the body served when no handler is configured.
const DefaultTokenJSON = `{
	"access_token": "mock-access-token",
	"token_type": "Bearer",
	"expires_in": 3600
}`

// MockTokenEndpoint simulates an OAuth2 token endpoint without real sockets.
// It is itself an http.RoundTripper; plug it in as a grant strategy's HTTP
// client transport. Requests and their parsed form bodies are recorded under
// a mutex so concurrent single-flight tests stay race-clean.
type MockTokenEndpoint struct {
	// URL is a stable fake endpoint address for building configurations.
	URL string

	mu       sync.Mutex
	handler  RoundTripFunc
	requests []*http.Request
	forms    []url.Values
}

// NewMockTokenEndpoint builds a mock token endpoint. If handler is nil, it
// returns a default successful token response.
func NewMockTokenEndpoint(tb testing.TB, handler RoundTripFunc) *MockTokenEndpoint {
	tb.Helper()

	if handler == nil {
		handler = StaticJSONResponse(DefaultTokenJSON)
	}

	return &MockTokenEndpoint{
		URL:     "https://mock-oauth.example.com/token",
		handler: handler,
	}
}

// RoundTrip implements http.RoundTripper. It records the request and its
// form body, then delegates to the configured handler.
func (m *MockTokenEndpoint) RoundTrip(req *http.Request) (*http.Response, error) {
	form := url.Values{}
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err == nil {
			form, _ = url.ParseQuery(string(raw))
			req.Body = io.NopCloser(bytes.NewReader(raw))
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.forms = append(m.forms, form)
	handler := m.handler
	m.mu.Unlock()

	return handler(req)
}

// Client returns an *http.Client backed by this endpoint.
func (m *MockTokenEndpoint) Client() *http.Client {
	return &http.Client{Transport: m}
}

// SetHandler swaps the response handler, e.g. to fail the next grant.
func (m *MockTokenEndpoint) SetHandler(handler RoundTripFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// RequestCount returns how many requests the endpoint has received.
func (m *MockTokenEndpoint) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of the recorded requests.
func (m *MockTokenEndpoint) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]*http.Request, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}

// Forms returns a copy of the parsed form bodies, in request order.
func (m *MockTokenEndpoint) Forms() []url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	forms := make([]url.Values, len(m.forms))
	copy(forms, m.forms)
	return forms
}

// Close is a no-op to mirror httptest.Server usage in tests.
func (m *MockTokenEndpoint) Close() {}

// StaticJSONResponse returns a RoundTripper that always responds 200 with
// the provided JSON body.
func StaticJSONResponse(body string) RoundTripFunc {
	return JSONResponse(http.StatusOK, body)
}

// JSONResponse returns a RoundTripper that always responds with the given
// status and JSON body.
func JSONResponse(status int, body string) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: status,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}
