// Package testutil provides helpers for testing code that consumes
// go-oauthflow: an in-memory OAuth2 token endpoint and self-signed
// certificate writers for TLS tests.
package testutil

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
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
// It is itself an http.RoundTripper: plug it in as the HTTP client transport
// of a grant strategy or middleware under test. Every request is recorded
// together with its parsed form body, under a mutex, so concurrent
// single-flight tests stay race-clean.
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

// WriteTestCACert writes a self-signed CA certificate to the provided path for TLS tests.
func WriteTestCACert(tb testing.TB, path string) {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate CA key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		Subject:               pkix.Name{CommonName: "test-ca"},
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		tb.Fatalf("failed to create CA certificate: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		tb.Fatalf("failed to write CA certificate: %v", err)
	}
}

// WriteTestCertAndKey writes a self-signed certificate and key to the provided paths.
func WriteTestCertAndKey(tb testing.TB, certPath, keyPath string) {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		Subject:      pkix.Name{CommonName: "test-cert"},
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		tb.Fatalf("failed to create certificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		tb.Fatalf("failed to write certificate: %v", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		tb.Fatalf("failed to marshal key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		tb.Fatalf("failed to write key: %v", err)
	}
}
