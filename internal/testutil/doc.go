// Package testutil provides test helpers for go-oauthflow packages.
//
// It stubs OAuth2 token endpoints without real sockets: MockTokenEndpoint is
// an http.RoundTripper that records every grant request (and its parsed form
// body) before answering through a configurable handler. Recording is
// mutex-guarded so tests exercising the single-flight guarantee can count
// requests from many goroutines without races.
package testutil
