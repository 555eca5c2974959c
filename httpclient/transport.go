package httpclient

import (
	"fmt"
	"io"
	"net/http"

	"github.com/AmmannChristian/go-oauthflow/oauth2client"
)

// OAuth2Transport is an http.RoundTripper that automatically adds OAuth2
// Bearer tokens to outgoing HTTP requests.
//
// It wraps an existing transport (typically http.DefaultTransport), injects
// the Authorization header before each request, and reacts to authorization
// failures: on a 401 with a refresh token available it refreshes the token
// exactly once and retries the original request once with the new token.
// When no refresh token is available, the 401 is surfaced unchanged.
type OAuth2Transport struct {
	// Base is the underlying HTTP transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	// TokenManager provides tokens and drives refreshes.
	TokenManager *oauth2client.TokenManager
}

// RoundTrip implements http.RoundTripper interface.
// It fetches a valid token and adds it as "Authorization: Bearer <token>"
// to the request headers before delegating to the base transport. The token
// fetch respects the request context's cancellation and deadline.
func (t *OAuth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.TokenManager == nil {
		return nil, fmt.Errorf("httpclient: TokenManager is nil")
	}

	token, err := t.TokenManager.GetTokenWithContext(req.Context())
	if err != nil {
		return nil, fmt.Errorf("httpclient: failed to get token: %w", err)
	}

	resp, err := t.send(req, token.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Fail fast when there is no refresh token to spend.
	if token.RefreshToken == "" {
		return resp, nil
	}

	// Retrying needs a rewindable body.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	fresh, err := t.TokenManager.RefreshAfterUnauthorized(req.Context(), token)
	if err != nil {
		drain(resp)
		return nil, fmt.Errorf("httpclient: refresh after 401 failed: %w", err)
	}

	// Exactly one retry with the new token; a second 401 is surfaced as-is.
	drain(resp)
	return t.send(req, fresh.AccessToken)
}

// send delegates a clone of req with the Bearer header set, leaving the
// caller's request untouched.
func (t *OAuth2Transport) send(req *http.Request, accessToken string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+accessToken)

	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("httpclient: rewind request body: %w", err)
		}
		clone.Body = body
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(clone)
}

// drain releases a response that will not be returned to the caller.
func drain(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}
}

// NewOAuth2Transport creates a new OAuth2Transport with the given token manager.
// The base transport defaults to http.DefaultTransport if not specified.
func NewOAuth2Transport(tm *oauth2client.TokenManager, base http.RoundTripper) *OAuth2Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &OAuth2Transport{
		Base:         base,
		TokenManager: tm,
	}
}
