// Package migrate bridges legacy token flows into the oauth2client
// lifecycle: it can force a refresh of the managed bearer token through an
// existing transport, import tokens obtained by golang.org/x/oauth2 code,
// and register process-lifetime hooks around refresh attempts.
package migrate

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/AmmannChristian/go-oauthflow/httpclient"
	"github.com/AmmannChristian/go-oauthflow/oauth2client"
	"golang.org/x/oauth2"
)

// Migrator integrates legacy token flows with a token manager. The zero
// value is not usable; construct with NewMigrator.
type Migrator struct {
	hooks *oauth2client.HookRegistry
}

// NewMigrator creates a migrator around a shared hook registry. Pass the
// same registry to token managers via oauth2client.WithHookRegistry so hooks
// registered here fire around their refreshes. A nil registry gets a fresh
// one, available via Hooks.
func NewMigrator(hooks *oauth2client.HookRegistry) *Migrator {
	if hooks == nil {
		hooks = oauth2client.NewHookRegistry()
	}
	return &Migrator{hooks: hooks}
}

// Hooks returns the registry this migrator registers into.
func (m *Migrator) Hooks() *oauth2client.HookRegistry { return m.hooks }

// RegisterPreFetchHook appends a hook invoked with the client configuration
// and authorization level immediately before each refresh attempt.
// Registration is append-only for the process lifetime.
func (m *Migrator) RegisterPreFetchHook(hook oauth2client.PreFetchHook) {
	m.hooks.RegisterPreFetch(hook)
}

// RegisterPostFetchHook appends a hook invoked with the refresh outcome
// after each attempt completes, success or failure.
func (m *Migrator) RegisterPostFetchHook(hook oauth2client.PostFetchHook) {
	m.hooks.RegisterPostFetch(hook)
}

// RefreshBearerToken forces a refresh of the manager's stored bearer token:
// it rewrites the stored token as already expired, drives a no-op
// authenticated request through the given transport wrapped with the token
// middleware, and re-reads the store. On success the store holds a valid
// token, which is returned.
//
// It fails with an internal failure when no well-formed bearer token exists
// to refresh, and with a client failure when the refresh did not leave a
// valid token behind.
func (m *Migrator) RefreshBearerToken(ctx context.Context, tm *oauth2client.TokenManager, base http.RoundTripper) (oauth2client.Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	current, ok := tm.TokenStore().Token(tm.Config(), tm.Authorization())
	if !ok || current.AccessToken == "" {
		return oauth2client.Token{}, oauth2client.NewError(oauth2client.ErrorKindInternal, "forced_refresh", "no token to refresh")
	}
	if current.Kind != oauth2client.TokenKindBearer {
		return oauth2client.Token{}, oauth2client.NewError(oauth2client.ErrorKindInternal, "forced_refresh", "stored token is not a bearer token")
	}

	tm.ExpireToken()

	// The probe only exists to drive the middleware; the outcome is decided
	// by re-reading the store below.
	transport := httpclient.NewOAuth2Transport(tm, base)
	_ = m.probe(ctx, tm.Config(), transport)

	refreshed, ok := tm.TokenStore().Token(tm.Config(), tm.Authorization())
	if !ok || !refreshed.Valid() {
		return oauth2client.Token{}, oauth2client.NewError(oauth2client.ErrorKindClient, "forced_refresh", "forced refresh did not produce a valid token")
	}

	return refreshed, nil
}

// probe issues the no-op authenticated request. The environment's ProbeURL
// is preferred; otherwise a HEAD to the token grant URL serves as a harmless
// stand-in. The response body is discarded.
func (m *Migrator) probe(ctx context.Context, config *oauth2client.ClientConfig, transport http.RoundTripper) error {
	target := config.Environment.ProbeURL
	method := http.MethodGet
	if target == "" {
		target = config.Environment.TokenGrantURL
		method = http.MethodHead
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return err
	}

	resp, err := transport.RoundTrip(req)
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}
	return err
}

// ImportToken stores a token obtained by legacy golang.org/x/oauth2 code
// into the manager's token slot, so subsequent requests through the
// middleware reuse and refresh it. Only bearer tokens are recognized.
func (m *Migrator) ImportToken(tm *oauth2client.TokenManager, legacy *oauth2.Token) (oauth2client.Token, error) {
	if legacy == nil || legacy.AccessToken == "" {
		return oauth2client.Token{}, oauth2client.NewError(oauth2client.ErrorKindInternal, "import_token", "legacy token is missing an access token")
	}
	if legacy.TokenType != "" && !strings.EqualFold(legacy.TokenType, "bearer") {
		return oauth2client.Token{}, oauth2client.NewError(oauth2client.ErrorKindInternal, "import_token", "legacy token is not a bearer token")
	}

	token := oauth2client.Token{
		Kind:         oauth2client.TokenKindBearer,
		AccessToken:  legacy.AccessToken,
		RefreshToken: legacy.RefreshToken,
		Expiry:       legacy.Expiry,
	}

	tm.TokenStore().Store(token, tm.Config(), tm.Authorization())
	return token, nil
}
