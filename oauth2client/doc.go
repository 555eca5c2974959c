// Package oauth2client manages OAuth2 bearer-token lifecycle for client
// applications: acquiring tokens through pluggable grant strategies, caching
// them in a fingerprint-keyed store, and refreshing them when expired or
// rejected.
//
// The TokenManager guarantees that concurrent callers never trigger
// duplicate grant requests for the same (configuration, authorization)
// fingerprint: refreshes are coalesced so at most one is in flight per slot
// and waiting callers share its result. Token fetches honor contexts for
// cancellation, are thread-safe, and can log refresh events via optional
// Logger interfaces.
//
// # Features
//
//   - Client-credentials, password, authorization-code and refresh-token
//     grant strategies sharing one form-encoded request contract
//   - Fingerprint-keyed TokenStore seam with a volatile in-memory default
//   - Single-flight refresh coalescing per fingerprint
//   - Append-only pre/post fetch hook registries with panic isolation
//   - gRPC unary and stream client interceptors that inject Bearer tokens
//   - oauth2.TokenSource adapter for golang.org/x/oauth2 consumers
//   - Optional logging (WithLogger, WithLoggingEnabled)
//
// # Quick Start
//
//	cfg := &oauth2client.ClientConfig{
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	    Scopes:       "openid profile email",
//	    Environment: oauth2client.ServerEnvironment{
//	        TokenGrantURL: "https://auth.example.com/oauth/v2/token",
//	    },
//	}
//
//	tm := oauth2client.NewTokenManager(
//	    ctx,
//	    cfg,
//	    oauth2client.AuthorizationClient,
//	    &oauth2client.ClientCredentialsGrant{Config: cfg},
//	    oauth2client.WithLoggingEnabled(),
//	)
//
//	token, err := tm.GetTokenWithContext(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := http.Client{Transport: httpclient.NewOAuth2Transport(tm, nil)}
//
// # Notes
//
//   - GrantStrategy completions run on whatever goroutine the HTTP client
//     delivers the response on; configure the strategy's Client explicitly
//     when that matters.
//   - A caller abandoning its context stops only its own wait; the shared
//     refresh runs to completion and its result is still stored.
//   - TokenManager is safe for concurrent use.
package oauth2client
