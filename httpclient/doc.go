// Package httpclient provides a fluent builder for HTTP clients with
// automatic OAuth2 bearer-token injection and TLS/mTLS support.
//
// OAuth2Transport is the request pipeline middleware: before each request it
// obtains a valid token from the token manager (fetching or refreshing
// through the manager's grant strategy when needed) and attaches it as an
// Authorization header. When a response comes back 401 and the token carries
// a refresh token, the transport refreshes exactly once and retries the
// original request once with the new token; without a refresh token the 401
// is returned unchanged.
//
// # Features
//
//   - Fluent builder with timeout, redirect policy and custom base transport
//   - OAuth2 integration via a shared oauth2client.TokenManager
//   - Single refresh-and-retry on authorization failure, no retry loops
//   - Secure-by-default TLS; optional custom CA and mTLS
//
// # Quick Start
//
//	cfg := &oauth2client.ClientConfig{
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	    Environment: oauth2client.ServerEnvironment{
//	        TokenGrantURL: "https://auth.example.com/oauth/v2/token",
//	    },
//	}
//
//	client, err := httpclient.NewBuilder().
//	    WithClientCredentials(ctx, cfg).
//	    WithTimeout(10 * time.Second).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Get("https://api.example.com/resource")
package httpclient
