package oauth2client

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Logger is an interface for optional logging in TokenManager.
// Implementations can log token refresh events if desired.
type Logger interface {
	Printf(format string, args ...any)
}

// TokenManager manages the lifecycle of one token slot: it consults the
// token store before every use, drives its grant strategy when the cached
// token is absent or expired, and coalesces concurrent refreshes so a
// fingerprint never has more than one grant request in flight.
// It is safe for concurrent access.
type TokenManager struct {
	config        *ClientConfig
	authorization Authorization
	strategy      GrantStrategy
	store         TokenStore
	hooks         *HookRegistry
	group         singleflight.Group
	ctx           context.Context // fallback context for GetToken
	expiryLeeway  time.Duration
	logger        Logger // optional logger
}

// Option is a functional option for configuring TokenManager.
type Option func(*TokenManager)

// WithLogger sets a custom logger for token refresh events.
// If not set, no logging will occur.
func WithLogger(logger Logger) Option {
	return func(tm *TokenManager) {
		tm.logger = logger
	}
}

// WithLoggingEnabled enables logging using the default Go log package.
// This is a convenience option that sets the logger to log.Default().
func WithLoggingEnabled() Option {
	return func(tm *TokenManager) {
		tm.logger = log.Default()
	}
}

// WithTokenStore replaces the default in-memory token store. Share one store
// between managers to share token slots.
func WithTokenStore(store TokenStore) Option {
	return func(tm *TokenManager) {
		tm.store = store
	}
}

// WithHookRegistry attaches a shared registry of pre/post fetch hooks.
func WithHookRegistry(hooks *HookRegistry) Option {
	return func(tm *TokenManager) {
		tm.hooks = hooks
	}
}

// WithExpiryLeeway overrides how long before expiry a token is considered
// stale. Default is one minute.
func WithExpiryLeeway(leeway time.Duration) Option {
	return func(tm *TokenManager) {
		tm.expiryLeeway = leeway
	}
}

// NewTokenManager creates a token manager for one (configuration,
// authorization) fingerprint.
//
// Parameters:
//   - ctx: Context for token requests (used as fallback for GetToken)
//   - config: OAuth2 client configuration, shared with the strategy
//   - authorization: level the managed token is scoped to
//   - strategy: grant strategy used when no valid token is cached
//   - opts: Optional configuration options
func NewTokenManager(ctx context.Context, config *ClientConfig, authorization Authorization, strategy GrantStrategy, opts ...Option) *TokenManager {
	// Keep token requests independent from caller cancellations while
	// preserving values. Used as a fallback for GetToken().
	if ctx == nil {
		ctx = context.Background()
	} else {
		ctx = context.WithoutCancel(ctx)
	}

	tm := &TokenManager{
		config:        config,
		authorization: authorization,
		strategy:      strategy,
		store:         NewMemoryTokenStore(),
		ctx:           ctx,
		expiryLeeway:  time.Minute, // refresh a bit before expiry to avoid near-expiry races
	}

	for _, opt := range opts {
		opt(tm)
	}

	return tm
}

// Config returns the client configuration this manager serves.
func (tm *TokenManager) Config() *ClientConfig { return tm.config }

// Authorization returns the authorization level this manager serves.
func (tm *TokenManager) Authorization() Authorization { return tm.authorization }

// TokenStore returns the store backing this manager.
func (tm *TokenManager) TokenStore() TokenStore { return tm.store }

// GetTokenWithContext returns a valid token, fetching one through the grant
// strategy if the store holds none. Concurrent callers needing the same
// fingerprint share a single in-flight grant request and its result.
//
// The context governs only this caller's wait: abandoning it does not cancel
// an in-flight shared refresh, whose result is still stored.
func (tm *TokenManager) GetTokenWithContext(ctx context.Context) (Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Fast path: a valid cached token needs no coordination.
	if token, ok := tm.cachedToken(); ok {
		return token, nil
	}

	return tm.fetch(ctx, "", func(callCtx context.Context) (Token, error) {
		return tm.strategy.IssueToken(callCtx)
	})
}

// GetToken returns a valid token using the manager's fallback context.
//
// Deprecated: Use GetTokenWithContext instead to properly handle context
// cancellation and deadlines.
func (tm *TokenManager) GetToken() (Token, error) {
	return tm.GetTokenWithContext(tm.ctx)
}

// InvalidateToken drops the cached token so the next fetch hits the grant
// endpoint.
func (tm *TokenManager) InvalidateToken() {
	tm.store.Invalidate(tm.config, tm.authorization)
}

// ExpireToken rewrites the stored token as already expired, forcing the next
// fetch to refresh while keeping the refresh token available. Returns the
// token that was expired, if one was stored.
func (tm *TokenManager) ExpireToken() (Token, bool) {
	token, ok := tm.store.Token(tm.config, tm.authorization)
	if !ok {
		return Token{}, false
	}

	token.Expiry = time.Now().Add(-time.Second)
	tm.store.Store(token, tm.config, tm.authorization)
	return token, true
}

// RefreshAfterUnauthorized handles a server-side token rejection: it drops
// the rejected token and spends its refresh token for a new one, still under
// the per-fingerprint single-flight guarantee. Callers that raced on the
// same rejection observe the first refresh's outcome instead of spending the
// refresh token twice.
//
// Without a refresh token it fails fast with a client failure.
func (tm *TokenManager) RefreshAfterUnauthorized(ctx context.Context, stale Token) (Token, error) {
	if stale.RefreshToken == "" {
		return Token{}, clientErr("refresh", "token rejected and no refresh token available", nil, nil, nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	grant := &RefreshTokenGrant{
		Config:       tm.config,
		Client:       tm.grantClient(),
		RefreshToken: stale.RefreshToken,
	}

	return tm.fetch(ctx, stale.AccessToken, grant.IssueToken)
}

// fetch coalesces refresh attempts per fingerprint. staleAccess names an
// access token known to be rejected; a cached token is only reused when it
// differs from it.
func (tm *TokenManager) fetch(ctx context.Context, staleAccess string, issue func(context.Context) (Token, error)) (Token, error) {
	key := string(tm.config.Fingerprint(tm.authorization))

	ch := tm.group.DoChan(key, func() (any, error) {
		// Double-check inside the flight: another caller may have
		// refreshed while this one waited for the slot.
		if token, ok := tm.cachedToken(); ok && token.AccessToken != staleAccess {
			return token, nil
		}

		if staleAccess != "" {
			tm.store.Invalidate(tm.config, tm.authorization)
		}

		// The shared refresh outlives any individual waiter.
		callCtx := context.WithoutCancel(ctx)

		tm.hooks.notifyPre(tm.logger, tm.config, tm.authorization)
		token, err := issue(callCtx)
		tm.hooks.notifyPost(tm.logger, tm.config, tm.authorization, token, err)

		if err != nil {
			return Token{}, err
		}

		tm.store.Store(token, tm.config, tm.authorization)

		if tm.logger != nil {
			tm.logger.Printf("oauth2client: obtained new access token for %s (expires: %s)",
				tm.authorization, expiryLabel(token.Expiry))
		}

		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	case <-ctx.Done():
		// Abandon the wait only; the flight completes and stores its result.
		return Token{}, ctx.Err()
	}
}

// cachedToken returns the stored token when it is still usable within the
// expiry leeway.
func (tm *TokenManager) cachedToken() (Token, bool) {
	token, ok := tm.store.Token(tm.config, tm.authorization)
	if !ok || !token.ValidWithin(tm.expiryLeeway) {
		return Token{}, false
	}
	return token, true
}

// grantClient reuses the strategy's HTTP client for refresh grants so both
// paths share one transport.
func (tm *TokenManager) grantClient() *http.Client {
	if p, ok := tm.strategy.(httpClientProvider); ok {
		return p.httpClient()
	}
	return nil
}

func expiryLabel(expiry time.Time) string {
	if expiry.IsZero() {
		return "never"
	}
	return expiry.Format(time.RFC3339)
}

// TokenSource adapts the manager into a golang.org/x/oauth2 TokenSource so
// existing x/oauth2 consumers can be pointed at this lifecycle.
func (tm *TokenManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, tm: tm}
}

type tokenSource struct {
	ctx context.Context
	tm  *TokenManager
}

// Token implements oauth2.TokenSource.
func (s *tokenSource) Token() (*oauth2.Token, error) {
	token, err := s.tm.GetTokenWithContext(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.Kind.String(),
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that
// automatically adds Bearer tokens to request metadata.
//
// If the token fetch fails, the RPC call is aborted with an error. The
// interceptor respects the RPC context's cancellation and deadline.
func (tm *TokenManager) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		token, err := tm.GetTokenWithContext(ctx)
		if err != nil {
			return fmt.Errorf("oauth2client: failed to get token: %w", err)
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token.AccessToken)

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that
// automatically adds Bearer tokens to request metadata.
//
// If the token fetch fails, stream creation is aborted with an error.
func (tm *TokenManager) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		token, err := tm.GetTokenWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("oauth2client: failed to get token: %w", err)
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token.AccessToken)

		return streamer(ctx, desc, cc, method, opts...)
	}
}
