package oauth2client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Grant type constants sent as the grant_type form field.
const (
	grantTypeClientCredentials = "client_credentials"
	grantTypePassword          = "password"
	grantTypeAuthorizationCode = "authorization_code"
	grantTypeRefreshToken      = "refresh_token"
)

// maxResponseBody bounds how much of a token response is read and retained
// in client-failure errors.
const maxResponseBody = 1 << 20

// GrantStrategy builds a token grant request and turns its response into a
// Token. Strategies are stateless apart from their configuration and may be
// called from any number of goroutines.
//
// IssueToken completes on whatever goroutine the HTTP client delivers the
// response on; callers must not assume a particular execution context.
type GrantStrategy interface {
	// GrantType returns the grant_type constant of the strategy.
	GrantType() string

	// TokenRequest builds the form-encoded POST to the token endpoint.
	// It fails with a configuration error when the configuration cannot
	// produce a well-formed request.
	TokenRequest(ctx context.Context) (*http.Request, error)

	// IssueToken submits the token request and parses the response.
	// A non-2xx response or malformed body yields a client failure.
	IssueToken(ctx context.Context) (Token, error)
}

// httpClientProvider lets the token manager reuse a strategy's HTTP client
// for refresh-token grants.
type httpClientProvider interface {
	httpClient() *http.Client
}

// ClientCredentialsGrant issues tokens via the client_credentials flow.
type ClientCredentialsGrant struct {
	Config *ClientConfig

	// Client is the HTTP client used for the token request. Nil means
	// http.DefaultClient.
	Client *http.Client
}

// GrantType implements GrantStrategy.
func (g *ClientCredentialsGrant) GrantType() string { return grantTypeClientCredentials }

// TokenRequest implements GrantStrategy.
func (g *ClientCredentialsGrant) TokenRequest(ctx context.Context) (*http.Request, error) {
	return grantRequest(ctx, g.Config, g.GrantType(), nil)
}

// IssueToken implements GrantStrategy.
func (g *ClientCredentialsGrant) IssueToken(ctx context.Context) (Token, error) {
	return issueToken(ctx, g.Client, g)
}

func (g *ClientCredentialsGrant) httpClient() *http.Client { return g.Client }

// PasswordGrant issues tokens via the resource-owner password flow using the
// configuration's guest credentials.
type PasswordGrant struct {
	Config *ClientConfig
	Client *http.Client
}

// GrantType implements GrantStrategy.
func (g *PasswordGrant) GrantType() string { return grantTypePassword }

// TokenRequest implements GrantStrategy.
func (g *PasswordGrant) TokenRequest(ctx context.Context) (*http.Request, error) {
	if g.Config == nil || g.Config.GuestUsername == "" || g.Config.GuestPassword == "" {
		return nil, configErr("token_request", "password grant requires guest credentials")
	}
	return grantRequest(ctx, g.Config, g.GrantType(), url.Values{
		"username": {g.Config.GuestUsername},
		"password": {g.Config.GuestPassword},
	})
}

// IssueToken implements GrantStrategy.
func (g *PasswordGrant) IssueToken(ctx context.Context) (Token, error) {
	return issueToken(ctx, g.Client, g)
}

func (g *PasswordGrant) httpClient() *http.Client { return g.Client }

// AuthorizationCodeGrant exchanges an authorization code for a token. The
// code itself is obtained outside this module.
type AuthorizationCodeGrant struct {
	Config *ClientConfig
	Client *http.Client

	// Code is the authorization code to exchange. Single-use.
	Code string

	// RedirectURI must match the one used in the authorization request.
	RedirectURI string
}

// GrantType implements GrantStrategy.
func (g *AuthorizationCodeGrant) GrantType() string { return grantTypeAuthorizationCode }

// TokenRequest implements GrantStrategy.
func (g *AuthorizationCodeGrant) TokenRequest(ctx context.Context) (*http.Request, error) {
	if g.Code == "" {
		return nil, configErr("token_request", "authorization-code grant requires a code")
	}
	fields := url.Values{"code": {g.Code}}
	if g.RedirectURI != "" {
		fields.Set("redirect_uri", g.RedirectURI)
	}
	return grantRequest(ctx, g.Config, g.GrantType(), fields)
}

// IssueToken implements GrantStrategy.
func (g *AuthorizationCodeGrant) IssueToken(ctx context.Context) (Token, error) {
	return issueToken(ctx, g.Client, g)
}

func (g *AuthorizationCodeGrant) httpClient() *http.Client { return g.Client }

// RefreshTokenGrant exchanges a refresh token for a new bearer token.
type RefreshTokenGrant struct {
	Config *ClientConfig
	Client *http.Client

	// RefreshToken is the credential being spent.
	RefreshToken string
}

// GrantType implements GrantStrategy.
func (g *RefreshTokenGrant) GrantType() string { return grantTypeRefreshToken }

// TokenRequest implements GrantStrategy.
func (g *RefreshTokenGrant) TokenRequest(ctx context.Context) (*http.Request, error) {
	if g.RefreshToken == "" {
		return nil, configErr("token_request", "refresh grant requires a refresh token")
	}
	return grantRequest(ctx, g.Config, g.GrantType(), url.Values{
		"refresh_token": {g.RefreshToken},
	})
}

// IssueToken implements GrantStrategy.
func (g *RefreshTokenGrant) IssueToken(ctx context.Context) (Token, error) {
	return issueToken(ctx, g.Client, g)
}

func (g *RefreshTokenGrant) httpClient() *http.Client { return g.Client }

// grantRequest builds the form-encoded POST shared by all strategies.
// Caller-supplied ExtraParams are merged first so protocol fields always win.
func grantRequest(ctx context.Context, config *ClientConfig, grantType string, fields url.Values) (*http.Request, error) {
	if config == nil {
		return nil, configErr("token_request", "client configuration is required")
	}
	if config.Environment.TokenGrantURL == "" {
		return nil, configErr("token_request", "token grant URL is required")
	}

	form := url.Values{}
	for k, v := range config.ExtraParams {
		form.Set(k, v)
	}
	if config.Scopes != "" {
		form.Set("scope", strings.Join(strings.Fields(config.Scopes), " "))
	}
	for k, v := range fields {
		form[k] = v
	}
	form.Set("grant_type", grantType)

	// Public clients identify themselves in the body; confidential clients
	// use the Basic Authorization header below.
	if config.ClientSecret == "" && config.ClientID != "" {
		form.Set("client_id", config.ClientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.Environment.TokenGrantURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, configErr("token_request", "build request: "+err.Error())
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if config.ClientSecret != "" {
		req.SetBasicAuth(config.ClientID, config.ClientSecret)
	}

	return req, nil
}

// issueToken submits the strategy's request and parses the response body.
func issueToken(ctx context.Context, client *http.Client, strategy GrantStrategy) (Token, error) {
	req, err := strategy.TokenRequest(ctx)
	if err != nil {
		return Token{}, err
	}

	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Token{}, clientErr("issue_token", "token request failed", nil, nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Token{}, clientErr("issue_token", "read response", resp, nil, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Token{}, clientErr("issue_token", "grant endpoint rejected the request", resp, body, nil)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Token{}, clientErr("issue_token", "malformed token response", resp, body, err)
	}
	if tr.AccessToken == "" {
		return Token{}, clientErr("issue_token", "token response missing access_token", resp, body, nil)
	}

	return tr.token(time.Now()), nil
}
