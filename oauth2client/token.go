package oauth2client

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind discriminates token variants so lifecycle logic can match
// exhaustively instead of downcasting.
type TokenKind int

const (
	// TokenKindUnknown marks a token whose type the grant endpoint reported
	// as something this module does not manage.
	TokenKindUnknown TokenKind = iota
	// TokenKindBearer marks a token presented as "Authorization: Bearer".
	TokenKindBearer
)

// String returns the wire name of the token kind.
func (k TokenKind) String() string {
	if k == TokenKindBearer {
		return "Bearer"
	}
	return "unknown"
}

// Token is an immutable bearer credential. A refreshed token is a new value
// replacing the old one in the store, never a mutation.
type Token struct {
	Kind         TokenKind
	AccessToken  string
	RefreshToken string

	// Expiry is the absolute expiration time. The zero value means the
	// server reported no expiry and the token never goes stale locally.
	Expiry time.Time
}

// Valid reports whether the token can be attached to a request right now.
func (t Token) Valid() bool { return t.ValidWithin(0) }

// ValidWithin reports whether the token remains valid for at least the given
// leeway. Managers use a leeway to refresh slightly before expiry and avoid
// near-expiry races.
func (t Token) ValidWithin(leeway time.Duration) bool {
	if t.Kind != TokenKindBearer || t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return time.Until(t.Expiry) > leeway
}

// tokenResponse is the JSON body of a successful token grant response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// token converts a grant response into a Token. When the server omits
// expires_in, the expiry is inferred from the access token's exp claim if it
// happens to be a JWT.
func (r *tokenResponse) token(now time.Time) Token {
	kind := TokenKindUnknown
	if r.TokenType == "" || strings.EqualFold(r.TokenType, "bearer") {
		kind = TokenKindBearer
	}

	var expiry time.Time
	if r.ExpiresIn > 0 {
		expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	} else {
		expiry = jwtExpiry(r.AccessToken)
	}

	return Token{
		Kind:         kind,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		Expiry:       expiry,
	}
}

// jwtExpiry extracts the exp claim from a JWT access token without verifying
// the signature. Returns the zero time for opaque tokens.
func jwtExpiry(accessToken string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
