package oauth2client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestToken_Valid(t *testing.T) {
	tests := []struct {
		name  string
		token Token
		want  bool
	}{
		{
			name:  "bearer without expiry",
			token: Token{Kind: TokenKindBearer, AccessToken: "abc"},
			want:  true,
		},
		{
			name:  "bearer with future expiry",
			token: Token{Kind: TokenKindBearer, AccessToken: "abc", Expiry: time.Now().Add(time.Hour)},
			want:  true,
		},
		{
			name:  "bearer with past expiry",
			token: Token{Kind: TokenKindBearer, AccessToken: "abc", Expiry: time.Now().Add(-time.Hour)},
			want:  false,
		},
		{
			name:  "empty access token",
			token: Token{Kind: TokenKindBearer},
			want:  false,
		},
		{
			name:  "unknown kind",
			token: Token{Kind: TokenKindUnknown, AccessToken: "abc"},
			want:  false,
		},
		{
			name:  "zero value",
			token: Token{},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToken_ValidWithin(t *testing.T) {
	token := Token{
		Kind:        TokenKindBearer,
		AccessToken: "abc",
		Expiry:      time.Now().Add(30 * time.Second),
	}

	if !token.ValidWithin(0) {
		t.Error("token should be valid with no leeway")
	}
	if token.ValidWithin(time.Minute) {
		t.Error("token should be stale within a one-minute leeway")
	}
}

func TestTokenResponse_Token(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		response tokenResponse
		wantKind TokenKind
	}{
		{
			name:     "bearer type",
			response: tokenResponse{AccessToken: "abc", TokenType: "Bearer", ExpiresIn: 3600},
			wantKind: TokenKindBearer,
		},
		{
			name:     "lowercase bearer",
			response: tokenResponse{AccessToken: "abc", TokenType: "bearer"},
			wantKind: TokenKindBearer,
		},
		{
			name:     "missing type defaults to bearer",
			response: tokenResponse{AccessToken: "abc"},
			wantKind: TokenKindBearer,
		},
		{
			name:     "unrecognized type",
			response: tokenResponse{AccessToken: "abc", TokenType: "mac"},
			wantKind: TokenKindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.response.token(now)
			if token.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", token.Kind, tt.wantKind)
			}
			if token.AccessToken != tt.response.AccessToken {
				t.Errorf("access token = %s, want %s", token.AccessToken, tt.response.AccessToken)
			}
		})
	}
}

func TestTokenResponse_ExpiresIn(t *testing.T) {
	now := time.Now()
	tr := tokenResponse{AccessToken: "abc", TokenType: "Bearer", ExpiresIn: 3600}

	token := tr.token(now)
	want := now.Add(time.Hour)
	if !token.Expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", token.Expiry, want)
	}
}

// fakeJWT builds an unsigned JWT carrying the given claims.
func fakeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()

	encode := func(v any) string {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal segment: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(raw)
	}

	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	return fmt.Sprintf("%s.%s.", encode(header), encode(claims))
}

func TestTokenResponse_JWTExpiryInference(t *testing.T) {
	now := time.Now()
	exp := now.Add(20 * time.Minute).Truncate(time.Second)

	access := fakeJWT(t, map[string]any{"sub": "svc", "exp": exp.Unix()})
	tr := tokenResponse{AccessToken: access, TokenType: "Bearer"}

	token := tr.token(now)
	if token.Expiry.IsZero() {
		t.Fatal("expected expiry inferred from the JWT exp claim")
	}
	if !token.Expiry.Equal(exp) {
		t.Errorf("expiry = %v, want %v", token.Expiry, exp)
	}
}

func TestTokenResponse_OpaqueTokenHasNoExpiry(t *testing.T) {
	tr := tokenResponse{AccessToken: "opaque-value", TokenType: "Bearer"}

	token := tr.token(time.Now())
	if !token.Expiry.IsZero() {
		t.Errorf("opaque token should have zero expiry, got %v", token.Expiry)
	}
	if !token.Valid() {
		t.Error("token without expiry must be treated as valid")
	}
}

func TestTokenResponse_ExpiresInWinsOverJWT(t *testing.T) {
	now := time.Now()
	access := fakeJWT(t, map[string]any{"exp": now.Add(5 * time.Minute).Unix()})
	tr := tokenResponse{AccessToken: access, TokenType: "Bearer", ExpiresIn: 3600}

	token := tr.token(now)
	if !token.Expiry.Equal(now.Add(time.Hour)) {
		t.Errorf("expires_in must win over the exp claim, got %v", token.Expiry)
	}
}

func TestTokenKind_String(t *testing.T) {
	if got := TokenKindBearer.String(); got != "Bearer" {
		t.Errorf("bearer kind = %s", got)
	}
	if got := TokenKindUnknown.String(); got != "unknown" {
		t.Errorf("unknown kind = %s", got)
	}
}
