package migrate

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/AmmannChristian/go-oauthflow/oauth2client"
	"github.com/AmmannChristian/go-oauthflow/testutil"
	"golang.org/x/oauth2"
)

const refreshedTokenJSON = `{
	"access_token": "refreshed-token",
	"token_type": "Bearer",
	"expires_in": 3600
}`

type probeRecord struct {
	method string
	url    string
	auth   string
}

func recordingBase(records *[]probeRecord) testutil.RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		*records = append(*records, probeRecord{
			method: req.Method,
			url:    req.URL.String(),
			auth:   req.Header.Get("Authorization"),
		})
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("")),
			Request:    req,
		}, nil
	}
}

func migratorConfig(endpoint *testutil.MockTokenEndpoint) *oauth2client.ClientConfig {
	return &oauth2client.ClientConfig{
		ClientID:     "legacy-client",
		ClientSecret: "legacy-secret",
		Environment: oauth2client.ServerEnvironment{
			TokenGrantURL: endpoint.URL,
		},
	}
}

func newMigratorTokenManager(tb testing.TB, endpoint *testutil.MockTokenEndpoint, cfg *oauth2client.ClientConfig, opts ...oauth2client.Option) *oauth2client.TokenManager {
	tb.Helper()

	return oauth2client.NewTokenManager(
		context.Background(),
		cfg,
		oauth2client.AuthorizationClient,
		&oauth2client.ClientCredentialsGrant{Config: cfg, Client: endpoint.Client()},
		opts...,
	)
}

func seedToken(tb testing.TB, tm *oauth2client.TokenManager) oauth2client.Token {
	tb.Helper()

	token, err := tm.GetTokenWithContext(context.Background())
	if err != nil {
		tb.Fatalf("seeding token failed: %v", err)
	}
	return token
}

func TestNewMigrator_NilRegistryGetsFreshOne(t *testing.T) {
	m := NewMigrator(nil)

	if m.Hooks() == nil {
		t.Fatal("expected a hook registry to be created")
	}
}

func TestNewMigrator_KeepsProvidedRegistry(t *testing.T) {
	hooks := oauth2client.NewHookRegistry()
	m := NewMigrator(hooks)

	if m.Hooks() != hooks {
		t.Fatal("expected the provided registry to be used")
	}
}

func TestMigrator_RefreshBearerToken(t *testing.T) {
	endpoint := testutil.NewMockTokenEndpoint(t, nil)
	defer endpoint.Close()

	cfg := migratorConfig(endpoint)
	cfg.Environment.ProbeURL = "https://api.example.com/health"
	tm := newMigratorTokenManager(t, endpoint, cfg)
	seeded := seedToken(t, tm)

	endpoint.SetHandler(testutil.StaticJSONResponse(refreshedTokenJSON))

	var probes []probeRecord
	m := NewMigrator(nil)
	refreshed, err := m.RefreshBearerToken(context.Background(), tm, recordingBase(&probes))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if refreshed.AccessToken == seeded.AccessToken {
		t.Error("forced refresh must replace the stored access token")
	}
	if refreshed.AccessToken != "refreshed-token" {
		t.Errorf("unexpected access token: %s", refreshed.AccessToken)
	}
	if !refreshed.Valid() {
		t.Error("refreshed token should be valid")
	}

	stored, ok := tm.TokenStore().Token(tm.Config(), tm.Authorization())
	if !ok || stored.AccessToken != "refreshed-token" {
		t.Error("store should hold the refreshed token")
	}

	if len(probes) != 1 {
		t.Fatalf("expected a single probe request, got %d", len(probes))
	}
	if probes[0].method != http.MethodGet || probes[0].url != "https://api.example.com/health" {
		t.Errorf("expected GET against the probe URL, got %s %s", probes[0].method, probes[0].url)
	}
	if probes[0].auth != "Bearer refreshed-token" {
		t.Errorf("probe should carry the refreshed token, got: %s", probes[0].auth)
	}
}

func TestMigrator_RefreshBearerToken_HeadFallback(t *testing.T) {
	endpoint := testutil.NewMockTokenEndpoint(t, nil)
	defer endpoint.Close()

	cfg := migratorConfig(endpoint)
	tm := newMigratorTokenManager(t, endpoint, cfg)
	seedToken(t, tm)

	endpoint.SetHandler(testutil.StaticJSONResponse(refreshedTokenJSON))

	var probes []probeRecord
	m := NewMigrator(nil)
	if _, err := m.RefreshBearerToken(context.Background(), tm, recordingBase(&probes)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(probes) != 1 {
		t.Fatalf("expected a single probe request, got %d", len(probes))
	}
	if probes[0].method != http.MethodHead || probes[0].url != endpoint.URL {
		t.Errorf("expected HEAD against the token grant URL, got %s %s", probes[0].method, probes[0].url)
	}
}

func TestMigrator_RefreshBearerToken_NoStoredToken(t *testing.T) {
	endpoint := testutil.NewMockTokenEndpoint(t, nil)
	defer endpoint.Close()

	tm := newMigratorTokenManager(t, endpoint, migratorConfig(endpoint))

	m := NewMigrator(nil)
	_, err := m.RefreshBearerToken(context.Background(), tm, nil)
	if err == nil {
		t.Fatal("expected error without a stored token")
	}
	if !oauth2client.IsInternalFailure(err) {
		t.Errorf("expected internal failure, got: %v", err)
	}
}

func TestMigrator_RefreshBearerToken_NonBearerToken(t *testing.T) {
	endpoint := testutil.NewMockTokenEndpoint(t, nil)
	defer endpoint.Close()

	tm := newMigratorTokenManager(t, endpoint, migratorConfig(endpoint))
	tm.TokenStore().Store(oauth2client.Token{
		Kind:        oauth2client.TokenKindUnknown,
		AccessToken: "mystery-token",
	}, tm.Config(), tm.Authorization())

	m := NewMigrator(nil)
	_, err := m.RefreshBearerToken(context.Background(), tm, nil)
	if err == nil {
		t.Fatal("expected error for a non-bearer token")
	}
	if !oauth2client.IsInternalFailure(err) {
		t.Errorf("expected internal failure, got: %v", err)
	}
}

func TestMigrator_RefreshBearerToken_GrantFailure(t *testing.T) {
	endpoint := testutil.NewMockTokenEndpoint(t, nil)
	defer endpoint.Close()

	tm := newMigratorTokenManager(t, endpoint, migratorConfig(endpoint))
	seedToken(t, tm)

	endpoint.SetHandler(testutil.JSONResponse(http.StatusBadRequest, `{"error":"invalid_client"}`))

	var probes []probeRecord
	m := NewMigrator(nil)
	_, err := m.RefreshBearerToken(context.Background(), tm, recordingBase(&probes))
	if err == nil {
		t.Fatal("expected error when the grant fails")
	}
	if !oauth2client.IsClientFailure(err) {
		t.Errorf("expected client failure, got: %v", err)
	}
	if len(probes) != 0 {
		t.Errorf("failed grant must not reach the probe target, got %d probes", len(probes))
	}
}

func TestMigrator_ImportToken(t *testing.T) {
	endpoint := testutil.NewMockTokenEndpoint(t, nil)
	defer endpoint.Close()

	tm := newMigratorTokenManager(t, endpoint, migratorConfig(endpoint))

	m := NewMigrator(nil)
	imported, err := m.ImportToken(tm, &oauth2.Token{
		AccessToken:  "legacy-access",
		RefreshToken: "legacy-refresh",
		TokenType:    "bearer",
		Expiry:       time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if imported.Kind != oauth2client.TokenKindBearer {
		t.Errorf("imported token should be a bearer token, got %v", imported.Kind)
	}

	stored, ok := tm.TokenStore().Token(tm.Config(), tm.Authorization())
	if !ok {
		t.Fatal("imported token should be stored")
	}
	if stored.AccessToken != "legacy-access" || stored.RefreshToken != "legacy-refresh" {
		t.Errorf("unexpected stored token: %+v", stored)
	}

	// The manager serves the imported token without a grant round trip.
	token, err := tm.GetTokenWithContext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "legacy-access" {
		t.Errorf("expected the imported token to be served, got %s", token.AccessToken)
	}
	if endpoint.RequestCount() != 0 {
		t.Errorf("expected no grant requests, got %d", endpoint.RequestCount())
	}
}

func TestMigrator_ImportToken_Invalid(t *testing.T) {
	endpoint := testutil.NewMockTokenEndpoint(t, nil)
	defer endpoint.Close()

	tm := newMigratorTokenManager(t, endpoint, migratorConfig(endpoint))
	m := NewMigrator(nil)

	tests := []struct {
		name   string
		legacy *oauth2.Token
	}{
		{name: "nil token"},
		{
			name:   "missing access token",
			legacy: &oauth2.Token{TokenType: "bearer"},
		},
		{
			name:   "non-bearer token type",
			legacy: &oauth2.Token{AccessToken: "legacy-access", TokenType: "mac"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ImportToken(tm, tt.legacy)
			if err == nil {
				t.Fatal("expected error")
			}
			if !oauth2client.IsInternalFailure(err) {
				t.Errorf("expected internal failure, got: %v", err)
			}
		})
	}
}

func TestMigrator_HooksFireAroundManagedRefreshes(t *testing.T) {
	endpoint := testutil.NewMockTokenEndpoint(t, nil)
	defer endpoint.Close()

	m := NewMigrator(nil)

	var preCalls, postCalls int
	var postToken oauth2client.Token
	m.RegisterPreFetchHook(func(config *oauth2client.ClientConfig, authorization oauth2client.Authorization) {
		preCalls++
	})
	m.RegisterPostFetchHook(func(config *oauth2client.ClientConfig, authorization oauth2client.Authorization, token oauth2client.Token, err error) {
		postCalls++
		postToken = token
	})

	cfg := migratorConfig(endpoint)
	tm := newMigratorTokenManager(t, endpoint, cfg, oauth2client.WithHookRegistry(m.Hooks()))

	if _, err := tm.GetTokenWithContext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if preCalls != 1 || postCalls != 1 {
		t.Fatalf("expected hooks to fire once, got pre=%d post=%d", preCalls, postCalls)
	}
	if postToken.AccessToken != "mock-access-token" {
		t.Errorf("post-fetch hook should see the issued token, got %s", postToken.AccessToken)
	}
}
