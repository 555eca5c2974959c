package oauth2client

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Authorization is the level a token is scoped to. Together with the client
// configuration identity it forms the fingerprint that keys one token slot.
type Authorization int

const (
	// AuthorizationNone marks requests that carry no token.
	AuthorizationNone Authorization = iota
	// AuthorizationUser marks resource-owner-scoped tokens.
	AuthorizationUser
	// AuthorizationClient marks client-credentials-scoped tokens.
	AuthorizationClient
)

// String returns a stable name used in fingerprints and logs.
func (a Authorization) String() string {
	switch a {
	case AuthorizationUser:
		return "user"
	case AuthorizationClient:
		return "client"
	default:
		return "none"
	}
}

// ServerEnvironment holds the endpoints of one OAuth2 authorization server.
// Immutable once constructed.
type ServerEnvironment struct {
	// TokenGrantURL is the token endpoint every grant strategy POSTs to.
	TokenGrantURL string

	// AuthorizeURL is the optional authorization endpoint, used by
	// authorization-code flows driven outside this module.
	AuthorizeURL string

	// ProbeURL is an optional cheap authenticated endpoint. The migrate
	// package sends its no-op request here when set.
	ProbeURL string
}

// ClientConfig identifies one OAuth2 client. Immutable once constructed;
// share a single instance between strategies, managers and stores so they
// agree on the fingerprint.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	Environment  ServerEnvironment

	// Guest credentials for the resource-owner (password) grant.
	GuestUsername string
	GuestPassword string

	// Scopes is a space-separated scope list, e.g. "openid profile email".
	Scopes string

	// ExtraParams are caller-supplied form fields merged into every token
	// grant request. Protocol-required fields always win over entries here.
	ExtraParams map[string]string
}

// Fingerprint is the composite key of (client configuration identity,
// authorization level). It identifies exactly one token slot.
type Fingerprint string

// Fingerprint derives the token-slot key for this configuration at the
// given authorization level.
func (c *ClientConfig) Fingerprint(authorization Authorization) Fingerprint {
	return Fingerprint(c.ClientID + "\x1f" + c.Environment.TokenGrantURL + "\x1f" + authorization.String())
}

// envConfig maps the environment variables read by ConfigFromEnv.
type envConfig struct {
	ClientID      string `env:"OAUTH2_CLIENT_ID"`
	ClientSecret  string `env:"OAUTH2_CLIENT_SECRET"`
	TokenURL      string `env:"OAUTH2_TOKEN_URL"`
	AuthorizeURL  string `env:"OAUTH2_AUTHORIZE_URL"`
	ProbeURL      string `env:"OAUTH2_PROBE_URL"`
	Scopes        string `env:"OAUTH2_SCOPES"`
	GuestUsername string `env:"OAUTH2_GUEST_USERNAME"`
	GuestPassword string `env:"OAUTH2_GUEST_PASSWORD"`
}

// ConfigFromEnv builds a ClientConfig from OAUTH2_* environment variables,
// loading a .env file first when one is present. It is a convenience for
// application wiring; core logic always takes an explicit *ClientConfig.
func ConfigFromEnv() (*ClientConfig, error) {
	// Missing .env files are fine; the process environment still applies.
	_ = godotenv.Load()

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return nil, configErr("config_from_env", fmt.Sprintf("parse environment: %v", err))
	}

	if ec.ClientID == "" {
		return nil, configErr("config_from_env", "OAUTH2_CLIENT_ID is required")
	}
	if ec.TokenURL == "" {
		return nil, configErr("config_from_env", "OAUTH2_TOKEN_URL is required")
	}

	return &ClientConfig{
		ClientID:     ec.ClientID,
		ClientSecret: ec.ClientSecret,
		Environment: ServerEnvironment{
			TokenGrantURL: ec.TokenURL,
			AuthorizeURL:  ec.AuthorizeURL,
			ProbeURL:      ec.ProbeURL,
		},
		GuestUsername: ec.GuestUsername,
		GuestPassword: ec.GuestPassword,
		Scopes:        ec.Scopes,
	}, nil
}
