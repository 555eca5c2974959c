// Package grpcclient provides a fluent builder for secure gRPC client
// connections with optional OAuth2 authentication.
//
// It defaults to TLS 1.2+ using system roots to avoid accidental plaintext
// connections. Optional methods attach a shared token manager (or create one
// from a client-credentials configuration), custom CA or mTLS credentials,
// and extra dial options. Token refreshes triggered by the interceptors obey
// the manager's per-fingerprint single-flight guarantee, so a burst of RPCs
// on a cold connection produces one grant request, not many.
//
// # Quick Start
//
//	cfg := &oauth2client.ClientConfig{
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	    Scopes:       "openid profile",
//	    Environment: oauth2client.ServerEnvironment{
//	        TokenGrantURL: "https://auth.example.com/oauth/v2/token",
//	    },
//	}
//
//	conn, err := grpcclient.NewBuilder().
//	    WithAddress("server.example.com:9090").
//	    WithClientCredentials(cfg).
//	    WithTLS("/path/to/ca.crt", "", "", "server.example.com").
//	    Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	client := pb.NewYourServiceClient(conn)
//
// # TLS Behavior
//
// TLS is enabled by default with system CAs and TLS 1.2 minimum. WithTLS
// allows supplying a custom root CA and optional client cert/key for mTLS;
// both cert and key must be provided together.
package grpcclient
