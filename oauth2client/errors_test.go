package oauth2client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestError_Matching(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusBadRequest}
	err := clientErr("issue_token", "rejected", resp, []byte(`{"error":"invalid_client"}`), nil)

	if !IsClientFailure(err) {
		t.Error("expected client failure match")
	}
	if IsInternalFailure(err) || IsConfigurationError(err) {
		t.Error("error must match exactly one kind")
	}

	// Matching survives wrapping.
	wrapped := fmt.Errorf("httpclient: request failed: %w", err)
	if !IsClientFailure(wrapped) {
		t.Error("expected client failure match through wrapping")
	}

	var oerr *Error
	if !errors.As(wrapped, &oerr) {
		t.Fatal("expected errors.As to find *Error")
	}
	if oerr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", oerr.StatusCode, http.StatusBadRequest)
	}
	if string(oerr.Body) != `{"error":"invalid_client"}` {
		t.Errorf("unexpected body: %s", oerr.Body)
	}
}

func TestError_Message(t *testing.T) {
	err := clientErr("issue_token", "grant endpoint rejected the request",
		&http.Response{StatusCode: http.StatusUnauthorized}, nil, nil)

	msg := err.Error()
	for _, want := range []string{"oauth2client", "issue_token", "client failure", "status 401"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should contain %q", msg, want)
		}
	}
}

func TestNewError(t *testing.T) {
	err := NewError(ErrorKindInternal, "forced_refresh", "no token to refresh")

	if !IsInternalFailure(err) {
		t.Error("expected internal failure")
	}
	if !strings.Contains(err.Error(), "internal failure") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrorKindInternal, "internal failure"},
		{ErrorKindClient, "client failure"},
		{ErrorKindConfiguration, "configuration error"},
		{ErrorKind(0), "unknown failure"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}
