package figma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-flowsteps/core"
)

func TestProvider_AuthorizeURL(t *testing.T) {
	provider, err := New(Config{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	authURL, err := provider.AuthorizeURL(core.AuthorizeURLRequest{
		ClientID:    "client-123",
		RedirectURI: "https://app.example/callback",
		State:       "state-1",
	})
	if err != nil {
		t.Fatalf("authorize url: %v", err)
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	if parsed.Host != "www.figma.com" || parsed.Path != "/oauth" {
		t.Fatalf("unexpected auth endpoint: %s", authURL)
	}
	query := parsed.Query()
	if query.Get("client_id") != "client-123" {
		t.Fatalf("expected client_id query value, got %q", query.Get("client_id"))
	}
	if query.Get("redirect_uri") != "https://app.example/callback" {
		t.Fatalf("expected redirect_uri query value")
	}
	if query.Get("scope") != DefaultScope {
		t.Fatalf("expected default scope, got %q", query.Get("scope"))
	}
	if query.Get("state") != "state-1" {
		t.Fatalf("expected state query value")
	}
	if query.Get("response_type") != "code" {
		t.Fatalf("expected response_type=code")
	}
}

func TestProvider_AuthorizeURLRequiresClientID(t *testing.T) {
	provider, err := New(Config{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := provider.AuthorizeURL(core.AuthorizeURLRequest{State: "state-1"}); err == nil {
		t.Fatalf("expected error without client id")
	}
	if _, err := provider.AuthorizeURL(core.AuthorizeURLRequest{ClientID: "client-123"}); err == nil {
		t.Fatalf("expected error without state")
	}
}

func TestProvider_Exchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		clientID, clientSecret, ok := r.BasicAuth()
		if !ok || clientID != "client-123" || clientSecret != "secret-456" {
			t.Fatalf("expected basic auth credentials, got %q/%q", clientID, clientSecret)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Fatalf("expected authorization_code grant, got %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "code-789" {
			t.Fatalf("expected code form value")
		}
		if r.PostForm.Get("redirect_uri") != "https://app.example/callback" {
			t.Fatalf("expected redirect_uri form value")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-token",
			"refresh_token": "refresh-token",
			"expires_in":    3600,
			"user_id":       8675309,
		})
	}))
	defer server.Close()

	provider, err := New(Config{TokenURL: server.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	grant, err := provider.Exchange(context.Background(), core.ExchangeRequest{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		RedirectURI:  "https://app.example/callback",
		Code:         "code-789",
	})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if grant.AccessToken != "access-token" {
		t.Fatalf("expected access token, got %q", grant.AccessToken)
	}
	if grant.RefreshToken != "refresh-token" {
		t.Fatalf("expected refresh token, got %q", grant.RefreshToken)
	}
	if grant.ExpiresIn != 3600 {
		t.Fatalf("expected expires_in 3600, got %d", grant.ExpiresIn)
	}
	if grant.UserID != "8675309" {
		t.Fatalf("expected numeric user id as string, got %q", grant.UserID)
	}
	if grant.TokenType != "Bearer" {
		t.Fatalf("expected Bearer default token type, got %q", grant.TokenType)
	}
}

func TestProvider_ExchangeRejectedByEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   "invalid_grant",
			"message": "Invalid authorization code",
		})
	}))
	defer server.Close()

	provider, err := New(Config{TokenURL: server.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	_, err = provider.Exchange(context.Background(), core.ExchangeRequest{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		Code:         "expired-code",
	})
	if err == nil {
		t.Fatalf("expected exchange error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if rich.TextCode != core.FlowErrorUpstreamAuth {
		t.Fatalf("expected upstream auth text code, got %q", rich.TextCode)
	}
	if rich.Metadata["upstream_status"] != http.StatusBadRequest {
		t.Fatalf("expected upstream_status metadata, got %v", rich.Metadata["upstream_status"])
	}
}

func TestProvider_ExchangeRequiresCredentials(t *testing.T) {
	provider, err := New(Config{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, err = provider.Exchange(context.Background(), core.ExchangeRequest{Code: "code-789"})
	if err == nil {
		t.Fatalf("expected error without client credentials")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.FlowErrorConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestProvider_RefreshGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Fatalf("expected refresh_token grant, got %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("refresh_token") != "refresh-token" {
			t.Fatalf("expected refresh_token form value")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "rotated-access-token",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	provider, err := New(Config{TokenURL: server.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	grant, err := provider.RefreshGrant(context.Background(), core.RefreshGrantRequest{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		RefreshToken: "refresh-token",
	})
	if err != nil {
		t.Fatalf("refresh grant: %v", err)
	}
	if grant.AccessToken != "rotated-access-token" {
		t.Fatalf("expected rotated access token, got %q", grant.AccessToken)
	}
	if grant.RefreshToken != "" {
		t.Fatalf("expected empty refresh token when endpoint omits it, got %q", grant.RefreshToken)
	}
}

func TestProvider_RefreshGrantRequiresRefreshToken(t *testing.T) {
	provider, err := New(Config{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, err = provider.RefreshGrant(context.Background(), core.RefreshGrantRequest{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
	})
	if err == nil {
		t.Fatalf("expected error without refresh token")
	}
}

func TestProvider_TokenNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	provider, err := New(Config{TokenURL: server.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	_, err = provider.Exchange(context.Background(), core.ExchangeRequest{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		Code:         "code-789",
	})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.FlowErrorTransport {
		t.Fatalf("expected transport text code, got %v", err)
	}
}
