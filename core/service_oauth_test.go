package core

import (
	"context"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestInitiateOAuth_BuildsAuthorizeURLAndSavesState(t *testing.T) {
	ctx := context.Background()
	provider := &testProvider{}
	svc, _ := newTestService(t, provider)

	response, err := svc.InitiateOAuth(ctx, InitiateOAuthRequest{
		IntegrationID: "integration-1",
		ClientID:      "client-id",
		RedirectURI:   "https://app.example.com/oauth/callback",
	})
	if err != nil {
		t.Fatalf("InitiateOAuth: %v", err)
	}
	if response.AuthURL == "" {
		t.Fatalf("expected authorize url")
	}
	if !strings.Contains(response.AuthURL, "client_id=client-id") {
		t.Fatalf("expected client id in authorize url, got %q", response.AuthURL)
	}

	decoded, err := DecodeOAuthState(response.State)
	if err != nil {
		t.Fatalf("DecodeOAuthState: %v", err)
	}
	if decoded.IntegrationID != "integration-1" {
		t.Fatalf("expected state to carry integration id, got %q", decoded.IntegrationID)
	}
	if provider.authorizeCalls != 1 {
		t.Fatalf("expected one authorize call, got %d", provider.authorizeCalls)
	}
}

func TestInitiateOAuth_FallsBackToStoredClientID(t *testing.T) {
	ctx := context.Background()
	provider := &testProvider{}
	svc, stores := newTestService(t, provider)
	seedConnectedIntegration(stores, "integration-1")

	response, err := svc.InitiateOAuth(ctx, InitiateOAuthRequest{IntegrationID: "integration-1"})
	if err != nil {
		t.Fatalf("InitiateOAuth: %v", err)
	}
	if !strings.Contains(response.AuthURL, "client_id=client-id") {
		t.Fatalf("expected stored client id used, got %q", response.AuthURL)
	}
}

func TestInitiateOAuth_FailsWithoutClientID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &testProvider{})

	_, err := svc.InitiateOAuth(ctx, InitiateOAuthRequest{IntegrationID: "integration-1"})
	if err == nil {
		t.Fatalf("expected config error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != FlowErrorConfig {
		t.Fatalf("expected config text code, got %v", err)
	}
}

func TestCompleteOAuth_ExchangesCodeAndPersistsTokens(t *testing.T) {
	ctx := context.Background()
	provider := &testProvider{}
	svc, stores := newTestService(t, provider)

	stores.integrations.Seed(Integration{
		ID:   "integration-1",
		Type: "figma",
		Config: FigmaConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		}.ToMap(),
	})

	initiated, err := svc.InitiateOAuth(ctx, InitiateOAuthRequest{
		IntegrationID: "integration-1",
		ClientID:      "client-id",
	})
	if err != nil {
		t.Fatalf("InitiateOAuth: %v", err)
	}

	result, err := svc.CompleteOAuth(ctx, CompleteOAuthRequest{
		Code:  "auth-code",
		State: initiated.State,
	})
	if err != nil {
		t.Fatalf("CompleteOAuth: %v", err)
	}
	if result.IntegrationID != "integration-1" {
		t.Fatalf("expected integration id, got %q", result.IntegrationID)
	}
	if result.UserID != "user-1" {
		t.Fatalf("expected user id from grant, got %q", result.UserID)
	}
	if result.ExpiresAt == nil {
		t.Fatalf("expected expiry computed from expires_in")
	}

	integration, err := stores.integrations.Get(ctx, "integration-1")
	if err != nil {
		t.Fatalf("Get integration: %v", err)
	}
	cfg := ParseFigmaConfig(integration.Config)
	if cfg.AccessToken != "access-token" || cfg.RefreshToken != "refresh-token" {
		t.Fatalf("expected tokens persisted, got %+v", cfg)
	}
	if provider.exchangeCalls != 1 {
		t.Fatalf("expected one exchange call, got %d", provider.exchangeCalls)
	}
}

func TestCompleteOAuth_StateIsSingleUse(t *testing.T) {
	ctx := context.Background()
	provider := &testProvider{}
	svc, stores := newTestService(t, provider)
	seedConnectedIntegration(stores, "integration-1")

	initiated, err := svc.InitiateOAuth(ctx, InitiateOAuthRequest{IntegrationID: "integration-1"})
	if err != nil {
		t.Fatalf("InitiateOAuth: %v", err)
	}

	if _, err := svc.CompleteOAuth(ctx, CompleteOAuthRequest{Code: "code", State: initiated.State}); err != nil {
		t.Fatalf("first CompleteOAuth: %v", err)
	}
	if _, err := svc.CompleteOAuth(ctx, CompleteOAuthRequest{Code: "code", State: initiated.State}); err == nil {
		t.Fatalf("expected replayed state to be rejected")
	}
}

func TestCompleteOAuth_ChecksCredentialsBeforeExchange(t *testing.T) {
	ctx := context.Background()
	provider := &testProvider{
		exchangeFn: func(context.Context, ExchangeRequest) (TokenGrant, error) {
			t.Fatalf("exchange must not be called for a misconfigured integration")
			return TokenGrant{}, nil
		},
	}
	svc, stores := newTestService(t, provider)

	stores.integrations.Seed(Integration{
		ID:     "integration-1",
		Type:   "figma",
		Config: map[string]string{ConfigKeyClientID: "client-id"},
	})

	state, err := NewOAuthState("integration-1")
	if err != nil {
		t.Fatalf("NewOAuthState: %v", err)
	}
	encoded, err := EncodeOAuthState(state)
	if err != nil {
		t.Fatalf("EncodeOAuthState: %v", err)
	}
	if err := svc.Dependencies().OAuthStateStore.Save(ctx, OAuthStateRecord{
		State:         encoded,
		IntegrationID: "integration-1",
	}); err != nil {
		t.Fatalf("Save state: %v", err)
	}

	_, err = svc.CompleteOAuth(ctx, CompleteOAuthRequest{Code: "code", State: encoded})
	if err == nil {
		t.Fatalf("expected config error for missing client secret")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != FlowErrorConfig {
		t.Fatalf("expected config text code, got %v", err)
	}
}

func TestCompleteOAuth_RejectsMalformedState(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &testProvider{})

	_, err := svc.CompleteOAuth(ctx, CompleteOAuthRequest{Code: "code", State: "garbage"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != FlowErrorValidation {
		t.Fatalf("expected validation text code, got %v", err)
	}
}

func TestRefreshToken_RotatesGrantAndKeepsRefreshToken(t *testing.T) {
	ctx := context.Background()
	provider := &testProvider{}
	svc, stores := newTestService(t, provider)
	seedConnectedIntegration(stores, "integration-1")

	result, err := svc.RefreshToken(ctx, RefreshTokenRequest{IntegrationID: "integration-1"})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if result.ExpiresAt == nil {
		t.Fatalf("expected new expiry")
	}

	integration, err := stores.integrations.Get(ctx, "integration-1")
	if err != nil {
		t.Fatalf("Get integration: %v", err)
	}
	cfg := ParseFigmaConfig(integration.Config)
	if cfg.AccessToken != "rotated-access-token" {
		t.Fatalf("expected rotated access token, got %q", cfg.AccessToken)
	}
	if cfg.RefreshToken != "refresh-token" {
		t.Fatalf("expected original refresh token kept, got %q", cfg.RefreshToken)
	}
}

func TestRefreshToken_FailsWithoutRefreshToken(t *testing.T) {
	ctx := context.Background()
	svc, stores := newTestService(t, &testProvider{})

	stores.integrations.Seed(Integration{
		ID:   "integration-1",
		Type: "figma",
		Config: FigmaConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			AccessToken:  "access-token",
		}.ToMap(),
	})

	_, err := svc.RefreshToken(ctx, RefreshTokenRequest{IntegrationID: "integration-1"})
	if err == nil {
		t.Fatalf("expected config error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != FlowErrorConfig {
		t.Fatalf("expected config text code, got %v", err)
	}
}

func TestRefreshToken_SerializesConcurrentRefreshes(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryIntegrationLocker()
	provider := &testProvider{}
	svc, stores := newTestService(t, provider, WithIntegrationLocker(locker))
	seedConnectedIntegration(stores, "integration-1")

	handle, err := locker.Acquire(ctx, "integration-1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{IntegrationID: "integration-1"})
	if err == nil {
		t.Fatalf("expected refresh to fail while lock is held")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != FlowErrorRefreshLocked {
		t.Fatalf("expected refresh locked code, got %v", err)
	}

	if err := handle.Unlock(ctx); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := svc.RefreshToken(ctx, RefreshTokenRequest{IntegrationID: "integration-1"}); err != nil {
		t.Fatalf("RefreshToken after unlock: %v", err)
	}
}
