package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type InitiateOAuthRequest struct {
	IntegrationID string
	ProviderID    string
	ClientID      string
	RedirectURI   string
}

type InitiateOAuthResponse struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

// InitiateOAuth builds the authorization redirect for an integration. No
// network call is made; the provider only renders its authorize URL.
func (s *Service) InitiateOAuth(ctx context.Context, req InitiateOAuthRequest) (response InitiateOAuthResponse, err error) {
	if s == nil {
		return InitiateOAuthResponse{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"provider_id":    req.ProviderID,
		"integration_id": req.IntegrationID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "initiate_oauth", err, fields)
	}()

	integrationID := strings.TrimSpace(req.IntegrationID)
	if integrationID == "" {
		err = s.mapError(ValidationError("integration id is required"))
		return InitiateOAuthResponse{}, err
	}

	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" && s.integrationStore != nil {
		integration, getErr := s.integrationStore.Get(ctx, integrationID)
		if getErr == nil {
			clientID = ParseFigmaConfig(integration.Config).ClientID
		}
	}
	if clientID == "" {
		err = s.mapError(ConfigError("client id is required to start authorization"))
		return InitiateOAuthResponse{}, err
	}

	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" {
		redirectURI = strings.TrimSpace(s.config.OAuth.RedirectURI)
	}

	provider, err := s.resolveProvider(req.ProviderID)
	if err != nil {
		return InitiateOAuthResponse{}, err
	}

	state, err := NewOAuthState(integrationID)
	if err != nil {
		err = s.mapError(err)
		return InitiateOAuthResponse{}, err
	}
	encodedState, err := EncodeOAuthState(state)
	if err != nil {
		err = s.mapError(err)
		return InitiateOAuthResponse{}, err
	}

	authURL, err := provider.AuthorizeURL(AuthorizeURLRequest{
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scope:       s.config.OAuth.Scope,
		State:       encodedState,
	})
	if err != nil {
		err = s.mapError(err)
		return InitiateOAuthResponse{}, err
	}

	if s.oauthStateStore != nil {
		saveErr := s.oauthStateStore.Save(ctx, OAuthStateRecord{
			State:         encodedState,
			IntegrationID: integrationID,
			ProviderID:    provider.ID(),
			RedirectURI:   redirectURI,
			CreatedAt:     time.Now().UTC(),
		})
		if saveErr != nil {
			err = s.mapError(saveErr)
			return InitiateOAuthResponse{}, err
		}
	}

	return InitiateOAuthResponse{AuthURL: authURL, State: encodedState}, nil
}

type CompleteOAuthRequest struct {
	ProviderID string
	Code       string
	State      string
}

type CompleteOAuthResult struct {
	IntegrationID string
	UserID        string
	ExpiresAt     *time.Time
}

// CompleteOAuth handles the authorization callback: decodes the state,
// exchanges the code, and persists the resulting tokens on the integration.
// Credential checks run before any network call so a misconfigured
// integration never reaches the token endpoint.
func (s *Service) CompleteOAuth(ctx context.Context, req CompleteOAuthRequest) (result CompleteOAuthResult, err error) {
	if s == nil {
		return CompleteOAuthResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"provider_id": req.ProviderID,
	}
	defer func() {
		if result.IntegrationID != "" {
			fields["integration_id"] = result.IntegrationID
		}
		s.observeOperation(ctx, startedAt, "complete_oauth", err, fields)
	}()

	code := strings.TrimSpace(req.Code)
	if code == "" {
		err = s.mapError(ValidationError("authorization code is required"))
		return CompleteOAuthResult{}, err
	}

	state, err := DecodeOAuthState(req.State)
	if err != nil {
		err = s.mapError(err)
		return CompleteOAuthResult{}, err
	}
	if s.oauthStateStore != nil {
		if _, consumeErr := s.oauthStateStore.Consume(ctx, strings.TrimSpace(req.State)); consumeErr != nil {
			err = s.mapError(consumeErr)
			return CompleteOAuthResult{}, err
		}
	}

	if s.integrationStore == nil {
		err = s.mapError(fmt.Errorf("core: integration store is not configured"))
		return CompleteOAuthResult{}, err
	}
	integration, err := s.integrationStore.Get(ctx, state.IntegrationID)
	if err != nil {
		err = s.mapError(err)
		return CompleteOAuthResult{}, err
	}

	cfg := ParseFigmaConfig(integration.Config)
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		err = s.mapError(ConfigError("integration is missing client credentials"))
		return CompleteOAuthResult{}, err
	}

	provider, err := s.resolveProvider(req.ProviderID)
	if err != nil {
		return CompleteOAuthResult{}, err
	}

	grant, err := provider.Exchange(ctx, ExchangeRequest{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  strings.TrimSpace(s.config.OAuth.RedirectURI),
		Code:         code,
	})
	if err != nil {
		err = s.mapError(err)
		return CompleteOAuthResult{}, err
	}

	updated := cfg.ApplyGrant(grant, time.Now().UTC())
	if _, saveErr := s.integrationStore.SaveConfig(ctx, integration.ID, updated.ToMap()); saveErr != nil {
		err = s.mapError(saveErr)
		return CompleteOAuthResult{}, err
	}

	return CompleteOAuthResult{
		IntegrationID: integration.ID,
		UserID:        updated.UserID,
		ExpiresAt:     updated.ExpiresAt,
	}, nil
}

type RefreshTokenRequest struct {
	IntegrationID string
	ProviderID    string
}

type RefreshTokenResult struct {
	IntegrationID string
	ExpiresAt     *time.Time
}

// RefreshToken exchanges the stored refresh token for a new access token and
// persists the rotated grant. Concurrent refreshes of the same integration
// are serialized through the integration locker.
func (s *Service) RefreshToken(ctx context.Context, req RefreshTokenRequest) (result RefreshTokenResult, err error) {
	if s == nil {
		return RefreshTokenResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"provider_id":    req.ProviderID,
		"integration_id": req.IntegrationID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh_token", err, fields)
	}()

	integrationID := strings.TrimSpace(req.IntegrationID)
	if integrationID == "" {
		err = s.mapError(ValidationError("integration id is required"))
		return RefreshTokenResult{}, err
	}

	if s.integrationLocker != nil && !isRefreshLockHeld(ctx) {
		lockHandle, lockErr := s.integrationLocker.Acquire(ctx, integrationID, s.config.refreshLockTTL())
		if lockErr != nil {
			err = s.mapError(lockErr)
			return RefreshTokenResult{}, err
		}
		defer func() {
			_ = lockHandle.Unlock(ctx)
		}()
		ctx = withRefreshLockHeld(ctx)
	}

	if s.integrationStore == nil {
		err = s.mapError(fmt.Errorf("core: integration store is not configured"))
		return RefreshTokenResult{}, err
	}
	integration, err := s.integrationStore.Get(ctx, integrationID)
	if err != nil {
		err = s.mapError(err)
		return RefreshTokenResult{}, err
	}

	cfg := ParseFigmaConfig(integration.Config)
	if cfg.RefreshToken == "" {
		err = s.mapError(ConfigError("integration has no refresh token"))
		return RefreshTokenResult{}, err
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		err = s.mapError(ConfigError("integration is missing client credentials"))
		return RefreshTokenResult{}, err
	}

	provider, err := s.resolveProvider(req.ProviderID)
	if err != nil {
		return RefreshTokenResult{}, err
	}

	grant, err := provider.RefreshGrant(ctx, RefreshGrantRequest{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RefreshToken: cfg.RefreshToken,
	})
	if err != nil {
		err = s.mapError(err)
		return RefreshTokenResult{}, err
	}

	updated := cfg.ApplyGrant(grant, time.Now().UTC())
	if _, saveErr := s.integrationStore.SaveConfig(ctx, integration.ID, updated.ToMap()); saveErr != nil {
		err = s.mapError(saveErr)
		return RefreshTokenResult{}, err
	}

	return RefreshTokenResult{
		IntegrationID: integration.ID,
		ExpiresAt:     updated.ExpiresAt,
	}, nil
}
