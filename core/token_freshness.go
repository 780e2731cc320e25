package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTokenExpiringSoonWindow = 5 * time.Minute
	DefaultTokenRefreshLeadWindow  = 5 * time.Minute
)

// TokenState captures access/refresh lifecycle state derived from an
// integration's stored config.
type TokenState struct {
	ExpiresAt       *time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	IsExpired       bool
	IsExpiringSoon  bool
}

// EnsureTokenFreshRequest resolves and conditionally refreshes an
// integration's access token.
type EnsureTokenFreshRequest struct {
	IntegrationID      string
	RefreshLeadWindow  time.Duration
	ExpiringSoonWindow time.Duration
}

// EnsureTokenFreshResult returns resolved token state and refresh outcomes.
type EnsureTokenFreshResult struct {
	IntegrationID    string
	State            TokenState
	RefreshAttempted bool
	Refreshed        bool
}

// ResolveTokenState evaluates expiry flags for a stored token config.
func ResolveTokenState(now time.Time, cfg FigmaConfig, expiringSoonWindow time.Duration) TokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if expiringSoonWindow <= 0 {
		expiringSoonWindow = DefaultTokenExpiringSoonWindow
	}

	state := TokenState{
		HasAccessToken:  strings.TrimSpace(cfg.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(cfg.RefreshToken) != "",
	}
	if cfg.ExpiresAt == nil {
		return state
	}
	expiresAt := cfg.ExpiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(expiringSoonWindow))
	return state
}

// ShouldRefreshToken returns true when refresh should be attempted before the
// token's expiry is reached.
func ShouldRefreshToken(now time.Time, state TokenState, refreshLeadWindow time.Duration) bool {
	if !state.HasRefreshToken {
		return false
	}
	if !state.HasAccessToken {
		return true
	}
	if state.ExpiresAt == nil {
		return false
	}
	if refreshLeadWindow <= 0 {
		refreshLeadWindow = DefaultTokenRefreshLeadWindow
	}
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	return !state.ExpiresAt.UTC().After(now.Add(refreshLeadWindow))
}

// EnsureTokenFresh loads the integration config and refreshes the token when
// it is expired or inside the lead window. Background refresh workers call
// this; the activity fetch path never refreshes on its own.
func (s *Service) EnsureTokenFresh(ctx context.Context, req EnsureTokenFreshRequest) (EnsureTokenFreshResult, error) {
	if s == nil {
		return EnsureTokenFreshResult{}, fmt.Errorf("core: service is nil")
	}

	integrationID := strings.TrimSpace(req.IntegrationID)
	if integrationID == "" {
		return EnsureTokenFreshResult{}, s.mapError(fmt.Errorf("core: integration id is required"))
	}

	expiringSoonWindow := req.ExpiringSoonWindow
	if expiringSoonWindow <= 0 {
		expiringSoonWindow = DefaultTokenExpiringSoonWindow
	}
	refreshLeadWindow := req.RefreshLeadWindow
	if refreshLeadWindow <= 0 {
		refreshLeadWindow = s.config.refreshLeadWindow()
	}
	if refreshLeadWindow <= 0 {
		refreshLeadWindow = DefaultTokenRefreshLeadWindow
	}

	if s.integrationStore == nil {
		return EnsureTokenFreshResult{}, s.mapError(fmt.Errorf("core: integration store is not configured"))
	}
	integration, err := s.integrationStore.Get(ctx, integrationID)
	if err != nil {
		return EnsureTokenFreshResult{}, s.mapError(err)
	}

	now := time.Now().UTC()
	state := ResolveTokenState(now, ParseFigmaConfig(integration.Config), expiringSoonWindow)
	result := EnsureTokenFreshResult{
		IntegrationID: integrationID,
		State:         state,
	}
	if !ShouldRefreshToken(now, state, refreshLeadWindow) {
		return result, nil
	}

	result.RefreshAttempted = true
	if _, err := s.RefreshToken(ctx, RefreshTokenRequest{IntegrationID: integrationID}); err != nil {
		return result, err
	}

	refreshed, err := s.integrationStore.Get(ctx, integrationID)
	if err != nil {
		return result, s.mapError(err)
	}
	result.State = ResolveTokenState(now, ParseFigmaConfig(refreshed.Config), expiringSoonWindow)
	result.Refreshed = true
	return result, nil
}
