package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type FetchActivityRequest struct {
	IntegrationID string
	ProviderID    string
	FileURL       string
	Events        []string
	DateRange     DateRange
	Limit         int
	Order         string
	Cursor        string
}

// FetchActivityLogs queries one page of provider activity for the file named
// by the request URL. The stored access token is used as-is: an expired token
// surfaces as an auth error for the caller to handle, never a silent refresh.
func (s *Service) FetchActivityLogs(ctx context.Context, req FetchActivityRequest) (result FetchActivityResult, err error) {
	if s == nil {
		return FetchActivityResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"provider_id":    req.ProviderID,
		"integration_id": req.IntegrationID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "fetch_activity_logs", err, fields)
	}()

	integrationID := strings.TrimSpace(req.IntegrationID)
	if integrationID == "" {
		err = s.mapError(ValidationError("integration id is required"))
		return FetchActivityResult{}, err
	}
	if strings.TrimSpace(req.FileURL) == "" {
		err = s.mapError(ValidationError("file url is required"))
		return FetchActivityResult{}, err
	}

	if s.integrationStore == nil {
		err = s.mapError(fmt.Errorf("core: integration store is not configured"))
		return FetchActivityResult{}, err
	}
	integration, err := s.integrationStore.Get(ctx, integrationID)
	if err != nil {
		err = s.mapError(err)
		return FetchActivityResult{}, err
	}

	cfg := ParseFigmaConfig(integration.Config)
	if cfg.AccessToken == "" {
		err = s.mapError(ConfigError("integration has no access token, reconnect the account"))
		return FetchActivityResult{}, err
	}

	provider, err := s.resolveProvider(req.ProviderID)
	if err != nil {
		return FetchActivityResult{}, err
	}

	result, err = provider.FetchActivity(ctx, FetchActivityInput{
		AccessToken: cfg.AccessToken,
		FileURL:     req.FileURL,
		Events:      append([]string(nil), req.Events...),
		DateRange:   req.DateRange,
		Limit:       req.Limit,
		Order:       req.Order,
		Cursor:      req.Cursor,
	})
	if err != nil {
		err = s.mapError(err)
		return FetchActivityResult{}, err
	}

	fields["log_count"] = len(result.Logs)
	return result, nil
}

// FetchActivityStep wraps FetchActivityLogs as a recordable workflow step.
func (s *Service) FetchActivityStep() Step[FetchActivityRequest, FetchActivityResult] {
	return StepFunc[FetchActivityRequest, FetchActivityResult](
		func(ctx context.Context, req FetchActivityRequest) (FetchActivityResult, error) {
			return s.FetchActivityLogs(ctx, req)
		},
	)
}

// DetectChangesStep wraps DetectChanges as a recordable workflow step.
func (s *Service) DetectChangesStep() Step[DetectChangesRequest, DetectChangesResult] {
	return StepFunc[DetectChangesRequest, DetectChangesResult](
		func(ctx context.Context, req DetectChangesRequest) (DetectChangesResult, error) {
			return s.DetectChanges(ctx, req)
		},
	)
}
