package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-flowsteps/core"
)

const (
	defaultRefreshLeadWindow = 5 * time.Minute
	defaultRetryDelay        = 30 * time.Second
)

// TokenRefresher is the slice of the core service the refresh worker needs.
type TokenRefresher interface {
	EnsureTokenFresh(ctx context.Context, req core.EnsureTokenFreshRequest) (core.EnsureTokenFreshResult, error)
}

// DedupLedger claims an idempotency key for a window. A failed claim means
// an equivalent job already ran recently. It mirrors core.ReplayLedger so
// any ledger implementation plugs in without importing this package.
type DedupLedger interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

var _ DedupLedger = (core.ReplayLedger)(nil)

type RefreshHandlerConfig struct {
	RefreshLeadWindow time.Duration
	RetryDelay        time.Duration
	Policy            RetryPolicy
	Dedup             DedupLedger
	DedupTTL          time.Duration
}

// RefreshJobHandler consumes token refresh jobs. Each message names one
// integration whose stored token should be checked and rotated when close to
// expiry.
type RefreshJobHandler struct {
	service TokenRefresher
	logger  core.Logger
	cfg     RefreshHandlerConfig
}

func NewRefreshJobHandler(service TokenRefresher, logger core.Logger, cfg RefreshHandlerConfig) (*RefreshJobHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("gojob: token refresher is required")
	}
	if cfg.RefreshLeadWindow <= 0 {
		cfg.RefreshLeadWindow = defaultRefreshLeadWindow
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &RefreshJobHandler{service: service, logger: logger, cfg: cfg}, nil
}

// Handle processes one delivery and settles it. Failures that cannot succeed
// on retry (revoked grants, missing credentials) go to the dead letter queue
// instead of spinning in the retry loop.
func (h *RefreshJobHandler) Handle(ctx context.Context, delivery core.JobDelivery, attempt int) error {
	if h == nil || h.service == nil {
		return fmt.Errorf("gojob: refresh handler is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}

	msg := delivery.Message()
	if msg == nil || msg.JobID != JobIDTokenRefresh {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "unexpected job id",
		})
	}

	integrationID := paramString(msg.Parameters, "integration_id")
	if integrationID == "" {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "integration_id parameter is required",
		})
	}

	if h.cfg.Dedup != nil && strings.TrimSpace(msg.IdempotencyKey) != "" {
		claimed, err := h.cfg.Dedup.Claim(ctx, msg.IdempotencyKey, h.cfg.DedupTTL)
		if err != nil {
			return h.settleFailure(ctx, delivery, integrationID, attempt, err)
		}
		if !claimed {
			if h.logger != nil {
				h.logger.Info("dropping duplicate refresh job", "integration_id", integrationID)
			}
			return delivery.Ack(ctx)
		}
	}

	result, err := h.service.EnsureTokenFresh(ctx, core.EnsureTokenFreshRequest{
		IntegrationID:     integrationID,
		RefreshLeadWindow: h.cfg.RefreshLeadWindow,
	})
	if err != nil {
		return h.settleFailure(ctx, delivery, integrationID, attempt, err)
	}

	if h.logger != nil && result.Refreshed {
		h.logger.Info("token refresh job rotated credentials", "integration_id", integrationID)
	}
	return delivery.Ack(ctx)
}

func (h *RefreshJobHandler) settleFailure(ctx context.Context, delivery core.JobDelivery, integrationID string, attempt int, cause error) error {
	rich := core.MapFlowError(cause)
	opts := core.JobNackOptions{
		Delay:   h.cfg.RetryDelay,
		Requeue: true,
		Reason:  rich.Message,
	}
	if isTerminalRefreshFailure(rich.TextCode) {
		opts = core.JobNackOptions{DeadLetter: true, Reason: rich.Message}
	}
	opts = h.cfg.Policy.NormalizeAttempt(opts, attempt)

	if h.logger != nil {
		h.logger.Error("token refresh job failed",
			"integration_id", integrationID,
			"attempt", attempt,
			"code", rich.TextCode,
			"error", cause,
		)
	}
	return delivery.Nack(ctx, opts)
}

// isTerminalRefreshFailure reports whether retrying cannot help: the grant is
// revoked or the integration is misconfigured, so the account needs a human
// to reconnect it.
func isTerminalRefreshFailure(textCode string) bool {
	switch strings.TrimSpace(textCode) {
	case core.FlowErrorAuthExpired, core.FlowErrorConfig, core.FlowErrorValidation, core.FlowErrorNotFound, core.FlowErrorUpstreamAuth:
		return true
	default:
		return false
	}
}

// NewRefreshMessage builds the enqueue payload for one integration's refresh.
func NewRefreshMessage(integrationID string) *core.JobExecutionMessage {
	integrationID = strings.TrimSpace(integrationID)
	return &core.JobExecutionMessage{
		JobID:          JobIDTokenRefresh,
		Parameters:     map[string]any{"integration_id": integrationID},
		IdempotencyKey: JobIDTokenRefresh + "::" + integrationID,
		DedupPolicy:    "drop",
	}
}

func paramString(params map[string]any, key string) string {
	if len(params) == 0 {
		return ""
	}
	value, ok := params[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
