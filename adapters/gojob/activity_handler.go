package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-flowsteps/core"
	"github.com/goliatone/go-flowsteps/ratelimit"
)

const activityBucketKey = "activity"

// ActivityFetcher is the slice of the core service the fetch worker needs.
type ActivityFetcher interface {
	FetchActivityLogs(ctx context.Context, req core.FetchActivityRequest) (core.FetchActivityResult, error)
}

// ThrottlePolicy gates upstream calls on previously observed quota state.
type ThrottlePolicy interface {
	BeforeCall(ctx context.Context, key ratelimit.Key) error
	AfterCall(ctx context.Context, key ratelimit.Key, res ratelimit.ResponseMeta) error
}

type ActivityHandlerConfig struct {
	RetryDelay time.Duration
	Policy     RetryPolicy
	Throttle   ThrottlePolicy
	Recorder   *core.StepRecorder
}

// ActivityJobHandler consumes scheduled activity fetch jobs. A job names the
// integration, the file to query, and optionally the workflow node to record
// the run under. Throttled upstreams push the job back on the queue with the
// provider's retry hint instead of burning attempts.
type ActivityJobHandler struct {
	service ActivityFetcher
	logger  core.Logger
	cfg     ActivityHandlerConfig
}

func NewActivityJobHandler(service ActivityFetcher, logger core.Logger, cfg ActivityHandlerConfig) (*ActivityJobHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("gojob: activity fetcher is required")
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &ActivityJobHandler{service: service, logger: logger, cfg: cfg}, nil
}

func (h *ActivityJobHandler) Handle(ctx context.Context, delivery core.JobDelivery, attempt int) error {
	if h == nil || h.service == nil {
		return fmt.Errorf("gojob: activity handler is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}

	msg := delivery.Message()
	if msg == nil || msg.JobID != JobIDActivityFetch {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "unexpected job id",
		})
	}

	req := core.FetchActivityRequest{
		IntegrationID: paramString(msg.Parameters, "integration_id"),
		ProviderID:    paramString(msg.Parameters, "provider_id"),
		FileURL:       paramString(msg.Parameters, "file_url"),
		Order:         paramString(msg.Parameters, "order"),
		Cursor:        paramString(msg.Parameters, "cursor"),
	}
	if req.IntegrationID == "" || req.FileURL == "" {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "integration_id and file_url parameters are required",
		})
	}

	key := ratelimit.Key{
		ProviderID:    req.ProviderID,
		IntegrationID: req.IntegrationID,
		BucketKey:     activityBucketKey,
	}
	if h.cfg.Throttle != nil {
		if err := h.cfg.Throttle.BeforeCall(ctx, key); err != nil {
			return h.settleThrottled(ctx, delivery, req.IntegrationID, attempt, err)
		}
	}

	result, err := h.fetch(ctx, msg, req)
	if err != nil {
		rich := core.MapFlowError(err)
		if status := upstreamStatus(rich); h.cfg.Throttle != nil && status != 0 {
			if afterErr := h.cfg.Throttle.AfterCall(ctx, key, ratelimit.ResponseMeta{StatusCode: status}); afterErr != nil && h.logger != nil {
				h.logger.Error("throttle state update failed", "integration_id", req.IntegrationID, "error", afterErr.Error())
			}
		}
		return h.settleFetchFailure(ctx, delivery, req.IntegrationID, attempt, rich)
	}

	if h.cfg.Throttle != nil {
		if afterErr := h.cfg.Throttle.AfterCall(ctx, key, ratelimit.ResponseMeta{StatusCode: 200}); afterErr != nil && h.logger != nil {
			h.logger.Error("throttle state update failed", "integration_id", req.IntegrationID, "error", afterErr.Error())
		}
	}
	if h.logger != nil {
		h.logger.Info("activity fetch job completed",
			"integration_id", req.IntegrationID,
			"file_key", result.FileKey,
			"log_count", len(result.Logs),
		)
	}
	return delivery.Ack(ctx)
}

// fetch runs the upstream query, through the step recorder when the job names
// a workflow node so the run lands in the execution trace.
func (h *ActivityJobHandler) fetch(ctx context.Context, msg *core.JobExecutionMessage, req core.FetchActivityRequest) (core.FetchActivityResult, error) {
	executionID := paramString(msg.Parameters, "execution_id")
	nodeID := paramString(msg.Parameters, "node_id")
	if h.cfg.Recorder == nil || executionID == "" {
		return h.service.FetchActivityLogs(ctx, req)
	}
	return core.RecordStep(ctx, h.cfg.Recorder,
		core.StepContext{
			ExecutionID: executionID,
			NodeID:      nodeID,
			NodeType:    core.FetchNodeType(req.ProviderID),
		},
		req,
		core.StepFunc[core.FetchActivityRequest, core.FetchActivityResult](
			func(ctx context.Context, req core.FetchActivityRequest) (core.FetchActivityResult, error) {
				return h.service.FetchActivityLogs(ctx, req)
			},
		),
	)
}

func (h *ActivityJobHandler) settleThrottled(ctx context.Context, delivery core.JobDelivery, integrationID string, attempt int, cause error) error {
	delay := h.cfg.RetryDelay
	if throttled, ok := cause.(ratelimit.ThrottledError); ok && throttled.RetryAfter > 0 {
		delay = throttled.RetryAfter
	}
	opts := h.cfg.Policy.NormalizeAttempt(core.JobNackOptions{
		Delay:   delay,
		Requeue: true,
		Reason:  cause.Error(),
	}, attempt)

	if h.logger != nil {
		h.logger.Info("activity fetch deferred by throttle",
			"integration_id", integrationID,
			"attempt", attempt,
			"delay", delay.String(),
		)
	}
	return delivery.Nack(ctx, opts)
}

func (h *ActivityJobHandler) settleFetchFailure(ctx context.Context, delivery core.JobDelivery, integrationID string, attempt int, rich *goerrors.Error) error {
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
		h.logger.Error("activity fetch job failed",
			"integration_id", integrationID,
			"attempt", attempt,
			"code", rich.TextCode,
			"error", rich.Message,
		)
	}
	return delivery.Nack(ctx, opts)
}

// NewActivityMessage builds the enqueue payload for one scheduled fetch.
func NewActivityMessage(integrationID, providerID, fileURL string) *core.JobExecutionMessage {
	integrationID = strings.TrimSpace(integrationID)
	return &core.JobExecutionMessage{
		JobID: JobIDActivityFetch,
		Parameters: map[string]any{
			"integration_id": integrationID,
			"provider_id":    strings.TrimSpace(providerID),
			"file_url":       strings.TrimSpace(fileURL),
		},
		IdempotencyKey: JobIDActivityFetch + "::" + integrationID,
		DedupPolicy:    "drop",
	}
}

// upstreamStatus recovers the provider HTTP status from a mapped error so the
// throttle policy can record 429 responses seen by the core service.
func upstreamStatus(rich *goerrors.Error) int {
	if rich == nil {
		return 0
	}
	if rich.TextCode == core.FlowErrorRateLimited {
		return 429
	}
	if rich.Metadata != nil {
		switch v := rich.Metadata["upstream_status"].(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return 0
}
