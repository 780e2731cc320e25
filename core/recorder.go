package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StepContext identifies the workflow node a step run belongs to.
type StepContext struct {
	ExecutionID string
	NodeID      string
	NodeType    string
}

func (c StepContext) Validate() error {
	if strings.TrimSpace(c.ExecutionID) == "" {
		return ValidationError("execution id is required")
	}
	return nil
}

// Step is a unit of workflow work whose runs get recorded.
type Step[In any, Out any] interface {
	Run(ctx context.Context, in In) (Out, error)
}

type StepFunc[In any, Out any] func(ctx context.Context, in In) (Out, error)

func (f StepFunc[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

type RecorderOption func(*StepRecorder)

func WithRecorderLogger(logger Logger) RecorderOption {
	return func(r *StepRecorder) {
		r.logger = logger
	}
}

func WithRecorderMetrics(metrics MetricsRecorder) RecorderOption {
	return func(r *StepRecorder) {
		r.metrics = metrics
	}
}

func WithRecorderClock(nowFn func() time.Time) RecorderOption {
	return func(r *StepRecorder) {
		if nowFn != nil {
			r.nowFn = nowFn
		}
	}
}

// StepRecorder wraps step execution and appends exactly one log row per run,
// success or failure. Panics are recorded as failed rows and re-raised.
type StepRecorder struct {
	store   StepLogStore
	logger  Logger
	metrics MetricsRecorder
	nowFn   func() time.Time
}

func NewStepRecorder(store StepLogStore, options ...RecorderOption) *StepRecorder {
	recorder := &StepRecorder{
		store:   store,
		metrics: NopMetricsRecorder{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		if option != nil {
			option(recorder)
		}
	}
	return recorder
}

// RecordStep runs the step and persists its outcome. The returned error is
// the step's own error; when the step succeeds but the log row cannot be
// written, the append error is returned so a run never silently goes
// unrecorded.
func RecordStep[In any, Out any](
	ctx context.Context,
	r *StepRecorder,
	stepCtx StepContext,
	in In,
	step Step[In, Out],
) (Out, error) {
	var zero Out
	if r == nil {
		return zero, fmt.Errorf("core: step recorder is nil")
	}
	if step == nil {
		return zero, ValidationError("step is required")
	}
	if err := stepCtx.Validate(); err != nil {
		return zero, err
	}
	if r.store == nil {
		return zero, fmt.Errorf("core: step log store is not configured")
	}

	startedAt := r.nowFn()
	inputPayload := toPayloadMap(in)
	if inputPayload != nil {
		inputPayload = RedactSensitiveMap(inputPayload)
	}

	var out Out
	var runErr error
	func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				r.append(ctx, stepCtx, startedAt, inputPayload, nil, fmt.Errorf("panic: %v", recovered))
				panic(recovered)
			}
		}()
		out, runErr = step.Run(ctx, in)
	}()

	if runErr != nil {
		r.append(ctx, stepCtx, startedAt, inputPayload, nil, runErr)
		return zero, runErr
	}

	if err := r.append(ctx, stepCtx, startedAt, inputPayload, toPayloadMap(out), nil); err != nil {
		return zero, err
	}
	return out, nil
}

func (r *StepRecorder) append(
	ctx context.Context,
	stepCtx StepContext,
	startedAt time.Time,
	input map[string]any,
	output map[string]any,
	runErr error,
) error {
	finishedAt := r.nowFn()
	entry := AppendStepLogInput{
		ExecutionID: strings.TrimSpace(stepCtx.ExecutionID),
		NodeID:      strings.TrimSpace(stepCtx.NodeID),
		NodeType:    strings.TrimSpace(stepCtx.NodeType),
		Status:      StepStatusSuccess,
		Input:       input,
		Output:      output,
		DurationMs:  finishedAt.Sub(startedAt).Milliseconds(),
		Timestamp:   finishedAt,
	}
	status := "success"
	if runErr != nil {
		entry.Status = StepStatusError
		entry.Error = runErr.Error()
		status = "error"
	}

	_, err := r.store.Append(ctx, entry)
	if r.metrics != nil {
		tags := map[string]string{
			"node_type": entry.NodeType,
			"status":    status,
		}
		r.metrics.IncCounter(ctx, "flowsteps.step_runs.total", 1, tags)
		r.metrics.ObserveHistogram(ctx, "flowsteps.step_runs.duration_ms", float64(entry.DurationMs), tags)
	}
	if err != nil {
		if r.logger != nil {
			r.logger.Error("step log append failed",
				"execution_id", entry.ExecutionID,
				"node_id", entry.NodeID,
				"error", err.Error(),
			)
		}
		return fmt.Errorf("core: append step log: %w", err)
	}
	return nil
}

// toPayloadMap renders a step payload to the jsonb shape stored on the log
// row. Non-object payloads are wrapped under a "value" key.
func toPayloadMap(payload any) map[string]any {
	if payload == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return map[string]any{"value": fmt.Sprint(payload)}
	}
	var object map[string]any
	if err := json.Unmarshal(raw, &object); err == nil {
		return object
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return map[string]any{"value": string(raw)}
	}
	if value == nil {
		return nil
	}
	return map[string]any{"value": value}
}
