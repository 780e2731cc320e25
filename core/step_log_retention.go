package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultRetentionInterval = time.Hour

// StepLogRetentionPolicy bounds the execution trace. TTL drops rows older
// than the window; RowCap keeps only the newest N rows. Zero values disable
// the respective bound.
type StepLogRetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

func (p StepLogRetentionPolicy) Enabled() bool {
	return p.TTL > 0 || p.RowCap > 0
}

type StepLogPruner interface {
	PruneStepLogs(ctx context.Context, policy StepLogRetentionPolicy) (deleted int, err error)
}

type RetentionOption func(*StepLogRetentionController)

func WithRetentionInterval(interval time.Duration) RetentionOption {
	return func(c *StepLogRetentionController) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

func WithRetentionLogger(logger Logger) RetentionOption {
	return func(c *StepLogRetentionController) {
		c.logger = logger
	}
}

func WithRetentionMetrics(metrics MetricsRecorder) RetentionOption {
	return func(c *StepLogRetentionController) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// StepLogRetentionController prunes step log rows on a fixed interval.
// Pruning failures are logged and retried on the next tick; the controller
// never interrupts step recording.
type StepLogRetentionController struct {
	pruner   StepLogPruner
	policy   StepLogRetentionPolicy
	interval time.Duration
	logger   Logger
	metrics  MetricsRecorder

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewStepLogRetentionController(
	pruner StepLogPruner,
	policy StepLogRetentionPolicy,
	options ...RetentionOption,
) (*StepLogRetentionController, error) {
	if pruner == nil {
		return nil, fmt.Errorf("core: step log pruner is required")
	}
	if !policy.Enabled() {
		return nil, fmt.Errorf("core: retention policy needs a ttl or row cap")
	}

	controller := &StepLogRetentionController{
		pruner:   pruner,
		policy:   policy,
		interval: defaultRetentionInterval,
		metrics:  NopMetricsRecorder{},
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, option := range options {
		if option != nil {
			option(controller)
		}
	}

	go controller.run()
	return controller, nil
}

// EnforceRetention runs one prune pass immediately.
func (c *StepLogRetentionController) EnforceRetention(ctx context.Context) (int, error) {
	if c == nil || c.pruner == nil {
		return 0, fmt.Errorf("core: retention controller is not configured")
	}
	deleted, err := c.pruner.PruneStepLogs(ctx, c.policy)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		c.metrics.IncCounter(ctx, "flowsteps.step_logs.pruned", int64(deleted), nil)
	}
	return deleted, nil
}

func (c *StepLogRetentionController) Close() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() {
		close(c.stopCh)
		<-c.doneCh
	})
}

func (c *StepLogRetentionController) run() {
	defer close(c.doneCh)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			if _, err := c.EnforceRetention(context.Background()); err != nil && c.logger != nil {
				c.logger.Error("step log retention prune failed", "error", err.Error())
			}
		}
	}
}
