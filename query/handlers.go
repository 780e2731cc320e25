package query

import (
	"context"

	"github.com/goliatone/go-flowsteps/core"
)

type BaselineReader interface {
	GetBaseline(ctx context.Context, workflowID, baselineID string) (core.BaselineSnapshot, error)
	ListBaselines(ctx context.Context, workflowID string) ([]core.BaselineSnapshot, error)
}

type StepLogReader interface {
	LatestSuccess(ctx context.Context, q core.LatestStepLogQuery) (core.ExecutionStepLog, error)
}

type IntegrationReader interface {
	Get(ctx context.Context, id string) (core.Integration, error)
}

type GetBaselineQuery struct {
	reader BaselineReader
}

func NewGetBaselineQuery(reader BaselineReader) *GetBaselineQuery {
	return &GetBaselineQuery{reader: reader}
}

func (q *GetBaselineQuery) Query(ctx context.Context, msg GetBaselineMessage) (core.BaselineSnapshot, error) {
	if q == nil || q.reader == nil {
		return core.BaselineSnapshot{}, queryDependencyError("query: baseline reader is required")
	}
	return q.reader.GetBaseline(ctx, msg.WorkflowID, msg.BaselineID)
}

type ListBaselinesQuery struct {
	reader BaselineReader
}

func NewListBaselinesQuery(reader BaselineReader) *ListBaselinesQuery {
	return &ListBaselinesQuery{reader: reader}
}

func (q *ListBaselinesQuery) Query(ctx context.Context, msg ListBaselinesMessage) ([]core.BaselineSnapshot, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: baseline reader is required")
	}
	return q.reader.ListBaselines(ctx, msg.WorkflowID)
}

type LatestStepLogQuery struct {
	reader StepLogReader
}

func NewLatestStepLogQuery(reader StepLogReader) *LatestStepLogQuery {
	return &LatestStepLogQuery{reader: reader}
}

func (q *LatestStepLogQuery) Query(ctx context.Context, msg LatestStepLogMessage) (core.ExecutionStepLog, error) {
	if q == nil || q.reader == nil {
		return core.ExecutionStepLog{}, queryDependencyError("query: step log reader is required")
	}
	return q.reader.LatestSuccess(ctx, core.LatestStepLogQuery{
		ExecutionID:   msg.ExecutionID,
		NodeType:      msg.NodeType,
		ExcludeNodeID: msg.ExcludeNodeID,
	})
}

type GetIntegrationQuery struct {
	reader IntegrationReader
}

func NewGetIntegrationQuery(reader IntegrationReader) *GetIntegrationQuery {
	return &GetIntegrationQuery{reader: reader}
}

func (q *GetIntegrationQuery) Query(ctx context.Context, msg GetIntegrationMessage) (core.Integration, error) {
	if q == nil || q.reader == nil {
		return core.Integration{}, queryDependencyError("query: integration reader is required")
	}
	return q.reader.Get(ctx, msg.IntegrationID)
}
