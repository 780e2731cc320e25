package sqlstore

import (
	"github.com/goliatone/go-flowsteps/core"
)

func (r *integrationRecord) toDomain() core.Integration {
	if r == nil {
		return core.Integration{}
	}
	return core.Integration{
		ID:        r.ID,
		Type:      r.Type,
		Config:    cloneStringMap(r.Config),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *stepLogRecord) toDomain() core.ExecutionStepLog {
	if r == nil {
		return core.ExecutionStepLog{}
	}
	return core.ExecutionStepLog{
		ID:          r.ID,
		ExecutionID: r.ExecutionID,
		NodeID:      r.NodeID,
		NodeType:    r.NodeType,
		Status:      core.StepStatus(r.Status),
		Input:       cloneAnyMap(r.Input),
		Output:      cloneAnyMap(r.Output),
		DurationMs:  r.DurationMs,
		Error:       r.Error,
		Timestamp:   r.Timestamp,
	}
}

func (r *executionRecord) toDomain() core.Execution {
	if r == nil {
		return core.Execution{}
	}
	return core.Execution{
		ID:         r.ID,
		WorkflowID: r.WorkflowID,
		Status:     core.ExecutionStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (r *baselineRecord) toDomain() core.BaselineSnapshot {
	if r == nil {
		return core.BaselineSnapshot{}
	}
	return core.BaselineSnapshot{
		ID:         r.ID,
		WorkflowID: r.WorkflowID,
		Name:       r.Name,
		Data:       cloneDataRows(r.Data),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func cloneAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func cloneDataRows(in []map[string]any) []map[string]any {
	if in == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(in))
	for _, row := range in {
		out = append(out, cloneAnyMap(row))
	}
	return out
}
