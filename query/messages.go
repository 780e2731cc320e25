package query

import (
	"strings"
)

const (
	TypeGetBaseline    = "flowsteps.query.baseline.get"
	TypeListBaselines  = "flowsteps.query.baseline.list"
	TypeLatestStepLog  = "flowsteps.query.step_log.latest"
	TypeGetIntegration = "flowsteps.query.integration.get"
)

type GetBaselineMessage struct {
	WorkflowID string
	BaselineID string
}

func (GetBaselineMessage) Type() string { return TypeGetBaseline }

func (m GetBaselineMessage) Validate() error {
	if strings.TrimSpace(m.WorkflowID) == "" {
		return queryValidationError("workflow_id", "workflow id is required")
	}
	if strings.TrimSpace(m.BaselineID) == "" {
		return queryValidationError("baseline_id", "baseline id is required")
	}
	return nil
}

type ListBaselinesMessage struct {
	WorkflowID string
}

func (ListBaselinesMessage) Type() string { return TypeListBaselines }

func (m ListBaselinesMessage) Validate() error {
	if strings.TrimSpace(m.WorkflowID) == "" {
		return queryValidationError("workflow_id", "workflow id is required")
	}
	return nil
}

type LatestStepLogMessage struct {
	ExecutionID   string
	NodeType      string
	ExcludeNodeID string
}

func (LatestStepLogMessage) Type() string { return TypeLatestStepLog }

func (m LatestStepLogMessage) Validate() error {
	if strings.TrimSpace(m.ExecutionID) == "" {
		return queryValidationError("execution_id", "execution id is required")
	}
	return nil
}

type GetIntegrationMessage struct {
	IntegrationID string
}

func (GetIntegrationMessage) Type() string { return TypeGetIntegration }

func (m GetIntegrationMessage) Validate() error {
	if strings.TrimSpace(m.IntegrationID) == "" {
		return queryValidationError("integration_id", "integration id is required")
	}
	return nil
}
