package command

import (
	"strings"

	"github.com/goliatone/go-flowsteps/core"
)

const (
	TypeInitiateOAuth  = "flowsteps.command.oauth.initiate"
	TypeCompleteOAuth  = "flowsteps.command.oauth.complete"
	TypeRefreshToken   = "flowsteps.command.oauth.refresh"
	TypeFetchActivity  = "flowsteps.command.activity.fetch"
	TypeDetectChanges  = "flowsteps.command.changes.detect"
	TypeCreateBaseline = "flowsteps.command.baseline.create"
	TypeUpdateBaseline = "flowsteps.command.baseline.update"
	TypeDeleteBaseline = "flowsteps.command.baseline.delete"
)

type InitiateOAuthMessage struct {
	Request core.InitiateOAuthRequest
}

func (InitiateOAuthMessage) Type() string { return TypeInitiateOAuth }

func (m InitiateOAuthMessage) Validate() error {
	if strings.TrimSpace(m.Request.IntegrationID) == "" {
		return commandValidationError("integrationId", "integration id is required")
	}
	return nil
}

type CompleteOAuthMessage struct {
	Request core.CompleteOAuthRequest
}

func (CompleteOAuthMessage) Type() string { return TypeCompleteOAuth }

func (m CompleteOAuthMessage) Validate() error {
	if strings.TrimSpace(m.Request.Code) == "" {
		return commandValidationError("code", "authorization code is required")
	}
	if strings.TrimSpace(m.Request.State) == "" {
		return commandValidationError("state", "authorization state is required")
	}
	return nil
}

type RefreshTokenMessage struct {
	Request core.RefreshTokenRequest
}

func (RefreshTokenMessage) Type() string { return TypeRefreshToken }

func (m RefreshTokenMessage) Validate() error {
	if strings.TrimSpace(m.Request.IntegrationID) == "" {
		return commandValidationError("integrationId", "integration id is required")
	}
	return nil
}

type FetchActivityMessage struct {
	Request core.FetchActivityRequest
}

func (FetchActivityMessage) Type() string { return TypeFetchActivity }

func (m FetchActivityMessage) Validate() error {
	if strings.TrimSpace(m.Request.IntegrationID) == "" {
		return commandValidationError("integrationId", "integration id is required")
	}
	if strings.TrimSpace(m.Request.FileURL) == "" {
		return commandValidationError("fileUrl", "file url is required")
	}
	return nil
}

type DetectChangesMessage struct {
	Request core.DetectChangesRequest
}

func (DetectChangesMessage) Type() string { return TypeDetectChanges }

func (m DetectChangesMessage) Validate() error {
	if strings.TrimSpace(m.Request.ExecutionID) == "" {
		return commandValidationError("executionId", "execution id is required")
	}
	if strings.TrimSpace(m.Request.BaselineID) == "" {
		return commandValidationError("baselineId", "baseline id is required")
	}
	return nil
}

type CreateBaselineMessage struct {
	Input core.CreateBaselineInput
}

func (CreateBaselineMessage) Type() string { return TypeCreateBaseline }

func (m CreateBaselineMessage) Validate() error {
	if strings.TrimSpace(m.Input.WorkflowID) == "" {
		return commandValidationError("workflowId", "workflow id is required")
	}
	if strings.TrimSpace(m.Input.Name) == "" {
		return commandValidationError("name", "baseline name is required")
	}
	return nil
}

type UpdateBaselineMessage struct {
	Input core.UpdateBaselineInput
}

func (UpdateBaselineMessage) Type() string { return TypeUpdateBaseline }

func (m UpdateBaselineMessage) Validate() error {
	if strings.TrimSpace(m.Input.ID) == "" {
		return commandValidationError("id", "baseline id is required")
	}
	return nil
}

type DeleteBaselineMessage struct {
	WorkflowID string
	BaselineID string
}

func (DeleteBaselineMessage) Type() string { return TypeDeleteBaseline }

func (m DeleteBaselineMessage) Validate() error {
	if strings.TrimSpace(m.BaselineID) == "" {
		return commandValidationError("baselineId", "baseline id is required")
	}
	return nil
}
