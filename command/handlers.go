package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-flowsteps/core"
)

// MutatingService is the slice of the core service the command layer
// drives.
type MutatingService interface {
	InitiateOAuth(ctx context.Context, req core.InitiateOAuthRequest) (core.InitiateOAuthResponse, error)
	CompleteOAuth(ctx context.Context, req core.CompleteOAuthRequest) (core.CompleteOAuthResult, error)
	RefreshToken(ctx context.Context, req core.RefreshTokenRequest) (core.RefreshTokenResult, error)
	FetchActivityLogs(ctx context.Context, req core.FetchActivityRequest) (core.FetchActivityResult, error)
	DetectChanges(ctx context.Context, req core.DetectChangesRequest) (core.DetectChangesResult, error)
	CreateBaseline(ctx context.Context, in core.CreateBaselineInput) (core.BaselineSnapshot, error)
	UpdateBaseline(ctx context.Context, in core.UpdateBaselineInput) (core.BaselineSnapshot, error)
	DeleteBaseline(ctx context.Context, workflowID, baselineID string) error
}

type InitiateOAuthCommand struct {
	service MutatingService
}

func NewInitiateOAuthCommand(service MutatingService) *InitiateOAuthCommand {
	return &InitiateOAuthCommand{service: service}
}

func (c *InitiateOAuthCommand) Execute(ctx context.Context, msg InitiateOAuthMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: oauth initiate service is required")
	}
	out, err := c.service.InitiateOAuth(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteOAuthCommand struct {
	service MutatingService
}

func NewCompleteOAuthCommand(service MutatingService) *CompleteOAuthCommand {
	return &CompleteOAuthCommand{service: service}
}

func (c *CompleteOAuthCommand) Execute(ctx context.Context, msg CompleteOAuthMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: oauth complete service is required")
	}
	out, err := c.service.CompleteOAuth(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshTokenCommand struct {
	service MutatingService
}

func NewRefreshTokenCommand(service MutatingService) *RefreshTokenCommand {
	return &RefreshTokenCommand{service: service}
}

func (c *RefreshTokenCommand) Execute(ctx context.Context, msg RefreshTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token refresh service is required")
	}
	out, err := c.service.RefreshToken(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type FetchActivityCommand struct {
	service MutatingService
}

func NewFetchActivityCommand(service MutatingService) *FetchActivityCommand {
	return &FetchActivityCommand{service: service}
}

func (c *FetchActivityCommand) Execute(ctx context.Context, msg FetchActivityMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: activity fetch service is required")
	}
	out, err := c.service.FetchActivityLogs(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DetectChangesCommand struct {
	service MutatingService
}

func NewDetectChangesCommand(service MutatingService) *DetectChangesCommand {
	return &DetectChangesCommand{service: service}
}

func (c *DetectChangesCommand) Execute(ctx context.Context, msg DetectChangesMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: change detection service is required")
	}
	out, err := c.service.DetectChanges(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateBaselineCommand struct {
	service MutatingService
}

func NewCreateBaselineCommand(service MutatingService) *CreateBaselineCommand {
	return &CreateBaselineCommand{service: service}
}

func (c *CreateBaselineCommand) Execute(ctx context.Context, msg CreateBaselineMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: baseline create service is required")
	}
	out, err := c.service.CreateBaseline(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateBaselineCommand struct {
	service MutatingService
}

func NewUpdateBaselineCommand(service MutatingService) *UpdateBaselineCommand {
	return &UpdateBaselineCommand{service: service}
}

func (c *UpdateBaselineCommand) Execute(ctx context.Context, msg UpdateBaselineMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: baseline update service is required")
	}
	out, err := c.service.UpdateBaseline(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteBaselineCommand struct {
	service MutatingService
}

func NewDeleteBaselineCommand(service MutatingService) *DeleteBaselineCommand {
	return &DeleteBaselineCommand{service: service}
}

func (c *DeleteBaselineCommand) Execute(ctx context.Context, msg DeleteBaselineMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: baseline delete service is required")
	}
	return c.service.DeleteBaseline(ctx, msg.WorkflowID, msg.BaselineID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
