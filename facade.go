package flowsteps

import (
	"fmt"
	"reflect"

	flowcommand "github.com/goliatone/go-flowsteps/command"
	"github.com/goliatone/go-flowsteps/core"
	flowquery "github.com/goliatone/go-flowsteps/query"
)

type CommandQueryService interface {
	flowcommand.MutatingService
	flowquery.BaselineReader
}

type Commands struct {
	InitiateOAuth  *flowcommand.InitiateOAuthCommand
	CompleteOAuth  *flowcommand.CompleteOAuthCommand
	RefreshToken   *flowcommand.RefreshTokenCommand
	FetchActivity  *flowcommand.FetchActivityCommand
	DetectChanges  *flowcommand.DetectChangesCommand
	CreateBaseline *flowcommand.CreateBaselineCommand
	UpdateBaseline *flowcommand.UpdateBaselineCommand
	DeleteBaseline *flowcommand.DeleteBaselineCommand
}

type Queries struct {
	GetBaseline    *flowquery.GetBaselineQuery
	ListBaselines  *flowquery.ListBaselinesQuery
	LatestStepLog  *flowquery.LatestStepLogQuery
	GetIntegration *flowquery.GetIntegrationQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	stepLogReader     flowquery.StepLogReader
	integrationReader flowquery.IntegrationReader
}

func WithStepLogReader(reader flowquery.StepLogReader) FacadeOption {
	return func(options *facadeOptions) {
		options.stepLogReader = reader
	}
}

func WithIntegrationReader(reader flowquery.IntegrationReader) FacadeOption {
	return func(options *facadeOptions) {
		options.integrationReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("flowsteps: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	stepLogReader := cfg.stepLogReader
	if stepLogReader == nil {
		stepLogReader = resolveStepLogReader(service)
	}
	integrationReader := cfg.integrationReader
	if integrationReader == nil {
		integrationReader = resolveIntegrationReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		InitiateOAuth:  flowcommand.NewInitiateOAuthCommand(service),
		CompleteOAuth:  flowcommand.NewCompleteOAuthCommand(service),
		RefreshToken:   flowcommand.NewRefreshTokenCommand(service),
		FetchActivity:  flowcommand.NewFetchActivityCommand(service),
		DetectChanges:  flowcommand.NewDetectChangesCommand(service),
		CreateBaseline: flowcommand.NewCreateBaselineCommand(service),
		UpdateBaseline: flowcommand.NewUpdateBaselineCommand(service),
		DeleteBaseline: flowcommand.NewDeleteBaselineCommand(service),
	}
	facade.queries = Queries{
		GetBaseline:    flowquery.NewGetBaselineQuery(service),
		ListBaselines:  flowquery.NewListBaselinesQuery(service),
		LatestStepLog:  flowquery.NewLatestStepLogQuery(stepLogReader),
		GetIntegration: flowquery.NewGetIntegrationQuery(integrationReader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveStepLogReader finds a step log reader behind the service: either the
// service implements the reader itself, its dependencies carry a typed store,
// or its repository factory exposes one.
func resolveStepLogReader(service CommandQueryService) flowquery.StepLogReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(flowquery.StepLogReader); ok {
		return reader
	}
	deps, ok := serviceDependencies(service)
	if !ok {
		return nil
	}
	if deps.StepLogStore != nil {
		return deps.StepLogStore
	}
	if reader, ok := factoryAccessor(deps.RepositoryFactory, "StepLogStore").(flowquery.StepLogReader); ok {
		return reader
	}
	return nil
}

func resolveIntegrationReader(service CommandQueryService) flowquery.IntegrationReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(flowquery.IntegrationReader); ok {
		return reader
	}
	deps, ok := serviceDependencies(service)
	if !ok {
		return nil
	}
	if deps.IntegrationStore != nil {
		return deps.IntegrationStore
	}
	if reader, ok := factoryAccessor(deps.RepositoryFactory, "IntegrationStore").(flowquery.IntegrationReader); ok {
		return reader
	}
	return nil
}

func serviceDependencies(service CommandQueryService) (core.ServiceDependencies, bool) {
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return core.ServiceDependencies{}, false
	}
	return provider.Dependencies(), true
}

// factoryAccessor calls a zero-arg single-result accessor on the repository
// factory by name. The factory is held as `any`, so this is the only way to
// reach its stores without importing the concrete type.
func factoryAccessor(factory any, name string) any {
	if factory == nil {
		return nil
	}
	factoryValue := reflect.ValueOf(factory)
	if !factoryValue.IsValid() {
		return nil
	}
	if factoryValue.Kind() == reflect.Ptr && factoryValue.IsNil() {
		return nil
	}
	method := factoryValue.MethodByName(name)
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil
	}
	results, ok := safeReflectCall(method)
	if !ok || len(results) != 1 {
		return nil
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return nil
	}
	if candidate.Kind() == reflect.Ptr && candidate.IsNil() {
		return nil
	}
	return candidate.Interface()
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
