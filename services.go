package flowsteps

import "github.com/goliatone/go-flowsteps/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type OAuthStateStore = core.OAuthStateStore
type IntegrationLocker = core.IntegrationLocker
type RefreshBackoffScheduler = core.RefreshBackoffScheduler
type RefreshRunOptions = core.RefreshRunOptions
type RefreshRunResult = core.RefreshRunResult
type IntegrationStore = core.IntegrationStore
type StepLogStore = core.StepLogStore
type ExecutionStore = core.ExecutionStore
type BaselineStore = core.BaselineStore
type Provider = core.Provider

type InitiateOAuthRequest = core.InitiateOAuthRequest
type CompleteOAuthRequest = core.CompleteOAuthRequest
type RefreshTokenRequest = core.RefreshTokenRequest
type FetchActivityRequest = core.FetchActivityRequest
type DetectChangesRequest = core.DetectChangesRequest

var (
	WithLogger                  = core.WithLogger
	WithLoggerProvider          = core.WithLoggerProvider
	WithMetricsRecorder         = core.WithMetricsRecorder
	WithErrorFactory            = core.WithErrorFactory
	WithErrorMapper             = core.WithErrorMapper
	WithPersistenceClient       = core.WithPersistenceClient
	WithRepositoryFactory       = core.WithRepositoryFactory
	WithConfigProvider          = core.WithConfigProvider
	WithOptionsResolver         = core.WithOptionsResolver
	WithOAuthStateStore         = core.WithOAuthStateStore
	WithIntegrationLocker       = core.WithIntegrationLocker
	WithRefreshBackoffScheduler = core.WithRefreshBackoffScheduler
	WithRegistry                = core.WithRegistry
	WithIntegrationStore        = core.WithIntegrationStore
	WithStepLogStore            = core.WithStepLogStore
	WithExecutionStore          = core.WithExecutionStore
	WithBaselineStore           = core.WithBaselineStore
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
