package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

var ErrProviderNotFound = errors.New("core: provider not found")

type Service struct {
	config                  Config
	logger                  Logger
	loggerProvider          LoggerProvider
	metricsRecorder         MetricsRecorder
	errorFactory            ErrorFactory
	errorMapper             ErrorMapper
	persistenceClient       any
	repositoryFactory       any
	configProvider          ConfigProvider
	optionsResolver         OptionsResolver
	oauthStateStore         OAuthStateStore
	integrationLocker       IntegrationLocker
	refreshBackoffScheduler RefreshBackoffScheduler
	registry                Registry
	integrationStore        IntegrationStore
	stepLogStore            StepLogStore
	executionStore          ExecutionStore
	baselineStore           BaselineStore
	recorder                *StepRecorder
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	OAuthStateStore   OAuthStateStore
	IntegrationLocker IntegrationLocker
	RefreshScheduler  RefreshBackoffScheduler
	Registry          Registry
	IntegrationStore  IntegrationStore
	StepLogStore      StepLogStore
	ExecutionStore    ExecutionStore
	BaselineStore     BaselineStore
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("flowsteps", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("flowsteps"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewProviderRegistry()
	}
	if builder.refreshScheduler == nil {
		builder.refreshScheduler = ExponentialBackoffScheduler{
			Initial: defaultRefreshInitialBackoff,
			Max:     defaultRefreshMaxBackoff,
		}
	}
	if builder.integrationLocker == nil {
		builder.integrationLocker = NewMemoryIntegrationLocker()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.oauthStateStore == nil {
		builder.oauthStateStore = NewMemoryOAuthStateStore(finalConfig.stateTTL())
	}

	storesMissing := builder.integrationStore == nil ||
		builder.stepLogStore == nil ||
		builder.executionStore == nil ||
		builder.baselineStore == nil
	if storesMissing && builder.repositoryFactory != nil {
		var stores StoreProvider
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			built, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			stores = built
		} else if built, ok := builder.repositoryFactory.(StoreProvider); ok {
			stores = built
		}
		if stores != nil {
			if builder.integrationStore == nil {
				builder.integrationStore = stores.IntegrationStore()
			}
			if builder.stepLogStore == nil {
				builder.stepLogStore = stores.StepLogStore()
			}
			if builder.executionStore == nil {
				builder.executionStore = stores.ExecutionStore()
			}
			if builder.baselineStore == nil {
				builder.baselineStore = stores.BaselineStore()
			}
		}
	}

	var recorder *StepRecorder
	if builder.stepLogStore != nil {
		recorder = NewStepRecorder(builder.stepLogStore,
			WithRecorderLogger(logger),
			WithRecorderMetrics(builder.metricsRecorder),
		)
	}

	return &Service{
		config:                  finalConfig,
		logger:                  logger,
		loggerProvider:          provider,
		metricsRecorder:         builder.metricsRecorder,
		errorFactory:            builder.errorFactory,
		errorMapper:             builder.errorMapper,
		persistenceClient:       builder.persistenceClient,
		repositoryFactory:       builder.repositoryFactory,
		configProvider:          builder.configProvider,
		optionsResolver:         builder.optionsResolver,
		oauthStateStore:         builder.oauthStateStore,
		integrationLocker:       builder.integrationLocker,
		refreshBackoffScheduler: builder.refreshScheduler,
		registry:                builder.registry,
		integrationStore:        builder.integrationStore,
		stepLogStore:            builder.stepLogStore,
		executionStore:          builder.executionStore,
		baselineStore:           builder.baselineStore,
		recorder:                recorder,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Recorder() *StepRecorder {
	if s == nil {
		return nil
	}
	return s.recorder
}

func (s *Service) Registry() Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		OAuthStateStore:   s.oauthStateStore,
		IntegrationLocker: s.integrationLocker,
		RefreshScheduler:  s.refreshBackoffScheduler,
		Registry:          s.registry,
		IntegrationStore:  s.integrationStore,
		StepLogStore:      s.stepLogStore,
		ExecutionStore:    s.executionStore,
		BaselineStore:     s.baselineStore,
	}
}

func (s *Service) RegisterProvider(provider Provider) error {
	if s == nil || s.registry == nil {
		return fmt.Errorf("core: provider registry is not configured")
	}
	return s.registry.Register(provider)
}

func (s *Service) resolveProvider(providerID string) (Provider, error) {
	if s == nil || s.registry == nil {
		return nil, s.mapError(fmt.Errorf("core: provider registry is not configured"))
	}
	id := strings.TrimSpace(providerID)
	if id == "" {
		id = "figma"
	}
	provider, ok := s.registry.Get(id)
	if !ok {
		return nil, s.mapError(fmt.Errorf("%w: %s", ErrProviderNotFound, id))
	}
	return provider, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
