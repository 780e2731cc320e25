package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-flowsteps/core"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	integrationStore *IntegrationStore
	stepLogStore     *StepLogStore
	executionStore   *ExecutionStore
	baselineStore    *BaselineStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.integrationStore != nil && f.baselineStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) IntegrationStore() core.IntegrationStore {
	if f == nil {
		return nil
	}
	return f.integrationStore
}

func (f *RepositoryFactory) StepLogStore() core.StepLogStore {
	if f == nil {
		return nil
	}
	return f.stepLogStore
}

func (f *RepositoryFactory) ExecutionStore() core.ExecutionStore {
	if f == nil {
		return nil
	}
	return f.executionStore
}

func (f *RepositoryFactory) BaselineStore() core.BaselineStore {
	if f == nil {
		return nil
	}
	return f.baselineStore
}

func (f *RepositoryFactory) Executions() *ExecutionStore {
	if f == nil {
		return nil
	}
	return f.executionStore
}

func (f *RepositoryFactory) Integrations() *IntegrationStore {
	if f == nil {
		return nil
	}
	return f.integrationStore
}

func (f *RepositoryFactory) StepLogs() *StepLogStore {
	if f == nil {
		return nil
	}
	return f.stepLogStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	integrationStore, err := NewIntegrationStore(f.db)
	if err != nil {
		return err
	}
	f.integrationStore = integrationStore
	stepLogStore, err := NewStepLogStore(f.db)
	if err != nil {
		return err
	}
	f.stepLogStore = stepLogStore
	executionStore, err := NewExecutionStore(f.db)
	if err != nil {
		return err
	}
	f.executionStore = executionStore
	baselineStore, err := NewBaselineStore(f.db)
	if err != nil {
		return err
	}
	f.baselineStore = baselineStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
