package sqlstore

import "github.com/goliatone/go-flowsteps/core"

var (
	_ core.IntegrationStore       = (*IntegrationStore)(nil)
	_ core.StepLogStore           = (*StepLogStore)(nil)
	_ core.StepLogPruner          = (*StepLogStore)(nil)
	_ core.ExecutionStore         = (*ExecutionStore)(nil)
	_ core.BaselineStore          = (*BaselineStore)(nil)
	_ core.BaselineStore          = (*CachedBaselineStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
