package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Registry          = (*ProviderRegistry)(nil)
	_ OAuthStateStore   = (*MemoryOAuthStateStore)(nil)
	_ IntegrationLocker = (*MemoryIntegrationLocker)(nil)
	_ IntegrationStore  = (*MemoryIntegrationStore)(nil)
	_ StepLogStore      = (*MemoryStepLogStore)(nil)
	_ ExecutionStore    = (*MemoryExecutionStore)(nil)
	_ BaselineStore     = (*MemoryBaselineStore)(nil)
	_ StepLogPruner     = (*MemoryStepLogStore)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
