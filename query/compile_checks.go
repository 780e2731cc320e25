package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-flowsteps/core"
)

var (
	_ gocmd.Querier[GetBaselineMessage, core.BaselineSnapshot]     = (*GetBaselineQuery)(nil)
	_ gocmd.Querier[ListBaselinesMessage, []core.BaselineSnapshot] = (*ListBaselinesQuery)(nil)
	_ gocmd.Querier[LatestStepLogMessage, core.ExecutionStepLog]   = (*LatestStepLogQuery)(nil)
	_ gocmd.Querier[GetIntegrationMessage, core.Integration]       = (*GetIntegrationQuery)(nil)
)
