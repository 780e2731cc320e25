package flowsteps_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	flowsteps "github.com/goliatone/go-flowsteps"
	"github.com/goliatone/go-flowsteps/core"
)

func TestDownstreamComposition_RunsRecordedWorkflowWithoutOwningRuntimeInternals(t *testing.T) {
	integrations := core.NewMemoryIntegrationStore()
	integrations.Seed(core.Integration{
		ID:   "integration-1",
		Type: "figma",
		Config: map[string]string{
			core.ConfigKeyClientID:     "client-id",
			core.ConfigKeyClientSecret: "client-secret",
		},
	})
	executions := core.NewMemoryExecutionStore()
	executions.Seed(core.Execution{ID: "execution-1", WorkflowID: "workflow-1"})
	stepLogs := core.NewMemoryStepLogStore()
	baselines := core.NewMemoryBaselineStore()

	provider := &scriptedActivityProvider{
		grant: core.TokenGrant{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			TokenType:    "bearer",
			UserID:       "user-9",
			ExpiresIn:    7200,
		},
		activity: core.FetchActivityResult{
			FileKey: "file-key-1",
			Logs: []core.ActivityLogEvent{
				{ID: "evt-1", Timestamp: 1_700_000_100, Action: core.ActivityAction{Type: "file_update"}},
				{ID: "evt-2", Timestamp: 1_700_000_200, Action: core.ActivityAction{Type: "file_comment"}},
				{ID: "evt-3", Timestamp: 1_700_000_300, Action: core.ActivityAction{Type: "file_update"}},
			},
		},
	}

	svc, err := flowsteps.NewService(
		flowsteps.DefaultConfig(),
		flowsteps.WithIntegrationStore(integrations),
		flowsteps.WithStepLogStore(stepLogs),
		flowsteps.WithExecutionStore(executions),
		flowsteps.WithBaselineStore(baselines),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.RegisterProvider(provider); err != nil {
		t.Fatalf("register provider: %v", err)
	}

	ctx := context.Background()
	engine := downstreamWorkflowEngine{runtime: svc}

	// Connect the account the way a hosted callback would.
	initiated, err := svc.InitiateOAuth(ctx, flowsteps.InitiateOAuthRequest{
		IntegrationID: "integration-1",
		ProviderID:    "figma",
		ClientID:      "client-id",
		RedirectURI:   "https://workflows.example.test/oauth/callback",
	})
	if err != nil {
		t.Fatalf("initiate oauth: %v", err)
	}
	if initiated.AuthURL == "" || initiated.State == "" {
		t.Fatalf("expected authorize redirect and state, got %#v", initiated)
	}

	completed, err := svc.CompleteOAuth(ctx, flowsteps.CompleteOAuthRequest{
		ProviderID: "figma",
		Code:       "auth-code-1",
		State:      initiated.State,
	})
	if err != nil {
		t.Fatalf("complete oauth: %v", err)
	}
	if completed.IntegrationID != "integration-1" {
		t.Fatalf("expected callback to resolve integration-1, got %q", completed.IntegrationID)
	}
	if provider.exchange.Code != "auth-code-1" || provider.exchange.ClientSecret != "client-secret" {
		t.Fatalf("expected exchange with stored client credentials, got %#v", provider.exchange)
	}

	stored, err := integrations.Get(ctx, "integration-1")
	if err != nil {
		t.Fatalf("load integration: %v", err)
	}
	cfg := core.ParseFigmaConfig(stored.Config)
	if cfg.AccessToken != "access-token" || cfg.RefreshToken != "refresh-token" {
		t.Fatalf("expected persisted grant tokens, got %#v", cfg)
	}
	if cfg.ExpiresAt == nil || !cfg.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected future token expiry, got %v", cfg.ExpiresAt)
	}

	// First run seeds the baseline from the fetched page.
	firstFetch, err := engine.RunActivityFetch(ctx, "execution-1", "node-fetch-1")
	if err != nil {
		t.Fatalf("first recorded fetch: %v", err)
	}
	if provider.fetch.AccessToken != "access-token" {
		t.Fatalf("expected fetch with persisted access token, got %q", provider.fetch.AccessToken)
	}
	baseline, err := svc.CreateBaseline(ctx, core.CreateBaselineInput{
		WorkflowID: "workflow-1",
		Name:       "figma activity",
		Data:       activityBaselineData(firstFetch.Logs[:2]),
	})
	if err != nil {
		t.Fatalf("create baseline: %v", err)
	}

	// Second run fetches again and diffs against the stored baseline.
	if _, err := engine.RunActivityFetch(ctx, "execution-1", "node-fetch-2"); err != nil {
		t.Fatalf("second recorded fetch: %v", err)
	}
	changes, err := engine.RunChangeDetection(ctx, "execution-1", "node-detect-1", baseline.ID)
	if err != nil {
		t.Fatalf("recorded change detection: %v", err)
	}
	if changes.Count != 1 || len(changes.NewItems) != 1 {
		t.Fatalf("expected one new event beyond the baseline, got %#v", changes)
	}
	if changes.NewItems[0]["id"] != "evt-3" {
		t.Fatalf("expected evt-3 flagged as new, got %#v", changes.NewItems[0])
	}

	// Every step run left exactly one trace row, detection included.
	entries := stepLogs.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected three recorded step runs, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Status != core.StepStatusSuccess {
			t.Fatalf("expected success rows only, got %#v", entry)
		}
		if entry.ExecutionID != "execution-1" {
			t.Fatalf("expected rows scoped to execution-1, got %#v", entry)
		}
	}
}

// downstreamWorkflowEngine composes the service as an embedding workflow
// application would: it owns node identity and ordering, and delegates the
// provider calls and run recording to the runtime.
type downstreamWorkflowEngine struct {
	runtime *flowsteps.Service
}

func (e downstreamWorkflowEngine) RunActivityFetch(ctx context.Context, executionID, nodeID string) (core.FetchActivityResult, error) {
	if e.runtime == nil {
		return core.FetchActivityResult{}, fmt.Errorf("runtime is required")
	}
	return core.RecordStep(ctx, e.runtime.Recorder(),
		core.StepContext{
			ExecutionID: executionID,
			NodeID:      nodeID,
			NodeType:    core.FetchNodeType("figma"),
		},
		core.FetchActivityRequest{
			IntegrationID: "integration-1",
			ProviderID:    "figma",
			FileURL:       "https://www.figma.com/design/file-key-1/Homepage",
			Order:         "desc",
		},
		e.runtime.FetchActivityStep(),
	)
}

func (e downstreamWorkflowEngine) RunChangeDetection(ctx context.Context, executionID, nodeID, baselineID string) (core.DetectChangesResult, error) {
	if e.runtime == nil {
		return core.DetectChangesResult{}, fmt.Errorf("runtime is required")
	}
	return core.RecordStep(ctx, e.runtime.Recorder(),
		core.StepContext{
			ExecutionID: executionID,
			NodeID:      nodeID,
			NodeType:    core.DetectNodeType("figma"),
		},
		core.DetectChangesRequest{
			ExecutionID:   executionID,
			CurrentNodeID: nodeID,
			BaselineID:    baselineID,
		},
		e.runtime.DetectChangesStep(),
	)
}

func activityBaselineData(logs []core.ActivityLogEvent) []map[string]any {
	data := make([]map[string]any, 0, len(logs))
	for _, event := range logs {
		data = append(data, map[string]any{
			"id":        event.ID,
			"timestamp": event.Timestamp,
		})
	}
	return data
}

type scriptedActivityProvider struct {
	grant    core.TokenGrant
	activity core.FetchActivityResult
	exchange core.ExchangeRequest
	fetch    core.FetchActivityInput
}

func (p *scriptedActivityProvider) ID() string { return "figma" }

func (p *scriptedActivityProvider) AuthorizeURL(req core.AuthorizeURLRequest) (string, error) {
	return "https://auth.example.test/authorize?state=" + req.State, nil
}

func (p *scriptedActivityProvider) Exchange(_ context.Context, req core.ExchangeRequest) (core.TokenGrant, error) {
	p.exchange = req
	return p.grant, nil
}

func (p *scriptedActivityProvider) RefreshGrant(_ context.Context, req core.RefreshGrantRequest) (core.TokenGrant, error) {
	return p.grant, nil
}

func (p *scriptedActivityProvider) FetchActivity(_ context.Context, in core.FetchActivityInput) (core.FetchActivityResult, error) {
	p.fetch = in
	return p.activity, nil
}
