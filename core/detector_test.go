package core

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func seedDetectFixture(t *testing.T, stores testServiceStores, logs []map[string]any, baseline []map[string]any) string {
	t.Helper()
	ctx := context.Background()

	stores.executions.Seed(Execution{ID: "exec-1", WorkflowID: "wf-1", Status: ExecutionStatusRunning})
	if _, err := stores.stepLogs.Append(ctx, AppendStepLogInput{
		ExecutionID: "exec-1",
		NodeID:      "fetch-node",
		NodeType:    "figma/get-activity-logs",
		Status:      StepStatusSuccess,
		Output:      map[string]any{"fileKey": "abc123", "logs": logs},
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("Append fetch log: %v", err)
	}

	created, err := stores.baselines.Create(ctx, CreateBaselineInput{
		WorkflowID: "wf-1",
		Name:       "baseline",
		Data:       baseline,
	})
	if err != nil {
		t.Fatalf("Create baseline: %v", err)
	}
	return created.ID
}

func TestDetectChanges_ReturnsOnlyUnseenEvents(t *testing.T) {
	ctx := context.Background()
	svc, stores := newTestService(t, nil)

	logs := []map[string]any{
		{"id": "evt-1", "action": map[string]any{"type": "file_update"}},
		{"id": "evt-2", "action": map[string]any{"type": "file_delete"}},
		{"id": "evt-3", "action": map[string]any{"type": "file_update"}},
	}
	baselineID := seedDetectFixture(t, stores, logs, []map[string]any{
		{"id": "evt-1"},
	})

	result, err := svc.DetectChanges(ctx, DetectChangesRequest{
		ExecutionID:   "exec-1",
		CurrentNodeID: "detect-node",
		BaselineID:    baselineID,
	})
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("expected 2 new items, got %d", result.Count)
	}
	if result.NewItems[0]["id"] != "evt-2" || result.NewItems[1]["id"] != "evt-3" {
		t.Fatalf("expected fetch order preserved, got %v", result.NewItems)
	}
}

func TestDetectChanges_IsIdempotentAgainstUnchangedBaseline(t *testing.T) {
	ctx := context.Background()
	svc, stores := newTestService(t, nil)

	logs := []map[string]any{
		{"id": "evt-1"},
		{"id": "evt-2"},
	}
	baselineID := seedDetectFixture(t, stores, logs, []map[string]any{
		{"id": "evt-1"}, {"id": "evt-2"},
	})

	req := DetectChangesRequest{ExecutionID: "exec-1", BaselineID: baselineID}
	first, err := svc.DetectChanges(ctx, req)
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	second, err := svc.DetectChanges(ctx, req)
	if err != nil {
		t.Fatalf("DetectChanges second run: %v", err)
	}
	if first.Count != 0 || second.Count != 0 {
		t.Fatalf("expected no new items on either run, got %d and %d", first.Count, second.Count)
	}
}

func TestDetectChanges_ExcludesCurrentNodeLogs(t *testing.T) {
	ctx := context.Background()
	svc, stores := newTestService(t, nil)

	baselineID := seedDetectFixture(t, stores, []map[string]any{{"id": "evt-old"}}, []map[string]any{})

	// A later success row written by the detect node itself must not be
	// picked up as the fetch source.
	if _, err := stores.stepLogs.Append(ctx, AppendStepLogInput{
		ExecutionID: "exec-1",
		NodeID:      "detect-node",
		NodeType:    "figma/get-activity-logs",
		Status:      StepStatusSuccess,
		Output:      map[string]any{"logs": []map[string]any{{"id": "evt-self"}}},
		Timestamp:   time.Now().UTC().Add(time.Second),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	result, err := svc.DetectChanges(ctx, DetectChangesRequest{
		ExecutionID:   "exec-1",
		CurrentNodeID: "detect-node",
		BaselineID:    baselineID,
	})
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if result.Count != 1 || result.NewItems[0]["id"] != "evt-old" {
		t.Fatalf("expected the fetch node's logs, got %v", result.NewItems)
	}
}

func TestDetectChanges_FailsWhenNoFetchLogExists(t *testing.T) {
	ctx := context.Background()
	svc, stores := newTestService(t, nil)

	stores.executions.Seed(Execution{ID: "exec-1", WorkflowID: "wf-1"})
	created, err := stores.baselines.Create(ctx, CreateBaselineInput{
		WorkflowID: "wf-1", Name: "baseline", Data: []map[string]any{},
	})
	if err != nil {
		t.Fatalf("Create baseline: %v", err)
	}

	_, err = svc.DetectChanges(ctx, DetectChangesRequest{ExecutionID: "exec-1", BaselineID: created.ID})
	if err == nil {
		t.Fatalf("expected error without a prior fetch log")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryNotFound {
		t.Fatalf("expected not found category, got %v", err)
	}
}

func TestDetectChanges_RejectsBaselineFromAnotherWorkflow(t *testing.T) {
	ctx := context.Background()
	svc, stores := newTestService(t, nil)

	seedDetectFixture(t, stores, []map[string]any{{"id": "evt-1"}}, []map[string]any{})
	foreign, err := stores.baselines.Create(ctx, CreateBaselineInput{
		WorkflowID: "wf-other", Name: "foreign", Data: []map[string]any{},
	})
	if err != nil {
		t.Fatalf("Create baseline: %v", err)
	}

	_, err = svc.DetectChanges(ctx, DetectChangesRequest{ExecutionID: "exec-1", BaselineID: foreign.ID})
	if err == nil {
		t.Fatalf("expected ownership error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != FlowErrorOwnership {
		t.Fatalf("expected ownership text code, got %v", err)
	}
}

func TestDetectChanges_TreatsEventsWithoutIDsAsNew(t *testing.T) {
	ctx := context.Background()
	svc, stores := newTestService(t, nil)

	logs := []map[string]any{
		{"id": "evt-1"},
		{"action": map[string]any{"type": "no-id"}},
		{"id": ""},
	}
	baselineID := seedDetectFixture(t, stores, logs, []map[string]any{
		{"id": "evt-1"},
	})

	result, err := svc.DetectChanges(ctx, DetectChangesRequest{ExecutionID: "exec-1", BaselineID: baselineID})
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("expected id-less events to count as new, got %v", result.NewItems)
	}
	if _, hasAction := result.NewItems[0]["action"]; !hasAction {
		t.Fatalf("expected fetch order preserved, got %v", result.NewItems)
	}
	if result.NewItems[1]["id"] != "" {
		t.Fatalf("expected the empty-id event last, got %v", result.NewItems)
	}
}
