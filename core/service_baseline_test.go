package core

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestCreateBaseline_RejectsDuplicateEntryIDs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	_, err := svc.CreateBaseline(ctx, CreateBaselineInput{
		WorkflowID: "wf-1",
		Name:       "baseline",
		Data: []map[string]any{
			{"id": "evt-1"},
			{"id": "evt-1"},
		},
	})
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != FlowErrorValidation {
		t.Fatalf("expected validation text code, got %v", err)
	}
}

func TestUpdateBaseline_RejectsDuplicateEntryIDsOnReplace(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	created, err := svc.CreateBaseline(ctx, CreateBaselineInput{
		WorkflowID: "wf-1",
		Name:       "baseline",
		Data:       []map[string]any{{"id": "evt-1"}},
	})
	if err != nil {
		t.Fatalf("CreateBaseline: %v", err)
	}

	_, err = svc.UpdateBaseline(ctx, UpdateBaselineInput{
		ID:          created.ID,
		WorkflowID:  "wf-1",
		ReplaceData: true,
		Data: []map[string]any{
			{"id": "evt-2"},
			{"id": "evt-2"},
		},
	})
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != FlowErrorValidation {
		t.Fatalf("expected validation text code, got %v", err)
	}

	unchanged, err := svc.GetBaseline(ctx, "wf-1", created.ID)
	if err != nil {
		t.Fatalf("GetBaseline: %v", err)
	}
	if len(unchanged.Data) != 1 || unchanged.Data[0]["id"] != "evt-1" {
		t.Fatalf("expected stored data untouched, got %v", unchanged.Data)
	}
}
