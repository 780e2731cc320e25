package core

import (
	"context"
	"fmt"
	"testing"
)

type echoInput struct {
	Name string `json:"name"`
}

type echoOutput struct {
	Greeting string `json:"greeting"`
}

func TestRecordStep_AppendsSuccessRow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStepLogStore()
	recorder := NewStepRecorder(store)

	step := StepFunc[echoInput, echoOutput](func(_ context.Context, in echoInput) (echoOutput, error) {
		return echoOutput{Greeting: "hello " + in.Name}, nil
	})

	out, err := RecordStep(ctx, recorder, StepContext{
		ExecutionID: "exec-1",
		NodeID:      "node-1",
		NodeType:    "figma/get-activity-logs",
	}, echoInput{Name: "world"}, step)
	if err != nil {
		t.Fatalf("RecordStep: %v", err)
	}
	if out.Greeting != "hello world" {
		t.Fatalf("unexpected output: %+v", out)
	}

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log row, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Status != StepStatusSuccess {
		t.Fatalf("expected success status, got %q", entry.Status)
	}
	if entry.Input["name"] != "world" {
		t.Fatalf("expected input payload recorded, got %v", entry.Input)
	}
	if entry.Output["greeting"] != "hello world" {
		t.Fatalf("expected output payload recorded, got %v", entry.Output)
	}
	if entry.NodeType != "figma/get-activity-logs" {
		t.Fatalf("expected node type on row, got %q", entry.NodeType)
	}
}

func TestRecordStep_AppendsErrorRowAndReturnsStepError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStepLogStore()
	recorder := NewStepRecorder(store)

	stepErr := fmt.Errorf("upstream exploded")
	step := StepFunc[echoInput, echoOutput](func(context.Context, echoInput) (echoOutput, error) {
		return echoOutput{}, stepErr
	})

	_, err := RecordStep(ctx, recorder, StepContext{ExecutionID: "exec-1"}, echoInput{}, step)
	if err != stepErr {
		t.Fatalf("expected step error back, got %v", err)
	}

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log row, got %d", len(entries))
	}
	if entries[0].Status != StepStatusError {
		t.Fatalf("expected error status, got %q", entries[0].Status)
	}
	if entries[0].Error != "upstream exploded" {
		t.Fatalf("expected error text recorded, got %q", entries[0].Error)
	}
	if entries[0].Output != nil {
		t.Fatalf("expected no output on failed run")
	}
}

func TestRecordStep_SurfacesAppendFailureOnSuccess(t *testing.T) {
	ctx := context.Background()
	recorder := NewStepRecorder(failingStepLogStore{appendErr: fmt.Errorf("disk full")})

	step := StepFunc[echoInput, echoOutput](func(context.Context, echoInput) (echoOutput, error) {
		return echoOutput{Greeting: "hi"}, nil
	})

	_, err := RecordStep(ctx, recorder, StepContext{ExecutionID: "exec-1"}, echoInput{}, step)
	if err == nil {
		t.Fatalf("expected append failure to surface")
	}
}

func TestRecordStep_RecordsPanicAndRepanics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStepLogStore()
	recorder := NewStepRecorder(store)

	step := StepFunc[echoInput, echoOutput](func(context.Context, echoInput) (echoOutput, error) {
		panic("boom")
	})

	func() {
		defer func() {
			if recovered := recover(); recovered == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_, _ = RecordStep(ctx, recorder, StepContext{ExecutionID: "exec-1"}, echoInput{}, step)
	}()

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected panic row, got %d rows", len(entries))
	}
	if entries[0].Status != StepStatusError {
		t.Fatalf("expected error status for panic, got %q", entries[0].Status)
	}
}

func TestRecordStep_RequiresExecutionID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStepLogStore()
	recorder := NewStepRecorder(store)

	step := StepFunc[echoInput, echoOutput](func(context.Context, echoInput) (echoOutput, error) {
		return echoOutput{}, nil
	})

	if _, err := RecordStep(ctx, recorder, StepContext{}, echoInput{}, step); err == nil {
		t.Fatalf("expected validation error for missing execution id")
	}
	if len(store.Entries()) != 0 {
		t.Fatalf("expected no rows for rejected run")
	}
}

func TestToPayloadMap_WrapsNonObjectPayloads(t *testing.T) {
	if payload := toPayloadMap(nil); payload != nil {
		t.Fatalf("expected nil payload for nil input")
	}
	payload := toPayloadMap([]string{"a", "b"})
	if _, ok := payload["value"]; !ok {
		t.Fatalf("expected non-object payload wrapped under value, got %v", payload)
	}
	payload = toPayloadMap(map[string]any{"k": "v"})
	if payload["k"] != "v" {
		t.Fatalf("expected object payload preserved, got %v", payload)
	}
}
