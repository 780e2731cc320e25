package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type DetectChangesRequest struct {
	ExecutionID   string
	CurrentNodeID string
	BaselineID    string
	FetchNodeType string
}

type DetectChangesResult struct {
	NewItems []map[string]any `json:"newItems"`
	Count    int              `json:"count"`
}

// DetectChanges diffs the most recent successful activity fetch in the
// current execution against a stored baseline. An event is new when its id is
// absent from the baseline; an event without an id can never match a baseline
// entry, so it always counts as new. Order follows the fetched logs.
func (s *Service) DetectChanges(ctx context.Context, req DetectChangesRequest) (DetectChangesResult, error) {
	if s == nil {
		return DetectChangesResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	result, err := s.detectChanges(ctx, req)
	s.observeOperation(ctx, startedAt, "detect_changes", err, map[string]any{
		"execution_id": req.ExecutionID,
		"node_id":      req.CurrentNodeID,
	})
	return result, err
}

func (s *Service) detectChanges(ctx context.Context, req DetectChangesRequest) (DetectChangesResult, error) {
	executionID := strings.TrimSpace(req.ExecutionID)
	if executionID == "" {
		return DetectChangesResult{}, s.mapError(ValidationError("execution id is required"))
	}
	baselineID := strings.TrimSpace(req.BaselineID)
	if baselineID == "" {
		return DetectChangesResult{}, s.mapError(ValidationError("baseline id is required"))
	}
	fetchNodeType := strings.TrimSpace(req.FetchNodeType)
	if fetchNodeType == "" {
		fetchNodeType = FetchNodeType("")
	}

	if s.executionStore == nil {
		return DetectChangesResult{}, s.mapError(fmt.Errorf("core: execution store is not configured"))
	}
	if s.stepLogStore == nil {
		return DetectChangesResult{}, s.mapError(fmt.Errorf("core: step log store is not configured"))
	}
	if s.baselineStore == nil {
		return DetectChangesResult{}, s.mapError(fmt.Errorf("core: baseline store is not configured"))
	}

	execution, err := s.executionStore.Get(ctx, executionID)
	if err != nil {
		return DetectChangesResult{}, s.mapError(err)
	}

	fetchLog, err := s.stepLogStore.LatestSuccess(ctx, LatestStepLogQuery{
		ExecutionID:   executionID,
		NodeType:      fetchNodeType,
		ExcludeNodeID: strings.TrimSpace(req.CurrentNodeID),
	})
	if err != nil {
		return DetectChangesResult{}, s.mapError(err)
	}

	currentLogs, ok := extractFetchedLogs(fetchLog.Output)
	if !ok {
		return DetectChangesResult{}, s.mapError(NotFoundError("activity fetch output has no logs"))
	}

	baseline, err := s.baselineStore.Get(ctx, baselineID)
	if err != nil {
		return DetectChangesResult{}, s.mapError(err)
	}
	if strings.TrimSpace(execution.WorkflowID) != strings.TrimSpace(baseline.WorkflowID) {
		return DetectChangesResult{}, s.mapError(OwnershipError("baseline belongs to a different workflow"))
	}
	if baseline.Data == nil {
		return DetectChangesResult{}, s.mapError(ValidationError("baseline data must be a sequence"))
	}

	baselineIDs := make(map[string]struct{}, len(baseline.Data))
	for _, entry := range baseline.Data {
		if id := entryID(entry); id != "" {
			baselineIDs[id] = struct{}{}
		}
	}

	newItems := make([]map[string]any, 0, len(currentLogs))
	for _, logEntry := range currentLogs {
		if id := entryID(logEntry); id != "" {
			if _, seen := baselineIDs[id]; seen {
				continue
			}
		}
		newItems = append(newItems, logEntry)
	}

	return DetectChangesResult{NewItems: newItems, Count: len(newItems)}, nil
}

// extractFetchedLogs pulls the "logs" sequence from a recorded fetch output.
// The output was stored as jsonb, so entries arrive as generic maps.
func extractFetchedLogs(output map[string]any) ([]map[string]any, bool) {
	if output == nil {
		return nil, false
	}
	raw, ok := output["logs"]
	if !ok {
		return nil, false
	}
	switch value := raw.(type) {
	case []map[string]any:
		return value, true
	case []any:
		logs := make([]map[string]any, 0, len(value))
		for _, item := range value {
			if entry, ok := item.(map[string]any); ok {
				logs = append(logs, entry)
			}
		}
		return logs, true
	default:
		return nil, false
	}
}

func entryID(entry map[string]any) string {
	if entry == nil {
		return ""
	}
	value, ok := entry["id"]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}
