package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory store implementations backing tests and single-process setups.
// The SQL-backed stores in store/sql are the production path.

type MemoryIntegrationStore struct {
	mu      sync.RWMutex
	entries map[string]Integration
}

func NewMemoryIntegrationStore() *MemoryIntegrationStore {
	return &MemoryIntegrationStore{entries: map[string]Integration{}}
}

func (s *MemoryIntegrationStore) Seed(integration Integration) {
	if s == nil {
		return
	}
	if strings.TrimSpace(integration.ID) == "" {
		integration.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = now
	}
	integration.UpdatedAt = now
	s.mu.Lock()
	s.entries[integration.ID] = cloneIntegration(integration)
	s.mu.Unlock()
}

func (s *MemoryIntegrationStore) Get(_ context.Context, id string) (Integration, error) {
	if s == nil {
		return Integration{}, NotFoundError("integration store is not configured")
	}
	id = strings.TrimSpace(id)
	s.mu.RLock()
	integration, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return Integration{}, NotFoundError("integration not found: " + id)
	}
	return cloneIntegration(integration), nil
}

func (s *MemoryIntegrationStore) SaveConfig(_ context.Context, id string, config map[string]string) (Integration, error) {
	if s == nil {
		return Integration{}, NotFoundError("integration store is not configured")
	}
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	integration, ok := s.entries[id]
	if !ok {
		return Integration{}, NotFoundError("integration not found: " + id)
	}
	integration.Config = cloneStringMap(config)
	integration.UpdatedAt = time.Now().UTC()
	s.entries[id] = integration
	return cloneIntegration(integration), nil
}

type MemoryStepLogStore struct {
	mu      sync.RWMutex
	entries []ExecutionStepLog
}

func NewMemoryStepLogStore() *MemoryStepLogStore {
	return &MemoryStepLogStore{}
}

func (s *MemoryStepLogStore) Append(_ context.Context, in AppendStepLogInput) (ExecutionStepLog, error) {
	if s == nil {
		return ExecutionStepLog{}, NotFoundError("step log store is not configured")
	}
	if strings.TrimSpace(in.ExecutionID) == "" {
		return ExecutionStepLog{}, ValidationError("execution id is required")
	}
	entry := ExecutionStepLog{
		ID:          uuid.NewString(),
		ExecutionID: strings.TrimSpace(in.ExecutionID),
		NodeID:      strings.TrimSpace(in.NodeID),
		NodeType:    strings.TrimSpace(in.NodeType),
		Status:      in.Status,
		Input:       copyAnyMap(in.Input),
		Output:      copyAnyMap(in.Output),
		DurationMs:  in.DurationMs,
		Error:       in.Error,
		Timestamp:   in.Timestamp,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return entry, nil
}

func (s *MemoryStepLogStore) LatestSuccess(_ context.Context, q LatestStepLogQuery) (ExecutionStepLog, error) {
	if s == nil {
		return ExecutionStepLog{}, NotFoundError("step log store is not configured")
	}
	executionID := strings.TrimSpace(q.ExecutionID)
	nodeType := strings.TrimSpace(q.NodeType)
	excludeNodeID := strings.TrimSpace(q.ExcludeNodeID)

	s.mu.RLock()
	matches := make([]ExecutionStepLog, 0)
	for _, entry := range s.entries {
		if entry.ExecutionID != executionID {
			continue
		}
		if entry.Status != StepStatusSuccess {
			continue
		}
		if nodeType != "" && entry.NodeType != nodeType {
			continue
		}
		if excludeNodeID != "" && entry.NodeID == excludeNodeID {
			continue
		}
		matches = append(matches, entry)
	}
	s.mu.RUnlock()

	if len(matches) == 0 {
		return ExecutionStepLog{}, NotFoundError("no successful step log found")
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})
	return matches[0], nil
}

func (s *MemoryStepLogStore) PruneStepLogs(_ context.Context, policy StepLogRetentionPolicy) (int, error) {
	if s == nil {
		return 0, NotFoundError("step log store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries
	if policy.TTL > 0 {
		cutoff := time.Now().UTC().Add(-policy.TTL)
		filtered := kept[:0]
		for _, entry := range kept {
			if entry.Timestamp.After(cutoff) {
				filtered = append(filtered, entry)
			}
		}
		kept = filtered
	}
	if policy.RowCap > 0 && len(kept) > policy.RowCap {
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Timestamp.Before(kept[j].Timestamp)
		})
		kept = kept[len(kept)-policy.RowCap:]
	}

	deleted := len(s.entries) - len(kept)
	s.entries = append([]ExecutionStepLog(nil), kept...)
	return deleted, nil
}

func (s *MemoryStepLogStore) Entries() []ExecutionStepLog {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ExecutionStepLog(nil), s.entries...)
}

type MemoryExecutionStore struct {
	mu      sync.RWMutex
	entries map[string]Execution
}

func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{entries: map[string]Execution{}}
}

func (s *MemoryExecutionStore) Seed(execution Execution) {
	if s == nil {
		return
	}
	if strings.TrimSpace(execution.ID) == "" {
		execution.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.entries[execution.ID] = execution
	s.mu.Unlock()
}

func (s *MemoryExecutionStore) Get(_ context.Context, id string) (Execution, error) {
	if s == nil {
		return Execution{}, NotFoundError("execution store is not configured")
	}
	id = strings.TrimSpace(id)
	s.mu.RLock()
	execution, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return Execution{}, NotFoundError("execution not found: " + id)
	}
	return execution, nil
}

type MemoryBaselineStore struct {
	mu      sync.RWMutex
	entries map[string]BaselineSnapshot
}

func NewMemoryBaselineStore() *MemoryBaselineStore {
	return &MemoryBaselineStore{entries: map[string]BaselineSnapshot{}}
}

func (s *MemoryBaselineStore) Create(_ context.Context, in CreateBaselineInput) (BaselineSnapshot, error) {
	if s == nil {
		return BaselineSnapshot{}, NotFoundError("baseline store is not configured")
	}
	now := time.Now().UTC()
	baseline := BaselineSnapshot{
		ID:         uuid.NewString(),
		WorkflowID: strings.TrimSpace(in.WorkflowID),
		Name:       strings.TrimSpace(in.Name),
		Data:       cloneDataRows(in.Data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := baseline.Validate(); err != nil {
		return BaselineSnapshot{}, err
	}
	s.mu.Lock()
	s.entries[baseline.ID] = baseline
	s.mu.Unlock()
	return cloneBaseline(baseline), nil
}

func (s *MemoryBaselineStore) Get(_ context.Context, id string) (BaselineSnapshot, error) {
	if s == nil {
		return BaselineSnapshot{}, NotFoundError("baseline store is not configured")
	}
	id = strings.TrimSpace(id)
	s.mu.RLock()
	baseline, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return BaselineSnapshot{}, NotFoundError("baseline not found: " + id)
	}
	return cloneBaseline(baseline), nil
}

func (s *MemoryBaselineStore) ListByWorkflow(_ context.Context, workflowID string) ([]BaselineSnapshot, error) {
	if s == nil {
		return nil, NotFoundError("baseline store is not configured")
	}
	workflowID = strings.TrimSpace(workflowID)
	s.mu.RLock()
	baselines := make([]BaselineSnapshot, 0)
	for _, baseline := range s.entries {
		if baseline.WorkflowID == workflowID {
			baselines = append(baselines, cloneBaseline(baseline))
		}
	}
	s.mu.RUnlock()
	sort.Slice(baselines, func(i, j int) bool {
		return baselines[i].CreatedAt.Before(baselines[j].CreatedAt)
	})
	return baselines, nil
}

func (s *MemoryBaselineStore) Update(_ context.Context, in UpdateBaselineInput) (BaselineSnapshot, error) {
	if s == nil {
		return BaselineSnapshot{}, NotFoundError("baseline store is not configured")
	}
	id := strings.TrimSpace(in.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	baseline, ok := s.entries[id]
	if !ok {
		return BaselineSnapshot{}, NotFoundError("baseline not found: " + id)
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		baseline.Name = name
	}
	if in.ReplaceData {
		baseline.Data = cloneDataRows(in.Data)
	}
	baseline.UpdatedAt = time.Now().UTC()
	s.entries[id] = baseline
	return cloneBaseline(baseline), nil
}

func (s *MemoryBaselineStore) Delete(_ context.Context, id string) error {
	if s == nil {
		return NotFoundError("baseline store is not configured")
	}
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return NotFoundError("baseline not found: " + id)
	}
	delete(s.entries, id)
	return nil
}

func cloneIntegration(integration Integration) Integration {
	cloned := integration
	cloned.Config = cloneStringMap(integration.Config)
	return cloned
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func cloneBaseline(baseline BaselineSnapshot) BaselineSnapshot {
	cloned := baseline
	cloned.Data = cloneDataRows(baseline.Data)
	return cloned
}

func cloneDataRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, copyAnyMap(row))
	}
	return out
}
